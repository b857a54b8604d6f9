package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"arxivagent/internal/logger"
	"arxivagent/internal/tool"
)

// Server answers the line protocol on behalf of an executor
type Server struct {
	executor *tool.Executor
	log      *logger.Logger
}

// NewServer creates a line protocol server. A nil logger discards output.
func NewServer(executor *tool.Executor, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{executor: executor, log: log}
}

// Serve reads requests from r and writes one response line per request to
// w until r reaches EOF, which ends the session cleanly.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			resp := s.Handle(ctx, line)
			if werr := s.write(writer, resp); werr != nil {
				return werr
			}
		}

		if err == io.EOF {
			s.log.Debug("Input closed, stopping server")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read request: %w", err)
		}
	}
}

// Handle decodes one request line and produces its response
func (s *Server) Handle(ctx context.Context, line []byte) *Message {
	req, err := Decode(bytes.TrimSpace(line))
	if err != nil {
		var toolErr *tool.Error
		if errors.As(err, &toolErr) {
			s.log.Error("Rejected request: %s", toolErr.Message)
			return ErrorMessage(toolErr.Kind, "%s", toolErr.Message)
		}
		return ErrorMessage(tool.KindProtocolError, "%v", err)
	}

	switch req.Type {
	case TypeCapabilities:
		return CapabilitiesResponse(s.executor.Registry().List())
	case TypeToolCall:
		return s.call(ctx, req.ToolCall)
	default:
		return ErrorMessage(tool.KindProtocolError, "Unsupported message type: %s", req.Type)
	}
}

func (s *Server) call(ctx context.Context, tc *ToolCallPayload) *Message {
	s.log.ToolCall(tc.Name, tc.ID, formatArgs(tc.Parameters))

	start := time.Now()
	result := s.executor.Execute(ctx, tc.ID, tc.Name, tc.Parameters)
	s.log.ToolResult(tc.Name, result.IsError, string(result.Kind), result.Content, time.Since(start))

	if result.IsError {
		return ErrorMessage(result.Kind, "%s", result.Content)
	}
	return ToolResultMessage(result)
}

func (s *Server) write(w *bufio.Writer, m *Message) error {
	line, err := Encode(m)
	if err != nil {
		s.log.Error("%v", err)
		line, _ = Encode(ErrorMessage(tool.KindProtocolError, "%v", err))
	}
	if _, err := w.Write(line); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return w.Flush()
}
