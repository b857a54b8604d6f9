package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"arxivagent/internal/tool"
)

// DefaultShutdownGrace is used when Process.ShutdownGrace is not set
const DefaultShutdownGrace = 2 * time.Second

// Process describes the tool-hosting child process
type Process struct {
	Command       string
	Args          []string
	Env           map[string]string
	ShutdownGrace time.Duration // How long Close waits after closing stdin before killing
	Stderr        io.Writer     // Child diagnostics; defaults to os.Stderr
}

// Cmd builds the exec.Cmd for the process. The child inherits the current
// environment plus Env.
func (p Process) Cmd(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	cmd.Env = append(os.Environ(), formatEnv(p.Env)...)
	cmd.Stderr = p.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd
}

// formatEnv converts an env map to a sorted KEY=VALUE slice
func formatEnv(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for key, value := range env {
		result = append(result, key+"="+value)
	}
	sort.Strings(result)
	return result
}

func (p Process) grace() time.Duration {
	if p.ShutdownGrace <= 0 {
		return DefaultShutdownGrace
	}
	return p.ShutdownGrace
}

// StdioOpener spawns a child speaking the line protocol for every turn
type StdioOpener struct {
	Process Process
}

func (o *StdioOpener) Open(ctx context.Context) (Channel, error) {
	return StartStdio(ctx, o.Process)
}

// StdioChannel talks newline-delimited JSON to a child process. Each request
// is one written line answered by exactly one read line.
type StdioChannel struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	reader *bufio.Reader
	grace  time.Duration
	closed bool

	exited  chan struct{}
	waitErr error

	closeOnce sync.Once
	closeErr  error
}

// StartStdio spawns the process and returns a channel bound to its stdio
func StartStdio(ctx context.Context, p Process) (*StdioChannel, error) {
	if p.Command == "" {
		return nil, fmt.Errorf("tool server command is empty")
	}

	// The process lives until Close, not until the caller's context ends
	procCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := p.Cmd(procCtx)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	// An owned pipe rather than StdoutPipe: Wait must not close the read
	// side while a response is still buffered in it.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW

	err = cmd.Start()
	stdoutW.Close()
	if err != nil {
		cancel()
		stdout.Close()
		return nil, fmt.Errorf("failed to start tool server %q: %w", p.Command, err)
	}

	c := &StdioChannel{
		cancel: cancel,
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		reader: bufio.NewReader(stdout),
		grace:  p.grace(),
		exited: make(chan struct{}),
	}
	go func() {
		c.waitErr = cmd.Wait()
		close(c.exited)
	}()

	return c, nil
}

func (c *StdioChannel) Capabilities(ctx context.Context) ([]tool.Descriptor, error) {
	resp, err := c.roundTrip(ctx, CapabilitiesRequest())
	if err != nil {
		return nil, fmt.Errorf("capabilities request failed: %w", err)
	}

	switch resp.Type {
	case TypeCapabilities:
		if resp.Capabilities == nil {
			return nil, fmt.Errorf("capabilities response without payload")
		}
		return resp.Capabilities.Descriptors()
	case TypeError:
		return nil, fmt.Errorf("tool server rejected capabilities request: %s", resp.Error.Message)
	default:
		return nil, fmt.Errorf("unexpected response type %q to capabilities request", resp.Type)
	}
}

func (c *StdioChannel) Call(ctx context.Context, callID, name string, args map[string]any) *tool.Result {
	resp, err := c.roundTrip(ctx, ToolCallMessage(callID, name, args))
	if err != nil {
		var toolErr *tool.Error
		if errors.As(err, &toolErr) {
			return tool.Failure(callID, toolErr.Kind, "%s", toolErr.Message)
		}
		return tool.Failure(callID, tool.KindToolExecutionFailed, "%v", err)
	}
	return resp.Result(callID)
}

// roundTrip writes one request line and reads exactly one response line
func (c *StdioChannel) roundTrip(ctx context.Context, req *Message) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, tool.Errorf(tool.KindChannelClosed, "tool server channel is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	line, err := Encode(req)
	if err != nil {
		return nil, tool.Errorf(tool.KindProtocolError, "%v", err)
	}
	if _, err := c.stdin.Write(line); err != nil {
		c.closed = true
		return nil, tool.Errorf(tool.KindChannelClosed, "failed to write to tool server: %v", err)
	}

	type readResult struct {
		line []byte
		err  error
	}
	done := make(chan readResult, 1)
	go func() {
		l, err := c.reader.ReadBytes('\n')
		done <- readResult{l, err}
	}()

	var r readResult
	select {
	case r = <-done:
	case <-ctx.Done():
		// The pending read owns the reader now; the channel cannot be reused
		c.closed = true
		c.kill()
		return nil, tool.Errorf(tool.KindChannelClosed, "tool call aborted: %v", ctx.Err())
	}

	if r.err != nil && len(r.line) == 0 {
		c.closed = true
		if r.err == io.EOF {
			return nil, tool.Errorf(tool.KindChannelClosed, "tool server closed its output")
		}
		return nil, tool.Errorf(tool.KindChannelClosed, "failed to read from tool server: %v", r.err)
	}

	resp, err := Decode(r.line)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Close signals EOF to the child, waits for the grace period, then kills it
func (c *StdioChannel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.stdin.Close()

		select {
		case <-c.exited:
		case <-time.After(c.grace):
			c.kill()
			<-c.exited
		}
		c.cancel()
		c.stdout.Close()

		var exitErr *exec.ExitError
		if c.waitErr != nil && !(errors.As(c.waitErr, &exitErr) && !exitErr.Exited()) {
			c.closeErr = fmt.Errorf("tool server exited with error: %w", c.waitErr)
		}
	})
	return c.closeErr
}

func (c *StdioChannel) kill() {
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
}
