package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"arxivagent/internal/llm"
	"arxivagent/internal/tool"
	"arxivagent/internal/transport"

	"github.com/google/uuid"
)

// Run answers one question. It never returns an error: failures are
// reported as an answer starting with ErrorPrefix, and the returned Turn
// records what happened.
func (o *Orchestrator) Run(ctx context.Context, question string) (string, *Turn) {
	turn := newTurn(question, o.log)
	o.log.SessionStart(question)

	answer, err := o.run(ctx, turn)
	if err != nil {
		turn.Err = err
		turn.transition(StateFailed)
		answer = ErrorPrefix + err.Error()
		o.log.Error("Turn failed: %v", err)
	} else {
		turn.transition(StateDone)
	}

	turn.EndTime = time.Now()
	o.log.SessionEnd(turn.State.String(), turn.Duration(), len(turn.ToolCalls))
	return answer, turn
}

func (o *Orchestrator) run(ctx context.Context, turn *Turn) (string, error) {
	ch, err := o.opener.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start tool server: %w", err)
	}
	defer func() {
		if err := ch.Close(); err != nil {
			o.log.Warn("Closing tool channel: %v", err)
		}
	}()

	descs, err := ch.Capabilities(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get tool server capabilities: %w", err)
	}
	turn.Tools = descs
	turn.transition(StateCapabilitiesFetched)
	o.log.Info("Discovered %d tool(s)", len(descs))

	turn.append(llm.SystemMessage(o.config.SystemPrompt))
	turn.append(llm.UserMessage(turn.Question))

	first := o.request(turn)
	if len(descs) > 0 {
		first.Tools = tool.Definitions(descs)
		first.ToolChoice = llm.ToolChoiceAuto
	}

	turn.transition(StateFirstCompletionRequested)
	resp, err := o.client.Chat(ctx, first)
	if err != nil {
		return "", err
	}

	if !resp.Message.HasToolCalls() {
		turn.transition(StateNoToolCalls)
		turn.append(resp.Message)
		return answerText(resp.Message.Content), nil
	}

	turn.transition(StateToolCallsPending)
	assistant := resp.Message
	assistant.Role = llm.RoleAssistant
	for _, tc := range assistant.ToolCalls {
		if tc.ID == "" {
			tc.ID = "call_" + uuid.NewString()
		}
		if tc.Type == "" {
			tc.Type = "function"
		}
	}
	turn.append(assistant)

	turn.transition(StateToolsExecuting)
	o.log.Info("Executing %d tool call(s)...", len(assistant.ToolCalls))
	for _, tc := range assistant.ToolCalls {
		record := o.callTool(ctx, ch, tc)
		turn.ToolCalls = append(turn.ToolCalls, record)
		turn.append(llm.ToolMessage(record.CallID, record.ToolName, record.Result.Text()))
	}

	// Tools are not offered again: one round of tool calls per turn
	turn.transition(StateSecondCompletionRequested)
	final, err := o.client.Chat(ctx, o.request(turn))
	if err != nil {
		return "", err
	}
	turn.append(final.Message)

	return answerText(final.Message.Content), nil
}

func (o *Orchestrator) request(turn *Turn) *llm.ChatRequest {
	messages := make([]llm.Message, len(turn.Messages))
	copy(messages, turn.Messages)
	return &llm.ChatRequest{
		Model:       o.config.Model,
		Messages:    messages,
		Temperature: o.config.Temperature,
	}
}

// callTool decodes the model's arguments and forwards the call. Malformed
// arguments never reach the channel.
func (o *Orchestrator) callTool(ctx context.Context, ch transport.Channel, tc *llm.ToolCall) ToolCallRecord {
	record := ToolCallRecord{CallID: tc.ID, StartTime: time.Now()}
	if tc.Function != nil {
		record.ToolName = tc.Function.Name
		record.Arguments = tc.Function.Arguments
	}
	o.log.ToolCall(record.ToolName, record.CallID, record.Arguments)

	switch args, err := decodeArguments(record.Arguments); {
	case tc.Function == nil:
		record.Result = tool.Failure(tc.ID, tool.KindProtocolError, "tool call without function")
	case err != nil:
		record.Result = tool.Failure(tc.ID, tool.KindProtocolError, "Invalid arguments for %s: %v", record.ToolName, err)
	default:
		record.Result = ch.Call(ctx, tc.ID, record.ToolName, args)
	}

	record.EndTime = time.Now()
	r := record.Result
	o.log.ToolResult(record.ToolName, r.IsError, string(r.Kind), r.Content, record.EndTime.Sub(record.StartTime))
	return record
}

func decodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func answerText(content string) string {
	if strings.TrimSpace(content) == "" {
		return FallbackAnswer
	}
	return content
}
