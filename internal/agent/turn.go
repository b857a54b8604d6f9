package agent

import (
	"time"

	"arxivagent/internal/llm"
	"arxivagent/internal/logger"
	"arxivagent/internal/tool"

	"github.com/google/uuid"
)

// State is a step of the turn state machine
type State int

const (
	StateIdle State = iota
	StateCapabilitiesFetched
	StateFirstCompletionRequested
	StateNoToolCalls
	StateToolCallsPending
	StateToolsExecuting
	StateSecondCompletionRequested
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                      "Idle",
	StateCapabilitiesFetched:       "CapabilitiesFetched",
	StateFirstCompletionRequested:  "FirstCompletionRequested",
	StateNoToolCalls:               "NoToolCalls",
	StateToolCallsPending:          "ToolCallsPending",
	StateToolsExecuting:            "ToolsExecuting",
	StateSecondCompletionRequested: "SecondCompletionRequested",
	StateDone:                      "Done",
	StateFailed:                    "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// ToolCallRecord is one executed tool call
type ToolCallRecord struct {
	CallID    string
	ToolName  string
	Arguments string // Raw JSON as emitted by the model
	Result    *tool.Result
	StartTime time.Time
	EndTime   time.Time
}

// Turn records everything that happened while answering one question
type Turn struct {
	ID        string
	Question  string
	State     State
	History   []State // Every state entered, in order, starting with Idle
	Tools     []tool.Descriptor
	Messages  []llm.Message
	ToolCalls []ToolCallRecord
	Err       error
	StartTime time.Time
	EndTime   time.Time

	log *logger.Logger
}

func newTurn(question string, log *logger.Logger) *Turn {
	return &Turn{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Question:  question,
		State:     StateIdle,
		History:   []State{StateIdle},
		StartTime: time.Now(),
		log:       log,
	}
}

func (t *Turn) transition(to State) {
	t.log.Transition(t.State.String(), to.String())
	t.State = to
	t.History = append(t.History, to)
}

func (t *Turn) append(msg llm.Message) {
	t.Messages = append(t.Messages, msg)
}

// Duration is the wall time of the turn, or the time so far if still running
func (t *Turn) Duration() time.Duration {
	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// Results returns the tool results in emission order
func (t *Turn) Results() []*tool.Result {
	results := make([]*tool.Result, 0, len(t.ToolCalls))
	for _, tc := range t.ToolCalls {
		results = append(results, tc.Result)
	}
	return results
}
