// Package agent runs one question through the two-phase tool-calling
// protocol: discover tools, let the model request calls, execute them over
// a transport channel, then ask the model for the final answer.
package agent

import (
	"arxivagent/internal/llm"
	"arxivagent/internal/logger"
	"arxivagent/internal/transport"
)

const (
	// DefaultSystemPrompt directs the model to the search tool
	DefaultSystemPrompt = "You are a helpful assistant that can search for scientific papers on arXiv. " +
		"Use the search_arxiv_papers tool to find papers related to the user's query."

	// FallbackAnswer is returned when the model produces no text
	FallbackAnswer = "No response from assistant"

	// ErrorPrefix starts the answer of a turn that failed
	ErrorPrefix = "Error running agent: "
)

// Config holds the per-agent completion settings
type Config struct {
	Model        string // Empty uses the completion client's default model
	Temperature  float32
	SystemPrompt string // Empty uses DefaultSystemPrompt
}

// Orchestrator answers questions. Each Run opens its own tool channel and
// closes it before returning; an Orchestrator runs one turn at a time.
type Orchestrator struct {
	config Config
	client llm.Client
	opener transport.Opener
	log    *logger.Logger
}

// New creates an orchestrator from explicit collaborators. A nil logger
// discards output.
func New(cfg Config, client llm.Client, opener transport.Opener, log *logger.Logger) *Orchestrator {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Orchestrator{
		config: cfg,
		client: client,
		opener: opener,
		log:    log,
	}
}
