package llm

import "fmt"

// CompletionError wraps any failure of the completion API so callers can
// tell it apart from transport or tool failures with errors.As.
type CompletionError struct {
	Provider string
	Model    string
	Err      error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion API error (%s/%s): %v", e.Provider, e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
