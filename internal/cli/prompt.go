package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultQuestion is asked when the user enters nothing
const DefaultQuestion = "What are the latest developments in spintronics?"

// Prompter asks the user for a question on an interactive stream
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Question prompts once and returns the trimmed answer, or DefaultQuestion
// if the input is blank or already closed
func (p *Prompter) Question() (string, error) {
	fmt.Fprintf(p.out, "Ask a question (default: %q): ", DefaultQuestion)

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read question: %w", err)
	}

	if q := strings.TrimSpace(line); q != "" {
		return q, nil
	}
	return DefaultQuestion, nil
}

// QuestionFromArgs joins command-line words into a question. It returns
// false when no words were given.
func QuestionFromArgs(args []string) (string, bool) {
	q := strings.TrimSpace(strings.Join(args, " "))
	return q, q != ""
}
