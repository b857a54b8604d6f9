// Package cli holds the terminal input and output helpers of the
// arxivagent command.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"arxivagent/internal/tool"
)

// ANSI Color codes
const (
	ColorReset = "\033[0m"
	ColorCyan  = "\033[36m"
	ColorBold  = "\033[1m"
)

// Writer writes user-facing output. Only the answer goes to stdout;
// diagnostics belong to the logger.
type Writer struct {
	writer    io.Writer
	colorMode bool
}

func NewWriter(w io.Writer) *Writer {
	if w == nil {
		w = os.Stdout
	}
	return &Writer{
		writer:    w,
		colorMode: true,
	}
}

func (w *Writer) SetColorMode(enabled bool) {
	w.colorMode = enabled
}

// WriteLine writes a line to the output
func (w *Writer) WriteLine(content string) {
	fmt.Fprintln(w.writer, content)
}

// WriteColored writes colored content if color mode is enabled
func (w *Writer) WriteColored(content, color string) {
	if w.colorMode {
		fmt.Fprintf(w.writer, "%s%s%s", color, content, ColorReset)
	} else {
		fmt.Fprint(w.writer, content)
	}
}

// Answer prints the final answer followed by a newline
func (w *Writer) Answer(answer string) {
	w.WriteLine(strings.TrimRight(answer, "\n"))
}

// Tools prints discovered tool descriptors with their parameters
func (w *Writer) Tools(server string, descs []tool.Descriptor) {
	if server != "" {
		w.WriteColored(server, ColorBold)
		w.WriteLine("")
	}
	if len(descs) == 0 {
		w.WriteLine("No tools available")
		return
	}

	for _, d := range descs {
		w.WriteColored(d.Name, ColorCyan)
		w.WriteLine("")
		if d.Description != "" {
			w.WriteLine("  " + d.Description)
		}
		for _, p := range d.Params {
			line := fmt.Sprintf("    %s (%s)", p.Name, p.Type)
			if p.Required {
				line += " required"
			}
			if p.Default != nil {
				line += fmt.Sprintf(" default=%v", p.Default)
			}
			if p.Description != "" {
				line += ": " + p.Description
			}
			w.WriteLine(line)
		}
	}
}

// Guide prints a server-provided usage guide after a blank line
func (w *Writer) Guide(text string) {
	w.WriteLine("")
	w.WriteLine(strings.TrimRight(text, "\n"))
}
