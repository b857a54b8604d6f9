package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the log level
type Level int

const (
	LevelDebug  Level = iota // Debug information (only shown with --verbose)
	LevelInfo                // Important steps
	LevelTool                // Tool call related
	LevelError               // Error messages
	LevelSilent              // Nothing at all
)

// ANSI color codes for terminal output
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorGray    = "\033[90m"
	ColorBold    = "\033[1m"
)

// Logger writes leveled, optionally colored diagnostics. The agent writes
// them to stderr so stdout only carries the final answer.
type Logger struct {
	mu        sync.Mutex
	writer    io.Writer
	level     Level
	showTime  bool
	colorMode bool
}

// NewLogger creates a new Logger instance
func NewLogger(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		writer:    w,
		level:     level,
		showTime:  true,
		colorMode: true,
	}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewLogger(io.Discard, LevelSilent)
}

// SetColorMode enables or disables colored output
func (l *Logger) SetColorMode(enabled bool) {
	l.colorMode = enabled
}

// SetShowTime enables or disables timestamp display
func (l *Logger) SetShowTime(enabled bool) {
	l.showTime = enabled
}

// Slog returns a structured logger writing to the same destination, for
// libraries that take a *slog.Logger
func (l *Logger) Slog() *slog.Logger {
	if l.level >= LevelSilent {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	level := slog.LevelError
	switch l.level {
	case LevelDebug:
		level = slog.LevelDebug
	case LevelInfo, LevelTool:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(&lockedWriter{l: l}, &slog.HandlerOptions{Level: level}))
}

// lockedWriter serializes slog output with the logger's own writes
type lockedWriter struct {
	l *Logger
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()
	return w.l.writer.Write(p)
}

// Debug logs debug information (only shown in verbose mode)
func (l *Logger) Debug(format string, args ...any) {
	if l.level <= LevelDebug {
		l.log(ColorGray, "DEBUG", format, args...)
	}
}

// Info logs general information
func (l *Logger) Info(format string, args ...any) {
	if l.level <= LevelInfo {
		l.log(ColorBlue, "INFO", format, args...)
	}
}

// Warn logs recoverable problems
func (l *Logger) Warn(format string, args ...any) {
	if l.level <= LevelError {
		l.log(ColorYellow, "WARN", format, args...)
	}
}

// Error logs error messages
func (l *Logger) Error(format string, args ...any) {
	if l.level <= LevelError {
		l.log(ColorRed, "ERROR", format, args...)
	}
}

// Transition logs a state machine step of the orchestrator
func (l *Logger) Transition(from, to string) {
	if l.level <= LevelDebug {
		l.log(ColorMagenta, "STATE", "%s → %s", from, to)
	}
}

// ToolCall logs a tool call with its arguments
func (l *Logger) ToolCall(toolName, callID, args string) {
	if l.level <= LevelTool {
		l.printSection(ColorCyan, fmt.Sprintf("🔧 Tool Call: %s (%s)", toolName, callID), l.formatJSON(args))
	}
}

// ToolResult logs a tool execution result
func (l *Logger) ToolResult(toolName string, isError bool, kind, content string, duration time.Duration) {
	if l.level > LevelTool {
		return
	}

	status := "✅ Success"
	color := ColorGreen
	if isError {
		status = "❌ " + kind
		color = ColorRed
	}

	header := fmt.Sprintf("📊 Tool Result: %s [%s] (%s)", toolName, status, duration.Round(time.Millisecond))
	l.printSection(color, header, truncate(content, 2, 500))
}

// SessionStart logs the beginning of a turn
func (l *Logger) SessionStart(question string) {
	if l.level <= LevelInfo {
		l.printBanner(ColorCyan, "🚀 Turn Started", question)
	}
}

// SessionEnd logs the completion of a turn with statistics
func (l *Logger) SessionEnd(state string, duration time.Duration, toolCallCount int) {
	if l.level <= LevelInfo {
		summary := fmt.Sprintf("State: %s | Duration: %s | Tool Calls: %d", state, duration.Round(time.Millisecond), toolCallCount)
		l.printBanner(ColorGreen, "✨ Turn Completed", summary)
	}
}

// truncate limits output to maxLines lines and maxLength characters
func truncate(output string, maxLines, maxLength int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	display := output
	truncatedLines := false

	if len(lines) > maxLines {
		display = strings.Join(lines[:maxLines], "\n")
		truncatedLines = true
	}

	if len(display) > maxLength {
		display = display[:maxLength] + "..."
	} else if truncatedLines {
		display += "\n..."
	}

	return display
}

// log is the core logging method
func (l *Logger) log(color, level, format string, args ...any) {
	timestamp := ""
	if l.showTime {
		timestamp = time.Now().Format("15:04:05") + " "
	}

	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.colorMode {
		fmt.Fprintf(l.writer, "%s%s[%s]%s %s\n", color, timestamp, level, ColorReset, msg)
	} else {
		fmt.Fprintf(l.writer, "%s[%s] %s\n", timestamp, level, msg)
	}
}

// printSection prints a formatted section with header and content
func (l *Logger) printSection(color, header, content string) {
	separator := strings.Repeat("─", 60)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.colorMode {
		fmt.Fprintf(l.writer, "\n%s%s%s%s\n", ColorBold, color, header, ColorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", color, separator, ColorReset)
		fmt.Fprintf(l.writer, "%s\n", content)
		fmt.Fprintf(l.writer, "%s%s%s\n\n", color, separator, ColorReset)
	} else {
		fmt.Fprintf(l.writer, "\n%s\n%s\n%s\n%s\n\n", header, separator, content, separator)
	}
}

// printBanner prints a prominent banner for turn start/end
func (l *Logger) printBanner(color, title, subtitle string) {
	separator := strings.Repeat("═", 70)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.colorMode {
		fmt.Fprintf(l.writer, "\n%s%s%s%s\n", ColorBold, color, separator, ColorReset)
		fmt.Fprintf(l.writer, "%s%s  %s%s\n", ColorBold, color, title, ColorReset)
		if subtitle != "" {
			fmt.Fprintf(l.writer, "%s  %s%s\n", color, subtitle, ColorReset)
		}
		fmt.Fprintf(l.writer, "%s%s%s%s\n\n", ColorBold, color, separator, ColorReset)
	} else {
		fmt.Fprintf(l.writer, "\n%s\n  %s\n", separator, title)
		if subtitle != "" {
			fmt.Fprintf(l.writer, "  %s\n", subtitle)
		}
		fmt.Fprintf(l.writer, "%s\n\n", separator)
	}
}

// formatJSON keeps short JSON compact and pretty-prints long JSON
func (l *Logger) formatJSON(jsonStr string) string {
	compact := strings.TrimSpace(jsonStr)
	if len(compact) < 80 {
		return compact
	}

	var obj any
	if err := json.Unmarshal([]byte(compact), &obj); err != nil {
		return compact
	}

	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return compact
	}

	return string(pretty)
}
