package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"arxivagent/internal/config"
	"arxivagent/internal/mcp"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	noColor    bool

	apiBaseURL  string
	apiKey      string
	model       string
	temperature float32
	transportFl string

	protocol  string
	showGuide bool
)

// errTurnFailed marks an ask whose answer already describes the failure
var errTurnFailed = errors.New("agent turn failed")

func main() {
	rootCmd := &cobra.Command{
		Use:           "arxivagent",
		Short:         "Answer scientific questions with arXiv search results",
		Long:          "A tool-calling LLM agent that searches arXiv to ground its answers",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./arxivagent.yaml, ~/.config/arxivagent/arxivagent.yaml, ...)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose output (debug mode)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question; prompts for one when no argument is given",
		RunE:  runAsk,
	}
	askCmd.Flags().StringVar(&apiBaseURL, "api-base-url", "", "OpenAI-compatible API base URL (env OPENAI_API_BASE_URL)")
	askCmd.Flags().StringVar(&apiKey, "api-key", "", "API key (env OPENAI_API_KEY)")
	askCmd.Flags().StringVar(&model, "model", "", fmt.Sprintf("Model to use (default %s)", config.DefaultModel))
	askCmd.Flags().Float32Var(&temperature, "temperature", config.DefaultTemperature, "Sampling temperature")
	askCmd.Flags().StringVar(&transportFl, "transport", "", "Tool transport: stdio, mcp or inprocess")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the arXiv tools on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&protocol, "protocol", config.TransportStdio, "Wire protocol: stdio (line JSON) or mcp")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered by the configured tool server",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}
	toolsCmd.Flags().StringVar(&transportFl, "transport", "", "Tool transport: stdio, mcp or inprocess")
	toolsCmd.Flags().BoolVar(&showGuide, "guide", false, "Also print the server's usage guide ("+mcp.HelpURI+")")

	rootCmd.AddCommand(askCmd, serveCmd, toolsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errTurnFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
