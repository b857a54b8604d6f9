package main

import (
	"context"
	"fmt"
	"os"

	"arxivagent/internal/agent"
	"arxivagent/internal/cli"
	"arxivagent/internal/config"
	"arxivagent/internal/llm/openai"
	"arxivagent/internal/logger"
	"arxivagent/internal/mcp"
	"arxivagent/internal/transport"

	"github.com/spf13/cobra"
)

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyAskFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(logger.LevelInfo)

	question, ok := cli.QuestionFromArgs(args)
	if !ok {
		question, err = cli.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()).Question()
		if err != nil {
			return err
		}
	}

	opener, err := newOpener(cfg, log)
	if err != nil {
		return err
	}

	log.Debug("Creating LLM client (provider: %s, model: %s)", cfg.LLM.Provider, cfg.LLM.Model)
	client := openai.NewClient(openai.Options{
		APIKey:          cfg.LLM.APIKey,
		Model:           cfg.LLM.Model,
		BaseURL:         cfg.LLM.BaseURL,
		Azure:           cfg.LLM.Provider == config.ProviderAzure,
		AzureAPIVersion: cfg.LLM.AzureAPIVersion,
	})

	orchestrator := agent.New(agent.Config{
		Model:        cfg.LLM.Model,
		Temperature:  *cfg.LLM.Temperature,
		SystemPrompt: cfg.Agent.SystemPrompt,
	}, client, opener, log)

	answer, turn := orchestrator.Run(cmd.Context(), question)

	out := cli.NewWriter(cmd.OutOrStdout())
	out.Answer(answer)

	if turn.State == agent.StateFailed {
		return errTurnFailed
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout carries the protocol, so diagnostics stay on stderr and quiet
	log := newLogger(logger.LevelError)
	log.SetColorMode(false)
	executor := newExecutor(cfg)
	log.Debug("Serving %d tool(s) over %s", executor.Registry().Len(), protocol)

	switch protocol {
	case config.TransportStdio:
		return transport.NewServer(executor, log).Serve(cmd.Context(), os.Stdin, os.Stdout)
	case config.TransportMCP:
		return mcp.ServeStdio(cmd.Context(), executor, log)
	default:
		return fmt.Errorf("unsupported protocol: %s (expected 'stdio' or 'mcp')", protocol)
	}
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if transportFl != "" {
		cfg.Tools.Transport = transportFl
	}

	log := newLogger(logger.LevelError)
	opener, err := newOpener(cfg, log)
	if err != nil {
		return err
	}

	ch, err := opener.Open(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to start tool server: %w", err)
	}
	defer ch.Close()

	descs, err := ch.Capabilities(cmd.Context())
	if err != nil {
		return err
	}

	var server string
	if named, ok := ch.(interface{ ServerName() string }); ok {
		server = named.ServerName()
	}

	out := cli.NewWriter(cmd.OutOrStdout())
	out.SetColorMode(!noColor)
	out.Tools(server, descs)

	if showGuide {
		guide, err := readGuide(cmd.Context(), ch, cfg.Tools.Transport)
		if err != nil {
			return err
		}
		out.Guide(guide)
	}
	return nil
}

// readGuide fetches the help resource; only MCP servers publish one
func readGuide(ctx context.Context, ch transport.Channel, transportName string) (string, error) {
	reader, ok := ch.(interface {
		ReadResource(ctx context.Context, uri string) (string, error)
	})
	if !ok {
		return "", fmt.Errorf("the %s transport has no help resource (use --transport mcp or inprocess)", transportName)
	}
	return reader.ReadResource(ctx, mcp.HelpURI)
}

func applyAskFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if apiBaseURL != "" {
		cfg.LLM.BaseURL = apiBaseURL
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	if flags.Changed("temperature") {
		cfg.LLM.Temperature = &temperature
	}
	if transportFl != "" {
		cfg.Tools.Transport = transportFl
	}
}
