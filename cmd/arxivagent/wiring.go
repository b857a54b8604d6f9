package main

import (
	"fmt"
	"os"

	"arxivagent/internal/arxiv"
	"arxivagent/internal/config"
	"arxivagent/internal/logger"
	"arxivagent/internal/mcp"
	"arxivagent/internal/tool"
	"arxivagent/internal/tool/builtin"
	"arxivagent/internal/transport"
)

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.LoadWithDefaults()
	}

	return config.Load(configPath)
}

// newLogger writes to stderr; base is the level used without --verbose
func newLogger(base logger.Level) *logger.Logger {
	level := base
	if verbose {
		level = logger.LevelDebug
	}
	log := logger.NewLogger(os.Stderr, level)
	if noColor {
		log.SetColorMode(false)
	}
	return log
}

// newExecutor registers the tools served by this binary
func newExecutor(cfg *config.Config) *tool.Executor {
	registry := tool.NewRegistry()
	searcher := arxiv.NewClient(cfg.Arxiv.BaseURL, cfg.Arxiv.Timeout)
	// Register only fails on duplicate names
	registry.Register(builtin.NewSearchTool(searcher, cfg.Arxiv.MaxResults))
	return tool.NewExecutor(registry)
}

// newOpener selects the channel realization named by tools.transport
func newOpener(cfg *config.Config, log *logger.Logger) (transport.Opener, error) {
	if log == nil {
		log = logger.Discard()
	}

	switch cfg.Tools.Transport {
	case config.TransportInProcess:
		return &mcp.InProcessOpener{Executor: newExecutor(cfg), Logger: log}, nil
	case config.TransportStdio, config.TransportMCP:
		process, err := toolProcess(cfg)
		if err != nil {
			return nil, err
		}
		log.Debug("Tool server: %s %v (%s)", process.Command, process.Args, cfg.Tools.Transport)
		if cfg.Tools.Transport == config.TransportMCP {
			return &mcp.CommandOpener{Process: process}, nil
		}
		return &transport.StdioOpener{Process: process}, nil
	default:
		return nil, fmt.Errorf("unsupported tools.transport: %s (expected 'stdio', 'mcp' or 'inprocess')", cfg.Tools.Transport)
	}
}

// toolProcess defaults to re-running this binary's serve command
func toolProcess(cfg *config.Config) (transport.Process, error) {
	command, args := cfg.Tools.Command, cfg.Tools.Args
	if command == "" {
		exe, err := os.Executable()
		if err != nil {
			return transport.Process{}, fmt.Errorf("failed to locate executable for tool server: %w", err)
		}
		command = exe
		if len(args) == 0 {
			args = []string{"serve", "--protocol", cfg.Tools.Transport}
			if configPath != "" {
				args = append(args, "--config", configPath)
			}
			if verbose {
				args = append(args, "--verbose")
			}
		}
	}

	return transport.Process{
		Command:       command,
		Args:          args,
		Env:           cfg.Tools.Env,
		ShutdownGrace: cfg.Tools.ShutdownGrace,
	}, nil
}
