package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigurationMissing is returned by Validate when a required setting
// (currently the completion API key) is absent.
var ErrConfigurationMissing = errors.New("configuration missing")

// Transport names accepted in tools.transport
const (
	TransportStdio     = "stdio"
	TransportMCP       = "mcp"
	TransportInProcess = "inprocess"
)

// Provider names accepted in llm.provider
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

const (
	DefaultModel         = "gpt-4o-2024-08-06"
	DefaultTemperature   = 0.1
	DefaultArxivBaseURL  = "http://export.arxiv.org/api/query"
	DefaultMaxResults    = 3
	DefaultArxivTimeout  = 30 * time.Second
	DefaultShutdownGrace = 2 * time.Second
)

// Config represents the complete arxivagent configuration
type Config struct {
	LLM   LLMConfig   `yaml:"llm"`
	Tools ToolsConfig `yaml:"tools"`
	Arxiv ArxivConfig `yaml:"arxiv"`
	Agent AgentConfig `yaml:"agent"`
}

// LLMConfig selects and authenticates the completion API
type LLMConfig struct {
	Provider        string   `yaml:"provider"`          // "openai" (default) or "azure"
	APIKey          string   `yaml:"api_key"`           // ${OPENAI_API_KEY} style references are expanded
	BaseURL         string   `yaml:"base_url"`          // OpenAI-compatible endpoint (Ollama, Mistral, ...)
	Model           string   `yaml:"model"`             // Model or Azure deployment name
	Temperature     *float32 `yaml:"temperature"`       // Nil selects DefaultTemperature; 0 is honored
	AzureAPIVersion string   `yaml:"azure_api_version"` // Only used with provider=azure
}

// ToolsConfig describes how the agent reaches the tool-hosting process
type ToolsConfig struct {
	Transport     string            `yaml:"transport"`      // "stdio" (default), "mcp" or "inprocess"
	Command       string            `yaml:"command"`        // Defaults to the running executable
	Args          []string          `yaml:"args"`           // Defaults to "serve --protocol <transport>"
	Env           map[string]string `yaml:"env"`            // Environment variables with ${VAR} support
	ShutdownGrace time.Duration     `yaml:"shutdown_grace"` // Wait after closing stdin before killing
}

// ArxivConfig configures the search collaborator
type ArxivConfig struct {
	BaseURL    string        `yaml:"base_url"`
	MaxResults int           `yaml:"max_results"` // Default for search_arxiv_papers.max_results
	Timeout    time.Duration `yaml:"timeout"`
}

// AgentConfig overrides orchestrator prompts
type AgentConfig struct {
	SystemPrompt string `yaml:"system_prompt"`
}

// Default returns a config with every optional field populated
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the YAML config file. Environment overrides are
// applied before the settings are checked.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg.LLM.APIKey = ExpandEnv(cfg.LLM.APIKey)
	cfg.LLM.BaseURL = ExpandEnv(cfg.LLM.BaseURL)
	cfg.Tools.Env = ExpandEnvMap(cfg.Tools.Env)
	cfg.ApplyEnv()
	cfg.applyDefaults()

	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with fallback to default locations
// Checks: ./arxivagent.yaml, ./configs/arxivagent.yaml, ~/.config/arxivagent/arxivagent.yaml, /etc/arxivagent/arxivagent.yaml
func LoadWithDefaults() (*Config, error) {
	locations := []string{
		"./arxivagent.yaml",
		"./configs/arxivagent.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "arxivagent", "arxivagent.yaml"))
	}

	locations = append(locations, "/etc/arxivagent/arxivagent.yaml")

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return Load(loc)
		}
	}

	// No config found - defaults plus environment
	cfg := Default()
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv fills unset fields from well-known environment variables
func (c *Config) ApplyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = os.Getenv("OPENAI_API_BASE_URL")
	}
	if model := os.Getenv("ARXIVAGENT_MODEL"); model != "" {
		c.LLM.Model = model
	}
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.Temperature == nil {
		temperature := float32(DefaultTemperature)
		c.LLM.Temperature = &temperature
	}
	if c.Tools.Transport == "" {
		c.Tools.Transport = TransportStdio
	}
	if c.Tools.ShutdownGrace <= 0 {
		c.Tools.ShutdownGrace = DefaultShutdownGrace
	}
	if c.Arxiv.BaseURL == "" {
		c.Arxiv.BaseURL = DefaultArxivBaseURL
	}
	if c.Arxiv.MaxResults <= 0 {
		c.Arxiv.MaxResults = DefaultMaxResults
	}
	if c.Arxiv.Timeout <= 0 {
		c.Arxiv.Timeout = DefaultArxivTimeout
	}
}

// check validates the structural settings. It does not require an API key,
// because the tool-hosting process loads the same file without one.
func (c *Config) check() error {
	switch c.LLM.Provider {
	case ProviderOpenAI:
	case ProviderAzure:
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("llm.base_url is required for provider %q", ProviderAzure)
		}
	default:
		return fmt.Errorf("unsupported llm.provider: %s (expected 'openai' or 'azure')", c.LLM.Provider)
	}

	switch c.Tools.Transport {
	case TransportStdio, TransportMCP, TransportInProcess:
	default:
		return fmt.Errorf("unsupported tools.transport: %s (expected 'stdio', 'mcp' or 'inprocess')", c.Tools.Transport)
	}

	if c.Arxiv.MaxResults > 50 {
		return fmt.Errorf("arxiv.max_results must be <= 50 (got %d)", c.Arxiv.MaxResults)
	}

	return nil
}

// Validate checks everything the agent needs before touching the network
func (c *Config) Validate() error {
	c.applyDefaults()
	if err := c.check(); err != nil {
		return err
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: API key required (set OPENAI_API_KEY, llm.api_key or --api-key)", ErrConfigurationMissing)
	}
	return nil
}
