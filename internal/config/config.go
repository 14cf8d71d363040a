// Package config loads application configuration from YAML and API keys
// from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/martynov-dm/crypto-agent/internal/llm"
)

// Config holds the application configuration.
type Config struct {
	// LLM configures the model provider shared by all agents.
	LLM llm.Config `yaml:"llm"`
	// Agent configures per-agent limits.
	Agent AgentConfig `yaml:"agent"`
	// Server configures the HTTP control plane.
	Server ServerConfig `yaml:"server"`
	// Database configures the report/audit archive.
	Database DatabaseConfig `yaml:"database"`

	// Keys are read from the environment, never from the YAML file.
	Keys APIKeys `yaml:"-"`
}

// AgentConfig holds per-agent limits.
type AgentConfig struct {
	// MaxHistory is the number of non-system messages kept visible to the
	// LLM. Zero means unlimited.
	MaxHistory int `yaml:"max_history"`
	// MaxIterations bounds the tool-call loop per instruction.
	MaxIterations int `yaml:"max_iterations"`
}

// ServerConfig holds the control-plane listen settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig holds the archive database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// APIKeys holds secrets sourced from the environment.
type APIKeys struct {
	OpenAI        string
	CoinGecko     string
	Bitquery      string
	WalletAddress string
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: llm.Config{
			Provider:    "openai",
			Model:       "gpt-4",
			Temperature: 0,
			MaxTokens:   4096,
			TimeoutSec:  120,
		},
		Agent: AgentConfig{
			MaxHistory:    40,
			MaxIterations: 10,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8420",
		},
		Database: DatabaseConfig{
			Path: defaultDBPath(),
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cryptoagent.db"
	}
	return filepath.Join(home, ".cryptoagent", "cryptoagent.db")
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist. API keys are read from the environment; a .env
// file in the working directory is honored when present.
func Load(path string) (*Config, error) {
	// Missing .env is fine; variables may come from the real environment.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Keys = APIKeys{
		OpenAI:        os.Getenv("OPENAI_API_KEY"),
		CoinGecko:     os.Getenv("COINGECKO_API_KEY"),
		Bitquery:      os.Getenv("BITQUERY_API_KEY"),
		WalletAddress: os.Getenv("WALLET_ADDRESS"),
	}
	cfg.LLM.APIKey = cfg.Keys.OpenAI

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromHome loads configuration from ~/.cryptoagent/config.yaml.
func LoadFromHome() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Load("")
	}
	return Load(filepath.Join(home, ".cryptoagent", "config.yaml"))
}

// Save writes configuration to a YAML file, creating parent directories if
// needed. Keys are never written.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validProviders := map[string]bool{
		"":           true,
		"openai":     true,
		"deepseek":   true,
		"openrouter": true,
		"ollama":     true,
	}
	if !validProviders[c.LLM.Provider] {
		// Generic OpenAI-compatible providers are allowed but need a base URL.
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("provider %q requires base_url", c.LLM.Provider)
		}
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model must not be empty")
	}
	if c.Agent.MaxHistory < 0 {
		return fmt.Errorf("max_history must not be negative")
	}
	if c.Agent.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	return nil
}
