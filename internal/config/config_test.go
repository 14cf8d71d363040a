package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gpt-4" || cfg.Server.Addr == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: deepseek
  model: deepseek-chat
agent:
  max_history: 20
server:
  addr: "127.0.0.1:9000"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "deepseek" || cfg.LLM.Model != "deepseek-chat" {
		t.Fatalf("llm section not loaded: %+v", cfg.LLM)
	}
	if cfg.Agent.MaxHistory != 20 {
		t.Fatalf("agent section not loaded: %+v", cfg.Agent)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("server section not loaded: %+v", cfg.Server)
	}
	// Untouched sections keep defaults.
	if cfg.Database.Path == "" {
		t.Fatal("database default lost")
	}
}

func TestLoadReadsKeysFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("COINGECKO_API_KEY", "cg-test")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Keys.OpenAI != "sk-test" || cfg.Keys.CoinGecko != "cg-test" {
		t.Fatalf("keys not read from env: %+v", cfg.Keys)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatal("llm api key must come from the environment")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty model must be rejected")
	}

	cfg = DefaultConfig()
	cfg.LLM.Provider = "mystery"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown provider without base_url must be rejected")
	}
	cfg.LLM.BaseURL = "https://llm.example.com/v1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unknown provider with base_url must pass: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:7777"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Server.Addr != "127.0.0.1:7777" {
		t.Fatalf("round trip lost data: %+v", loaded.Server)
	}
}
