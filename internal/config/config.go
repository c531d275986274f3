// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	Argo    ArgoConfig
	Store   StoreConfig
	Session SessionConfig
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Name          string
	Version       string
	Address       string
	Port          int
	TransportMode string // "stdio" or "sse"
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string
	FilePath string
}

// ArgoConfig holds settings for the Argo chat client.
type ArgoConfig struct {
	// Provider selects the chat backend: "openai" (default, any
	// OpenAI-compatible gateway) or "anthropic".
	Provider        string
	APIKey          string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	// BaseURL overrides the default API endpoint so the client can talk to
	// the Argo gateway or any other OpenAI-compatible server.
	BaseURL string
	Model   string
	// MaxTokens is passed through on every completion request.
	MaxTokens int
	// Exactly one of Temperature or TopP must be set; the gateway rejects
	// requests carrying both.
	Temperature *float64
	TopP        *float64
	// MaxToolCalls bounds the number of backend round trips per chat call.
	MaxToolCalls int
	// MaxTools bounds the number of tool schemas sent per request so the
	// serialized tools payload stays under the gateway's size ceiling.
	MaxTools int
	// ServerCommand is the gem-flux server binary the chat client spawns
	// over stdio. ServerURL, when set, connects over SSE instead.
	ServerCommand string
	ServerArgs    []string
	ServerURL     string
}

// StoreConfig holds biochemistry database settings.
type StoreConfig struct {
	DBPath string
}

// SessionConfig holds in-memory session store settings.
type SessionConfig struct {
	// TTL is how long an untouched media or model is kept before the
	// janitor prunes it. Zero disables sweeping.
	TTL time.Duration
	// SweepSchedule is a cron expression (robfig/cron descriptor syntax)
	// for the janitor.
	SweepSchedule string
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	defaultTemp := 0.7

	return &Config{
		Server: ServerConfig{
			Name:          "gem-flux",
			Version:       "0.3.0",
			Address:       "localhost",
			Port:          8080,
			TransportMode: "stdio",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Argo: ArgoConfig{
			Provider:     "openai",
			Model:        "gpt-4o",
			MaxTokens:    4096,
			Temperature:  &defaultTemp,
			MaxToolCalls: 10,
			MaxTools:     6,
		},
		Store: StoreConfig{
			DBPath: filepath.Join(homeDir, ".gem-flux", "biochem.db"),
		},
		Session: SessionConfig{
			TTL:           24 * time.Hour,
			SweepSchedule: "@every 30m",
		},
	}
}

// FromEnv overrides config values with environment variables.
func FromEnv(cfg *Config) {
	if v := os.Getenv("GEM_FLUX_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("GEM_FLUX_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GEM_FLUX_TRANSPORT"); v != "" {
		cfg.Server.TransportMode = v
	}
	if v := os.Getenv("GEM_FLUX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GEM_FLUX_LOG_FILE"); v != "" {
		cfg.Logging.FilePath = v
	}
	if v := os.Getenv("GEM_FLUX_DB_PATH"); v != "" {
		cfg.Store.DBPath = v
	}
	if v := os.Getenv("ARGO_PROVIDER"); v != "" {
		cfg.Argo.Provider = v
	}
	if v := os.Getenv("ARGO_API_KEY"); v != "" {
		cfg.Argo.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Argo.OpenAIAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Argo.AnthropicAPIKey = v
	}
	if v := os.Getenv("ARGO_BASE_URL"); v != "" {
		cfg.Argo.BaseURL = v
	}
	if v := os.Getenv("ARGO_MODEL"); v != "" {
		cfg.Argo.Model = v
	}
	if v := os.Getenv("ARGO_MAX_TOOL_CALLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Argo.MaxToolCalls = n
		}
	}
	if v := os.Getenv("ARGO_MAX_TOOLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Argo.MaxTools = n
		}
	}
	if v := os.Getenv("ARGO_TOP_P"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Argo.TopP = &p
			cfg.Argo.Temperature = nil
		}
	}
	if v := os.Getenv("ARGO_TEMPERATURE"); v != "" {
		if temp, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Argo.Temperature = &temp
			cfg.Argo.TopP = nil
		}
	}
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	switch c.Server.TransportMode {
	case "stdio", "sse":
	default:
		return fmt.Errorf("unsupported transport mode: %s", c.Server.TransportMode)
	}

	if c.Server.TransportMode == "sse" && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Argo.Temperature != nil && c.Argo.TopP != nil {
		return fmt.Errorf("exactly one of temperature or top_p may be set, not both")
	}
	if c.Argo.Temperature == nil && c.Argo.TopP == nil {
		return fmt.Errorf("one of temperature or top_p must be set")
	}

	if c.Argo.MaxToolCalls < 1 {
		return fmt.Errorf("max tool calls must be at least 1, got %d", c.Argo.MaxToolCalls)
	}
	if c.Argo.MaxTools < 1 {
		return fmt.Errorf("max tools must be at least 1, got %d", c.Argo.MaxTools)
	}
	if c.Argo.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be at least 1, got %d", c.Argo.MaxTokens)
	}

	if c.Store.DBPath == "" {
		return fmt.Errorf("database path must not be empty")
	}

	return nil
}
