// Package config handles loading and validating the cyberdefense.toml configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Provider names accepted in llm.provider.
const (
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config is the top-level configuration.
type Config struct {
	Environment string         `toml:"environment"`
	LLM         LLMConfig      `toml:"llm"`
	Server      ServerConfig   `toml:"server"`
	Database    DatabaseConfig `toml:"database"`
	Log         LogConfig      `toml:"log"`
	Analysis    AnalysisConfig `toml:"analysis"`
	Demo        DemoConfig     `toml:"demo"`
}

// LLMConfig configures the generative-text gateway used for analysis and chat.
type LLMConfig struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	Endpoint string `toml:"endpoint"`
	Timeout  int    `toml:"timeout"` // HTTP timeout in seconds (0 = 30s)
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	CORSOrigins  []string `toml:"cors_origins"`
	ReadTimeout  int      `toml:"read_timeout"`  // seconds
	WriteTimeout int      `toml:"write_timeout"` // seconds; must exceed llm.timeout
}

// DatabaseConfig selects the event store. URLs starting with postgres:// use
// Postgres; anything else is treated as a SQLite path.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json | console
}

// AnalysisConfig holds the record windows used by /analysis, /chat and /stats.
type AnalysisConfig struct {
	WindowHours      int `toml:"window_hours"`
	Limit            int `toml:"limit"`
	MinWindowRecords int `toml:"min_window_records"` // below this, analysis ignores the window
	ChatWindowHours  int `toml:"chat_window_hours"`
	ChatLimit        int `toml:"chat_limit"`
	StatsWindowHours int `toml:"stats_window_hours"`
}

// DemoConfig controls demo data seeding at server start.
type DemoConfig struct {
	Seed bool `toml:"seed"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Environment: "development",
		LLM: LLMConfig{
			Model:    "gemini-2.0-flash",
			Endpoint: "https://generativelanguage.googleapis.com/v1beta",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			CORSOrigins:  []string{"http://localhost:3000"},
			ReadTimeout:  15,
			WriteTimeout: 90,
		},
		Database: DatabaseConfig{URL: "cyber_defense.db"},
		Log:      LogConfig{Level: "info", Format: "console"},
		Analysis: AnalysisConfig{
			WindowHours:      168,
			Limit:            200,
			MinWindowRecords: 50,
			ChatWindowHours:  168,
			ChatLimit:        150,
			StatsWindowHours: 24,
		},
		Demo: DemoConfig{Seed: true},
	}
}

// Load reads a TOML config file over the defaults, applies .env and environment
// overrides, and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file not found: %s\n  Create one with: cyberdefense init %s (writes cyberdefense.example.toml)", path, path)
			}
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides sensitive and deployment-specific values from the environment.
func (c *Config) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("CYBERDEFENSE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if provider := os.Getenv("CYBERDEFENSE_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
	}
	if level := os.Getenv("CYBERDEFENSE_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if env := os.Getenv("CYBERDEFENSE_ENV"); env != "" {
		c.Environment = env
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		var list []string
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				list = append(list, o)
			}
		}
		c.Server.CORSOrigins = list
	}
}

func (c *Config) validate() error {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))

	// Without an explicit provider, use Gemini when a key is available.
	if c.LLM.Provider == "" {
		if c.LLM.APIKey != "" {
			c.LLM.Provider = ProviderGemini
		} else {
			c.LLM.Provider = ProviderNone
		}
	}

	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %q (or set provider = %q)", ProviderGemini, ProviderNone)
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model is required")
		}
	case ProviderNone:
		// heuristic analysis only
	default:
		return fmt.Errorf("unsupported llm.provider: %q (gemini, none)", c.LLM.Provider)
	}

	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	a := c.Analysis
	if a.WindowHours <= 0 || a.Limit <= 0 || a.ChatWindowHours <= 0 || a.ChatLimit <= 0 || a.StatsWindowHours <= 0 {
		return fmt.Errorf("analysis windows and limits must be positive")
	}
	if a.MinWindowRecords < 0 {
		return fmt.Errorf("analysis.min_window_records must not be negative")
	}

	return nil
}

// Addr returns the listen address host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
