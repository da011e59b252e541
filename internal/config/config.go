// Package config holds all stock-analysis service configuration. Settings are
// read from an optional YAML file, with environment variables (optionally
// loaded from a .env file) taking precedence for secrets and provider
// selection.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP/SSE server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LLMConfig configures the generative model client.
type LLMConfig struct {
	Provider string   `yaml:"provider"` // deepseek, openai, custom
	APIKey   string   `yaml:"api_key"`
	BaseURL  string   `yaml:"base_url"`
	Model    string   `yaml:"model"`
	Timeout  Duration `yaml:"timeout"`
}

// AnalysisConfig bounds the execution of the analysis pipeline.
type AnalysisConfig struct {
	// UnitTimeout bounds each analysis unit independently.
	UnitTimeout Duration `yaml:"unit_timeout"`
	// SynthesisTimeout bounds the synthesis step, including the streamed
	// generative call.
	SynthesisTimeout Duration `yaml:"synthesis_timeout"`
	// HistoryDays is how many daily candles the technical factors consume.
	HistoryDays int `yaml:"history_days"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8000"},
		LLM: LLMConfig{
			Provider: "deepseek",
			Model:    "deepseek-reasoner",
			Timeout:  Duration(5 * time.Minute),
		},
		Analysis: AnalysisConfig{
			UnitTimeout:      Duration(2 * time.Minute),
			SynthesisTimeout: Duration(5 * time.Minute),
			HistoryDays:      120,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from path (if non-empty and present), then applies
// environment overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	// Best effort: a .env in the working directory seeds the environment.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the config. Environment wins
// over file values so deployments can inject secrets without editing YAML.
func (c *Config) applyEnv() {
	if v := os.Getenv("STOCK_ANALYSIS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	switch c.LLM.Provider {
	case "deepseek":
		if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("STOCK_ANALYSIS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) validate() error {
	if c.Analysis.UnitTimeout <= 0 {
		return fmt.Errorf("analysis.unit_timeout must be positive, got %v", c.Analysis.UnitTimeout)
	}
	if c.Analysis.SynthesisTimeout <= 0 {
		return fmt.Errorf("analysis.synthesis_timeout must be positive, got %v", c.Analysis.SynthesisTimeout)
	}
	if c.Analysis.HistoryDays <= 0 {
		return fmt.Errorf("analysis.history_days must be positive, got %d", c.Analysis.HistoryDays)
	}
	return nil
}
