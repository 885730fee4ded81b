package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read after the config file
const (
	EnvServer   = "PCA_SERVER"
	EnvAPIKey   = "PCA_API_KEY"
	EnvLogLevel = "PCA_LOG_LEVEL"
)

var validate = validator.New()

// Config is the main configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Wizard  WizardConfig  `yaml:"wizard"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig describes the Gophish server
type ServerConfig struct {
	URL       string        `yaml:"url" validate:"omitempty,url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	VerifyTLS bool          `yaml:"verify_tls"` // Gophish ships a self-signed certificate
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warning warn error critical"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// WizardConfig holds defaults offered by the assessment wizard
type WizardConfig struct {
	SMTPHost  string `yaml:"smtp_host"`
	OutputDir string `yaml:"output_dir"`
}

// HistoryConfig controls the local run journal
type HistoryConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"`
}

// MetricsConfig controls the Prometheus textfile written after each run
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // empty disables
}

// Load reads the YAML file at path (optional), applies environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from files into the process environment.
// Missing files are ignored; variables already set are kept.
func LoadEnvFile(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvServer); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Server.APIKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) setDefaults() {
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Wizard.SMTPHost == "" {
		c.Wizard.SMTPHost = "postfix:587"
	}
	if c.Wizard.OutputDir == "" {
		c.Wizard.OutputDir = "."
	}

	if c.History.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.History.Path = filepath.Join(home, ".pca", "history.db")
		} else {
			c.History.Path = "pca-history.db"
		}
	}
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: %q fails %q", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}
	return nil
}

// SetServer overrides the server settings with command-line values.
// Empty values keep what the file or environment provided.
func (c *Config) SetServer(url, apiKey string) error {
	if url != "" {
		c.Server.URL = url
	}
	if apiKey != "" {
		c.Server.APIKey = apiKey
	}
	return c.Validate()
}

// RequireServer reports a missing server URL or API key
func (c *Config) RequireServer() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server URL is required (SERVER argument, server.url or %s)", EnvServer)
	}
	if c.Server.APIKey == "" {
		return fmt.Errorf("API key is required (API_KEY argument, server.api_key or %s)", EnvAPIKey)
	}
	return nil
}
