package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"athenalens/internal/store"
)

// Config holds all athenalens configuration.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	AWS       AWSConfig       `toml:"aws"`
	Anthropic AnthropicConfig `toml:"anthropic"`
	Analysis  AnalysisConfig  `toml:"analysis"`
}

// DatabaseConfig selects the record store backend.
type DatabaseConfig struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path,omitempty"`
	Host     string `toml:"host,omitempty"`
	Port     int    `toml:"port,omitempty"`
	Database string `toml:"database,omitempty"`
	User     string `toml:"user,omitempty"`
	Password string `toml:"password,omitempty"`
	SSLMode  string `toml:"sslmode,omitempty"`
	MaxConns int    `toml:"max_conns,omitempty"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Listen string `toml:"listen"`
}

// AWSConfig holds Athena fetch settings.
type AWSConfig struct {
	Region     string   `toml:"region"`
	Profile    string   `toml:"profile,omitempty"`
	Workgroups []string `toml:"workgroups,omitempty"`
}

// AnthropicConfig holds assistant API settings.
type AnthropicConfig struct {
	APIKey  string `toml:"api_key,omitempty"`
	Model   string `toml:"model,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
}

// AnalysisConfig holds tunable analysis thresholds.
type AnalysisConfig struct {
	TopQueries        int     `toml:"top_queries,omitempty"`
	TopPatterns       int     `toml:"top_patterns,omitempty"`
	DriftThresholdPct float64 `toml:"drift_threshold_pct,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:   store.DriverSQLite,
			Path:     filepath.Join(DataDir(), "queries.db"),
			Host:     "localhost",
			Port:     5432,
			Database: "athena_queries",
			User:     "postgres",
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8000",
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "athenalens")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "athenalens")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "athenalens")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "athenalens")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment variables override file values for connection settings.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	return cfg
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// GetAnthropicAPIKey returns the API key from env var or config, in that order.
func GetAnthropicAPIKey(cfg Config) string {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key
	}
	return cfg.Anthropic.APIKey
}

// StoreConfig converts the database section into store connection settings.
func (c Config) StoreConfig() store.Config {
	return store.Config{
		Driver:   c.Database.Driver,
		Path:     c.Database.Path,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Database: c.Database.Database,
		User:     c.Database.User,
		Password: c.Database.Password,
		SSLMode:  c.Database.SSLMode,
		MaxConns: c.Database.MaxConns,
	}
}
