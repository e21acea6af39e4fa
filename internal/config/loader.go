package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = "hirepipe.yaml"

// HomeDir returns ~/.hirepipe, the default home for state files.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".hirepipe"), nil
}

// Load reads and parses a configuration from the given YAML file path,
// then applies defaults and HIREPIPE_* environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	cfg.Path = path

	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./hirepipe.yaml, ~/.hirepipe/config.yaml.
// With no file present it returns the built-in defaults.
func LoadDefault() (*Config, error) {
	candidates := []string{FileName}
	if dir, err := HomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default()
}

// Default returns the built-in configuration with environment overrides.
func Default() (*Config, error) {
	var cfg Config
	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config) error {
	if err := applyEnv(cfg); err != nil {
		return err
	}
	applyDefaults(cfg)
	return nil
}

// applyDefaults fills every unset field.
func applyDefaults(cfg *Config) {
	dir, _ := HomeDir()

	if cfg.Board.Name == "" {
		cfg.Board.Name = "Hiring"
	}
	if cfg.Board.Actor == "" {
		cfg.Board.Actor = os.Getenv("USER")
	}
	if cfg.Board.Actor == "" {
		cfg.Board.Actor = "operator"
	}
	if cfg.Board.ConcurrencyLimit <= 0 {
		cfg.Board.ConcurrencyLimit = 3
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == DriverSQLite {
		cfg.Database.DSN = filepath.Join(dir, "hirepipe.db")
	}

	if cfg.Collaborator.Mode == "" {
		cfg.Collaborator.Mode = ModeLocal
	}
	if cfg.Collaborator.Timeout == "" {
		cfg.Collaborator.Timeout = "30s"
	}
	if cfg.Collaborator.Mode == ModeHTTP && cfg.Collaborator.Token == "" {
		cfg.Collaborator.Token = loadToken(dir)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Events.ChannelPrefix == "" {
		cfg.Events.ChannelPrefix = "hirepipe:"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Reports.Dir == "" {
		cfg.Reports.Dir = filepath.Join(dir, "reports")
	}
	for i := range cfg.Stages {
		if cfg.Stages[i].Color == "" {
			cfg.Stages[i].Color = "gray"
		}
	}
}

// envOverrides maps HIREPIPE_* variables onto config fields. Zero values
// leave the file's setting in place.
type envOverrides struct {
	Actor            string `envconfig:"ACTOR"`
	ConcurrencyLimit int    `envconfig:"CONCURRENCY_LIMIT"`
	DatabaseDriver   string `envconfig:"DATABASE_DRIVER"`
	DatabaseDSN      string `envconfig:"DATABASE_DSN"`
	CollabMode       string `envconfig:"COLLABORATOR_MODE"`
	CollabBaseURL    string `envconfig:"COLLABORATOR_BASE_URL"`
	CollabToken      string `envconfig:"COLLABORATOR_TOKEN"`
	CollabTimeout    string `envconfig:"COLLABORATOR_TIMEOUT"`
	Port             int    `envconfig:"PORT"`
	RedisURL         string `envconfig:"REDIS_URL"`
	LogLevel         string `envconfig:"LOG_LEVEL"`
	ReportsDir       string `envconfig:"REPORTS_DIR"`
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("hirepipe", &env); err != nil {
		return fmt.Errorf("reading HIREPIPE_ environment: %w", err)
	}

	setString(&cfg.Board.Actor, env.Actor)
	setString(&cfg.Database.Driver, env.DatabaseDriver)
	setString(&cfg.Database.DSN, env.DatabaseDSN)
	setString(&cfg.Collaborator.Mode, env.CollabMode)
	setString(&cfg.Collaborator.BaseURL, env.CollabBaseURL)
	setString(&cfg.Collaborator.Token, env.CollabToken)
	setString(&cfg.Collaborator.Timeout, env.CollabTimeout)
	setString(&cfg.Events.RedisURL, env.RedisURL)
	setString(&cfg.Log.Level, env.LogLevel)
	setString(&cfg.Reports.Dir, env.ReportsDir)
	if env.ConcurrencyLimit != 0 {
		cfg.Board.ConcurrencyLimit = env.ConcurrencyLimit
	}
	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
