package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// maxConcurrency caps board.concurrency_limit.
const maxConcurrency = 32

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(cfg.Board.Name) == "" {
		add("board.name", "is required")
	}
	if cfg.Board.ConcurrencyLimit > maxConcurrency {
		add("board.concurrency_limit", "must be at most %d, got %d", maxConcurrency, cfg.Board.ConcurrencyLimit)
	}

	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		add("database.driver", "unsupported driver %q (want %s or %s)", cfg.Database.Driver, DriverSQLite, DriverPostgres)
	}
	if cfg.Database.DSN == "" {
		add("database.dsn", "is required")
	}

	switch cfg.Collaborator.Mode {
	case ModeLocal:
	case ModeHTTP:
		u, err := url.Parse(cfg.Collaborator.BaseURL)
		if cfg.Collaborator.BaseURL == "" {
			add("collaborator.base_url", "is required in http mode")
		} else if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("collaborator.base_url", "must be an http(s) URL, got %q", cfg.Collaborator.BaseURL)
		}
	default:
		add("collaborator.mode", "unknown mode %q (want %s or %s)", cfg.Collaborator.Mode, ModeLocal, ModeHTTP)
	}
	if d, err := time.ParseDuration(cfg.Collaborator.Timeout); err != nil {
		add("collaborator.timeout", "invalid duration %q", cfg.Collaborator.Timeout)
	} else if d <= 0 {
		add("collaborator.timeout", "must be positive")
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if r := cfg.Events.RedisURL; r != "" && !strings.HasPrefix(r, "redis://") && !strings.HasPrefix(r, "rediss://") {
		add("events.redis_url", "must start with redis:// or rediss://")
	}

	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		add("log.level", "unrecognized level %q", cfg.Log.Level)
	}

	seen := make(map[string]bool)
	for i, s := range cfg.Stages {
		prefix := fmt.Sprintf("stages[%d]", i)
		name := strings.TrimSpace(s.Name)
		if name == "" {
			add(prefix+".name", "is required")
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			add(prefix+".name", "duplicate stage name %q", s.Name)
		}
		seen[key] = true
		if strings.EqualFold(name, "unassigned") {
			add(prefix+".name", "%q is reserved", s.Name)
		}
	}

	return errs
}
