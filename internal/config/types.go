package config

import "time"

// Config is the top-level configuration parsed from hirepipe YAML.
type Config struct {
	Board        Board        `yaml:"board"`
	Database     Database     `yaml:"database"`
	Collaborator Collaborator `yaml:"collaborator"`
	Server       Server       `yaml:"server"`
	Events       Events       `yaml:"events"`
	Log          Log          `yaml:"log"`
	Reports      Reports      `yaml:"reports"`
	Stages       []Stage      `yaml:"stages"`

	// Path is the file the config was read from, empty for built-in defaults.
	Path string `yaml:"-"`
}

// Board holds the operator session settings.
type Board struct {
	Name             string `yaml:"name"`
	Actor            string `yaml:"actor"`
	ConcurrencyLimit int    `yaml:"concurrency_limit"`
}

// Database selects the SQL driver behind the local collaborator.
type Database struct {
	Driver string `yaml:"driver"` // sqlite3 or pgx
	DSN    string `yaml:"dsn"`
}

// Collaborator selects where hiring actions are sent.
type Collaborator struct {
	Mode    string `yaml:"mode"` // local or http
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	Timeout string `yaml:"timeout"`
}

// TimeoutDuration parses Timeout, returning 0 when it is empty or invalid.
func (c Collaborator) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Server configures the HTTP API.
type Server struct {
	Port int `yaml:"port"`
}

// Events configures the optional Redis event channel.
type Events struct {
	RedisURL      string `yaml:"redis_url"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// Log configures the global logger.
type Log struct {
	Level string `yaml:"level"`
}

// Reports configures where bulk run reports are written.
type Reports struct {
	Dir string `yaml:"dir"`
}

// Stage is a pipeline stage inserted by `hirepipe db seed`.
type Stage struct {
	Name  string `yaml:"name"`
	Order int    `yaml:"order"`
	Color string `yaml:"color"`
}

const (
	ModeLocal = "local"
	ModeHTTP  = "http"

	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Collaborator.Token != "" {
		c.Collaborator.Token = "********"
	}
	return c
}
