package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validConfig = `
board:
  name: Engineering hiring
  actor: ops@example.com
  concurrency_limit: 5
database:
  driver: pgx
  dsn: postgres://hire:pw@localhost:5432/hire
collaborator:
  mode: http
  base_url: https://ats.example.com
  token: secret
  timeout: 10s
server:
  port: 9090
events:
  redis_url: redis://localhost:6379/0
  channel_prefix: eng
log:
  level: debug
reports:
  dir: /var/lib/hirepipe/reports
stages:
  - name: Screening
    order: 10
    color: blue
  - name: Interview
    order: 20
`

// isolate points HOME at a temp dir so defaults and .env lookups never touch
// the real one.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USER", "tester")
	return home
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestLoadValidConfig(t *testing.T) {
	isolate(t)
	path := writeTestConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Board.Name != "Engineering hiring" || cfg.Board.ConcurrencyLimit != 5 {
		t.Errorf("Board = %+v", cfg.Board)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Driver = %q, want pgx", cfg.Database.Driver)
	}
	if cfg.Collaborator.TimeoutDuration().Seconds() != 10 {
		t.Errorf("Timeout = %v, want 10s", cfg.Collaborator.TimeoutDuration())
	}
	if len(cfg.Stages) != 2 {
		t.Fatalf("len(Stages) = %d, want 2", len(cfg.Stages))
	}
	if cfg.Stages[1].Color != "gray" {
		t.Errorf("Stages[1].Color = %q, want default gray", cfg.Stages[1].Color)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Validate() returned %d errors for valid config: %v", len(errs), errs)
	}
}

func TestDefaults(t *testing.T) {
	home := isolate(t)
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	if cfg.Board.Actor != "tester" {
		t.Errorf("Actor = %q, want $USER", cfg.Board.Actor)
	}
	if cfg.Board.ConcurrencyLimit != 3 {
		t.Errorf("ConcurrencyLimit = %d, want 3", cfg.Board.ConcurrencyLimit)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Driver = %q, want sqlite3", cfg.Database.Driver)
	}
	if want := filepath.Join(home, ".hirepipe", "hirepipe.db"); cfg.Database.DSN != want {
		t.Errorf("DSN = %q, want %q", cfg.Database.DSN, want)
	}
	if cfg.Collaborator.Mode != ModeLocal || cfg.Server.Port != 8080 || cfg.Log.Level != "info" {
		t.Errorf("defaults = %+v %+v %+v", cfg.Collaborator, cfg.Server, cfg.Log)
	}
	if want := filepath.Join(home, ".hirepipe", "reports"); cfg.Reports.Dir != want {
		t.Errorf("Reports.Dir = %q, want %q", cfg.Reports.Dir, want)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("defaults should validate, got %v", errs)
	}
}

func TestNonPositiveConcurrencyMeansDefault(t *testing.T) {
	isolate(t)
	cfg, err := Load(writeTestConfig(t, "board:\n  concurrency_limit: -2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Board.ConcurrencyLimit != 3 {
		t.Errorf("ConcurrencyLimit = %d, want 3", cfg.Board.ConcurrencyLimit)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HIREPIPE_DATABASE_DSN", "file:override.db")
	t.Setenv("HIREPIPE_CONCURRENCY_LIMIT", "7")
	t.Setenv("HIREPIPE_PORT", "7070")
	t.Setenv("HIREPIPE_LOG_LEVEL", "warn")

	cfg, err := Load(writeTestConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.DSN != "file:override.db" {
		t.Errorf("DSN = %q", cfg.Database.DSN)
	}
	if cfg.Board.ConcurrencyLimit != 7 || cfg.Server.Port != 7070 || cfg.Log.Level != "warn" {
		t.Errorf("overrides not applied: %+v %+v %+v", cfg.Board, cfg.Server, cfg.Log)
	}
	// Unset variables keep file values.
	if cfg.Collaborator.BaseURL != "https://ats.example.com" {
		t.Errorf("BaseURL = %q", cfg.Collaborator.BaseURL)
	}
}

func TestEnvOverrides_BadInt(t *testing.T) {
	isolate(t)
	t.Setenv("HIREPIPE_PORT", "not-a-port")
	if _, err := Default(); err == nil {
		t.Error("expected error for non-numeric HIREPIPE_PORT")
	}
}

func TestTokenFromEnvFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".hirepipe")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	env := "# collaborator\nexport HIREPIPE_COLLABORATOR_TOKEN=\"tok-123\"\nOTHER=x\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(writeTestConfig(t, "collaborator:\n  mode: http\n  base_url: http://localhost:3000\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Collaborator.Token != "tok-123" {
		t.Errorf("Token = %q, want tok-123", cfg.Collaborator.Token)
	}
}

func TestReadEnvFileVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "A=1\nexport B = two \n#C=3\nD='quoted'\nbroken line\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cases := map[string]string{"A": "1", "B": "two", "C": "", "D": "quoted", "E": ""}
	for key, want := range cases {
		if got := readEnvFileVar(path, key); got != want {
			t.Errorf("readEnvFileVar(%s) = %q, want %q", key, got, want)
		}
	}
	if got := readEnvFileVar(filepath.Join(t.TempDir(), "missing"), "A"); got != "" {
		t.Errorf("missing file returned %q", got)
	}
}

func TestLoadDefault_SearchOrder(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".hirepipe")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("board:\n  name: Home\n"), 0644); err != nil {
		t.Fatal(err)
	}

	wd := t.TempDir()
	t.Chdir(wd)
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Board.Name != "Home" {
		t.Errorf("Name = %q, want Home from ~/.hirepipe/config.yaml", cfg.Board.Name)
	}

	if err := os.WriteFile(filepath.Join(wd, FileName), []byte("board:\n  name: Local\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Board.Name != "Local" {
		t.Errorf("Name = %q, want Local from ./hirepipe.yaml", cfg.Board.Name)
	}
}

func TestLoadDefault_NoFile(t *testing.T) {
	isolate(t)
	t.Chdir(t.TempDir())
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error: %v", err)
	}
	if cfg.Path != "" || cfg.Board.Name != "Hiring" {
		t.Errorf("expected built-in defaults, got path=%q name=%q", cfg.Path, cfg.Board.Name)
	}
}

func TestLoadErrors(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeTestConfig(t, "board: [unclosed")); err == nil || !strings.Contains(err.Error(), "parsing config YAML") {
		t.Errorf("expected YAML parse error, got %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	isolate(t)
	cases := []struct {
		name  string
		yaml  string
		field string
	}{
		{"driver", "database:\n  driver: mysql\n  dsn: x\n", "database.driver"},
		{"pgx needs dsn", "database:\n  driver: pgx\n", "database.dsn"},
		{"mode", "collaborator:\n  mode: grpc\n", "collaborator.mode"},
		{"http needs url", "collaborator:\n  mode: http\n", "collaborator.base_url"},
		{"bad url", "collaborator:\n  mode: http\n  base_url: ftp://x\n", "collaborator.base_url"},
		{"timeout", "collaborator:\n  timeout: soon\n", "collaborator.timeout"},
		{"negative timeout", "collaborator:\n  timeout: -1s\n", "collaborator.timeout"},
		{"port", "server:\n  port: 70000\n", "server.port"},
		{"redis", "events:\n  redis_url: localhost:6379\n", "events.redis_url"},
		{"level", "log:\n  level: loud\n", "log.level"},
		{"concurrency", "board:\n  concurrency_limit: 100\n", "board.concurrency_limit"},
		{"stage name", "stages:\n  - order: 1\n", "stages[0].name"},
		{"duplicate stage", "stages:\n  - name: A\n  - name: a\n", "stages[1].name"},
		{"reserved stage", "stages:\n  - name: Unassigned\n", "stages[0].name"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg, err := Load(writeTestConfig(t, c.yaml))
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			errs := Validate(cfg)
			if !hasField(errs, c.field) {
				t.Errorf("expected error on %s, got %v", c.field, errs)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{Collaborator: Collaborator{Token: "secret"}}
	if got := cfg.Redacted().Collaborator.Token; got == "secret" {
		t.Error("token should be masked")
	}
	if cfg.Collaborator.Token != "secret" {
		t.Error("Redacted must not modify the receiver")
	}
}
