package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// TokenKey is the .env entry holding the collaborator API token.
const TokenKey = "HIREPIPE_COLLABORATOR_TOKEN"

// loadToken reads the collaborator token from <dir>/.env.
func loadToken(dir string) string {
	if dir == "" {
		return ""
	}
	return readEnvFileVar(filepath.Join(dir, ".env"), TokenKey)
}

// readEnvFileVar reads the value of a specific key from a .env file.
// Supports both "KEY=VALUE" and "export KEY=VALUE" formats, and strips one
// layer of matching quotes. Returns empty string if the file or key is not found.
func readEnvFileVar(path, key string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(k) != key {
			continue
		}
		return unquote(strings.TrimSpace(v))
	}
	return ""
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
