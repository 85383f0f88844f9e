package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns the raw value and whether it was set to something
// non-empty. Empty and unset are treated alike everywhere.
func lookup(key string) (string, bool) {
	value := os.Getenv(key)
	return value, value != ""
}

// GetEnv returns the variable's value, or fallback when unset or empty.
func GetEnv(key, fallback string) string {
	if value, ok := lookup(key); ok {
		return value
	}
	return fallback
}

// GetIntEnv parses an integer variable. Unparseable values fall back.
func GetIntEnv(key string, fallback int) int {
	if value, ok := lookup(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// GetDurationEnv parses a duration variable in Go syntax ("90s", "2m").
// Unparseable values fall back.
func GetDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// GetListEnv returns a comma-separated variable as a slice, or nil when
// unset. Blank items are removed.
func GetListEnv(key string) []string {
	value, ok := lookup(key)
	if !ok {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// GetSecretFile reads a secret from a file path, as mounted by Docker
// secrets (/run/secrets/) or Kubernetes secret volumes. Missing files
// read as empty.
func GetSecretFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
