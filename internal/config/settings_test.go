package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSettings(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, SettingsFile), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}
}

func TestJobSettings_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	settings := JobSettings{
		Dir: t.TempDir(),
		Defaults: SettingsDefaults{
			RestartInterval: time.Minute,
			StopWaitTime:    30 * time.Second,
		},
	}

	if got := settings.RestartInterval(); got != time.Minute {
		t.Errorf("Expected 1m restart interval, got %v", got)
	}
	if got := settings.StopWaitTime(); got != 30*time.Second {
		t.Errorf("Expected 30s stop wait, got %v", got)
	}
}

func TestJobSettings_FileOverrides(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeSettings(t, dir, `{"restart_interval": "5s", "stopping_wait_time": "10s"}`)

	settings := JobSettings{
		Dir:      dir,
		Defaults: SettingsDefaults{RestartInterval: time.Minute, StopWaitTime: time.Minute},
	}

	if got := settings.RestartInterval(); got != 5*time.Second {
		t.Errorf("Expected 5s restart interval, got %v", got)
	}
	if got := settings.StopWaitTime(); got != 10*time.Second {
		t.Errorf("Expected 10s stop wait, got %v", got)
	}
}

func TestJobSettings_PartialFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeSettings(t, dir, `{"restart_interval": "2s"}`)

	settings := JobSettings{
		Dir:      dir,
		Defaults: SettingsDefaults{RestartInterval: time.Minute, StopWaitTime: 45 * time.Second},
	}

	if got := settings.RestartInterval(); got != 2*time.Second {
		t.Errorf("Expected 2s restart interval, got %v", got)
	}
	if got := settings.StopWaitTime(); got != 45*time.Second {
		t.Errorf("Expected default stop wait for missing field, got %v", got)
	}
}

func TestJobSettings_MalformedValuesUseDefaults(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{not json`},
		{"invalid duration", `{"restart_interval": "soon"}`},
		{"negative duration", `{"restart_interval": "-5s"}`},
		{"zero duration", `{"restart_interval": "0s"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeSettings(t, dir, tt.content)

			settings := JobSettings{
				Dir:      dir,
				Defaults: SettingsDefaults{RestartInterval: time.Minute, StopWaitTime: time.Minute},
			}
			if got := settings.RestartInterval(); got != time.Minute {
				t.Errorf("Expected default for %s, got %v", tt.name, got)
			}
		})
	}
}

func TestJobSettings_LiveReload(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	settings := JobSettings{
		Dir:      dir,
		Defaults: SettingsDefaults{RestartInterval: time.Minute, StopWaitTime: time.Minute},
	}

	if got := settings.RestartInterval(); got != time.Minute {
		t.Fatalf("Expected default before file exists, got %v", got)
	}

	// A settings file deployed later takes effect on the next lookup
	writeSettings(t, dir, `{"restart_interval": "3s"}`)
	if got := settings.RestartInterval(); got != 3*time.Second {
		t.Errorf("Expected 3s after deploying settings file, got %v", got)
	}
}
