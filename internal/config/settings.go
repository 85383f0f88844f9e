package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// SettingsFile is the per-job settings file inside a job's binaries directory.
const SettingsFile = "settings.job"

// SettingsDefaults are the agent-wide fallbacks for per-job settings.
type SettingsDefaults struct {
	RestartInterval time.Duration
	StopWaitTime    time.Duration
}

// JobSettings resolves a job's settings against agent-wide defaults.
// Every lookup re-reads the settings file, so edits to a deployed
// settings.job apply on the next restart decision without an agent restart.
type JobSettings struct {
	Dir      string // job binaries directory
	Defaults SettingsDefaults
}

// settingsFile is the on-disk shape. Values are Go duration strings.
type settingsFile struct {
	RestartInterval  string `json:"restart_interval"`
	StoppingWaitTime string `json:"stopping_wait_time"`
}

// RestartInterval returns the delay before restarting an exited instance.
func (s JobSettings) RestartInterval() time.Duration {
	return s.lookup(func(f settingsFile) string { return f.RestartInterval }, s.Defaults.RestartInterval)
}

// StopWaitTime returns how long a stop waits for the worker before
// abandoning it.
func (s JobSettings) StopWaitTime() time.Duration {
	return s.lookup(func(f settingsFile) string { return f.StoppingWaitTime }, s.Defaults.StopWaitTime)
}

// lookup reads the settings file and parses one field, falling back to the
// default on a missing file, malformed JSON, a missing field, or a
// non-positive duration.
func (s JobSettings) lookup(field func(settingsFile) string, defaultValue time.Duration) time.Duration {
	data, err := os.ReadFile(filepath.Join(s.Dir, SettingsFile))
	if err != nil {
		return defaultValue
	}
	var f settingsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return defaultValue
	}
	value := field(f)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
