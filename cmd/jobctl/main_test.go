package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobhost/internal/config"
	"jobhost/internal/job"
	"jobhost/internal/marker"
	"jobhost/internal/status"
)

// testConfig returns a config over temp roots with the docker backend, whose
// host probe needs nothing from the machine.
func testConfig(t *testing.T) *config.AgentConfig {
	t.Helper()
	return &config.AgentConfig{
		JobsPath: t.TempDir(),
		DataPath: t.TempDir(),
		Executor: config.ExecutorDocker,
	}
}

// deployJob creates a job directory with a shell entry file.
func deployJob(t *testing.T, cfg *config.AgentConfig, name string) {
	t.Helper()
	dir := filepath.Join(cfg.ContinuousJobsPath(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create job dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("Failed to write entry file: %v", err)
	}
}

func recordStatus(t *testing.T, cfg *config.AgentConfig, name string, st job.Status) {
	t.Helper()
	status.NewFileReporter(cfg.DataPath).Report(context.Background(), &job.Job{Name: name}, st)
}

// captureStdout runs a command and returns what it printed. Tests using it
// must not run in parallel.
func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fnErr := fn()
	_ = w.Close()
	out, readErr := io.ReadAll(r)
	_ = r.Close()
	if readErr != nil {
		t.Fatalf("Failed to read captured output: %v", readErr)
	}
	if fnErr != nil {
		t.Fatalf("Command failed: %v", fnErr)
	}
	return string(out)
}

func TestList_ShowsRecordsAndMarkers(t *testing.T) {
	cfg := testConfig(t)
	deployJob(t, cfg, "crawler")
	deployJob(t, cfg, "worker")
	recordStatus(t, cfg, "worker", job.StatusStarting)
	if err := marker.NewStore().Write(context.Background(), filepath.Join(cfg.ContinuousJobsPath(), "crawler")); err != nil {
		t.Fatalf("Failed to write marker: %v", err)
	}

	out := captureStdout(t, func() error { return list(cfg) })

	if !strings.Contains(out, "worker") || !strings.Contains(out, "starting") {
		t.Errorf("Expected worker with its recorded status, got:\n%s", out)
	}
	if !strings.Contains(out, "crawler") || !strings.Contains(out, "yes") {
		t.Errorf("Expected crawler shown disabled, got:\n%s", out)
	}
	if !strings.Contains(out, "unknown") {
		t.Errorf("Expected the unrecorded job to show unknown, got:\n%s", out)
	}
}

func TestList_FlagsUnknownStatusValue(t *testing.T) {
	cfg := testConfig(t)
	deployJob(t, cfg, "worker")

	// A record written by something other than the agent.
	dir := filepath.Join(cfg.DataPath, "continuous", "worker")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create record dir: %v", err)
	}
	record := `{"name":"worker","status":"exploded","updated_at":"2026-01-02T03:04:05Z"}`
	if err := os.WriteFile(filepath.Join(dir, "status.json"), []byte(record), 0o644); err != nil {
		t.Fatalf("Failed to write record: %v", err)
	}

	out := captureStdout(t, func() error { return list(cfg) })
	if !strings.Contains(out, "invalid") {
		t.Errorf("Expected an out-of-vocabulary status to be flagged, got:\n%s", out)
	}
}

func TestShowStatus_ResolvesEntry(t *testing.T) {
	cfg := testConfig(t)
	deployJob(t, cfg, "worker")
	recordStatus(t, cfg, "worker", job.StatusStopped)

	out := captureStdout(t, func() error { return showStatus(cfg, "worker") })
	if !strings.Contains(out, "stopped") {
		t.Errorf("Expected the recorded status, got:\n%s", out)
	}
	if !strings.Contains(out, "entry: run.sh") || !strings.Contains(out, "host: bash") {
		t.Errorf("Expected the resolved entry and host, got:\n%s", out)
	}
}

func TestShowStatus_UnresolvableEntry(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(cfg.ContinuousJobsPath(), "worker")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create job dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	out := captureStdout(t, func() error { return showStatus(cfg, "worker") })
	if !strings.Contains(out, "entry: none") {
		t.Errorf("Expected no resolvable entry, got:\n%s", out)
	}
}

func TestShowStatus_NotDeployed(t *testing.T) {
	cfg := testConfig(t)
	if err := showStatus(cfg, "ghost"); err == nil {
		t.Error("Expected an error for an undeployed job")
	}
}

func TestHostRegistry_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Executor = "mainframe"
	if _, err := hostRegistry(cfg); err == nil {
		t.Error("Expected an error for an unknown backend")
	}
}
