// Package process runs job instances as local OS processes.
//
// Each run gets a directory under <dataRoot>/runs/<job>/<runID>/ holding
// stdout.log, stderr.log, and a run.json record. The child runs in its own
// process group so Kill reaches the whole tree.
package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobhost/internal/executor"
	"jobhost/internal/job"
)

const (
	stdoutLog  = "stdout.log"
	stderrLog  = "stderr.log"
	recordFile = "run.json"
)

const defaultKillGrace = 5 * time.Second

// Record describes one run, persisted as run.json in the run directory.
type Record struct {
	JobName    string     `json:"job_name"`
	RunID      string     `json:"run_id"`
	PID        int        `json:"pid"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`
}

// run tracks one live instance.
type run struct {
	id     string
	dir    string
	stdout *os.File
	stderr *os.File
	cmd    *exec.Cmd
	done   chan struct{} // closed when Wait returns
}

func (r *run) closeFiles() {
	_ = r.stdout.Close()
	_ = r.stderr.Close()
}

// Executor runs instances with the job's host interpreter.
type Executor struct {
	dataRoot  string
	killGrace time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	runs map[string]*run
}

// NewExecutor creates a process executor writing run artifacts under dataRoot.
func NewExecutor(dataRoot string, killGrace time.Duration) *Executor {
	if killGrace <= 0 {
		killGrace = defaultKillGrace
	}
	return &Executor{
		dataRoot:  dataRoot,
		killGrace: killGrace,
		logger:    slog.With("component", "executor", "backend", "process"),
		runs:      make(map[string]*run),
	}
}

// RunDir returns the artifact directory for one run of a job.
func (e *Executor) RunDir(jobName, runID string) string {
	return filepath.Join(e.dataRoot, "runs", jobName, runID)
}

// Initialize creates the run directory and log files for the next instance.
func (e *Executor) Initialize(ctx context.Context, j *job.Job, logger *slog.Logger) error {
	runID := uuid.New().String()
	dir := e.RunDir(j.Name, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	stdout, err := os.Create(filepath.Join(dir, stdoutLog))
	if err != nil {
		return fmt.Errorf("failed to create stdout log: %w", err)
	}
	stderr, err := os.Create(filepath.Join(dir, stderrLog))
	if err != nil {
		_ = stdout.Close()
		return fmt.Errorf("failed to create stderr log: %w", err)
	}

	e.mu.Lock()
	if prev := e.runs[j.Name]; prev != nil && prev.cmd == nil {
		prev.closeFiles()
	}
	e.runs[j.Name] = &run{
		id:     runID,
		dir:    dir,
		stdout: stdout,
		stderr: stderr,
		done:   make(chan struct{}),
	}
	e.mu.Unlock()

	logger.Debug("Run prepared", "runId", runID, "dir", dir)
	return nil
}

// Run starts the instance and blocks until it exits.
func (e *Executor) Run(ctx context.Context, j *job.Job, logger *slog.Logger) error {
	e.mu.Lock()
	r := e.runs[j.Name]
	e.mu.Unlock()
	if r == nil {
		return fmt.Errorf("no initialized run for job %s", j.Name)
	}

	argv := j.Host.Argv(j.RunCommand)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = j.BinariesPath
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.Env = append(os.Environ(),
		"JOBHOST_JOB_NAME="+j.Name,
		"JOBHOST_RUN_ID="+r.id,
		"JOBHOST_DATA_PATH="+r.dir,
	)
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		e.clear(j.Name, r)
		return fmt.Errorf("failed to start instance: %w", err)
	}

	e.mu.Lock()
	r.cmd = cmd
	e.mu.Unlock()

	record := &Record{
		JobName:   j.Name,
		RunID:     r.id,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now().UTC(),
	}
	e.writeRecord(r.dir, record, logger)

	logger.Info("Instance started", "runId", r.id, "pid", cmd.Process.Pid)

	err := cmd.Wait()
	close(r.done)
	e.clear(j.Name, r)

	finished := time.Now().UTC()
	record.FinishedAt = &finished

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			record.ExitCode = &code
			e.writeRecord(r.dir, record, logger)
			logger.Info("Instance exited", "runId", r.id, "exitCode", code)
			return fmt.Errorf("instance exited with code %d", code)
		}
		e.writeRecord(r.dir, record, logger)
		return fmt.Errorf("instance ended: %w", err)
	}

	code := 0
	record.ExitCode = &code
	e.writeRecord(r.dir, record, logger)
	logger.Info("Instance exited", "runId", r.id, "exitCode", 0)
	return nil
}

// Kill terminates the job's current instance: SIGTERM to the process group,
// SIGKILL once the kill grace expires. Already-exited instances are not
// errors.
func (e *Executor) Kill(jobName string) {
	e.mu.Lock()
	r := e.runs[jobName]
	var pid int
	if r != nil && r.cmd != nil && r.cmd.Process != nil {
		pid = r.cmd.Process.Pid
	}
	e.mu.Unlock()
	if pid == 0 {
		return
	}

	e.logger.Info("Terminating instance", "job", jobName, "pid", pid)
	if err := terminateGroup(pid); err != nil {
		if !processGone(err) {
			e.logger.Warn("Failed to signal instance", "job", jobName, "error", err)
		}
		return
	}

	select {
	case <-r.done:
	case <-time.After(e.killGrace):
		e.logger.Warn("Instance ignored SIGTERM, sending SIGKILL", "job", jobName, "pid", pid)
		if err := killGroup(pid); err != nil && !processGone(err) {
			e.logger.Warn("Failed to kill instance", "job", jobName, "error", err)
		}
	}
}

// Ping verifies the runs root is usable.
func (e *Executor) Ping(ctx context.Context) error {
	return os.MkdirAll(filepath.Join(e.dataRoot, "runs"), 0o755)
}

// clear closes the run's log files and drops it from the live map.
func (e *Executor) clear(name string, r *run) {
	r.closeFiles()
	e.mu.Lock()
	if e.runs[name] == r {
		delete(e.runs, name)
	}
	e.mu.Unlock()
}

// writeRecord persists the run record. Losing a record never fails the run.
func (e *Executor) writeRecord(dir string, record *Record, logger *slog.Logger) {
	b, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		logger.Warn("Failed to marshal run record", "error", err)
		return
	}
	b = append(b, '\n')
	if err := os.WriteFile(filepath.Join(dir, recordFile), b, 0o644); err != nil {
		logger.Warn("Failed to write run record", "error", err)
	}
}

// Verify Executor implements executor.Executor
var _ executor.Executor = (*Executor)(nil)
