// Package supervisor owns the lifecycle of continuous jobs: the per-job
// state machine that keeps one instance running until the job is stopped
// or disabled, and the manager that reconciles supervisors against the
// set of deployed jobs.
//
// Each supervisor runs at most one worker goroutine. A single atomic
// started flag is the only mutual exclusion between Start and Stop:
// concurrent Start calls collapse to one worker, while Stop racing
// Refresh has no defined order and must be serialized by the caller.
// The manager is that single control caller.
package supervisor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"jobhost/internal/executor"
	"jobhost/internal/job"
	"jobhost/internal/marker"
	"jobhost/internal/status"
)

// defaultStopWait bounds Stop when settings provide no value.
const defaultStopWait = time.Minute

// Settings supplies per-job tunables. Values are read once per decision,
// never cached, so live edits apply between restarts.
type Settings interface {
	RestartInterval() time.Duration
	StopWaitTime() time.Duration
}

// MetricsRecorder records supervisor lifecycle metrics.
type MetricsRecorder interface {
	RecordJobStarted(ctx context.Context, jobName string)
	RecordJobRestarted(ctx context.Context, jobName string)
	RecordJobsRunning(ctx context.Context, jobName string, delta int64)
	RecordInstanceDuration(ctx context.Context, jobName string, seconds float64, outcome string)
	RecordStopDuration(ctx context.Context, jobName string, seconds float64)
	RecordStopForced(ctx context.Context, jobName string)
}

// Config wires a supervisor's collaborators.
type Config struct {
	Executor executor.Executor
	Reporter status.Reporter
	Settings Settings
	Markers  *marker.Store
	Metrics  MetricsRecorder // optional
}

// Supervisor drives one continuous job: start, stop, restart after exit,
// disable, enable. It lives for the whole agent process; Stop releases the
// worker, not the supervisor.
type Supervisor struct {
	logger   *slog.Logger
	executor executor.Executor
	reporter status.Reporter
	settings Settings
	markers  *marker.Store
	metrics  MetricsRecorder

	// started is the sole mutual exclusion: Start swaps it true, Stop
	// swaps it false, and the worker loop polls it.
	started atomic.Bool
	state   atomic.Value // job.Status

	// The fields below are touched only by the control caller.
	job       *job.Job
	done      chan struct{}
	runCancel context.CancelFunc
}

// New creates the supervisor for one job and reports it as initializing.
func New(ctx context.Context, j *job.Job, cfg Config) *Supervisor {
	s := &Supervisor{
		logger:   slog.With("component", "supervisor", "job", j.Name),
		executor: cfg.Executor,
		reporter: cfg.Reporter,
		settings: cfg.Settings,
		markers:  cfg.Markers,
		metrics:  cfg.Metrics,
		job:      j,
	}
	s.report(ctx, j, job.StatusInitializing)
	return s
}

// State returns the most recent lifecycle status.
func (s *Supervisor) State() job.Status {
	st, _ := s.state.Load().(job.Status)
	return st
}

// Start launches the worker loop. It is a no-op when the job is disabled
// or a worker is already active, and returns without waiting for the
// instance to launch. The disable marker is read from disk on every call
// so disables by external tools are honored without any notification.
func (s *Supervisor) Start(ctx context.Context, j *job.Job) {
	if s.markers.Disabled(j.BinariesPath) {
		s.logger.Info("Job is disabled, not starting")
		return
	}
	if s.started.Swap(true) {
		return
	}
	s.job = j

	s.report(ctx, j, job.StatusStarting)
	if s.metrics != nil {
		s.metrics.RecordJobStarted(ctx, j.Name)
	}

	// The worker outlives this call; only Stop cancels it.
	runCtx, cancel := context.WithCancel(context.Background())
	s.runCancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("Starting job", "host", j.Host.Name, "entry", j.RunCommand)
	go s.supervise(runCtx, j, s.done)
}

// Stop ends the worker loop and the current instance. It blocks until the
// worker exits or the stop wait elapses; on timeout the join is abandoned
// and the instance is killed once more, leaving the worker goroutine to
// drain on its own. The canceled worker context ends the abandoned loop as
// soon as its stuck instance returns. Stop never blocks longer than the
// stop wait.
func (s *Supervisor) Stop(ctx context.Context) {
	if !s.started.Swap(false) {
		return
	}

	s.logger.Info("Stopping job")
	s.executor.Kill(s.job.Name)
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}

	if s.done != nil {
		stopWait := s.settings.StopWaitTime()
		if stopWait <= 0 {
			stopWait = defaultStopWait
		}

		start := time.Now()
		select {
		case <-s.done:
		case <-time.After(stopWait):
			s.logger.Warn("Worker did not exit within stop wait, abandoning it", "stopWait", stopWait)
			if s.metrics != nil {
				s.metrics.RecordStopForced(ctx, s.job.Name)
			}
			s.executor.Kill(s.job.Name)
		}
		if s.metrics != nil {
			s.metrics.RecordStopDuration(ctx, s.job.Name, time.Since(start).Seconds())
		}
		s.done = nil
	}

	s.report(ctx, s.job, job.StatusStopped)
}

// Refresh restarts the job with a new record, typically after its resolved
// entry point changed. Stop and Start remain two steps, not one atomic
// operation.
func (s *Supervisor) Refresh(ctx context.Context, j *job.Job) {
	s.Stop(ctx)
	s.Start(ctx, j)
}

// Disable persists the disable marker, then stops the job. A marker write
// that still fails after retries is returned without stopping.
func (s *Supervisor) Disable(ctx context.Context) error {
	if err := s.markers.Write(ctx, s.job.BinariesPath); err != nil {
		return err
	}
	s.Stop(ctx)
	return nil
}

// Enable removes the disable marker, then starts the job.
func (s *Supervisor) Enable(ctx context.Context, j *job.Job) error {
	if err := s.markers.Remove(ctx, j.BinariesPath); err != nil {
		return err
	}
	s.Start(ctx, j)
	return nil
}

// stalled reports whether no worker loop is alive: Start never took (the
// job was discovered disabled), Stop released the worker, or the loop
// ended on its own after an external disable or a recovered panic. A
// stalled supervisor needs Refresh to run again.
func (s *Supervisor) stalled() bool {
	if s.done == nil {
		return true
	}
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// supervise is the worker loop: run an instance to exit, and while the job
// is neither stopped nor disabled, wait out the restart interval and run
// it again. The context belongs to this worker alone and only its Stop
// cancels it; a canceled context ends the loop for good, even when a later
// Start has armed the started flag again. A panic escaping the loop body
// ends the worker, not the process; the job is left not running until the
// next reconcile.
func (s *Supervisor) supervise(ctx context.Context, j *job.Job, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Supervision loop panicked", "panic", r)
		}
	}()

	for ctx.Err() == nil && s.started.Load() && !s.markers.Disabled(j.BinariesPath) {
		s.runOnce(ctx, j)

		// Re-check every exit signal before restarting: a crash-looping job
		// that gets stopped or disabled must not spin, and a worker whose
		// context was canceled by a timed-out Stop must not re-enter once a
		// later Start rearms the flag.
		if ctx.Err() != nil || !s.started.Load() || s.markers.Disabled(j.BinariesPath) {
			break
		}

		s.report(ctx, j, job.StatusPendingRestart)
		if s.metrics != nil {
			s.metrics.RecordJobRestarted(ctx, j.Name)
		}

		interval := s.settings.RestartInterval()
		s.logger.Info("Instance ended, restarting", "interval", interval)
		select {
		case <-ctx.Done():
		case <-time.After(interval):
		}
	}

	s.logger.Debug("Supervision loop ended")
}

// runOnce prepares and runs a single instance to exit. Executor failures
// are logged and treated as the instance ending, never as supervisor
// failures.
func (s *Supervisor) runOnce(ctx context.Context, j *job.Job) {
	if err := s.executor.Initialize(ctx, j, s.logger); err != nil {
		s.logger.Error("Failed to initialize instance", "error", err)
		return
	}

	s.setState(job.StatusRunning)
	if s.metrics != nil {
		s.metrics.RecordJobsRunning(ctx, j.Name, 1)
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordJobsRunning(ctx, j.Name, -1)
		}
	}()

	start := time.Now()
	outcome := "ok"
	if err := s.executor.Run(ctx, j, s.logger); err != nil {
		s.logger.Warn("Instance ended", "error", err)
		outcome = "error"
	}
	if s.metrics != nil {
		s.metrics.RecordInstanceDuration(ctx, j.Name, time.Since(start).Seconds(), outcome)
	}
}

// report pushes a status transition and records it for State(). Reporter
// panics are recovered so a broken reporter cannot end the worker loop.
func (s *Supervisor) report(ctx context.Context, j *job.Job, st job.Status) {
	s.setState(st)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Status reporter panicked", "status", st, "panic", r)
		}
	}()
	s.reporter.Report(ctx, j, st)
}

func (s *Supervisor) setState(st job.Status) {
	s.state.Store(st)
}
