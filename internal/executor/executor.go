// Package executor defines the backend that runs continuous job instances.
package executor

import (
	"context"
	"log/slog"

	"jobhost/internal/job"
)

// Executor runs job instances. One executor serves every job; per-run state
// is keyed by job name, and a job never has more than one live run because
// the supervisor serializes its own loop.
type Executor interface {
	// Initialize prepares the resources for the next run of the job:
	// run ID, run directory, log capture. Called before every Run.
	Initialize(ctx context.Context, j *job.Job, logger *slog.Logger) error

	// Run starts the instance and blocks until it exits. A non-nil error
	// means the instance ended abnormally (non-zero exit, killed, failed
	// to start); it is never a supervisor failure.
	Run(ctx context.Context, j *job.Job, logger *slog.Logger) error

	// Kill terminates the job's current instance best-effort: graceful
	// signal first, forced after a short grace. No-op when nothing runs.
	Kill(jobName string)

	// Ping reports whether the backend can run instances.
	Ping(ctx context.Context) error
}
