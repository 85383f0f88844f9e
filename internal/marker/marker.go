// Package marker manages the on-disk disable marker for continuous jobs.
//
// The marker file is the durable disabled signal: its presence in a job's
// binaries directory keeps the supervisor from starting the job. External
// tools (jobctl, deployment hooks) write and remove the same file, so
// checks always hit the filesystem and are never cached.
package marker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"jobhost/internal/apperrors"
	"jobhost/pkg/backoff"
)

// File is the marker file name inside a job's binaries directory.
const File = "disable.job"

// defaultAttempts bounds marker writes and removals. Transient filesystem
// errors are retried with exponential backoff; exhaustion surfaces to the
// caller.
const defaultAttempts = 3

// Path returns the marker path for a job binaries directory.
func Path(binariesPath string) string {
	return filepath.Join(binariesPath, File)
}

// Store writes, removes, and checks disable markers.
type Store struct {
	attempts int
	backoff  *backoff.Config
	logger   *slog.Logger
}

// NewStore creates a marker store with the default retry policy.
func NewStore() *Store {
	return &Store{
		attempts: defaultAttempts,
		logger:   slog.With("component", "marker"),
	}
}

// Disabled reports whether the marker exists. The check is a bare stat:
// lock-free and racy against concurrent writers, which is acceptable because
// every caller re-polls it before acting.
func (s *Store) Disabled(binariesPath string) bool {
	_, err := os.Stat(Path(binariesPath))
	return err == nil
}

// Write creates the marker, retrying transient failures. The final error is
// surfaced once attempts are exhausted.
func (s *Store) Write(ctx context.Context, binariesPath string) error {
	path := Path(binariesPath)
	err := backoff.Retry(ctx, s.attempts, s.backoff, func() error {
		return os.WriteFile(path, []byte{}, 0o644)
	})
	if err != nil {
		s.logger.Error("Failed to write disable marker", "path", path, "error", err)
		return apperrors.Transient("marker.write", fmt.Errorf("failed to write %s: %w", path, err))
	}
	return nil
}

// Remove deletes the marker, retrying transient failures. A marker that does
// not exist is already removed.
func (s *Store) Remove(ctx context.Context, binariesPath string) error {
	path := Path(binariesPath)
	err := backoff.Retry(ctx, s.attempts, s.backoff, func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to remove disable marker", "path", path, "error", err)
		return apperrors.Transient("marker.remove", fmt.Errorf("failed to remove %s: %w", path, err))
	}
	return nil
}
