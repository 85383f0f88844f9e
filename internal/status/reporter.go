// Package status persists and publishes continuous-job status transitions.
package status

import (
	"context"

	"jobhost/internal/job"
)

// Reporter receives job status transitions. Reporting is write-only and
// best-effort: implementations log their own failures and never block the
// caller on delivery.
type Reporter interface {
	Report(ctx context.Context, j *job.Job, st job.Status)
}

// MultiReporter fans a transition out to several reporters.
type MultiReporter struct {
	reporters []Reporter
}

// NewMulti creates a reporter that forwards to every non-nil reporter given.
func NewMulti(reporters ...Reporter) *MultiReporter {
	m := &MultiReporter{}
	for _, r := range reporters {
		if r != nil {
			m.reporters = append(m.reporters, r)
		}
	}
	return m
}

// Report forwards the transition to every underlying reporter.
func (m *MultiReporter) Report(ctx context.Context, j *job.Job, st job.Status) {
	for _, r := range m.reporters {
		r.Report(ctx, j, st)
	}
}

// Verify implementations
var _ Reporter = (*MultiReporter)(nil)
var _ Reporter = (*FileReporter)(nil)
var _ Reporter = (*EventReporter)(nil)
