package supervisor

import (
	"context"
	"log/slog"
	"sync"

	"jobhost/internal/config"
	"jobhost/internal/executor"
	"jobhost/internal/job"
	"jobhost/internal/marker"
	"jobhost/internal/status"
)

// ManagerConfig wires the collaborators shared by every supervisor.
type ManagerConfig struct {
	Executor executor.Executor
	Reporter status.Reporter
	Markers  *marker.Store
	Metrics  MetricsRecorder // optional
	Settings config.SettingsDefaults
}

// Manager reconciles discovered jobs against running supervisors. It is
// the single control caller for every supervisor it owns, which satisfies
// their caller-serialization requirement; Sync and StopAll must not run
// concurrently with each other.
type Manager struct {
	logger   *slog.Logger
	cfg      ManagerConfig
	registry *registry
}

// NewManager creates a manager with no supervisors. Supervisors appear as
// Sync discovers their jobs.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		logger:   slog.With("component", "manager"),
		cfg:      cfg,
		registry: newRegistry(),
	}
}

// Sync reconciles the supervisor set against the discovered jobs: new
// jobs are started, removed jobs stopped and released, freshly disabled
// jobs stopped, changed jobs refreshed, and jobs whose worker ended
// outside Stop (an external disable/enable cycle, a recovered panic)
// refreshed so they run again.
func (m *Manager) Sync(ctx context.Context, jobs []*job.Job) {
	seen := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		seen[j.Name] = struct{}{}
	}

	for _, name := range m.registry.names() {
		if _, ok := seen[name]; ok {
			continue
		}
		if s, ok := m.registry.release(name); ok && s != nil {
			m.logger.Info("Job removed, stopping", "job", name)
			s.Stop(ctx)
		}
	}

	for _, j := range jobs {
		s, exists := m.registry.get(j.Name)
		switch {
		case !exists:
			m.startNew(ctx, j)
		case s == nil:
			// Reserved by a concurrent sync; that sync will commit it.
		case m.cfg.Markers.Disabled(j.BinariesPath):
			// Stop even when the worker already ended on its own after
			// seeing the marker: the job still owes a stopped report.
			if s.started.Load() {
				m.logger.Info("Job disabled, stopping", "job", j.Name)
				s.Stop(ctx)
			}
		case s.job.Changed(j):
			m.logger.Info("Job changed, refreshing", "job", j.Name)
			s.Refresh(ctx, j)
		case s.stalled():
			m.logger.Info("Worker not running, refreshing", "job", j.Name)
			s.Refresh(ctx, j)
		}
	}
}

// StopAll stops every supervisor concurrently and waits for all of them.
// Each stop is bounded by its job's stop wait, so shutdown is too.
func (m *Manager) StopAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, s := range m.registry.list() {
		if s == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop(ctx)
		}()
	}
	wg.Wait()
}

// Get returns the supervisor for a job name.
func (m *Manager) Get(name string) (*Supervisor, bool) {
	s, ok := m.registry.get(name)
	if s == nil {
		return nil, false
	}
	return s, ok
}

// startNew registers and starts a supervisor for a newly discovered job.
func (m *Manager) startNew(ctx context.Context, j *job.Job) {
	if err := m.registry.reserve(j.Name); err != nil {
		return
	}

	m.logger.Info("Job discovered", "job", j.Name, "type", j.Type, "host", j.Host.Name)
	s := New(ctx, j, Config{
		Executor: m.cfg.Executor,
		Reporter: m.cfg.Reporter,
		Settings: config.JobSettings{Dir: j.BinariesPath, Defaults: m.cfg.Settings},
		Markers:  m.cfg.Markers,
		Metrics:  m.cfg.Metrics,
	})
	m.registry.commit(j.Name, s)
	s.Start(ctx, j)
}
