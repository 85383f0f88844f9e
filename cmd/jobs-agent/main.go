// jobs-agent supervises continuous jobs deployed under the jobs root.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobhost/internal/config"
	"jobhost/internal/dispatcher"
	"jobhost/internal/executor"
	dockerexec "jobhost/internal/executor/docker"
	"jobhost/internal/executor/process"
	"jobhost/internal/health"
	"jobhost/internal/host"
	"jobhost/internal/job"
	"jobhost/internal/marker"
	"jobhost/internal/observability"
	"jobhost/internal/ops"
	"jobhost/internal/status"
	"jobhost/internal/supervisor"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Agent failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg := config.LoadAgentConfig()
	dispatcherCfg := dispatcher.LoadConfigFromEnv()

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	// Create callback dispatcher
	eventDispatcher := dispatcher.NewMemory(dispatcherCfg, metrics)

	// Select the instance backend. The host probe decides which script hosts
	// are usable: a command on PATH for processes, an image for containers.
	var (
		backend executor.Executor
		probe   func(host.Host) bool
	)
	switch cfg.Executor {
	case config.ExecutorProcess:
		backend = process.NewExecutor(cfg.DataPath, cfg.KillGrace)
		probe = host.CommandProbe
	case config.ExecutorDocker:
		dockerBackend, err := dockerexec.NewExecutor(ctx, cfg.DataPath, cfg.KillGrace)
		if err != nil {
			return err
		}
		defer dockerBackend.Close()
		backend = dockerBackend
		probe = host.ImageProbe
		slog.Info("Connected to Docker daemon")
	default:
		return fmt.Errorf("unknown executor backend %q", cfg.Executor)
	}

	// Status reporters: records are always persisted, webhooks only when a
	// callback destination is configured.
	reporters := []status.Reporter{status.NewFileReporter(cfg.DataPath)}
	if cfg.CallbackURL != "" {
		reporters = append(reporters, status.NewEventReporter(
			eventDispatcher, cfg.CallbackURL, cfg.CallbackSigningKey, cfg.CallbackEvents))
		slog.Info("Lifecycle callbacks enabled", "destination", cfg.CallbackURL)
	}
	reporter := status.NewMulti(reporters...)

	// Job discovery and the supervisor manager
	registry := host.NewRegistry(host.Defaults(), probe)
	discovery := job.NewDiscovery(cfg.ContinuousJobsPath(), registry)
	manager := supervisor.NewManager(supervisor.ManagerConfig{
		Executor: backend,
		Reporter: reporter,
		Markers:  marker.NewStore(),
		Metrics:  metrics,
		Settings: config.SettingsDefaults{
			RestartInterval: cfg.RestartInterval,
			StopWaitTime:    cfg.StopWaitTime,
		},
	})

	syncJobs := func(ctx context.Context) {
		jobs, err := discovery.Continuous(ctx)
		if err != nil {
			slog.Error("Job discovery failed", "error", err)
			return
		}
		manager.Sync(ctx, jobs)
	}

	// Create health checker
	healthChecker := health.NewChecker(backend, cfg.JobsPath)

	// Create ops server (probes + metrics)
	router := ops.NewRouter(ops.RouterConfig{
		HealthChecker:  healthChecker,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	})
	opsServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to capture server errors
	serverErr := make(chan error, 1)

	go func() {
		slog.Info("Starting ops server", "port", cfg.Port)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// First reconciliation, then periodic rescans
	slog.Info("Scanning for continuous jobs", "root", cfg.ContinuousJobsPath())
	syncJobs(ctx)

	rescan := time.NewTicker(cfg.RescanInterval)
	defer rescan.Stop()

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var fatal error
loop:
	for {
		select {
		case sig := <-quit:
			slog.Info("Received shutdown signal", "signal", sig)
			break loop
		case err := <-serverErr:
			slog.Error("Ops server failed", "error", err)
			fatal = err
			break loop
		case <-rescan.C:
			syncJobs(ctx)
		}
	}

	// Phase 1: Mark the agent as unready so probes drain traffic
	healthChecker.SetShuttingDown()

	if cfg.ShutdownDrainWait > 0 {
		slog.Info("Waiting for traffic to drain", "duration", cfg.ShutdownDrainWait)
		time.Sleep(cfg.ShutdownDrainWait)
	}

	// Phase 2: Stop every supervised job. Bounded per job by its stop wait,
	// and the probes stay up while instances wind down.
	slog.Info("Stopping supervised jobs")
	manager.StopAll(ctx)

	// Phase 3: Graceful ops server shutdown
	slog.Info("Starting graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Ops server shutdown error", "error", err)
	}

	// Phase 4: Drain the callback dispatcher so final stopped events go out
	slog.Info("Draining callback dispatcher")
	dispatcherCtx, dispatcherCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dispatcherCancel()
	if err := eventDispatcher.Close(dispatcherCtx); err != nil {
		slog.Warn("Dispatcher shutdown error", "error", err)
	}

	// Log final dispatcher stats
	stats := eventDispatcher.Stats()
	slog.Info("Dispatcher stats",
		"delivered", stats.Delivered,
		"failed", stats.Failed,
		"dropped", stats.Dropped,
	)

	slog.Info("Shutdown complete")
	return fatal
}
