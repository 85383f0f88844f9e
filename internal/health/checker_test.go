package health

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakePinger) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func TestChecker_Liveness(t *testing.T) {
	t.Parallel()
	checker := NewChecker(nil, "")

	response := checker.Liveness(context.Background())

	if response.Status != StatusHealthy {
		t.Errorf("Expected healthy status, got %s", response.Status)
	}
}

func TestChecker_Readiness_NoExecutor(t *testing.T) {
	t.Parallel()
	checker := NewChecker(nil, t.TempDir())

	response := checker.Readiness(context.Background())

	if response.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status, got %s", response.Status)
	}

	if response.Checks == nil {
		t.Fatal("Expected checks to be present")
	}

	executorCheck, ok := response.Checks["executor"]
	if !ok {
		t.Fatal("Expected executor check to be present")
	}

	if executorCheck.Status != StatusUnhealthy {
		t.Errorf("Expected executor check to be unhealthy, got %s", executorCheck.Status)
	}
}

func TestChecker_Readiness_Healthy(t *testing.T) {
	t.Parallel()
	checker := NewChecker(&fakePinger{}, t.TempDir())

	response := checker.Readiness(context.Background())

	if response.Status != StatusHealthy {
		t.Errorf("Expected healthy status, got %s", response.Status)
	}

	for name, check := range response.Checks {
		if check.Status != StatusHealthy {
			t.Errorf("Expected %s check to be healthy, got %s", name, check.Status)
		}
	}
}

func TestChecker_Readiness_PingFails(t *testing.T) {
	t.Parallel()
	pinger := &fakePinger{err: errors.New("backend unreachable")}
	checker := NewChecker(pinger, t.TempDir())

	response := checker.Readiness(context.Background())

	if response.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status, got %s", response.Status)
	}

	executorCheck := response.Checks["executor"]
	if executorCheck.Message != "backend unreachable" {
		t.Errorf("Expected ping error message, got %q", executorCheck.Message)
	}
}

func TestChecker_Readiness_MissingJobsRoot(t *testing.T) {
	t.Parallel()
	checker := NewChecker(&fakePinger{}, "/nonexistent/jobs/root")

	response := checker.Readiness(context.Background())

	if response.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status, got %s", response.Status)
	}

	jobsRootCheck, ok := response.Checks["jobs_root"]
	if !ok {
		t.Fatal("Expected jobs_root check to be present")
	}

	if jobsRootCheck.Status != StatusUnhealthy {
		t.Errorf("Expected jobs_root check to be unhealthy, got %s", jobsRootCheck.Status)
	}
}

func TestChecker_Readiness_CachesResult(t *testing.T) {
	t.Parallel()
	pinger := &fakePinger{}
	checker := NewChecker(pinger, t.TempDir())

	first := checker.Readiness(context.Background())
	if first.Status != StatusHealthy {
		t.Fatalf("Expected healthy status, got %s", first.Status)
	}

	// The backend breaks, but the cached result is still served.
	pinger.setErr(errors.New("backend unreachable"))

	second := checker.Readiness(context.Background())
	if second.Status != StatusHealthy {
		t.Errorf("Expected cached healthy status, got %s", second.Status)
	}
}

func TestChecker_Readiness_ShuttingDown(t *testing.T) {
	t.Parallel()
	checker := NewChecker(&fakePinger{}, t.TempDir())

	if response := checker.Readiness(context.Background()); response.Status != StatusHealthy {
		t.Fatalf("Expected healthy status, got %s", response.Status)
	}

	checker.SetShuttingDown()

	response := checker.Readiness(context.Background())
	if response.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status, got %s", response.Status)
	}

	shutdownCheck, ok := response.Checks["shutdown"]
	if !ok {
		t.Fatal("Expected shutdown check to be present")
	}

	if shutdownCheck.Message != "service is shutting down" {
		t.Errorf("Expected shutdown message, got %q", shutdownCheck.Message)
	}
}

func TestResponse_IsHealthy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"healthy", StatusHealthy, true},
		{"unhealthy", StatusUnhealthy, false},
		{"degraded", StatusDegraded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			response := &Response{Status: tt.status}
			if response.IsHealthy() != tt.expected {
				t.Errorf("IsHealthy() = %v, want %v", response.IsHealthy(), tt.expected)
			}
		})
	}
}
