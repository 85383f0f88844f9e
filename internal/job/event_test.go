package job

import (
	"strings"
	"testing"

	"jobhost/internal/host"
)

func TestEventTypeForStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		want   string
	}{
		{StatusInitializing, EventTypeInitializing},
		{StatusStarting, EventTypeStarting},
		{StatusRunning, "jobhost.job.running"},
		{StatusPendingRestart, EventTypePendingRestart},
		{StatusStopped, EventTypeStopped},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			if got := EventTypeForStatus(tt.status); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFilteredEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		eventType string
		filter    []string
		want      bool
	}{
		{"empty filter allows all", EventTypeStarting, nil, true},
		{"matching filter", EventTypeStopped, []string{EventTypeStopped}, true},
		{"non-matching filter", EventTypeStarting, []string{EventTypeStopped}, false},
		{"multiple entries", EventTypePendingRestart, []string{EventTypeStopped, EventTypePendingRestart}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FilteredEvents(tt.eventType, tt.filter); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestStatusEvent(t *testing.T) {
	t.Parallel()

	j := &Job{
		Name:       "worker",
		Type:       TypeContinuous,
		RunCommand: "run.py",
		Host:       host.Host{Name: "python"},
	}

	event := StatusEvent(j, StatusStarting, "jobhost/agent")

	if event.Type != EventTypeStarting {
		t.Errorf("Expected type %s, got %s", EventTypeStarting, event.Type)
	}
	if event.Source != "jobhost/agent" {
		t.Errorf("Expected source jobhost/agent, got %s", event.Source)
	}
	if event.Subject != "worker" {
		t.Errorf("Expected subject worker, got %s", event.Subject)
	}
	if !strings.HasPrefix(event.ID, "worker-") {
		t.Errorf("Expected ID with job prefix, got %s", event.ID)
	}

	data, ok := event.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected map payload, got %T", event.Data)
	}
	if data["job"] != "worker" {
		t.Errorf("Expected job worker, got %v", data["job"])
	}
	if data["status"] != string(StatusStarting) {
		t.Errorf("Expected status %s, got %v", StatusStarting, data["status"])
	}
	if data["entry"] != "run.py" {
		t.Errorf("Expected entry run.py, got %v", data["entry"])
	}
	if data["host"] != "python" {
		t.Errorf("Expected host python, got %v", data["host"])
	}
}

func TestStatusEvent_UniqueIDs(t *testing.T) {
	t.Parallel()

	j := &Job{Name: "worker"}
	a := StatusEvent(j, StatusStarting, "jobhost/agent")
	b := StatusEvent(j, StatusStopped, "jobhost/agent")
	if a.ID == b.ID {
		t.Errorf("Expected distinct event IDs, got %s twice", a.ID)
	}
}
