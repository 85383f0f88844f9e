package job

import (
	"strings"
	"testing"

	"jobhost/internal/host"
)

func TestValidName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "worker", true},
		{"with hyphen", "queue-worker", true},
		{"with underscore", "queue_worker", true},
		{"with digits", "worker2", true},
		{"leading digit", "2worker", true},
		{"single char", "w", true},
		{"max length", strings.Repeat("a", 64), true},
		{"too long", strings.Repeat("a", 65), false},
		{"empty", "", false},
		{"leading hyphen", "-worker", false},
		{"leading underscore", "_worker", false},
		{"spaces", "my worker", false},
		{"dot", "worker.v2", false},
		{"slash", "a/b", false},
		{"traversal", "..", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidName(tt.input); got != tt.want {
				t.Errorf("Expected ValidName(%q) = %v, got %v", tt.input, tt.want, got)
			}
		})
	}
}

func TestJob_Changed(t *testing.T) {
	t.Parallel()

	base := &Job{
		Name:           "worker",
		Type:           TypeContinuous,
		BinariesPath:   "/jobs/continuous/worker",
		RunCommand:     "run.py",
		ScriptFilePath: "/jobs/continuous/worker/run.py",
		Host:           host.Host{Name: "python"},
	}

	tests := []struct {
		name  string
		other *Job
		want  bool
	}{
		{
			name: "same entry",
			other: &Job{
				RunCommand:     "run.py",
				ScriptFilePath: "/jobs/continuous/worker/run.py",
				Host:           host.Host{Name: "python"},
			},
			want: false,
		},
		{
			name: "different entry file",
			other: &Job{
				RunCommand:     "run.sh",
				ScriptFilePath: "/jobs/continuous/worker/run.sh",
				Host:           host.Host{Name: "bash"},
			},
			want: true,
		},
		{
			name: "different host for same file",
			other: &Job{
				RunCommand:     "run.py",
				ScriptFilePath: "/jobs/continuous/worker/run.py",
				Host:           host.Host{Name: "cmd"},
			},
			want: true,
		},
		{
			name: "different script path",
			other: &Job{
				RunCommand:     "run.py",
				ScriptFilePath: "/other/worker/run.py",
				Host:           host.Host{Name: "python"},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := base.Changed(tt.other); got != tt.want {
				t.Errorf("Expected Changed = %v, got %v", tt.want, got)
			}
		})
	}
}

func TestValidStatuses(t *testing.T) {
	t.Parallel()

	if len(ValidStatuses) != 5 {
		t.Fatalf("Expected 5 statuses, got %d", len(ValidStatuses))
	}

	seen := make(map[Status]bool)
	for _, st := range ValidStatuses {
		if st == "" {
			t.Error("Expected non-empty status value")
		}
		if seen[st] {
			t.Errorf("Expected unique status values, got duplicate %q", st)
		}
		seen[st] = true
	}
}
