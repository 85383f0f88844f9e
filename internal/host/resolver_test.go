package host

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// available builds a probe that keeps only the named hosts.
func available(names ...string) func(Host) bool {
	return func(h Host) bool {
		return slices.Contains(names, h.Name)
	}
}

func TestDefaults_PriorityOrder(t *testing.T) {
	t.Parallel()
	want := []string{"cmd", "bash", "python", "php", "node"}

	hosts := Defaults()
	if len(hosts) != len(want) {
		t.Fatalf("Expected %d hosts, got %d", len(want), len(hosts))
	}
	for i, h := range hosts {
		if h.Name != want[i] {
			t.Errorf("Expected host %d to be %q, got %q", i, want[i], h.Name)
		}
		if len(h.Extensions) == 0 {
			t.Errorf("Host %q must declare at least one extension", h.Name)
		}
	}
}

func TestDefaults_CommandOverride(t *testing.T) {
	t.Setenv("HOST_PYTHON_COMMAND", "/opt/python/bin/python3.12")

	for _, h := range Defaults() {
		if h.Name == "python" && h.Command != "/opt/python/bin/python3.12" {
			t.Errorf("Expected overridden python command, got %q", h.Command)
		}
	}
}

func TestHost_Argv(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		host  Host
		entry string
		want  []string
	}{
		{
			name:  "interpreter with fixed args",
			host:  Host{Command: "cmd", Args: []string{"/c"}},
			entry: "run.cmd",
			want:  []string{"cmd", "/c", "run.cmd"},
		},
		{
			name:  "plain interpreter",
			host:  Host{Command: "bash"},
			entry: "run.sh",
			want:  []string{"bash", "run.sh"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.host.Argv(tt.entry)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Argv(%q) = %v, want %v", tt.entry, got, tt.want)
			}
		})
	}
}

func TestNewRegistry_ProbeFiltersHosts(t *testing.T) {
	t.Parallel()
	r := NewRegistry(Defaults(), available("bash", "node"))

	hosts := r.Hosts()
	if len(hosts) != 2 {
		t.Fatalf("Expected 2 hosts, got %d", len(hosts))
	}
	if hosts[0].Name != "bash" || hosts[1].Name != "node" {
		t.Errorf("Expected priority order preserved, got %v", hosts)
	}
}

func TestNewRegistry_NilProbeKeepsAll(t *testing.T) {
	t.Parallel()
	r := NewRegistry(Defaults(), nil)

	if len(r.Hosts()) != len(Defaults()) {
		t.Errorf("Expected all hosts kept, got %d", len(r.Hosts()))
	}
}

func TestResolve_RunFileWins(t *testing.T) {
	t.Parallel()
	r := NewRegistry(Defaults(), available("bash"))

	match, ok := r.Resolve([]string{"foo.py", "run.sh"})
	if !ok {
		t.Fatal("Expected a match")
	}
	if match.Host.Name != "bash" || match.File != "run.sh" {
		t.Errorf("Expected (bash, run.sh), got (%s, %s)", match.Host.Name, match.File)
	}
}

func TestResolve_FirstMatchWhenNoRunFile(t *testing.T) {
	t.Parallel()
	r := NewRegistry(Defaults(), available("python"))

	match, ok := r.Resolve([]string{"a.py", "b.py"})
	if !ok {
		t.Fatal("Expected a match")
	}
	if match.Host.Name != "python" || match.File != "a.py" {
		t.Errorf("Expected (python, a.py), got (%s, %s)", match.Host.Name, match.File)
	}
}

func TestResolve_NoRunnableEntry(t *testing.T) {
	t.Parallel()
	r := NewRegistry(Defaults(), nil)

	if _, ok := r.Resolve([]string{"readme.txt"}); ok {
		t.Error("Expected no match for unsupported files")
	}
	if _, ok := r.Resolve(nil); ok {
		t.Error("Expected no match for an empty directory")
	}
}

// Pins the fixed host order: with both candidates named run.*, the shell
// host outranks PHP regardless of file-name ordering.
func TestResolve_HostPriorityPinned(t *testing.T) {
	t.Parallel()
	r := NewRegistry(Defaults(), available("bash", "php"))

	for _, files := range [][]string{
		{"run.php", "run.sh"},
		{"run.sh", "run.php"},
	} {
		match, ok := r.Resolve(files)
		if !ok {
			t.Fatalf("Expected a match for %v", files)
		}
		if match.Host.Name != "bash" || match.File != "run.sh" {
			t.Errorf("Resolve(%v) = (%s, %s), want (bash, run.sh)", files, match.Host.Name, match.File)
		}
	}
}

// A run.* match in a later-priority host still beats an earlier secondary
// candidate: the secondary is only a fallback.
func TestResolve_LaterRunBeatsEarlierSecondary(t *testing.T) {
	t.Parallel()
	r := NewRegistry(Defaults(), available("bash", "python"))

	match, ok := r.Resolve([]string{"helper.sh", "run.py"})
	if !ok {
		t.Fatal("Expected a match")
	}
	if match.Host.Name != "python" || match.File != "run.py" {
		t.Errorf("Expected (python, run.py), got (%s, %s)", match.Host.Name, match.File)
	}
}

func TestResolve_CaseInsensitive(t *testing.T) {
	t.Parallel()
	r := NewRegistry(Defaults(), available("bash", "python"))

	match, ok := r.Resolve([]string{"RUN.SH"})
	if !ok || match.File != "RUN.SH" || match.Host.Name != "bash" {
		t.Errorf("Expected (bash, RUN.SH), got (%v, %v) ok=%v", match.Host.Name, match.File, ok)
	}

	match, ok = r.Resolve([]string{"Worker.PY"})
	if !ok || match.Host.Name != "python" {
		t.Errorf("Expected python host for Worker.PY, got %v ok=%v", match.Host.Name, ok)
	}
}

func TestResolve_UnavailableHostSkipped(t *testing.T) {
	t.Parallel()
	r := NewRegistry(Defaults(), available("bash"))

	if _, ok := r.Resolve([]string{"run.py"}); ok {
		t.Error("Expected no match when the only matching host is unavailable")
	}
}

func TestCommandProbe(t *testing.T) {
	t.Parallel()

	if CommandProbe(Host{Command: "jobhost-test-missing-interpreter"}) {
		t.Error("Expected probe to fail for a missing interpreter")
	}

	// A path with a separator is checked directly for executability
	path := filepath.Join(t.TempDir(), "fake-interp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("Failed to write fake interpreter: %v", err)
	}
	if !CommandProbe(Host{Command: path}) {
		t.Error("Expected probe to succeed for an executable path")
	}
}

func TestImageProbe(t *testing.T) {
	t.Parallel()

	if !ImageProbe(Host{Image: "python:3-alpine"}) {
		t.Error("Expected probe to succeed when an image is configured")
	}
	if ImageProbe(Host{}) {
		t.Error("Expected probe to fail without an image")
	}
}
