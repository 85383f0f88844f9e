// Package host models the script hosts able to execute a job's entry file
// and resolves which (host, entry file) pair runs a job directory.
package host

import (
	"os/exec"

	"jobhost/internal/config"
)

// Host is an interpreter/runtime identified by the entry-file extensions it
// recognizes. Extensions are matched case-insensitively in declaration order.
type Host struct {
	Name       string   // stable identifier, e.g. "bash"
	Command    string   // interpreter executable (process backend)
	Args       []string // fixed arguments placed before the entry file
	Extensions []string // recognized entry-file extensions, in priority order
	Image      string   // container image (docker backend); empty = host unavailable there
}

// Argv returns the argv that executes an entry file with this host.
func (h Host) Argv(entry string) []string {
	argv := make([]string, 0, len(h.Args)+2)
	argv = append(argv, h.Command)
	argv = append(argv, h.Args...)
	return append(argv, entry)
}

// Defaults returns the fixed, priority-ordered host set: the native shell
// host first, then POSIX shell, Python, PHP, Node. Interpreter commands and
// container images are overridable through the environment.
func Defaults() []Host {
	return []Host{
		{
			Name:       "cmd",
			Command:    config.GetEnv("HOST_CMD_COMMAND", "cmd"),
			Args:       []string{"/c"},
			Extensions: []string{".cmd", ".bat", ".exe"},
		},
		{
			Name:       "bash",
			Command:    config.GetEnv("HOST_BASH_COMMAND", "bash"),
			Extensions: []string{".sh"},
			Image:      config.GetEnv("HOST_BASH_IMAGE", "bash:5"),
		},
		{
			Name:       "python",
			Command:    config.GetEnv("HOST_PYTHON_COMMAND", "python3"),
			Extensions: []string{".py"},
			Image:      config.GetEnv("HOST_PYTHON_IMAGE", "python:3-alpine"),
		},
		{
			Name:       "php",
			Command:    config.GetEnv("HOST_PHP_COMMAND", "php"),
			Extensions: []string{".php"},
			Image:      config.GetEnv("HOST_PHP_IMAGE", "php:8-cli-alpine"),
		},
		{
			Name:       "node",
			Command:    config.GetEnv("HOST_NODE_COMMAND", "node"),
			Extensions: []string{".js"},
			Image:      config.GetEnv("HOST_NODE_IMAGE", "node:22-alpine"),
		},
	}
}

// CommandProbe reports whether the host's interpreter resolves on this
// machine. Availability probe for the process executor backend.
func CommandProbe(h Host) bool {
	_, err := exec.LookPath(h.Command)
	return err == nil
}

// ImageProbe reports whether the host has a container image configured.
// Availability probe for the docker executor backend.
func ImageProbe(h Host) bool {
	return h.Image != ""
}
