// Package job defines the continuous-job model, its status vocabulary,
// discovery of deployed jobs, and lifecycle events.
package job

import (
	"regexp"

	"jobhost/internal/host"
)

// Type distinguishes continuous jobs (supervised, restarted on exit) from
// triggered jobs (run on demand; not handled by this agent).
type Type string

const (
	TypeContinuous Type = "continuous"
	TypeTriggered  Type = "triggered"
)

// Status is the externally observable state of a continuous job.
type Status string

const (
	StatusInitializing   Status = "initializing"
	StatusStarting       Status = "starting"
	StatusRunning        Status = "running"
	StatusPendingRestart Status = "pending_restart"
	StatusStopped        Status = "stopped"
)

// ValidStatuses lists every status value.
var ValidStatuses = []Status{
	StatusInitializing,
	StatusStarting,
	StatusRunning,
	StatusPendingRestart,
	StatusStopped,
}

// Job is an immutable record of a deployed job, produced by discovery.
// A changed deployment yields a fresh record; the manager compares records
// with Changed to decide whether a supervisor needs a refresh.
type Job struct {
	Name           string
	Type           Type
	BinariesPath   string    // directory containing the job's deployed files
	RunCommand     string    // entry file, relative to BinariesPath
	ScriptFilePath string    // absolute path of the entry file
	Host           host.Host // script host that executes the entry file
}

// Changed reports whether the resolved entry of other differs from j.
func (j *Job) Changed(other *Job) bool {
	return j.RunCommand != other.RunCommand ||
		j.ScriptFilePath != other.ScriptFilePath ||
		j.Host.Name != other.Host.Name
}

// maxNameLength bounds job names; names become directory names, metric
// attributes, and event subjects.
const maxNameLength = 64

// namePattern allows alphanumeric, hyphens, and underscores.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidName reports whether name is usable as a job name.
func ValidName(name string) bool {
	return len(name) <= maxNameLength && namePattern.MatchString(name)
}
