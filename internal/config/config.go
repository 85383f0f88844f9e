// Package config provides configuration loading from environment variables
// and the per-job settings view.
package config

import (
	"path/filepath"
	"time"
)

// Executor backend names.
const (
	ExecutorProcess = "process"
	ExecutorDocker  = "docker"
)

// AgentConfig holds configuration for the jobs agent.
type AgentConfig struct {
	JobsPath string // root of deployed job directories
	DataPath string // root for status records and run logs
	Port     string // ops server: /livez, /readyz, /metrics

	Executor string // instance backend: "process" or "docker"

	RestartInterval   time.Duration // default delay between instance runs
	StopWaitTime      time.Duration // default grace before a stop abandons its worker
	KillGrace         time.Duration // TERM to KILL escalation window (process backend)
	RescanInterval    time.Duration // job discovery re-sync period
	ShutdownDrainWait time.Duration // time for the load balancer to drain (0 to skip)

	CallbackURL        string   // lifecycle event webhook destination (empty = disabled)
	CallbackSigningKey string   // HMAC key for webhook signatures
	CallbackEvents     []string // event types to deliver (empty = all)
}

// LoadAgentConfig loads agent configuration from environment variables.
func LoadAgentConfig() *AgentConfig {
	return &AgentConfig{
		JobsPath:           GetEnv("JOBS_PATH", "/var/jobhost/jobs"),
		DataPath:           GetEnv("DATA_PATH", "/var/jobhost/data"),
		Port:               GetEnv("PORT", "8080"),
		Executor:           GetEnv("EXECUTOR", ExecutorProcess),
		RestartInterval:    GetDurationEnv("RESTART_INTERVAL", time.Minute),
		StopWaitTime:       GetDurationEnv("STOP_WAIT_TIME", time.Minute),
		KillGrace:          GetDurationEnv("KILL_GRACE", 5*time.Second),
		RescanInterval:     GetDurationEnv("RESCAN_INTERVAL", 30*time.Second),
		ShutdownDrainWait:  GetDurationEnv("SHUTDOWN_DRAIN_WAIT", 5*time.Second),
		CallbackURL:        GetEnv("CALLBACK_URL", ""),
		CallbackSigningKey: GetSecretFile(GetEnv("CALLBACK_SIGNING_KEY_FILE", "")),
		CallbackEvents:     GetListEnv("CALLBACK_EVENTS"),
	}
}

// ContinuousJobsPath returns the directory scanned for continuous jobs.
func (c *AgentConfig) ContinuousJobsPath() string {
	return filepath.Join(c.JobsPath, "continuous")
}
