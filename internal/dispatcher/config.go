package dispatcher

import (
	"time"

	"jobhost/internal/config"
)

// Environment-tunable defaults.
const (
	defaultBufferSize  = 10000
	defaultWorkers     = 10
	defaultHTTPTimeout = 10 * time.Second
)

// Fixed delivery policy. None of these have needed to be configurable.
const (
	defaultMaxRetries       = 3
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30 * time.Second
	defaultMaxRequeues      = 10

	// deliveryTimeout bounds one event's attempts end to end, retries and
	// backoff included.
	deliveryTimeout = 30 * time.Second
)

// MemoryConfig sizes the in-memory dispatcher.
type MemoryConfig struct {
	BufferSize  int           // pending event capacity
	Workers     int           // concurrent delivery goroutines
	HTTPTimeout time.Duration // per-request timeout
}

// LoadConfigFromEnv reads dispatcher settings from DISPATCHER_* variables.
func LoadConfigFromEnv() MemoryConfig {
	cfg := MemoryConfig{
		BufferSize:  config.GetIntEnv("DISPATCHER_BUFFER_SIZE", defaultBufferSize),
		Workers:     config.GetIntEnv("DISPATCHER_WORKERS", defaultWorkers),
		HTTPTimeout: config.GetDurationEnv("DISPATCHER_HTTP_TIMEOUT", defaultHTTPTimeout),
	}
	return cfg.withDefaults()
}

// withDefaults replaces zero and negative values.
func (c MemoryConfig) withDefaults() MemoryConfig {
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	return c
}
