// Package dispatcher delivers job lifecycle events to callback URLs:
// buffered, retried with backoff, and circuit-broken per destination so
// one dead receiver cannot back up deliveries to the rest.
package dispatcher

import (
	"context"
	"errors"

	"jobhost/pkg/cloudevent"
)

// Sentinel errors returned by Dispatch.
var (
	ErrBufferFull = errors.New("dispatcher buffer full, event dropped")
	ErrClosed     = errors.New("dispatcher closed")
)

// Dispatcher queues lifecycle events for asynchronous delivery.
type Dispatcher interface {
	// Dispatch queues an event without blocking. ErrBufferFull means the
	// event was dropped; ErrClosed means the dispatcher no longer accepts.
	Dispatch(event *Event) error

	// Stats returns delivery counters accumulated since startup.
	Stats() Stats

	// Close drains queued events and stops the workers. The context
	// bounds the drain.
	Close(ctx context.Context) error
}

// MetricsRecorder receives delivery outcomes. A nil recorder disables
// recording entirely.
type MetricsRecorder interface {
	RecordDispatcherDelivered(ctx context.Context, durationSeconds float64)
	RecordDispatcherFailed(ctx context.Context)
	RecordDispatcherDropped(ctx context.Context)
	RecordDispatcherRequeued(ctx context.Context)
	RecordDispatcherQueueSize(ctx context.Context, size int64)
}

// Event is one lifecycle notification bound for a callback URL.
type Event struct {
	Payload     *cloudevent.CloudEvent
	Destination string // callback URL
	SigningKey  string // HMAC key; empty sends unsigned
	Requeues    int    // open-circuit requeues so far, managed by the dispatcher
}

// Stats are cumulative delivery counters.
type Stats struct {
	QueueDepth    int   // events waiting right now
	Queued        int64 // accepted by Dispatch
	Delivered     int64 // acknowledged by the receiver
	Failed        int64 // given up after retries
	Dropped       int64 // lost to a full buffer or the requeue cap
	Requeued      int64 // deferred because a circuit was open
	RetriesTotal  int64 // individual retry attempts
	BreakersTotal int   // destinations tracked
	BreakersOpen  int   // destinations currently refused
}
