package status

import (
	"context"
	"log/slog"

	"jobhost/internal/dispatcher"
	"jobhost/internal/job"
)

// Source identifies the agent in outbound lifecycle events.
const Source = "jobhost/agent"

// EventReporter publishes transitions as CloudEvents through the async
// dispatcher. Dispatch is non-blocking; a full buffer drops the event.
type EventReporter struct {
	dispatcher  dispatcher.Dispatcher
	destination string
	signingKey  string
	filter      []string
	logger      *slog.Logger
}

// NewEventReporter creates a reporter delivering to destination. The filter
// selects event types; empty means all.
func NewEventReporter(d dispatcher.Dispatcher, destination, signingKey string, filter []string) *EventReporter {
	return &EventReporter{
		dispatcher:  d,
		destination: destination,
		signingKey:  signingKey,
		filter:      filter,
		logger:      slog.With("component", "status"),
	}
}

// Report queues the lifecycle event for the transition.
func (r *EventReporter) Report(ctx context.Context, j *job.Job, st job.Status) {
	eventType := job.EventTypeForStatus(st)
	if !job.FilteredEvents(eventType, r.filter) {
		return
	}

	event := &dispatcher.Event{
		Payload:     job.StatusEvent(j, st, Source),
		Destination: r.destination,
		SigningKey:  r.signingKey,
	}
	if err := r.dispatcher.Dispatch(event); err != nil {
		r.logger.Warn("Failed to queue lifecycle event", "job", j.Name, "type", eventType, "error", err)
	}
}
