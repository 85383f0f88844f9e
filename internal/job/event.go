package job

import (
	"fmt"
	"slices"
	"time"

	"jobhost/pkg/cloudevent"
)

// Event types for the job lifecycle callbacks supervisors push. Running is
// absent: it is surfaced through State() only, never reported.
const (
	EventTypeInitializing   = "jobhost.job.initializing"
	EventTypeStarting       = "jobhost.job.starting"
	EventTypePendingRestart = "jobhost.job.pending_restart"
	EventTypeStopped        = "jobhost.job.stopped"
)

// EventTypeForStatus maps a status to its lifecycle event type. Statuses
// without a pushed callback fall through to the generic form.
func EventTypeForStatus(st Status) string {
	switch st {
	case StatusInitializing:
		return EventTypeInitializing
	case StatusStarting:
		return EventTypeStarting
	case StatusPendingRestart:
		return EventTypePendingRestart
	case StatusStopped:
		return EventTypeStopped
	default:
		return fmt.Sprintf("jobhost.job.%s", st)
	}
}

// FilteredEvents returns true if the event type should be sent based on the
// filter. An empty filter allows all events.
func FilteredEvents(eventType string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	return slices.Contains(filter, eventType)
}

// StatusEvent builds the CloudEvent for a job status transition.
func StatusEvent(j *Job, st Status, source string) *cloudevent.CloudEvent {
	data := map[string]any{
		"job":    j.Name,
		"status": string(st),
		"entry":  j.RunCommand,
		"host":   j.Host.Name,
	}
	eventID := fmt.Sprintf("%s-%d", j.Name, time.Now().UnixNano())
	return cloudevent.New(EventTypeForStatus(st), source, j.Name, eventID, data)
}
