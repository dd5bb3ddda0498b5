// Package adapter publishes job completion notices to downstream systems.
//
// The coordinator enqueues a notice for every lint.end it handles; a Notifier
// delivers them off the event loop through one Adapter.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/lintstatus/types"
)

// EventTypeJobCompleted is the event_type of every JobCompletedEvent.
const EventTypeJobCompleted = "job_completed"

// DefaultBackoff is the delay before the first retry. Each later retry
// doubles it.
const DefaultBackoff = 500 * time.Millisecond

// JobCompletedEvent is the payload published when a job ends.
type JobCompletedEvent struct {
	EventType     string   `json:"event_type"` // always "job_completed"
	SessionID     string   `json:"session_id"`
	JobID         int64    `json:"job_id"`
	FileName      string   `json:"file_name,omitempty"`
	DocumentURIs  []string `json:"document_uris"`
	LintTimeMs    int64    `json:"lint_time_ms,omitempty"`
	ClearedErrors int      `json:"cleared_errors"`
	Timestamp     string   `json:"timestamp"` // RFC 3339
}

// NewJobCompletedEvent builds the notice for a lint.end event. cleared is the
// number of resident error entries the end removed.
func NewJobCompletedEvent(sessionID string, ev types.StatusEvent, cleared int, at time.Time) *JobCompletedEvent {
	uris := make([]string, len(ev.Documents))
	for i, d := range ev.Documents {
		uris[i] = d.URI
	}
	return &JobCompletedEvent{
		EventType:     EventTypeJobCompleted,
		SessionID:     sessionID,
		JobID:         ev.ID,
		FileName:      ev.LastFileName,
		DocumentURIs:  uris,
		LintTimeMs:    ev.LastLintTime.Milliseconds(),
		ClearedErrors: cleared,
		Timestamp:     at.UTC().Format(time.RFC3339),
	}
}

// Adapter publishes job completion events to a downstream system.
type Adapter interface {
	// Publish sends a job completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *JobCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls op up to 1+retries times with exponential backoff between
// attempts, stopping early on success, on a Permanent error, or when ctx is
// done.
func Retry(ctx context.Context, retries int, backoff time.Duration, op func(context.Context) error) error {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	attempts := 1 + retries

	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}

		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff << uint(i-1)):
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return fmt.Errorf("non-retriable error: %w", perm.err)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
