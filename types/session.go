package types

import (
	"errors"

	"github.com/google/uuid"
)

// Session identifies one coordinator process. It stamps log entries,
// journal partitions, and completion notices.
type Session struct {
	// ID is unique per process start.
	ID string
	// Workspace is the root the worker lints, informational.
	Workspace string
}

// NewSession returns a session with a fresh random ID.
func NewSession(workspace string) Session {
	return Session{ID: uuid.NewString(), Workspace: workspace}
}

// Validate checks that the session has an ID.
func (s Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id must be non-empty")
	}
	return nil
}
