package ipc

import (
	"context"
	"errors"
	"sync"

	"github.com/pithecene-io/lintstatus/types"
)

// recordingSink records notifications in arrival order.
type recordingSink struct {
	mu     sync.Mutex
	events []types.StatusEvent
	opens  []types.OpenDocumentRequest
	order  []string
	err    error
}

func (s *recordingSink) Status(_ context.Context, ev types.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	s.order = append(s.order, "status")
	return nil
}

func (s *recordingSink) OpenDocument(_ context.Context, req types.OpenDocumentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.opens = append(s.opens, req)
	s.order = append(s.order, "open")
	return nil
}

func (s *recordingSink) snapshot() ([]types.StatusEvent, []types.OpenDocumentRequest, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.StatusEvent(nil), s.events...),
		append([]types.OpenDocumentRequest(nil), s.opens...),
		append([]string(nil), s.order...)
}

var errSinkClosed = errors.New("sink closed")

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
