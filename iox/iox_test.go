package iox

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type spyCloser struct {
	closed atomic.Bool
	err    error
}

func (s *spyCloser) Close() error { s.closed.Store(true); return s.err }

func TestDiscardClose(t *testing.T) {
	s := &spyCloser{err: errors.New("ignored")}
	DiscardClose(s)
	if !s.closed.Load() {
		t.Fatal("Close was not called")
	}
}

func TestCloseFunc(t *testing.T) {
	s := &spyCloser{}
	fn := CloseFunc(s)
	if s.closed.Load() {
		t.Fatal("Close called before invoking returned func")
	}
	fn()
	if !s.closed.Load() {
		t.Fatal("Close was not called")
	}
}

func TestCloseOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	s := &spyCloser{}
	CloseOnCancel(ctx, s)
	cancel()

	deadline := time.Now().Add(time.Second)
	for !s.closed.Load() {
		if time.Now().After(deadline) {
			t.Fatal("Close was not called after cancel")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCloseOnCancel_Stop(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	s := &spyCloser{}
	stop := CloseOnCancel(ctx, s)
	if !stop() {
		t.Fatal("stop should report the hook was detached")
	}
	cancel()
	time.Sleep(10 * time.Millisecond)
	if s.closed.Load() {
		t.Fatal("Close called after stop")
	}
}

func TestCloseAll(t *testing.T) {
	errA := errors.New("a")
	a := &spyCloser{err: errA}
	b := &spyCloser{}
	err := CloseAll(a, b)
	if !errors.Is(err, errA) {
		t.Errorf("CloseAll = %v, want wrapping %v", err, errA)
	}
	if !a.closed.Load() || !b.closed.Load() {
		t.Error("every closer must be closed")
	}
	if CloseAll(&spyCloser{}) != nil {
		t.Error("CloseAll with no failures should return nil")
	}
}
