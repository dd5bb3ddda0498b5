package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pithecene-io/lintstatus/adapter"
	"github.com/pithecene-io/lintstatus/iox"
)

func testEvent() *adapter.JobCompletedEvent {
	return &adapter.JobCompletedEvent{
		EventType:    adapter.EventTypeJobCompleted,
		SessionID:    "sess-001",
		JobID:        12,
		FileName:     "Build.groovy",
		DocumentURIs: []string{"file:///src/Build.groovy"},
		Timestamp:    "2026-10-16T12:00:00Z",
	}
}

func TestPublish_Success(t *testing.T) {
	var received adapter.JobCompletedEvent
	var eventHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		eventHeader = r.Header.Get("X-Lintstatus-Event")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if received.JobID != 12 || received.FileName != "Build.groovy" {
		t.Errorf("received = %+v", received)
	}
	if eventHeader != adapter.EventTypeJobCompleted {
		t.Errorf("X-Lintstatus-Event = %q", eventHeader)
	}
}

func TestPublish_CustomHeaders(t *testing.T) {
	var authHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	a, err := New(Config{
		URL:     ts.URL,
		Headers: map[string]string{"Authorization": "Bearer test-token"},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if authHeader != "Bearer test-token" {
		t.Errorf("Authorization = %q", authHeader)
	}
}

func TestPublish_StatusHandling(t *testing.T) {
	tests := []struct {
		name         string
		codes        []int // response per attempt; last one repeats
		retries      int
		wantErr      bool
		wantAttempts int32
	}{
		{"200", []int{200}, 0, false, 1},
		{"202", []int{202}, 0, false, 1},
		{"500 then 200", []int{500, 500, 200}, 3, false, 3},
		{"503 exhausts", []int{503}, 2, true, 3},
		{"400 no retry", []int{400}, 3, true, 1},
		{"404 no retry", []int{404}, 3, true, 1},
		{"502 then 401 stops", []int{502, 401}, 3, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				n := int(attempts.Add(1))
				code := tt.codes[min(n, len(tt.codes))-1]
				w.WriteHeader(code)
			}))
			defer ts.Close()

			a, err := New(Config{URL: ts.URL, Retries: tt.retries, Backoff: time.Millisecond})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			defer iox.DiscardClose(a)

			err = a.Publish(t.Context(), testEvent())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
			if err != nil {
				var statusErr *StatusError
				if !errors.As(err, &statusErr) {
					t.Errorf("err = %v, want *StatusError in chain", err)
				}
			}
		})
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	defer close(release)

	a, err := New(Config{URL: ts.URL, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := New(Config{URL: "http://example.com", Retries: -1}); err == nil {
		t.Error("expected error for negative retries")
	}

	a, err := New(Config{URL: "http://example.com", Retries: 5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.config.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", a.config.Timeout, DefaultTimeout)
	}
	if a.config.Retries != 5 {
		t.Errorf("retries = %d, want 5", a.config.Retries)
	}
}
