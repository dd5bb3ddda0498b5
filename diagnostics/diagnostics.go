// Package diagnostics keeps per-document diagnostic sets in step with which
// documents are still open.
package diagnostics

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.lsp.dev/protocol"

	"github.com/pithecene-io/lintstatus/log"
	"github.com/pithecene-io/lintstatus/metrics"
)

// Set is the editor's per-document diagnostic store.
type Set interface {
	// Set replaces the diagnostics for uri. An empty list clears them.
	Set(ctx context.Context, uri string, diags []protocol.Diagnostic) error
}

// Synchronizer clears diagnostics for documents that have been closed.
type Synchronizer struct {
	set       Set
	logger    *log.Logger
	collector *metrics.Collector
}

// NewSynchronizer returns a Synchronizer writing to set.
// logger and collector may be nil.
func NewSynchronizer(set Set, logger *log.Logger, collector *metrics.Collector) *Synchronizer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Synchronizer{set: set, logger: logger, collector: collector}
}

// Clear empties the diagnostic set for uri, whether or not it had entries.
func (s *Synchronizer) Clear(ctx context.Context, uri string) error {
	if err := s.set.Set(ctx, uri, []protocol.Diagnostic{}); err != nil {
		return fmt.Errorf("clear diagnostics for %s: %w", uri, err)
	}
	s.collector.IncDiagnosticsCleared()
	s.logger.Debug("diagnostics cleared", map[string]any{"uri": uri})
	return nil
}

// Collection is an in-memory Set. Safe for concurrent use.
type Collection struct {
	mu    sync.Mutex
	diags map[string][]protocol.Diagnostic
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{diags: make(map[string][]protocol.Diagnostic)}
}

// Set implements Set. Clearing removes the entry.
func (c *Collection) Set(_ context.Context, uri string, diags []protocol.Diagnostic) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(diags) == 0 {
		delete(c.diags, uri)
		return nil
	}
	c.diags[uri] = append([]protocol.Diagnostic(nil), diags...)
	return nil
}

// Get returns a copy of the diagnostics for uri.
func (c *Collection) Get(uri string) []protocol.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Diagnostic(nil), c.diags[uri]...)
}

// URIs returns the documents that currently have diagnostics, sorted.
func (c *Collection) URIs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.diags))
	for uri := range c.diags {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

var _ Set = (*Collection)(nil)
