// Package editor provides the editor hosts the coordinator drives: an
// in-process tab model for standalone use and a JSON-RPC peer for a real
// editor.
package editor

import (
	"context"
	"errors"
)

// ErrNotOpen is returned when a document operation targets a URI that no tab
// holds.
var ErrNotOpen = errors.New("document not open")

// Host is the set of editor document operations the coordinator needs.
type Host interface {
	// OpenDocument opens the file at path as a full (non-preview) document
	// and returns its URI.
	OpenDocument(ctx context.Context, path string) (string, error)
	// ShowDocument makes uri the active tab. preview=false promotes a
	// preview tab to a full tab.
	ShowDocument(ctx context.Context, uri string, preview bool) error
	// OpenDocuments lists the URIs open in any tab.
	OpenDocuments(ctx context.Context) ([]string, error)
}

// OpenSet returns the open documents of h as a set.
func OpenSet(ctx context.Context, h Host) (map[string]struct{}, error) {
	uris, err := h.OpenDocuments(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(uris))
	for _, u := range uris {
		set[u] = struct{}{}
	}
	return set, nil
}
