package editor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.lsp.dev/uri"
)

// Tab is one editor tab.
type Tab struct {
	URI     string `json:"uri"`
	Preview bool   `json:"preview"`
}

// Workspace is an in-process tab model. At most one tab is a preview tab;
// opening another preview replaces it. Safe for concurrent use.
type Workspace struct {
	mu     sync.Mutex
	tabs   []Tab
	active string
	onOpen []func(path string)
}

// NewWorkspace returns a workspace with no tabs.
func NewWorkspace() *Workspace {
	return &Workspace{}
}

// OpenDocument implements Host. The file must exist.
func (w *Workspace) OpenDocument(_ context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	docURI := string(uri.File(abs))
	w.show(docURI, false)
	return docURI, nil
}

// ShowDocument implements Host. A URI with no tab is opened.
func (w *Workspace) ShowDocument(_ context.Context, docURI string, preview bool) error {
	w.show(docURI, preview)
	return nil
}

// OpenDocuments implements Host.
func (w *Workspace) OpenDocuments(context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.tabs))
	for i, t := range w.tabs {
		out[i] = t.URI
	}
	return out, nil
}

// Preview opens docURI as a preview tab, replacing any other preview tab,
// the way a single click in a file explorer does.
func (w *Workspace) Preview(docURI string) {
	w.show(docURI, true)
}

// Close closes the tab holding docURI. It returns ErrNotOpen if none does.
func (w *Workspace) Close(docURI string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.index(docURI)
	if i < 0 {
		return ErrNotOpen
	}
	w.tabs = append(w.tabs[:i], w.tabs[i+1:]...)
	if w.active == docURI {
		w.active = ""
		if n := len(w.tabs); n > 0 {
			w.active = w.tabs[n-1].URI
		}
	}
	return nil
}

// Tabs returns a copy of the tabs in opening order.
func (w *Workspace) Tabs() []Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Tab(nil), w.tabs...)
}

// Active returns the URI of the focused tab, or "" when there are no tabs.
func (w *Workspace) Active() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// OnOpen registers fn to be called with the filesystem path of every newly
// opened file:// document.
func (w *Workspace) OnOpen(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onOpen = append(w.onOpen, fn)
}

func (w *Workspace) show(docURI string, preview bool) {
	w.mu.Lock()
	opened := false
	if i := w.index(docURI); i >= 0 {
		if !preview {
			w.tabs[i].Preview = false
		}
	} else {
		if preview {
			w.dropPreview()
		}
		w.tabs = append(w.tabs, Tab{URI: docURI, Preview: preview})
		opened = true
	}
	w.active = docURI
	hooks := w.onOpen
	w.mu.Unlock()

	if !opened {
		return
	}
	path, ok := filePath(docURI)
	if !ok {
		return
	}
	for _, fn := range hooks {
		fn(path)
	}
}

func (w *Workspace) dropPreview() {
	for i, t := range w.tabs {
		if t.Preview {
			w.tabs = append(w.tabs[:i], w.tabs[i+1:]...)
			return
		}
	}
}

func (w *Workspace) index(docURI string) int {
	for i, t := range w.tabs {
		if t.URI == docURI {
			return i
		}
	}
	return -1
}

// filePath returns the local path for a file:// URI.
func filePath(docURI string) (string, bool) {
	if !strings.HasPrefix(docURI, uri.FileScheme+"://") {
		return "", false
	}
	return uri.URI(docURI).Filename(), true
}

var _ Host = (*Workspace)(nil)
