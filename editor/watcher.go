package editor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.lsp.dev/uri"

	"github.com/pithecene-io/lintstatus/log"
)

// Watcher closes workspace tabs whose files are removed or renamed on disk.
// It watches the parent directory of every document the workspace opens.
type Watcher struct {
	ws     *Workspace
	fsw    *fsnotify.Watcher
	logger *log.Logger

	mu   sync.Mutex
	dirs map[string]struct{}
}

// NewWatcher attaches a filesystem watcher to ws. Tabs already open are
// watched immediately.
func NewWatcher(ws *Workspace, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	w := &Watcher{ws: ws, fsw: fsw, logger: logger, dirs: make(map[string]struct{})}

	for _, t := range ws.Tabs() {
		if path, ok := filePath(t.URI); ok {
			w.watchFile(path)
		}
	}
	ws.OnOpen(w.watchFile)
	return w, nil
}

// Run processes filesystem events until ctx is cancelled or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fs watcher error", map[string]any{"error": err.Error()})
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	docURI := string(uri.File(ev.Name))
	if err := w.ws.Close(docURI); err != nil {
		return
	}
	w.logger.Debug("tab closed, file gone", map[string]any{"uri": docURI, "op": ev.Op.String()})
}

func (w *Watcher) watchFile(path string) {
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dir]; ok {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn("cannot watch directory", map[string]any{"dir": dir, "error": err.Error()})
		return
	}
	w.dirs[dir] = struct{}{}
}
