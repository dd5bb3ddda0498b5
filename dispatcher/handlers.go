package dispatcher

import (
	"context"

	"github.com/pithecene-io/lintstatus/adapter"
	"github.com/pithecene-io/lintstatus/editor"
	"github.com/pithecene-io/lintstatus/presenter"
	"github.com/pithecene-io/lintstatus/types"
)

// handleStatus applies one status event to the registry and the editor,
// then re-renders the indicator whatever the state was.
func (c *Coordinator) handleStatus(ctx context.Context, ev types.StatusEvent) {
	c.config.Collector.IncEvent(ev.RawState)
	c.record(ev)

	switch {
	case ev.State.IsActive():
		c.registry.Append(ev)
		c.revealDocuments(ctx, ev)

	case ev.State == types.StateLintEnd:
		cleared := c.residentErrors(ev)
		c.registry.RemoveByID(ev.ID)
		c.registry.RemoveErrorsForFile(ev.LastFileName)
		c.clearClosedDocuments(ctx, ev)
		c.notify(ev, cleared)

	default:
		c.config.Collector.IncUnknownState()
		c.logger.Warn("unknown job state", map[string]any{
			"job_id": ev.ID,
			"state":  ev.RawState,
		})
	}

	c.render(ctx)
}

// handleOpenDocument opens a path as a full tab and focuses it.
func (c *Coordinator) handleOpenDocument(ctx context.Context, req types.OpenDocumentRequest) {
	c.config.Collector.IncOpenRequest()

	var docURI string
	ok := c.call(ctx, func(ctx context.Context) error {
		u, err := c.config.Host.OpenDocument(ctx, req.File)
		docURI = u
		return err
	}, "open document failed")
	if !ok {
		c.config.Collector.IncEditorFailure()
		return
	}
	c.show(ctx, docURI)
}

// revealDocuments makes each listed document that is already open the
// active non-preview tab. Documents without a tab are skipped.
func (c *Coordinator) revealDocuments(ctx context.Context, ev types.StatusEvent) {
	if len(ev.Documents) == 0 {
		return
	}
	open, ok := c.openSet(ctx)
	if !ok {
		return
	}
	for _, doc := range ev.Documents {
		if _, isOpen := open[doc.URI]; !isOpen {
			c.config.Collector.IncDocumentSkipped()
			c.logger.Debug("document not open, skipping", map[string]any{
				"job_id": ev.ID,
				"uri":    doc.URI,
			})
			continue
		}
		c.show(ctx, doc.URI)
	}
}

// clearClosedDocuments empties the diagnostics of listed documents that no
// tab holds anymore. A URI listed twice is cleared once.
func (c *Coordinator) clearClosedDocuments(ctx context.Context, ev types.StatusEvent) {
	if len(ev.Documents) == 0 {
		return
	}
	open, ok := c.openSet(ctx)
	if !ok {
		return
	}
	cleared := make(map[string]struct{}, len(ev.Documents))
	for _, doc := range ev.Documents {
		if _, isOpen := open[doc.URI]; isOpen {
			continue
		}
		if _, done := cleared[doc.URI]; done {
			continue
		}
		cleared[doc.URI] = struct{}{}
		c.call(ctx, func(ctx context.Context) error {
			return c.config.Diagnostics.Clear(ctx, doc.URI)
		}, "diagnostics clear failed")
	}
}

func (c *Coordinator) show(ctx context.Context, docURI string) {
	ok := c.call(ctx, func(ctx context.Context) error {
		return c.config.Host.ShowDocument(ctx, docURI, false)
	}, "show document failed")
	if !ok {
		c.config.Collector.IncEditorFailure()
		return
	}
	c.config.Collector.IncDocumentShown()
}

func (c *Coordinator) openSet(ctx context.Context) (map[string]struct{}, bool) {
	var open map[string]struct{}
	ok := c.call(ctx, func(ctx context.Context) error {
		var err error
		open, err = editor.OpenSet(ctx, c.config.Host)
		return err
	}, "list open documents failed")
	if !ok {
		c.config.Collector.IncEditorFailure()
	}
	return open, ok
}

// render reduces the registry and writes the result to the widget.
func (c *Coordinator) render(ctx context.Context) {
	d := c.config.Reducer.Reduce(c.registry.Snapshot())
	if presenter.HasUnknownLine(d) {
		c.config.Collector.IncFallbackLine()
		c.logger.Warn("indicator shows fallback tooltip line", map[string]any{
			"tooltip": d.Tooltip,
		})
	}
	if c.call(ctx, func(ctx context.Context) error {
		return c.config.Widget.Update(ctx, d)
	}, "indicator update failed") {
		c.config.Collector.IncIndicatorUpdate()
	}
}

// residentErrors counts the lint.error entries a lint.end is about to remove.
func (c *Coordinator) residentErrors(end types.StatusEvent) int {
	n := 0
	for _, ev := range c.registry.Snapshot() {
		if ev.State == types.StateLintError && (ev.ID == end.ID || ev.LastFileName == end.LastFileName) {
			n++
		}
	}
	return n
}

func (c *Coordinator) notify(ev types.StatusEvent, cleared int) {
	if c.config.Notifier == nil {
		return
	}
	c.config.Notifier.Enqueue(adapter.NewJobCompletedEvent(c.config.SessionID, ev, cleared, c.config.Now()))
}

func (c *Coordinator) record(ev types.StatusEvent) {
	if c.config.Journal == nil {
		return
	}
	if err := c.config.Journal.Record(ev); err != nil {
		c.logger.Warn("journal record failed", map[string]any{
			"job_id": ev.ID,
			"error":  err.Error(),
		})
	}
}
