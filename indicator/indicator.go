// Package indicator implements the status indicator widgets the coordinator
// writes its display to.
package indicator

import (
	"context"
	"sync"

	"github.com/pithecene-io/lintstatus/log"
	"github.com/pithecene-io/lintstatus/presenter"
)

// Widget is a persistent status indicator.
type Widget interface {
	// Show makes the widget visible with d.
	Show(ctx context.Context, d presenter.Display) error
	// Update replaces the displayed state.
	Update(ctx context.Context, d presenter.Display) error
	// Dispose removes the widget. No calls follow.
	Dispose(ctx context.Context) error
}

// Dedup forwards to an inner widget, dropping updates equal to the last
// display written.
type Dedup struct {
	inner Widget

	mu   sync.Mutex
	last presenter.Display
	set  bool
}

// NewDedup wraps inner.
func NewDedup(inner Widget) *Dedup {
	return &Dedup{inner: inner}
}

// Show implements Widget. Show is always forwarded.
func (d *Dedup) Show(ctx context.Context, disp presenter.Display) error {
	d.remember(disp)
	return d.inner.Show(ctx, disp)
}

// Update implements Widget.
func (d *Dedup) Update(ctx context.Context, disp presenter.Display) error {
	d.mu.Lock()
	if d.set && d.last.Equal(disp) {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()
	d.remember(disp)
	return d.inner.Update(ctx, disp)
}

// Dispose implements Widget.
func (d *Dedup) Dispose(ctx context.Context) error {
	return d.inner.Dispose(ctx)
}

func (d *Dedup) remember(disp presenter.Display) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = presenter.Display{
		Icon:    disp.Icon,
		Color:   disp.Color,
		Label:   disp.Label,
		Tooltip: append([]string(nil), disp.Tooltip...),
	}
	d.set = true
}

// LogWidget writes every display to a logger. Used when no terminal or
// editor indicator is available.
type LogWidget struct {
	logger *log.Logger
}

// NewLogWidget returns a LogWidget writing to logger.
func NewLogWidget(logger *log.Logger) *LogWidget {
	return &LogWidget{logger: logger}
}

// Show implements Widget.
func (w *LogWidget) Show(_ context.Context, d presenter.Display) error {
	w.logger.Info("indicator shown", displayFields(d))
	return nil
}

// Update implements Widget.
func (w *LogWidget) Update(_ context.Context, d presenter.Display) error {
	w.logger.Info("indicator updated", displayFields(d))
	return nil
}

// Dispose implements Widget.
func (w *LogWidget) Dispose(context.Context) error {
	w.logger.Info("indicator disposed", nil)
	return nil
}

func displayFields(d presenter.Display) map[string]any {
	return map[string]any{
		"icon":    string(d.Icon),
		"color":   string(d.Color),
		"label":   d.Label,
		"tooltip": d.Tooltip,
	}
}

var (
	_ Widget = (*Dedup)(nil)
	_ Widget = (*LogWidget)(nil)
)
