// Package dispatcher runs the status coordinator.
//
// A Coordinator is an actor: transports post messages to its mailbox and a
// single goroutine (Run) handles them one at a time, in mailbox order. That
// goroutine owns the job registry and is the only writer of the indicator
// widget. Completion notices and journal records leave the loop through
// non-blocking hand-offs.
package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pithecene-io/lintstatus/adapter"
	"github.com/pithecene-io/lintstatus/diagnostics"
	"github.com/pithecene-io/lintstatus/editor"
	"github.com/pithecene-io/lintstatus/indicator"
	"github.com/pithecene-io/lintstatus/log"
	"github.com/pithecene-io/lintstatus/metrics"
	"github.com/pithecene-io/lintstatus/presenter"
	"github.com/pithecene-io/lintstatus/registry"
	"github.com/pithecene-io/lintstatus/types"
)

// ErrClosed is returned by every Coordinator entry point after shutdown.
var ErrClosed = errors.New("dispatcher closed")

const (
	// DefaultMailboxSize is the mailbox capacity when none is configured.
	DefaultMailboxSize = 256
	// DefaultCallTimeout bounds each editor, diagnostics, and widget call.
	DefaultCallTimeout = 10 * time.Second
	// disposeTimeout bounds the final widget Dispose after Run stops.
	disposeTimeout = 2 * time.Second
)

// Notifier accepts completion notices without blocking.
// *adapter.Notifier satisfies it.
type Notifier interface {
	Enqueue(ev *adapter.JobCompletedEvent) bool
}

// Journal accepts status events for durable recording without blocking.
// *journal.Recorder satisfies it.
type Journal interface {
	Record(ev types.StatusEvent) error
}

// Config configures a Coordinator.
type Config struct {
	// Host is the editor the coordinator drives. Required.
	Host editor.Host
	// Diagnostics clears diagnostics of closed documents. Required.
	Diagnostics *diagnostics.Synchronizer
	// Widget is the status indicator. Required.
	Widget indicator.Widget
	// Reducer carries display configuration (label).
	Reducer presenter.Reducer
	// Notifier receives a notice for every lint.end. Optional.
	Notifier Notifier
	// Journal receives every status event. Optional.
	Journal Journal
	// Collector records counters. Optional; Collector methods are nil-safe.
	Collector *metrics.Collector
	// Logger defaults to a no-op logger.
	Logger *log.Logger
	// SessionID stamps completion notices.
	SessionID string
	// MailboxSize defaults to DefaultMailboxSize.
	MailboxSize int
	// CallTimeout defaults to DefaultCallTimeout.
	CallTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// message is one mailbox entry. Exactly one field is set.
type message struct {
	status *types.StatusEvent
	open   *types.OpenDocumentRequest
	query  chan []types.StatusEvent
}

// Coordinator serializes status handling over one registry.
type Coordinator struct {
	config   Config
	logger   *log.Logger
	registry *registry.Registry

	mailbox   chan message
	done      chan struct{}
	closeOnce sync.Once
}

// New validates cfg and returns a Coordinator. Call Run to start handling.
func New(cfg Config) (*Coordinator, error) {
	switch {
	case cfg.Host == nil:
		return nil, errors.New("dispatcher: editor host is required")
	case cfg.Diagnostics == nil:
		return nil, errors.New("dispatcher: diagnostics synchronizer is required")
	case cfg.Widget == nil:
		return nil, errors.New("dispatcher: indicator widget is required")
	}
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = DefaultMailboxSize
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Coordinator{
		config:   cfg,
		logger:   logger,
		registry: registry.New(),
		mailbox:  make(chan message, cfg.MailboxSize),
		done:     make(chan struct{}),
	}, nil
}

// Status posts a status event. It blocks only while the mailbox is full.
// Status implements ipc.Sink.
func (c *Coordinator) Status(ctx context.Context, ev types.StatusEvent) error {
	return c.post(ctx, message{status: &ev})
}

// OpenDocument posts an open-document request. It implements ipc.Sink.
func (c *Coordinator) OpenDocument(ctx context.Context, req types.OpenDocumentRequest) error {
	return c.post(ctx, message{open: &req})
}

// Snapshot returns the registry contents once every message posted before
// it has been handled.
func (c *Coordinator) Snapshot(ctx context.Context) ([]types.StatusEvent, error) {
	reply := make(chan []types.StatusEvent, 1)
	if err := c.post(ctx, message{query: reply}); err != nil {
		return nil, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the coordinator. Messages still in the mailbox are discarded.
// Close is idempotent.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Run shows the loading display and handles messages until ctx is canceled
// or Close is called, then disposes the widget. Run returns nil on either
// kind of shutdown; handler failures are logged, never returned.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.Close()

	c.call(ctx, func(ctx context.Context) error {
		return c.config.Widget.Show(ctx, c.config.Reducer.Loading())
	}, "indicator show failed")
	c.logger.Info("coordinator started", map[string]any{"mailbox_size": c.config.MailboxSize})

	defer c.dispose(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopped", map[string]any{"reason": ctx.Err().Error()})
			return nil
		case <-c.done:
			c.logger.Info("coordinator stopped", map[string]any{"reason": "closed"})
			return nil
		case msg := <-c.mailbox:
			c.handle(ctx, msg)
		}
	}
}

func (c *Coordinator) post(ctx context.Context, msg message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.mailbox <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) handle(ctx context.Context, msg message) {
	switch {
	case msg.status != nil:
		c.handleStatus(ctx, *msg.status)
	case msg.open != nil:
		c.handleOpenDocument(ctx, *msg.open)
	case msg.query != nil:
		msg.query <- c.registry.Snapshot()
	}
}

func (c *Coordinator) dispose(ctx context.Context) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disposeTimeout)
	defer cancel()
	if err := c.config.Widget.Dispose(dctx); err != nil {
		c.logger.Warn("indicator dispose failed", map[string]any{"error": err.Error()})
	}
}

// call runs fn under the per-call timeout and logs its failure.
func (c *Coordinator) call(ctx context.Context, fn func(context.Context) error, failure string) bool {
	cctx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()
	if err := fn(cctx); err != nil {
		c.logger.Warn(failure, map[string]any{"error": err.Error()})
		return false
	}
	return true
}
