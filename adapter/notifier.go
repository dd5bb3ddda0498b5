package adapter

import (
	"context"
	"sync"

	"github.com/pithecene-io/lintstatus/log"
	"github.com/pithecene-io/lintstatus/metrics"
)

// DefaultQueueSize is the number of notices buffered before new ones are
// dropped.
const DefaultQueueSize = 64

// Notifier delivers completion notices through an Adapter on its own
// goroutine. Enqueue never blocks.
type Notifier struct {
	adapter   Adapter
	logger    *log.Logger
	collector *metrics.Collector

	mu     sync.Mutex
	queue  chan *JobCompletedEvent
	closed bool
}

// NewNotifier creates a notifier with a queue of size notices (DefaultQueueSize
// if size <= 0).
func NewNotifier(a Adapter, size int, logger *log.Logger, collector *metrics.Collector) *Notifier {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Notifier{
		adapter:   a,
		logger:    logger,
		collector: collector,
		queue:     make(chan *JobCompletedEvent, size),
	}
}

// Enqueue hands ev to the delivery goroutine. It reports false when the queue
// is full or the notifier is closed; the notice is dropped and counted.
func (n *Notifier) Enqueue(ev *JobCompletedEvent) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		n.collector.IncCompletionDropped()
		return false
	}
	select {
	case n.queue <- ev:
		return true
	default:
		n.collector.IncCompletionDropped()
		n.logger.Warn("completion queue full, notice dropped", map[string]any{"job_id": ev.JobID})
		return false
	}
}

// Close stops accepting notices. Run delivers what is already queued and
// then returns.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
}

// Run delivers queued notices until Close has been called and the queue is
// drained, or ctx is done. The adapter is closed on return.
func (n *Notifier) Run(ctx context.Context) error {
	defer func() {
		if err := n.adapter.Close(); err != nil {
			n.logger.Warn("adapter close failed", map[string]any{"error": err.Error()})
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-n.queue:
			if !ok {
				return nil
			}
			n.deliver(ctx, ev)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, ev *JobCompletedEvent) {
	if err := n.adapter.Publish(ctx, ev); err != nil {
		n.collector.IncCompletionFailed()
		n.logger.Warn("completion publish failed", map[string]any{
			"job_id": ev.JobID,
			"error":  err.Error(),
		})
		return
	}
	n.collector.IncCompletionPublished()
	n.logger.Debug("completion published", map[string]any{"job_id": ev.JobID})
}
