package journal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/lintstatus/log"
	"github.com/pithecene-io/lintstatus/metrics"
	"github.com/pithecene-io/lintstatus/types"
)

// Flush defaults.
const (
	DefaultFlushCount    = 50
	DefaultFlushInterval = 5 * time.Second
)

// FlushTrigger identifies which trigger caused a flush.
type FlushTrigger string

const (
	// FlushTriggerCount indicates a count-threshold flush.
	FlushTriggerCount FlushTrigger = "count"
	// FlushTriggerInterval indicates an interval-based flush.
	FlushTriggerInterval FlushTrigger = "interval"
	// FlushTriggerClose indicates the final flush on Close.
	FlushTriggerClose FlushTrigger = "close"
)

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("journal closed")

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// SessionID partitions this recorder's entries.
	SessionID string
	// FlushCount triggers a flush after N entries accumulate.
	FlushCount int
	// FlushInterval triggers a flush every interval.
	FlushInterval time.Duration
	// Logger is an optional logger.
	Logger *log.Logger
	// Collector is an optional metrics collector.
	Collector *metrics.Collector
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Recorder buffers status events and writes them to the dataset in batches.
//
//   - Record never performs I/O; count-triggered flushes run on the
//     recorder's own goroutine
//   - On write failure the batch is kept and retried on the next trigger
//   - Close flushes whatever is buffered
type Recorder struct {
	ds        lode.Dataset
	config    RecorderConfig
	logger    *log.Logger
	collector *metrics.Collector

	mu      sync.Mutex // guards buffer, seq, closed
	buffer  []Entry
	seq     int64
	closed  bool
	flushCh chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}

	// flushMu serializes writes to the dataset.
	flushMu sync.Mutex
}

// NewRecorder starts a recorder writing to ds.
func NewRecorder(ds lode.Dataset, cfg RecorderConfig) *Recorder {
	if cfg.FlushCount <= 0 {
		cfg.FlushCount = DefaultFlushCount
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	r := &Recorder{
		ds:        ds,
		config:    cfg,
		logger:    logger,
		collector: cfg.Collector,
		buffer:    make([]Entry, 0, cfg.FlushCount),
		flushCh:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// Record buffers ev. It never blocks on storage.
func (r *Recorder) Record(ev types.StatusEvent) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.seq++
	r.buffer = append(r.buffer, NewEntry(r.config.SessionID, r.seq, ev, r.config.Now()))
	full := len(r.buffer) >= r.config.FlushCount
	r.mu.Unlock()

	if full {
		select {
		case r.flushCh <- struct{}{}:
		default:
		}
	}
	return nil
}

// Flush writes buffered entries now.
func (r *Recorder) Flush(ctx context.Context) error {
	return r.flush(ctx, FlushTriggerClose)
}

// Buffered returns the number of entries not yet written.
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}

// Close stops the background flusher and writes what is left.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.stopCh)
	r.mu.Unlock()

	<-r.doneCh
	return r.flush(ctx, FlushTriggerClose)
}

func (r *Recorder) loop() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Best-effort; failures are logged and the batch retried.
			_ = r.flush(context.Background(), FlushTriggerInterval)
		case <-r.flushCh:
			_ = r.flush(context.Background(), FlushTriggerCount)
		case <-r.stopCh:
			return
		}
	}
}

func (r *Recorder) flush(ctx context.Context, trigger FlushTrigger) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	batch := r.buffer
	if len(batch) == 0 {
		r.mu.Unlock()
		return nil
	}
	r.buffer = make([]Entry, 0, r.config.FlushCount)
	r.mu.Unlock()

	records := make([]any, len(batch))
	for i, e := range batch {
		records[i] = toRecordMap(e)
	}

	if _, err := r.ds.Write(ctx, records, lode.Metadata{}); err != nil {
		// Restore: prepend the failed batch before anything recorded since.
		r.mu.Lock()
		r.buffer = append(batch, r.buffer...)
		r.mu.Unlock()

		err = WrapWriteError(err, string(r.ds.ID()))
		r.collector.IncJournalFailure()
		r.logger.Warn("journal flush failed", map[string]any{
			"trigger": string(trigger),
			"entries": len(batch),
			"error":   err.Error(),
		})
		return err
	}

	r.collector.IncJournalWrite()
	r.logger.Debug("journal flush", map[string]any{
		"trigger": string(trigger),
		"entries": len(batch),
	})
	return nil
}
