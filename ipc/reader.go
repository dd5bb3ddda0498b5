package ipc

import (
	"context"
	"errors"
	"io"

	"github.com/pithecene-io/lintstatus/iox"
	"github.com/pithecene-io/lintstatus/log"
	"github.com/pithecene-io/lintstatus/metrics"
	"github.com/pithecene-io/lintstatus/types"
)

// FrameReader feeds a Sink from a msgpack frame stream.
//   - Frames are delivered in stream order
//   - Unknown frame types and undecodable params are logged and skipped
//   - Partial or oversized frames end the stream (no resync)
type FrameReader struct {
	r         io.Reader
	decoder   *FrameDecoder
	logger    *log.Logger
	collector *metrics.Collector
}

// NewFrameReader creates a reader over r. If r is also an io.Closer it is
// closed when the context passed to Run is cancelled.
func NewFrameReader(r io.Reader, logger *log.Logger, collector *metrics.Collector) *FrameReader {
	if logger == nil {
		logger = log.NewNop()
	}
	return &FrameReader{
		r:         r,
		decoder:   NewFrameDecoder(r),
		logger:    logger,
		collector: collector,
	}
}

// Run reads frames until EOF, a fatal frame error, a sink error, or
// cancellation.
// Returns:
//   - nil: stream ended cleanly (EOF on a frame boundary)
//   - *ChannelError with Kind=ChannelErrorStream: fatal frame error
//   - *ChannelError with Kind=ChannelErrorSink: sink refused a notification
//   - *ChannelError with Kind=ChannelErrorCanceled: context cancelled
func (fr *FrameReader) Run(ctx context.Context, sink Sink) error {
	if c, ok := fr.r.(io.Closer); ok {
		stop := iox.CloseOnCancel(ctx, c)
		defer stop()
	}

	for {
		if err := ctx.Err(); err != nil {
			return &ChannelError{Kind: ChannelErrorCanceled, Err: err}
		}

		payload, err := fr.decoder.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return &ChannelError{Kind: ChannelErrorCanceled, Err: ctx.Err()}
			}
			if errors.Is(err, io.EOF) {
				fr.logger.Info("worker channel closed", nil)
				return nil
			}
			return &ChannelError{Kind: ChannelErrorStream, Err: err}
		}

		msg, err := DecodeFrame(payload)
		if err != nil {
			fr.skip(err)
			continue
		}

		switch m := msg.(type) {
		case *types.StatusParams:
			err = sink.Status(ctx, m.Event())
		case *types.OpenDocumentParams:
			err = sink.OpenDocument(ctx, m.Request())
		}
		if err != nil {
			return &ChannelError{Kind: ChannelErrorSink, Err: err}
		}
	}
}

func (fr *FrameReader) skip(err error) {
	var frameErr *FrameError
	if errors.As(err, &frameErr) && frameErr.Kind == FrameErrorUnknownType {
		fr.logger.Debug("skipping frame", map[string]any{"reason": frameErr.Msg})
		return
	}
	fr.collector.IncIPCDecodeErrors()
	fr.logger.Warn("undecodable frame", map[string]any{"error": err.Error()})
}
