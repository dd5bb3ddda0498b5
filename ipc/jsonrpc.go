package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.lsp.dev/jsonrpc2"

	"github.com/pithecene-io/lintstatus/log"
	"github.com/pithecene-io/lintstatus/metrics"
	"github.com/pithecene-io/lintstatus/types"
)

// JSON-RPC notification methods sent by the worker.
const (
	MethodStatus       = "status"
	MethodOpenDocument = "openDocument"
)

// ServeJSONRPC reads Content-Length framed JSON-RPC notifications from rwc
// and forwards them to sink until the stream ends. rwc is closed on return.
// Return values follow FrameReader.Run.
func ServeJSONRPC(ctx context.Context, rwc io.ReadWriteCloser, sink Sink, logger *log.Logger, collector *metrics.Collector) error {
	if logger == nil {
		logger = log.NewNop()
	}
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))

	var sinkErr error
	conn.Go(ctx, statusHandler(sink, logger, collector, func(err error) {
		sinkErr = err
		_ = conn.Close()
	}))

	select {
	case <-ctx.Done():
		_ = conn.Close()
		<-conn.Done()
		return &ChannelError{Kind: ChannelErrorCanceled, Err: ctx.Err()}
	case <-conn.Done():
	}

	// sinkErr is written on the connection's read goroutine, which has
	// exited once Done is closed.
	if sinkErr != nil {
		return &ChannelError{Kind: ChannelErrorSink, Err: sinkErr}
	}
	err := conn.Err()
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		logger.Info("worker channel closed", nil)
		return nil
	}
	return &ChannelError{Kind: ChannelErrorStream, Err: err}
}

func statusHandler(sink Sink, logger *log.Logger, collector *metrics.Collector, stop func(error)) jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		var err error
		switch req.Method() {
		case MethodStatus:
			var p types.StatusParams
			if derr := json.Unmarshal(req.Params(), &p); derr != nil {
				return invalidParams(ctx, reply, req, derr, logger, collector)
			}
			err = sink.Status(ctx, p.Event())
		case MethodOpenDocument:
			var p types.OpenDocumentParams
			if derr := json.Unmarshal(req.Params(), &p); derr != nil {
				return invalidParams(ctx, reply, req, derr, logger, collector)
			}
			err = sink.OpenDocument(ctx, p.Request())
		default:
			if _, isCall := req.(*jsonrpc2.Call); isCall {
				return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
			}
			logger.Debug("ignoring notification", map[string]any{"method": req.Method()})
			return reply(ctx, nil, nil)
		}
		if err != nil {
			_ = reply(ctx, nil, err)
			stop(err)
			return nil
		}
		return reply(ctx, nil, nil)
	}
}

func invalidParams(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request, err error, logger *log.Logger, collector *metrics.Collector) error {
	collector.IncIPCDecodeErrors()
	logger.Warn("malformed notification", map[string]any{
		"method": req.Method(),
		"error":  err.Error(),
	})
	return reply(ctx, nil, fmt.Errorf("%w: %v", jsonrpc2.ErrInvalidParams, err))
}
