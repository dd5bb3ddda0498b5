package ipc

import (
	"context"
	"errors"

	"github.com/pithecene-io/lintstatus/log"
	"github.com/pithecene-io/lintstatus/metrics"
	"github.com/pithecene-io/lintstatus/types"
)

// Sink receives decoded worker notifications in delivery order. A non-nil
// error stops the transport feeding it.
type Sink interface {
	Status(ctx context.Context, ev types.StatusEvent) error
	OpenDocument(ctx context.Context, req types.OpenDocumentRequest) error
}

// ChannelErrorKind classifies channel errors.
type ChannelErrorKind int

const (
	// ChannelErrorStream indicates the channel broke mid-stream.
	ChannelErrorStream ChannelErrorKind = iota
	// ChannelErrorDial indicates the worker could not be reached.
	ChannelErrorDial
	// ChannelErrorCanceled indicates the context was cancelled.
	ChannelErrorCanceled
	// ChannelErrorSink indicates the sink refused a notification.
	ChannelErrorSink
)

// ChannelError is returned by the transports when the worker channel stops
// for any reason other than a clean end of stream.
type ChannelError struct {
	Kind ChannelErrorKind
	Err  error
}

func (e *ChannelError) Error() string {
	switch e.Kind {
	case ChannelErrorDial:
		return "worker channel dial: " + e.Err.Error()
	case ChannelErrorCanceled:
		return "worker channel canceled: " + e.Err.Error()
	case ChannelErrorSink:
		return "worker channel sink: " + e.Err.Error()
	default:
		return "worker channel: " + e.Err.Error()
	}
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// IsCanceledError returns true if the channel stopped because its context
// was cancelled.
func IsCanceledError(err error) bool {
	var chErr *ChannelError
	if errors.As(err, &chErr) {
		return chErr.Kind == ChannelErrorCanceled
	}
	return false
}

// IsStreamError returns true if the channel broke mid-stream or could not be
// dialled.
func IsStreamError(err error) bool {
	var chErr *ChannelError
	if errors.As(err, &chErr) {
		return chErr.Kind == ChannelErrorStream || chErr.Kind == ChannelErrorDial
	}
	return false
}

// ServeOptions carries the ambient dependencies of a transport.
type ServeOptions struct {
	Logger    *log.Logger
	Collector *metrics.Collector
}
