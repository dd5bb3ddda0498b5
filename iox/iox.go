// Package iox provides I/O helpers for closing channels and files.
package iox

import (
	"context"
	"errors"
	"io"
)

// DiscardClose closes c and discards the error. For defers where the close
// error cannot be acted on:
//
//	defer iox.DiscardClose(conn)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a function that closes c, for t.Cleanup:
//
//	t.Cleanup(iox.CloseFunc(client))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// CloseOnCancel closes c when ctx is cancelled, unblocking any read pending
// on it. The returned stop function detaches the hook; it reports whether
// the close had not yet been triggered.
func CloseOnCancel(ctx context.Context, c io.Closer) (stop func() bool) {
	return context.AfterFunc(ctx, func() { _ = c.Close() })
}

// CloseAll closes every closer and joins the errors.
func CloseAll(closers ...io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
