package ipc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"go.lsp.dev/jsonrpc2"

	"github.com/pithecene-io/lintstatus/metrics"
	"github.com/pithecene-io/lintstatus/types"
)

// workerConn starts ServeJSONRPC on one end of a pipe and returns the worker
// end as a jsonrpc2 connection.
func workerConn(t *testing.T, ctx context.Context, sink Sink, col *metrics.Collector) (jsonrpc2.Conn, <-chan error) {
	t.Helper()
	server, client := net.Pipe()

	errc := make(chan error, 1)
	go func() { errc <- ServeJSONRPC(ctx, server, sink, nil, col) }()

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(client))
	conn.Go(ctx, jsonrpc2.MethodNotFoundHandler)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, errc
}

func waitErr(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("ServeJSONRPC did not return")
		return nil
	}
}

func TestServeJSONRPC_Notifications(t *testing.T) {
	ctx := t.Context()
	sink := &recordingSink{}
	col := metrics.NewCollector("s", TransportJSONRPC, "workspace")
	conn, errc := workerConn(t, ctx, sink, col)

	notify := func(method string, params any) {
		t.Helper()
		if err := conn.Notify(ctx, method, params); err != nil {
			t.Fatalf("Notify %s: %v", method, err)
		}
	}
	notify(MethodStatus, map[string]any{
		"id":             1,
		"state":          "lint.start",
		"documents":      []map[string]any{{"documentUri": "file:///A.groovy"}},
		"lastFileName":   "A.groovy",
		"lastLintTimeMs": 15,
	})
	notify(MethodStatus, "not an object")
	notify(MethodOpenDocument, map[string]any{"file": "/src/A.groovy"})
	notify("$/progress", map[string]any{})
	notify(MethodStatus, map[string]any{"id": 1, "state": "lint.paused"})

	_ = conn.Close()
	if err := waitErr(t, errc); err != nil {
		t.Fatalf("ServeJSONRPC = %v, want nil on clean close", err)
	}

	events, opens, order := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	first := events[0]
	if first.ID != 1 || first.State != types.StateLintStart || first.LastFileName != "A.groovy" {
		t.Errorf("first event = %+v", first)
	}
	if first.LastLintTime != 15*time.Millisecond {
		t.Errorf("LastLintTime = %v", first.LastLintTime)
	}
	if len(first.Documents) != 1 || first.Documents[0].URI != "file:///A.groovy" {
		t.Errorf("documents = %+v", first.Documents)
	}
	if events[1].State != types.StateUnknown || events[1].RawState != "lint.paused" {
		t.Errorf("unknown state event = %+v", events[1])
	}
	if len(opens) != 1 || opens[0].File != "/src/A.groovy" {
		t.Errorf("opens = %+v", opens)
	}
	if len(order) != 3 || order[1] != "open" {
		t.Errorf("order = %v", order)
	}
	if got := col.Snapshot().IPCDecodeErrors; got != 1 {
		t.Errorf("IPCDecodeErrors = %d, want 1", got)
	}
}

func TestServeJSONRPC_UnknownCall(t *testing.T) {
	ctx := t.Context()
	conn, errc := workerConn(t, ctx, &recordingSink{}, nil)

	_, err := conn.Call(ctx, "initialize", map[string]any{}, nil)
	if err == nil {
		t.Fatal("Call to unknown method should fail")
	}

	_ = conn.Close()
	_ = waitErr(t, errc)
}

func TestServeJSONRPC_SinkError(t *testing.T) {
	ctx := t.Context()
	conn, errc := workerConn(t, ctx, &recordingSink{err: errSinkClosed}, nil)

	_ = conn.Notify(ctx, MethodStatus, map[string]any{"id": 1, "state": "lint.start"})

	err := waitErr(t, errc)
	if !errors.Is(err, errSinkClosed) {
		t.Fatalf("err = %v, want wrapping sink error", err)
	}
}

func TestServeJSONRPC_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	_, errc := workerConn(t, ctx, &recordingSink{}, nil)

	cancel()
	if err := waitErr(t, errc); !IsCanceledError(err) {
		t.Fatalf("err = %v, want canceled", err)
	}
}
