package editor

import (
	"context"
	"encoding/json"
	"net"
	"slices"
	"testing"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/pithecene-io/lintstatus/presenter"
)

// fakeEditor is the editor end of a Remote connection.
type fakeEditor struct {
	conn      jsonrpc2.Conn
	shown     chan ShowDocumentParams
	indicator chan IndicatorParams
}

func newRemotePair(t *testing.T) (*Remote, *fakeEditor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a, b := net.Pipe()
	fe := &fakeEditor{
		shown:     make(chan ShowDocumentParams, 4),
		indicator: make(chan IndicatorParams, 4),
	}
	fe.conn = jsonrpc2.NewConn(jsonrpc2.NewStream(b))
	fe.conn.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case MethodOpenDocument:
			var p OpenDocumentParams
			_ = json.Unmarshal(req.Params(), &p)
			return reply(ctx, OpenDocumentResult{URI: "file://" + p.Path}, nil)
		case MethodShowDocument:
			var p ShowDocumentParams
			_ = json.Unmarshal(req.Params(), &p)
			fe.shown <- p
			return reply(ctx, nil, nil)
		case MethodIndicator:
			var p IndicatorParams
			_ = json.Unmarshal(req.Params(), &p)
			fe.indicator <- p
			return reply(ctx, nil, nil)
		}
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	})

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(a))
	r := NewRemote(conn, nil)
	conn.Go(ctx, r.Handler())

	t.Cleanup(func() {
		_ = conn.Close()
		_ = fe.conn.Close()
	})
	return r, fe
}

func waitOpen(t *testing.T, r *Remote, want []string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := r.OpenDocuments(t.Context())
		if slices.Equal(got, want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	got, _ := r.OpenDocuments(t.Context())
	t.Fatalf("OpenDocuments = %v, want %v", got, want)
}

func TestRemote_TracksDidOpenAndDidClose(t *testing.T) {
	r, fe := newRemotePair(t)
	ctx := t.Context()

	for _, u := range []string{"file:///A.groovy", "file:///B.groovy"} {
		err := fe.conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
			TextDocument: protocol.TextDocumentItem{URI: protocol.DocumentURI(u), LanguageID: "groovy", Version: 1},
		})
		if err != nil {
			t.Fatalf("didOpen: %v", err)
		}
	}
	waitOpen(t, r, []string{"file:///A.groovy", "file:///B.groovy"})

	err := fe.conn.Notify(ctx, protocol.MethodTextDocumentDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///A.groovy"},
	})
	if err != nil {
		t.Fatalf("didClose: %v", err)
	}
	waitOpen(t, r, []string{"file:///B.groovy"})
}

func TestRemote_OpenAndShowDocument(t *testing.T) {
	r, fe := newRemotePair(t)
	ctx := t.Context()

	got, err := r.OpenDocument(ctx, "/src/A.groovy")
	if err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	if got != "file:///src/A.groovy" {
		t.Errorf("uri = %q", got)
	}
	waitOpen(t, r, []string{"file:///src/A.groovy"})

	if err := r.ShowDocument(ctx, got, false); err != nil {
		t.Fatalf("ShowDocument: %v", err)
	}
	select {
	case p := <-fe.shown:
		if p.URI != got || p.Preview || !p.TakeFocus {
			t.Errorf("show params = %+v", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("showDocument not received")
	}
}

func TestRemote_Indicator(t *testing.T) {
	r, fe := newRemotePair(t)
	ctx := t.Context()

	d := presenter.Display{Icon: presenter.IconSyncing, Color: presenter.ColorBusy, Label: "GroovyLint", Tooltip: []string{"Analyzing A.groovy"}}
	if err := r.Update(ctx, d); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := r.Dispose(ctx); err != nil {
		t.Fatalf("Dispose: %v", err)
	}

	want := []IndicatorParams{
		{Visible: true, Icon: "syncing", Color: string(presenter.ColorBusy), Label: "GroovyLint", Tooltip: []string{"Analyzing A.groovy"}},
		{Visible: false},
	}
	for i, w := range want {
		select {
		case got := <-fe.indicator:
			if got.Visible != w.Visible || got.Icon != w.Icon || got.Color != w.Color || !slices.Equal(got.Tooltip, w.Tooltip) {
				t.Errorf("indicator[%d] = %+v, want %+v", i, got, w)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("indicator[%d] not received", i)
		}
	}
}
