package diagnostics

import (
	"context"
	"fmt"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Publisher forwards diagnostic sets to an editor as
// textDocument/publishDiagnostics notifications.
type Publisher struct {
	conn jsonrpc2.Conn
}

// NewPublisher returns a Publisher writing to conn.
func NewPublisher(conn jsonrpc2.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// Set implements Set.
func (p *Publisher) Set(ctx context.Context, uri string, diags []protocol.Diagnostic) error {
	if diags == nil {
		// The editor treats null as "no change"; send an explicit empty list.
		diags = []protocol.Diagnostic{}
	}
	params := &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Diagnostics: diags,
	}
	if err := p.conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, params); err != nil {
		return fmt.Errorf("publish diagnostics: %w", err)
	}
	return nil
}

var _ Set = (*Publisher)(nil)
