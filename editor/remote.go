package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/pithecene-io/lintstatus/log"
	"github.com/pithecene-io/lintstatus/presenter"
)

// Editor-side methods served by the extension host.
const (
	MethodOpenDocument = "lintstatus/openDocument"
	MethodShowDocument = "lintstatus/showDocument"
	MethodIndicator    = "lintstatus/indicator"
)

// OpenDocumentParams is the lintstatus/openDocument request.
type OpenDocumentParams struct {
	Path string `json:"path"`
}

// OpenDocumentResult is the lintstatus/openDocument response.
type OpenDocumentResult struct {
	URI string `json:"uri"`
}

// ShowDocumentParams is the lintstatus/showDocument request.
type ShowDocumentParams struct {
	URI       string `json:"uri"`
	Preview   bool   `json:"preview"`
	TakeFocus bool   `json:"takeFocus"`
}

// IndicatorParams is the lintstatus/indicator notification.
type IndicatorParams struct {
	Visible bool     `json:"visible"`
	Icon    string   `json:"icon,omitempty"`
	Color   string   `json:"color,omitempty"`
	Label   string   `json:"label,omitempty"`
	Tooltip []string `json:"tooltip,omitempty"`
}

// Remote is a Host backed by a JSON-RPC connection to an editor. Open
// documents are tracked from the editor's textDocument/didOpen and
// textDocument/didClose notifications.
type Remote struct {
	conn   jsonrpc2.Conn
	logger *log.Logger

	mu   sync.Mutex
	open []string
}

// NewRemote returns a Remote over conn. The caller must start conn with
// Handler (or a handler that delegates to it).
func NewRemote(conn jsonrpc2.Conn, logger *log.Logger) *Remote {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Remote{conn: conn, logger: logger}
}

// Handler serves the editor's document lifecycle notifications.
func (r *Remote) Handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case protocol.MethodTextDocumentDidOpen:
			var params protocol.DidOpenTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, fmt.Errorf("%w: %v", jsonrpc2.ErrInvalidParams, err))
			}
			r.track(string(params.TextDocument.URI))
			return reply(ctx, nil, nil)
		case protocol.MethodTextDocumentDidClose:
			var params protocol.DidCloseTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, fmt.Errorf("%w: %v", jsonrpc2.ErrInvalidParams, err))
			}
			r.untrack(string(params.TextDocument.URI))
			return reply(ctx, nil, nil)
		}
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

// OpenDocument implements Host.
func (r *Remote) OpenDocument(ctx context.Context, path string) (string, error) {
	var res OpenDocumentResult
	if _, err := r.conn.Call(ctx, MethodOpenDocument, &OpenDocumentParams{Path: path}, &res); err != nil {
		return "", fmt.Errorf("editor open %s: %w", path, err)
	}
	r.track(res.URI)
	return res.URI, nil
}

// ShowDocument implements Host.
func (r *Remote) ShowDocument(ctx context.Context, docURI string, preview bool) error {
	params := &ShowDocumentParams{URI: docURI, Preview: preview, TakeFocus: true}
	if _, err := r.conn.Call(ctx, MethodShowDocument, params, nil); err != nil {
		return fmt.Errorf("editor show %s: %w", docURI, err)
	}
	return nil
}

// OpenDocuments implements Host.
func (r *Remote) OpenDocuments(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.open...), nil
}

// Show sends the display to the editor's indicator.
func (r *Remote) Show(ctx context.Context, d presenter.Display) error {
	return r.notifyIndicator(ctx, indicatorParams(d))
}

// Update sends a changed display to the editor's indicator.
func (r *Remote) Update(ctx context.Context, d presenter.Display) error {
	return r.notifyIndicator(ctx, indicatorParams(d))
}

// Dispose hides the editor's indicator.
func (r *Remote) Dispose(ctx context.Context) error {
	return r.notifyIndicator(ctx, &IndicatorParams{Visible: false})
}

func (r *Remote) notifyIndicator(ctx context.Context, p *IndicatorParams) error {
	if err := r.conn.Notify(ctx, MethodIndicator, p); err != nil {
		return fmt.Errorf("editor indicator: %w", err)
	}
	return nil
}

func indicatorParams(d presenter.Display) *IndicatorParams {
	return &IndicatorParams{
		Visible: true,
		Icon:    string(d.Icon),
		Color:   string(d.Color),
		Label:   d.Label,
		Tooltip: d.Tooltip,
	}
}

func (r *Remote) track(docURI string) {
	if docURI == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.open {
		if u == docURI {
			return
		}
	}
	r.open = append(r.open, docURI)
	r.logger.Debug("document opened", map[string]any{"uri": docURI})
}

func (r *Remote) untrack(docURI string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.open {
		if u == docURI {
			r.open = append(r.open[:i], r.open[i+1:]...)
			r.logger.Debug("document closed", map[string]any{"uri": docURI})
			return
		}
	}
}

var _ Host = (*Remote)(nil)
