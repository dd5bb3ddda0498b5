package indicator

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pithecene-io/lintstatus/log"
	"github.com/pithecene-io/lintstatus/presenter"
	"github.com/pithecene-io/lintstatus/types"
)

type recordingWidget struct {
	calls []string
}

func (r *recordingWidget) Show(_ context.Context, d presenter.Display) error {
	r.calls = append(r.calls, "show:"+string(d.Icon))
	return nil
}

func (r *recordingWidget) Update(_ context.Context, d presenter.Display) error {
	r.calls = append(r.calls, "update:"+string(d.Icon))
	return nil
}

func (r *recordingWidget) Dispose(context.Context) error {
	r.calls = append(r.calls, "dispose")
	return nil
}

func TestDedup_SuppressesRepeats(t *testing.T) {
	inner := &recordingWidget{}
	w := NewDedup(inner)
	ctx := t.Context()

	reducer := presenter.Reducer{Label: presenter.DefaultLabel}
	idle := reducer.Reduce(nil)
	busy := reducer.Reduce([]types.StatusEvent{{ID: 1, State: types.StateLintStart, LastFileName: "A.groovy"}})

	_ = w.Show(ctx, reducer.Loading())
	_ = w.Update(ctx, idle)
	_ = w.Update(ctx, idle)
	_ = w.Update(ctx, busy)
	_ = w.Update(ctx, reducer.Reduce([]types.StatusEvent{{ID: 1, State: types.StateLintStart, LastFileName: "A.groovy"}}))
	_ = w.Update(ctx, idle)
	_ = w.Dispose(ctx)

	want := []string{"show:loading", "update:idle", "update:syncing", "update:idle", "dispose"}
	if strings.Join(inner.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", inner.calls, want)
	}
}

func TestDedup_TooltipChangeIsForwarded(t *testing.T) {
	inner := &recordingWidget{}
	w := NewDedup(inner)
	ctx := t.Context()

	tooltip := []string{"Analyzing A.groovy"}
	d := presenter.Display{Icon: presenter.IconSyncing, Color: presenter.ColorBusy, Tooltip: tooltip}
	_ = w.Update(ctx, d)

	// Mutating the caller's slice must not alias the remembered display.
	tooltip[0] = "Analyzing B.groovy"
	_ = w.Update(ctx, d)

	if len(inner.calls) != 2 {
		t.Errorf("calls = %v, want 2 updates", inner.calls)
	}
}

func TestLogWidget(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogger(types.Session{ID: "sess"}).WithOutput(&buf)
	w := NewLogWidget(logger)
	ctx := t.Context()

	_ = w.Show(ctx, presenter.Display{Icon: presenter.IconLoading, Color: presenter.ColorNeutral, Label: "GroovyLint"})
	_ = w.Update(ctx, presenter.Display{Icon: presenter.IconError, Color: presenter.ColorError, Tooltip: []string{"Error while processing B.groovy"}})
	_ = w.Dispose(ctx)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d log lines, want 3:\n%s", len(lines), buf.String())
	}
	var entry struct {
		Message string `json:"message"`
		Fields  struct {
			Icon    string   `json:"icon"`
			Tooltip []string `json:"tooltip"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Message != "indicator updated" || entry.Fields.Icon != "error" {
		t.Errorf("entry = %+v", entry)
	}
	if len(entry.Fields.Tooltip) != 1 || entry.Fields.Tooltip[0] != "Error while processing B.groovy" {
		t.Errorf("tooltip = %v", entry.Fields.Tooltip)
	}
}
