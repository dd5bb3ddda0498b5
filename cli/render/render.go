// Package render provides output rendering for the lintstatus CLI.
//
// Format selection:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format flag always overrides defaults
//   - Invalid formats are errors
//
// --no-color affects table output only.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/lintstatus/indicator"
	"github.com/pithecene-io/lintstatus/journal"
	"github.com/pithecene-io/lintstatus/metrics"
	"github.com/pithecene-io/lintstatus/presenter"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil // Let caller decide default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// ReplayStep is one journal entry and the indicator display after it.
type ReplayStep struct {
	Seq      int64             `json:"seq" yaml:"seq"`
	JobID    int64             `json:"job_id" yaml:"job_id"`
	State    string            `json:"state" yaml:"state"`
	FileName string            `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	Display  presenter.Display `json:"display" yaml:"display"`
}

// Renderer handles output formatting.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer from CLI context.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	if format == "" {
		if isTTY(os.Stdout) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color"),
		out:     os.Stdout,
	}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{
		format:  format,
		noColor: noColor,
		out:     out,
	}
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		return enc.Encode(data)
	case FormatTable:
		return r.renderTable(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

func (r *Renderer) renderTable(data any) error {
	switch v := data.(type) {
	case []journal.Entry:
		return r.entriesTable(v)
	case []ReplayStep:
		return r.replayTable(v)
	case metrics.Snapshot:
		return r.snapshotTable(v)
	case presenter.Display:
		return r.display(v)
	case []string:
		if len(v) == 0 {
			fmt.Fprintln(r.out, "(no results)")
			return nil
		}
		_, err := fmt.Fprintln(r.out, strings.Join(v, "\n"))
		return err
	default:
		return r.genericTable(data)
	}
}

func (r *Renderer) entriesTable(entries []journal.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "(no results)")
		return nil
	}
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tSESSION\tSEQ\tJOB\tSTATE\tFILE\tDOCS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%d\n",
			e.ReceivedAt.Format(time.RFC3339), shortID(e.SessionID), e.Seq,
			e.JobID, e.State, e.LastFileName, len(e.Documents))
	}
	return w.Flush()
}

func (r *Renderer) replayTable(steps []ReplayStep) error {
	if len(steps) == 0 {
		fmt.Fprintln(r.out, "(no results)")
		return nil
	}
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tJOB\tSTATE\tFILE\tICON\tTOOLTIP")
	for _, s := range steps {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
			s.Seq, s.JobID, s.State, s.FileName, s.Display.Icon, strings.Join(s.Display.Tooltip, "; "))
	}
	return w.Flush()
}

func (r *Renderer) snapshotTable(s metrics.Snapshot) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	rows := []struct {
		key string
		val any
	}{
		{"session_id", s.SessionID},
		{"transport", s.Transport},
		{"editor", s.Editor},
		{"events_received", s.EventsReceived},
		{"unknown_states", s.UnknownStates},
		{"open_requests", s.OpenRequests},
		{"ipc_decode_errors", s.IPCDecodeErrors},
		{"documents_shown", s.DocumentsShown},
		{"documents_skipped", s.DocumentsSkipped},
		{"editor_failures", s.EditorFailures},
		{"diagnostics_cleared", s.DiagnosticsCleared},
		{"indicator_updates", s.IndicatorUpdates},
		{"fallback_lines", s.FallbackLines},
		{"completions_published", s.CompletionsPublished},
		{"completions_dropped", s.CompletionsDropped},
		{"completions_failed", s.CompletionsFailed},
		{"journal_writes", s.JournalWrites},
		{"journal_failures", s.JournalFailures},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s:\t%v\n", row.key, row.val)
	}

	states := make([]string, 0, len(s.EventsByState))
	for st := range s.EventsByState {
		states = append(states, st)
	}
	sort.Strings(states)
	for _, st := range states {
		fmt.Fprintf(w, "events[%s]:\t%d\n", st, s.EventsByState[st])
	}
	return w.Flush()
}

func (r *Renderer) display(d presenter.Display) error {
	if !r.noColor {
		_, err := fmt.Fprintln(r.out, indicator.Render(d, ""))
		return err
	}
	fmt.Fprintf(r.out, "%s %s %s\n", indicator.Glyph(d.Icon), d.Label, d.Icon)
	for _, line := range d.Tooltip {
		fmt.Fprintf(r.out, "  %s\n", line)
	}
	return nil
}

// genericTable renders a struct or map as key/value rows.
func (r *Renderer) genericTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			fmt.Fprintf(w, "%s:\t%s\n", fieldName(t.Field(i)), formatValue(v.Field(i)))
		}
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			fmt.Fprintf(w, "%v:\t%s\n", k.Interface(), formatValue(v.MapIndex(k)))
		}
	default:
		fmt.Fprintf(w, "%v\n", data)
	}
	return w.Flush()
}

func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		if t, ok := v.Interface().(time.Time); ok {
			return t.Format(time.RFC3339)
		}
		return "{...}"
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// shortID trims a session UUID to its first group for table display.
func shortID(id string) string {
	if head, _, ok := strings.Cut(id, "-"); ok {
		return head
	}
	return id
}

// isTTY returns true if the writer is a TTY.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
