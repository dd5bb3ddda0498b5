package journal

import (
	"encoding/json"
	"time"

	"github.com/pithecene-io/lintstatus/types"
)

// RecordKindStatus marks a journaled status notification.
const RecordKindStatus = "status"

// dayLayout formats the day partition.
const dayLayout = "2006-01-02"

// Entry is one journaled status notification.
type Entry struct {
	SessionID      string    `json:"session_id" yaml:"session_id"`
	Seq            int64     `json:"seq" yaml:"seq"`
	ReceivedAt     time.Time `json:"received_at" yaml:"received_at"`
	JobID          int64     `json:"job_id" yaml:"job_id"`
	State          string    `json:"state" yaml:"state"`
	LastFileName   string    `json:"last_file_name,omitempty" yaml:"last_file_name,omitempty"`
	LastLintTimeMs int64     `json:"last_lint_time_ms,omitempty" yaml:"last_lint_time_ms,omitempty"`
	Documents      []string  `json:"documents" yaml:"documents"`
}

// NewEntry captures ev as received at at.
func NewEntry(sessionID string, seq int64, ev types.StatusEvent, at time.Time) Entry {
	docs := make([]string, len(ev.Documents))
	for i, d := range ev.Documents {
		docs[i] = d.URI
	}
	state := ev.RawState
	if state == "" {
		state = ev.State.String()
	}
	return Entry{
		SessionID:      sessionID,
		Seq:            seq,
		ReceivedAt:     at.UTC(),
		JobID:          ev.ID,
		State:          state,
		LastFileName:   ev.LastFileName,
		LastLintTimeMs: ev.LastLintTime.Milliseconds(),
		Documents:      docs,
	}
}

// Event reconstructs the status event. Replacement sources are not
// journaled.
func (e Entry) Event() types.StatusEvent {
	ev := types.StatusEvent{
		ID:           e.JobID,
		State:        types.ParseJobState(e.State),
		RawState:     e.State,
		LastFileName: e.LastFileName,
		LastLintTime: time.Duration(e.LastLintTimeMs) * time.Millisecond,
	}
	if len(e.Documents) > 0 {
		ev.Documents = make([]types.Document, len(e.Documents))
		for i, uri := range e.Documents {
			ev.Documents[i] = types.Document{URI: uri}
		}
	}
	return ev
}

// toRecordMap renders e in the dataset's record shape. The partition keys
// session, day and state are included in every record; unknown wire states
// share the "unknown" partition and keep their raw value in raw_state.
func toRecordMap(e Entry) map[string]any {
	docs := make([]any, len(e.Documents))
	for i, d := range e.Documents {
		docs[i] = d
	}
	return map[string]any{
		"record_kind":       RecordKindStatus,
		keySession:          e.SessionID,
		keyDay:              e.ReceivedAt.Format(dayLayout),
		keyState:            types.ParseJobState(e.State).String(),
		"raw_state":         e.State,
		"seq":               e.Seq,
		"received_at":       e.ReceivedAt.Format(time.RFC3339Nano),
		"job_id":            e.JobID,
		"last_file_name":    e.LastFileName,
		"last_lint_time_ms": e.LastLintTimeMs,
		"documents":         docs,
	}
}

// fromRecordMap parses a record read back from the dataset. ok is false for
// records of another kind.
func fromRecordMap(m map[string]any) (Entry, bool) {
	if m["record_kind"] != RecordKindStatus {
		return Entry{}, false
	}
	e := Entry{
		SessionID:      toString(m[keySession]),
		Seq:            toInt64(m["seq"]),
		JobID:          toInt64(m["job_id"]),
		State:          toString(m["raw_state"]),
		LastFileName:   toString(m["last_file_name"]),
		LastLintTimeMs: toInt64(m["last_lint_time_ms"]),
	}
	if e.State == "" {
		e.State = toString(m[keyState])
	}
	if ts, err := time.Parse(time.RFC3339Nano, toString(m["received_at"])); err == nil {
		e.ReceivedAt = ts
	}
	if docs, ok := m["documents"].([]any); ok {
		e.Documents = make([]string, 0, len(docs))
		for _, d := range docs {
			e.Documents = append(e.Documents, toString(d))
		}
	}
	return e, true
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 accepts the numeric shapes a JSON codec may produce.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
