// Package metrics provides per-session counters for the status coordinator.
//
// The Collector is a leaf package with no internal dependencies. Events are
// keyed by their wire state string so unknown states stay visible.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Inbound
	EventsReceived  int64            `json:"events_received" yaml:"events_received"`
	EventsByState   map[string]int64 `json:"events_by_state" yaml:"events_by_state"`
	UnknownStates   int64            `json:"unknown_states" yaml:"unknown_states"`
	OpenRequests    int64            `json:"open_requests" yaml:"open_requests"`
	IPCDecodeErrors int64            `json:"ipc_decode_errors" yaml:"ipc_decode_errors"`

	// Editor
	DocumentsShown   int64 `json:"documents_shown" yaml:"documents_shown"`
	DocumentsSkipped int64 `json:"documents_skipped" yaml:"documents_skipped"`
	EditorFailures   int64 `json:"editor_failures" yaml:"editor_failures"`

	// Surfaces
	DiagnosticsCleared int64 `json:"diagnostics_cleared" yaml:"diagnostics_cleared"`
	IndicatorUpdates   int64 `json:"indicator_updates" yaml:"indicator_updates"`
	FallbackLines      int64 `json:"fallback_lines" yaml:"fallback_lines"`

	// Side deliveries
	CompletionsPublished int64 `json:"completions_published" yaml:"completions_published"`
	CompletionsDropped   int64 `json:"completions_dropped" yaml:"completions_dropped"`
	CompletionsFailed    int64 `json:"completions_failed" yaml:"completions_failed"`
	JournalWrites        int64 `json:"journal_writes" yaml:"journal_writes"`
	JournalFailures      int64 `json:"journal_failures" yaml:"journal_failures"`

	// Dimensions
	SessionID string `json:"session_id" yaml:"session_id"`
	Transport string `json:"transport" yaml:"transport"`
	Editor    string `json:"editor" yaml:"editor"`
}

// Collector accumulates counters during a session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	eventsReceived  int64
	eventsByState   map[string]int64
	unknownStates   int64
	openRequests    int64
	ipcDecodeErrors int64

	documentsShown   int64
	documentsSkipped int64
	editorFailures   int64

	diagnosticsCleared int64
	indicatorUpdates   int64
	fallbackLines      int64

	completionsPublished int64
	completionsDropped   int64
	completionsFailed    int64
	journalWrites        int64
	journalFailures      int64

	sessionID string
	transport string
	editor    string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(sessionID, transport, editor string) *Collector {
	return &Collector{
		eventsByState: make(map[string]int64),
		sessionID:     sessionID,
		transport:     transport,
		editor:        editor,
	}
}

func (c *Collector) add(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Inbound ---

// IncEvent records a received status event under its wire state.
func (c *Collector) IncEvent(state string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsReceived++
	c.eventsByState[state]++
	c.mu.Unlock()
}

// IncUnknownState records an event whose state is outside the vocabulary.
func (c *Collector) IncUnknownState() {
	if c == nil {
		return
	}
	c.add(&c.unknownStates)
}

// IncOpenRequest records an openDocument notification.
func (c *Collector) IncOpenRequest() {
	if c == nil {
		return
	}
	c.add(&c.openRequests)
}

// IncIPCDecodeErrors records a payload that could not be decoded.
func (c *Collector) IncIPCDecodeErrors() {
	if c == nil {
		return
	}
	c.add(&c.ipcDecodeErrors)
}

// --- Editor ---

// IncDocumentShown records a document brought to a non-preview tab.
func (c *Collector) IncDocumentShown() {
	if c == nil {
		return
	}
	c.add(&c.documentsShown)
}

// IncDocumentSkipped records a document that was not open when shown.
func (c *Collector) IncDocumentSkipped() {
	if c == nil {
		return
	}
	c.add(&c.documentsSkipped)
}

// IncEditorFailure records a failed editor call.
func (c *Collector) IncEditorFailure() {
	if c == nil {
		return
	}
	c.add(&c.editorFailures)
}

// --- Surfaces ---

// IncDiagnosticsCleared records a diagnostics clear for a closed document.
func (c *Collector) IncDiagnosticsCleared() {
	if c == nil {
		return
	}
	c.add(&c.diagnosticsCleared)
}

// IncIndicatorUpdate records a display written to the widget.
func (c *Collector) IncIndicatorUpdate() {
	if c == nil {
		return
	}
	c.add(&c.indicatorUpdates)
}

// IncFallbackLine records a display containing the unknown-state line.
func (c *Collector) IncFallbackLine() {
	if c == nil {
		return
	}
	c.add(&c.fallbackLines)
}

// --- Side deliveries ---

// IncCompletionPublished records a delivered completion notice.
func (c *Collector) IncCompletionPublished() {
	if c == nil {
		return
	}
	c.add(&c.completionsPublished)
}

// IncCompletionDropped records a notice dropped because the queue was full.
func (c *Collector) IncCompletionDropped() {
	if c == nil {
		return
	}
	c.add(&c.completionsDropped)
}

// IncCompletionFailed records a notice that failed after all retries.
func (c *Collector) IncCompletionFailed() {
	if c == nil {
		return
	}
	c.add(&c.completionsFailed)
}

// IncJournalWrite records a successful journal flush (per call, not per record).
func (c *Collector) IncJournalWrite() {
	if c == nil {
		return
	}
	c.add(&c.journalWrites)
}

// IncJournalFailure records a failed journal flush.
func (c *Collector) IncJournalFailure() {
	if c == nil {
		return
	}
	c.add(&c.journalFailures)
}

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byState := make(map[string]int64, len(c.eventsByState))
	for k, v := range c.eventsByState {
		byState[k] = v
	}

	return Snapshot{
		EventsReceived:  c.eventsReceived,
		EventsByState:   byState,
		UnknownStates:   c.unknownStates,
		OpenRequests:    c.openRequests,
		IPCDecodeErrors: c.ipcDecodeErrors,

		DocumentsShown:   c.documentsShown,
		DocumentsSkipped: c.documentsSkipped,
		EditorFailures:   c.editorFailures,

		DiagnosticsCleared: c.diagnosticsCleared,
		IndicatorUpdates:   c.indicatorUpdates,
		FallbackLines:      c.fallbackLines,

		CompletionsPublished: c.completionsPublished,
		CompletionsDropped:   c.completionsDropped,
		CompletionsFailed:    c.completionsFailed,
		JournalWrites:        c.journalWrites,
		JournalFailures:      c.journalFailures,

		SessionID: c.sessionID,
		Transport: c.transport,
		Editor:    c.editor,
	}
}
