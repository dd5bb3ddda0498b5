// Package types defines the status notification model shared by transports,
// the coordinator, and the journal.
//
//nolint:revive // types is a common Go package naming convention
package types

import "time"

// JobState is the closed vocabulary of job states reported by the worker.
type JobState int

const (
	// StateUnknown is any wire value outside the known vocabulary.
	StateUnknown JobState = iota
	// StateLintStart marks a lint job in progress.
	StateLintStart
	// StateLintStartFix marks a fix job in progress.
	StateLintStartFix
	// StateLintError marks a job that failed on its file.
	StateLintError
	// StateLintEnd marks job completion. Never resident in the registry.
	StateLintEnd
)

// Wire values for JobState.
const (
	WireLintStart    = "lint.start"
	WireLintStartFix = "lint.start.fix"
	WireLintError    = "lint.error"
	WireLintEnd      = "lint.end"
)

// ParseJobState maps a wire value onto the closed vocabulary.
// Unrecognized values yield StateUnknown.
func ParseJobState(s string) JobState {
	switch s {
	case WireLintStart:
		return StateLintStart
	case WireLintStartFix:
		return StateLintStartFix
	case WireLintError:
		return StateLintError
	case WireLintEnd:
		return StateLintEnd
	default:
		return StateUnknown
	}
}

// String returns the wire value, or "unknown".
func (s JobState) String() string {
	switch s {
	case StateLintStart:
		return WireLintStart
	case StateLintStartFix:
		return WireLintStartFix
	case StateLintError:
		return WireLintError
	case StateLintEnd:
		return WireLintEnd
	default:
		return "unknown"
	}
}

// IsActive reports whether events in this state become resident in the registry.
func (s JobState) IsActive() bool {
	return s == StateLintStart || s == StateLintStartFix || s == StateLintError
}

// Document is one file an event concerns.
type Document struct {
	// URI is the document URI, e.g. file:///src/A.groovy.
	URI string
	// UpdatedSource is replacement content for a fixed file, if any.
	UpdatedSource *string
}

// StatusEvent is one observation of one job. Treat as a value; never mutate
// after construction.
type StatusEvent struct {
	// ID identifies the job invocation; assigned by the worker.
	ID int64
	// State is the parsed job state.
	State JobState
	// RawState is the state string exactly as received.
	RawState string
	// Documents lists the files this event concerns, in wire order.
	Documents []Document
	// LastFileName is a display name for the file being processed.
	LastFileName string
	// LastLintTime is the reported elapsed time, zero when absent.
	LastLintTime time.Duration
}

// OpenDocumentRequest asks the editor to open and focus a path.
type OpenDocumentRequest struct {
	// File is a filesystem path.
	File string
}

// StatusParams is the wire payload of a status notification.
// Field names match the JSON the worker emits.
type StatusParams struct {
	ID             int64            `json:"id" msgpack:"id"`
	State          string           `json:"state" msgpack:"state"`
	Documents      []DocumentParams `json:"documents,omitempty" msgpack:"documents,omitempty"`
	LastFileName   *string          `json:"lastFileName,omitempty" msgpack:"lastFileName,omitempty"`
	LastLintTimeMs *int64           `json:"lastLintTimeMs,omitempty" msgpack:"lastLintTimeMs,omitempty"`
}

// DocumentParams is the wire form of a Document.
type DocumentParams struct {
	DocumentURI   string  `json:"documentUri" msgpack:"documentUri"`
	UpdatedSource *string `json:"updatedSource,omitempty" msgpack:"updatedSource,omitempty"`
}

// OpenDocumentParams is the wire payload of an openDocument notification.
type OpenDocumentParams struct {
	File string `json:"file" msgpack:"file"`
}

// Event converts the wire payload into a StatusEvent.
func (p *StatusParams) Event() StatusEvent {
	ev := StatusEvent{
		ID:       p.ID,
		State:    ParseJobState(p.State),
		RawState: p.State,
	}
	if len(p.Documents) > 0 {
		ev.Documents = make([]Document, len(p.Documents))
		for i, d := range p.Documents {
			ev.Documents[i] = Document{URI: d.DocumentURI, UpdatedSource: d.UpdatedSource}
		}
	}
	if p.LastFileName != nil {
		ev.LastFileName = *p.LastFileName
	}
	if p.LastLintTimeMs != nil && *p.LastLintTimeMs > 0 {
		ev.LastLintTime = time.Duration(*p.LastLintTimeMs) * time.Millisecond
	}
	return ev
}

// Params converts a StatusEvent back into its wire payload.
func (e StatusEvent) Params() StatusParams {
	p := StatusParams{ID: e.ID, State: e.RawState}
	if p.State == "" {
		p.State = e.State.String()
	}
	if len(e.Documents) > 0 {
		p.Documents = make([]DocumentParams, len(e.Documents))
		for i, d := range e.Documents {
			p.Documents[i] = DocumentParams{DocumentURI: d.URI, UpdatedSource: d.UpdatedSource}
		}
	}
	if e.LastFileName != "" {
		name := e.LastFileName
		p.LastFileName = &name
	}
	if e.LastLintTime > 0 {
		ms := e.LastLintTime.Milliseconds()
		p.LastLintTimeMs = &ms
	}
	return p
}

// Request converts the wire payload into an OpenDocumentRequest.
func (p *OpenDocumentParams) Request() OpenDocumentRequest {
	return OpenDocumentRequest{File: p.File}
}
