// Package presenter reduces a registry snapshot to the indicator display.
//
// Reduce is pure: it reads only its argument and returns a fresh Display.
package presenter

import (
	"fmt"
	"slices"

	"github.com/pithecene-io/lintstatus/types"
)

// DefaultLabel is the widget text when no label is configured.
const DefaultLabel = "GroovyLint"

// UnknownStateLine is the tooltip line for a resident event whose state the
// reducer does not recognize. Registry invariants keep it unreachable; seeing
// it means a state leaked into the registry.
const UnknownStateLine = "ERROR in lint status: unknown job state (please report this)"

// Icon identifies the indicator glyph.
type Icon string

// Icons.
const (
	IconLoading Icon = "loading"
	IconIdle    Icon = "idle"
	IconSyncing Icon = "syncing"
	IconFixing  Icon = "fixing"
	IconError   Icon = "error"
)

// ColorRole is a semantic color; widgets map it to a concrete palette.
type ColorRole string

// Color roles.
const (
	ColorNeutral ColorRole = "neutral"
	ColorBusy    ColorRole = "busy"
	ColorError   ColorRole = "error"
)

// Display is everything a widget shows.
type Display struct {
	Icon    Icon      `json:"icon" yaml:"icon"`
	Color   ColorRole `json:"color" yaml:"color"`
	Label   string    `json:"label" yaml:"label"`
	Tooltip []string  `json:"tooltip" yaml:"tooltip"`
}

// Equal reports whether two displays render identically.
func (d Display) Equal(o Display) bool {
	return d.Icon == o.Icon &&
		d.Color == o.Color &&
		d.Label == o.Label &&
		slices.Equal(d.Tooltip, o.Tooltip)
}

// Busy reports whether the display represents running work.
func (d Display) Busy() bool {
	return d.Icon == IconSyncing || d.Icon == IconFixing || d.Icon == IconLoading
}

// Reducer carries display configuration. The zero value uses DefaultLabel.
type Reducer struct {
	Label string
}

// Loading returns the display shown before any status event arrives.
func (r Reducer) Loading() Display {
	return Display{
		Icon:    IconLoading,
		Color:   ColorNeutral,
		Label:   r.label(),
		Tooltip: []string{r.label() + " is loading"},
	}
}

// Reduce maps a snapshot to a display. Icon and color follow a fixed
// priority over the whole snapshot: fixing, then analyzing, then error,
// then idle. Tooltip lines follow snapshot order.
func (r Reducer) Reduce(snapshot []types.StatusEvent) Display {
	d := Display{
		Icon:  IconIdle,
		Color: ColorNeutral,
		Label: r.label(),
	}

	switch {
	case hasState(snapshot, types.StateLintStartFix):
		d.Icon, d.Color = IconFixing, ColorBusy
	case hasState(snapshot, types.StateLintStart):
		d.Icon, d.Color = IconSyncing, ColorBusy
	case hasState(snapshot, types.StateLintError):
		d.Icon, d.Color = IconError, ColorError
	}

	if len(snapshot) > 0 {
		d.Tooltip = make([]string, len(snapshot))
		for i, ev := range snapshot {
			d.Tooltip[i] = TooltipLine(ev)
		}
	}
	return d
}

// TooltipLine formats one resident event.
func TooltipLine(ev types.StatusEvent) string {
	switch ev.State {
	case types.StateLintStart:
		return fmt.Sprintf("Analyzing %s", ev.LastFileName)
	case types.StateLintStartFix:
		return fmt.Sprintf("Fixing %s", ev.LastFileName)
	case types.StateLintError:
		return fmt.Sprintf("Error while processing %s", ev.LastFileName)
	default:
		// lint.end and unknown states never reach the registry.
		return UnknownStateLine
	}
}

// HasUnknownLine reports whether the display contains the fallback line.
func HasUnknownLine(d Display) bool {
	return slices.Contains(d.Tooltip, UnknownStateLine)
}

func (r Reducer) label() string {
	if r.Label == "" {
		return DefaultLabel
	}
	return r.Label
}

func hasState(snapshot []types.StatusEvent, state types.JobState) bool {
	for _, ev := range snapshot {
		if ev.State == state {
			return true
		}
	}
	return false
}
