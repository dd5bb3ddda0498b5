package journal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// Filter selects journal entries. Empty fields match everything.
type Filter struct {
	SessionID string
	Day       string // YYYY-MM-DD
	State     string // raw wire state, exact match
	JobID     int64
	Limit     int // most recent N after filtering; 0 means all
}

// Read returns the entries matching f, oldest session first and in
// sequence order within each session.
func Read(ctx context.Context, ds lode.Dataset, f Filter) ([]Entry, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, string(ds.ID()))
	}

	var out []Entry
	for _, snap := range snapshots {
		if !snapshotMatches(snap, keySession, f.SessionID) || !snapshotMatches(snap, keyDay, f.Day) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		// Manifest paths are a coarse pre-filter; record fields are
		// authoritative.
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			e, ok := fromRecordMap(m)
			if !ok || !f.matches(e) {
				continue
			}
			out = append(out, e)
		}
	}

	sortEntries(out)

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

// Sessions lists the distinct session IDs in the journal, oldest first.
func Sessions(ctx context.Context, ds lode.Dataset) ([]string, error) {
	entries, err := Read(ctx, ds, Filter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if _, ok := seen[e.SessionID]; ok {
			continue
		}
		seen[e.SessionID] = struct{}{}
		out = append(out, e.SessionID)
	}
	return out, nil
}

// sortEntries orders entries by Seq within a session. Receive times only
// order sessions against each other, by the time of each session's lowest
// Seq, since a wall clock can step backward mid-session.
func sortEntries(entries []Entry) {
	first := make(map[string]Entry)
	for _, e := range entries {
		if cur, ok := first[e.SessionID]; !ok || e.Seq < cur.Seq {
			first[e.SessionID] = e
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.SessionID != b.SessionID {
			sa, sb := first[a.SessionID].ReceivedAt, first[b.SessionID].ReceivedAt
			if !sa.Equal(sb) {
				return sa.Before(sb)
			}
			return a.SessionID < b.SessionID
		}
		return a.Seq < b.Seq
	})
}

func (f Filter) matches(e Entry) bool {
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Day != "" && e.ReceivedAt.Format(dayLayout) != f.Day {
		return false
	}
	if f.State != "" && e.State != f.State {
		return false
	}
	if f.JobID != 0 && e.JobID != f.JobID {
		return false
	}
	return true
}

// snapshotMatches reports whether any file in snap lies under key=value.
// An empty value matches every snapshot.
func snapshotMatches(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	segment := key + "=" + value
	for _, f := range snap.Manifest.Files {
		for _, part := range strings.Split(f.Path, "/") {
			if part == segment {
				return true
			}
		}
	}
	return false
}
