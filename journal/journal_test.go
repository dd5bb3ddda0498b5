package journal

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/lintstatus/metrics"
	"github.com/pithecene-io/lintstatus/types"
)

func memoryDataset(t *testing.T) lode.Dataset {
	t.Helper()
	ds, err := NewDataset("lintstatus", SharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	return ds
}

// fixedClock returns a clock advancing one second per call from base.
func fixedClock(base time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func status(id int64, state, file string, uris ...string) types.StatusEvent {
	p := types.StatusParams{ID: id, State: state}
	if file != "" {
		p.LastFileName = &file
	}
	for _, u := range uris {
		p.Documents = append(p.Documents, types.DocumentParams{DocumentURI: u})
	}
	return p.Event()
}

func TestRecorder_CloseFlushesAndReadRoundTrips(t *testing.T) {
	ds := memoryDataset(t)
	col := metrics.NewCollector("sess-a", "frame", "workspace")
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	r := NewRecorder(ds, RecorderConfig{SessionID: "sess-a", FlushInterval: time.Hour, Collector: col, Now: fixedClock(base)})

	in := []types.StatusEvent{
		status(1, types.WireLintStart, "A.groovy", "file:///A.groovy"),
		status(1, types.WireLintEnd, "A.groovy", "file:///A.groovy"),
		status(2, "lint.paused", "B.groovy"),
	}
	for _, ev := range in {
		if err := r.Record(ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := r.Close(t.Context()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.Record(in[0]); !errors.Is(err, ErrClosed) {
		t.Errorf("Record after Close = %v, want ErrClosed", err)
	}

	got, err := Read(t.Context(), ds, Filter{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	for i, e := range got {
		if e.Seq != int64(i+1) {
			t.Errorf("entry %d seq = %d", i, e.Seq)
		}
		if e.SessionID != "sess-a" {
			t.Errorf("entry %d session = %q", i, e.SessionID)
		}
	}
	if got[0].State != types.WireLintStart || len(got[0].Documents) != 1 || got[0].Documents[0] != "file:///A.groovy" {
		t.Errorf("first entry = %+v", got[0])
	}
	if !got[0].ReceivedAt.Equal(base.Add(time.Second)) {
		t.Errorf("ReceivedAt = %v", got[0].ReceivedAt)
	}

	unknown := got[2].Event()
	if unknown.State != types.StateUnknown || unknown.RawState != "lint.paused" {
		t.Errorf("unknown entry event = %+v", unknown)
	}
	if ev := got[1].Event(); ev.State != types.StateLintEnd || ev.ID != 1 || ev.LastFileName != "A.groovy" {
		t.Errorf("end entry event = %+v", ev)
	}
	if snap := col.Snapshot(); snap.JournalWrites != 1 || snap.JournalFailures != 0 {
		t.Errorf("journal writes = %d, failures = %d", snap.JournalWrites, snap.JournalFailures)
	}
}

func TestRecorder_CountTrigger(t *testing.T) {
	ds := memoryDataset(t)
	r := NewRecorder(ds, RecorderConfig{SessionID: "s", FlushCount: 2, FlushInterval: time.Hour})
	defer func() { _ = r.Close(t.Context()) }()

	_ = r.Record(status(1, types.WireLintStart, "A.groovy"))
	_ = r.Record(status(2, types.WireLintStart, "B.groovy"))

	deadline := time.Now().Add(5 * time.Second)
	for r.Buffered() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("count trigger did not flush")
		}
		time.Sleep(5 * time.Millisecond)
	}

	got, err := Read(t.Context(), ds, Filter{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d entries, want 2", len(got))
	}
}

func TestRecorder_IntervalTrigger(t *testing.T) {
	ds := memoryDataset(t)
	r := NewRecorder(ds, RecorderConfig{SessionID: "s", FlushCount: 100, FlushInterval: 10 * time.Millisecond})
	defer func() { _ = r.Close(t.Context()) }()

	_ = r.Record(status(1, types.WireLintError, "A.groovy"))

	deadline := time.Now().Add(5 * time.Second)
	for r.Buffered() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("interval trigger did not flush")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRead_Filters(t *testing.T) {
	ds := memoryDataset(t)
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	for _, sess := range []string{"sess-a", "sess-b"} {
		r := NewRecorder(ds, RecorderConfig{SessionID: sess, FlushInterval: time.Hour, Now: fixedClock(base)})
		for id := int64(1); id <= 3; id++ {
			_ = r.Record(status(id, types.WireLintStart, fmt.Sprintf("F%d.groovy", id)))
			_ = r.Record(status(id, types.WireLintEnd, fmt.Sprintf("F%d.groovy", id)))
		}
		if err := r.Close(t.Context()); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	tests := []struct {
		name string
		f    Filter
		want int
	}{
		{"all", Filter{}, 12},
		{"session", Filter{SessionID: "sess-b"}, 6},
		{"state", Filter{State: types.WireLintEnd}, 6},
		{"job", Filter{SessionID: "sess-a", JobID: 2}, 2},
		{"day hit", Filter{Day: "2026-10-16"}, 12},
		{"day miss", Filter{Day: "2026-10-17"}, 0},
		{"limit", Filter{SessionID: "sess-a", Limit: 4}, 4},
		{"missing session", Filter{SessionID: "nope"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(t.Context(), ds, tt.f)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}

	limited, _ := Read(t.Context(), ds, Filter{SessionID: "sess-a", Limit: 1})
	if len(limited) != 1 || limited[0].Seq != 6 {
		t.Errorf("Limit should keep the most recent entry, got %+v", limited)
	}

	sessions, err := Sessions(t.Context(), ds)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("Sessions = %v, want 2", sessions)
	}
}

// backwardClock returns a clock stepping back one second per call from base.
func backwardClock(base time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return base.Add(-time.Duration(n) * time.Second)
	}
}

func TestRead_OrdersBySeqWhenClockStepsBack(t *testing.T) {
	ds := memoryDataset(t)
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	late := NewRecorder(ds, RecorderConfig{SessionID: "sess-late", FlushInterval: time.Hour, Now: backwardClock(base.Add(time.Hour))})
	_ = late.Record(status(1, types.WireLintStart, "A.groovy"))
	_ = late.Record(status(1, types.WireLintEnd, "A.groovy"))
	if err := late.Close(t.Context()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	early := NewRecorder(ds, RecorderConfig{SessionID: "sess-early", FlushInterval: time.Hour, Now: fixedClock(base)})
	_ = early.Record(status(7, types.WireLintStart, "B.groovy"))
	if err := early.Close(t.Context()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := Read(t.Context(), ds, Filter{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []struct {
		session string
		seq     int64
		state   string
	}{
		{"sess-early", 1, types.WireLintStart},
		{"sess-late", 1, types.WireLintStart},
		{"sess-late", 2, types.WireLintEnd},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].SessionID != w.session || got[i].Seq != w.seq || got[i].State != w.state {
			t.Errorf("entry %d = %s/%d/%s, want %s/%d/%s",
				i, got[i].SessionID, got[i].Seq, got[i].State, w.session, w.seq, w.state)
		}
	}
}

func TestOpenDataset_FS(t *testing.T) {
	dir := t.TempDir()
	ds, err := OpenDataset(t.Context(), StoreConfig{Backend: BackendFS, Path: dir})
	if err != nil {
		t.Fatalf("OpenDataset: %v", err)
	}
	if ds.ID() != DefaultDataset {
		t.Errorf("dataset = %q, want %q", ds.ID(), DefaultDataset)
	}

	r := NewRecorder(ds, RecorderConfig{SessionID: "fs-sess", FlushInterval: time.Hour})
	_ = r.Record(status(7, types.WireLintStartFix, "C.groovy", "file:///C.groovy"))
	if err := r.Close(t.Context()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected files under %s, err=%v", dir, err)
	}

	got, err := Read(t.Context(), ds, Filter{SessionID: "fs-sess"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 1 || got[0].JobID != 7 || got[0].State != types.WireLintStartFix {
		t.Errorf("entries = %+v", got)
	}
}

func TestStoreConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StoreConfig
		wantErr bool
	}{
		{"memory", StoreConfig{Backend: BackendMemory}, false},
		{"fs", StoreConfig{Backend: BackendFS, Path: "/var/lib/lintstatus"}, false},
		{"fs without path", StoreConfig{Backend: BackendFS}, true},
		{"s3", StoreConfig{Backend: BackendS3, Path: "bucket/prefix"}, false},
		{"s3 without bucket", StoreConfig{Backend: BackendS3}, true},
		{"unknown", StoreConfig{Backend: "tape"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in, bucket, prefix string
	}{
		{"bucket", "bucket", ""},
		{"bucket/journal", "bucket", "journal"},
		{"bucket/a/b", "bucket", "a/b"},
	}
	for _, tt := range tests {
		b, p := ParseS3Path(tt.in)
		if b != tt.bucket || p != tt.prefix {
			t.Errorf("ParseS3Path(%q) = %q, %q", tt.in, b, p)
		}
	}
}

func TestStorageErrorClassification(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{errors.New("open /x: permission denied"), ErrPermissionDenied},
		{errors.New("NoSuchBucket: the bucket does not exist"), ErrNotFound},
		{errors.New("write: no space left on device"), ErrDiskFull},
		{errors.New("dial tcp: connection refused"), ErrNetwork},
		{errors.New("failed to retrieve credentials"), ErrAuth},
		{errors.New("something odd"), ErrStorage},
	}
	for _, tt := range tests {
		err := WrapWriteError(tt.err, "lintstatus")
		if !errors.Is(err, tt.want) {
			t.Errorf("WrapWriteError(%q) kind mismatch: %v", tt.err, err)
		}
		if !errors.Is(err, tt.err) {
			t.Errorf("underlying error lost: %v", err)
		}
	}
	if WrapReadError(nil, "x") != nil {
		t.Error("nil error should stay nil")
	}
}
