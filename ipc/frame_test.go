package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/lintstatus/types"
)

func TestFrameRoundTrip_Status(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)
	in := &types.StatusParams{
		ID:             7,
		State:          types.WireLintStartFix,
		Documents:      []types.DocumentParams{{DocumentURI: "file:///A.groovy", UpdatedSource: strPtr("x = 1\n")}},
		LastFileName:   strPtr("A.groovy"),
		LastLintTimeMs: int64Ptr(120),
	}
	if err := enc.WriteStatus(in); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}

	payload, err := NewFrameDecoder(&buf).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	msg, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	got, ok := msg.(*types.StatusParams)
	if !ok {
		t.Fatalf("DecodeFrame returned %T, want *types.StatusParams", msg)
	}
	ev := got.Event()
	if ev.ID != 7 || ev.State != types.StateLintStartFix || ev.LastFileName != "A.groovy" {
		t.Errorf("event = %+v", ev)
	}
	if len(ev.Documents) != 1 || ev.Documents[0].UpdatedSource == nil || *ev.Documents[0].UpdatedSource != "x = 1\n" {
		t.Errorf("documents = %+v", ev.Documents)
	}
}

func TestFrameRoundTrip_OpenDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFrameEncoder(&buf).WriteOpenDocument(&types.OpenDocumentParams{File: "/src/A.groovy"}); err != nil {
		t.Fatalf("WriteOpenDocument: %v", err)
	}
	payload, err := NewFrameDecoder(&buf).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	msg, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if got := msg.(*types.OpenDocumentParams); got.File != "/src/A.groovy" {
		t.Errorf("file = %q", got.File)
	}
}

func TestReadFrame_Errors(t *testing.T) {
	oversized := make([]byte, LengthPrefixSize)
	binary.BigEndian.PutUint32(oversized, MaxPayloadSize+1)

	truncated := make([]byte, LengthPrefixSize+2)
	binary.BigEndian.PutUint32(truncated, 10)

	tests := []struct {
		name     string
		input    []byte
		wantEOF  bool
		wantKind FrameErrorKind
	}{
		{"empty stream", nil, true, 0},
		{"partial prefix", []byte{0, 0}, false, FrameErrorPartial},
		{"partial payload", truncated, false, FrameErrorPartial},
		{"oversized", oversized, false, FrameErrorTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFrameDecoder(bytes.NewReader(tt.input)).ReadFrame()
			if tt.wantEOF {
				if !errors.Is(err, io.EOF) {
					t.Fatalf("err = %v, want io.EOF", err)
				}
				return
			}
			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want *FrameError", err)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", fe.Kind, tt.wantKind)
			}
			if !fe.IsFatal() || !IsFatalFrameError(err) {
				t.Error("expected fatal frame error")
			}
		})
	}
}

func TestDecodeFrame_NonFatal(t *testing.T) {
	unknown, err := msgpack.Marshal(&Envelope{Type: "heartbeat"})
	if err != nil {
		t.Fatal(err)
	}
	badParams, err := msgpack.Marshal(&Envelope{Type: StatusType, Params: msgpack.RawMessage{0xc1}})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		payload  []byte
		wantKind FrameErrorKind
	}{
		{"unknown type", unknown, FrameErrorUnknownType},
		{"garbage envelope", []byte{0xc1}, FrameErrorDecode},
		{"bad params", badParams, FrameErrorDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(tt.payload)
			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want *FrameError", err)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", fe.Kind, tt.wantKind)
			}
			if fe.IsFatal() {
				t.Error("payload errors must not be fatal")
			}
		})
	}
}

func TestWriteFrame_TooLarge(t *testing.T) {
	err := NewFrameEncoder(io.Discard).WriteFrame(make([]byte, MaxPayloadSize+1))
	if !IsFatalFrameError(err) {
		t.Fatalf("err = %v, want fatal frame error", err)
	}
}
