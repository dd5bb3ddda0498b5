// Package ipc carries worker notifications into the coordinator over
// length-prefixed msgpack frames or JSON-RPC.
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/lintstatus/types"
)

// Frame size limits.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// Frame type discriminants.
const (
	StatusType       = "status"
	OpenDocumentType = "open_document"
)

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
	// FrameErrorUnknownType indicates a well-formed frame with an
	// unrecognized type.
	FrameErrorUnknownType
)

func (k FrameErrorKind) String() string {
	switch k {
	case FrameErrorPartial:
		return "partial"
	case FrameErrorTooLarge:
		return "too_large"
	case FrameErrorDecode:
		return "decode"
	case FrameErrorUnknownType:
		return "unknown_type"
	default:
		return "unknown"
	}
}

// FrameError represents a frame error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the stream can no longer be read. Framing cannot
// resync after a partial or oversized frame; a bad payload inside a good
// frame only loses that frame.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// Envelope is the msgpack payload of every frame.
type Envelope struct {
	Type   string             `msgpack:"type"`
	Params msgpack.RawMessage `msgpack:"params"`
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads the payload of one frame.
//
// Errors:
//   - io.EOF: stream ended on a frame boundary
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}

// DecodeFrame decodes a payload into *types.StatusParams or
// *types.OpenDocumentParams according to its envelope type.
func DecodeFrame(payload []byte) (any, error) {
	var env Envelope
	if err := msgpack.Unmarshal(payload, &env); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode envelope",
			Err:  err,
		}
	}

	var target any
	switch env.Type {
	case StatusType:
		target = &types.StatusParams{}
	case OpenDocumentType:
		target = &types.OpenDocumentParams{}
	default:
		return nil, &FrameError{
			Kind: FrameErrorUnknownType,
			Msg:  fmt.Sprintf("unknown frame type %q", env.Type),
		}
	}
	if err := msgpack.Unmarshal(env.Params, target); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("failed to decode %s params", env.Type),
			Err:  err,
		}
	}
	return target, nil
}

// FrameEncoder writes length-prefixed msgpack frames. The worker side of the
// channel and tests use it.
type FrameEncoder struct {
	writer io.Writer
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w}
}

// WriteStatus writes a status frame.
func (e *FrameEncoder) WriteStatus(p *types.StatusParams) error {
	return e.writeEnvelope(StatusType, p)
}

// WriteOpenDocument writes an open_document frame.
func (e *FrameEncoder) WriteOpenDocument(p *types.OpenDocumentParams) error {
	return e.writeEnvelope(OpenDocumentType, p)
}

// WriteFrame writes payload with its length prefix in a single write.
func (e *FrameEncoder) WriteFrame(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	_, err := e.writer.Write(buf)
	return err
}

func (e *FrameEncoder) writeEnvelope(frameType string, params any) error {
	raw, err := msgpack.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode %s params: %w", frameType, err)
	}
	payload, err := msgpack.Marshal(&Envelope{Type: frameType, Params: raw})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", frameType, err)
	}
	return e.WriteFrame(payload)
}
