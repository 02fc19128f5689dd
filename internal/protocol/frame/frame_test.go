package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/duploctl/internal/protocol"
	"github.com/danmuck/duploctl/internal/testutil/testlog"
)

func TestDecodeHeaderAttachedIO(t *testing.T) {
	testlog.Start(t)

	h, err := DecodeHeader([]byte{0x0F, 0x00, 0x04})
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	want := Header{Length: 15, HubID: 0, MessageType: protocol.MessageHubAttachedIO}
	if h != want {
		t.Fatalf("header mismatch: got=%+v want=%+v", h, want)
	}
}

func TestDecodeHeaderIgnoresTrailingBytes(t *testing.T) {
	testlog.Start(t)

	h, err := DecodeHeader([]byte{0x05, 0x00, 0x82, 0x00, 0x0A})
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if h.Length != 5 || h.MessageType != protocol.MessagePortOutputCommandFeedback {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestDecodeHeaderUnknownTypeIsNotAnError(t *testing.T) {
	testlog.Start(t)

	h, err := DecodeHeader([]byte{0x03, 0x00, 0x99})
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if h.MessageType.Known() {
		t.Fatalf("expected unknown message type, got %s", h.MessageType)
	}
}

func TestDecodeHeaderTruncated(t *testing.T) {
	testlog.Start(t)

	for _, in := range [][]byte{nil, {0x03}, {0x03, 0x00}} {
		if _, err := DecodeHeader(in); !errors.Is(err, protocol.ErrTruncated) {
			t.Fatalf("len=%d: expected ErrTruncated, got %v", len(in), err)
		}
	}
}

func TestEncodeHeaderRoundTrip(t *testing.T) {
	testlog.Start(t)

	in := Header{Length: 8, HubID: DefaultHubID, MessageType: protocol.MessagePortOutputCommand}
	b := EncodeHeader(in)
	if !bytes.Equal(b, []byte{0x08, 0x00, 0x81}) {
		t.Fatalf("encode mismatch: %x", b)
	}
	out, err := DecodeHeader(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", out, in)
	}
}

func TestReadFrameStream(t *testing.T) {
	testlog.Start(t)

	first := []byte{0x05, 0x00, 0x82, 0x00, 0x0A}
	second := []byte{0x04, 0x00, 0x45, 0x01}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, first); err != nil {
		t.Fatalf("write first: %v", err)
	}
	if err := WriteFrame(&buf, second); err != nil {
		t.Fatalf("write second: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Fatalf("first mismatch: %x", got)
	}
	got, err = ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Fatalf("second mismatch: %x", got)
	}
	if _, err := ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReadFrameMalformed(t *testing.T) {
	testlog.Start(t)

	if _, err := ReadFrame(bytes.NewReader([]byte{0x05, 0x00})); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
	if _, err := ReadFrame(bytes.NewReader([]byte{0x02, 0x00, 0x04})); !errors.Is(err, ErrLengthSmall) {
		t.Fatalf("expected ErrLengthSmall, got %v", err)
	}
	if _, err := ReadFrame(bytes.NewReader([]byte{0x0F, 0x00, 0x04, 0x14})); !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
