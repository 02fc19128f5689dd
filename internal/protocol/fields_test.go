package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/duploctl/internal/testutil/testlog"
)

func TestReaderLittleEndianFields(t *testing.T) {
	testlog.Start(t)

	r := NewReader([]byte{0x14, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x5A})
	u16, err := r.Uint16("io_type")
	if err != nil {
		t.Fatalf("uint16: %v", err)
	}
	if u16 != 0x0014 {
		t.Fatalf("uint16 mismatch: got=0x%04x", u16)
	}
	u32, err := r.Uint32("revision")
	if err != nil {
		t.Fatalf("uint32: %v", err)
	}
	if u32 != 1 {
		t.Fatalf("uint32 mismatch: got=%d", u32)
	}
	flag, err := r.Flag("notify")
	if err != nil || !flag {
		t.Fatalf("flag: got=%v err=%v", flag, err)
	}
	hi, lo, err := r.Nibbles("startup_and_completion")
	if err != nil {
		t.Fatalf("nibbles: %v", err)
	}
	if hi != 5 || lo != 0x0A {
		t.Fatalf("nibbles mismatch: hi=%d lo=%d", hi, lo)
	}
	if r.Len() != 0 {
		t.Fatalf("expected reader drained, %d left", r.Len())
	}
}

func TestReaderTruncatedNamesField(t *testing.T) {
	testlog.Start(t)

	r := NewReader([]byte{0x01, 0x02, 0x03})
	_, err := r.Uint32("hardware_revision")
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	var te TruncatedError
	if !errors.As(err, &te) {
		t.Fatalf("expected TruncatedError, got %T", err)
	}
	if te.Field != "hardware_revision" || te.Need != 4 || te.Have != 3 {
		t.Fatalf("unexpected truncated detail: %+v", te)
	}
}

func TestReaderRestCopies(t *testing.T) {
	testlog.Start(t)

	src := []byte{0x00, 0x09, 0x0A}
	r := NewReader(src)
	if _, err := r.Uint8("port_id"); err != nil {
		t.Fatalf("uint8: %v", err)
	}
	rest := r.Rest()
	src[1] = 0xFF
	if !bytes.Equal(rest, []byte{0x09, 0x0A}) {
		t.Fatalf("rest aliased input: %x", rest)
	}
	if len(r.Rest()) != 0 {
		t.Fatalf("expected empty rest after drain")
	}
}

func TestWriterRoundTripsReader(t *testing.T) {
	testlog.Start(t)

	w := NewWriter(12)
	w.PutUint8(0x20)
	w.PutUint16(0x002A)
	w.PutUint32(0x10000004)
	w.PutFlag(true)
	if err := w.PutNibbles("startup_and_completion", 1, 1); err != nil {
		t.Fatalf("nibbles: %v", err)
	}
	want := []byte{0x20, 0x2A, 0x00, 0x04, 0x00, 0x00, 0x10, 0x01, 0x11}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("writer mismatch: got=%x want=%x", w.Bytes(), want)
	}
}

func TestWriterNibbleRange(t *testing.T) {
	testlog.Start(t)

	w := NewWriter(1)
	err := w.PutNibbles("startup_and_completion", 16, 0)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if w.Len() != 0 {
		t.Fatalf("writer should be untouched on error")
	}
}

func TestUint8Value(t *testing.T) {
	testlog.Start(t)

	if v, err := Uint8Value("port_id", 255); err != nil || v != 255 {
		t.Fatalf("255: v=%d err=%v", v, err)
	}
	for _, in := range []int{-1, 256, 1000} {
		if _, err := Uint8Value("port_id", in); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("%d: expected ErrOutOfRange, got %v", in, err)
		}
	}
}

func TestMessageTypeKnown(t *testing.T) {
	testlog.Start(t)

	if !MessageHubAttachedIO.Known() {
		t.Fatalf("hub_attached_io should be known")
	}
	if MessageType(0x99).Known() {
		t.Fatalf("0x99 should be unknown")
	}
	if got := MessageType(0x99).String(); got != "unknown(0x99)" {
		t.Fatalf("unexpected name: %q", got)
	}
	if got := MessagePortValueSingle.String(); got != "port_value_single" {
		t.Fatalf("unexpected name: %q", got)
	}
}
