package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/duploctl/internal/protocol"
)

// HeaderLen is the size of the common header carried by every frame.
const HeaderLen = 3

// DefaultHubID is the hub_id the hub and every host command use.
const DefaultHubID uint8 = 0x00

var (
	ErrShortHeader = errors.New("frame: short common header")
	ErrLengthSmall = errors.New("frame: length smaller than common header")
)

// Header is the common header: total length, hub id, message type.
type Header struct {
	Length      uint8
	HubID       uint8
	MessageType protocol.MessageType
}

func (h Header) String() string {
	return fmt.Sprintf("len=%d hub=%d type=%s", h.Length, h.HubID, h.MessageType)
}

// DecodeHeader reads the first HeaderLen bytes of b. Trailing bytes are
// ignored and Length is not checked against len(b).
func DecodeHeader(b []byte) (Header, error) {
	return ReadHeader(protocol.NewReader(b))
}

// ReadHeader consumes the common header from r.
func ReadHeader(r *protocol.Reader) (Header, error) {
	length, err := r.Uint8("length")
	if err != nil {
		return Header{}, err
	}
	hubID, err := r.Uint8("hub_id")
	if err != nil {
		return Header{}, err
	}
	mt, err := r.Uint8("message_type")
	if err != nil {
		return Header{}, err
	}
	return Header{Length: length, HubID: hubID, MessageType: protocol.MessageType(mt)}, nil
}

func EncodeHeader(h Header) []byte {
	w := protocol.NewWriter(HeaderLen)
	h.Put(w)
	return w.Bytes()
}

// Put appends h to w.
func (h Header) Put(w *protocol.Writer) {
	w.PutUint8(h.Length)
	w.PutUint8(h.HubID)
	w.PutUint8(uint8(h.MessageType))
}

// ReadFrame reads one length-prefixed frame from a byte stream, returning
// the whole frame including its header.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hb [HeaderLen]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	h, err := DecodeHeader(hb[:])
	if err != nil {
		return nil, err
	}
	if h.Length < HeaderLen {
		return nil, fmt.Errorf("%w: %d", ErrLengthSmall, h.Length)
	}
	out := make([]byte, h.Length)
	copy(out, hb[:])
	if _, err := io.ReadFull(r, out[HeaderLen:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, protocol.TruncatedError{Field: "body", Need: int(h.Length), Have: HeaderLen}
		}
		return nil, err
	}
	return out, nil
}

// WriteFrame writes a complete encoded frame to w.
func WriteFrame(w io.Writer, raw []byte) error {
	if len(raw) < HeaderLen {
		return ErrShortHeader
	}
	_, err := w.Write(raw)
	return err
}
