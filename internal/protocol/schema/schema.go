package schema

import (
	"fmt"

	logs "github.com/danmuck/duploctl/internal/logging"
	"github.com/danmuck/duploctl/internal/protocol"
	"github.com/danmuck/duploctl/internal/protocol/frame"
)

// fixedSizes holds the byte count, header included, of every field before
// any variable-length tail.
var fixedSizes = map[protocol.MessageType]int{
	protocol.MessageHubAttachedIO:              15,
	protocol.MessageGenericError:               5,
	protocol.MessagePortInformationRequest:     5,
	protocol.MessagePortInputFormatSetupSingle: 10,
	protocol.MessagePortValueSingle:            4,
	protocol.MessagePortInputFormatSingle:      10,
	protocol.MessagePortOutputCommand:          6,
	protocol.MessagePortOutputCommandFeedback:  5,
}

// FixedSize reports the minimum frame size for a message type with a schema.
func FixedSize(mt protocol.MessageType) (int, bool) {
	n, ok := fixedSizes[mt]
	return n, ok
}

// ValidationError reports a header that disagrees with the record encoded
// behind it.
type ValidationError struct {
	MessageType protocol.MessageType
	Field       string
	Reason      string
	Err         error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("schema: message_type=%s field=%s: %s", e.MessageType, e.Field, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// open checks the fixed size for mt and returns a reader positioned after
// the common header.
func open(b []byte, mt protocol.MessageType) (*protocol.Reader, frame.Header, error) {
	need := fixedSizes[mt]
	if len(b) < need {
		logs.Debugf("schema.decode truncated message_type=%s need=%d have=%d", mt, need, len(b))
		return nil, frame.Header{}, protocol.TruncatedError{Field: mt.String(), Need: need, Have: len(b)}
	}
	r := protocol.NewReader(b)
	h, err := frame.ReadHeader(r)
	if err != nil {
		return nil, frame.Header{}, err
	}
	return r, h, nil
}

// seal writes the header into the first three bytes of an encoded record.
// Zero Length and MessageType are filled in; nonzero values must agree with
// the encoded size and one of the allowed types.
func seal(w *protocol.Writer, h frame.Header, allowed ...protocol.MessageType) ([]byte, error) {
	mt := h.MessageType
	if mt == 0 {
		mt = allowed[0]
	} else if !typeAllowed(mt, allowed) {
		return nil, ValidationError{
			MessageType: mt,
			Field:       "message_type",
			Reason:      fmt.Sprintf("record encodes as %s", allowed[0]),
			Err:         protocol.ErrMessageTypeMismatch,
		}
	}
	size := w.Len()
	if size > 0xFF {
		return nil, protocol.RangeError{Field: "length", Value: int64(size), Min: frame.HeaderLen, Max: 0xFF}
	}
	if h.Length != 0 && int(h.Length) != size {
		return nil, ValidationError{
			MessageType: mt,
			Field:       "length",
			Reason:      fmt.Sprintf("header says %d, encoded %d", h.Length, size),
			Err:         protocol.ErrLengthMismatch,
		}
	}
	out := w.Bytes()
	out[0] = uint8(size)
	out[1] = h.HubID
	out[2] = uint8(mt)
	return out, nil
}

func typeAllowed(mt protocol.MessageType, allowed []protocol.MessageType) bool {
	for _, a := range allowed {
		if a == mt {
			return true
		}
	}
	return false
}

// writer reserves the common header so seal can patch it once the body size
// is known.
func writer(size int) *protocol.Writer {
	w := protocol.NewWriter(size)
	frame.Header{}.Put(w)
	return w
}
