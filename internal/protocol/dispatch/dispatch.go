package dispatch

import (
	"fmt"
	"sync"

	logs "github.com/danmuck/duploctl/internal/logging"
	"github.com/danmuck/duploctl/internal/protocol"
	"github.com/danmuck/duploctl/internal/protocol/frame"
	"github.com/danmuck/duploctl/internal/protocol/schema"
)

// Observer is told the outcome of every dispatched frame.
type Observer interface {
	FrameHandled(mt protocol.MessageType)
	FrameIgnored(mt protocol.MessageType)
	FrameRejected(mt protocol.MessageType, err error)
}

// Handlers holds at most one callback per inbound message kind. Registering
// again replaces the previous callback; registering nil clears it. Handlers
// is safe to register on while frames are being dispatched.
type Handlers struct {
	mu  sync.RWMutex
	reg registry
}

type registry struct {
	attachedIO   func(schema.HubAttachedIO) error
	genericError func(schema.GenericError) error
	portValue    func(schema.PortValueSingle) error
	inputFormat  func(schema.PortInputFormat) error
	feedback     func(schema.PortOutputCommandFeedback) error
	observer     Observer
}

func NewHandlers() *Handlers {
	return &Handlers{}
}

func (h *Handlers) OnHubAttachedIO(fn func(schema.HubAttachedIO) error) {
	h.mu.Lock()
	h.reg.attachedIO = fn
	h.mu.Unlock()
}

func (h *Handlers) OnGenericError(fn func(schema.GenericError) error) {
	h.mu.Lock()
	h.reg.genericError = fn
	h.mu.Unlock()
}

func (h *Handlers) OnPortValueSingle(fn func(schema.PortValueSingle) error) {
	h.mu.Lock()
	h.reg.portValue = fn
	h.mu.Unlock()
}

func (h *Handlers) OnPortInputFormat(fn func(schema.PortInputFormat) error) {
	h.mu.Lock()
	h.reg.inputFormat = fn
	h.mu.Unlock()
}

func (h *Handlers) OnPortOutputCommandFeedback(fn func(schema.PortOutputCommandFeedback) error) {
	h.mu.Lock()
	h.reg.feedback = fn
	h.mu.Unlock()
}

func (h *Handlers) SetObserver(o Observer) {
	h.mu.Lock()
	h.reg.observer = o
	h.mu.Unlock()
}

// snapshot copies the registry so callbacks run without the lock held.
func (h *Handlers) snapshot() registry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.reg
}

// Dispatch decodes raw with the schema selected by its header and hands the
// record to the matching callback. Unknown message types, kinds without a
// schema and kinds without a registered callback are ignored. Decode
// failures and callback errors are returned.
func (h *Handlers) Dispatch(raw []byte) error {
	hdr, err := frame.DecodeHeader(raw)
	if err != nil {
		logs.Debugf("dispatch.Dispatch short frame len=%d", len(raw))
		return err
	}
	s := h.snapshot()
	mt := hdr.MessageType

	var handled bool
	switch mt {
	case protocol.MessageHubAttachedIO:
		handled, err = deliver(raw, schema.DecodeHubAttachedIO, s.attachedIO)
	case protocol.MessageGenericError:
		handled, err = deliver(raw, schema.DecodeGenericError, s.genericError)
	case protocol.MessagePortValueSingle:
		handled, err = deliver(raw, schema.DecodePortValueSingle, s.portValue)
	case protocol.MessagePortInputFormatSingle:
		handled, err = deliver(raw, schema.DecodePortInputFormat, s.inputFormat)
	case protocol.MessagePortOutputCommandFeedback:
		handled, err = deliver(raw, schema.DecodePortOutputCommandFeedback, s.feedback)
	default:
		logs.Tracef("dispatch.Dispatch ignored %s", hdr)
	}

	switch {
	case err != nil:
		logs.Warnf("dispatch.Dispatch %s: %v", mt, err)
		if s.observer != nil {
			s.observer.FrameRejected(mt, err)
		}
		return fmt.Errorf("dispatch %s: %w", mt, err)
	case handled:
		if s.observer != nil {
			s.observer.FrameHandled(mt)
		}
	default:
		if s.observer != nil {
			s.observer.FrameIgnored(mt)
		}
	}
	return nil
}

// Dispatch routes raw through h. A nil registry ignores every decodable frame.
func Dispatch(raw []byte, h *Handlers) error {
	if h == nil {
		h = NewHandlers()
	}
	return h.Dispatch(raw)
}

func deliver[T any](raw []byte, decode func([]byte) (T, error), fn func(T) error) (bool, error) {
	rec, err := decode(raw)
	if err != nil {
		return false, err
	}
	if fn == nil {
		return false, nil
	}
	return true, fn(rec)
}
