package dispatch

import (
	"errors"
	"sync"
	"testing"

	"github.com/danmuck/duploctl/internal/protocol"
	"github.com/danmuck/duploctl/internal/protocol/schema"
	"github.com/danmuck/duploctl/internal/testutil/testlog"
)

type recordingObserver struct {
	mu       sync.Mutex
	handled  []protocol.MessageType
	ignored  []protocol.MessageType
	rejected []protocol.MessageType
}

func (o *recordingObserver) FrameHandled(mt protocol.MessageType) {
	o.mu.Lock()
	o.handled = append(o.handled, mt)
	o.mu.Unlock()
}

func (o *recordingObserver) FrameIgnored(mt protocol.MessageType) {
	o.mu.Lock()
	o.ignored = append(o.ignored, mt)
	o.mu.Unlock()
}

func (o *recordingObserver) FrameRejected(mt protocol.MessageType, _ error) {
	o.mu.Lock()
	o.rejected = append(o.rejected, mt)
	o.mu.Unlock()
}

var attachedVoltage = []byte{0x0F, 0x00, 0x04, 0x14, 0x01, 0x14, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}

func TestDispatchRoutesAttachedIO(t *testing.T) {
	testlog.Start(t)

	h := NewHandlers()
	obs := &recordingObserver{}
	h.SetObserver(obs)
	var got schema.HubAttachedIO
	calls := 0
	h.OnHubAttachedIO(func(m schema.HubAttachedIO) error {
		calls++
		got = m
		return nil
	})
	if err := Dispatch(attachedVoltage, h); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
	if got.PortID != 20 || got.IoType != protocol.IoVoltage {
		t.Fatalf("unexpected record: %+v", got)
	}
	if len(obs.handled) != 1 || obs.handled[0] != protocol.MessageHubAttachedIO {
		t.Fatalf("observer not told: %+v", obs.handled)
	}
}

func TestDispatchUnknownTypeIsNoop(t *testing.T) {
	testlog.Start(t)

	h := NewHandlers()
	obs := &recordingObserver{}
	h.SetObserver(obs)
	called := false
	h.OnHubAttachedIO(func(schema.HubAttachedIO) error { called = true; return nil })
	h.OnGenericError(func(schema.GenericError) error { called = true; return nil })

	if err := Dispatch([]byte{0x03, 0x00, 0x99}, h); err != nil {
		t.Fatalf("unknown type should not fail: %v", err)
	}
	if called {
		t.Fatalf("no handler should run for unknown type")
	}
	if len(obs.ignored) != 1 {
		t.Fatalf("expected ignored frame, got %+v", obs.ignored)
	}
}

func TestDispatchKnownKindWithoutSchemaRouteIsIgnored(t *testing.T) {
	testlog.Start(t)

	if err := Dispatch([]byte{0x03, 0x00, byte(protocol.MessageHubActions)}, NewHandlers()); err != nil {
		t.Fatalf("hub_actions should be ignored: %v", err)
	}
}

func TestDispatchShortBufferTruncated(t *testing.T) {
	testlog.Start(t)

	for _, in := range [][]byte{nil, {0x03}, {0x03, 0x00}} {
		if err := Dispatch(in, nil); !errors.Is(err, protocol.ErrTruncated) {
			t.Fatalf("len=%d: expected ErrTruncated, got %v", len(in), err)
		}
	}
}

func TestDispatchRecognizedKindMalformedPropagates(t *testing.T) {
	testlog.Start(t)

	h := NewHandlers()
	obs := &recordingObserver{}
	h.SetObserver(obs)
	err := Dispatch(attachedVoltage[:10], h)
	if !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if len(obs.rejected) != 1 {
		t.Fatalf("expected rejected frame, got %+v", obs.rejected)
	}

	bad := []byte{0x05, 0x00, 0x05, 0x81, 0x42}
	if err := Dispatch(bad, h); !errors.Is(err, protocol.ErrInvalidDiscriminant) {
		t.Fatalf("expected ErrInvalidDiscriminant, got %v", err)
	}
}

func TestDispatchDecodesEvenWithoutHandler(t *testing.T) {
	testlog.Start(t)

	if err := Dispatch(attachedVoltage[:8], NewHandlers()); !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if err := Dispatch(attachedVoltage, NewHandlers()); err != nil {
		t.Fatalf("unregistered kind should be ignored: %v", err)
	}
}

func TestDispatchHandlerErrorPropagates(t *testing.T) {
	testlog.Start(t)

	boom := errors.New("boom")
	h := NewHandlers()
	h.OnPortOutputCommandFeedback(func(schema.PortOutputCommandFeedback) error { return boom })
	err := Dispatch([]byte{0x05, 0x00, 0x82, 0x00, 0x0A}, h)
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
}

func TestDispatchLastRegistrationWins(t *testing.T) {
	testlog.Start(t)

	h := NewHandlers()
	var first, second int
	h.OnPortValueSingle(func(schema.PortValueSingle) error { first++; return nil })
	h.OnPortValueSingle(func(schema.PortValueSingle) error { second++; return nil })
	if err := Dispatch([]byte{0x04, 0x00, 0x45, 0x01, 0x07}, h); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if first != 0 || second != 1 {
		t.Fatalf("expected only latest handler, first=%d second=%d", first, second)
	}

	h.OnPortValueSingle(nil)
	if err := Dispatch([]byte{0x04, 0x00, 0x45, 0x01, 0x07}, h); err != nil {
		t.Fatalf("dispatch after clear: %v", err)
	}
	if second != 1 {
		t.Fatalf("cleared handler should not run")
	}
}

func TestDispatchEachKind(t *testing.T) {
	testlog.Start(t)

	h := NewHandlers()
	seen := map[protocol.MessageType]int{}
	h.OnGenericError(func(schema.GenericError) error { seen[protocol.MessageGenericError]++; return nil })
	h.OnPortValueSingle(func(schema.PortValueSingle) error { seen[protocol.MessagePortValueSingle]++; return nil })
	h.OnPortInputFormat(func(schema.PortInputFormat) error { seen[protocol.MessagePortInputFormatSingle]++; return nil })
	h.OnPortOutputCommandFeedback(func(schema.PortOutputCommandFeedback) error {
		seen[protocol.MessagePortOutputCommandFeedback]++
		return nil
	})

	frames := [][]byte{
		{0x05, 0x00, 0x05, 0x81, 0x01},
		{0x04, 0x00, 0x45, 0x01, 0x07},
		{0x0A, 0x00, 0x47, 0x01, 0x01, 0x01, 0x00, 0x00, 0x00, 0x01},
		{0x05, 0x00, 0x82, 0x00, 0x0A},
	}
	for _, f := range frames {
		if err := Dispatch(f, h); err != nil {
			t.Fatalf("dispatch %x: %v", f, err)
		}
	}
	for _, mt := range []protocol.MessageType{
		protocol.MessageGenericError,
		protocol.MessagePortValueSingle,
		protocol.MessagePortInputFormatSingle,
		protocol.MessagePortOutputCommandFeedback,
	} {
		if seen[mt] != 1 {
			t.Fatalf("%s: expected one delivery, got %d", mt, seen[mt])
		}
	}
}

func TestRegisterDuringDispatch(t *testing.T) {
	testlog.Start(t)

	h := NewHandlers()
	h.OnPortValueSingle(func(schema.PortValueSingle) error {
		h.OnPortValueSingle(nil)
		return nil
	})
	if err := Dispatch([]byte{0x04, 0x00, 0x45, 0x01, 0x07}, h); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.OnPortValueSingle(func(schema.PortValueSingle) error { return nil })
		}()
		go func() {
			defer wg.Done()
			_ = Dispatch([]byte{0x04, 0x00, 0x45, 0x01, 0x07}, h)
		}()
	}
	wg.Wait()
}
