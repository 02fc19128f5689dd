package hub

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/duploctl/internal/protocol"
	"github.com/danmuck/duploctl/internal/protocol/schema"
	"github.com/danmuck/duploctl/internal/testutil/testlog"
)

type fakeTransport struct {
	mu     sync.Mutex
	sent   [][]byte
	failOn int
	err    error
	notify func([]byte)
}

func (f *fakeTransport) Send(_ context.Context, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil && (f.failOn == 0 || f.failOn == len(f.sent)+1) {
		return f.err
	}
	f.sent = append(f.sent, append([]byte(nil), frame...))
	return nil
}

func (f *fakeTransport) OnNotification(fn func([]byte)) {
	f.mu.Lock()
	f.notify = fn
	f.mu.Unlock()
}

func (f *fakeTransport) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

type countingCommands struct {
	ok, failed int
}

func (c *countingCommands) CommandSent(_ string, err error) {
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

func TestControllerConvenienceFrames(t *testing.T) {
	testlog.Start(t)

	ft := &fakeTransport{}
	c := NewController(ft)
	ctx := context.Background()

	steps := []struct {
		name string
		run  func() error
		want []byte
	}{
		{"stop", func() error { return c.Stop(ctx) }, []byte{0x08, 0x00, 0x81, 0x00, 0x11, 0x51, 0x00, 0x00}},
		{"brake", func() error { return c.Brake(ctx) }, []byte{0x08, 0x00, 0x81, 0x00, 0x11, 0x51, 0x00, 0x7F}},
		{"horn", func() error { return c.PlayHorn(ctx) }, []byte{0x08, 0x00, 0x81, 0x01, 0x11, 0x51, 0x01, 0x09}},
		{"station", func() error { return c.PlayStation(ctx) }, []byte{0x08, 0x00, 0x81, 0x01, 0x11, 0x51, 0x01, 0x05}},
		{"red", func() error { return c.LightRed(ctx) }, []byte{0x08, 0x00, 0x81, 0x11, 0x11, 0x51, 0x00, 0x05}},
		{"green", func() error { return c.LightGreen(ctx) }, []byte{0x08, 0x00, 0x81, 0x11, 0x11, 0x51, 0x00, 0x07}},
		{"blue", func() error { return c.LightBlue(ctx) }, []byte{0x08, 0x00, 0x81, 0x11, 0x11, 0x51, 0x00, 0x03}},
	}
	for i, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		got := ft.frames()[i]
		if !bytes.Equal(got, step.want) {
			t.Fatalf("%s: frame mismatch got=%x want=%x", step.name, got, step.want)
		}
	}
}

func TestControllerCustomPorts(t *testing.T) {
	testlog.Start(t)

	ft := &fakeTransport{}
	c := NewController(ft, WithPorts(Ports{Motor: 2, Speaker: 3, Light: 4}))
	if err := c.Drive(context.Background(), 30); err != nil {
		t.Fatalf("drive: %v", err)
	}
	if got := ft.frames()[0][3]; got != 2 {
		t.Fatalf("expected motor port 2, got %d", got)
	}
}

func TestControllerTransportError(t *testing.T) {
	testlog.Start(t)

	linkDown := errors.New("link down")
	ft := &fakeTransport{err: linkDown}
	cmds := &countingCommands{}
	c := NewController(ft, WithCommandObserver(cmds))

	err := c.PlayHorn(context.Background())
	if !errors.Is(err, ErrTransport) || !errors.Is(err, linkDown) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "play_sound" {
		t.Fatalf("expected TransportError op=play_sound, got %v", err)
	}
	if cmds.failed != 1 || cmds.ok != 0 {
		t.Fatalf("observer mismatch: %+v", cmds)
	}
}

func TestControllerCancelledContextSendsNothing(t *testing.T) {
	testlog.Start(t)

	ft := &fakeTransport{}
	c := NewController(ft)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Stop(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(ft.frames()) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestControllerTracksNotifications(t *testing.T) {
	testlog.Start(t)

	ft := &fakeTransport{}
	var kinds []string
	c := NewController(ft, WithSink(func(kind string, _ any) { kinds = append(kinds, kind) }))
	c.now = func() time.Time { return time.Unix(100, 0) }
	if err := c.Setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if got := ft.frames()[0]; !bytes.Equal(got, []byte{0x0A, 0x00, 0x41, 0x01, 0x01, 0x01, 0x00, 0x00, 0x00, 0x01}) {
		t.Fatalf("setup frame mismatch: %x", got)
	}

	motor, err := schema.EncodeHubAttachedIO(schema.HubAttachedIO{
		PortID: 0, Event: protocol.IoAttached, IoType: protocol.IoDuploTrainMotor,
	})
	if err != nil {
		t.Fatalf("encode motor: %v", err)
	}
	light, err := schema.EncodeHubAttachedIO(schema.HubAttachedIO{
		PortID: 17, Event: protocol.IoAttached, IoType: protocol.IoRGBLight, HardwareRevision: 2,
	})
	if err != nil {
		t.Fatalf("encode light: %v", err)
	}
	ft.notify(light)
	ft.notify(motor)
	ft.notify([]byte{0x05, 0x00, 0x05, 0x81, 0x06})
	ft.notify([]byte{0x05, 0x00, 0x82, 0x00, 0x0A})
	ft.notify([]byte{0x03, 0x00, 0x99})
	ft.notify([]byte{0x0F, 0x00, 0x04, 0x00})

	ports := c.AttachedPorts()
	if len(ports) != 2 || ports[0].PortID != 0 || ports[1].PortID != 17 {
		t.Fatalf("unexpected ports: %+v", ports)
	}
	if ports[0].IoType != "duplo_train_motor" || ports[1].HardwareRevision != 2 {
		t.Fatalf("unexpected port detail: %+v", ports)
	}
	if !ports[0].SeenAt.Equal(time.Unix(100, 0)) {
		t.Fatalf("unexpected seen_at: %v", ports[0].SeenAt)
	}
	gerr, ok := c.LastError()
	if !ok || gerr.Code != protocol.ErrorInvalidUse {
		t.Fatalf("unexpected last error: %+v ok=%v", gerr, ok)
	}
	if fb, ok := c.Feedback(0); !ok || fb != 0x0A {
		t.Fatalf("unexpected feedback: %d ok=%v", fb, ok)
	}
	if strings.Join(kinds, ",") != "hub_attached_io,hub_attached_io,generic_error_message,port_output_command_feedback" {
		t.Fatalf("unexpected sink kinds: %v", kinds)
	}
}

func TestPortTableDetachRemoves(t *testing.T) {
	testlog.Start(t)

	tbl := NewPortTable()
	tbl.Apply(schema.HubAttachedIO{PortID: 20, Event: protocol.IoAttached, IoType: protocol.IoVoltage}, time.Now())
	if _, ok := tbl.Get(20); !ok {
		t.Fatalf("expected port 20")
	}
	tbl.Apply(schema.HubAttachedIO{PortID: 20, Event: protocol.IoDetached, IoType: protocol.IoVoltage}, time.Now())
	if _, ok := tbl.Get(20); ok {
		t.Fatalf("detach should remove port 20")
	}
}

func TestWriterTransportPrintsHex(t *testing.T) {
	testlog.Start(t)

	var out bytes.Buffer
	wt := NewWriterTransport(&out)
	c := NewController(wt)
	c.Listen()
	if err := c.PlayHorn(context.Background()); err != nil {
		t.Fatalf("horn: %v", err)
	}
	if got := out.String(); got != "08 00 81 01 11 51 01 09\n" {
		t.Fatalf("unexpected output: %q", got)
	}
	wt.Inject([]byte{0x05, 0x00, 0x82, 0x01, 0x0A})
	if _, ok := c.Feedback(1); !ok {
		t.Fatalf("injected feedback not routed")
	}
}
