package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danmuck/duploctl/internal/ble"
	"github.com/danmuck/duploctl/internal/bridge"
	"github.com/danmuck/duploctl/internal/hub"
	logs "github.com/danmuck/duploctl/internal/logging"
	"github.com/danmuck/duploctl/internal/protocol/frame"
	"github.com/danmuck/duploctl/internal/wearable"
)

// hubLink is a connected hub that can be released.
type hubLink interface {
	hub.Transport
	Close() error
}

type radio interface {
	ble.Scanner
	Connect(ctx context.Context, adv ble.Advertisement, serviceUUID, charUUID string) (hubLink, error)
}

// bleRadio adapts *ble.Radio to radio.
type bleRadio struct {
	*ble.Radio
}

func (r bleRadio) Connect(ctx context.Context, adv ble.Advertisement, serviceUUID, charUUID string) (hubLink, error) {
	return r.Radio.Connect(ctx, adv, serviceUUID, charUUID)
}

func openRadio(watch ...string) (radio, error) {
	r, err := ble.NewRadio(watch...)
	if err != nil {
		return nil, err
	}
	return bleRadio{r}, nil
}

type runner struct {
	opts options
	cfg  cliConfig
	in   io.Reader
	out  io.Writer

	newRadio func(watch ...string) (radio, error)
	radio    radio
}

func newRunner(opts options, cfg cliConfig, in io.Reader, out io.Writer) *runner {
	return &runner{opts: opts, cfg: cfg, in: in, out: out, newRadio: openRadio}
}

func (r *runner) run(ctx context.Context) error {
	switch r.opts.Mode {
	case modeDemo:
		return r.withController(ctx, func(c *hub.Controller) error {
			return hub.RunDemo(ctx, c, r.cfg.Demo)
		})
	case modeMotor:
		return r.withController(ctx, func(c *hub.Controller) error {
			return c.Drive(ctx, r.cfg.Demo.Speed)
		})
	case modeSound:
		return r.withController(ctx, func(c *hub.Controller) error {
			return c.Sound(ctx, r.cfg.Demo.SoundID)
		})
	case modeLight:
		return r.withController(ctx, func(c *hub.Controller) error {
			return c.Light(ctx, r.cfg.Demo.ColorID)
		})
	case modeStop:
		return r.withController(ctx, func(c *hub.Controller) error {
			return c.Stop(ctx)
		})
	case modeBrake:
		return r.withController(ctx, func(c *hub.Controller) error {
			return c.Brake(ctx)
		})
	case modeToothbrush:
		return r.toothbrush(ctx)
	case modeListenToothbrush:
		return r.listenToothbrush(ctx)
	case modeListenBroadcast:
		return r.listenBroadcast(ctx)
	case modeDecode:
		return r.decode()
	default:
		return errUsage
	}
}

func (r *runner) scanner() (radio, error) {
	if r.radio != nil {
		return r.radio, nil
	}
	var watch []string
	if svc := r.cfg.Base.Toothbrush.ServiceUUID; svc != "" {
		watch = append(watch, svc)
	}
	rd, err := r.newRadio(watch...)
	if err != nil {
		return nil, err
	}
	r.radio = rd
	return rd, nil
}

// openHub finds and connects the hub, or prints frames on -dry-run.
func (r *runner) openHub(ctx context.Context) (hub.Transport, func(), error) {
	if r.opts.DryRun {
		return hub.NewWriterTransport(r.out), func() {}, nil
	}
	rd, err := r.scanner()
	if err != nil {
		return nil, nil, err
	}
	timeout, err := r.cfg.Base.ScanTimeoutDuration()
	if err != nil {
		return nil, nil, err
	}
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	adv, err := ble.FindHub(scanCtx, rd, r.cfg.Base.Hub.Name)
	cancel()
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintf(r.out, "connecting to %s\n", adv)
	link, err := rd.Connect(ctx, adv, r.cfg.Base.Hub.ServiceUUID, r.cfg.Base.Hub.CharUUID)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := link.Close(); err != nil {
			logs.Warnf("duploctl disconnect: %v", err)
		}
	}
	return link, closeFn, nil
}

func (r *runner) withController(ctx context.Context, fn func(*hub.Controller) error) error {
	tr, closeFn, err := r.openHub(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	c := hub.NewController(tr, hub.WithPorts(r.cfg.ports()), hub.WithSink(r.printRecord))
	c.Listen()
	return fn(c)
}

func (r *runner) toothbrush(ctx context.Context) error {
	rd, err := r.scanner()
	if err != nil && !r.opts.DryRun {
		return err
	}
	tr, closeFn, err := r.openHub(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	if rd == nil {
		return fmt.Errorf("toothbrush mode needs a radio for the wearable scan")
	}

	c := hub.NewController(tr, hub.WithPorts(r.cfg.ports()), hub.WithSink(r.printRecord))
	if err := c.Setup(ctx); err != nil {
		return err
	}
	b := bridge.New(c, bridge.Config{
		Speed:   int16(r.cfg.Base.Toothbrush.Speed),
		SoundID: uint8(r.cfg.Base.Toothbrush.SoundID),
	}, bridge.WithEventSink(func(ev wearable.Event, rep wearable.ChangeReport) {
		r.printEvent(ev, rep)
	}))
	fmt.Fprintln(r.out, "waiting for toothbrush, ctrl-c to quit")
	err = b.Run(ctx, rd, r.wearableFilter())
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if stopErr := c.Stop(stopCtx); stopErr != nil {
		logs.Warnf("duploctl toothbrush stop: %v", stopErr)
	}
	return err
}

func (r *runner) listenToothbrush(ctx context.Context) error {
	rd, err := r.scanner()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.listenWindow())
	defer cancel()
	det := wearable.NewChangeDetector()
	return ble.ScanWearable(ctx, rd, r.wearableFilter(), func(a ble.Advertisement, ev wearable.Event) {
		rep := det.Update(ev)
		if rep.Changed {
			fmt.Fprintf(r.out, "%s ", a.Address)
			r.printEvent(ev, rep)
		}
	})
}

func (r *runner) listenBroadcast(ctx context.Context) error {
	rd, err := r.scanner()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.listenWindow())
	defer cancel()
	opts := ble.BroadcastOptions{NameFilter: r.opts.Filter, Verbose: r.opts.Verbose}
	return ble.ListenBroadcasts(ctx, rd, opts, func(a ble.Advertisement) {
		fmt.Fprintln(r.out, a)
		if !r.opts.ManufacturerData {
			return
		}
		for id, data := range a.ManufacturerData {
			fmt.Fprintf(r.out, "  manufacturer 0x%04x: % x\n", id, data)
		}
	})
}

// decode dispatches a stream of raw frames and prints what each decodes to.
func (r *runner) decode() error {
	in := r.in
	if r.opts.Input != "" && r.opts.Input != "-" {
		f, err := os.Open(r.opts.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	c := hub.NewController(hub.NewWriterTransport(io.Discard), hub.WithSink(r.printRecord))
	var rejected int
	for {
		raw, err := frame.ReadFrame(in)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := c.Handlers().Dispatch(raw); err != nil {
			rejected++
			fmt.Fprintf(r.out, "rejected % x: %v\n", raw, err)
		}
	}
	if rejected > 0 {
		return fmt.Errorf("%d frame(s) rejected", rejected)
	}
	return nil
}

func (r *runner) wearableFilter() ble.WearableFilter {
	return ble.WearableFilter{
		ManufacturerID: uint16(r.cfg.Base.Toothbrush.ManufacturerID),
		ServiceUUID:    r.cfg.Base.Toothbrush.ServiceUUID,
	}
}

func (r *runner) listenWindow() time.Duration {
	if d, err := r.cfg.Base.ScanTimeoutDuration(); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

func (r *runner) printRecord(kind string, record any) {
	fmt.Fprintf(r.out, "%s %+v\n", kind, record)
}

func (r *runner) printEvent(ev wearable.Event, rep wearable.ChangeReport) {
	var edges []string
	if rep.BrushingStarted {
		edges = append(edges, "brushing_started")
	}
	if rep.BrushingStopped {
		edges = append(edges, "brushing_stopped")
	}
	if rep.Pressed.Any() {
		edges = append(edges, fmt.Sprintf("pressed=%+v", rep.Pressed))
	}
	line := fmt.Sprintf("state=%s mode=%s time=%d:%02d sector=%d", ev.State, ev.Mode, ev.BrushMinutes, ev.BrushSeconds, ev.Sector)
	if len(edges) > 0 {
		line += " " + strings.Join(edges, " ")
	}
	fmt.Fprintln(r.out, line)
}
