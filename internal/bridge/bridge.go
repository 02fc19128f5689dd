// Package bridge turns toothbrush state changes into train commands.
package bridge

import (
	"context"
	"errors"

	"github.com/danmuck/duploctl/internal/ble"
	logs "github.com/danmuck/duploctl/internal/logging"
	"github.com/danmuck/duploctl/internal/protocol/command"
	"github.com/danmuck/duploctl/internal/wearable"
)

// Edge names reported to an EdgeObserver.
const (
	EdgeBrushingStarted = "brushing_started"
	EdgeBrushingStopped = "brushing_stopped"
	EdgeModeButton      = "mode_button"
)

// Driver is the slice of hub.Controller the bridge needs.
type Driver interface {
	Drive(ctx context.Context, speed int16) error
	Stop(ctx context.Context) error
	Sound(ctx context.Context, soundID uint8) error
}

// EdgeObserver is told about every edge the bridge acts on.
type EdgeObserver interface {
	WearableEdge(edge string)
}

type Config struct {
	Speed   int16
	SoundID uint8
}

func DefaultConfig() Config {
	return Config{Speed: 50, SoundID: command.SoundHorn}
}

type Option func(*Bridge)

func WithEdgeObserver(o EdgeObserver) Option {
	return func(b *Bridge) { b.edges = o }
}

// WithEventSink receives every snapshot that differs from the previous one.
func WithEventSink(fn func(wearable.Event, wearable.ChangeReport)) Option {
	return func(b *Bridge) { b.sink = fn }
}

// Bridge drives the train from one toothbrush stream.
type Bridge struct {
	driver   Driver
	cfg      Config
	detector *wearable.ChangeDetector
	edges    EdgeObserver
	sink     func(wearable.Event, wearable.ChangeReport)
}

func New(d Driver, cfg Config, opts ...Option) *Bridge {
	b := &Bridge{
		driver:   d,
		cfg:      cfg,
		detector: wearable.NewChangeDetector(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle feeds one snapshot through the change detector and sends the
// commands its edges call for: start driving when brushing starts, stop
// when it ends and sound the speaker on a mode button press.
func (b *Bridge) Handle(ctx context.Context, ev wearable.Event) (wearable.ChangeReport, error) {
	report := b.detector.Update(ev)
	if !report.Changed {
		return report, nil
	}
	logs.Debugf("bridge.Handle state=%s mode=%s pressure=%+v", ev.State, ev.Mode, ev.Pressure)
	if b.sink != nil {
		b.sink(ev, report)
	}

	var errs []error
	if report.BrushingStarted {
		logs.Infof("bridge brushing started speed=%d", b.cfg.Speed)
		b.observe(EdgeBrushingStarted)
		errs = append(errs, b.driver.Drive(ctx, b.cfg.Speed))
	}
	if report.BrushingStopped {
		logs.Infof("bridge brushing stopped")
		b.observe(EdgeBrushingStopped)
		errs = append(errs, b.driver.Stop(ctx))
	}
	if report.Pressed.ModeButtonPressed {
		logs.Infof("bridge mode button sound=%d", b.cfg.SoundID)
		b.observe(EdgeModeButton)
		errs = append(errs, b.driver.Sound(ctx, b.cfg.SoundID))
	}
	return report, errors.Join(errs...)
}

// Run scans for toothbrush advertisements and handles each until ctx ends.
// Command failures are logged and the scan continues.
func (b *Bridge) Run(ctx context.Context, s ble.Scanner, f ble.WearableFilter) error {
	return ble.ScanWearable(ctx, s, f, func(a ble.Advertisement, ev wearable.Event) {
		if _, err := b.Handle(ctx, ev); err != nil {
			logs.Errf("bridge.Run %s: %v", a.Address, err)
		}
	})
}

func (b *Bridge) observe(edge string) {
	if b.edges != nil {
		b.edges.WearableEdge(edge)
	}
}

// Last returns the most recent snapshot the bridge has seen.
func (b *Bridge) Last() (wearable.Event, bool) {
	return b.detector.Last()
}
