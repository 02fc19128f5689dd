package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/duploctl/internal/testutil/testlog"
)

func TestRunDemoSequence(t *testing.T) {
	testlog.Start(t)

	ft := &fakeTransport{}
	c := NewController(ft)
	opts := DefaultDemoOptions()
	opts.RunTime = time.Millisecond
	opts.SetupSettle = 0
	opts.SoundSettle = 0
	if err := RunDemo(context.Background(), c, opts); err != nil {
		t.Fatalf("demo: %v", err)
	}
	frames := ft.frames()
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(frames))
	}
	if frames[0][2] != 0x41 || frames[0][3] != 1 {
		t.Fatalf("first frame should subscribe the speaker: %x", frames[0])
	}
	if frames[1][3] != 1 || frames[1][6] != 0x01 || frames[1][7] != opts.SoundID {
		t.Fatalf("second frame should play sound: %x", frames[1])
	}
	if frames[2][3] != 17 || frames[2][7] != opts.ColorID {
		t.Fatalf("third frame should set light: %x", frames[2])
	}
	if frames[3][3] != 0 || frames[3][7] != 50 {
		t.Fatalf("fourth frame should drive the motor: %x", frames[3])
	}
	if frames[4][3] != 0 || frames[4][7] != 0 {
		t.Fatalf("last frame should stop the motor: %x", frames[4])
	}
}

func TestRunDemoCancelledStillStops(t *testing.T) {
	testlog.Start(t)

	ft := &fakeTransport{}
	c := NewController(ft)
	opts := DefaultDemoOptions()
	opts.SetupSettle = 0
	opts.SoundSettle = 0
	opts.RunTime = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunDemo(ctx, c, opts) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(ft.frames()) < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("demo never reached the motor step")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	frames := ft.frames()
	last := frames[len(frames)-1]
	if last[7] != 0 {
		t.Fatalf("demo must stop the motor on cancel: %x", last)
	}
}

func TestRunDemoTransportFailureAborts(t *testing.T) {
	testlog.Start(t)

	ft := &fakeTransport{err: errors.New("gone"), failOn: 2}
	c := NewController(ft)
	opts := DefaultDemoOptions()
	opts.SetupSettle = 0
	opts.SoundSettle = 0
	err := RunDemo(context.Background(), c, opts)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if len(ft.frames()) != 1 {
		t.Fatalf("demo should stop after failure, sent %d", len(ft.frames()))
	}
}
