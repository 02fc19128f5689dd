package hub

import (
	"context"
	"time"

	logs "github.com/danmuck/duploctl/internal/logging"
	"github.com/danmuck/duploctl/internal/protocol/command"
)

// DemoOptions shapes the scripted demo run.
type DemoOptions struct {
	Speed       int16
	SoundID     uint8
	ColorID     uint8
	RunTime     time.Duration
	SetupSettle time.Duration
	SoundSettle time.Duration
}

func DefaultDemoOptions() DemoOptions {
	return DemoOptions{
		Speed:       50,
		SoundID:     command.SoundStation,
		ColorID:     command.ColorRed,
		RunTime:     10 * time.Second,
		SetupSettle: 500 * time.Millisecond,
		SoundSettle: time.Second,
	}
}

// RunDemo subscribes the speaker, plays a sound, sets the light, runs the
// motor for RunTime and stops it. Cancelling ctx still attempts the stop.
func RunDemo(ctx context.Context, c *Controller, opts DemoOptions) error {
	ports := c.Ports()
	logs.Infof("hub.RunDemo speed=%d sound=%d color=%d run=%s", opts.Speed, opts.SoundID, opts.ColorID, opts.RunTime)

	if err := c.SetupPortInputFormat(ctx, ports.Speaker, 1); err != nil {
		return err
	}
	if err := sleep(ctx, opts.SetupSettle); err != nil {
		return err
	}
	if err := c.PlaySound(ctx, ports.Speaker, opts.SoundID); err != nil {
		return err
	}
	if err := c.SetLight(ctx, ports.Light, opts.ColorID); err != nil {
		return err
	}
	if err := sleep(ctx, opts.SoundSettle); err != nil {
		return err
	}
	if err := c.SetMotorSpeed(ctx, ports.Motor, opts.Speed); err != nil {
		return err
	}
	runErr := sleep(ctx, opts.RunTime)
	stopErr := c.SetMotorSpeed(context.WithoutCancel(ctx), ports.Motor, 0)
	if runErr != nil {
		return runErr
	}
	return stopErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
