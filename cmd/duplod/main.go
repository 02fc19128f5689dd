package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/danmuck/duploctl/internal/auth"
	"github.com/danmuck/duploctl/internal/ble"
	"github.com/danmuck/duploctl/internal/bridge"
	"github.com/danmuck/duploctl/internal/config"
	"github.com/danmuck/duploctl/internal/hub"
	"github.com/danmuck/duploctl/internal/observability"
	"github.com/danmuck/duploctl/internal/server"
	"github.com/danmuck/duploctl/internal/telemetry"
	"github.com/danmuck/duploctl/internal/wearable"
)

const (
	serviceID    = "duplod"
	kindWearable = "wearable_event"
)

func main() {
	cfgPath := flag.String("config", "cmd/duplod/config.toml", "daemon config path")
	dryRun := flag.Bool("dry-run", false, "print frames instead of connecting to a hub")
	flag.Parse()

	logger := observability.InitLogger(serviceID)
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, *dryRun); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("duplod exited")
		os.Exit(1)
	}
}

func run(ctx context.Context, logger zerolog.Logger, cfg config.Config, dryRun bool) error {
	events := telemetry.NewHub(cfg.HTTP.CorsOrigins)
	go events.Run(ctx)
	rec := observability.NewRecorder()

	var (
		radio     *ble.Radio
		transport hub.Transport
		ready     atomic.Bool
	)
	if dryRun {
		transport = hub.NewWriterTransport(os.Stdout)
	} else {
		var watch []string
		if cfg.Toothbrush.Enabled && cfg.Toothbrush.ServiceUUID != "" {
			watch = append(watch, cfg.Toothbrush.ServiceUUID)
		}
		r, err := ble.NewRadio(watch...)
		if err != nil {
			return err
		}
		link, err := connectHub(ctx, r, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := link.Close(); err != nil {
				logger.Warn().Err(err).Msg("hub disconnect")
			}
		}()
		radio, transport = r, link
	}

	ctrl := hub.NewController(transport,
		hub.WithPorts(hub.Ports{
			Motor:   uint8(cfg.Ports.Motor),
			Speaker: uint8(cfg.Ports.Speaker),
			Light:   uint8(cfg.Ports.Light),
		}),
		hub.WithSink(events.Publish),
		hub.WithCommandObserver(rec),
		hub.WithFrameObserver(rec),
	)
	if err := ctrl.Setup(ctx); err != nil {
		return fmt.Errorf("hub setup: %w", err)
	}
	ready.Store(true)

	opts := []server.Option{server.WithReady(ready.Load)}
	if cfg.HTTP.Token != "" {
		opts = append(opts, server.WithAuth(auth.StaticToken{Token: cfg.HTTP.Token}))
	}
	if cfg.Toothbrush.Enabled {
		if radio == nil {
			logger.Warn().Msg("toothbrush bridge needs a radio, disabled in dry-run")
		} else {
			b := bridge.New(ctrl, bridge.Config{
				Speed:   int16(cfg.Toothbrush.Speed),
				SoundID: uint8(cfg.Toothbrush.SoundID),
			},
				bridge.WithEdgeObserver(rec),
				bridge.WithEventSink(func(ev wearable.Event, rep wearable.ChangeReport) {
					events.Publish(kindWearable, map[string]any{"event": ev, "report": rep})
				}),
			)
			filter := ble.WearableFilter{
				ManufacturerID: uint16(cfg.Toothbrush.ManufacturerID),
				ServiceUUID:    cfg.Toothbrush.ServiceUUID,
			}
			go func() {
				if err := b.Run(ctx, radio, filter); err != nil {
					logger.Error().Err(err).Msg("toothbrush bridge stopped")
				}
			}()
			opts = append(opts, server.WithWearable(b))
		}
	}

	srv := server.New(serviceID, cfg.HTTP.Addr, cfg.HTTP.CorsOrigins, ctrl, events, opts...)
	err := srv.Serve(ctx)

	stopCtx := context.WithoutCancel(ctx)
	if stopErr := ctrl.Stop(stopCtx); stopErr != nil {
		logger.Warn().Err(stopErr).Msg("final stop")
	}
	return err
}

func connectHub(ctx context.Context, r *ble.Radio, cfg config.Config) (*ble.HubLink, error) {
	timeout, err := cfg.ScanTimeoutDuration()
	if err != nil {
		return nil, err
	}
	backoff := ble.DefaultBackoff()
	backoff.Attempts = cfg.Hub.ConnectAttempts
	adv, err := ble.FindHubRetry(ctx, r, cfg.Hub.Name, timeout, backoff)
	if err != nil {
		return nil, err
	}
	return r.Connect(ctx, adv, cfg.Hub.ServiceUUID, cfg.Hub.CharUUID)
}
