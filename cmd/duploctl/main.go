package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	logs "github.com/danmuck/duploctl/internal/logging"
)

const (
	modeDemo             = "demo"
	modeToothbrush       = "toothbrush"
	modeListenToothbrush = "listen-toothbrush"
	modeListenBroadcast  = "listen-broadcast"
	modeMotor            = "motor"
	modeSound            = "sound"
	modeLight            = "light"
	modeStop             = "stop"
	modeBrake            = "brake"
	modeDecode           = "decode"
)

var errUsage = errors.New("usage")

type options struct {
	Mode             string
	ConfigPath       string
	DeviceName       string
	Timeout          time.Duration
	Speed            int
	SoundID          int
	ColorID          int
	RunTime          time.Duration
	Filter           string
	ManufacturerData bool
	Verbose          bool
	DryRun           bool
	Input            string

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("duploctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.Mode, "mode", modeDemo, "demo|toothbrush|listen-toothbrush|listen-broadcast|motor|sound|light|stop|brake|decode")
	fs.StringVar(&o.ConfigPath, "config", "", "optional TOML config overlay")
	fs.StringVar(&o.DeviceName, "device-name", "", "hub advertised name (default from config)")
	fs.DurationVar(&o.Timeout, "timeout", 30*time.Second, "scan timeout for the hub, listen window for listen modes")
	fs.IntVar(&o.Speed, "speed", 50, "motor speed -100..100, 127 brakes")
	fs.IntVar(&o.SoundID, "sound-id", 5, "speaker sound id")
	fs.IntVar(&o.ColorID, "color-id", 5, "light color id")
	fs.DurationVar(&o.RunTime, "run-time", 10*time.Second, "demo motor run time")
	fs.StringVar(&o.Filter, "filter", "", "listen-broadcast name filter")
	fs.BoolVar(&o.ManufacturerData, "manufacturer-data", false, "listen-broadcast prints manufacturer data")
	fs.BoolVar(&o.Verbose, "verbose", false, "listen-broadcast reports repeat advertisements")
	fs.BoolVar(&o.DryRun, "dry-run", false, "print frames instead of connecting to a hub")
	fs.StringVar(&o.Input, "input", "", "decode reads frames from this file (default stdin)")
	if err := fs.Parse(args); err != nil {
		return options{}, errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return options{}, errUsage
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logs.ConfigureRuntime()
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}
	cfg, err := loadCLIConfig(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "duploctl: %v\n", err)
		return 1
	}
	if err := applyFlags(&cfg, opts); err != nil {
		fmt.Fprintf(stderr, "duploctl: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newRunner(opts, cfg, stdin, stdout)
	if err := r.run(ctx); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "duploctl: unknown mode %q\n", opts.Mode)
			return 2
		}
		fmt.Fprintf(stderr, "duploctl: %v\n", err)
		return 1
	}
	return 0
}

// applyFlags lets explicitly set flags win over the config file.
func applyFlags(cfg *cliConfig, o options) error {
	if o.set["device-name"] {
		cfg.Base.Hub.Name = o.DeviceName
	}
	if o.set["timeout"] {
		if o.Timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		cfg.Base.Hub.ScanTimeout = o.Timeout.String()
	}
	if o.set["speed"] {
		if o.Speed != 127 && (o.Speed < -100 || o.Speed > 100) {
			return fmt.Errorf("speed out of range: %d", o.Speed)
		}
		cfg.Demo.Speed = int16(o.Speed)
		cfg.Base.Toothbrush.Speed = o.Speed
	}
	if o.set["sound-id"] {
		if o.SoundID < 0 || o.SoundID > 255 {
			return fmt.Errorf("sound-id out of range: %d", o.SoundID)
		}
		cfg.Demo.SoundID = uint8(o.SoundID)
		cfg.Base.Toothbrush.SoundID = o.SoundID
	}
	if o.set["color-id"] {
		if o.ColorID < 0 || o.ColorID > 255 {
			return fmt.Errorf("color-id out of range: %d", o.ColorID)
		}
		cfg.Demo.ColorID = uint8(o.ColorID)
	}
	if o.set["run-time"] {
		cfg.Demo.RunTime = o.RunTime
	}
	return nil
}
