package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/duploctl/internal/config"
	"github.com/danmuck/duploctl/internal/hub"
)

// fileConfig is the optional -config overlay. Only keys present in the file
// replace the built-in defaults.
type fileConfig struct {
	Hub struct {
		Name        string `toml:"name"`
		ScanTimeout string `toml:"scan_timeout"`
		ServiceUUID string `toml:"service_uuid"`
		CharUUID    string `toml:"char_uuid"`
	} `toml:"hub"`
	Ports struct {
		Motor   int `toml:"motor"`
		Speaker int `toml:"speaker"`
		Light   int `toml:"light"`
	} `toml:"ports"`
	Toothbrush struct {
		Enabled        bool   `toml:"enabled"`
		ServiceUUID    string `toml:"service_uuid"`
		ManufacturerID int    `toml:"manufacturer_id"`
		Speed          int    `toml:"speed"`
		SoundID        int    `toml:"sound_id"`
	} `toml:"toothbrush"`
	Demo struct {
		Speed   int    `toml:"speed"`
		SoundID int    `toml:"sound_id"`
		ColorID int    `toml:"color_id"`
		RunTime string `toml:"run_time"`
	} `toml:"demo"`
}

// cliConfig is everything the modes need after defaults, file and flags.
type cliConfig struct {
	Base config.Config
	Demo hub.DemoOptions
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Base: config.Default(),
		Demo: hub.DefaultDemoOptions(),
	}
}

func loadCLIConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()
	if strings.TrimSpace(path) == "" {
		config.ApplyEnv(&cfg.Base)
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load duploctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cliConfig{}, fmt.Errorf("load duploctl config: unknown key %s", undecoded[0])
	}

	if meta.IsDefined("hub", "name") {
		if name := strings.TrimSpace(raw.Hub.Name); name != "" {
			cfg.Base.Hub.Name = name
		}
	}
	if meta.IsDefined("hub", "scan_timeout") {
		cfg.Base.Hub.ScanTimeout = strings.TrimSpace(raw.Hub.ScanTimeout)
	}
	if meta.IsDefined("hub", "service_uuid") {
		cfg.Base.Hub.ServiceUUID = strings.TrimSpace(raw.Hub.ServiceUUID)
	}
	if meta.IsDefined("hub", "char_uuid") {
		cfg.Base.Hub.CharUUID = strings.TrimSpace(raw.Hub.CharUUID)
	}

	if meta.IsDefined("ports", "motor") {
		cfg.Base.Ports.Motor = raw.Ports.Motor
	}
	if meta.IsDefined("ports", "speaker") {
		cfg.Base.Ports.Speaker = raw.Ports.Speaker
	}
	if meta.IsDefined("ports", "light") {
		cfg.Base.Ports.Light = raw.Ports.Light
	}

	if meta.IsDefined("toothbrush", "enabled") {
		cfg.Base.Toothbrush.Enabled = raw.Toothbrush.Enabled
	}
	if meta.IsDefined("toothbrush", "service_uuid") {
		cfg.Base.Toothbrush.ServiceUUID = strings.TrimSpace(raw.Toothbrush.ServiceUUID)
	}
	if meta.IsDefined("toothbrush", "manufacturer_id") {
		cfg.Base.Toothbrush.ManufacturerID = raw.Toothbrush.ManufacturerID
	}
	if meta.IsDefined("toothbrush", "speed") {
		cfg.Base.Toothbrush.Speed = raw.Toothbrush.Speed
	}
	if meta.IsDefined("toothbrush", "sound_id") {
		cfg.Base.Toothbrush.SoundID = raw.Toothbrush.SoundID
	}

	if meta.IsDefined("demo", "speed") {
		if raw.Demo.Speed < -100 || raw.Demo.Speed > 100 {
			return cliConfig{}, fmt.Errorf("demo speed out of range: %d", raw.Demo.Speed)
		}
		cfg.Demo.Speed = int16(raw.Demo.Speed)
	}
	if meta.IsDefined("demo", "sound_id") {
		if raw.Demo.SoundID < 0 || raw.Demo.SoundID > 255 {
			return cliConfig{}, fmt.Errorf("demo sound_id out of range: %d", raw.Demo.SoundID)
		}
		cfg.Demo.SoundID = uint8(raw.Demo.SoundID)
	}
	if meta.IsDefined("demo", "color_id") {
		if raw.Demo.ColorID < 0 || raw.Demo.ColorID > 255 {
			return cliConfig{}, fmt.Errorf("demo color_id out of range: %d", raw.Demo.ColorID)
		}
		cfg.Demo.ColorID = uint8(raw.Demo.ColorID)
	}
	if meta.IsDefined("demo", "run_time") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Demo.RunTime))
		if err != nil {
			return cliConfig{}, fmt.Errorf("parse demo run_time: %w", err)
		}
		cfg.Demo.RunTime = d
	}

	config.ApplyEnv(&cfg.Base)
	if err := config.Validate(cfg.Base); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func (c cliConfig) ports() hub.Ports {
	return hub.Ports{
		Motor:   uint8(c.Base.Ports.Motor),
		Speaker: uint8(c.Base.Ports.Speaker),
		Light:   uint8(c.Base.Ports.Light),
	}
}
