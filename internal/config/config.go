package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/duploctl/internal/wearable"
)

const (
	DefaultHubName     = "Train Base"
	DefaultServiceUUID = "00001623-1212-efde-1623-785feabcd123"
	DefaultCharUUID    = "00001624-1212-efde-1623-785feabcd123"

	EnvServiceUUID = "DUPLOCTL_SERVICE_UUID"
	EnvCharUUID    = "DUPLOCTL_CHAR_UUID"
	EnvHTTPToken   = "DUPLOCTL_HTTP_TOKEN"
)

type Config struct {
	Hub        HubConfig        `toml:"hub"`
	Ports      PortsConfig      `toml:"ports"`
	Toothbrush ToothbrushConfig `toml:"toothbrush"`
	HTTP       HTTPConfig       `toml:"http"`
}

type HubConfig struct {
	Name        string `toml:"name"`
	ScanTimeout string `toml:"scan_timeout"`
	ServiceUUID string `toml:"service_uuid"`
	CharUUID    string `toml:"char_uuid"`
	// ConnectAttempts caps hub scans at startup; zero retries forever.
	ConnectAttempts int `toml:"connect_attempts"`
}

type PortsConfig struct {
	Motor   int `toml:"motor"`
	Speaker int `toml:"speaker"`
	Light   int `toml:"light"`
}

type ToothbrushConfig struct {
	Enabled        bool   `toml:"enabled"`
	ServiceUUID    string `toml:"service_uuid"`
	ManufacturerID int    `toml:"manufacturer_id"`
	Speed          int    `toml:"speed"`
	SoundID        int    `toml:"sound_id"`
}

type HTTPConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	// Token guards the command endpoints when set.
	Token string `toml:"token"`
}

func Default() Config {
	return Config{
		Hub: HubConfig{
			Name:        DefaultHubName,
			ScanTimeout: "30s",
			ServiceUUID: DefaultServiceUUID,
			CharUUID:    DefaultCharUUID,

			ConnectAttempts: 5,
		},
		Ports: PortsConfig{Motor: 0, Speaker: 1, Light: 17},
		Toothbrush: ToothbrushConfig{
			ServiceUUID:    wearable.ServiceUUID,
			ManufacturerID: int(wearable.ManufacturerID),
			Speed:          50,
			SoundID:        9,
		},
		HTTP: HTTPConfig{
			Addr:        ":9300",
			CorsOrigins: []string{"http://localhost:3000"},
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	ApplyEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides the hub UUIDs and the http token from the environment
// when set.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvServiceUUID)); v != "" {
		cfg.Hub.ServiceUUID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCharUUID)); v != "" {
		cfg.Hub.CharUUID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHTTPToken)); v != "" {
		cfg.HTTP.Token = v
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// ScanTimeoutDuration parses Hub.ScanTimeout.
func (c Config) ScanTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.Hub.ScanTimeout))
	if err != nil {
		return 0, fmt.Errorf("hub scan_timeout: %w", err)
	}
	return d, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Hub.Name) == "" {
		return fmt.Errorf("hub config missing name")
	}
	d, err := cfg.ScanTimeoutDuration()
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("hub scan_timeout must be positive")
	}
	if cfg.Hub.ConnectAttempts < 0 {
		return fmt.Errorf("hub connect_attempts must not be negative")
	}
	if !isUUID(cfg.Hub.ServiceUUID) {
		return fmt.Errorf("hub service_uuid invalid: %q", cfg.Hub.ServiceUUID)
	}
	if !isUUID(cfg.Hub.CharUUID) {
		return fmt.Errorf("hub char_uuid invalid: %q", cfg.Hub.CharUUID)
	}
	for name, v := range map[string]int{
		"motor":   cfg.Ports.Motor,
		"speaker": cfg.Ports.Speaker,
		"light":   cfg.Ports.Light,
	} {
		if v < 0 || v > 255 {
			return fmt.Errorf("ports %s out of range: %d", name, v)
		}
	}
	if err := ValidateToothbrush(cfg.Toothbrush); err != nil {
		return fmt.Errorf("toothbrush invalid: %w", err)
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return fmt.Errorf("http config missing addr")
	}
	return nil
}

func ValidateToothbrush(cfg ToothbrushConfig) error {
	if cfg.ServiceUUID != "" && !isUUID(cfg.ServiceUUID) {
		return fmt.Errorf("service_uuid invalid: %q", cfg.ServiceUUID)
	}
	if cfg.ManufacturerID < 0 || cfg.ManufacturerID > 0xFFFF {
		return fmt.Errorf("manufacturer_id out of range: %d", cfg.ManufacturerID)
	}
	if cfg.Speed < -100 || cfg.Speed > 100 {
		return fmt.Errorf("speed out of range: %d", cfg.Speed)
	}
	if cfg.SoundID < 0 || cfg.SoundID > 255 {
		return fmt.Errorf("sound_id out of range: %d", cfg.SoundID)
	}
	return nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
