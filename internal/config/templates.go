package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "duplod", "daemon":
		return daemonTemplate, nil
	case "toothbrush":
		return toothbrushTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const daemonTemplate = `[hub]
name = "Train Base"
scan_timeout = "30s"
service_uuid = "00001623-1212-efde-1623-785feabcd123"
char_uuid = "00001624-1212-efde-1623-785feabcd123"
connect_attempts = 5

[ports]
motor = 0
speaker = 1
light = 17

[toothbrush]
enabled = false
service_uuid = "0000fe0d-0000-1000-8000-00805f9b34fb"
manufacturer_id = 220
speed = 50
sound_id = 9

[http]
addr = ":9300"
cors_origins = ["http://localhost:3000"]
# token = "change-me"
`

const toothbrushTemplate = `[hub]
name = "Train Base"
scan_timeout = "30s"

[toothbrush]
enabled = true
manufacturer_id = 220
speed = 50
sound_id = 9
`
