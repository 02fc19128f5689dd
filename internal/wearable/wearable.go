// Package wearable decodes the toothbrush advertisement payload and reports
// edges between consecutive snapshots.
package wearable

import (
	"fmt"

	"github.com/danmuck/duploctl/internal/protocol"
)

// ManufacturerID keys the advertisement record carrying the payload.
const ManufacturerID uint16 = 220

// ServiceUUID is advertised by the toothbrush alongside its payload.
const ServiceUUID = "0000fe0d-0000-1000-8000-00805f9b34fb"

// PayloadLen is the size of one advertisement payload.
const PayloadLen = 11

type State uint8

const (
	StateUnknown       State = 0
	StateInitializing  State = 1
	StateIdle          State = 2
	StateRunning       State = 3
	StateCharging      State = 4
	StateSetup         State = 5
	StateFlightMenu    State = 6
	StateSelectionMenu State = 8
	StateOff           State = 9
)

var stateNames = map[State]string{
	StateUnknown:       "unknown",
	StateInitializing:  "initializing",
	StateIdle:          "idle",
	StateRunning:       "running",
	StateCharging:      "charging",
	StateSetup:         "setup",
	StateFlightMenu:    "flight_menu",
	StateSelectionMenu: "selection_menu",
	StateOff:           "off",
}

func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

type Mode uint8

const (
	ModeDailyClean     Mode = 0
	ModeSensitive      Mode = 1
	ModeGumCare        Mode = 2
	ModeWhiten         Mode = 3
	ModeIntense        Mode = 4
	ModeSuperSensitive Mode = 5
	ModeTongueClean    Mode = 6
	ModeSettings       Mode = 8
)

var modeNames = map[Mode]string{
	ModeDailyClean:     "daily_clean",
	ModeSensitive:      "sensitive",
	ModeGumCare:        "gum_care",
	ModeWhiten:         "whiten",
	ModeIntense:        "intense",
	ModeSuperSensitive: "super_sensitive",
	ModeTongueClean:    "tongue_clean",
	ModeSettings:       "settings",
}

func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// PressureFlags unpacks the status byte, most significant bit first.
type PressureFlags struct {
	HighPressure       bool `json:"high_pressure"`
	MotorSpeed         bool `json:"motor_speed"`
	Unknown1           bool `json:"unknown1"`
	Unknown2           bool `json:"unknown2"`
	PowerButtonPressed bool `json:"power_button_pressed"`
	ModeButtonPressed  bool `json:"mode_button_pressed"`
	TimerMode          bool `json:"timer_mode"`
	Unknown3           bool `json:"unknown3"`
}

func unpackFlags(b uint8) PressureFlags {
	return PressureFlags{
		HighPressure:       b&0x80 != 0,
		MotorSpeed:         b&0x40 != 0,
		Unknown1:           b&0x20 != 0,
		Unknown2:           b&0x10 != 0,
		PowerButtonPressed: b&0x08 != 0,
		ModeButtonPressed:  b&0x04 != 0,
		TimerMode:          b&0x02 != 0,
		Unknown3:           b&0x01 != 0,
	}
}

func (p PressureFlags) pack() uint8 {
	var b uint8
	for i, set := range p.bits() {
		if set {
			b |= 0x80 >> i
		}
	}
	return b
}

func (p PressureFlags) bits() [8]bool {
	return [8]bool{
		p.HighPressure, p.MotorSpeed, p.Unknown1, p.Unknown2,
		p.PowerButtonPressed, p.ModeButtonPressed, p.TimerMode, p.Unknown3,
	}
}

// Any reports whether at least one flag is set.
func (p PressureFlags) Any() bool {
	return p != PressureFlags{}
}

// Event is one decoded advertisement snapshot. It is comparable, so two
// snapshots are equal exactly when their payloads are.
type Event struct {
	Model         [3]byte       `json:"model"`
	State         State         `json:"state"`
	Pressure      PressureFlags `json:"pressure"`
	BrushMinutes  uint8         `json:"brush_minutes"`
	BrushSeconds  uint8         `json:"brush_seconds"`
	Mode          Mode          `json:"mode"`
	Sector        uint8         `json:"sector"`
	SectorTimer   uint8         `json:"sector_timer"`
	SectorCounter uint8         `json:"sector_counter"`
}

// Decode reads the first PayloadLen bytes of b.
func Decode(b []byte) (Event, error) {
	if len(b) < PayloadLen {
		return Event{}, protocol.TruncatedError{Field: "wearable", Need: PayloadLen, Have: len(b)}
	}
	var ev Event
	copy(ev.Model[:], b[0:3])
	ev.State = State(b[3])
	if !ev.State.Valid() {
		return Event{}, protocol.DiscriminantError{Field: "state", Raw: uint16(b[3])}
	}
	ev.Pressure = unpackFlags(b[4])
	ev.BrushMinutes = b[5]
	ev.BrushSeconds = b[6]
	ev.Mode = Mode(b[7])
	if !ev.Mode.Valid() {
		return Event{}, protocol.DiscriminantError{Field: "mode", Raw: uint16(b[7])}
	}
	ev.Sector = b[8]
	ev.SectorTimer = b[9]
	ev.SectorCounter = b[10]
	return ev, nil
}

func Encode(ev Event) ([]byte, error) {
	if !ev.State.Valid() {
		return nil, protocol.VariantError{Field: "state", Raw: uint16(ev.State)}
	}
	if !ev.Mode.Valid() {
		return nil, protocol.VariantError{Field: "mode", Raw: uint16(ev.Mode)}
	}
	out := make([]byte, 0, PayloadLen)
	out = append(out, ev.Model[:]...)
	out = append(out,
		uint8(ev.State),
		ev.Pressure.pack(),
		ev.BrushMinutes,
		ev.BrushSeconds,
		uint8(ev.Mode),
		ev.Sector,
		ev.SectorTimer,
		ev.SectorCounter,
	)
	return out, nil
}
