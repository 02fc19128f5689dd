// Package command builds ready-to-send frames for hub-directed intents.
package command

import (
	"github.com/danmuck/duploctl/internal/protocol"
	"github.com/danmuck/duploctl/internal/protocol/frame"
	"github.com/danmuck/duploctl/internal/protocol/schema"
)

// SubCommandWriteDirectModeData writes a mode value straight to the port.
const SubCommandWriteDirectModeData uint8 = 0x51

// Mode bytes leading a direct-mode payload.
const (
	modeValue uint8 = 0x00
	modeSound uint8 = 0x01
)

const (
	SpeedMax   int16 = 100
	SpeedBrake int16 = 127
)

// Sound ids understood by the train speaker.
const (
	SoundBrake   uint8 = 3
	SoundStation uint8 = 5
	SoundWater   uint8 = 7
	SoundHorn    uint8 = 9
	SoundSteam   uint8 = 10
)

// Color ids understood by the train light.
const (
	ColorBlue   uint8 = 3
	ColorRed    uint8 = 5
	ColorGreen  uint8 = 7
	ColorYellow uint8 = 9
)

var sounds = map[string]uint8{
	"brake":   SoundBrake,
	"station": SoundStation,
	"water":   SoundWater,
	"horn":    SoundHorn,
	"steam":   SoundSteam,
}

var colors = map[string]uint8{
	"blue":   ColorBlue,
	"red":    ColorRed,
	"green":  ColorGreen,
	"yellow": ColorYellow,
}

// LookupSound resolves a sound name to its id.
func LookupSound(name string) (uint8, bool) {
	id, ok := sounds[name]
	return id, ok
}

// LookupColor resolves a color name to its id.
func LookupColor(name string) (uint8, bool) {
	id, ok := colors[name]
	return id, ok
}

// Fire-and-forget execution flags used by every output command.
var executeImmediately = schema.StartupCompletion{Startup: 1, Completion: 1}

// EncodeSpeed maps a signed speed to its wire byte. 127 is the brake value
// and passes through; anything else above 100 clamps to 100. Negative values
// are stored as their low 8 bits in two's complement and are not clamped,
// so -101 encodes as 155 rather than as -100.
func EncodeSpeed(speed int16) uint8 {
	if speed == SpeedBrake {
		return uint8(SpeedBrake)
	}
	if speed > SpeedMax {
		speed = SpeedMax
	}
	return uint8(speed & 0xFF)
}

// PortInputFormat builds a port_input_format_setup_single frame.
func PortInputFormat(portID, mode uint8, deltaInterval uint32, notify bool) ([]byte, error) {
	return schema.EncodePortInputFormat(schema.PortInputFormat{
		Header:              header(10, protocol.MessagePortInputFormatSetupSingle),
		PortID:              portID,
		Mode:                mode,
		DeltaInterval:       deltaInterval,
		NotificationEnabled: notify,
	})
}

// DefaultPortInputFormat subscribes to every change of mode on portID.
func DefaultPortInputFormat(portID, mode uint8) ([]byte, error) {
	return PortInputFormat(portID, mode, 1, true)
}

func MotorSpeed(portID uint8, speed int16) ([]byte, error) {
	return directMode(portID, modeValue, EncodeSpeed(speed))
}

func PlaySound(portID, soundID uint8) ([]byte, error) {
	return directMode(portID, modeSound, soundID)
}

func SetLight(portID, colorID uint8) ([]byte, error) {
	return directMode(portID, modeValue, colorID)
}

// PortInformationRequest asks the hub to describe portID.
func PortInformationRequest(portID uint8, info protocol.InformationType) ([]byte, error) {
	return schema.EncodePortInformationRequest(schema.PortInformationRequest{
		Header:          header(5, protocol.MessagePortInformationRequest),
		PortID:          portID,
		InformationType: info,
	})
}

func directMode(portID, mode, value uint8) ([]byte, error) {
	return schema.EncodePortOutputCommand(schema.PortOutputCommand{
		Header:            header(8, protocol.MessagePortOutputCommand),
		PortID:            portID,
		StartupCompletion: executeImmediately,
		SubCommand:        SubCommandWriteDirectModeData,
		Payload:           []byte{mode, value},
	})
}

func header(length uint8, mt protocol.MessageType) frame.Header {
	return frame.Header{Length: length, HubID: frame.DefaultHubID, MessageType: mt}
}
