package protocol

import "fmt"

// MessageType is the header discriminator. The set is open: values without
// a named constant still decode and report Known() == false.
type MessageType uint8

const (
	MessageHubActions                 MessageType = 0x02
	MessageHubAttachedIO              MessageType = 0x04
	MessageGenericError               MessageType = 0x05
	MessagePortInformationRequest     MessageType = 0x21
	MessagePortInputFormatSetupSingle MessageType = 0x41
	MessagePortValueSingle            MessageType = 0x45
	MessagePortInputFormatSingle      MessageType = 0x47
	MessagePortOutputCommand          MessageType = 0x81
	MessagePortOutputCommandFeedback  MessageType = 0x82
)

var messageTypeNames = map[MessageType]string{
	MessageHubActions:                 "hub_actions",
	MessageHubAttachedIO:              "hub_attached_io",
	MessageGenericError:               "generic_error_message",
	MessagePortInformationRequest:     "port_information_request",
	MessagePortInputFormatSetupSingle: "port_input_format_setup_single",
	MessagePortValueSingle:            "port_value_single",
	MessagePortInputFormatSingle:      "port_input_format_single",
	MessagePortOutputCommand:          "port_output_command",
	MessagePortOutputCommandFeedback:  "port_output_command_feedback",
}

func (t MessageType) Known() bool {
	_, ok := messageTypeNames[t]
	return ok
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(t))
}

// IoType identifies the peripheral attached to a hub port.
type IoType uint16

const (
	IoVoltage               IoType = 0x0014
	IoRGBLight              IoType = 0x0017
	IoDuploTrainMotor       IoType = 0x0029
	IoDuploTrainSpeaker     IoType = 0x002A
	IoDuploTrainColor       IoType = 0x002B
	IoDuploTrainSpeedometer IoType = 0x002C
)

var ioTypeNames = map[IoType]string{
	IoVoltage:               "voltage",
	IoRGBLight:              "rgb_light",
	IoDuploTrainMotor:       "duplo_train_motor",
	IoDuploTrainSpeaker:     "duplo_train_speaker",
	IoDuploTrainColor:       "duplo_train_color",
	IoDuploTrainSpeedometer: "duplo_train_speedometer",
}

func (t IoType) Valid() bool {
	_, ok := ioTypeNames[t]
	return ok
}

func (t IoType) String() string {
	if name, ok := ioTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("IoType(0x%04x)", uint16(t))
}

// IoEvent is the attach/detach event carried by hub_attached_io.
type IoEvent uint8

const (
	IoDetached        IoEvent = 0x00
	IoAttached        IoEvent = 0x01
	IoAttachedVirtual IoEvent = 0x02
)

func (e IoEvent) Valid() bool {
	return e <= IoAttachedVirtual
}

func (e IoEvent) String() string {
	switch e {
	case IoDetached:
		return "detached_io"
	case IoAttached:
		return "attached_io"
	case IoAttachedVirtual:
		return "attached_virtual_io"
	default:
		return fmt.Sprintf("IoEvent(0x%02x)", uint8(e))
	}
}

// ErrorCode is the status carried by generic_error_message.
type ErrorCode uint8

const (
	ErrorACK                  ErrorCode = 0x01
	ErrorMACK                 ErrorCode = 0x02
	ErrorBufferOverflow       ErrorCode = 0x03
	ErrorTimeout              ErrorCode = 0x04
	ErrorCommandNotRecognized ErrorCode = 0x05
	ErrorInvalidUse           ErrorCode = 0x06
	ErrorOvercurrent          ErrorCode = 0x07
	ErrorInternal             ErrorCode = 0x08
)

var errorCodeNames = [...]string{
	ErrorACK:                  "ACK",
	ErrorMACK:                 "MACK",
	ErrorBufferOverflow:       "BUFFER_OVERFLOW",
	ErrorTimeout:              "TIMEOUT",
	ErrorCommandNotRecognized: "COMMAND_NOT_RECOGNIZED",
	ErrorInvalidUse:           "INVALID_USE",
	ErrorOvercurrent:          "OVERCURRENT",
	ErrorInternal:             "INTERNAL_ERROR",
}

func (c ErrorCode) Valid() bool {
	return c >= ErrorACK && c <= ErrorInternal
}

func (c ErrorCode) String() string {
	if c.Valid() {
		return errorCodeNames[c]
	}
	return fmt.Sprintf("ErrorCode(0x%02x)", uint8(c))
}

// InformationType selects what a port_information_request asks for.
type InformationType uint8

const (
	InfoPortValue                InformationType = 0x00
	InfoModeInfo                 InformationType = 0x01
	InfoPossibleModeCombinations InformationType = 0x02
)

func (i InformationType) Valid() bool {
	return i <= InfoPossibleModeCombinations
}

func (i InformationType) String() string {
	switch i {
	case InfoPortValue:
		return "port_value"
	case InfoModeInfo:
		return "mode_info"
	case InfoPossibleModeCombinations:
		return "possible_mode_combinations"
	default:
		return fmt.Sprintf("InformationType(0x%02x)", uint8(i))
	}
}
