package schema

import (
	"github.com/danmuck/duploctl/internal/protocol"
	"github.com/danmuck/duploctl/internal/protocol/frame"
)

// HubAttachedIO announces a peripheral appearing on or leaving a port.
type HubAttachedIO struct {
	Header           frame.Header
	PortID           uint8
	Event            protocol.IoEvent
	IoType           protocol.IoType
	HardwareRevision uint32
	SoftwareRevision uint32
}

func DecodeHubAttachedIO(b []byte) (HubAttachedIO, error) {
	r, h, err := open(b, protocol.MessageHubAttachedIO)
	if err != nil {
		return HubAttachedIO{}, err
	}
	m := HubAttachedIO{Header: h}
	if m.PortID, err = r.Uint8("port_id"); err != nil {
		return HubAttachedIO{}, err
	}
	ev, err := r.Uint8("event")
	if err != nil {
		return HubAttachedIO{}, err
	}
	m.Event = protocol.IoEvent(ev)
	if !m.Event.Valid() {
		return HubAttachedIO{}, protocol.DiscriminantError{Field: "event", Raw: uint16(ev)}
	}
	ioRaw, err := r.Uint16("io_type")
	if err != nil {
		return HubAttachedIO{}, err
	}
	m.IoType = protocol.IoType(ioRaw)
	if !m.IoType.Valid() {
		return HubAttachedIO{}, protocol.DiscriminantError{Field: "io_type", Raw: ioRaw}
	}
	if m.HardwareRevision, err = r.Uint32("hardware_revision"); err != nil {
		return HubAttachedIO{}, err
	}
	if m.SoftwareRevision, err = r.Uint32("software_revision"); err != nil {
		return HubAttachedIO{}, err
	}
	return m, nil
}

func EncodeHubAttachedIO(m HubAttachedIO) ([]byte, error) {
	if !m.Event.Valid() {
		return nil, protocol.VariantError{Field: "event", Raw: uint16(m.Event)}
	}
	if !m.IoType.Valid() {
		return nil, protocol.VariantError{Field: "io_type", Raw: uint16(m.IoType)}
	}
	w := writer(15)
	w.PutUint8(m.PortID)
	w.PutUint8(uint8(m.Event))
	w.PutUint16(uint16(m.IoType))
	w.PutUint32(m.HardwareRevision)
	w.PutUint32(m.SoftwareRevision)
	return seal(w, m.Header, protocol.MessageHubAttachedIO)
}

// GenericError is the hub's status reply to a host command.
type GenericError struct {
	Header      frame.Header
	CommandType uint8
	Code        protocol.ErrorCode
}

func DecodeGenericError(b []byte) (GenericError, error) {
	r, h, err := open(b, protocol.MessageGenericError)
	if err != nil {
		return GenericError{}, err
	}
	m := GenericError{Header: h}
	if m.CommandType, err = r.Uint8("command_type"); err != nil {
		return GenericError{}, err
	}
	code, err := r.Uint8("error_code")
	if err != nil {
		return GenericError{}, err
	}
	m.Code = protocol.ErrorCode(code)
	if !m.Code.Valid() {
		return GenericError{}, protocol.DiscriminantError{Field: "error_code", Raw: uint16(code)}
	}
	return m, nil
}

func EncodeGenericError(m GenericError) ([]byte, error) {
	if !m.Code.Valid() {
		return nil, protocol.VariantError{Field: "error_code", Raw: uint16(m.Code)}
	}
	w := writer(5)
	w.PutUint8(m.CommandType)
	w.PutUint8(uint8(m.Code))
	return seal(w, m.Header, protocol.MessageGenericError)
}

// PortInformationRequest asks the hub to describe a port.
type PortInformationRequest struct {
	Header          frame.Header
	PortID          uint8
	InformationType protocol.InformationType
}

func DecodePortInformationRequest(b []byte) (PortInformationRequest, error) {
	r, h, err := open(b, protocol.MessagePortInformationRequest)
	if err != nil {
		return PortInformationRequest{}, err
	}
	m := PortInformationRequest{Header: h}
	if m.PortID, err = r.Uint8("port_id"); err != nil {
		return PortInformationRequest{}, err
	}
	info, err := r.Uint8("information_type")
	if err != nil {
		return PortInformationRequest{}, err
	}
	m.InformationType = protocol.InformationType(info)
	if !m.InformationType.Valid() {
		return PortInformationRequest{}, protocol.DiscriminantError{Field: "information_type", Raw: uint16(info)}
	}
	return m, nil
}

func EncodePortInformationRequest(m PortInformationRequest) ([]byte, error) {
	if !m.InformationType.Valid() {
		return nil, protocol.VariantError{Field: "information_type", Raw: uint16(m.InformationType)}
	}
	w := writer(5)
	w.PutUint8(m.PortID)
	w.PutUint8(uint8(m.InformationType))
	return seal(w, m.Header, protocol.MessagePortInformationRequest)
}

// PortInputFormat configures (0x41) or reports (0x47) a port's
// notification mode. Both directions share one layout.
type PortInputFormat struct {
	Header              frame.Header
	PortID              uint8
	Mode                uint8
	DeltaInterval       uint32
	NotificationEnabled bool
}

// DecodePortInputFormat accepts either the setup or the report message type;
// the header says which one it was.
func DecodePortInputFormat(b []byte) (PortInputFormat, error) {
	mt := protocol.MessagePortInputFormatSingle
	if len(b) >= frame.HeaderLen && protocol.MessageType(b[2]) == protocol.MessagePortInputFormatSetupSingle {
		mt = protocol.MessagePortInputFormatSetupSingle
	}
	r, h, err := open(b, mt)
	if err != nil {
		return PortInputFormat{}, err
	}
	m := PortInputFormat{Header: h}
	if m.PortID, err = r.Uint8("port_id"); err != nil {
		return PortInputFormat{}, err
	}
	if m.Mode, err = r.Uint8("mode"); err != nil {
		return PortInputFormat{}, err
	}
	if m.DeltaInterval, err = r.Uint32("delta_interval"); err != nil {
		return PortInputFormat{}, err
	}
	if m.NotificationEnabled, err = r.Flag("notification_enabled"); err != nil {
		return PortInputFormat{}, err
	}
	return m, nil
}

// EncodePortInputFormat defaults to the setup message type when the header
// leaves it zero.
func EncodePortInputFormat(m PortInputFormat) ([]byte, error) {
	w := writer(10)
	w.PutUint8(m.PortID)
	w.PutUint8(m.Mode)
	w.PutUint32(m.DeltaInterval)
	w.PutFlag(m.NotificationEnabled)
	return seal(w, m.Header, protocol.MessagePortInputFormatSetupSingle, protocol.MessagePortInputFormatSingle)
}

// PortValueSingle carries a port's current value. The value width depends on
// the port's mode, so it stays raw.
type PortValueSingle struct {
	Header frame.Header
	PortID uint8
	Value  []byte
}

func DecodePortValueSingle(b []byte) (PortValueSingle, error) {
	r, h, err := open(b, protocol.MessagePortValueSingle)
	if err != nil {
		return PortValueSingle{}, err
	}
	m := PortValueSingle{Header: h}
	if m.PortID, err = r.Uint8("port_id"); err != nil {
		return PortValueSingle{}, err
	}
	m.Value = r.Rest()
	return m, nil
}

func EncodePortValueSingle(m PortValueSingle) ([]byte, error) {
	w := writer(4 + len(m.Value))
	w.PutUint8(m.PortID)
	w.PutBytes(m.Value)
	return seal(w, m.Header, protocol.MessagePortValueSingle)
}

// StartupCompletion is the packed execution-flags byte of an output command.
// Startup occupies the high nibble.
type StartupCompletion struct {
	Startup    uint8
	Completion uint8
}

// PortOutputCommand drives an output port. Payload is interpreted by
// SubCommand.
type PortOutputCommand struct {
	Header            frame.Header
	PortID            uint8
	StartupCompletion StartupCompletion
	SubCommand        uint8
	Payload           []byte
}

func DecodePortOutputCommand(b []byte) (PortOutputCommand, error) {
	r, h, err := open(b, protocol.MessagePortOutputCommand)
	if err != nil {
		return PortOutputCommand{}, err
	}
	m := PortOutputCommand{Header: h}
	if m.PortID, err = r.Uint8("port_id"); err != nil {
		return PortOutputCommand{}, err
	}
	hi, lo, err := r.Nibbles("startup_and_completion")
	if err != nil {
		return PortOutputCommand{}, err
	}
	m.StartupCompletion = StartupCompletion{Startup: hi, Completion: lo}
	if m.SubCommand, err = r.Uint8("sub_command"); err != nil {
		return PortOutputCommand{}, err
	}
	m.Payload = r.Rest()
	return m, nil
}

func EncodePortOutputCommand(m PortOutputCommand) ([]byte, error) {
	w := writer(6 + len(m.Payload))
	w.PutUint8(m.PortID)
	if err := w.PutNibbles("startup_and_completion", m.StartupCompletion.Startup, m.StartupCompletion.Completion); err != nil {
		return nil, err
	}
	w.PutUint8(m.SubCommand)
	w.PutBytes(m.Payload)
	return seal(w, m.Header, protocol.MessagePortOutputCommand)
}

// PortOutputCommandFeedback reports the buffer state of an output port.
type PortOutputCommandFeedback struct {
	Header   frame.Header
	PortID   uint8
	Feedback uint8
}

func DecodePortOutputCommandFeedback(b []byte) (PortOutputCommandFeedback, error) {
	r, h, err := open(b, protocol.MessagePortOutputCommandFeedback)
	if err != nil {
		return PortOutputCommandFeedback{}, err
	}
	m := PortOutputCommandFeedback{Header: h}
	if m.PortID, err = r.Uint8("port_id"); err != nil {
		return PortOutputCommandFeedback{}, err
	}
	if m.Feedback, err = r.Uint8("feedback"); err != nil {
		return PortOutputCommandFeedback{}, err
	}
	return m, nil
}

func EncodePortOutputCommandFeedback(m PortOutputCommandFeedback) ([]byte, error) {
	w := writer(5)
	w.PutUint8(m.PortID)
	w.PutUint8(m.Feedback)
	return seal(w, m.Header, protocol.MessagePortOutputCommandFeedback)
}
