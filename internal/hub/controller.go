package hub

import (
	"context"
	"sync"
	"time"

	logs "github.com/danmuck/duploctl/internal/logging"
	"github.com/danmuck/duploctl/internal/protocol"
	"github.com/danmuck/duploctl/internal/protocol/command"
	"github.com/danmuck/duploctl/internal/protocol/dispatch"
	"github.com/danmuck/duploctl/internal/protocol/schema"
)

// Notification kinds handed to a Sink.
const (
	KindAttachedIO      = "hub_attached_io"
	KindGenericError    = "generic_error_message"
	KindPortValue       = "port_value_single"
	KindInputFormat     = "port_input_format_single"
	KindCommandFeedback = "port_output_command_feedback"
)

// Sink receives every decoded notification after the controller has
// recorded it.
type Sink func(kind string, record any)

// CommandObserver is told the outcome of every command the controller sends.
type CommandObserver interface {
	CommandSent(kind string, err error)
}

// Option configures a Controller.
type Option func(*Controller)

func WithPorts(p Ports) Option {
	return func(c *Controller) { c.ports = p }
}

func WithSink(s Sink) Option {
	return func(c *Controller) { c.sink = s }
}

func WithCommandObserver(o CommandObserver) Option {
	return func(c *Controller) { c.commands = o }
}

func WithFrameObserver(o dispatch.Observer) Option {
	return func(c *Controller) { c.handlers.SetObserver(o) }
}

// Controller sends commands to one hub and tracks what it reports back.
type Controller struct {
	transport Transport
	ports     Ports
	handlers  *dispatch.Handlers
	table     *PortTable
	sink      Sink
	commands  CommandObserver
	now       func() time.Time

	mu        sync.RWMutex
	lastError *schema.GenericError
	feedback  map[uint8]uint8
}

func NewController(t Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: t,
		ports:     DefaultPorts(),
		handlers:  dispatch.NewHandlers(),
		table:     NewPortTable(),
		now:       time.Now,
		feedback:  make(map[uint8]uint8),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.handlers.OnHubAttachedIO(c.onAttachedIO)
	c.handlers.OnGenericError(c.onGenericError)
	c.handlers.OnPortValueSingle(func(m schema.PortValueSingle) error {
		c.emit(KindPortValue, m)
		return nil
	})
	c.handlers.OnPortInputFormat(func(m schema.PortInputFormat) error {
		c.emit(KindInputFormat, m)
		return nil
	})
	c.handlers.OnPortOutputCommandFeedback(c.onFeedback)
	return c
}

func (c *Controller) Ports() Ports {
	return c.ports
}

// Handlers exposes the controller's registry. Registering on it replaces
// the controller's own handler for that kind.
func (c *Controller) Handlers() *dispatch.Handlers {
	return c.handlers
}

// Listen routes inbound frames from the transport through the dispatcher.
func (c *Controller) Listen() {
	c.transport.OnNotification(c.HandleFrame)
}

// HandleFrame dispatches one inbound frame. Malformed frames are logged and
// dropped.
func (c *Controller) HandleFrame(raw []byte) {
	if err := c.handlers.Dispatch(raw); err != nil {
		logs.Warnf("hub.HandleFrame drop len=%d: %v", len(raw), err)
	}
}

// Setup starts listening and subscribes to the speaker port so it reports
// sound playback.
func (c *Controller) Setup(ctx context.Context) error {
	c.Listen()
	return c.SetupPortInputFormat(ctx, c.ports.Speaker, 1)
}

func (c *Controller) SetupPortInputFormat(ctx context.Context, portID, mode uint8) error {
	return c.send(ctx, "port_input_format", func() ([]byte, error) {
		return command.DefaultPortInputFormat(portID, mode)
	})
}

func (c *Controller) SetMotorSpeed(ctx context.Context, portID uint8, speed int16) error {
	return c.send(ctx, "motor_speed", func() ([]byte, error) {
		return command.MotorSpeed(portID, speed)
	})
}

func (c *Controller) PlaySound(ctx context.Context, portID, soundID uint8) error {
	return c.send(ctx, "play_sound", func() ([]byte, error) {
		return command.PlaySound(portID, soundID)
	})
}

func (c *Controller) SetLight(ctx context.Context, portID, colorID uint8) error {
	return c.send(ctx, "set_light", func() ([]byte, error) {
		return command.SetLight(portID, colorID)
	})
}

func (c *Controller) RequestPortInformation(ctx context.Context, portID uint8, info protocol.InformationType) error {
	return c.send(ctx, "port_information", func() ([]byte, error) {
		return command.PortInformationRequest(portID, info)
	})
}

// Drive sets the speed of the configured motor port.
func (c *Controller) Drive(ctx context.Context, speed int16) error {
	return c.SetMotorSpeed(ctx, c.ports.Motor, speed)
}

// Stop lets the motor coast to a halt.
func (c *Controller) Stop(ctx context.Context) error {
	return c.Drive(ctx, 0)
}

// Brake stops the motor with the brake value.
func (c *Controller) Brake(ctx context.Context) error {
	return c.Drive(ctx, command.SpeedBrake)
}

func (c *Controller) Sound(ctx context.Context, soundID uint8) error {
	return c.PlaySound(ctx, c.ports.Speaker, soundID)
}

func (c *Controller) Light(ctx context.Context, colorID uint8) error {
	return c.SetLight(ctx, c.ports.Light, colorID)
}

func (c *Controller) PlayHorn(ctx context.Context) error {
	return c.Sound(ctx, command.SoundHorn)
}

func (c *Controller) PlayStation(ctx context.Context) error {
	return c.Sound(ctx, command.SoundStation)
}

func (c *Controller) LightRed(ctx context.Context) error {
	return c.Light(ctx, command.ColorRed)
}

func (c *Controller) LightGreen(ctx context.Context) error {
	return c.Light(ctx, command.ColorGreen)
}

func (c *Controller) LightBlue(ctx context.Context) error {
	return c.Light(ctx, command.ColorBlue)
}

// AttachedPorts lists the peripherals the hub has reported, by port id.
func (c *Controller) AttachedPorts() []AttachedPort {
	return c.table.List()
}

// LastError returns the most recent generic error the hub reported.
func (c *Controller) LastError() (schema.GenericError, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastError == nil {
		return schema.GenericError{}, false
	}
	return *c.lastError, true
}

// Feedback returns the last output-command feedback byte for portID.
func (c *Controller) Feedback(portID uint8) (uint8, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.feedback[portID]
	return v, ok
}

func (c *Controller) send(ctx context.Context, kind string, build func() ([]byte, error)) error {
	raw, err := build()
	if err != nil {
		logs.Errf("hub.send build kind=%s: %v", kind, err)
		c.observeCommand(kind, err)
		return err
	}
	if err := ctx.Err(); err != nil {
		c.observeCommand(kind, err)
		return err
	}
	logs.Debugf("hub.send kind=%s frame=% x", kind, raw)
	if err := c.transport.Send(ctx, raw); err != nil {
		wrapped := &TransportError{Op: kind, Err: err}
		logs.Errf("hub.send kind=%s: %v", kind, err)
		c.observeCommand(kind, wrapped)
		return wrapped
	}
	c.observeCommand(kind, nil)
	return nil
}

func (c *Controller) observeCommand(kind string, err error) {
	if c.commands != nil {
		c.commands.CommandSent(kind, err)
	}
}

func (c *Controller) onAttachedIO(m schema.HubAttachedIO) error {
	logs.Infof("hub attached port=%d event=%s io_type=%s", m.PortID, m.Event, m.IoType)
	c.table.Apply(m, c.now())
	c.emit(KindAttachedIO, m)
	return nil
}

func (c *Controller) onGenericError(m schema.GenericError) error {
	if m.Code != protocol.ErrorACK {
		logs.Warnf("hub error command=0x%02x code=%s", m.CommandType, m.Code)
	}
	c.mu.Lock()
	c.lastError = &m
	c.mu.Unlock()
	c.emit(KindGenericError, m)
	return nil
}

func (c *Controller) onFeedback(m schema.PortOutputCommandFeedback) error {
	c.mu.Lock()
	c.feedback[m.PortID] = m.Feedback
	c.mu.Unlock()
	c.emit(KindCommandFeedback, m)
	return nil
}

func (c *Controller) emit(kind string, record any) {
	if c.sink != nil {
		c.sink(kind, record)
	}
}
