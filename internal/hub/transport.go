package hub

import (
	"context"
	"errors"
	"fmt"
)

var ErrTransport = errors.New("hub: transport failure")

// Transport is the byte link to one hub. Send writes one complete frame.
// OnNotification installs the single callback for inbound frames; a later
// call replaces the earlier one.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	OnNotification(fn func(frame []byte))
}

// TransportError wraps a link failure with the command that hit it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("hub: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
