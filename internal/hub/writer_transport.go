package hub

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// WriterTransport prints each outbound frame as a hex line instead of
// sending it. Inbound frames only arrive through Inject.
type WriterTransport struct {
	mu     sync.Mutex
	out    io.Writer
	notify func([]byte)
}

func NewWriterTransport(out io.Writer) *WriterTransport {
	return &WriterTransport{out: out}
}

func (t *WriterTransport) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.out, "% x\n", frame)
	return err
}

func (t *WriterTransport) OnNotification(fn func([]byte)) {
	t.mu.Lock()
	t.notify = fn
	t.mu.Unlock()
}

// Inject delivers raw as if the hub had sent it.
func (t *WriterTransport) Inject(raw []byte) {
	t.mu.Lock()
	fn := t.notify
	t.mu.Unlock()
	if fn != nil {
		fn(raw)
	}
}
