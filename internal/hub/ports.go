package hub

import (
	"sort"
	"sync"
	"time"

	"github.com/danmuck/duploctl/internal/protocol"
	"github.com/danmuck/duploctl/internal/protocol/schema"
)

// Ports names the hub ports the controller drives.
type Ports struct {
	Motor   uint8
	Speaker uint8
	Light   uint8
}

func DefaultPorts() Ports {
	return Ports{Motor: 0, Speaker: 1, Light: 17}
}

// AttachedPort is the latest attach report seen for one port.
type AttachedPort struct {
	PortID           uint8     `json:"port_id"`
	Event            string    `json:"event"`
	IoType           string    `json:"io_type"`
	HardwareRevision uint32    `json:"hardware_revision"`
	SoftwareRevision uint32    `json:"software_revision"`
	SeenAt           time.Time `json:"seen_at"`
}

// PortTable stores attached peripherals by port id.
type PortTable struct {
	mu    sync.RWMutex
	items map[uint8]AttachedPort
}

func NewPortTable() *PortTable {
	return &PortTable{
		items: make(map[uint8]AttachedPort),
	}
}

// Apply records m; a detach removes the port.
func (t *PortTable) Apply(m schema.HubAttachedIO, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m.Event == protocol.IoDetached {
		delete(t.items, m.PortID)
		return
	}
	t.items[m.PortID] = AttachedPort{
		PortID:           m.PortID,
		Event:            m.Event.String(),
		IoType:           m.IoType.String(),
		HardwareRevision: m.HardwareRevision,
		SoftwareRevision: m.SoftwareRevision,
		SeenAt:           at,
	}
}

func (t *PortTable) Get(portID uint8) (AttachedPort, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[portID]
	return item, ok
}

func (t *PortTable) List() []AttachedPort {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]AttachedPort, 0, len(t.items))
	for _, item := range t.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PortID < out[j].PortID
	})
	return out
}
