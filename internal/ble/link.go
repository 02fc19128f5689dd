package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"

	logs "github.com/danmuck/duploctl/internal/logging"
)

var ErrHubNotFound = errors.New("ble: hub not found")

// HubLink is a connected hub's command characteristic. It satisfies
// hub.Transport.
type HubLink struct {
	address string
	device  bluetooth.Device
	char    bluetooth.DeviceCharacteristic

	mu     sync.RWMutex
	notify func([]byte)
}

// FindHub scans until a device advertising name appears.
func FindHub(ctx context.Context, s Scanner, name string) (Advertisement, error) {
	var found Advertisement
	var ok bool
	err := s.Scan(ctx, func(a Advertisement) bool {
		if a.LocalName != name {
			return false
		}
		found, ok = a, true
		return true
	})
	if ok {
		logs.Infof("ble.FindHub found %s", found)
		return found, nil
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return Advertisement{}, err
	}
	return Advertisement{}, fmt.Errorf("%w: %q", ErrHubNotFound, name)
}

// Connect opens a link to a hub found by a previous scan and subscribes to
// its notifications.
func (r *Radio) Connect(ctx context.Context, adv Advertisement, serviceUUID, charUUID string) (*HubLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr, ok := r.address(adv.Address)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, adv.Address)
	}
	svc, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse service uuid: %w", err)
	}
	chr, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse characteristic uuid: %w", err)
	}

	logs.Infof("ble.Connect address=%s", adv.Address)
	device, err := r.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("ble: connect %s: %w", adv.Address, err)
	}
	link := &HubLink{address: adv.Address, device: device}
	if err := link.discover(svc, chr); err != nil {
		_ = device.Disconnect()
		return nil, err
	}
	if err := link.char.EnableNotifications(link.deliver); err != nil {
		_ = device.Disconnect()
		return nil, fmt.Errorf("ble: enable notifications: %w", err)
	}
	return link, nil
}

func (l *HubLink) discover(svc, chr bluetooth.UUID) error {
	services, err := l.device.DiscoverServices([]bluetooth.UUID{svc})
	if err != nil {
		return fmt.Errorf("ble: discover services: %w", err)
	}
	if len(services) == 0 {
		return fmt.Errorf("ble: service %s missing", svc)
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{chr})
	if err != nil {
		return fmt.Errorf("ble: discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return fmt.Errorf("ble: characteristic %s missing", chr)
	}
	l.char = chars[0]
	return nil
}

func (l *HubLink) Address() string {
	return l.address
}

func (l *HubLink) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := l.char.WriteWithoutResponse(frame)
	return err
}

func (l *HubLink) OnNotification(fn func([]byte)) {
	l.mu.Lock()
	l.notify = fn
	l.mu.Unlock()
}

func (l *HubLink) deliver(buf []byte) {
	l.mu.RLock()
	fn := l.notify
	l.mu.RUnlock()
	if fn == nil {
		return
	}
	fn(append([]byte(nil), buf...))
}

func (l *HubLink) Close() error {
	logs.Infof("ble.HubLink close address=%s", l.address)
	return l.device.Disconnect()
}
