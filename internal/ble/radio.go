package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"tinygo.org/x/bluetooth"

	logs "github.com/danmuck/duploctl/internal/logging"
)

var ErrUnknownAddress = errors.New("ble: address not seen in a scan")

// Scanner delivers advertisements until fn returns true or ctx ends.
type Scanner interface {
	Scan(ctx context.Context, fn func(Advertisement) bool) error
}

// Radio wraps the default platform adapter.
type Radio struct {
	adapter *bluetooth.Adapter
	watch   []bluetooth.UUID

	enableOnce sync.Once
	enableErr  error

	mu    sync.Mutex
	addrs map[string]bluetooth.Address
}

// NewRadio prepares the default adapter. Service UUIDs in watch are checked
// on every advertisement and reported in Advertisement.ServiceUUIDs.
func NewRadio(watch ...string) (*Radio, error) {
	r := &Radio{
		adapter: bluetooth.DefaultAdapter,
		addrs:   make(map[string]bluetooth.Address),
	}
	for _, s := range watch {
		u, err := bluetooth.ParseUUID(s)
		if err != nil {
			return nil, fmt.Errorf("ble: parse service uuid %q: %w", s, err)
		}
		r.watch = append(r.watch, u)
	}
	return r, nil
}

func (r *Radio) Enable() error {
	r.enableOnce.Do(func() {
		r.enableErr = r.adapter.Enable()
		if r.enableErr != nil {
			logs.Errf("ble.Radio enable: %v", r.enableErr)
		}
	})
	return r.enableErr
}

// Scan blocks until fn returns true, ctx ends or the adapter fails. It
// returns nil when fn stopped the scan.
func (r *Radio) Scan(ctx context.Context, fn func(Advertisement) bool) error {
	if err := r.Enable(); err != nil {
		return err
	}
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stopped atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- r.adapter.Scan(func(_ *bluetooth.Adapter, res bluetooth.ScanResult) {
			if scanCtx.Err() != nil {
				return
			}
			adv := r.convert(res)
			if fn(adv) {
				stopped.Store(true)
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		return err
	case <-scanCtx.Done():
		if err := r.adapter.StopScan(); err != nil {
			logs.Warnf("ble.Radio stop scan: %v", err)
		}
		<-done
	}
	if stopped.Load() {
		return nil
	}
	return ctx.Err()
}

func (r *Radio) convert(res bluetooth.ScanResult) Advertisement {
	adv := Advertisement{
		Address:   res.Address.String(),
		LocalName: res.LocalName(),
		RSSI:      res.RSSI,
	}
	for _, m := range res.ManufacturerData() {
		if adv.ManufacturerData == nil {
			adv.ManufacturerData = make(map[uint16][]byte)
		}
		adv.ManufacturerData[m.CompanyID] = append([]byte(nil), m.Data...)
	}
	for _, u := range r.watch {
		if res.HasServiceUUID(u) {
			adv.ServiceUUIDs = append(adv.ServiceUUIDs, u.String())
		}
	}
	r.mu.Lock()
	r.addrs[adv.Address] = res.Address
	r.mu.Unlock()
	return adv
}

func (r *Radio) address(s string) (bluetooth.Address, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.addrs[s]
	return a, ok
}
