package ble

import (
	"context"
	"errors"

	logs "github.com/danmuck/duploctl/internal/logging"
	"github.com/danmuck/duploctl/internal/wearable"
)

// ScanWearable decodes every toothbrush advertisement f selects and hands it
// to fn until ctx ends. Payloads that fail to decode are skipped.
func ScanWearable(ctx context.Context, s Scanner, f WearableFilter, fn func(Advertisement, wearable.Event)) error {
	err := s.Scan(ctx, func(a Advertisement) bool {
		payload, ok := f.WearablePayload(a)
		if !ok {
			return false
		}
		ev, err := wearable.Decode(payload)
		if err != nil {
			logs.Debugf("ble.ScanWearable skip %s: %v", a.Address, err)
			return false
		}
		fn(a, ev)
		return false
	})
	return quietEnd(err)
}

// ListenBroadcasts reports advertisements accepted by opts until ctx ends.
func ListenBroadcasts(ctx context.Context, s Scanner, opts BroadcastOptions, fn func(Advertisement)) error {
	filter, err := newBroadcastFilter(opts)
	if err != nil {
		return err
	}
	err = s.Scan(ctx, func(a Advertisement) bool {
		if filter.accept(a) {
			fn(a)
		}
		return false
	})
	return quietEnd(err)
}

// quietEnd treats a finished listen window as success.
func quietEnd(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
