package ble

import (
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/danmuck/duploctl/internal/wearable"
)

const defaultDedupSize = 1024

// Advertisement is one scan result, detached from the radio driver.
type Advertisement struct {
	Address          string            `json:"address"`
	LocalName        string            `json:"local_name"`
	RSSI             int16             `json:"rssi"`
	ManufacturerData map[uint16][]byte `json:"manufacturer_data,omitempty"`
	ServiceUUIDs     []string          `json:"service_uuids,omitempty"`
}

// HasService reports whether uuid was advertised, ignoring case.
func (a Advertisement) HasService(uuid string) bool {
	for _, s := range a.ServiceUUIDs {
		if strings.EqualFold(s, uuid) {
			return true
		}
	}
	return false
}

// NameContains matches a case-insensitive substring of the local name. An
// empty filter matches everything.
func (a Advertisement) NameContains(filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.LocalName), strings.ToLower(filter))
}

func (a Advertisement) String() string {
	name := a.LocalName
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%s (%s) rssi=%d", name, a.Address, a.RSSI)
}

// WearableFilter selects toothbrush advertisements.
type WearableFilter struct {
	ManufacturerID uint16
	// ServiceUUID is required when set.
	ServiceUUID string
}

func DefaultWearableFilter() WearableFilter {
	return WearableFilter{ManufacturerID: wearable.ManufacturerID}
}

// WearablePayload extracts the toothbrush payload from a, if a carries one.
func (f WearableFilter) WearablePayload(a Advertisement) ([]byte, bool) {
	if f.ServiceUUID != "" && !a.HasService(f.ServiceUUID) {
		return nil, false
	}
	data, ok := a.ManufacturerData[f.ManufacturerID]
	if !ok {
		return nil, false
	}
	return data, true
}

// Dedup remembers recently reported devices.
type Dedup struct {
	mu    sync.Mutex
	cache *lru.Cache[string, struct{}]
}

func NewDedup(size int) (*Dedup, error) {
	if size <= 0 {
		size = defaultDedupSize
	}
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &Dedup{cache: cache}, nil
}

// Seen records a and reports whether the same address and name were already
// recorded.
func (d *Dedup) Seen(a Advertisement) bool {
	key := a.Address + "|" + a.LocalName
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cache.Contains(key) {
		return true
	}
	d.cache.Add(key, struct{}{})
	return false
}

// BroadcastOptions shapes a passive advertisement listen.
type BroadcastOptions struct {
	NameFilter string
	// Verbose reports repeat advertisements from known devices.
	Verbose   bool
	DedupSize int
}

// broadcastFilter applies BroadcastOptions to a stream of advertisements.
type broadcastFilter struct {
	opts  BroadcastOptions
	dedup *Dedup
}

func newBroadcastFilter(opts BroadcastOptions) (*broadcastFilter, error) {
	d, err := NewDedup(opts.DedupSize)
	if err != nil {
		return nil, err
	}
	return &broadcastFilter{opts: opts, dedup: d}, nil
}

func (f *broadcastFilter) accept(a Advertisement) bool {
	if !a.NameContains(f.opts.NameFilter) {
		return false
	}
	seen := f.dedup.Seen(a)
	return !seen || f.opts.Verbose
}
