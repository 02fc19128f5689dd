// Package ble connects the hub and wearable codecs to a Bluetooth LE radio.
//
// Advertisement filtering and dedup are plain functions over Advertisement
// so they can be exercised without a radio. Radio and HubLink wrap the
// platform adapter.
package ble
