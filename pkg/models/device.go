/*
 * Copyright 2026 WSL Bridge Contributors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package models holds the shared data model for usbbridge. Everything here
// is session-scoped: device records are rebuilt from scratch on every poll
// and nothing is ever written to disk.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIdentity indicates a device identity that cannot address a device.
var ErrInvalidIdentity = errors.New("invalid device identity")

// DeviceIdentity is the immutable key for a physical device within a session:
// the host-assigned bus position plus the vendor:product pair. It is only
// valid for the lifetime of the process; an unplug/replug may yield a new
// bus ID for the same hardware.
type DeviceIdentity struct {
	BusID  string `json:"bus_id"`
	VIDPID string `json:"vid_pid"`
}

// Validate reports whether the identity can address a device. An identity
// with an empty bus ID must never reach the executor.
func (d DeviceIdentity) Validate() error {
	if strings.TrimSpace(d.BusID) == "" {
		return fmt.Errorf("%w: empty bus id", ErrInvalidIdentity)
	}

	return nil
}

func (d DeviceIdentity) String() string {
	if d.VIDPID == "" {
		return d.BusID
	}

	return d.BusID + " (" + d.VIDPID + ")"
}

// DeviceState is the normalized sharing state of a device.
type DeviceState int

const (
	// StateUnshared means the device is visible on the host but not shared.
	StateUnshared DeviceState = iota
	// StateShared means the device is bound for passthrough but its I/O is
	// still on the host.
	StateShared
	// StateAttached means the device's I/O has been moved into the guest.
	StateAttached
)

func (s DeviceState) String() string {
	switch s {
	case StateShared:
		return "shared"
	case StateAttached:
		return "attached"
	default:
		return "unshared"
	}
}

// ParseDeviceState maps raw usbipd state text to a normalized state. Unknown
// text maps to StateUnshared: under ambiguity we must never claim a device is
// shared or attached. The persisted flag reports usbipd's "recorded for
// future auto-bind" marker, which is distinct from a live attachment.
func ParseDeviceState(raw string) (state DeviceState, persisted bool) {
	text := strings.ToLower(strings.TrimSpace(raw))

	switch {
	case strings.Contains(text, "attached") && !strings.Contains(text, "not attached"):
		return StateAttached, false
	case strings.Contains(text, "persisted"):
		return StateUnshared, true
	case strings.Contains(text, "shared") && !strings.Contains(text, "not shared"):
		return StateShared, false
	default:
		return StateUnshared, false
	}
}

// DeviceRecord is one row of a poll snapshot. Records are derived values:
// each poll produces a fresh set and the previous set is discarded, never
// patched in place.
type DeviceRecord struct {
	Identity    DeviceIdentity `json:"identity"`
	Name        string         `json:"name"`
	State       DeviceState    `json:"state"`
	IsPersisted bool           `json:"is_persisted"`
	RawState    string         `json:"raw_state"`
}
