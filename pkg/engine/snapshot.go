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

package engine

import (
	"time"

	"github.com/wslbridge/usbbridge/pkg/models"
)

// Snapshot is the immutable view handed to observers after every poll cycle.
// Observers never see the engine's mutable state; they get a fresh copy each
// time and must not modify it.
type Snapshot struct {
	Taken      time.Time
	Records    []models.DeviceRecord
	Visible    []models.DeviceRecord
	Status     models.AggregateStatus
	Blocks     []models.BlockEntry
	AutoAttach bool
	ShowAll    bool
	// Stale marks a snapshot whose listing failed; Records then carries the
	// previous cycle's devices for display purposes only and Status is
	// StatusUnknown.
	Stale bool
}

// Total is the number of devices on the host.
func (s Snapshot) Total() int {
	return len(s.Records)
}

// Hidden is the number of devices filtered out of the visible list.
func (s Snapshot) Hidden() int {
	return len(s.Records) - len(s.Visible)
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Records = append([]models.DeviceRecord(nil), s.Records...)
	out.Visible = append([]models.DeviceRecord(nil), s.Visible...)
	out.Blocks = append([]models.BlockEntry(nil), s.Blocks...)

	return out
}
