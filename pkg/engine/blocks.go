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

// blockList is the per-identity suppression set. It is not safe for
// concurrent use on its own; the engine serializes all access behind its
// mutex so a manual detach's block is visible to the very next
// reconciliation pass.
type blockList struct {
	entries map[models.DeviceIdentity]models.BlockEntry
}

func newBlockList() *blockList {
	return &blockList{entries: make(map[models.DeviceIdentity]models.BlockEntry)}
}

// Add records a suppression for the identity, replacing any existing entry.
func (b *blockList) Add(identity models.DeviceIdentity, reason models.BlockReason, at time.Time) {
	b.entries[identity] = models.BlockEntry{
		Identity:  identity,
		Reason:    reason,
		CreatedAt: at,
	}
}

// Clear removes the identity's suppression, reporting whether one existed.
func (b *blockList) Clear(identity models.DeviceIdentity) bool {
	if _, ok := b.entries[identity]; !ok {
		return false
	}

	delete(b.entries, identity)

	return true
}

// ClearAll empties the set. Used when the user explicitly re-enables
// auto-attach, which is the documented way to lift every manual block.
func (b *blockList) ClearAll() {
	b.entries = make(map[models.DeviceIdentity]models.BlockEntry)
}

// Blocked reports whether the identity is currently suppressed.
func (b *blockList) Blocked(identity models.DeviceIdentity) bool {
	_, ok := b.entries[identity]

	return ok
}

// ManuallyBlocked reports whether the identity carries a user-created block.
// Repeated-failure entries do not count: their suppression is governed by the
// throttle tracker's cooldown, and the entry exists so observers can see why
// a device sits idle.
func (b *blockList) ManuallyBlocked(identity models.DeviceIdentity) bool {
	entry, ok := b.entries[identity]

	return ok && entry.Reason != models.BlockRepeatedFailure
}

// ClearFailure removes the identity's entry only if it was created by the
// throttle tracker, reporting whether it did. A manual block survives an
// incidental success.
func (b *blockList) ClearFailure(identity models.DeviceIdentity) bool {
	entry, ok := b.entries[identity]
	if !ok || entry.Reason != models.BlockRepeatedFailure {
		return false
	}

	delete(b.entries, identity)

	return true
}

// Snapshot returns a copy for observers.
func (b *blockList) Snapshot() []models.BlockEntry {
	out := make([]models.BlockEntry, 0, len(b.entries))

	for _, entry := range b.entries {
		out = append(out, entry)
	}

	return out
}
