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

package models

import "time"

// BlockReason records why automatic reconciliation must leave a device alone.
type BlockReason int

const (
	// BlockManualDetach: the user detached the device; auto-attach must not
	// immediately undo that.
	BlockManualDetach BlockReason = iota
	// BlockManualUnshare: the user unbound the device.
	BlockManualUnshare
	// BlockRepeatedFailure: automatic attempts failed past the threshold.
	BlockRepeatedFailure
)

func (r BlockReason) String() string {
	switch r {
	case BlockManualDetach:
		return "manual_detach"
	case BlockManualUnshare:
		return "manual_unshare"
	default:
		return "repeated_failure"
	}
}

// BlockEntry suppresses automatic actions for one identity. Entries are
// created by manual detach/unbind or by the throttle tracker, and cleared by
// a manual attach/bind of the same identity. Never written to disk.
type BlockEntry struct {
	Identity  DeviceIdentity
	Reason    BlockReason
	CreatedAt time.Time
}

// FailureWindow is the per-identity sliding failure counter used by the
// throttle tracker. Any success resets it to zero.
type FailureWindow struct {
	Consecutive int
	LastAttempt time.Time
}
