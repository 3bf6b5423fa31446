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

import "github.com/wslbridge/usbbridge/pkg/models"

// reconcile compares the current snapshot against desired policy and emits
// intended automatic actions in listing order.
//
// An acceptable, unblocked device that is Unshared gets a Bind only; the
// Attach waits for a later cycle to observe the new Shared state, so a single
// call never races the external tool across two state transitions. A Shared
// device gets an Attach. Attached devices, unacceptable devices, and blocked
// devices produce nothing, and a disabled auto-attach switch disables the
// whole automatic pipeline including the Bind step.
func reconcile(
	records []models.DeviceRecord,
	policy AllowPolicy,
	autoAttach bool,
	blocked func(models.DeviceIdentity) bool,
) []models.Action {
	if !autoAttach {
		return nil
	}

	var actions []models.Action

	for _, rec := range records {
		if !policy.Matches(rec) || blocked(rec.Identity) {
			continue
		}

		switch rec.State {
		case models.StateUnshared:
			actions = append(actions, models.Action{Kind: models.ActionBind, Identity: rec.Identity})
		case models.StateShared:
			actions = append(actions, models.Action{Kind: models.ActionAttach, Identity: rec.Identity})
		case models.StateAttached:
			// Desired state already holds.
		}
	}

	return actions
}
