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

// throttleTracker keeps the per-identity failure windows that gate automatic
// actions. A device stuck in a failing state (permission denied, flaky
// firmware) must not generate a command every poll cycle forever. Access is
// serialized by the engine's mutex.
type throttleTracker struct {
	threshold int
	cooldown  time.Duration
	windows   map[models.DeviceIdentity]models.FailureWindow
}

func newThrottleTracker(threshold int, cooldown time.Duration) *throttleTracker {
	return &throttleTracker{
		threshold: threshold,
		cooldown:  cooldown,
		windows:   make(map[models.DeviceIdentity]models.FailureWindow),
	}
}

// Allow reports whether an automatic action on the identity may execute now.
// Once the consecutive-failure count reaches the threshold, the identity is
// suppressed until the cooldown elapses since the last attempt; the cooldown
// grants exactly one fresh attempt, whose outcome re-arms or clears the
// window.
func (t *throttleTracker) Allow(identity models.DeviceIdentity, now time.Time) bool {
	w, ok := t.windows[identity]
	if !ok || w.Consecutive < t.threshold {
		return true
	}

	return now.Sub(w.LastAttempt) >= t.cooldown
}

// RecordFailure counts one failed attempt and reports whether this failure
// crossed the suppression threshold.
func (t *throttleTracker) RecordFailure(identity models.DeviceIdentity, at time.Time) bool {
	w := t.windows[identity]
	w.Consecutive++
	w.LastAttempt = at
	t.windows[identity] = w

	return w.Consecutive == t.threshold
}

// RecordSuccess resets the identity's window: one success forgives any
// history.
func (t *throttleTracker) RecordSuccess(identity models.DeviceIdentity) {
	delete(t.windows, identity)
}

// Reset clears the identity's window without an outcome, used when a manual
// action restores automatic eligibility.
func (t *throttleTracker) Reset(identity models.DeviceIdentity) {
	delete(t.windows, identity)
}

// Window returns a copy of the identity's failure window.
func (t *throttleTracker) Window(identity models.DeviceIdentity) models.FailureWindow {
	return t.windows[identity]
}
