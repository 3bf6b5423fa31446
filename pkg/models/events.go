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

import (
	"time"

	"github.com/google/uuid"
)

// EventLevel grades events for the session log panel.
type EventLevel int

const (
	EventInfo EventLevel = iota
	EventWarn
	EventError
)

// Event is one human-readable line for the session log: one identity, one
// operation, one outcome. Throttled marks suppression events so the log can
// distinguish "not trying" from "trying and failing".
type Event struct {
	ID        string
	Time      time.Time
	Level     EventLevel
	Identity  DeviceIdentity
	Op        string
	Message   string
	Throttled bool
}

// NewEvent stamps a fresh event with a unique ID and the given wall time.
func NewEvent(at time.Time, level EventLevel, identity DeviceIdentity, op, message string) Event {
	return Event{
		ID:       uuid.NewString(),
		Time:     at,
		Level:    level,
		Identity: identity,
		Op:       op,
		Message:  message,
	}
}
