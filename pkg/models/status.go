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

// AggregateStatus is the one-value reduction of a whole snapshot that any
// observer (status chip, tray) displays.
type AggregateStatus int

const (
	// StatusRed: no acceptable device is visible on the host at all.
	StatusRed AggregateStatus = iota
	// StatusBlue: at least one acceptable device is shared, none attached.
	StatusBlue
	// StatusGreen: at least one acceptable device is attached to the guest.
	StatusGreen
	// StatusUnknown: the last listing could not be read. Never coerced to
	// Red; "we couldn't tell" is not the same as "nothing is visible".
	StatusUnknown
)

func (s AggregateStatus) String() string {
	switch s {
	case StatusRed:
		return "red"
	case StatusBlue:
		return "blue"
	case StatusGreen:
		return "green"
	default:
		return "unknown"
	}
}

// Title returns the human-readable summary shown next to the status chip.
func (s AggregateStatus) Title() string {
	switch s {
	case StatusRed:
		return "Security key: not detected on host"
	case StatusBlue:
		return "Security key: detected on host (not attached to guest)"
	case StatusGreen:
		return "Security key: attached to guest"
	default:
		return "Security key: status unavailable"
	}
}
