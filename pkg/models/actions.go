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

import "errors"

// ActionKind identifies one of the four mutating usbipd operations.
type ActionKind int

const (
	// ActionBind marks a device as shared without moving it to the guest.
	ActionBind ActionKind = iota
	// ActionAttach moves a shared device's I/O into the guest.
	ActionAttach
	// ActionDetach moves a device's I/O back to the host.
	ActionDetach
	// ActionUnbind removes the sharing mark.
	ActionUnbind
)

func (k ActionKind) String() string {
	switch k {
	case ActionBind:
		return "bind"
	case ActionAttach:
		return "attach"
	case ActionDetach:
		return "detach"
	default:
		return "unbind"
	}
}

// Action is one intended operation against one device identity.
type Action struct {
	Kind     ActionKind
	Identity DeviceIdentity
}

// ErrorCategory classifies an action or listing failure. Categories drive
// throttling policy: DeviceNotFound is a benign unplug race and carries no
// penalty, while PermissionDenied and Unknown count toward the failure
// window.
type ErrorCategory int

const (
	CategoryNone ErrorCategory = iota
	CategoryParseFailure
	CategoryToolUnavailable
	CategoryPermissionDenied
	CategoryDeviceNotFound
	CategoryUnknown
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryParseFailure:
		return "parse_failure"
	case CategoryToolUnavailable:
		return "tool_unavailable"
	case CategoryPermissionDenied:
		return "permission_denied"
	case CategoryDeviceNotFound:
		return "device_not_found"
	default:
		return "unknown"
	}
}

// Throttleable reports whether a failure with this category should count
// toward an identity's consecutive-failure window.
func (c ErrorCategory) Throttleable() bool {
	switch c {
	case CategoryPermissionDenied, CategoryUnknown, CategoryToolUnavailable:
		return true
	default:
		return false
	}
}

// CategoryOf extracts the category from any error in the chain that carries
// one. A nil error is CategoryNone; an unclassified error is CategoryUnknown.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}

	var carrier interface{ ErrorCategory() ErrorCategory }
	if errors.As(err, &carrier) {
		return carrier.ErrorCategory()
	}

	return CategoryUnknown
}

// ActionResult is the executor's report for one completed action.
type ActionResult struct {
	Action   Action
	Manual   bool
	Err      error
	Category ErrorCategory
}

// OK reports whether the action succeeded.
func (r ActionResult) OK() bool {
	return r.Err == nil
}
