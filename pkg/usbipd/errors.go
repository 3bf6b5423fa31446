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

package usbipd

import (
	"errors"
	"os/exec"
	"strings"

	"github.com/wslbridge/usbbridge/pkg/models"
)

var (
	// ErrUnparsableOutput means the listing output had no recognizable
	// structure. This is "tool broken", never "zero devices".
	ErrUnparsableOutput = errors.New("unrecognized usbipd list output")
	// ErrCommandFailed wraps a non-zero exit from a mutating subcommand.
	ErrCommandFailed = errors.New("usbipd command failed")
)

// ClassifyError maps a command failure to the error taxonomy. The stderr
// text is what usbipd actually tells us; exec-level errors identify a
// missing or unusable tool.
func ClassifyError(err error, stderr string) models.ErrorCategory {
	if err == nil {
		return models.CategoryNone
	}

	if errors.Is(err, exec.ErrNotFound) || isExecFormat(err) {
		return models.CategoryToolUnavailable
	}

	if errors.Is(err, ErrUnparsableOutput) {
		return models.CategoryParseFailure
	}

	text := strings.ToLower(stderr)

	switch {
	case strings.Contains(text, "access denied"),
		strings.Contains(text, "administrator privileges"),
		strings.Contains(text, "administrator"):
		return models.CategoryPermissionDenied
	case strings.Contains(text, "not found"),
		strings.Contains(text, "no compatible device"),
		strings.Contains(text, "unknown busid"):
		return models.CategoryDeviceNotFound
	default:
		return models.CategoryUnknown
	}
}

func isExecFormat(err error) bool {
	var execErr *exec.Error

	return errors.As(err, &execErr)
}
