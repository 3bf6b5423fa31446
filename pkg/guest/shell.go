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

// Package guest launches interactive sessions in the WSL guest. It has no
// state interaction with the passthrough engine.
package guest

import (
	"fmt"

	"github.com/wslbridge/usbbridge/pkg/logger"
)

const wslExecutable = "wsl.exe"

// Launcher starts a detached process.
type Launcher interface {
	StartDetached(name string, args ...string) error
}

// OpenRootShell opens a privileged shell in the default WSL distribution.
// Fire and forget: the shell outlives this process and reports nothing back.
func OpenRootShell(launcher Launcher, log logger.Logger) error {
	if err := launcher.StartDetached(wslExecutable, "-u", "root"); err != nil {
		return fmt.Errorf("failed to open guest shell: %w", err)
	}

	log.Info().Str("command", wslExecutable+" -u root").Msg("Opened guest shell as root")

	return nil
}
