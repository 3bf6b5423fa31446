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

package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wslbridge/usbbridge/pkg/guest"
	"github.com/wslbridge/usbbridge/pkg/logger"
)

// Run blocks on the interactive dashboard until the user quits.
func Run(controller Controller, launcher guest.Launcher, log logger.Logger) error {
	p := tea.NewProgram(NewModel(controller, launcher, log), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard terminated: %w", err)
	}

	return nil
}
