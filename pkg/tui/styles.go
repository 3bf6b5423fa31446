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
	"github.com/charmbracelet/lipgloss"

	"github.com/wslbridge/usbbridge/pkg/models"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"
)

type styles struct {
	title      lipgloss.Style
	help       lipgloss.Style
	notice     lipgloss.Style
	errNotice  lipgloss.Style
	logInfo    lipgloss.Style
	logWarn    lipgloss.Style
	logError   lipgloss.Style
	statusBar  lipgloss.Style
	tableFrame lipgloss.Style
	logFrame   lipgloss.Style

	statusGreen   lipgloss.Style
	statusBlue    lipgloss.Style
	statusRed     lipgloss.Style
	statusUnknown lipgloss.Style
}

func newStyles() styles {
	chip := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		notice: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		errNotice: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		logInfo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)),
		logWarn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)),
		logError: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)),
		statusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)),
		tableFrame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(draculaPurple)),
		logFrame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(draculaComment)),
		statusGreen: chip.
			Foreground(lipgloss.Color("#282A36")).
			Background(lipgloss.Color(draculaGreen)),
		statusBlue: chip.
			Foreground(lipgloss.Color("#282A36")).
			Background(lipgloss.Color(draculaCyan)),
		statusRed: chip.
			Foreground(lipgloss.Color(draculaForeground)).
			Background(lipgloss.Color(draculaRed)),
		statusUnknown: chip.
			Foreground(lipgloss.Color("#282A36")).
			Background(lipgloss.Color(draculaOrange)),
	}
}

// statusChip picks the chip style for the aggregate traffic light.
func (s styles) statusChip(status models.AggregateStatus) lipgloss.Style {
	switch status {
	case models.StatusGreen:
		return s.statusGreen
	case models.StatusBlue:
		return s.statusBlue
	case models.StatusRed:
		return s.statusRed
	default:
		return s.statusUnknown
	}
}
