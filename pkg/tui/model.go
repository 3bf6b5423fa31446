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

// Package tui renders the device table, status chip, and session log on top
// of the engine's snapshot stream. The TUI holds no device state of its own:
// every frame is a projection of the last snapshot it received.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wslbridge/usbbridge/pkg/engine"
	"github.com/wslbridge/usbbridge/pkg/guest"
	"github.com/wslbridge/usbbridge/pkg/logger"
	"github.com/wslbridge/usbbridge/pkg/models"
)

const (
	maxLogLines = 200

	colWidthBusID  = 8
	colWidthVIDPID = 11
	colWidthState  = 22
	minNameWidth   = 20

	tableHeight   = 10
	defaultWidth  = 100
	defaultHeight = 30
)

// Controller is the slice of the engine the TUI drives. Manual methods are
// asynchronous: they record intent and return, and the outcome arrives later
// through the event stream.
type Controller interface {
	Snapshot() engine.Snapshot
	Snapshots() <-chan engine.Snapshot
	Events() <-chan models.Event
	Refresh()
	SetAutoAttach(enabled bool)
	SetShowAll(enabled bool)
	ManualBind(ctx context.Context, identity models.DeviceIdentity) error
	ManualAttach(ctx context.Context, identity models.DeviceIdentity) error
	ManualDetach(ctx context.Context, identity models.DeviceIdentity) error
	ManualUnbind(ctx context.Context, identity models.DeviceIdentity) error
}

// snapshotMsg delivers the engine's latest snapshot through the message loop.
type snapshotMsg struct {
	snapshot engine.Snapshot
}

// eventMsg delivers one session-log event.
type eventMsg struct {
	event models.Event
}

func waitForSnapshot(ch <-chan engine.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}

		return snapshotMsg{snapshot: snap}
	}
}

func waitForEvent(ch <-chan models.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}

		return eventMsg{event: ev}
	}
}

// Model is the bubbletea model for the bridge dashboard.
type Model struct {
	controller Controller
	launcher   guest.Launcher
	logger     logger.Logger

	table    table.Model
	viewport viewport.Model
	styles   styles

	snapshot engine.Snapshot
	logLines []string
	notice   string
	noticeOK bool
	canCopy  bool

	width  int
	height int
}

// NewModel builds the dashboard model seeded with the engine's current
// snapshot so the first frame is never empty.
func NewModel(controller Controller, launcher guest.Launcher, log logger.Logger) *Model {
	t := table.New(
		table.WithColumns(makeColumns(defaultWidth)),
		table.WithHeight(tableHeight),
		table.WithFocused(true),
	)

	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		Foreground(lipgloss.Color(draculaPurple)).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(draculaComment)).
		BorderBottom(true)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("#282A36")).
		Background(lipgloss.Color(draculaPink)).
		Bold(true)
	t.SetStyles(ts)

	vp := viewport.New(defaultWidth, defaultHeight/3)

	canCopy := clipboard.WriteAll("") == nil

	m := &Model{
		controller: controller,
		launcher:   launcher,
		logger:     log,
		table:      t,
		viewport:   vp,
		styles:     newStyles(),
		snapshot:   controller.Snapshot(),
		canCopy:    canCopy,
		width:      defaultWidth,
		height:     defaultHeight,
	}
	m.reloadRows()

	return m
}

// Init subscribes to both engine streams.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitForSnapshot(m.controller.Snapshots()),
		waitForEvent(m.controller.Events()),
	)
}

// Update routes messages: engine streams re-arm their subscription after
// every delivery, key presses drive manual actions.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snapshot = msg.snapshot
		m.reloadRows()

		return m, waitForSnapshot(m.controller.Snapshots())
	case eventMsg:
		m.appendLog(msg.event)

		return m, waitForEvent(m.controller.Events())
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "r":
		m.controller.Refresh()
		m.setNotice("Refresh requested", true)
	case "t":
		m.controller.SetAutoAttach(!m.snapshot.AutoAttach)
	case "s":
		m.controller.SetShowAll(!m.snapshot.ShowAll)
	case "a":
		m.manual("attach", m.controller.ManualAttach)
	case "d":
		m.manual("detach", m.controller.ManualDetach)
	case "b":
		m.manual("bind", m.controller.ManualBind)
	case "u":
		m.manual("unbind", m.controller.ManualUnbind)
	case "c":
		m.copySelected()
	case "w":
		if err := guest.OpenRootShell(m.launcher, m.logger); err != nil {
			m.setNotice(err.Error(), false)
		} else {
			m.setNotice("Opened root shell in guest", true)
		}
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m *Model) manual(op string, fn func(context.Context, models.DeviceIdentity) error) {
	rec, ok := m.selected()
	if !ok {
		m.setNotice("No device selected", false)

		return
	}

	if err := fn(context.Background(), rec.Identity); err != nil {
		m.setNotice(fmt.Sprintf("Manual %s rejected: %v", op, err), false)

		return
	}

	m.setNotice(fmt.Sprintf("Manual %s requested for %s", op, rec.Identity.BusID), true)
}

func (m *Model) copySelected() {
	rec, ok := m.selected()
	if !ok {
		m.setNotice("No device selected", false)

		return
	}

	if !m.canCopy {
		m.setNotice("Clipboard unavailable", false)

		return
	}

	if err := clipboard.WriteAll(rec.Identity.BusID); err != nil {
		m.setNotice("Failed to copy to clipboard", false)

		return
	}

	m.setNotice(fmt.Sprintf("Copied %s to clipboard", rec.Identity.BusID), true)
}

func (m *Model) selected() (models.DeviceRecord, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.snapshot.Visible) {
		return models.DeviceRecord{}, false
	}

	return m.snapshot.Visible[idx], true
}

func (m *Model) setNotice(text string, ok bool) {
	m.notice = text
	m.noticeOK = ok
}

func (m *Model) appendLog(ev models.Event) {
	style := m.styles.logInfo

	switch ev.Level {
	case models.EventWarn:
		style = m.styles.logWarn
	case models.EventError:
		style = m.styles.logError
	case models.EventInfo:
	}

	line := fmt.Sprintf("%s  %s", ev.Time.Format("15:04:05"), ev.Message)
	m.logLines = append(m.logLines, style.Render(line))

	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}

	m.viewport.SetContent(strings.Join(m.logLines, "\n"))
	m.viewport.GotoBottom()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	m.table.SetColumns(makeColumns(width))
	m.viewport.Width = width - 2

	logHeight := height - tableHeight - 9
	if logHeight < 3 {
		logHeight = 3
	}

	m.viewport.Height = logHeight
}

func (m *Model) reloadRows() {
	rows := make([]table.Row, 0, len(m.snapshot.Visible))
	blocked := make(map[models.DeviceIdentity]models.BlockReason, len(m.snapshot.Blocks))

	for _, entry := range m.snapshot.Blocks {
		blocked[entry.Identity] = entry.Reason
	}

	for _, rec := range m.snapshot.Visible {
		state := rec.State.String()
		if rec.IsPersisted {
			state += " (persisted)"
		}

		if reason, ok := blocked[rec.Identity]; ok {
			state += " [blocked: " + reason.String() + "]"
		}

		rows = append(rows, table.Row{rec.Identity.BusID, rec.Identity.VIDPID, rec.Name, state})
	}

	m.table.SetRows(rows)

	if cursor := m.table.Cursor(); cursor >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

// View renders one frame: title row, status chip, table, session log, help.
func (m *Model) View() string {
	var b strings.Builder

	chip := m.styles.statusChip(m.snapshot.Status).Render(strings.ToUpper(m.snapshot.Status.String()))
	title := m.styles.title.Render("WSL USB Bridge")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", chip))
	b.WriteString("\n")
	b.WriteString(m.styles.statusBar.Render(m.snapshot.Status.Title()))
	b.WriteString("\n")
	b.WriteString(m.styles.help.Render(m.summaryLine()))
	b.WriteString("\n")
	b.WriteString(m.styles.tableFrame.Render(m.table.View()))
	b.WriteString("\n")
	b.WriteString(m.styles.logFrame.Width(m.viewport.Width).Render(m.viewport.View()))
	b.WriteString("\n")

	if m.notice != "" {
		style := m.styles.notice
		if !m.noticeOK {
			style = m.styles.errNotice
		}

		b.WriteString(style.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.help.Render(
		"a attach | d detach | b bind | u unbind | r refresh | t auto-attach | s show all | c copy busid | w root shell | q quit"))

	return b.String()
}

func (m *Model) summaryLine() string {
	auto := "off"
	if m.snapshot.AutoAttach {
		auto = "on"
	}

	scope := "filtered"
	if m.snapshot.ShowAll {
		scope = "all"
	}

	line := fmt.Sprintf("devices: %d shown, %d hidden | auto-attach: %s | view: %s",
		len(m.snapshot.Visible), m.snapshot.Hidden(), auto, scope)

	if m.snapshot.Stale {
		line += " | LAST REFRESH FAILED"
	}

	return line
}

func makeColumns(width int) []table.Column {
	nameWidth := width - colWidthBusID - colWidthVIDPID - colWidthState - 8
	if nameWidth < minNameWidth {
		nameWidth = minNameWidth
	}

	return []table.Column{
		{Title: "BUSID", Width: colWidthBusID},
		{Title: "VID:PID", Width: colWidthVIDPID},
		{Title: "DEVICE", Width: nameWidth},
		{Title: "STATE", Width: colWidthState},
	}
}
