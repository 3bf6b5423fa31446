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
	"context"
	"fmt"
	"strings"

	"github.com/wslbridge/usbbridge/pkg/logger"
	"github.com/wslbridge/usbbridge/pkg/models"
)

// Error is a classified failure from one usbipd invocation.
type Error struct {
	Category models.ErrorCategory
	Op       string
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		detail = e.Err.Error()
	}

	return fmt.Sprintf("usbipd %s: %s", e.Op, detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCategory implements the carrier interface models.CategoryOf looks for.
func (e *Error) ErrorCategory() models.ErrorCategory {
	return e.Category
}

// Client issues usbipd subcommands through a CommandRunner. It holds no
// state beyond the resolved executable path.
type Client struct {
	runner CommandRunner
	exe    string
	logger logger.Logger
}

// NewClient creates a client. An empty exe path triggers resolver lookup.
func NewClient(runner CommandRunner, exe string, log logger.Logger) *Client {
	if exe == "" {
		exe = ResolveExecutable()
	}

	return &Client{
		runner: runner,
		exe:    exe,
		logger: log,
	}
}

// Executable returns the resolved usbipd path.
func (c *Client) Executable() string {
	return c.exe
}

// List runs `usbipd list` and parses it into device records. A parse
// failure is returned as a classified error distinct from an empty result.
func (c *Client) List(ctx context.Context) ([]models.DeviceRecord, error) {
	stdout, stderr, err := c.runner.Run(ctx, c.exe, "list")
	if err != nil {
		return nil, c.wrap("list", stderr, err)
	}

	records, err := ParseList(stdout)
	if err != nil {
		c.logger.Warn().Str("op", "list").Msg("Device listing was not parsable")

		return nil, &Error{Category: models.CategoryParseFailure, Op: "list", Err: err}
	}

	return records, nil
}

// Bind marks a device as shared. An "already bound" report is success: the
// desired state holds.
func (c *Client) Bind(ctx context.Context, busID string) error {
	_, stderr, err := c.runner.Run(ctx, c.exe, "bind", "--busid", busID)
	if err != nil && !strings.Contains(strings.ToLower(stderr), "already bound") {
		return c.wrap("bind", stderr, err)
	}

	return nil
}

// Unbind removes the sharing mark from a device.
func (c *Client) Unbind(ctx context.Context, busID string) error {
	_, stderr, err := c.runner.Run(ctx, c.exe, "unbind", "--busid", busID)
	if err != nil {
		return c.wrap("unbind", stderr, err)
	}

	return nil
}

// Attach moves a shared device's I/O into the WSL guest.
func (c *Client) Attach(ctx context.Context, busID string) error {
	_, stderr, err := c.runner.Run(ctx, c.exe, "attach", "--wsl", "--busid", busID)
	if err != nil {
		return c.wrap("attach", stderr, err)
	}

	return nil
}

// Detach returns a device's I/O to the host.
func (c *Client) Detach(ctx context.Context, busID string) error {
	_, stderr, err := c.runner.Run(ctx, c.exe, "detach", "--busid", busID)
	if err != nil {
		return c.wrap("detach", stderr, err)
	}

	return nil
}

// Do dispatches one action to the matching subcommand.
func (c *Client) Do(ctx context.Context, action models.Action) error {
	if err := action.Identity.Validate(); err != nil {
		return err
	}

	busID := action.Identity.BusID

	switch action.Kind {
	case models.ActionBind:
		return c.Bind(ctx, busID)
	case models.ActionAttach:
		return c.Attach(ctx, busID)
	case models.ActionDetach:
		return c.Detach(ctx, busID)
	default:
		return c.Unbind(ctx, busID)
	}
}

func (c *Client) wrap(op, stderr string, err error) error {
	category := ClassifyError(err, stderr)

	c.logger.Debug().
		Str("op", op).
		Str("category", category.String()).
		Err(err).
		Msg("usbipd invocation failed")

	return &Error{
		Category: category,
		Op:       op,
		Stderr:   stderr,
		Err:      fmt.Errorf("%w: %w", ErrCommandFailed, err),
	}
}
