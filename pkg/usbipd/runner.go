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

// Package usbipd adapts the external usbipd-win utility: it resolves the
// executable, runs its subcommands, parses the listing output, and
// classifies failures. It never retries; retry policy belongs to the engine.
package usbipd

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// CommandRunner runs one external command to completion and returns its
// output streams. Implementations must honor the context deadline.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner is the production CommandRunner backed by os/exec.
type ExecRunner struct {
	// Timeout bounds each invocation. Zero means no bound beyond the
	// caller's context.
	Timeout time.Duration
}

// Run executes the command and captures both output streams.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.String(), stderr.String(), err
}

// StartDetached launches a command without waiting for it. Used for the
// fire-and-forget guest shell; the child outlives the caller.
func (*ExecRunner) StartDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)

	return cmd.Start()
}
