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
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wslbridge/usbbridge/pkg/logger"
	"github.com/wslbridge/usbbridge/pkg/models"
)

type fakeCall struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []fakeCall
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	f.calls = append(f.calls, fakeCall{name: name, args: args})

	return f.stdout, f.stderr, f.err
}

func newTestClient(runner *fakeRunner) *Client {
	return NewClient(runner, "usbipd", logger.NewTestLogger())
}

func TestClientList(t *testing.T) {
	runner := &fakeRunner{stdout: sampleListing}
	client := newTestClient(runner)

	records, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 4)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "usbipd", runner.calls[0].name)
	assert.Equal(t, []string{"list"}, runner.calls[0].args)
}

func TestClientListUnparsable(t *testing.T) {
	runner := &fakeRunner{stdout: "something went wrong"}
	client := newTestClient(runner)

	_, err := client.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.CategoryParseFailure, models.CategoryOf(err))
}

func TestClientListCommandFailure(t *testing.T) {
	runner := &fakeRunner{err: &exec.Error{Name: "usbipd", Err: exec.ErrNotFound}}
	client := newTestClient(runner)

	_, err := client.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.CategoryToolUnavailable, models.CategoryOf(err))
}

func TestClientBindAlreadyBound(t *testing.T) {
	runner := &fakeRunner{
		stderr: "usbipd: error: Device with busid 1-2 was already bound.",
		err:    errors.New("exit status 1"),
	}
	client := newTestClient(runner)

	require.NoError(t, client.Bind(context.Background(), "1-2"))
}

func TestClientBindPermissionDenied(t *testing.T) {
	runner := &fakeRunner{
		stderr: "usbipd: error: Access denied; this operation requires administrator privileges.",
		err:    errors.New("exit status 3"),
	}
	client := newTestClient(runner)

	err := client.Bind(context.Background(), "1-2")
	require.Error(t, err)
	assert.Equal(t, models.CategoryPermissionDenied, models.CategoryOf(err))
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestClientAttachArgs(t *testing.T) {
	runner := &fakeRunner{}
	client := newTestClient(runner)

	require.NoError(t, client.Attach(context.Background(), "1-2"))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"attach", "--wsl", "--busid", "1-2"}, runner.calls[0].args)
}

func TestClientDetachDeviceNotFound(t *testing.T) {
	runner := &fakeRunner{
		stderr: "usbipd: error: There is no compatible device with busid '9-9'.",
		err:    errors.New("exit status 1"),
	}
	client := newTestClient(runner)

	err := client.Detach(context.Background(), "9-9")
	require.Error(t, err)
	assert.Equal(t, models.CategoryDeviceNotFound, models.CategoryOf(err))
}

func TestClientDoDispatch(t *testing.T) {
	runner := &fakeRunner{}
	client := newTestClient(runner)
	identity := models.DeviceIdentity{BusID: "1-2", VIDPID: "1050:0407"}

	kinds := []models.ActionKind{models.ActionBind, models.ActionAttach, models.ActionDetach, models.ActionUnbind}
	for _, kind := range kinds {
		require.NoError(t, client.Do(context.Background(), models.Action{Kind: kind, Identity: identity}))
	}

	require.Len(t, runner.calls, 4)
	assert.Equal(t, "bind", runner.calls[0].args[0])
	assert.Equal(t, "attach", runner.calls[1].args[0])
	assert.Equal(t, "detach", runner.calls[2].args[0])
	assert.Equal(t, "unbind", runner.calls[3].args[0])
}

func TestClientDoRejectsEmptyBusID(t *testing.T) {
	runner := &fakeRunner{}
	client := newTestClient(runner)

	err := client.Do(context.Background(), models.Action{Kind: models.ActionAttach})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidIdentity)
	assert.Empty(t, runner.calls)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, models.CategoryNone, ClassifyError(nil, ""))
	assert.Equal(t, models.CategoryToolUnavailable,
		ClassifyError(&exec.Error{Name: "usbipd", Err: exec.ErrNotFound}, ""))
	assert.Equal(t, models.CategoryPermissionDenied,
		ClassifyError(errors.New("exit status 3"), "Access denied."))
	assert.Equal(t, models.CategoryDeviceNotFound,
		ClassifyError(errors.New("exit status 1"), "no compatible device was found"))
	assert.Equal(t, models.CategoryUnknown,
		ClassifyError(errors.New("exit status 1"), "something else entirely"))
}
