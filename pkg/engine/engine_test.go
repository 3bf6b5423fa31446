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

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wslbridge/usbbridge/pkg/logger"
	"github.com/wslbridge/usbbridge/pkg/models"
)

const waitFor = 2 * time.Second

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	tick chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		tick: make(chan time.Time),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Tick forces one poll cycle; the send blocks until the loop picks it up.
func (c *fakeClock) Tick() {
	c.tick <- c.Now()
}

func (c *fakeClock) Ticker(time.Duration) Ticker {
	return &fakeTicker{ch: c.tick}
}

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) Chan() <-chan time.Time { return f.ch }
func (*fakeTicker) Stop()                    {}

type fakeDevice struct {
	vidpid string
	name   string
	state  models.DeviceState
}

// fakeClient simulates the external tool: listings reflect prior actions.
type fakeClient struct {
	mu      sync.Mutex
	order   []string
	devices map[string]*fakeDevice
	listErr error
	doErr   map[models.ActionKind]error
	actions []models.Action
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		devices: make(map[string]*fakeDevice),
		doErr:   make(map[models.ActionKind]error),
	}
}

func (c *fakeClient) addDevice(busID, vidpid, name string, state models.DeviceState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = append(c.order, busID)
	c.devices[busID] = &fakeDevice{vidpid: vidpid, name: name, state: state}
}

func (c *fakeClient) setListErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listErr = err
}

func (c *fakeClient) failActions(kind models.ActionKind, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.doErr[kind] = err
}

func (c *fakeClient) List(_ context.Context) ([]models.DeviceRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listErr != nil {
		return nil, c.listErr
	}

	records := make([]models.DeviceRecord, 0, len(c.order))

	for _, busID := range c.order {
		dev := c.devices[busID]
		records = append(records, models.DeviceRecord{
			Identity: models.DeviceIdentity{BusID: busID, VIDPID: dev.vidpid},
			Name:     dev.name,
			State:    dev.state,
			RawState: dev.state.String(),
		})
	}

	return records, nil
}

func (c *fakeClient) Do(_ context.Context, action models.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.actions = append(c.actions, action)

	if err := c.doErr[action.Kind]; err != nil {
		return err
	}

	dev, ok := c.devices[action.Identity.BusID]
	if !ok {
		return errors.New("no such device")
	}

	switch action.Kind {
	case models.ActionBind:
		if dev.state == models.StateUnshared {
			dev.state = models.StateShared
		}
	case models.ActionAttach:
		dev.state = models.StateAttached
	case models.ActionDetach:
		dev.state = models.StateShared
	case models.ActionUnbind:
		dev.state = models.StateUnshared
	}

	return nil
}

func (c *fakeClient) countActions(kind models.ActionKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, a := range c.actions {
		if a.Kind == kind {
			n++
		}
	}

	return n
}

type permissionError struct{}

func (permissionError) Error() string { return "access denied" }
func (permissionError) ErrorCategory() models.ErrorCategory {
	return models.CategoryPermissionDenied
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PollInterval = models.Duration(time.Second)

	return cfg
}

func startEngine(t *testing.T, cfg Config, client *fakeClient, clock *fakeClock) *Engine {
	t.Helper()

	eng, err := New(cfg, client, clock, logger.NewTestLogger())
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() {
		done <- eng.Start(context.Background())
	}()

	t.Cleanup(func() {
		require.NoError(t, eng.Stop(context.Background()))
		require.NoError(t, <-done)
	})

	return eng
}

func TestNewRejectsEmptyPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.AllowPolicy = PolicyConfig{}

	_, err := New(cfg, newFakeClient(), newFakeClock(), logger.NewTestLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyAllowPolicy)
}

func TestEngineAutoBindThenAttach(t *testing.T) {
	client := newFakeClient()
	client.addDevice("1-2", "1050:0407", "YubiKey OTP+FIDO+CCID", models.StateUnshared)

	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	// The initial cycle binds; the result-driven cycle observes Shared and
	// attaches. No ticks are needed for the chain to complete.
	assert.Eventually(t, func() bool {
		return eng.Snapshot().Status == models.StatusGreen
	}, waitFor, 5*time.Millisecond)

	assert.Equal(t, 1, client.countActions(models.ActionBind))
	assert.Equal(t, 1, client.countActions(models.ActionAttach))

	snap := eng.Snapshot()
	require.Len(t, snap.Records, 1)
	assert.Equal(t, models.StateAttached, snap.Records[0].State)
	assert.Empty(t, snap.Blocks)
}

func TestEngineIgnoresUnacceptableDevices(t *testing.T) {
	client := newFakeClient()
	client.addDevice("1-4", "046d:c52b", "Logitech USB Receiver", models.StateUnshared)

	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	assert.Eventually(t, func() bool {
		return !eng.Snapshot().Taken.IsZero()
	}, waitFor, 5*time.Millisecond)

	clock.Tick()
	clock.Tick()

	assert.Equal(t, 0, client.countActions(models.ActionBind))
	assert.Equal(t, models.StatusRed, eng.Snapshot().Status)
	assert.Empty(t, eng.Snapshot().Visible)
	assert.Equal(t, 1, eng.Snapshot().Hidden())
}

func TestEngineManualDetachBlocksReattach(t *testing.T) {
	client := newFakeClient()
	client.addDevice("1-2", "1050:0407", "YubiKey OTP+FIDO+CCID", models.StateAttached)

	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	assert.Eventually(t, func() bool {
		return eng.Snapshot().Status == models.StatusGreen
	}, waitFor, 5*time.Millisecond)

	identity := models.DeviceIdentity{BusID: "1-2", VIDPID: "1050:0407"}
	require.NoError(t, eng.ManualDetach(context.Background(), identity))

	assert.Eventually(t, func() bool {
		return eng.Snapshot().Status == models.StatusBlue
	}, waitFor, 5*time.Millisecond)

	// Further cycles must not undo the user's detach.
	clock.Tick()
	clock.Tick()
	clock.Tick()

	assert.Equal(t, 0, client.countActions(models.ActionAttach))

	snap := eng.Snapshot()
	require.Len(t, snap.Blocks, 1)
	assert.Equal(t, models.BlockManualDetach, snap.Blocks[0].Reason)
	assert.Equal(t, identity, snap.Blocks[0].Identity)
}

func TestEngineManualAttachClearsBlock(t *testing.T) {
	client := newFakeClient()
	client.addDevice("1-2", "1050:0407", "YubiKey OTP+FIDO+CCID", models.StateAttached)

	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	identity := models.DeviceIdentity{BusID: "1-2", VIDPID: "1050:0407"}
	require.NoError(t, eng.ManualDetach(context.Background(), identity))

	assert.Eventually(t, func() bool {
		return len(eng.Snapshot().Blocks) == 1
	}, waitFor, 5*time.Millisecond)

	require.NoError(t, eng.ManualAttach(context.Background(), identity))

	assert.Eventually(t, func() bool {
		snap := eng.Snapshot()

		return snap.Status == models.StatusGreen && len(snap.Blocks) == 0
	}, waitFor, 5*time.Millisecond)

	// The manual attach is a bind+attach compound.
	assert.GreaterOrEqual(t, client.countActions(models.ActionBind), 1)
	assert.GreaterOrEqual(t, client.countActions(models.ActionAttach), 1)
}

func TestEngineManualUnbindBlocksReshare(t *testing.T) {
	client := newFakeClient()
	client.addDevice("1-2", "1050:0407", "YubiKey OTP+FIDO+CCID", models.StateShared)

	clock := newFakeClock()
	cfg := testConfig()
	cfg.AutoAttach = false // keep the pipeline quiet so only the manual action runs
	eng := startEngine(t, cfg, client, clock)

	identity := models.DeviceIdentity{BusID: "1-2", VIDPID: "1050:0407"}
	require.NoError(t, eng.ManualUnbind(context.Background(), identity))

	assert.Eventually(t, func() bool {
		snap := eng.Snapshot()

		return len(snap.Blocks) == 1 && snap.Blocks[0].Reason == models.BlockManualUnshare
	}, waitFor, 5*time.Millisecond)

	assert.Equal(t, 1, client.countActions(models.ActionUnbind))
}

func TestEngineReenableClearsAllBlocks(t *testing.T) {
	client := newFakeClient()
	client.addDevice("1-2", "1050:0407", "YubiKey OTP+FIDO+CCID", models.StateAttached)

	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	identity := models.DeviceIdentity{BusID: "1-2", VIDPID: "1050:0407"}
	require.NoError(t, eng.ManualDetach(context.Background(), identity))

	assert.Eventually(t, func() bool {
		return len(eng.Snapshot().Blocks) == 1
	}, waitFor, 5*time.Millisecond)

	eng.SetAutoAttach(true)

	assert.Eventually(t, func() bool {
		snap := eng.Snapshot()

		return len(snap.Blocks) == 0 && snap.Status == models.StatusGreen
	}, waitFor, 5*time.Millisecond)
}

func TestEngineListFailureYieldsUnknownStatus(t *testing.T) {
	client := newFakeClient()
	client.addDevice("1-2", "1050:0407", "YubiKey OTP+FIDO+CCID", models.StateAttached)

	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	assert.Eventually(t, func() bool {
		return eng.Snapshot().Status == models.StatusGreen
	}, waitFor, 5*time.Millisecond)

	identity := models.DeviceIdentity{BusID: "1-2", VIDPID: "1050:0407"}
	require.NoError(t, eng.ManualDetach(context.Background(), identity))

	assert.Eventually(t, func() bool {
		return len(eng.Snapshot().Blocks) == 1
	}, waitFor, 5*time.Millisecond)

	client.setListErr(errors.New("boom"))
	clock.Tick()

	assert.Eventually(t, func() bool {
		return eng.Snapshot().Stale
	}, waitFor, 5*time.Millisecond)

	snap := eng.Snapshot()
	assert.Equal(t, models.StatusUnknown, snap.Status)
	// The previous listing stays visible for context; it is never coerced
	// into "no devices", and block state survives the broken cycle.
	require.Len(t, snap.Records, 1)
	require.Len(t, snap.Blocks, 1)

	// Recovery: the next good listing restores a concrete status. The key
	// is shared but detach-blocked, so the status settles on Blue.
	client.setListErr(nil)
	clock.Tick()

	assert.Eventually(t, func() bool {
		snap := eng.Snapshot()

		return !snap.Stale && snap.Status == models.StatusBlue
	}, waitFor, 5*time.Millisecond)
}

func TestEngineThrottlesRepeatedFailures(t *testing.T) {
	client := newFakeClient()
	client.addDevice("1-2", "1050:0407", "YubiKey OTP+FIDO+CCID", models.StateShared)
	client.failActions(models.ActionAttach, permissionError{})

	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	// Failures cascade until the threshold suppresses further attempts.
	assert.Eventually(t, func() bool {
		return client.countActions(models.ActionAttach) == 3
	}, waitFor, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		snap := eng.Snapshot()

		return len(snap.Blocks) == 1 && snap.Blocks[0].Reason == models.BlockRepeatedFailure
	}, waitFor, 5*time.Millisecond)

	clock.Tick()
	clock.Tick()
	assert.Equal(t, 3, client.countActions(models.ActionAttach))

	// The cooldown grants exactly one fresh attempt.
	clock.Advance(31 * time.Second)
	clock.Tick()

	assert.Eventually(t, func() bool {
		return client.countActions(models.ActionAttach) == 4
	}, waitFor, 5*time.Millisecond)
}

func TestEngineThrottleRecoveryClearsFailureBlock(t *testing.T) {
	client := newFakeClient()
	client.addDevice("1-2", "1050:0407", "YubiKey OTP+FIDO+CCID", models.StateShared)
	client.failActions(models.ActionAttach, permissionError{})

	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	assert.Eventually(t, func() bool {
		return len(eng.Snapshot().Blocks) == 1
	}, waitFor, 5*time.Millisecond)

	// The fault clears; the cooldown attempt succeeds and forgives history.
	client.failActions(models.ActionAttach, nil)
	clock.Advance(31 * time.Second)
	clock.Tick()

	assert.Eventually(t, func() bool {
		snap := eng.Snapshot()

		return snap.Status == models.StatusGreen && len(snap.Blocks) == 0
	}, waitFor, 5*time.Millisecond)
}

func TestEngineDeviceNotFoundCarriesNoPenalty(t *testing.T) {
	client := newFakeClient()
	client.addDevice("1-2", "1050:0407", "YubiKey OTP+FIDO+CCID", models.StateShared)
	client.failActions(models.ActionAttach, notFoundError{})

	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	assert.Eventually(t, func() bool {
		return client.countActions(models.ActionAttach) >= 5
	}, waitFor, 5*time.Millisecond)

	// Benign unplug races never accumulate into a suppression.
	assert.Empty(t, eng.Snapshot().Blocks)
}

func TestEngineManualActionRejectsInvalidIdentity(t *testing.T) {
	client := newFakeClient()
	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	err := eng.ManualAttach(context.Background(), models.DeviceIdentity{})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidIdentity)
	assert.Equal(t, 0, client.countActions(models.ActionAttach))
}

func TestEngineRefreshTriggersCycle(t *testing.T) {
	client := newFakeClient()
	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	assert.Eventually(t, func() bool {
		return !eng.Snapshot().Taken.IsZero()
	}, waitFor, 5*time.Millisecond)

	client.addDevice("1-2", "1050:0407", "YubiKey OTP+FIDO+CCID", models.StateAttached)
	eng.Refresh()

	assert.Eventually(t, func() bool {
		return eng.Snapshot().Status == models.StatusGreen
	}, waitFor, 5*time.Millisecond)
}

func TestEngineShowAllWidensVisibilityOnly(t *testing.T) {
	client := newFakeClient()
	client.addDevice("1-4", "046d:c52b", "Logitech USB Receiver", models.StateUnshared)

	clock := newFakeClock()
	eng := startEngine(t, testConfig(), client, clock)

	assert.Eventually(t, func() bool {
		return !eng.Snapshot().Taken.IsZero()
	}, waitFor, 5*time.Millisecond)

	assert.Empty(t, eng.Snapshot().Visible)

	eng.SetShowAll(true)

	assert.Eventually(t, func() bool {
		return len(eng.Snapshot().Visible) == 1
	}, waitFor, 5*time.Millisecond)

	// Still nothing to do for a device the policy rejects.
	assert.Equal(t, 0, client.countActions(models.ActionBind))
}

type notFoundError struct{}

func (notFoundError) Error() string { return "device not found" }
func (notFoundError) ErrorCategory() models.ErrorCategory {
	return models.CategoryDeviceNotFound
}
