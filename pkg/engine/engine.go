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

// Package engine implements the poll/reconcile/execute loop that keeps
// acceptable USB devices attached to the guest. All mutable state lives
// behind a single mutex: the poll loop, action results, and manual requests
// from the presentation layer are the only writers, and observers only ever
// receive immutable snapshot copies.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wslbridge/usbbridge/pkg/logger"
	"github.com/wslbridge/usbbridge/pkg/models"
)

const (
	resultBuffer   = 16
	eventBuffer    = 64
	snapshotBuffer = 1
)

// Engine owns the device state machine. It polls the external tool, decides
// automatic actions, executes them asynchronously, and republishes state to
// observers after every cycle.
type Engine struct {
	config Config
	policy AllowPolicy
	client DeviceClient
	clock  Clock
	logger logger.Logger

	mu         sync.Mutex
	blocks     *blockList
	throttle   *throttleTracker
	autoAttach bool
	showAll    bool
	last       Snapshot
	inFlight   map[models.DeviceIdentity]bool

	resultCh   chan models.ActionResult
	kickCh     chan struct{}
	eventCh    chan models.Event
	snapshotCh chan Snapshot

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates an engine. A nil clock selects the real wall clock; tests
// inject their own.
func New(config Config, client DeviceClient, clock Clock, log logger.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	if clock == nil {
		clock = realClock{}
	}

	return &Engine{
		config:     config,
		policy:     NewAllowPolicy(config.AllowPolicy),
		client:     client,
		clock:      clock,
		logger:     log,
		blocks:     newBlockList(),
		throttle:   newThrottleTracker(config.FailureThreshold, time.Duration(config.RetryCooldown)),
		autoAttach: config.AutoAttach,
		showAll:    config.ShowAll,
		inFlight:   make(map[models.DeviceIdentity]bool),
		resultCh:   make(chan models.ActionResult, resultBuffer),
		kickCh:     make(chan struct{}, 1),
		eventCh:    make(chan models.Event, eventBuffer),
		snapshotCh: make(chan Snapshot, snapshotBuffer),
		done:       make(chan struct{}),
	}, nil
}

// Start runs the poll loop until the context is canceled or Stop is called.
// It performs one cycle immediately so observers have a snapshot before the
// first tick.
func (e *Engine) Start(ctx context.Context) error {
	interval := time.Duration(e.config.PollInterval)

	e.logger.Info().
		Dur("interval", interval).
		Bool("auto_attach", e.autoAttach).
		Msg("Starting passthrough engine")

	ticker := e.clock.Ticker(interval)
	defer ticker.Stop()

	e.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return nil
		case <-ticker.Chan():
			e.cycle(ctx)
		case <-e.kickCh:
			e.cycle(ctx)
		case res := <-e.resultCh:
			e.handleResult(res)
			e.cycle(ctx)
		}
	}
}

// Stop shuts the engine down and waits for in-flight executors to report.
func (e *Engine) Stop(_ context.Context) error {
	e.closeOnce.Do(func() {
		close(e.done)
	})

	e.wg.Wait()
	e.logger.Info().Msg("Passthrough engine stopped")

	return nil
}

// Snapshot returns a copy of the most recent published snapshot.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.last.clone()
}

// Events is the session-log stream. Oldest events are dropped when the
// observer falls behind.
func (e *Engine) Events() <-chan models.Event {
	return e.eventCh
}

// Snapshots delivers the latest snapshot after each cycle, replacing any
// undelivered one.
func (e *Engine) Snapshots() <-chan Snapshot {
	return e.snapshotCh
}

// Refresh requests an immediate poll cycle without waiting for the ticker.
func (e *Engine) Refresh() {
	select {
	case e.kickCh <- struct{}{}:
	default:
	}
}

// SetAutoAttach flips the automatic pipeline. Enabling it clears every block
// and failure window: re-enabling is the documented way to lift all
// suppressions at once.
func (e *Engine) SetAutoAttach(enabled bool) {
	e.mu.Lock()
	e.autoAttach = enabled

	if enabled {
		e.blocks.ClearAll()
		e.throttle = newThrottleTracker(e.config.FailureThreshold, time.Duration(e.config.RetryCooldown))
	}
	e.mu.Unlock()

	state := "disabled"
	if enabled {
		state = "enabled"
	}

	e.publishEvent(models.NewEvent(e.clock.Now(), models.EventInfo, models.DeviceIdentity{},
		"auto-attach", fmt.Sprintf("Auto-attach %s", state)))
	e.Refresh()
}

// SetShowAll flips visibility filtering for observers. It never affects
// which devices are eligible for automatic actions.
func (e *Engine) SetShowAll(enabled bool) {
	e.mu.Lock()
	e.showAll = enabled
	e.mu.Unlock()

	e.Refresh()
}

// ManualBind shares a device on the user's behalf and restores its automatic
// eligibility.
func (e *Engine) ManualBind(ctx context.Context, identity models.DeviceIdentity) error {
	return e.manual(ctx, models.Action{Kind: models.ActionBind, Identity: identity}, true)
}

// ManualAttach shares then attaches a device in one user gesture, clearing
// any block and failure history first so the automatic pipeline takes over
// again afterward.
func (e *Engine) ManualAttach(ctx context.Context, identity models.DeviceIdentity) error {
	return e.manual(ctx, models.Action{Kind: models.ActionAttach, Identity: identity}, true)
}

// ManualDetach returns a device to the host and blocks automatic re-attach
// for it. The block is recorded before the command runs so the very next
// cycle cannot race it back.
func (e *Engine) ManualDetach(ctx context.Context, identity models.DeviceIdentity) error {
	return e.manual(ctx, models.Action{Kind: models.ActionDetach, Identity: identity}, false)
}

// ManualUnbind removes a device's sharing mark and blocks automatic
// re-share.
func (e *Engine) ManualUnbind(ctx context.Context, identity models.DeviceIdentity) error {
	return e.manual(ctx, models.Action{Kind: models.ActionUnbind, Identity: identity}, false)
}

func (e *Engine) manual(ctx context.Context, action models.Action, restores bool) error {
	if err := action.Identity.Validate(); err != nil {
		return err
	}

	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}

	now := e.clock.Now()

	e.mu.Lock()
	if restores {
		e.blocks.Clear(action.Identity)
		e.throttle.Reset(action.Identity)
	} else {
		reason := models.BlockManualDetach
		if action.Kind == models.ActionUnbind {
			reason = models.BlockManualUnshare
		}

		e.blocks.Add(action.Identity, reason, now)
		e.throttle.Reset(action.Identity)
	}

	e.inFlight[action.Identity] = true
	e.mu.Unlock()

	e.publishEvent(models.NewEvent(now, models.EventInfo, action.Identity, action.Kind.String(),
		fmt.Sprintf("Manual %s requested for %s", action.Kind, action.Identity.BusID)))

	if action.Kind == models.ActionAttach {
		e.dispatchAttach(ctx, action.Identity)
	} else {
		e.dispatch(ctx, action, true)
	}

	return nil
}

// cycle performs one poll: list, publish, reconcile, dispatch.
func (e *Engine) cycle(ctx context.Context) {
	records, err := e.client.List(ctx)
	now := e.clock.Now()

	if err != nil {
		e.failedCycle(now, err)
		return
	}

	actions := e.successfulCycle(now, records)

	for _, action := range actions {
		e.publishEvent(models.NewEvent(now, models.EventInfo, action.Identity, action.Kind.String(),
			fmt.Sprintf("Auto %s for %s", action.Kind, action.Identity.BusID)))
		e.dispatch(ctx, action, false)
	}
}

// failedCycle publishes a stale snapshot carrying the previous device list
// and StatusUnknown. A listing failure is never coerced into "no devices":
// observers must see the difference between an empty host and a broken tool.
func (e *Engine) failedCycle(now time.Time, err error) {
	category := models.CategoryOf(err)

	e.logger.Warn().
		Err(err).
		Str("category", category.String()).
		Msg("Device listing failed")

	e.mu.Lock()
	snap := e.last
	snap.Taken = now
	snap.Status = models.StatusUnknown
	snap.Stale = true
	snap.Blocks = e.blocks.Snapshot()
	snap.AutoAttach = e.autoAttach
	snap.ShowAll = e.showAll
	e.last = snap
	out := snap.clone()
	e.mu.Unlock()

	e.publishEvent(models.NewEvent(now, models.EventError, models.DeviceIdentity{}, "list",
		fmt.Sprintf("Device listing failed (%s): %v", category, err)))
	e.publishSnapshot(out)
}

// successfulCycle rebuilds the snapshot from a fresh listing and returns the
// automatic actions that survive blocking and throttling. Snapshot bookkeeping
// and action selection share one critical section so a manual block taken
// mid-cycle is never half-applied.
func (e *Engine) successfulCycle(now time.Time, records []models.DeviceRecord) []models.Action {
	e.mu.Lock()
	defer e.mu.Unlock()

	visible := make([]models.DeviceRecord, 0, len(records))

	for _, rec := range records {
		if e.policy.Visible(rec, e.showAll) {
			visible = append(visible, rec)
		}
	}

	snap := Snapshot{
		Taken:      now,
		Records:    records,
		Visible:    visible,
		Status:     AggregateSnapshot(records, e.policy),
		Blocks:     e.blocks.Snapshot(),
		AutoAttach: e.autoAttach,
		ShowAll:    e.showAll,
	}
	e.last = snap

	blocked := func(id models.DeviceIdentity) bool {
		return e.blocks.ManuallyBlocked(id) || e.inFlight[id]
	}

	intended := reconcile(records, e.policy, e.autoAttach, blocked)
	actions := make([]models.Action, 0, len(intended))

	for _, action := range intended {
		if !e.throttle.Allow(action.Identity, now) {
			e.logger.Debug().
				Str("busid", action.Identity.BusID).
				Str("op", action.Kind.String()).
				Msg("Automatic action suppressed by failure window")

			continue
		}

		e.inFlight[action.Identity] = true

		actions = append(actions, action)
	}

	e.publishSnapshot(snap.clone())

	return actions
}

// dispatch runs one action in a fresh goroutine and reports its outcome to
// the loop. The action context survives engine shutdown so an in-flight
// command finishes or times out on its own terms; only scheduling stops.
func (e *Engine) dispatch(ctx context.Context, action models.Action, manual bool) {
	runCtx := context.WithoutCancel(ctx)

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		err := e.client.Do(runCtx, action)
		res := models.ActionResult{
			Action:   action,
			Manual:   manual,
			Err:      err,
			Category: models.CategoryOf(err),
		}

		select {
		case e.resultCh <- res:
		case <-e.done:
			e.mu.Lock()
			delete(e.inFlight, action.Identity)
			e.mu.Unlock()
		}
	}()
}

// dispatchAttach runs a manual attach as its two-step compound: share first,
// then attach. Automatic attaches never take this path; they spread the two
// steps across poll cycles instead.
func (e *Engine) dispatchAttach(ctx context.Context, identity models.DeviceIdentity) {
	runCtx := context.WithoutCancel(ctx)
	action := models.Action{Kind: models.ActionAttach, Identity: identity}

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		err := e.client.Do(runCtx, models.Action{Kind: models.ActionBind, Identity: identity})
		if err == nil {
			err = e.client.Do(runCtx, action)
		}

		res := models.ActionResult{
			Action:   action,
			Manual:   true,
			Err:      err,
			Category: models.CategoryOf(err),
		}

		select {
		case e.resultCh <- res:
		case <-e.done:
			e.mu.Lock()
			delete(e.inFlight, identity)
			e.mu.Unlock()
		}
	}()
}

// handleResult applies one executor report: forgiveness on success, failure
// accounting and threshold events on error.
func (e *Engine) handleResult(res models.ActionResult) {
	identity := res.Action.Identity
	now := e.clock.Now()

	e.mu.Lock()
	delete(e.inFlight, identity)

	if res.OK() {
		e.throttle.RecordSuccess(identity)
		e.blocks.ClearFailure(identity)

		if res.Manual && (res.Action.Kind == models.ActionAttach || res.Action.Kind == models.ActionBind) {
			e.blocks.Clear(identity)
		}
		e.mu.Unlock()

		e.publishEvent(models.NewEvent(now, models.EventInfo, identity, res.Action.Kind.String(),
			fmt.Sprintf("%s OK for %s", title(res.Action.Kind), identity.BusID)))

		return
	}

	crossed := false

	if !res.Manual && res.Category.Throttleable() {
		crossed = e.throttle.RecordFailure(identity, now)
		if crossed {
			e.blocks.Add(identity, models.BlockRepeatedFailure, now)
		}
	}
	e.mu.Unlock()

	level := models.EventError
	if res.Category == models.CategoryDeviceNotFound {
		// Unplug race, not a fault.
		level = models.EventWarn
	}

	e.logger.Error().
		Err(res.Err).
		Str("busid", identity.BusID).
		Str("op", res.Action.Kind.String()).
		Str("category", res.Category.String()).
		Bool("manual", res.Manual).
		Msg("Action failed")

	e.publishEvent(models.NewEvent(now, level, identity, res.Action.Kind.String(),
		fmt.Sprintf("%s failed for %s (%s): %v", title(res.Action.Kind), identity.BusID, res.Category, res.Err)))

	if crossed {
		ev := models.NewEvent(now, models.EventWarn, identity, res.Action.Kind.String(),
			fmt.Sprintf("Suppressing automatic retries for %s after %d consecutive failures (cooldown %s)",
				identity.BusID, e.config.FailureThreshold, time.Duration(e.config.RetryCooldown)))
		ev.Throttled = true
		e.publishEvent(ev)
	}
}

// publishEvent delivers without blocking the loop: when the buffer is full
// the oldest event is discarded.
func (e *Engine) publishEvent(ev models.Event) {
	for {
		select {
		case e.eventCh <- ev:
			return
		default:
		}

		select {
		case <-e.eventCh:
		default:
		}
	}
}

// publishSnapshot keeps only the newest snapshot pending.
func (e *Engine) publishSnapshot(snap Snapshot) {
	for {
		select {
		case e.snapshotCh <- snap:
			return
		default:
		}

		select {
		case <-e.snapshotCh:
		default:
		}
	}
}

func title(kind models.ActionKind) string {
	switch kind {
	case models.ActionBind:
		return "Bind"
	case models.ActionAttach:
		return "Attach"
	case models.ActionDetach:
		return "Detach"
	default:
		return "Unbind"
	}
}
