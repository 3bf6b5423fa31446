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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wslbridge/usbbridge/pkg/models"
)

func TestBlockListAddClear(t *testing.T) {
	blocks := newBlockList()
	identity := models.DeviceIdentity{BusID: "1-2", VIDPID: "1050:0407"}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.False(t, blocks.Blocked(identity))
	assert.False(t, blocks.Clear(identity))

	blocks.Add(identity, models.BlockManualDetach, now)
	assert.True(t, blocks.Blocked(identity))
	assert.True(t, blocks.ManuallyBlocked(identity))

	require.Len(t, blocks.Snapshot(), 1)
	assert.Equal(t, models.BlockManualDetach, blocks.Snapshot()[0].Reason)

	assert.True(t, blocks.Clear(identity))
	assert.False(t, blocks.Blocked(identity))
}

func TestBlockListFailureEntriesAreNotManual(t *testing.T) {
	blocks := newBlockList()
	identity := models.DeviceIdentity{BusID: "1-2", VIDPID: "1050:0407"}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	blocks.Add(identity, models.BlockRepeatedFailure, now)
	assert.True(t, blocks.Blocked(identity))
	assert.False(t, blocks.ManuallyBlocked(identity))

	assert.True(t, blocks.ClearFailure(identity))
	assert.False(t, blocks.Blocked(identity))
}

func TestBlockListClearFailureSparesManualBlocks(t *testing.T) {
	blocks := newBlockList()
	identity := models.DeviceIdentity{BusID: "1-2", VIDPID: "1050:0407"}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	blocks.Add(identity, models.BlockManualUnshare, now)
	assert.False(t, blocks.ClearFailure(identity))
	assert.True(t, blocks.Blocked(identity))
}

func TestBlockListClearAll(t *testing.T) {
	blocks := newBlockList()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	blocks.Add(models.DeviceIdentity{BusID: "1-2"}, models.BlockManualDetach, now)
	blocks.Add(models.DeviceIdentity{BusID: "2-4"}, models.BlockRepeatedFailure, now)

	blocks.ClearAll()
	assert.Empty(t, blocks.Snapshot())
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := Config{
		AllowPolicy: PolicyConfig{VIDPIDPrefixes: []string{"1050:"}},
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, models.Duration(defaultPollInterval), cfg.PollInterval)
	assert.Equal(t, models.Duration(defaultCommandTimeout), cfg.CommandTimeout)
	assert.Equal(t, defaultFailureThreshold, cfg.FailureThreshold)
	assert.Equal(t, models.Duration(defaultRetryCooldown), cfg.RetryCooldown)
}

func TestConfigValidateRejectsEmptyPolicy(t *testing.T) {
	cfg := Config{}

	assert.ErrorIs(t, cfg.Validate(), ErrEmptyAllowPolicy)
}
