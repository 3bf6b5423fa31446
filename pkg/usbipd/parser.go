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
	"fmt"
	"regexp"
	"strings"

	"github.com/wslbridge/usbbridge/pkg/models"
)

// Listing rows are separated by runs of two or more spaces so that device
// names may themselves contain double spaces only between columns.
var columnSplit = regexp.MustCompile(`\s{2,}`)

const minListColumns = 4

// ParseList turns `usbipd list` output into device records, in listing
// order. It tolerates unknown extra columns and skips rows it cannot read,
// but returns ErrUnparsableOutput when the output has no recognizable
// device table at all: a broken tool must never look like an empty host.
func ParseList(output string) ([]models.DeviceRecord, error) {
	lines := strings.Split(output, "\n")

	headerIdx := -1

	for i, line := range lines {
		upper := strings.ToUpper(line)
		if strings.Contains(upper, "BUSID") && strings.Contains(upper, "STATE") {
			headerIdx = i
			break
		}
	}

	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: no device table header", ErrUnparsableOutput)
	}

	records := make([]models.DeviceRecord, 0, len(lines)-headerIdx)

	for _, line := range lines[headerIdx+1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// The "Persisted:" section lists devices that are recorded but not
		// currently plugged in; they have no bus position to act on.
		if strings.HasSuffix(trimmed, ":") {
			break
		}

		rec, ok := parseRow(trimmed)
		if !ok {
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

func parseRow(line string) (models.DeviceRecord, bool) {
	parts := columnSplit.Split(line, -1)

	fields := parts[:0]

	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			fields = append(fields, s)
		}
	}

	if len(fields) < minListColumns {
		return models.DeviceRecord{}, false
	}

	busID := fields[0]
	vidpid := fields[1]
	rawState := fields[len(fields)-1]
	name := strings.Join(fields[2:len(fields)-1], "  ")

	identity := models.DeviceIdentity{BusID: busID, VIDPID: vidpid}
	if identity.Validate() != nil {
		return models.DeviceRecord{}, false
	}

	state, persisted := models.ParseDeviceState(rawState)

	return models.DeviceRecord{
		Identity:    identity,
		Name:        name,
		State:       state,
		IsPersisted: persisted,
		RawState:    rawState,
	}, true
}
