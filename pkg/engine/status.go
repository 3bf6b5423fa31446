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

import "github.com/wslbridge/usbbridge/pkg/models"

// AggregateSnapshot reduces a snapshot to one status with Green > Blue > Red
// precedence: any acceptable attached device wins, then any acceptable
// visible device, then nothing acceptable at all. Callers that could not
// obtain a snapshot must report StatusUnknown instead; this function never
// does, because a successfully parsed listing is always a concrete answer.
func AggregateSnapshot(records []models.DeviceRecord, policy AllowPolicy) models.AggregateStatus {
	status := models.StatusRed

	for _, rec := range records {
		if !policy.Matches(rec) {
			continue
		}

		if rec.State == models.StateAttached {
			return models.StatusGreen
		}

		status = models.StatusBlue
	}

	return status
}
