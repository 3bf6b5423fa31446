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
	"strings"

	"github.com/wslbridge/usbbridge/pkg/models"
)

// AllowPolicy decides which devices the engine is allowed to act on. The
// policy is pure and total: the same record always yields the same answer,
// independent of poll order. Read-only after construction.
type AllowPolicy struct {
	prefixes []string
	keywords []string
}

// NewAllowPolicy lowers the configured prefixes and keywords once so that
// matching is a plain prefix/substring test.
func NewAllowPolicy(cfg PolicyConfig) AllowPolicy {
	p := AllowPolicy{
		prefixes: make([]string, 0, len(cfg.VIDPIDPrefixes)),
		keywords: make([]string, 0, len(cfg.NameKeywords)),
	}

	for _, pref := range cfg.VIDPIDPrefixes {
		if pref = strings.ToLower(strings.TrimSpace(pref)); pref != "" {
			p.prefixes = append(p.prefixes, pref)
		}
	}

	for _, kw := range cfg.NameKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			p.keywords = append(p.keywords, kw)
		}
	}

	return p
}

// Matches reports whether the device is acceptable: its VID:PID starts with
// a configured prefix or its display name contains a configured fragment.
func (p AllowPolicy) Matches(rec models.DeviceRecord) bool {
	vidpid := strings.ToLower(strings.TrimSpace(rec.Identity.VIDPID))
	name := strings.ToLower(strings.TrimSpace(rec.Name))

	for _, pref := range p.prefixes {
		if strings.HasPrefix(vidpid, pref) {
			return true
		}
	}

	for _, kw := range p.keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}

	return false
}

// Visible reports whether the device should be displayed. The show-all
// override widens visibility for troubleshooting only; it never widens
// auto-attach eligibility, which always goes through Matches.
func (p AllowPolicy) Visible(rec models.DeviceRecord, showAll bool) bool {
	if showAll {
		return true
	}

	return p.Matches(rec)
}
