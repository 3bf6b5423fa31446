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
	"time"

	"github.com/wslbridge/usbbridge/pkg/logger"
	"github.com/wslbridge/usbbridge/pkg/models"
)

const (
	defaultPollInterval     = 3 * time.Second
	defaultCommandTimeout   = 25 * time.Second
	defaultFailureThreshold = 3
	defaultRetryCooldown    = 30 * time.Second
)

// PolicyConfig is the configured allow-list: VID:PID prefixes and
// case-insensitive display-name fragments.
type PolicyConfig struct {
	VIDPIDPrefixes []string `json:"vidpid_prefixes"`
	NameKeywords   []string `json:"name_keywords"`
}

// Config configures the engine. Threshold and cooldown are policy constants
// deliberately exposed as configuration.
type Config struct {
	PollInterval     models.Duration `json:"poll_interval"`
	CommandTimeout   models.Duration `json:"command_timeout"`
	AutoAttach       bool            `json:"auto_attach"`
	ShowAll          bool            `json:"show_all"`
	FailureThreshold int             `json:"failure_threshold"`
	RetryCooldown    models.Duration `json:"retry_cooldown"`
	UsbipdPath       string          `json:"usbipd_path"`
	AllowPolicy      PolicyConfig    `json:"allow_policy"`
	Logging          *logger.Config  `json:"logging"`
}

// DefaultConfig mirrors the behavior of the original desktop utility:
// a three second poll, auto-attach on, and a Yubico-oriented allow-list.
func DefaultConfig() Config {
	return Config{
		PollInterval:     models.Duration(defaultPollInterval),
		CommandTimeout:   models.Duration(defaultCommandTimeout),
		AutoAttach:       true,
		FailureThreshold: defaultFailureThreshold,
		RetryCooldown:    models.Duration(defaultRetryCooldown),
		AllowPolicy: PolicyConfig{
			VIDPIDPrefixes: []string{"1050:"},
			NameKeywords:   []string{"yubico", "yubikey", "security key", "fido"},
		},
	}
}

// Validate fills zero values with defaults and rejects nonsensical settings.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if c.CommandTimeout <= 0 {
		c.CommandTimeout = models.Duration(defaultCommandTimeout)
	}

	if c.FailureThreshold <= 0 {
		c.FailureThreshold = defaultFailureThreshold
	}

	if c.RetryCooldown <= 0 {
		c.RetryCooldown = models.Duration(defaultRetryCooldown)
	}

	if len(c.AllowPolicy.VIDPIDPrefixes) == 0 && len(c.AllowPolicy.NameKeywords) == 0 {
		return ErrEmptyAllowPolicy
	}

	return nil
}
