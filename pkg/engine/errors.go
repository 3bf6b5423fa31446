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

import "errors"

var (
	// ErrEmptyAllowPolicy rejects a configuration that would accept nothing.
	ErrEmptyAllowPolicy = errors.New("allow policy has no prefixes and no keywords")
	// ErrEngineStopped is returned for manual actions after shutdown began.
	ErrEngineStopped = errors.New("engine is stopped")
)
