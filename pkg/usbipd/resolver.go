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
	"os"
	"path/filepath"
)

const defaultExecutable = "usbipd"

// ResolveExecutable returns the path to the usbipd executable. Resolution
// order: the USBIPD_EXE environment variable (file or containing folder),
// common usbipd-win install locations, then plain "usbipd" so PATH lookup
// still works as a fallback.
func ResolveExecutable() string {
	if env := os.Getenv("USBIPD_EXE"); env != "" {
		if isFile(env) {
			return env
		}

		if cand := filepath.Join(env, "usbipd.exe"); isFile(cand) {
			return cand
		}
	}

	candidates := []string{
		filepath.Join(os.Getenv("ProgramFiles"), "usbipd-win", "usbipd.exe"),
		filepath.Join(os.Getenv("ProgramFiles(x86)"), "usbipd-win", "usbipd.exe"),
		filepath.Join(os.Getenv("LocalAppData"), "Programs", "usbipd-win", "usbipd.exe"),
	}

	for _, cand := range candidates {
		if isFile(cand) {
			return cand
		}
	}

	return defaultExecutable
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}
