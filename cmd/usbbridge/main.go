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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/wslbridge/usbbridge/pkg/config"
	"github.com/wslbridge/usbbridge/pkg/engine"
	"github.com/wslbridge/usbbridge/pkg/lifecycle"
	"github.com/wslbridge/usbbridge/pkg/logger"
	"github.com/wslbridge/usbbridge/pkg/tui"
	"github.com/wslbridge/usbbridge/pkg/usbipd"
	"github.com/wslbridge/usbbridge/pkg/version"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to usbbridge config file (defaults apply when omitted)")
	headless := flag.Bool("headless", false, "Run the engine without the dashboard")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("usbbridge " + version.GetFullVersion())

		return nil
	}

	ctx := context.Background()

	// Step 1: Load configuration. Without a config file the built-in
	// security-key defaults apply.
	cfg := engine.DefaultConfig()

	if *configPath != "" {
		cfgLoader := config.NewConfig(nil)

		if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
			return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
		}
	} else if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	// Step 2: Create logger from loaded config.
	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{
			Level:  "info",
			Output: "stderr",
		}
	}

	bridgeLogger, err := lifecycle.CreateComponentLogger("engine", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Step 3: Wire the external-tool adapter and the engine.
	runner := &usbipd.ExecRunner{Timeout: time.Duration(cfg.CommandTimeout)}
	client := usbipd.NewClient(runner, cfg.UsbipdPath, bridgeLogger)

	bridgeLogger.Info().Str("usbipd", client.Executable()).Msg("Resolved external tool")

	eng, err := engine.New(cfg, client, nil, bridgeLogger) // nil clock defaults to the wall clock
	if err != nil {
		return err
	}

	if *headless {
		return lifecycle.Run(ctx, eng)
	}

	// Interactive mode: the engine runs in the background while the
	// dashboard owns the terminal. Quitting the dashboard stops the engine.
	engineCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	engineErr := make(chan error, 1)

	go func() {
		engineErr <- eng.Start(engineCtx)
	}()

	uiErr := tui.Run(eng, runner, bridgeLogger)

	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := eng.Stop(stopCtx); err != nil {
		return err
	}

	if err := <-engineErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return uiErr
}
