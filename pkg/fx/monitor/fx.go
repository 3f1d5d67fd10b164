/*
 * Copyright (c) 2020 OysterPack, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package monitor provides the dependency-health monitor as an fx module.
//
// The module expects a *zerolog.Logger in the fx container. It binds the monitor to the fx
// lifecycle: scheduling starts on app start and every probe timer is cancelled on app stop.
package monitor

import (
	"context"

	"github.com/oysterpack/vigil/pkg/health"
	"github.com/oysterpack/vigil/pkg/monitor"
	"github.com/oysterpack/vigil/pkg/score"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Register registers a probe with the monitor, replacing any probe with the same name.
type Register func(def health.Def) error

// Unregister removes a probe and cancels its timer. It returns false if the probe is unknown.
type Unregister func(name string) bool

// CheckStatus runs all registered probes and returns the live aggregated snapshot.
type CheckStatus func(ctx context.Context) score.Snapshot

// LatestSnapshot returns the most recently aggregated snapshot without re-running probes.
type LatestSnapshot func() score.Snapshot

// ModuleWithDefaults provides the fx Module for the monitor, configured from the env.
func ModuleWithDefaults() fx.Option {
	return Module(monitor.LoadConfig())
}

// Module provides the fx Module for the monitor.
func Module(cfg monitor.Config, opts ...monitor.Option) fx.Option {
	return fx.Options(
		fx.Provide(
			newMonitor(cfg, opts...),

			provideRegisterFunc,
			provideUnregisterFunc,
			provideCheckStatusFunc,
			provideLatestSnapshotFunc,
		),
	)
}

func newMonitor(cfg monitor.Config, opts ...monitor.Option) func(logger *zerolog.Logger, lc fx.Lifecycle) (*monitor.Monitor, error) {
	return func(logger *zerolog.Logger, lc fx.Lifecycle) (*monitor.Monitor, error) {
		m, err := monitor.New(logger, cfg, opts...)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStart: m.Start,
			OnStop: func(ctx context.Context) error {
				m.Stop(ctx)
				return nil
			},
		})
		return m, nil
	}
}

func provideRegisterFunc(m *monitor.Monitor) Register {
	return m.Register
}

func provideUnregisterFunc(m *monitor.Monitor) Unregister {
	return m.Unregister
}

func provideCheckStatusFunc(m *monitor.Monitor) CheckStatus {
	return m.Status
}

func provideLatestSnapshotFunc(m *monitor.Monitor) LatestSnapshot {
	return m.Snapshot
}
