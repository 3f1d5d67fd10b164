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

package monitor

import (
	"context"
	"time"

	"github.com/oysterpack/vigil/pkg/health"
	"github.com/oysterpack/vigil/pkg/kernel"
)

// probesPlugin owns the probe registry and the per-probe timers.
//
// Each probe gets one independent repeating timer on its own interval. Scheduling begins at kernel
// init, which also triggers the cold-start warm-up execution of every registered probe. Teardown
// cancels every timer before the destroy hook returns.
func (m *Monitor) probesPlugin() kernel.Plugin {
	return kernel.Plugin{
		Name:    PluginProbes,
		Version: pluginVersion,
		Install: func(k *kernel.Kernel) error {
			k.Context().Set(KeyMonitor, m)
			return nil
		},
		Init: func(ctx context.Context, c *kernel.Context) error {
			m.startScheduling()
			return nil
		},
		Destroy: func(ctx context.Context, c *kernel.Context) error {
			m.stopScheduling()
			return nil
		},
	}
}

func (m *Monitor) startScheduling() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scheduling = true
	m.started = time.Now()
	m.runCtx, m.cancelRun = context.WithCancel(context.Background())
	for _, name := range m.order {
		def := m.defs[name]
		stop := make(chan struct{})
		m.timers[name] = stop
		go m.schedule(name, m.probeInterval(def), stop)
	}
}

func (m *Monitor) stopScheduling() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scheduling = false
	for name, stop := range m.timers {
		close(stop)
		delete(m.timers, name)
	}
	if m.cancelRun != nil {
		m.cancelRun()
	}
}

// schedule runs the probe immediately - the cold-start warm-up - and then on its interval until
// the stop channel is closed.
func (m *Monitor) schedule(name string, runInterval time.Duration, stop chan struct{}) {
	select {
	case <-stop:
		return
	default:
		m.execute(name)
	}

	for {
		timer := time.After(runInterval)
		select {
		case <-stop:
			return
		case <-timer:
			select {
			case <-stop:
				return
			default:
				m.execute(name)
			}
		}
	}
}

// execute runs one probe execution - timer-fired or warm-up - records the result, and publishes
// the check-completed event.
func (m *Monitor) execute(name string) {
	m.mu.Lock()
	def, exists := m.defs[name]
	ctx := m.runCtx
	m.mu.Unlock()
	if !exists || ctx == nil || ctx.Err() != nil {
		return
	}

	// probe failures settle into the record - they never escape the scheduler
	record, _ := m.engine.Run(ctx, def)

	m.mu.Lock()
	if _, exists := m.defs[name]; exists {
		m.lastRecords[name] = record
	}
	m.mu.Unlock()

	m.kern.Emit(EventCheckCompleted, record)
}

// scheduledCount reports how many probe timers are live.
func (m *Monitor) scheduledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// aggregatorPlugin consumes check-completed events and maintains the continuously aggregated
// snapshot.
func (m *Monitor) aggregatorPlugin() kernel.Plugin {
	return kernel.Plugin{
		Name:     PluginAggregator,
		Version:  pluginVersion,
		Requires: []string{PluginProbes},
		Install: func(k *kernel.Kernel) error {
			k.Context().Set(KeyAggregator, m.aggregator)
			k.On(EventCheckCompleted, func(event string, payload interface{}) {
				if _, ok := payload.(health.Record); ok {
					m.refresh()
				}
			})
			return nil
		},
	}
}
