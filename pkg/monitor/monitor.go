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

// Package monitor composes the kernel, the check execution engine, and the aggregator into a
// dependency-health monitor.
//
// The monitor is assembled as a set of kernel plugins:
//  - probes: owns the probe registry and schedules each probe on its own interval
//  - aggregator: consumes check-completed events and maintains the aggregate snapshot
//  - history: retains a bounded ring of execution records
//  - metrics: publishes per-probe prometheus gauges and counters
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/oysterpack/vigil/pkg/eventlog"
	"github.com/oysterpack/vigil/pkg/health"
	"github.com/oysterpack/vigil/pkg/interval"
	"github.com/oysterpack/vigil/pkg/kernel"
	"github.com/oysterpack/vigil/pkg/score"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// core plugin names
const (
	PluginProbes     = "probes"
	PluginAggregator = "aggregator"
	PluginHistory    = "history"
	PluginMetrics    = "metrics"
)

// shared state keys installed by the core plugins
const (
	KeyMonitor    = "vigil.monitor"
	KeyAggregator = "vigil.aggregator"
)

const pluginVersion = "1.0.0"

// Option configures a Monitor.
type Option func(*Monitor)

// WithRegisterer sets the prometheus registerer the metrics plugin registers its collectors on.
// The default is a private registry.
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(m *Monitor) {
		m.registerer = registerer
	}
}

// Monitor runs probes on a schedule and on demand, and reduces their outcomes into one overall
// status with a confidence score.
type Monitor struct {
	cfg        Config
	logger     *zerolog.Logger
	kern       *kernel.Kernel
	engine     *health.Engine
	aggregator *score.Aggregator
	registerer prometheus.Registerer
	history    *ring

	mu          sync.Mutex
	order       []string // registration order
	defs        map[string]health.Def
	lastRecords map[string]health.Record
	timers      map[string]chan struct{}
	scheduling  bool
	runCtx      context.Context
	cancelRun   context.CancelFunc
	started     time.Time
	current     score.Snapshot
	hasCurrent  bool
}

// New constructs a Monitor and installs the core plugins into a fresh kernel.
//
// The monitor does not start scheduling until Start is called.
func New(logger *zerolog.Logger, cfg Config, opts ...Option) (*Monitor, error) {
	m := &Monitor{
		cfg:    cfg,
		logger: eventlog.ForComponent(logger, "monitor"),
		kern:   kernel.New(logger),
		engine: health.NewEngine(logger, health.EngineOpts{
			DefaultTimeout: cfg.DefaultTimeout,
			DefaultRetries: cfg.DefaultRetries,
		}),
		aggregator:  score.NewAggregator(),
		registerer:  prometheus.NewRegistry(),
		history:     newRing(cfg.HistorySize),
		defs:        make(map[string]health.Def),
		lastRecords: make(map[string]health.Record),
		timers:      make(map[string]chan struct{}),
	}
	m.aggregator.SetThresholds(score.Thresholds{
		Healthy:  cfg.HealthyThreshold,
		Degraded: cfg.DegradedThreshold,
	})
	for _, opt := range opts {
		opt(m)
	}

	for _, plugin := range []kernel.Plugin{
		m.probesPlugin(),
		m.aggregatorPlugin(),
		m.historyPlugin(),
		m.metricsPlugin(),
	} {
		if err := m.kern.Use(plugin); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Kernel returns the underlying kernel for registering collaborating plugins and subscribing to
// monitor events.
func (m *Monitor) Kernel() *kernel.Kernel {
	return m.kern
}

// Start initializes the kernel - this is when scheduling begins, including the cold-start warm-up
// execution of every registered probe.
func (m *Monitor) Start(ctx context.Context) error {
	return m.kern.Init(ctx)
}

// Stop destroys the kernel. All probe timers are cancelled before Stop returns.
func (m *Monitor) Stop(ctx context.Context) {
	m.kern.Destroy(ctx)
}

// Register registers the probe, replacing wholesale any probe with the same name.
//
// If scheduling is live, the probe's timer is created immediately - it does not wait for the next
// global tick. Replacing swaps the timer atomically: at no point does the probe have zero or two
// live timers.
func (m *Monitor) Register(def health.Def) error {
	if err := def.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.defs[def.Name]; !exists {
		m.order = append(m.order, def.Name)
	}
	m.defs[def.Name] = def
	if m.scheduling {
		if old, ok := m.timers[def.Name]; ok {
			close(old)
		}
		stop := make(chan struct{})
		m.timers[def.Name] = stop
		go m.schedule(def.Name, m.probeInterval(def), stop)
	}
	m.mu.Unlock()

	m.logger.Info().
		Str("probe", def.Name).
		Str("interval", interval.Format(m.probeInterval(def).Milliseconds())).
		Msg("probe registered")
	m.kern.Emit(EventProbeRegistered, def.Name)
	return nil
}

// Unregister removes the probe and cancels its scheduled timer.
// It returns false if no probe is registered under the name.
func (m *Monitor) Unregister(name string) bool {
	m.mu.Lock()
	if _, exists := m.defs[name]; !exists {
		m.mu.Unlock()
		return false
	}
	delete(m.defs, name)
	delete(m.lastRecords, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if stop, ok := m.timers[name]; ok {
		close(stop)
		delete(m.timers, name)
	}
	m.mu.Unlock()

	m.kern.Emit(EventProbeUnregistered, name)
	return true
}

// List returns the registered probe names in registration order.
func (m *Monitor) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// Status runs all registered probes and aggregates their outcomes - status is always live, never
// cached beyond the returned snapshot.
func (m *Monitor) Status(ctx context.Context) score.Snapshot {
	m.mu.Lock()
	defs := make([]health.Def, 0, len(m.order))
	for _, name := range m.order {
		defs = append(defs, m.defs[name])
	}
	limit := m.cfg.MaxParallel
	m.mu.Unlock()

	var records map[string]health.Record
	if limit > 0 {
		records = m.engine.RunWithLimit(ctx, defs, limit)
	} else {
		records = m.engine.RunAll(ctx, defs)
	}

	m.mu.Lock()
	for name, record := range records {
		// drop records for probes unregistered mid-flight
		if _, exists := m.defs[name]; exists {
			m.lastRecords[name] = record
		}
	}
	m.mu.Unlock()

	for _, name := range m.List() {
		if record, ok := records[name]; ok {
			m.kern.Emit(EventCheckCompleted, record)
		}
	}
	return m.refresh()
}

// Snapshot returns the most recently aggregated snapshot without re-running probes.
func (m *Monitor) Snapshot() score.Snapshot {
	m.mu.Lock()
	snapshot, ok := m.current, m.hasCurrent
	m.mu.Unlock()
	if !ok {
		return m.refresh()
	}
	return snapshot
}

// SetThresholds replaces the aggregator's status thresholds at runtime.
func (m *Monitor) SetThresholds(t score.Thresholds) {
	m.aggregator.SetThresholds(t)
}

// Thresholds returns the aggregator's current status thresholds.
func (m *Monitor) Thresholds() score.Thresholds {
	return m.aggregator.Thresholds()
}

// History returns the retained execution records for the probe, oldest first.
// A blank name returns the full history.
func (m *Monitor) History(name string) []health.Record {
	return m.history.list(name)
}

// refresh recomputes the aggregate snapshot from the most recent records and publishes a
// status-changed event on transitions.
func (m *Monitor) refresh() score.Snapshot {
	m.mu.Lock()
	entries := m.entriesLocked()
	uptime := m.uptimeLocked()
	m.mu.Unlock()

	snapshot := m.aggregator.Aggregate(entries, uptime)

	m.mu.Lock()
	previous, had := m.current, m.hasCurrent
	m.current = snapshot
	m.hasCurrent = true
	m.mu.Unlock()

	if had && previous.Status != snapshot.Status {
		m.kern.Emit(EventStatusChanged, StatusChanged{
			Previous: previous.Status,
			Current:  snapshot.Status,
			Score:    snapshot.Score,
		})
	}
	return snapshot
}

// entriesLocked resolves each probe's most recent record into an aggregation entry, applying
// per-outcome weight/critical overrides over the probe's static configuration.
func (m *Monitor) entriesLocked() map[string]score.Entry {
	entries := make(map[string]score.Entry, len(m.lastRecords))
	for name, record := range m.lastRecords {
		def, exists := m.defs[name]
		if !exists {
			continue
		}

		weight := def.Weight
		if record.Outcome.Weight != nil {
			weight = record.Outcome.Weight
		}
		critical := def.Critical
		if record.Outcome.Critical != nil {
			critical = *record.Outcome.Critical
		}
		latency := record.Outcome.Latency
		if latency == 0 {
			latency = record.Duration
		}

		entries[name] = score.Entry{
			Status:    record.Outcome.Status,
			Weight:    weight,
			Critical:  critical,
			Latency:   latency,
			CheckedAt: record.CheckedAt,
			Err:       record.Outcome.Err,
			Metadata:  record.Outcome.Metadata,
		}
	}
	return entries
}

func (m *Monitor) uptimeLocked() time.Duration {
	if m.started.IsZero() {
		return 0
	}
	return time.Since(m.started)
}

func (m *Monitor) probeInterval(def health.Def) time.Duration {
	if def.Interval > 0 {
		return def.Interval
	}
	return m.cfg.DefaultInterval
}
