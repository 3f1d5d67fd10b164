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
	"github.com/oysterpack/vigil/pkg/health"
	"github.com/oysterpack/vigil/pkg/kernel"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsPlugin publishes per-probe collectors on the configured prometheus registerer.
//
// The gauges mirror the most recent execution per probe - how the values are rendered and served
// is the concern of whatever owns the registry.
func (m *Monitor) metricsPlugin() kernel.Plugin {
	var collectors *probeCollectors

	return kernel.Plugin{
		Name:     PluginMetrics,
		Version:  pluginVersion,
		Requires: []string{PluginProbes},
		Install: func(k *kernel.Kernel) error {
			var err error
			collectors, err = newProbeCollectors(m.registerer)
			if err != nil {
				return err
			}
			k.On(EventCheckCompleted, func(event string, payload interface{}) {
				if record, ok := payload.(health.Record); ok {
					collectors.observe(record)
				}
			})
			k.On(EventProbeUnregistered, func(event string, payload interface{}) {
				if name, ok := payload.(string); ok {
					collectors.forget(name)
				}
			})
			return nil
		},
	}
}

type probeCollectors struct {
	status   *prometheus.GaugeVec
	duration *prometheus.GaugeVec
	runs     *prometheus.CounterVec
}

func newProbeCollectors(registerer prometheus.Registerer) (*probeCollectors, error) {
	c := &probeCollectors{
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vigil_probe_status",
			Help: "most recent probe status: 0=healthy, 1=degraded, 2=unhealthy",
		}, []string{"probe"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vigil_probe_duration_seconds",
			Help: "most recent probe execution duration, including retries",
		}, []string{"probe"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_probe_runs_total",
			Help: "probe executions by terminal status",
		}, []string{"probe", "status"}),
	}

	for _, collector := range []prometheus.Collector{c.status, c.duration, c.runs} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *probeCollectors) observe(record health.Record) {
	c.status.WithLabelValues(record.Name).Set(float64(record.Outcome.Status))
	c.duration.WithLabelValues(record.Name).Set(record.Duration.Seconds())
	c.runs.WithLabelValues(record.Name, record.Outcome.Status.String()).Inc()
}

func (c *probeCollectors) forget(name string) {
	c.status.DeleteLabelValues(name)
	c.duration.DeleteLabelValues(name)
	c.runs.DeletePartialMatch(prometheus.Labels{"probe": name})
}
