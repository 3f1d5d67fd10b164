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
	"sync"

	"github.com/oysterpack/vigil/pkg/health"
	"github.com/oysterpack/vigil/pkg/kernel"
)

// historyPlugin retains a bounded ring of execution records across all probes.
// History is in-memory only - it does not survive restarts.
func (m *Monitor) historyPlugin() kernel.Plugin {
	return kernel.Plugin{
		Name:     PluginHistory,
		Version:  pluginVersion,
		Requires: []string{PluginProbes},
		Install: func(k *kernel.Kernel) error {
			k.On(EventCheckCompleted, func(event string, payload interface{}) {
				if record, ok := payload.(health.Record); ok {
					m.history.add(record)
				}
			})
			return nil
		},
	}
}

// ring is a fixed-capacity record buffer - when full, the oldest record is evicted.
type ring struct {
	mu      sync.Mutex
	size    int
	records []health.Record
}

func newRing(size int) *ring {
	if size <= 0 {
		size = 1
	}
	return &ring{size: size}
}

func (r *ring) add(record health.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	if len(r.records) > r.size {
		r.records = r.records[len(r.records)-r.size:]
	}
}

// list returns retained records oldest first. A blank name matches all probes.
func (r *ring) list(name string) []health.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := make([]health.Record, 0, len(r.records))
	for _, record := range r.records {
		if name == "" || record.Name == name {
			records = append(records, record)
		}
	}
	return records
}
