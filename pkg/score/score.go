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

// Package score reduces many probe outcomes into one overall status with a 0-100 confidence score.
//
// Each probe contributes its status points (healthy=100, degraded=50, unhealthy=0) scaled by its
// weight. A critical probe that is unhealthy forces the overall status to unhealthy, bypassing the
// score thresholds entirely. Weights are taken as-is - the aggregator intentionally does not
// renormalize weights that do not sum to 100.
package score

import (
	"math"
	"sync"
	"time"

	"github.com/oysterpack/vigil/pkg/health"
)

// threshold defaults
const (
	DefaultHealthyThreshold  = 80
	DefaultDegradedThreshold = 50
)

// status point values
const (
	healthyPoints  = 100
	degradedPoints = 50
)

// Thresholds map scores to statuses: score >= Healthy is healthy, score >= Degraded is degraded,
// anything lower is unhealthy. Both must be in [0,100]. No relationship between the two values is
// enforced - Degraded > Healthy is unusual but well defined, because the healthy threshold is
// checked first.
type Thresholds struct {
	Healthy  int `json:"healthy"`
	Degraded int `json:"degraded"`
}

// DefaultThresholds constructs Thresholds using the recommended default values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Healthy:  DefaultHealthyThreshold,
		Degraded: DefaultDegradedThreshold,
	}
}

// Entry is one probe's contribution to the aggregate.
type Entry struct {
	Status health.Status
	// Weight in [0,100] - nil means the weight is auto-distributed, i.e., floor(100 / entry count)
	Weight *int
	// Critical entries force the overall status to unhealthy when they are unhealthy
	Critical bool

	// snapshot view fields
	Latency   time.Duration
	CheckedAt time.Time
	Err       string
	Metadata  map[string]interface{}
}

// Check is the public view of one probe's last outcome within a Snapshot.
type Check struct {
	Status    health.Status          `json:"status"`
	Latency   time.Duration          `json:"latency,omitempty"`
	CheckedAt time.Time              `json:"last_check"`
	Err       string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Snapshot is the aggregate health view. It is derived from the current outcomes and thresholds on
// every aggregation - it is never independently mutated.
type Snapshot struct {
	Status    health.Status    `json:"status"`
	Score     int              `json:"score"`
	Uptime    time.Duration    `json:"uptime"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
}

// Aggregator computes health Snapshots from probe outcomes.
//
// Thresholds are mutable at runtime and safe for concurrent use.
type Aggregator struct {
	mu         sync.RWMutex
	thresholds Thresholds
}

// NewAggregator constructs a new Aggregator with default thresholds.
func NewAggregator() *Aggregator {
	return &Aggregator{thresholds: DefaultThresholds()}
}

// SetThresholds replaces the status thresholds.
// The two values are not cross-validated - see Thresholds.
func (a *Aggregator) SetThresholds(t Thresholds) {
	a.mu.Lock()
	a.thresholds = t
	a.mu.Unlock()
}

// Thresholds returns the current status thresholds.
func (a *Aggregator) Thresholds() Thresholds {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.thresholds
}

// Aggregate reduces the entries into a Snapshot.
//
// An empty entry set yields score 100 / status healthy - the "no probes configured" convention.
// Weights are accepted as-is: entries whose weights sum over 100 produce scores that legitimately
// diverge from a naive average.
func (a *Aggregator) Aggregate(entries map[string]Entry, uptime time.Duration) Snapshot {
	snapshot := Snapshot{
		Score:     100,
		Status:    health.Healthy,
		Uptime:    uptime,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(entries)),
	}
	if len(entries) == 0 {
		return snapshot
	}

	autoWeight := 100 / len(entries)

	var weightedScore, totalWeight float64
	criticalFailure := false
	for name, entry := range entries {
		weight := autoWeight
		if entry.Weight != nil {
			weight = *entry.Weight
		}

		weightedScore += float64(points(entry.Status)) * float64(weight) / 100
		totalWeight += float64(weight)

		if entry.Critical && entry.Status == health.Unhealthy {
			criticalFailure = true
		}

		snapshot.Checks[name] = Check{
			Status:    entry.Status,
			Latency:   entry.Latency,
			CheckedAt: entry.CheckedAt,
			Err:       entry.Err,
			Metadata:  entry.Metadata,
		}
	}

	if totalWeight > 0 {
		snapshot.Score = int(math.Round(weightedScore / totalWeight * 100))
	}

	if criticalFailure {
		// critical-failure override takes precedence over the score thresholds entirely
		snapshot.Status = health.Unhealthy
	} else {
		snapshot.Status = a.PredictStatus(snapshot.Score)
	}
	return snapshot
}

// PredictStatus computes the status for a hypothetical score, assuming no critical failure.
// Both thresholds are inclusive, and the healthy threshold is checked first.
func (a *Aggregator) PredictStatus(score int) health.Status {
	t := a.Thresholds()
	switch {
	case score >= t.Healthy:
		return health.Healthy
	case score >= t.Degraded:
		return health.Degraded
	default:
		return health.Unhealthy
	}
}

func points(s health.Status) int {
	switch s {
	case health.Healthy:
		return healthyPoints
	case health.Degraded:
		return degradedPoints
	default:
		return 0
	}
}
