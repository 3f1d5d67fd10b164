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

package score_test

import (
	"testing"
	"time"

	"github.com/oysterpack/vigil/pkg/health"
	"github.com/oysterpack/vigil/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestAggregate_NoProbesConfigured(t *testing.T) {
	t.Parallel()

	snapshot := score.NewAggregator().Aggregate(nil, time.Minute)
	assert.Equal(t, 100, snapshot.Score)
	assert.Equal(t, health.Healthy, snapshot.Status)
	assert.Empty(t, snapshot.Checks)
	assert.Equal(t, time.Minute, snapshot.Uptime)
	assert.False(t, snapshot.Timestamp.IsZero())
}

func TestAggregate_SingleHealthyProbe(t *testing.T) {
	t.Parallel()

	snapshot := score.NewAggregator().Aggregate(map[string]score.Entry{
		"users-db": {Status: health.Healthy},
	}, 0)
	assert.Equal(t, 100, snapshot.Score)
	assert.Equal(t, health.Healthy, snapshot.Status)
	require.Contains(t, snapshot.Checks, "users-db")
	assert.Equal(t, health.Healthy, snapshot.Checks["users-db"].Status)
}

func TestAggregate_MixedStatuses(t *testing.T) {
	t.Parallel()

	// default auto-distributed weights: 100/3 = 33 each
	snapshot := score.NewAggregator().Aggregate(map[string]score.Entry{
		"a": {Status: health.Healthy},
		"b": {Status: health.Degraded},
		"c": {Status: health.Unhealthy},
	}, 0)
	// (100 + 50 + 0) / 3 = 50
	assert.Equal(t, 50, snapshot.Score)
	assert.Equal(t, health.Degraded, snapshot.Status)
}

func TestAggregate_CriticalFailureOverride(t *testing.T) {
	t.Parallel()

	// one critical-unhealthy probe weighted 10 among an otherwise-healthy probe weighted 90
	snapshot := score.NewAggregator().Aggregate(map[string]score.Entry{
		"big-healthy":    {Status: health.Healthy, Weight: intPtr(90)},
		"small-critical": {Status: health.Unhealthy, Weight: intPtr(10), Critical: true},
	}, 0)
	assert.Equal(t, 90, snapshot.Score, "score is computed normally")
	assert.Equal(t, health.Unhealthy, snapshot.Status, "critical failure overrides the thresholds")
}

func TestAggregate_NonCriticalFailureUsesThresholds(t *testing.T) {
	t.Parallel()

	snapshot := score.NewAggregator().Aggregate(map[string]score.Entry{
		"big-healthy": {Status: health.Healthy, Weight: intPtr(90)},
		"small-down":  {Status: health.Unhealthy, Weight: intPtr(10)},
	}, 0)
	assert.Equal(t, 90, snapshot.Score)
	assert.Equal(t, health.Healthy, snapshot.Status)
}

func TestAggregate_WeightsNotRenormalized(t *testing.T) {
	t.Parallel()

	// weights sum to 200 - taken as-is
	snapshot := score.NewAggregator().Aggregate(map[string]score.Entry{
		"a": {Status: health.Healthy, Weight: intPtr(100)},
		"b": {Status: health.Unhealthy, Weight: intPtr(100)},
	}, 0)
	assert.Equal(t, 50, snapshot.Score)
}

func TestThresholds_Inclusive(t *testing.T) {
	t.Parallel()

	aggregator := score.NewAggregator()
	assert.Equal(t, health.Healthy, aggregator.PredictStatus(80), "score equal to the healthy threshold is healthy")
	assert.Equal(t, health.Degraded, aggregator.PredictStatus(79))
	assert.Equal(t, health.Degraded, aggregator.PredictStatus(50), "score equal to the degraded threshold is degraded")
	assert.Equal(t, health.Unhealthy, aggregator.PredictStatus(49))
	assert.Equal(t, health.Unhealthy, aggregator.PredictStatus(0))
}

func TestSetThresholds(t *testing.T) {
	t.Parallel()

	aggregator := score.NewAggregator()
	assert.Equal(t, score.Thresholds{Healthy: 80, Degraded: 50}, aggregator.Thresholds())

	aggregator.SetThresholds(score.Thresholds{Healthy: 95, Degraded: 70})
	assert.Equal(t, health.Degraded, aggregator.PredictStatus(90))
	assert.Equal(t, health.Unhealthy, aggregator.PredictStatus(69))
}

func TestThresholds_DegradedAboveHealthy(t *testing.T) {
	t.Parallel()

	// no cross-validation between the two thresholds - the healthy check runs first, so scores in
	// [50,90) fall through to the degraded check
	aggregator := score.NewAggregator()
	aggregator.SetThresholds(score.Thresholds{Healthy: 50, Degraded: 90})
	assert.Equal(t, health.Healthy, aggregator.PredictStatus(60))
	assert.Equal(t, health.Unhealthy, aggregator.PredictStatus(49))
}

func TestAggregate_ViewFields(t *testing.T) {
	t.Parallel()

	checkedAt := time.Now().Add(-time.Second)
	snapshot := score.NewAggregator().Aggregate(map[string]score.Entry{
		"api": {
			Status:    health.Unhealthy,
			Latency:   120 * time.Millisecond,
			CheckedAt: checkedAt,
			Err:       "503 from upstream",
			Metadata:  map[string]interface{}{"region": "us-east-1"},
		},
	}, 42*time.Second)

	require.Contains(t, snapshot.Checks, "api")
	check := snapshot.Checks["api"]
	assert.Equal(t, health.Unhealthy, check.Status)
	assert.Equal(t, 120*time.Millisecond, check.Latency)
	assert.Equal(t, checkedAt, check.CheckedAt)
	assert.Equal(t, "503 from upstream", check.Err)
	assert.Equal(t, "us-east-1", check.Metadata["region"])
	assert.Equal(t, 42*time.Second, snapshot.Uptime)
}

func TestAggregate_ZeroTotalWeight(t *testing.T) {
	t.Parallel()

	snapshot := score.NewAggregator().Aggregate(map[string]score.Entry{
		"a": {Status: health.Unhealthy, Weight: intPtr(0)},
	}, 0)
	assert.Equal(t, 100, snapshot.Score, "zero total weight falls back to 100")
}
