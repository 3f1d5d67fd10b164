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

package health_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oysterpack/vigil/pkg/eventlog"
	"github.com/oysterpack/vigil/pkg/health"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() *health.Engine {
	logger := eventlog.NewZeroLogger(io.Discard)
	return health.NewEngine(&logger, health.DefaultEngineOpts())
}

func intPtr(i int) *int { return &i }

func TestRun_Healthy(t *testing.T) {
	t.Parallel()

	engine := newEngine()
	record, err := engine.Run(context.Background(), health.Def{
		Name: "users-db",
		Checker: func(ctx context.Context) (*health.Outcome, error) {
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "users-db", record.Name)
	assert.Equal(t, health.Healthy, record.Outcome.Status)
	assert.Equal(t, 1, record.Attempts)
	assert.Nil(t, record.Err)
}

func TestRun_ExplicitOutcomePassesThrough(t *testing.T) {
	t.Parallel()

	engine := newEngine()
	record, err := engine.Run(context.Background(), health.Def{
		Name: "cache",
		Checker: func(ctx context.Context) (*health.Outcome, error) {
			return &health.Outcome{
				Status:   health.Degraded,
				Latency:  42 * time.Millisecond,
				Metadata: map[string]interface{}{"hit_rate": 0.4},
			}, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, health.Degraded, record.Outcome.Status)
	assert.Equal(t, 42*time.Millisecond, record.Outcome.Latency)
	assert.Equal(t, 0.4, record.Outcome.Metadata["hit_rate"])
	// degraded outcomes are not retried
	assert.Equal(t, 1, record.Attempts)
}

func TestRun_BoolChecker(t *testing.T) {
	t.Parallel()

	engine := newEngine()
	record, err := engine.Run(context.Background(), health.Def{
		Name:    "feature-flag",
		Retries: intPtr(0),
		Checker: health.BoolChecker(func(ctx context.Context) (bool, error) {
			return false, nil
		}),
	})
	require.Error(t, err)
	assert.Equal(t, health.Unhealthy, record.Outcome.Status)

	record, err = engine.Run(context.Background(), health.Def{
		Name: "feature-flag",
		Checker: health.BoolChecker(func(ctx context.Context) (bool, error) {
			return true, nil
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, health.Healthy, record.Outcome.Status)
}

func TestRun_RetriesExhausted(t *testing.T) {
	t.Parallel()

	var attempts int32
	engine := newEngine()
	record, err := engine.Run(context.Background(), health.Def{
		Name:    "flaky",
		Retries: intPtr(2),
		Checker: func(ctx context.Context) (*health.Outcome, error) {
			atomic.AddInt32(&attempts, 1)
			return nil, errors.New("connection refused")
		},
	})

	require.Error(t, err)
	var failedErr *health.FailedError
	require.True(t, errors.As(err, &failedErr))
	assert.Equal(t, "flaky", failedErr.Name)
	// retries+1 total attempts
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, 3, record.Attempts)
	assert.Equal(t, health.Unhealthy, record.Outcome.Status)
	assert.Contains(t, record.Outcome.Err, "connection refused")
}

func TestRun_RecoversAfterFailure(t *testing.T) {
	t.Parallel()

	var attempts int32
	engine := newEngine()
	record, err := engine.Run(context.Background(), health.Def{
		Name:    "eventually-ok",
		Retries: intPtr(3),
		Checker: func(ctx context.Context) (*health.Outcome, error) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return nil, errors.New("not yet")
			}
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, health.Healthy, record.Outcome.Status)
	assert.Equal(t, 3, record.Attempts)
}

func TestRun_TimeoutNotRetried(t *testing.T) {
	t.Parallel()

	var attempts int32
	engine := newEngine()
	record, err := engine.Run(context.Background(), health.Def{
		Name:    "slow",
		Timeout: 50 * time.Millisecond,
		Retries: intPtr(5),
		Checker: func(ctx context.Context) (*health.Outcome, error) {
			atomic.AddInt32(&attempts, 1)
			select {
			case <-time.After(5 * time.Second):
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})

	require.Error(t, err)
	var timeoutErr *health.TimeoutError
	require.True(t, errors.As(err, &timeoutErr), "expected *TimeoutError : %v", err)
	assert.Equal(t, "slow", timeoutErr.Name)
	// a timed out probe is never retried
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	assert.Equal(t, 1, record.Attempts)
	assert.Equal(t, health.Unhealthy, record.Outcome.Status)
}

func TestRun_PanicCoercedToError(t *testing.T) {
	t.Parallel()

	engine := newEngine()
	record, err := engine.Run(context.Background(), health.Def{
		Name:    "panics",
		Retries: intPtr(0),
		Checker: func(ctx context.Context) (*health.Outcome, error) {
			panic("boom")
		},
	})
	require.Error(t, err)
	assert.Equal(t, health.Unhealthy, record.Outcome.Status)
	assert.Contains(t, record.Outcome.Err, "boom")
}

func TestRunAll_SettlesEveryProbe(t *testing.T) {
	t.Parallel()

	engine := newEngine()
	defs := []health.Def{
		{Name: "ok", Checker: func(ctx context.Context) (*health.Outcome, error) { return nil, nil }},
		{Name: "bad", Retries: intPtr(0), Checker: func(ctx context.Context) (*health.Outcome, error) {
			return nil, errors.New("down")
		}},
		{Name: "ok2", Checker: func(ctx context.Context) (*health.Outcome, error) { return nil, nil }},
	}

	results := engine.RunAll(context.Background(), defs)
	require.Len(t, results, 3)
	assert.Equal(t, health.Healthy, results["ok"].Outcome.Status)
	assert.Equal(t, health.Unhealthy, results["bad"].Outcome.Status)
	assert.Equal(t, health.Healthy, results["ok2"].Outcome.Status)
}

func TestRunSequential_StopOnFailure(t *testing.T) {
	t.Parallel()

	var thirdRan int32
	engine := newEngine()
	defs := []health.Def{
		{Name: "first", Checker: func(ctx context.Context) (*health.Outcome, error) { return nil, nil }},
		{Name: "second", Retries: intPtr(0), Checker: func(ctx context.Context) (*health.Outcome, error) {
			return nil, errors.New("down")
		}},
		{Name: "third", Checker: func(ctx context.Context) (*health.Outcome, error) {
			atomic.AddInt32(&thirdRan, 1)
			return nil, nil
		}},
	}

	results := engine.RunSequential(context.Background(), defs, true)
	require.Len(t, results, 2)
	assert.Equal(t, int32(0), atomic.LoadInt32(&thirdRan), "probe after the failure should be skipped")
	assert.Contains(t, results, "first")
	assert.Contains(t, results, "second")

	// without stopOnFailure all probes run
	results = engine.RunSequential(context.Background(), defs, false)
	require.Len(t, results, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&thirdRan))
}

func TestRunWithLimit(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var running, maxRunning int

	checker := func(ctx context.Context) (*health.Outcome, error) {
		mu.Lock()
		running++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil, nil
	}

	defs := make([]health.Def, 0, 8)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		defs = append(defs, health.Def{Name: name, Checker: checker})
	}

	engine := newEngine()
	results := engine.RunWithLimit(context.Background(), defs, 2)
	require.Len(t, results, 8)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, maxRunning, 2, "no more than 2 probes may run simultaneously")
}

func TestDefValidate(t *testing.T) {
	t.Parallel()

	err := health.Def{}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, health.ErrBlankName))
	assert.True(t, errors.Is(err, health.ErrNilChecker))

	weight := 150
	retries := -1
	err = health.Def{
		Name:    "bad",
		Checker: nil,
		Timeout: -time.Second,
		Retries: &retries,
		Weight:  &weight,
	}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, health.ErrNegativeTimeout))
	assert.True(t, errors.Is(err, health.ErrNegativeRetries))
	assert.True(t, errors.Is(err, health.ErrWeightOutOfRange))

	err = health.Def{
		Name:    "good",
		Checker: health.ErrorChecker(func(ctx context.Context) error { return nil }),
	}.Validate()
	require.NoError(t, err)
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "healthy", health.Healthy.String())
	assert.Equal(t, "degraded", health.Degraded.String())
	assert.Equal(t, "unhealthy", health.Unhealthy.String())

	logger := zerolog.Nop()
	logger.Info().Stringer("status", health.Healthy).Msg("")
}
