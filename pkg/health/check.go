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

package health

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Checker performs the health check for one dependency.
//
// A Checker may report its verdict in two ways:
//  - implicitly: return (nil, nil) for healthy, or (nil, err) for unhealthy
//  - explicitly: return an Outcome describing the verdict in detail
//
// The ctx carries the per-attempt timeout - checkers performing I/O should honor it.
//
// NOTE: health checks must be designed to run as fast and as efficient as possible.
type Checker func(ctx context.Context) (*Outcome, error)

// BoolChecker adapts a boolean check function: true normalizes to healthy, false to unhealthy.
func BoolChecker(fn func(ctx context.Context) (bool, error)) Checker {
	return func(ctx context.Context) (*Outcome, error) {
		ok, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &Outcome{Status: Unhealthy}, nil
		}
		return &Outcome{Status: Healthy}, nil
	}
}

// ErrorChecker adapts an error-only check function: a nil error normalizes to healthy.
func ErrorChecker(fn func(ctx context.Context) error) Checker {
	return func(ctx context.Context) (*Outcome, error) {
		return nil, fn(ctx)
	}
}

// Outcome is the result of one health check attempt.
//
// An Outcome is immutable once produced. Weight and Critical are optional per-call overrides of the
// probe's static configuration.
type Outcome struct {
	Status Status `json:"status"`
	// Latency is how long the dependency took to respond. If the checker does not measure it, then
	// the attempt duration is recorded.
	Latency time.Duration `json:"latency,omitempty"`
	// Err is the failure message - blank when the check passed
	Err string `json:"error,omitempty"`
	// Metadata is free-form diagnostic data
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Weight overrides the probe's configured weight for this outcome
	Weight *int `json:"weight,omitempty"`
	// Critical overrides the probe's configured criticality for this outcome
	Critical *bool `json:"critical,omitempty"`
}

// Def defines a probe - a named unit of work that reports the health of one dependency.
type Def struct {
	// Name uniquely identifies the probe
	Name string
	// Checker is required
	Checker Checker

	// Timeout limits how long a single attempt may run - zero means use the engine default
	Timeout time.Duration
	// Retries is the number of additional attempts after an ordinary failure - nil means use the
	// engine default. Timeouts are never retried.
	Retries *int
	// Critical probes force the overall status to unhealthy when they fail
	Critical bool
	// Weight is the probe's share of the overall score, in [0,100] - nil means the weight is
	// auto-distributed evenly across all probes at aggregation time
	Weight *int
	// Interval overrides the scheduler's global run interval - zero means use the global default
	Interval time.Duration
}

// Def validation errors
var (
	ErrBlankName        = errors.New("`Name` is required and must not be blank")
	ErrNilChecker       = errors.New("`Checker` is required and must not be nil")
	ErrNegativeTimeout  = errors.New("`Timeout` must not be negative")
	ErrNegativeRetries  = errors.New("`Retries` must not be negative")
	ErrNegativeInterval = errors.New("`Interval` must not be negative")
	ErrWeightOutOfRange = errors.New("`Weight` must be within [0,100]")
)

// Validate checks that the Def is well formed. All violations are reported, not just the first.
func (d Def) Validate() error {
	var err error
	if strings.TrimSpace(d.Name) == "" {
		err = ErrBlankName
	}
	if d.Checker == nil {
		err = multierr.Append(err, ErrNilChecker)
	}
	if d.Timeout < 0 {
		err = multierr.Append(err, ErrNegativeTimeout)
	}
	if d.Retries != nil && *d.Retries < 0 {
		err = multierr.Append(err, ErrNegativeRetries)
	}
	if d.Interval < 0 {
		err = multierr.Append(err, ErrNegativeInterval)
	}
	if d.Weight != nil && (*d.Weight < 0 || *d.Weight > 100) {
		err = multierr.Append(err, ErrWeightOutOfRange)
	}
	return err
}

// Record wraps the outcome of one triggered execution - manual or scheduled.
type Record struct {
	// Name is the probe name
	Name string `json:"name"`
	// Outcome is the final attempt's outcome
	Outcome Outcome `json:"outcome"`
	// CheckedAt is when the execution started
	CheckedAt time.Time `json:"checked_at"`
	// Duration is the wall-clock time of the full attempt sequence, including retries and backoff
	Duration time.Duration `json:"duration"`
	// Attempts is the number of attempts actually made
	Attempts int `json:"attempts"`
	// Err is the terminal error - *TimeoutError or *FailedError - nil when the probe settled
	// healthy or degraded
	Err error `json:"-"`
}
