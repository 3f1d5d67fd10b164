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
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oysterpack/vigil/pkg/eventlog"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// engine defaults
const (
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 2

	// retry delays grow linearly: 100ms, 200ms, 300ms, ...
	retryDelayStep = 100 * time.Millisecond
)

// EngineOpts is used to configure an Engine. Zero values imply using the system default values.
type EngineOpts struct {
	// DefaultTimeout applies to probes that do not specify their own timeout
	DefaultTimeout time.Duration
	// DefaultRetries applies to probes that do not specify their own retry count
	DefaultRetries int
}

// DefaultEngineOpts constructs a new EngineOpts using recommended default values.
func DefaultEngineOpts() EngineOpts {
	return EngineOpts{
		DefaultTimeout: DefaultTimeout,
		DefaultRetries: DefaultRetries,
	}
}

// Engine executes probes, enforcing per-attempt timeouts and retry with linear backoff.
//
// Failure policy:
//  - a timed out attempt fails the execution immediately with *TimeoutError - timeouts are not retried
//  - an ordinary failure (checker error, panic, or unhealthy outcome) is retried up to the probe's
//    retry count, waiting 100ms * attemptNumber between attempts
//  - after exhausting retries the execution fails with *FailedError carrying the last error
//
// Probe failures never escape the batch runners - every probe settles independently.
type Engine struct {
	EngineOpts

	logger *zerolog.Logger
}

// NewEngine constructs a new Engine.
func NewEngine(logger *zerolog.Logger, opts EngineOpts) *Engine {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}
	if opts.DefaultRetries < 0 {
		opts.DefaultRetries = DefaultRetries
	}
	return &Engine{
		EngineOpts: opts,
		logger:     eventlog.ForComponent(logger, "engine"),
	}
}

func (e *Engine) timeout(def Def) time.Duration {
	if def.Timeout > 0 {
		return def.Timeout
	}
	return e.DefaultTimeout
}

func (e *Engine) retries(def Def) int {
	if def.Retries != nil {
		return *def.Retries
	}
	return e.DefaultRetries
}

// Run executes the probe until it settles.
//
// The returned Record is always populated. The returned error, if any, is the Record's terminal
// error - *TimeoutError or *FailedError.
func (e *Engine) Run(ctx context.Context, def Def) (Record, error) {
	start := time.Now()
	attempts := 0
	var last Outcome

	operation := func() error {
		attempts++
		outcome, timedOut := e.attempt(ctx, def)
		last = outcome
		if timedOut {
			return backoff.Permanent(&TimeoutError{Name: def.Name, Timeout: e.timeout(def)})
		}
		if outcome.Status == Unhealthy {
			if outcome.Err != "" {
				return errors.New(outcome.Err)
			}
			return errors.New("health check reported unhealthy")
		}
		return nil
	}

	notify := func(err error, delay time.Duration) {
		e.logger.Debug().
			Str("probe", def.Name).
			Int("attempt", attempts).
			Dur("delay", delay).
			Err(err).
			Msg("health check failed - retrying")
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newLinearBackOff(retryDelayStep), uint64(e.retries(def))),
		ctx,
	)
	err := backoff.RetryNotify(operation, policy, notify)

	record := Record{
		Name:      def.Name,
		Outcome:   last,
		CheckedAt: start,
		Duration:  time.Since(start),
		Attempts:  attempts,
	}
	if err == nil {
		return record, nil
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		record.Err = timeoutErr
	} else {
		record.Err = &FailedError{Name: def.Name, Attempts: attempts, Cause: err}
	}
	record.Outcome.Status = Unhealthy
	if record.Outcome.Err == "" {
		record.Outcome.Err = err.Error()
	}
	return record, record.Err
}

// attempt runs the checker once, racing it against the attempt timeout.
//
// A firing timeout only abandons the logical wait - the checker goroutine is signalled through ctx
// but cannot be forcibly stopped, and a result that arrives later is discarded.
func (e *Engine) attempt(ctx context.Context, def Def) (outcome Outcome, timedOut bool) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout(def))
	defer cancel()

	type reply struct {
		outcome *Outcome
		err     error
	}
	ch := make(chan reply, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					// non-error panic values are coerced to a generic error message
					err = errors.Errorf("health check panic: %v", r)
				}
				ch <- reply{err: err}
			}
		}()
		o, err := def.Checker(ctx)
		ch <- reply{outcome: o, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			timeout := e.timeout(def)
			return Outcome{
				Status:  Unhealthy,
				Latency: timeout,
				Err:     (&TimeoutError{Name: def.Name, Timeout: timeout}).Error(),
			}, true
		}
		return Outcome{Status: Unhealthy, Err: ctx.Err().Error()}, false
	case r := <-ch:
		o := normalize(r.outcome, r.err)
		if o.Latency == 0 {
			o.Latency = time.Since(start)
		}
		return o, false
	}
}

// normalize resolves the checker's implicit/explicit result shapes into one Outcome.
// All shape handling lives here - nothing deeper in the pipeline branches on result shape.
func normalize(o *Outcome, err error) Outcome {
	if err != nil {
		return Outcome{Status: Unhealthy, Err: err.Error()}
	}
	if o == nil {
		return Outcome{Status: Healthy}
	}
	return *o
}

// RunAll executes all probes concurrently and returns when every probe has settled.
// A probe failure never aborts its siblings.
func (e *Engine) RunAll(ctx context.Context, defs []Def) map[string]Record {
	return e.runConcurrent(ctx, defs, 0)
}

// RunWithLimit is like RunAll, but never more than limit probes execute simultaneously.
// As soon as one completes, the next queued probe starts. A limit <= 0 means no limit.
func (e *Engine) RunWithLimit(ctx context.Context, defs []Def, limit int) map[string]Record {
	return e.runConcurrent(ctx, defs, limit)
}

func (e *Engine) runConcurrent(ctx context.Context, defs []Def, limit int) map[string]Record {
	records := make([]Record, len(defs))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, def := range defs {
		i, def := i, def
		g.Go(func() error {
			// per-probe failures settle into the record
			record, _ := e.Run(ctx, def)
			records[i] = record
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]Record, len(defs))
	for _, record := range records {
		results[record.Name] = record
	}
	return results
}

// RunSequential executes probes strictly in the given order, each fully completing - including
// retries - before the next starts. When stopOnFailure is set and a probe settles unhealthy, the
// remaining probes are skipped - results so far are still returned.
func (e *Engine) RunSequential(ctx context.Context, defs []Def, stopOnFailure bool) map[string]Record {
	results := make(map[string]Record, len(defs))
	for _, def := range defs {
		record, _ := e.Run(ctx, def)
		results[def.Name] = record
		if stopOnFailure && record.Outcome.Status == Unhealthy {
			break
		}
	}
	return results
}

type linearBackOff struct {
	step time.Duration
	next time.Duration
}

func newLinearBackOff(step time.Duration) *linearBackOff {
	return &linearBackOff{step: step, next: step}
}

func (b *linearBackOff) Reset() {
	b.next = b.step
}

func (b *linearBackOff) NextBackOff() time.Duration {
	d := b.next
	b.next += b.step
	return d
}
