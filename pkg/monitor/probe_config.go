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
	"time"

	"github.com/oysterpack/vigil/pkg/health"
	"github.com/oysterpack/vigil/pkg/interval"
	"github.com/pkg/errors"
)

// ProbeConfig describes a probe using human friendly duration expressions, as found in
// configuration sources: "30s", "5m", or bare numeric milliseconds.
//
// A nil Timeout or Interval means the monitor default applies.
type ProbeConfig struct {
	Name    string
	Checker health.Checker

	Timeout  interface{}
	Retries  *int
	Critical bool
	Weight   *int
	Interval interface{}
}

// RegisterConfig normalizes the probe configuration and registers it.
//
// Malformed duration expressions fail with interval.ErrInvalidInterval - they are never silently
// defaulted.
func (m *Monitor) RegisterConfig(cfg ProbeConfig) error {
	timeout, err := normalizeDuration(cfg.Timeout)
	if err != nil {
		return errors.Wrapf(err, "probe %s: invalid timeout", cfg.Name)
	}
	runInterval, err := normalizeDuration(cfg.Interval)
	if err != nil {
		return errors.Wrapf(err, "probe %s: invalid interval", cfg.Name)
	}

	return m.Register(health.Def{
		Name:     cfg.Name,
		Checker:  cfg.Checker,
		Timeout:  timeout,
		Retries:  cfg.Retries,
		Critical: cfg.Critical,
		Weight:   cfg.Weight,
		Interval: runInterval,
	})
}

func normalizeDuration(expr interface{}) (time.Duration, error) {
	if expr == nil {
		return 0, nil
	}
	parsed, err := interval.Parse(expr)
	if err != nil {
		return 0, err
	}
	return time.Duration(parsed.Milliseconds) * time.Millisecond, nil
}
