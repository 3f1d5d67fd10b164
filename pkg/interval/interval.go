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

// Package interval parses and formats human friendly duration expressions, e.g., "30s", "5m", "1500".
//
// Expressions are single valued - combined units such as "1h30m" are rejected. A bare number is
// interpreted as milliseconds. All functions are pure.
package interval

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidInterval indicates the interval expression is malformed.
//
// It is returned for blank strings, negative or non-finite numbers, and strings that do not match
// any of the supported patterns.
var ErrInvalidInterval = errors.New("invalid interval expression")

// Unit is a duration unit supported by interval expressions.
type Unit string

// Unit enum
const (
	Millisecond Unit = "ms"
	Second      Unit = "s"
	Minute      Unit = "m"
	Hour        Unit = "h"
	Day         Unit = "d"
)

// unit sizes in milliseconds
const (
	msPerSecond int64 = 1000
	msPerMinute       = 60 * msPerSecond
	msPerHour         = 60 * msPerMinute
	msPerDay          = 24 * msPerHour
)

func (u Unit) millis() int64 {
	switch u {
	case Second:
		return msPerSecond
	case Minute:
		return msPerMinute
	case Hour:
		return msPerHour
	case Day:
		return msPerDay
	default:
		return 1
	}
}

// Interval is the structured result of parsing an interval expression.
type Interval struct {
	// Milliseconds is the parsed duration in milliseconds
	Milliseconds int64
	// Unit is the unit the expression was specified in
	Unit Unit
	// Value is the numeric value of the expression, in Unit units
	Value int64
	// Expression is the normalized expression, e.g., "30s"
	Expression string
}

var expressionPattern = regexp.MustCompile(`^(\d+)(ms|s|m|h|d)?$`)

// Parse converts an interval expression into an Interval.
//
// The input may be:
//   - any integer kind: interpreted as milliseconds, must be >= 0
//   - any float kind: interpreted as milliseconds, must be finite and >= 0
//   - a string: a bare non-negative integer (milliseconds) or "<n>ms", "<n>s", "<n>m", "<n>h", "<n>d"
//
// Any other input fails with ErrInvalidInterval. There are no partial matches and no combined
// units - "1h30m" is invalid.
func Parse(input interface{}) (Interval, error) {
	switch v := input.(type) {
	case int:
		return fromMillis(int64(v))
	case int32:
		return fromMillis(int64(v))
	case int64:
		return fromMillis(v)
	case uint:
		return fromMillis(int64(v))
	case uint32:
		return fromMillis(int64(v))
	case uint64:
		return fromMillis(int64(v))
	case float32:
		return fromFloatMillis(float64(v))
	case float64:
		return fromFloatMillis(v)
	case string:
		return parseExpression(v)
	default:
		return Interval{}, errors.Wrapf(ErrInvalidInterval, "unsupported input type: %T", input)
	}
}

func fromMillis(ms int64) (Interval, error) {
	if ms < 0 {
		return Interval{}, errors.Wrapf(ErrInvalidInterval, "negative interval: %d", ms)
	}
	return Interval{
		Milliseconds: ms,
		Unit:         Millisecond,
		Value:        ms,
		Expression:   fmt.Sprintf("%dms", ms),
	}, nil
}

func fromFloatMillis(ms float64) (Interval, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return Interval{}, errors.Wrapf(ErrInvalidInterval, "non-finite interval: %v", ms)
	}
	if ms < 0 {
		return Interval{}, errors.Wrapf(ErrInvalidInterval, "negative interval: %v", ms)
	}
	return fromMillis(int64(ms))
}

func parseExpression(expr string) (Interval, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Interval{}, errors.Wrap(ErrInvalidInterval, "blank expression")
	}

	matches := expressionPattern.FindStringSubmatch(expr)
	if matches == nil {
		return Interval{}, errors.Wrapf(ErrInvalidInterval, "unsupported expression: %q", expr)
	}

	value, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		// the pattern guarantees digits - overflow is the only way to get here
		return Interval{}, errors.Wrapf(ErrInvalidInterval, "number out of range: %q", expr)
	}

	unit := Millisecond
	if matches[2] != "" {
		unit = Unit(matches[2])
	}

	return Interval{
		Milliseconds: value * unit.millis(),
		Unit:         unit,
		Value:        value,
		Expression:   fmt.Sprintf("%d%s", value, unit),
	}, nil
}

// Format renders a millisecond count as a human friendly expression.
//
// Non-zero components are joined with spaces from days down to seconds, e.g., Format(90000) returns
// "1m 30s". A bare "<n>ms" is returned only when all larger components are zero. Format(0) returns
// "0s". Format is only defined for ms >= 0.
func Format(ms int64) string {
	if ms == 0 {
		return "0s"
	}

	var parts []string
	component := func(size int64, unit Unit) {
		if n := ms / size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, unit))
			ms -= n * size
		}
	}
	component(msPerDay, Day)
	component(msPerHour, Hour)
	component(msPerMinute, Minute)
	component(msPerSecond, Second)

	if len(parts) == 0 {
		return fmt.Sprintf("%dms", ms)
	}
	return strings.Join(parts, " ")
}

// Convert converts a value between units as pure arithmetic.
//
// No validation is applied beyond the Unit enum - unknown units are treated as milliseconds.
func Convert(value float64, from, to Unit) float64 {
	return value * float64(from.millis()) / float64(to.millis())
}
