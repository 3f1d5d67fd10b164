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

package interval_test

import (
	"math"
	"testing"

	"github.com/oysterpack/vigil/pkg/interval"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Expressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr   string
		millis int64
		unit   interval.Unit
		value  int64
	}{
		{"30s", 30000, interval.Second, 30},
		{"5m", 300000, interval.Minute, 5},
		{"2h", 7200000, interval.Hour, 2},
		{"1d", 86400000, interval.Day, 1},
		{"1500ms", 1500, interval.Millisecond, 1500},
		{"1500", 1500, interval.Millisecond, 1500},
		{"0s", 0, interval.Second, 0},
		{" 30s ", 30000, interval.Second, 30},
	}

	for _, tt := range tests {
		parsed, err := interval.Parse(tt.expr)
		require.NoError(t, err, "expression: %q", tt.expr)
		assert.Equal(t, tt.millis, parsed.Milliseconds, "expression: %q", tt.expr)
		assert.Equal(t, tt.unit, parsed.Unit, "expression: %q", tt.expr)
		assert.Equal(t, tt.value, parsed.Value, "expression: %q", tt.expr)
	}
}

func TestParse_Numbers(t *testing.T) {
	t.Parallel()

	parsed, err := interval.Parse(1500)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), parsed.Milliseconds)
	assert.Equal(t, "1500ms", parsed.Expression)

	parsed, err = interval.Parse(int64(0))
	require.NoError(t, err)
	assert.Equal(t, int64(0), parsed.Milliseconds)

	parsed, err = interval.Parse(2500.9)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), parsed.Milliseconds)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	invalid := []interface{}{
		"",
		"   ",
		"10x",
		"1h30m",
		"-5s",
		"abc",
		-1,
		int64(-1000),
		-0.5,
		math.NaN(),
		math.Inf(1),
		math.Inf(-1),
		struct{}{},
	}

	for _, input := range invalid {
		_, err := interval.Parse(input)
		require.Error(t, err, "input: %v", input)
		assert.True(t, errors.Is(err, interval.ErrInvalidInterval), "input: %v : %v", input, err)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		millis   int64
		expected string
	}{
		{0, "0s"},
		{500, "500ms"},
		{1500, "1s"},
		{30000, "30s"},
		{90000, "1m 30s"},
		{3600000, "1h"},
		{90061000, "1d 1h 1m 1s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, interval.Format(tt.millis), "millis: %d", tt.millis)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	t.Parallel()

	parsed, err := interval.Parse("30s")
	require.NoError(t, err)
	require.Equal(t, int64(30000), parsed.Milliseconds)
	require.Equal(t, "30s", interval.Format(parsed.Milliseconds))
}

func TestConvert(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 30000.0, interval.Convert(30, interval.Second, interval.Millisecond))
	assert.Equal(t, 0.5, interval.Convert(30, interval.Second, interval.Minute))
	assert.Equal(t, 24.0, interval.Convert(1, interval.Day, interval.Hour))
	assert.Equal(t, 1.0, interval.Convert(1000, interval.Millisecond, interval.Second))
}
