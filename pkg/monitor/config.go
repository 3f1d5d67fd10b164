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
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is used as the environment variable name prefix to load the Config from the env.
const EnvPrefix = "VIGIL"

// Config specifies monitor defaults. Probes may override timeout, retries, and interval per probe.
type Config struct {
	// DefaultTimeout applies to probes that do not specify their own timeout
	// - default = 5 seconds
	DefaultTimeout time.Duration `default:"5s" split_words:"true"`
	// DefaultRetries applies to probes that do not specify their own retry count
	// - default = 2
	DefaultRetries int `default:"2" split_words:"true"`
	// DefaultInterval is the global scheduling interval for probes without their own
	// - default = 30 seconds
	DefaultInterval time.Duration `default:"30s" split_words:"true"`

	// HealthyThreshold - overall score >= this is healthy
	HealthyThreshold int `default:"80" split_words:"true"`
	// DegradedThreshold - overall score >= this is degraded
	DegradedThreshold int `default:"50" split_words:"true"`

	// HistorySize bounds the execution history ring buffer
	HistorySize int `default:"100" split_words:"true"`
	// MaxParallel bounds how many probes a live status query runs simultaneously - 0 means no limit
	MaxParallel int `default:"0" split_words:"true"`
}

func (c Config) String() string {
	return fmt.Sprintf(
		"Config{DefaultTimeout=%s, DefaultRetries=%d, DefaultInterval=%s, HealthyThreshold=%d, DegradedThreshold=%d, HistorySize=%d, MaxParallel=%d}",
		c.DefaultTimeout, c.DefaultRetries, c.DefaultInterval, c.HealthyThreshold, c.DegradedThreshold, c.HistorySize, c.MaxParallel,
	)
}

// LoadConfig loads the monitor Config from the system environment. The following env vars are read:
// - VIGIL_DEFAULT_TIMEOUT
// - VIGIL_DEFAULT_RETRIES
// - VIGIL_DEFAULT_INTERVAL
// - VIGIL_HEALTHY_THRESHOLD
// - VIGIL_DEGRADED_THRESHOLD
// - VIGIL_HISTORY_SIZE
// - VIGIL_MAX_PARALLEL
func LoadConfig() Config {
	var config Config
	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		// an error should never happen because Config has no required fields and defaults are
		// specified - if an error does occur, then it's a bug in the underlying `envconfig` package
		panic(err)
	}
	return config
}
