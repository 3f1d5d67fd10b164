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
	"fmt"
	"time"
)

// TimeoutError indicates a health check attempt exceeded its deadline.
//
// A timed out attempt is fatal for the execution - it is never retried.
type TimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("health check timed out: %s (after %s)", e.Name, e.Timeout)
}

// FailedError indicates a health check exhausted its retries.
type FailedError struct {
	Name     string
	Attempts int
	// Cause is the last attempt's error
	Cause error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("health check failed: %s (after %d attempts) : %v", e.Name, e.Attempts, e.Cause)
}

func (e *FailedError) Unwrap() error {
	return e.Cause
}
