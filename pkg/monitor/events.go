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
	"github.com/oysterpack/vigil/pkg/health"
)

// kernel event names published by the monitor's plugins
const (
	// EventCheckCompleted fires after every probe execution - manual or scheduled.
	// Payload: health.Record
	EventCheckCompleted = "check.completed"
	// EventStatusChanged fires when the overall status transitions.
	// Payload: StatusChanged
	EventStatusChanged = "status.changed"
	// EventProbeRegistered fires when a probe is registered or replaced.
	// Payload: string - the probe name
	EventProbeRegistered = "probe.registered"
	// EventProbeUnregistered fires when a probe is unregistered.
	// Payload: string - the probe name
	EventProbeUnregistered = "probe.unregistered"
)

// StatusChanged is the EventStatusChanged payload.
type StatusChanged struct {
	Previous health.Status
	Current  health.Status
	Score    int
}
