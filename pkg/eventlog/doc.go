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

// Package eventlog standardizes the zerolog based event log structure.
//
// Log events are designed to be processed programmatically, i.e., for automated monitoring, alerting,
// querying, and analytics. Every log event is stamped with a ULID ('z') so that any single event can
// be referenced unambiguously. Components log through a component logger ('c') and significant
// occurrences are logged as named events ('n').
package eventlog
