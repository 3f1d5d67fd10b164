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

// Package health defines the probe model and the check execution engine.
//
// A probe (Def) names a dependency and supplies a Checker that reports its health. The Engine
// executes probes with per-attempt timeout enforcement and retry with linear backoff, either one
// at a time, fully parallel, bounded-concurrency, or strictly sequential with optional early stop.
package health
