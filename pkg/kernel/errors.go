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

package kernel

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrKernelDestroyed indicates the kernel has been destroyed and no longer accepts plugins.
var ErrKernelDestroyed = errors.New("kernel has been destroyed")

// AlreadyRegisteredError indicates a plugin with the same name is already registered.
type AlreadyRegisteredError struct {
	Name string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("plugin is already registered: %s", e.Name)
}

// MissingDependencyError indicates a plugin listed a dependency that is not yet registered.
// Dependencies must be registered before their dependents - there are no forward references.
type MissingDependencyError struct {
	Plugin     string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("plugin %s requires %s, which is not registered", e.Plugin, e.Dependency)
}

// PluginError wraps a failure from a plugin's install, init, or destroy hook, tagged with the
// offending plugin's name.
type PluginError struct {
	Plugin string
	Op     string
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s: %s failed : %v", e.Plugin, e.Op, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}
