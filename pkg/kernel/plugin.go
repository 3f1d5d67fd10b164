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
	"context"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Plugin is an installable unit that extends the kernel's shared state and/or subscribes to kernel
// events.
//
// The install hook runs synchronously when the plugin is registered via Use - this is where a
// plugin wires fields into shared state and subscribes to events. Init and Destroy run later, once,
// driven by the kernel lifecycle.
type Plugin struct {
	// Name uniquely identifies the plugin within the kernel
	Name string
	// Version must be a valid semantic version
	Version string
	// Requires lists plugin names that must already be registered before this plugin
	Requires []string

	// Install is required - it receives the kernel and runs synchronously during Use
	Install func(k *Kernel) error
	// Init is optional - invoked once, in dependency order, when the kernel is initialized
	Init func(ctx context.Context, c *Context) error
	// Destroy is optional - invoked once, in reverse registration order, during kernel teardown
	Destroy func(ctx context.Context, c *Context) error
	// OnError is optional - notified when the plugin's init or destroy hook fails
	OnError func(err error)
}

// Plugin validation errors
var (
	ErrPluginBlankName  = errors.New("`Name` is required and must not be blank")
	ErrPluginNilInstall = errors.New("`Install` is required and must not be nil")
)

func (p Plugin) validate() (*semver.Version, error) {
	var err error
	if strings.TrimSpace(p.Name) == "" {
		err = ErrPluginBlankName
	}
	if p.Install == nil {
		err = multierr.Append(err, ErrPluginNilInstall)
	}
	version, versionErr := semver.NewVersion(p.Version)
	if versionErr != nil {
		err = multierr.Append(err, errors.Wrapf(versionErr, "`Version` must be a semantic version: %q", p.Version))
	}
	return version, err
}

// PluginInfo describes a registered plugin.
type PluginInfo struct {
	Name     string
	Version  *semver.Version
	Requires []string
}
