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

// Package kernel implements a plugin micro-kernel: plugin registration with dependency resolution,
// two-phase install/init lifecycle with reverse-order teardown, a mutable shared-state container,
// and a synchronous event bus for inter-plugin notification.
package kernel

import (
	"context"
	"sync"

	"github.com/Masterminds/semver"
	"github.com/oklog/ulid"
	"github.com/oysterpack/vigil/pkg/eventlog"
	"github.com/oysterpack/vigil/pkg/ulids"
	"github.com/rs/zerolog"
)

// Kernel owns the plugin table, the shared-state Context, and the event Bus.
//
// Lifecycle: Created -> Initialized -> Destroyed. There is no path back to Created, and
// Initialized is monotonic - once set it is never unset, even after Destroyed.
type Kernel struct {
	id     ulid.ULID
	logger *zerolog.Logger
	ctx    *Context
	bus    *Bus

	mu          sync.Mutex
	plugins     []*registeredPlugin // registration order
	index       map[string]*registeredPlugin
	initialized bool
	destroyed   bool
}

type registeredPlugin struct {
	Plugin
	version *semver.Version
}

// New constructs a new Kernel. Each kernel instance is assigned a ULID.
func New(logger *zerolog.Logger) *Kernel {
	kernelLogger := eventlog.ForComponent(logger, "kernel")
	return &Kernel{
		id:     ulids.MustNew(),
		logger: kernelLogger,
		ctx:    newContext(),
		bus:    NewBus(logger),
		index:  make(map[string]*registeredPlugin),
	}
}

// ID returns the kernel instance ULID.
func (k *Kernel) ID() ulid.ULID {
	return k.id
}

// Context returns the kernel's shared-state container.
// Collaborating plugins read and extend shared state through it.
func (k *Kernel) Context() *Context {
	return k.ctx
}

// Logger returns the kernel's base logger for plugins to derive component loggers from.
func (k *Kernel) Logger() *zerolog.Logger {
	return k.logger
}

// Initialized returns true once Init has completed successfully - it never reverts.
func (k *Kernel) Initialized() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.initialized
}

// Destroyed returns true once Destroy has been invoked.
func (k *Kernel) Destroyed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.destroyed
}

// Plugins returns the registered plugins in registration order.
func (k *Kernel) Plugins() []PluginInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	infos := make([]PluginInfo, len(k.plugins))
	for i, p := range k.plugins {
		infos[i] = PluginInfo{Name: p.Name, Version: p.version, Requires: p.Requires}
	}
	return infos
}

// Use registers the plugin and runs its install hook synchronously.
//
// Use fails with:
//  - ErrKernelDestroyed if the kernel has been destroyed
//  - *AlreadyRegisteredError if the plugin name collides
//  - *MissingDependencyError if any required plugin is not yet registered
//  - *PluginError if the install hook fails - the plugin is not recorded
func (k *Kernel) Use(p Plugin) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.destroyed {
		return ErrKernelDestroyed
	}

	version, err := p.validate()
	if err != nil {
		return err
	}
	if _, exists := k.index[p.Name]; exists {
		return &AlreadyRegisteredError{Name: p.Name}
	}
	for _, dep := range p.Requires {
		if _, exists := k.index[dep]; !exists {
			return &MissingDependencyError{Plugin: p.Name, Dependency: dep}
		}
	}

	if err := p.Install(k); err != nil {
		return &PluginError{Plugin: p.Name, Op: "install", Err: err}
	}

	registered := &registeredPlugin{Plugin: p, version: version}
	k.plugins = append(k.plugins, registered)
	k.index[p.Name] = registered

	eventlog.ForEvent(k.logger, "plugin.installed").Info().
		Str("plugin", p.Name).
		Str("version", version.String()).
		Strs("requires", p.Requires).
		Msg("")
	return nil
}

// Init walks plugins in dependency order - dependencies first, recursively, before the dependent -
// invoking each plugin's init hook. Initialization is fail-fast: the first failing hook aborts the
// remaining initialization and the error is returned wrapped as a *PluginError.
//
// Calling Init on an already initialized kernel is a no-op with a warning.
func (k *Kernel) Init(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.destroyed {
		return ErrKernelDestroyed
	}
	if k.initialized {
		k.logger.Warn().Msg("kernel is already initialized")
		return nil
	}

	visited := make(map[string]bool, len(k.plugins))
	var visit func(p *registeredPlugin) error
	visit = func(p *registeredPlugin) error {
		if visited[p.Name] {
			return nil
		}
		visited[p.Name] = true
		for _, dep := range p.Requires {
			if err := visit(k.index[dep]); err != nil {
				return err
			}
		}
		if p.Init == nil {
			return nil
		}
		if err := p.Init(ctx, k.ctx); err != nil {
			pluginErr := &PluginError{Plugin: p.Name, Op: "init", Err: err}
			if p.OnError != nil {
				p.OnError(pluginErr)
			}
			return pluginErr
		}
		eventlog.ForEvent(k.logger, "plugin.initialized").Info().Str("plugin", p.Name).Msg("")
		return nil
	}

	for _, p := range k.plugins {
		if err := visit(p); err != nil {
			return err
		}
	}

	k.initialized = true
	eventlog.ForEvent(k.logger, "kernel.initialized").Info().Msg("")
	return nil
}

// Destroy walks plugins in reverse registration order invoking each destroy hook.
//
// Teardown is best-effort, unlike fail-fast init: a failing or panicking destroy hook is caught,
// logged, and passed to the plugin's OnError hook - it never prevents subsequent plugins from being
// destroyed. Destroy is idempotent - second and further calls are no-ops.
func (k *Kernel) Destroy(ctx context.Context) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.destroyed {
		return
	}
	k.destroyed = true

	for i := len(k.plugins) - 1; i >= 0; i-- {
		k.destroyPlugin(ctx, k.plugins[i])
	}
	eventlog.ForEvent(k.logger, "kernel.destroyed").Info().Msg("")
}

func (k *Kernel) destroyPlugin(ctx context.Context, p *registeredPlugin) {
	if p.Destroy == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			k.logger.Error().
				Str("plugin", p.Name).
				Interface("panic", r).
				Msg("plugin destroy panicked")
		}
	}()
	if err := p.Destroy(ctx, k.ctx); err != nil {
		pluginErr := &PluginError{Plugin: p.Name, Op: "destroy", Err: err}
		if p.OnError != nil {
			p.OnError(pluginErr)
		}
		k.logger.Err(pluginErr).Str("plugin", p.Name).Msg("plugin destroy failed")
	}
}

// Emit publishes the payload on the kernel event bus.
func (k *Kernel) Emit(event string, payload interface{}) {
	k.bus.Emit(event, payload)
}

// On subscribes to a kernel event.
func (k *Kernel) On(event string, fn Handler) HandlerID {
	return k.bus.On(event, fn)
}

// Once subscribes to a kernel event for a single delivery.
func (k *Kernel) Once(event string, fn Handler) HandlerID {
	return k.bus.Once(event, fn)
}

// Off removes an event subscription.
func (k *Kernel) Off(event string, id HandlerID) bool {
	return k.bus.Off(event, id)
}
