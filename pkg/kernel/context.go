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
	"sync"
)

// Context is the kernel's mutable shared-state container.
//
// It is built once at kernel construction and passed by handle to each plugin's install/init hooks.
// There are no ambient globals - all shared state access goes through the Context.
type Context struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

func newContext() *Context {
	return &Context{values: make(map[string]interface{})}
}

// Set stores a value under the key, replacing any previous value.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// Value returns the value stored under the key.
func (c *Context) Value(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.values[key]
	return value, ok
}

// MustValue returns the value stored under the key - panics if the key is not present.
// Use for values a plugin's dependencies are contractually required to have installed.
func (c *Context) MustValue(key string) interface{} {
	value, ok := c.Value(key)
	if !ok {
		panic(fmt.Sprintf("shared state key is not set: %q", key))
	}
	return value
}

// Keys returns all keys currently present in the shared state.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	return keys
}
