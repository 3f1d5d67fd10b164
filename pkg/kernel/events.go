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
	"sync"

	"github.com/oysterpack/vigil/pkg/eventlog"
	"github.com/rs/zerolog"
)

// Handler is an event bus subscriber callback.
type Handler func(event string, payload interface{})

// HandlerID identifies a subscription for Off.
type HandlerID uint64

// Bus is a synchronous in-process publish/subscribe channel keyed by string event names.
//
// Handlers for an event are invoked in subscription order. A handler that panics is caught and
// logged - it does not prevent other handlers for the same event from running, nor does it
// propagate to the emitter.
type Bus struct {
	logger *zerolog.Logger

	mu       sync.Mutex
	nextID   HandlerID
	handlers map[string][]subscription
}

type subscription struct {
	id   HandlerID
	once bool
	fn   Handler
}

// NewBus constructs a new event Bus.
func NewBus(logger *zerolog.Logger) *Bus {
	return &Bus{
		logger:   eventlog.ForComponent(logger, "bus"),
		handlers: make(map[string][]subscription),
	}
}

// On subscribes the handler to the event. The returned HandlerID can be passed to Off.
func (b *Bus) On(event string, fn Handler) HandlerID {
	return b.subscribe(event, fn, false)
}

// Once subscribes the handler to the event for a single invocation - the handler self-unsubscribes
// after it first fires.
func (b *Bus) Once(event string, fn Handler) HandlerID {
	return b.subscribe(event, fn, true)
}

func (b *Bus) subscribe(event string, fn Handler, once bool) HandlerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[event] = append(b.handlers[event], subscription{id: id, once: once, fn: fn})
	return id
}

// Off removes the subscription. It returns false if the subscription no longer exists.
func (b *Bus) Off(event string, id HandlerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[event]
	for i, sub := range subs {
		if sub.id == id {
			b.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// Emit synchronously delivers the payload to every handler subscribed to the event, in
// subscription order. Once handlers are unsubscribed before delivery, so re-emitting from within a
// handler cannot fire them twice.
func (b *Bus) Emit(event string, payload interface{}) {
	b.mu.Lock()
	subs := b.handlers[event]
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)

	remaining := subs[:0:0]
	for _, sub := range subs {
		if !sub.once {
			remaining = append(remaining, sub)
		}
	}
	if len(remaining) == 0 {
		delete(b.handlers, event)
	} else {
		b.handlers[event] = remaining
	}
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.invoke(event, payload, sub)
	}
}

// invoke runs one handler within its own fault boundary.
func (b *Bus) invoke(event string, payload interface{}, sub subscription) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event", event).
				Uint64("handler", uint64(sub.id)).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	sub.fn(event, payload)
}
