/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package hub fans broadcast events out to every live subscriber without
// letting a slow subscriber stall the publisher.
package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
)

// DefaultBufferSize is the per-subscriber queue depth.
const DefaultBufferSize = 256

// Subscription is one subscriber's view of the hub. Messages are serialized
// events; the channel closes on Unsubscribe or hub Close.
type Subscription struct {
	ID string

	ch      chan []byte
	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
}

// C returns the receive side of the subscription.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Dropped reports how many events this subscriber missed because its buffer
// was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// trySend never blocks. full is set when the event was dropped because the
// buffer had no room; a subscription closed mid-publish is neither.
func (s *Subscription) trySend(msg []byte) (delivered, full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, false
	}

	select {
	case s.ch <- msg:
		return true, false
	default:
		s.dropped.Add(1)
		return false, true
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	close(s.ch)
}

// Hub holds the subscriber set. The set is copy-on-write: Publish iterates an
// immutable snapshot, so subscribe and unsubscribe never wait on a publish.
type Hub struct {
	mu         sync.Mutex
	subs       atomic.Pointer[[]*Subscription]
	bufferSize int
	closed     bool
	logger     logger.Logger
}

// New creates a hub. bufferSize <= 0 selects DefaultBufferSize.
func New(bufferSize int, log logger.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	h := &Hub{bufferSize: bufferSize, logger: log}
	h.subs.Store(&[]*Subscription{})

	return h
}

// Subscribe registers a new subscriber. On a closed hub the returned
// subscription is already closed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ID: uuid.NewString(),
		ch: make(chan []byte, h.bufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.close()
		return sub
	}

	current := *h.subs.Load()
	next := make([]*Subscription, len(current), len(current)+1)
	copy(next, current)
	next = append(next, sub)
	h.subs.Store(&next)

	h.logger.Debug().Str("subscription_id", sub.ID).Int("subscribers", len(next)).Msg("Subscriber added")

	return sub
}

// Unsubscribe removes sub and closes its channel. Unknown or repeated
// handles are ignored.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()

	current := *h.subs.Load()
	next := make([]*Subscription, 0, len(current))

	for _, s := range current {
		if s != sub {
			next = append(next, s)
		}
	}

	h.subs.Store(&next)
	h.mu.Unlock()

	sub.close()

	h.logger.Debug().Str("subscription_id", sub.ID).Int("subscribers", len(next)).Msg("Subscriber removed")
}

// Publish serializes event once and offers it to every current subscriber.
// A subscriber whose buffer is full misses the event; nobody else is affected.
// It returns the number of subscribers that received the event.
func (h *Hub) Publish(event models.BroadcastEvent) int {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(event.EventType())).Msg("Failed to marshal broadcast event")
		return 0
	}

	return h.PublishRaw(event.EventType(), msg)
}

// PublishRaw fans out an already serialized event.
func (h *Hub) PublishRaw(eventType models.EventType, msg []byte) int {
	delivered := 0
	dropped := 0

	for _, sub := range *h.subs.Load() {
		ok, full := sub.trySend(msg)
		if ok {
			delivered++
		}

		if full {
			dropped++
		}
	}

	recordPublish(eventType, dropped)

	if dropped > 0 {
		h.logger.Warn().
			Str("type", string(eventType)).
			Int("dropped", dropped).
			Msg("Dropped broadcast event for slow subscribers")
	}

	return delivered
}

// Len reports the number of current subscribers.
func (h *Hub) Len() int {
	return len(*h.subs.Load())
}

// Close unsubscribes everyone. Later Subscribe calls get closed subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()

	current := *h.subs.Load()
	h.subs.Store(&[]*Subscription{})
	h.closed = true

	h.mu.Unlock()

	for _, sub := range current {
		sub.close()
	}
}
