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

// Package push streams hub events to browser sessions over WebSocket.
package push

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carverauto/noiseradar/pkg/hub"
	"github.com/carverauto/noiseradar/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Subscriber is the hub side of a session.
type Subscriber interface {
	Subscribe() *hub.Subscription
	Unsubscribe(sub *hub.Subscription)
}

// Handler upgrades requests to WebSocket sessions, each backed by its own
// hub subscription.
type Handler struct {
	hub      Subscriber
	upgrader websocket.Upgrader
	logger   logger.Logger
	sessions atomic.Int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithOriginCheck replaces the default same-origin check.
func WithOriginCheck(check func(r *http.Request) bool) Option {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = check
	}
}

// NewHandler builds a Handler.
func NewHandler(sub Subscriber, log logger.Logger, opts ...Option) *Handler {
	if log == nil {
		log = logger.NewTestLogger()
	}

	h := &Handler{
		hub: sub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: log,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Sessions reports the number of open sessions.
func (h *Handler) Sessions() int64 {
	return h.sessions.Load()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Str("origin", r.Header.Get("Origin")).
			Msg("Failed to upgrade to WebSocket")

		return
	}

	s := &session{
		conn:   conn,
		sub:    h.hub.Subscribe(),
		logger: logger.FromZerolog(h.logger.With().Str("remote_addr", r.RemoteAddr).Logger()),
		done:   make(chan struct{}),
	}

	active := h.sessions.Add(1)
	s.logger.Info().Str("subscription_id", s.sub.ID).Int64("sessions", active).Msg("WebSocket session opened")

	go s.readPump()

	s.writePump()

	h.hub.Unsubscribe(s.sub)
	active = h.sessions.Add(-1)
	s.logger.Info().Str("subscription_id", s.sub.ID).Int64("sessions", active).Msg("WebSocket session closed")
}
