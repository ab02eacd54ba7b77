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

// Package api serves the dashboard-facing HTTP surface: health, the live
// event stream and operator commands.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/noiseradar/pkg/control"
	httpx "github.com/carverauto/noiseradar/pkg/http"
	"github.com/carverauto/noiseradar/pkg/lifecycle"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
	"github.com/carverauto/noiseradar/pkg/mqtt"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	healthTimeout       = 2 * time.Second
)

var errAlreadyStarted = errors.New("api server already started")

// StatusSource reports the transport session state.
type StatusSource interface {
	ConnectionStatus() mqtt.ConnectionStatus
}

// Pinger checks storage readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HistoryReader returns stored readings for a device.
type HistoryReader interface {
	ListReadings(ctx context.Context, deviceID string, sinceMs int64) ([]models.NoiseSample, error)
}

// Server is the HTTP front of the noise consumer.
type Server struct {
	addr       string
	router     *mux.Router
	controller *control.Controller
	stream     http.Handler
	status     StatusSource
	storage    Pinger
	history    HistoryReader
	cors       models.CORSConfig
	apiKey     string
	sampler    SystemSampler
	handler    http.Handler
	logger     logger.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan error
}

var _ lifecycle.Service = (*Server)(nil)

// Option configures a Server.
type Option func(*Server)

// WithStream mounts the live event stream at /ws.
func WithStream(h http.Handler) Option {
	return func(s *Server) {
		s.stream = h
	}
}

// WithStatus reports transport state on /health.
func WithStatus(src StatusSource) Option {
	return func(s *Server) {
		s.status = src
	}
}

// WithStorage reports storage readiness on /health.
func WithStorage(p Pinger) Option {
	return func(s *Server) {
		s.storage = p
	}
}

// WithHistory enables /api/devices/{id}/history.
func WithHistory(h HistoryReader) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithCORS sets the cross-origin policy.
func WithCORS(cors models.CORSConfig) Option {
	return func(s *Server) {
		s.cors = cors
	}
}

// WithAPIKey requires key on every /api route.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithSystemSampler replaces the gopsutil-backed /api/system sampler.
func WithSystemSampler(fn SystemSampler) Option {
	return func(s *Server) {
		s.sampler = fn
	}
}

// NewServer builds the router. Nothing listens until Start.
func NewServer(addr string, ctrl *control.Controller, log logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &Server{
		addr:       addr,
		router:     mux.NewRouter(),
		controller: ctrl,
		sampler:    newProcessSampler(time.Now()),
		logger:     log,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	s.handler = httpx.CommonMiddleware(s.router, s.cors, s.logger)

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	if s.stream != nil {
		s.router.Handle("/ws", s.stream)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(httpx.APIKeyMiddleware(s.apiKey, s.logger))
	api.HandleFunc("/devices", s.handleListDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", s.handleGetDevice).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/enabled", s.handleSetEnabled).Methods(http.MethodPut, http.MethodPost)
	api.HandleFunc("/devices/{id}/eco-mode", s.handleSetEcoMode).Methods(http.MethodPut, http.MethodPost)
	api.HandleFunc("/devices/{id}/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/thresholds", s.handleListThresholds).Methods(http.MethodGet)
	api.HandleFunc("/thresholds", s.handleSetThreshold).Methods(http.MethodPut, http.MethodPost)
	api.HandleFunc("/audit", s.handleAudit).Methods(http.MethodGet)
	api.HandleFunc("/system", s.handleSystem).Methods(http.MethodGet)
}

// Handler returns the router wrapped in the common middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return s.addr
	}

	return s.listener.Addr().String()
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return errAlreadyStarted
	}

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.listener = ln
	s.srv = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}
	s.done = make(chan error, 1)

	srv, done := s.srv, s.done

	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}

		done <- err
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	return nil
}

// Stop shuts the server down gracefully. Hijacked WebSocket connections are
// not tracked by http.Server; they end when their hub subscription closes.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.done = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	return <-done
}
