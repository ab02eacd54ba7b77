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

// Package sweeper periodically demotes sensors that have gone silent.
package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/carverauto/noiseradar/pkg/lifecycle"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
	"github.com/carverauto/noiseradar/pkg/registry"
)

const (
	DefaultOfflineThreshold = 10 * time.Second
	DefaultInterval         = 5 * time.Second
)

var errAlreadyStarted = errors.New("sweeper already started")

// Config controls the silence window and how often it is checked.
type Config struct {
	OfflineThreshold time.Duration
	Interval         time.Duration
}

// Sweeper runs Registry.SweepOffline on a ticker and broadcasts a
// device_status event for each demoted device. Time comes from the ingestion
// host clock only, never from sensor timestamps.
type Sweeper struct {
	cfg       Config
	registry  *registry.Registry
	publisher Publisher
	clock     Clock
	logger    logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ lifecycle.Service = (*Sweeper)(nil)

// Option customizes a Sweeper.
type Option func(*Sweeper)

// WithClock swaps the time source.
func WithClock(c Clock) Option {
	return func(s *Sweeper) {
		s.clock = c
	}
}

// New builds a sweeper; zero config values take their defaults.
func New(cfg Config, reg *registry.Registry, pub Publisher, log logger.Logger, opts ...Option) *Sweeper {
	if cfg.OfflineThreshold <= 0 {
		cfg.OfflineThreshold = DefaultOfflineThreshold
	}

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &Sweeper{
		cfg:       cfg,
		registry:  reg,
		publisher: pub,
		clock:     realClock{},
		logger:    log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the sweep loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	ticker := s.clock.Ticker(s.cfg.Interval)

	go s.run(ctx, ticker, s.done)

	s.logger.Info().
		Dur("offline_threshold", s.cfg.OfflineThreshold).
		Dur("interval", s.cfg.Interval).
		Msg("Offline sweeper started")

	return nil
}

// Stop halts the loop and waits for an in-progress sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info().Msg("Offline sweeper stopped")

	return nil
}

func (s *Sweeper) run(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.SweepOnce()
		}
	}
}

// SweepOnce runs one sweep at the clock's current time and returns the
// demoted records.
func (s *Sweeper) SweepOnce() []models.DeviceRecord {
	now := s.clock.Now().UnixMilli()

	transitioned := s.registry.SweepOffline(now, s.cfg.OfflineThreshold.Milliseconds())

	for i := range transitioned {
		s.publisher.Publish(models.StatusEventFor(&transitioned[i]))
	}

	if len(transitioned) > 0 {
		s.logger.Debug().Int("count", len(transitioned)).Msg("Sweep demoted devices")
	}

	return transitioned
}
