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

// Package ingest turns transport messages into registry updates, stored
// readings and broadcast events.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/carverauto/noiseradar/pkg/alerts"
	"github.com/carverauto/noiseradar/pkg/codec"
	"github.com/carverauto/noiseradar/pkg/lifecycle"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
	"github.com/carverauto/noiseradar/pkg/mqtt"
	"github.com/carverauto/noiseradar/pkg/registry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	diagnosticPreviewLimit = 100
	resolveTimeout         = 2 * time.Second
)

var (
	errAlreadyStarted = errors.New("ingest service already started")
	errConnect        = errors.New("failed to establish transport session")
)

// Publisher receives derived events.
type Publisher interface {
	Publish(event models.BroadcastEvent) int
}

// Service is the ingestion consumer. Messages are handled one at a time in
// arrival order.
type Service struct {
	session  mqtt.Session
	registry *registry.Registry
	pub      Publisher
	decoder  *codec.Decoder
	resolver alerts.ThresholdResolver
	store    ReadingWriter
	logger   logger.Logger

	workers   int
	queueSize int
	writer    *storageWriter

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ lifecycle.Service = (*Service)(nil)

// Option customizes a Service.
type Option func(*Service)

// WithDecoder replaces the default-scheme decoder.
func WithDecoder(d *codec.Decoder) Option {
	return func(s *Service) {
		s.decoder = d
	}
}

// WithResolver sets the threshold source. Without one no alert ever fires.
func WithResolver(r alerts.ThresholdResolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// WithStore enables persistence of readings.
func WithStore(w ReadingWriter) Option {
	return func(s *Service) {
		s.store = w
	}
}

// WithStorageWorkers sizes the write pool and its queue.
func WithStorageWorkers(workers, queueSize int) Option {
	return func(s *Service) {
		s.workers = workers
		s.queueSize = queueSize
	}
}

// New builds a consumer over an unconnected session.
func New(session mqtt.Session, reg *registry.Registry, pub Publisher, log logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &Service{
		session:   session,
		registry:  reg,
		pub:       pub,
		logger:    log,
		workers:   DefaultStorageWorkers,
		queueSize: DefaultStorageQueue,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.decoder == nil {
		s.decoder = codec.NewDecoder(codec.DefaultTopicScheme())
	}

	if s.store != nil {
		s.writer = newStorageWriter(s.store, s.workers, s.queueSize, log)
	}

	return s
}

// Start connects the session and launches the receive loop. Failing to
// connect at all is the only fatal condition.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errAlreadyStarted
	}

	if err := s.session.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", errConnect, err)
	}

	if s.writer != nil {
		s.writer.start(ctx)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx, s.session.Messages(), s.done)

	scheme := s.decoder.Scheme()
	s.logger.Info().
		Str("readings", scheme.ReadingFilter()).
		Str("status", scheme.StatusFilter()).
		Bool("storage", s.writer != nil).
		Msg("Ingestion started")

	return nil
}

// Stop disconnects the session, waits for the receive loop and drains
// queued storage writes.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	s.session.Disconnect()
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if s.writer != nil {
		if err := s.writer.stop(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Storage writer did not drain before shutdown")
			return err
		}
	}

	s.logger.Info().Msg("Ingestion stopped")

	return nil
}

// ConnectionStatus exposes the transport session state.
func (s *Service) ConnectionStatus() mqtt.ConnectionStatus {
	return s.session.Status()
}

func (s *Service) run(ctx context.Context, messages <-chan mqtt.Message, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			s.handle(ctx, msg)
		}
	}
}

func (s *Service) handle(ctx context.Context, msg mqtt.Message) {
	if codec.IsDiagnosticTopic(msg.Topic) {
		recordMessage(kindDiagnostic)
		s.logger.Debug().
			Str("topic", msg.Topic).
			Str("payload", truncate(msg.Payload, diagnosticPreviewLimit)).
			Msg("Broker diagnostic")

		return
	}

	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	decoded, err := s.decoder.Decode(msg.Topic, msg.Payload, receivedAt)
	if err != nil {
		s.dropMessage(msg.Topic, err)
		return
	}

	switch m := decoded.(type) {
	case *codec.NoiseReading:
		recordMessage(kindReading)
		s.handleReading(ctx, m, receivedAt)
	case *codec.StatusReport:
		recordMessage(kindStatus)
		s.handleStatus(m, receivedAt)
	}
}

func (s *Service) dropMessage(topic string, err error) {
	event := s.logger.Warn().Err(err).Str("topic", topic)

	reason := "unknown"

	var decodeErr *codec.DecodeError
	if errors.As(err, &decodeErr) {
		event = event.Str("payload", decodeErr.Preview)
		reason = reasonFor(decodeErr.Kind)
	}

	recordDecodeFailure(reason)
	event.Msg("Dropping undecodable message")
}

func (s *Service) handleReading(ctx context.Context, reading *codec.NoiseReading, receivedAt time.Time) {
	ctx, span := tracer.Start(ctx, "ingest.reading",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("device_id", reading.DeviceID),
			attribute.String("zone", reading.Zone),
			attribute.Float64("noise_db", reading.NoiseDb),
		))
	defer span.End()

	s.registry.RecordReading(reading.DeviceID, reading.Zone, reading.NoiseDb, receivedAt.UnixMilli())

	if s.writer != nil {
		s.writer.enqueue(models.NoiseSample{
			DeviceID:    reading.DeviceID,
			NoiseDb:     reading.NoiseDb,
			TimestampMs: reading.TimestampMs,
		})
	}

	threshold := s.resolveThreshold(ctx, reading.DeviceID)

	s.pub.Publish(models.NoiseEvent{
		DeviceID:  reading.DeviceID,
		Zone:      reading.Zone,
		NoiseDb:   reading.NoiseDb,
		Timestamp: reading.TimestampMs,
	})

	if alerts.Evaluate(reading.NoiseDb, threshold) {
		span.SetAttributes(attribute.Float64("threshold_db", threshold.ThresholdDb), attribute.Bool("alert", true))
		recordAlert()
		s.pub.Publish(alerts.NewAlert(reading, threshold))
	}
}

func (s *Service) handleStatus(report *codec.StatusReport, receivedAt time.Time) {
	rec := s.registry.RecordStatus(report.DeviceID, report.Zone, report.Online, receivedAt.UnixMilli())

	s.pub.Publish(models.DeviceStatusEvent{
		DeviceID: rec.DeviceID,
		Zone:     rec.Zone,
		Status:   rec.Status,
		LastSeen: report.TimestampMs,
	})
}

func (s *Service) resolveThreshold(ctx context.Context, deviceID string) *models.Threshold {
	if s.resolver == nil {
		return nil
	}

	resolveCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	threshold, err := s.resolver.ResolveThreshold(resolveCtx, deviceID)
	if err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "threshold lookup failed")
		s.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Threshold lookup failed, skipping alert check")
		return nil
	}

	return threshold
}

func reasonFor(kind error) string {
	switch {
	case errors.Is(kind, codec.ErrUnrecognizedTopic):
		return "topic"
	case errors.Is(kind, codec.ErrInvalidPayload):
		return "payload"
	case errors.Is(kind, codec.ErrSchemaViolation):
		return "schema"
	default:
		return "unknown"
	}
}

func truncate(payload []byte, limit int) string {
	if len(payload) <= limit {
		return string(payload)
	}

	cut := payload[:limit]
	for len(cut) > 0 && !utf8.Valid(cut) {
		cut = cut[:len(cut)-1]
	}

	return string(cut) + "..."
}
