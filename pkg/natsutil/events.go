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

package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/noiseradar/pkg/hub"
	"github.com/carverauto/noiseradar/pkg/lifecycle"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
)

const (
	DefaultStreamName    = "NOISE_EVENTS"
	DefaultSubjectPrefix = "noise.events"

	cloudEventSpecVersion = "1.0"
	cloudEventSource      = "noiseradar/ingest"
	cloudEventTypePrefix  = "com.carverauto.noiseradar."
	publishTimeout        = 5 * time.Second
)

var (
	errBridgeStarted = errors.New("event bridge already started")
	errMissingType   = errors.New("broadcast event has no type")
)

// EventPublisher publishes broadcast events to JetStream as CloudEvents on
// <prefix>.<event type>.
type EventPublisher struct {
	js            jetstream.JetStream
	stream        string
	subjectPrefix string
	now           func() time.Time
}

// NewEventPublisher wraps an existing JetStream context.
func NewEventPublisher(js jetstream.JetStream, streamName, subjectPrefix string) *EventPublisher {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}

	return &EventPublisher{
		js:            js,
		stream:        streamName,
		subjectPrefix: strings.TrimSuffix(subjectPrefix, "."),
		now:           time.Now,
	}
}

// CreateEventPublisher ensures the stream exists and covers the event
// subjects, then returns a publisher for it.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, cfg *models.NATSConfig) (*EventPublisher, error) {
	var (
		js  jetstream.JetStream
		err error
	)

	if cfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, cfg.Domain)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context with domain %s: %w", cfg.Domain, err)
		}
	} else {
		js, err = jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
	}

	streamName := cfg.StreamName
	if streamName == "" {
		streamName = DefaultStreamName
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	wildcard := prefix + ".>"

	stream, err := js.Stream(ctx, streamName)
	if err != nil {
		if !isStreamMissingErr(err) {
			return nil, fmt.Errorf("failed to get stream %s: %w", streamName, err)
		}

		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{wildcard},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}

		return NewEventPublisher(js, streamName, prefix), nil
	}

	streamCfg := stream.CachedInfo().Config
	subjects := ensureSubjectList(append([]string(nil), streamCfg.Subjects...), wildcard)

	if len(subjects) != len(streamCfg.Subjects) {
		streamCfg.Subjects = subjects

		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return nil, fmt.Errorf("failed to add %s to stream %s: %w", wildcard, streamName, err)
		}
	}

	return NewEventPublisher(js, streamName, prefix), nil
}

// Subject returns the subject an event type is published on.
func (p *EventPublisher) Subject(eventType models.EventType) string {
	return p.subjectPrefix + "." + string(eventType)
}

// Publish marshals event and publishes it.
func (p *EventPublisher) Publish(ctx context.Context, event models.BroadcastEvent) (*jetstream.PubAck, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.EventType(), err)
	}

	return p.PublishRaw(ctx, event.EventType(), payload)
}

// PublishRaw wraps an already serialized broadcast event in a CloudEvent and
// publishes it.
func (p *EventPublisher) PublishRaw(ctx context.Context, eventType models.EventType, payload []byte) (*jetstream.PubAck, error) {
	now := p.now().UTC()
	subject := p.Subject(eventType)

	event := models.CloudEvent{
		SpecVersion:     cloudEventSpecVersion,
		ID:              uuid.NewString(),
		Source:          cloudEventSource,
		Type:            cloudEventTypePrefix + string(eventType),
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &now,
		Data:            payload,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cloud event: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    eventBytes,
		Header:  nats.Header{},
	}
	msg.Header.Set(jetstream.MsgIDHeader, event.ID)

	ack, err := p.js.PublishMsg(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	return ack, nil
}

// Subscriber is the hub side of the bridge.
type Subscriber interface {
	Subscribe() *hub.Subscription
	Unsubscribe(sub *hub.Subscription)
}

// EventBridge republishes every hub event to JetStream. Publish failures are
// logged and the event is dropped; the bridge never blocks the hub.
type EventBridge struct {
	hub       Subscriber
	publisher *EventPublisher
	logger    logger.Logger

	mu   sync.Mutex
	sub  *hub.Subscription
	done chan struct{}
}

var _ lifecycle.Service = (*EventBridge)(nil)

// NewEventBridge builds a bridge.
func NewEventBridge(h Subscriber, publisher *EventPublisher, log logger.Logger) *EventBridge {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &EventBridge{hub: h, publisher: publisher, logger: log}
}

// Start subscribes to the hub and begins forwarding.
func (b *EventBridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		return errBridgeStarted
	}

	b.sub = b.hub.Subscribe()
	b.done = make(chan struct{})

	// Forwarding outlives the Start context; Stop ends it.
	go b.forward(context.WithoutCancel(ctx), b.sub, b.done)

	b.logger.Info().Str("stream", b.publisher.stream).Str("subject_prefix", b.publisher.subjectPrefix).
		Msg("Event bridge started")

	return nil
}

// Stop unsubscribes and waits for in-flight publishes to finish.
func (b *EventBridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	sub, done := b.sub, b.done
	b.sub, b.done = nil, nil
	b.mu.Unlock()

	if sub == nil {
		return nil
	}

	b.hub.Unsubscribe(sub)

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.logger.Info().Int64("dropped", sub.Dropped()).Msg("Event bridge stopped")

	return nil
}

func (b *EventBridge) forward(ctx context.Context, sub *hub.Subscription, done chan struct{}) {
	defer close(done)

	for msg := range sub.C() {
		eventType, err := peekEventType(msg)
		if err != nil {
			b.logger.Warn().Err(err).Msg("Skipping malformed broadcast event")
			continue
		}

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		_, err = b.publisher.PublishRaw(pubCtx, eventType, msg)
		cancel()

		if err != nil {
			b.logger.Warn().Err(err).Str("type", string(eventType)).Msg("Failed to forward event to JetStream")
		}
	}
}

func peekEventType(msg []byte) (models.EventType, error) {
	var envelope struct {
		Type models.EventType `json:"type"`
	}

	if err := json.Unmarshal(msg, &envelope); err != nil {
		return "", err
	}

	if envelope.Type == "" {
		return "", errMissingType
	}

	return envelope.Type, nil
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}

// ensureSubjectList appends subject unless an existing pattern already
// covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, existing := range subjects {
		if matchesSubject(existing, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether pattern covers subject using NATS token
// wildcards. A literal ">" in subject is only covered by ">" in pattern.
func matchesSubject(pattern, subject string) bool {
	patternTokens := strings.Split(pattern, ".")
	subjectTokens := strings.Split(subject, ".")

	for i, token := range patternTokens {
		if token == ">" {
			return i < len(subjectTokens)
		}

		if i >= len(subjectTokens) {
			return false
		}

		if token != "*" && token != subjectTokens[i] {
			return false
		}
	}

	return len(patternTokens) == len(subjectTokens)
}
