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

// Package control applies operator commands to the device registry and the
// threshold store, and announces the results to live subscribers.
package control

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
	"github.com/carverauto/noiseradar/pkg/registry"
)

const (
	ActionSetEnabled   = "set_enabled"
	ActionSetEcoMode   = "set_eco_mode"
	ActionSetThreshold = "set_threshold"
)

var (
	ErrStoreUnavailable = errors.New("threshold store is not configured")
	ErrInvalidThreshold = errors.New("threshold must be a finite number")
	ErrEmptyDeviceID    = errors.New("device id must not be empty")
)

// Store is the part of the storage collaborator operator commands need.
type Store interface {
	UpsertThreshold(ctx context.Context, deviceID *string, thresholdDb float64) error
	ListThresholds(ctx context.Context) ([]models.Threshold, error)
	WriteAudit(ctx context.Context, action, actor string, data map[string]any) error
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// Publisher fans an event out to live subscribers.
type Publisher interface {
	Publish(event models.BroadcastEvent) int
}

// Invalidator drops cached threshold lookups.
type Invalidator interface {
	Invalidate()
}

// Controller is the operator command surface.
type Controller struct {
	registry  *registry.Registry
	store     Store
	publisher Publisher
	cache     Invalidator
	logger    logger.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithStore enables threshold administration and audit entries.
func WithStore(store Store) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// WithInvalidator registers a cache to flush after threshold changes.
func WithInvalidator(cache Invalidator) Option {
	return func(c *Controller) {
		c.cache = cache
	}
}

// New builds a Controller.
func New(reg *registry.Registry, pub Publisher, log logger.Logger, opts ...Option) *Controller {
	if log == nil {
		log = logger.NewTestLogger()
	}

	c := &Controller{
		registry:  reg,
		publisher: pub,
		logger:    log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetEnabled sets the activation flag of a known device and broadcasts the
// change. Commanding an unknown device is a no-op reported with ok=false.
// Repeating a command is harmless and re-announces the current value.
func (c *Controller) SetEnabled(ctx context.Context, actor, deviceID string, enabled bool) (models.DeviceRecord, bool) {
	rec, ok := c.registry.SetEnabled(deviceID, enabled)
	if !ok {
		c.logger.Debug().Str("device_id", deviceID).Msg("SetEnabled on unknown device ignored")

		return models.DeviceRecord{}, false
	}

	c.publisher.Publish(models.DeviceConfigEvent{DeviceID: deviceID, Enabled: &enabled})
	c.audit(ctx, ActionSetEnabled, actor, map[string]any{"deviceId": deviceID, "enabled": enabled})

	return rec, true
}

// SetEcoMode sets the power-saving flag of a known device and broadcasts the
// change. Unknown devices are ignored.
func (c *Controller) SetEcoMode(ctx context.Context, actor, deviceID string, ecoMode bool) (models.DeviceRecord, bool) {
	rec, ok := c.registry.SetEcoMode(deviceID, ecoMode)
	if !ok {
		c.logger.Debug().Str("device_id", deviceID).Msg("SetEcoMode on unknown device ignored")

		return models.DeviceRecord{}, false
	}

	c.publisher.Publish(models.DeviceConfigEvent{DeviceID: deviceID, EcoMode: &ecoMode})
	c.audit(ctx, ActionSetEcoMode, actor, map[string]any{"deviceId": deviceID, "ecoMode": ecoMode})

	return rec, true
}

// SetThreshold stores a threshold (global when deviceID is nil), records an
// audit entry, flushes the resolver cache and broadcasts the full table.
func (c *Controller) SetThreshold(
	ctx context.Context, actor string, deviceID *string, thresholdDb float64,
) ([]models.Threshold, error) {
	if c.store == nil {
		return nil, ErrStoreUnavailable
	}

	if math.IsNaN(thresholdDb) || math.IsInf(thresholdDb, 0) {
		return nil, ErrInvalidThreshold
	}

	if deviceID != nil && *deviceID == "" {
		return nil, ErrEmptyDeviceID
	}

	if err := c.store.UpsertThreshold(ctx, deviceID, thresholdDb); err != nil {
		return nil, fmt.Errorf("set threshold: %w", err)
	}

	auditData := map[string]any{"deviceId": nil, "thresholdDb": thresholdDb}
	if deviceID != nil {
		auditData["deviceId"] = *deviceID
	}

	c.audit(ctx, ActionSetThreshold, actor, auditData)

	if c.cache != nil {
		c.cache.Invalidate()
	}

	thresholds, err := c.store.ListThresholds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}

	c.publisher.Publish(models.ThresholdsEvent{Thresholds: thresholds})

	return thresholds, nil
}

// Thresholds returns the stored threshold table.
func (c *Controller) Thresholds(ctx context.Context) ([]models.Threshold, error) {
	if c.store == nil {
		return nil, ErrStoreUnavailable
	}

	return c.store.ListThresholds(ctx)
}

// Audit returns the most recent operator actions.
func (c *Controller) Audit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if c.store == nil {
		return nil, ErrStoreUnavailable
	}

	return c.store.ListAudit(ctx, limit)
}

// Devices returns a snapshot of every known device.
func (c *Controller) Devices() []models.DeviceRecord {
	return c.registry.List()
}

// Device returns one device.
func (c *Controller) Device(deviceID string) (models.DeviceRecord, bool) {
	return c.registry.Get(deviceID)
}

func (c *Controller) audit(ctx context.Context, action, actor string, data map[string]any) {
	if c.store == nil {
		return
	}

	if err := c.store.WriteAudit(ctx, action, actor, data); err != nil {
		c.logger.Warn().Err(err).Str("action", action).Str("actor", actor).Msg("Failed to write audit entry")
	}
}
