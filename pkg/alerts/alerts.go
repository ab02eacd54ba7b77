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

// Package alerts resolves the threshold that applies to a sensor and decides
// whether a reading fires an alert.
package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/noiseradar/pkg/codec"
	"github.com/carverauto/noiseradar/pkg/models"
)

//go:generate mockgen -destination=mock_alerts.go -package=alerts github.com/carverauto/noiseradar/pkg/alerts ThresholdResolver

// ThresholdResolver returns the threshold for a device, or nil when neither a
// device-specific nor a global threshold exists.
type ThresholdResolver interface {
	ResolveThreshold(ctx context.Context, deviceID string) (*models.Threshold, error)
}

// Resolve picks the device-specific threshold, else the global one, else nil.
func Resolve(thresholds []models.Threshold, deviceID string) *models.Threshold {
	var global *models.Threshold

	for i := range thresholds {
		t := thresholds[i]

		if t.DeviceID == nil {
			if global == nil {
				global = &t
			}

			continue
		}

		if *t.DeviceID == deviceID {
			return &t
		}
	}

	return global
}

// Evaluate fires when a threshold exists and noiseDb reaches it. The boundary
// is inclusive and there is no hysteresis: every qualifying reading fires.
func Evaluate(noiseDb float64, threshold *models.Threshold) bool {
	return threshold != nil && noiseDb >= threshold.ThresholdDb
}

// NewAlert builds the alert for a reading that crossed threshold.
func NewAlert(reading *codec.NoiseReading, threshold *models.Threshold) models.AlertEvent {
	return models.AlertEvent{
		DeviceID:    reading.DeviceID,
		Zone:        reading.Zone,
		NoiseDb:     reading.NoiseDb,
		ThresholdDb: threshold.ThresholdDb,
		Timestamp:   reading.TimestampMs,
	}
}

// StaticResolver serves thresholds from memory. It backs tests and
// deployments without a metadata store.
type StaticResolver struct {
	mu         sync.RWMutex
	thresholds []models.Threshold
}

var _ ThresholdResolver = (*StaticResolver)(nil)

// NewStaticResolver copies thresholds into a new resolver.
func NewStaticResolver(thresholds ...models.Threshold) *StaticResolver {
	s := &StaticResolver{}
	s.Replace(thresholds)

	return s
}

func (s *StaticResolver) ResolveThreshold(_ context.Context, deviceID string) (*models.Threshold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Resolve(s.thresholds, deviceID), nil
}

// Upsert sets the threshold for deviceID, or the global one when deviceID is nil.
func (s *StaticResolver) Upsert(deviceID *string, db float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.thresholds {
		if sameDevice(s.thresholds[i].DeviceID, deviceID) {
			s.thresholds[i].ThresholdDb = db
			return
		}
	}

	if deviceID == nil {
		s.thresholds = append(s.thresholds, models.GlobalThreshold(db))
	} else {
		s.thresholds = append(s.thresholds, models.DeviceThreshold(*deviceID, db))
	}
}

// List returns a copy of every threshold.
func (s *StaticResolver) List() []models.Threshold {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Threshold(nil), s.thresholds...)
}

// Replace swaps the whole table.
func (s *StaticResolver) Replace(thresholds []models.Threshold) {
	cp := append([]models.Threshold(nil), thresholds...)

	s.mu.Lock()
	s.thresholds = cp
	s.mu.Unlock()
}

func sameDevice(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}

type cacheEntry struct {
	threshold *models.Threshold
	expires   time.Time
}

// CachingResolver memoizes another resolver per device for ttl. Errors are
// not cached.
type CachingResolver struct {
	next ThresholdResolver
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	gen     uint64
}

var _ ThresholdResolver = (*CachingResolver)(nil)

// NewCachingResolver wraps next. A non-positive ttl disables caching.
func NewCachingResolver(next ThresholdResolver, ttl time.Duration) *CachingResolver {
	return &CachingResolver{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachingResolver) ResolveThreshold(ctx context.Context, deviceID string) (*models.Threshold, error) {
	if c.ttl <= 0 {
		return c.next.ResolveThreshold(ctx, deviceID)
	}

	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[deviceID]
	gen := c.gen
	c.mu.Unlock()

	if ok && now.Before(entry.expires) {
		return entry.threshold, nil
	}

	threshold, err := c.next.ResolveThreshold(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	// A lookup that straddled Invalidate may hold the old value.
	c.mu.Lock()
	if c.gen == gen {
		c.entries[deviceID] = cacheEntry{threshold: threshold, expires: now.Add(c.ttl)}
	}
	c.mu.Unlock()

	return threshold, nil
}

// Invalidate drops every cached entry. A global threshold change affects all
// devices, so entries are not dropped selectively.
func (c *CachingResolver) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.gen++
	c.mu.Unlock()
}
