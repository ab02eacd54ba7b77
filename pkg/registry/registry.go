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

// Package registry keeps the authoritative in-memory state of every sensor
// and owns the ONLINE/OFFLINE liveness state machine.
package registry

import (
	"sort"
	"sync"

	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
)

// Registry maps device IDs to records. Every mutation goes through apply with
// an update intent so the per-field merge rule lives in one place. Reads
// return copies; callers never see registry-owned pointers.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*models.DeviceRecord
	online  int
	offline int
	logger  logger.Logger
}

// New creates an empty registry.
func New(log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Registry{
		devices: make(map[string]*models.DeviceRecord),
		logger:  log,
	}
}

// RecordReading marks the device ONLINE and stores the latest level. A record
// is created on first sight.
func (r *Registry) RecordReading(deviceID, zone string, noiseDb float64, receivedAtMs int64) models.DeviceRecord {
	rec, _ := r.upsert(deviceID, readingUpdate{zone: zone, noiseDb: noiseDb, at: receivedAtMs}, true)

	return rec
}

// RecordStatus applies a sensor's own online/offline assertion.
func (r *Registry) RecordStatus(deviceID, zone string, online bool, receivedAtMs int64) models.DeviceRecord {
	rec, _ := r.upsert(deviceID, statusUpdate{zone: zone, online: online, at: receivedAtMs}, true)

	return rec
}

// SetEnabled changes the operator activation flag. Unknown devices are left
// alone and reported with ok=false.
func (r *Registry) SetEnabled(deviceID string, enabled bool) (models.DeviceRecord, bool) {
	return r.upsert(deviceID, enabledUpdate{enabled: enabled}, false)
}

// SetEcoMode changes the operator power-saving flag. Unknown devices are left
// alone and reported with ok=false.
func (r *Registry) SetEcoMode(deviceID string, ecoMode bool) (models.DeviceRecord, bool) {
	return r.upsert(deviceID, ecoModeUpdate{ecoMode: ecoMode}, false)
}

// SweepOffline demotes every ONLINE device silent for longer than thresholdMs
// and returns the demoted records. Devices already OFFLINE are skipped, so a
// repeated sweep over the same silence returns nothing.
func (r *Registry) SweepOffline(nowMs, thresholdMs int64) []models.DeviceRecord {
	r.mu.Lock()

	var transitioned []models.DeviceRecord

	for id, rec := range r.devices {
		if !rec.IsOnline() || nowMs-rec.LastSeen <= thresholdMs {
			continue
		}

		next := apply(rec, offlineUpdate{})
		r.devices[id] = next
		r.online--
		r.offline++
		transitioned = append(transitioned, next.Clone())
	}

	online, offline := r.online, r.offline
	r.mu.Unlock()

	recordRegistryMetrics(online, offline)

	sortRecords(transitioned)

	for i := range transitioned {
		r.logger.Info().
			Str("device_id", transitioned[i].DeviceID).
			Int64("last_seen", transitioned[i].LastSeen).
			Msg("Device marked offline after silence")
	}

	return transitioned
}

// List returns a snapshot of every record sorted by device ID.
func (r *Registry) List() []models.DeviceRecord {
	r.mu.RLock()

	out := make([]models.DeviceRecord, 0, len(r.devices))
	for _, rec := range r.devices {
		out = append(out, rec.Clone())
	}

	r.mu.RUnlock()

	sortRecords(out)

	return out
}

// Counts reports how many known devices are ONLINE and OFFLINE.
func (r *Registry) Counts() (online, offline int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.online, r.offline
}

// Get returns a copy of one record.
func (r *Registry) Get(deviceID string) (models.DeviceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.devices[deviceID]
	if !ok {
		return models.DeviceRecord{}, false
	}

	return rec.Clone(), true
}

// Len reports the number of known devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.devices)
}

func (r *Registry) upsert(deviceID string, intent update, create bool) (models.DeviceRecord, bool) {
	r.mu.Lock()

	prev, exists := r.devices[deviceID]
	if !exists && !create {
		r.mu.Unlock()

		r.logger.Debug().Str("device_id", deviceID).Msg("Ignoring command for unknown device")

		return models.DeviceRecord{}, false
	}

	if !exists {
		prev = newRecord(deviceID)
	}

	next := apply(prev, intent)
	r.devices[deviceID] = next
	out := next.Clone()

	if exists {
		r.track(prev, -1)
	}

	r.track(next, 1)

	online, offline := r.online, r.offline
	r.mu.Unlock()

	recordRegistryMetrics(online, offline)

	return out, true
}

// track adjusts the liveness counters by delta for rec. Callers hold mu.
func (r *Registry) track(rec *models.DeviceRecord, delta int) {
	if rec.IsOnline() {
		r.online += delta
	} else {
		r.offline += delta
	}
}

func sortRecords(records []models.DeviceRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].DeviceID < records[j].DeviceID
	})
}
