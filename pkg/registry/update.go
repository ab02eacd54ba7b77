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

package registry

import "github.com/carverauto/noiseradar/pkg/models"

// update is an intent describing how one message or command changes a record.
type update interface {
	merge(next *models.DeviceRecord)
}

type readingUpdate struct {
	zone    string
	noiseDb float64
	at      int64
}

type statusUpdate struct {
	zone   string
	online bool
	at     int64
}

type enabledUpdate struct {
	enabled bool
}

type ecoModeUpdate struct {
	ecoMode bool
}

type offlineUpdate struct{}

func newRecord(deviceID string) *models.DeviceRecord {
	return &models.DeviceRecord{
		DeviceID: deviceID,
		Status:   models.DeviceOffline,
		Enabled:  true,
	}
}

// apply never mutates prev; it returns a fresh record so readers holding an
// earlier Clone are unaffected.
func apply(prev *models.DeviceRecord, u update) *models.DeviceRecord {
	next := prev.Clone()
	u.merge(&next)

	return &next
}

func (u readingUpdate) merge(next *models.DeviceRecord) {
	db := u.noiseDb

	next.Zone = u.zone
	next.Status = models.DeviceOnline
	next.LatestNoiseDb = &db
	next.LastSeen = maxInt64(next.LastSeen, u.at)
}

func (u statusUpdate) merge(next *models.DeviceRecord) {
	online := u.online

	next.Zone = u.zone
	next.SensorReportedOnline = &online
	next.LastSeen = maxInt64(next.LastSeen, u.at)

	if online {
		next.Status = models.DeviceOnline
	} else {
		next.Status = models.DeviceOffline
	}
}

func (u enabledUpdate) merge(next *models.DeviceRecord) {
	next.Enabled = u.enabled
}

func (u ecoModeUpdate) merge(next *models.DeviceRecord) {
	next.EcoMode = u.ecoMode
}

func (offlineUpdate) merge(next *models.DeviceRecord) {
	reported := false

	next.Status = models.DeviceOffline
	next.SensorReportedOnline = &reported
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}

	return b
}
