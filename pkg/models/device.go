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

package models

// DeviceStatus is the dashboard-derived liveness of a sensor.
type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "ONLINE"
	DeviceOffline DeviceStatus = "OFFLINE"
)

// DeviceRecord is the registry's view of one physical noise sensor.
type DeviceRecord struct {
	DeviceID string       `json:"deviceId"`
	Zone     string       `json:"zone"`
	LastSeen int64        `json:"lastSeen"` // unix ms
	Status   DeviceStatus `json:"status"`

	// SensorReportedOnline is the last value the sensor asserted on its status
	// topic. Nil until the sensor has sent one.
	SensorReportedOnline *bool `json:"sensorOnline"`

	LatestNoiseDb *float64 `json:"latestNoiseDb,omitempty"`
	Enabled       bool     `json:"enabled"`
	EcoMode       bool     `json:"ecoMode"`
}

// Clone returns a deep copy so callers can't reach registry-owned pointers.
func (d *DeviceRecord) Clone() DeviceRecord {
	out := *d

	if d.SensorReportedOnline != nil {
		v := *d.SensorReportedOnline
		out.SensorReportedOnline = &v
	}

	if d.LatestNoiseDb != nil {
		v := *d.LatestNoiseDb
		out.LatestNoiseDb = &v
	}

	return out
}

// IsOnline reports whether the record is currently ONLINE.
func (d *DeviceRecord) IsOnline() bool {
	return d.Status == DeviceOnline
}
