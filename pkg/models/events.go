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

import (
	"encoding/json"
	"time"
)

// EventType tags every BroadcastEvent on the wire.
type EventType string

const (
	EventNoise        EventType = "noise"
	EventAlert        EventType = "alert"
	EventDeviceStatus EventType = "device_status"
	EventDeviceConfig EventType = "device_config"
	EventThresholds   EventType = "thresholds"
)

// BroadcastEvent is the closed set of events pushed to live subscribers.
// Implementations are plain values and must not be mutated after publish.
type BroadcastEvent interface {
	EventType() EventType
	broadcastEvent()
}

// NoiseEvent is a telemetry update for one reading.
type NoiseEvent struct {
	DeviceID  string  `json:"deviceId"`
	Zone      string  `json:"zone"`
	NoiseDb   float64 `json:"noiseDb"`
	Timestamp int64   `json:"ts"`
}

// DeviceStatusEvent reports a liveness change.
type DeviceStatusEvent struct {
	DeviceID string       `json:"deviceId"`
	Zone     string       `json:"zone"`
	Status   DeviceStatus `json:"status"`
	LastSeen int64        `json:"lastSeen"`
}

// DeviceConfigEvent reports an operator toggle. Only the changed field is set.
type DeviceConfigEvent struct {
	DeviceID string `json:"deviceId"`
	Enabled  *bool  `json:"enabled,omitempty"`
	EcoMode  *bool  `json:"ecoMode,omitempty"`
}

// ThresholdsEvent carries the full threshold table after an operator change.
type ThresholdsEvent struct {
	Thresholds []Threshold `json:"thresholds"`
}

func (NoiseEvent) EventType() EventType        { return EventNoise }
func (AlertEvent) EventType() EventType        { return EventAlert }
func (DeviceStatusEvent) EventType() EventType { return EventDeviceStatus }
func (DeviceConfigEvent) EventType() EventType { return EventDeviceConfig }
func (ThresholdsEvent) EventType() EventType   { return EventThresholds }

func (NoiseEvent) broadcastEvent()        {}
func (AlertEvent) broadcastEvent()        {}
func (DeviceStatusEvent) broadcastEvent() {}
func (DeviceConfigEvent) broadcastEvent() {}
func (ThresholdsEvent) broadcastEvent()   {}

func (e NoiseEvent) MarshalJSON() ([]byte, error) {
	type alias NoiseEvent

	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{EventNoise, alias(e)})
}

func (e AlertEvent) MarshalJSON() ([]byte, error) {
	type alias AlertEvent

	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{EventAlert, alias(e)})
}

func (e DeviceStatusEvent) MarshalJSON() ([]byte, error) {
	type alias DeviceStatusEvent

	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{EventDeviceStatus, alias(e)})
}

func (e DeviceConfigEvent) MarshalJSON() ([]byte, error) {
	type alias DeviceConfigEvent

	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{EventDeviceConfig, alias(e)})
}

func (e ThresholdsEvent) MarshalJSON() ([]byte, error) {
	type alias ThresholdsEvent

	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{EventThresholds, alias(e)})
}

// StatusEventFor builds the liveness event for a registry record.
func StatusEventFor(rec *DeviceRecord) DeviceStatusEvent {
	return DeviceStatusEvent{
		DeviceID: rec.DeviceID,
		Zone:     rec.Zone,
		Status:   rec.Status,
		LastSeen: rec.LastSeen,
	}
}

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	DataContentType string          `json:"datacontenttype"`
	Subject         string          `json:"subject,omitempty"`
	Time            *time.Time      `json:"time,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}
