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

// Threshold is an alert level in dB. A nil DeviceID marks the global default.
type Threshold struct {
	DeviceID    *string `json:"deviceId"`
	ThresholdDb float64 `json:"thresholdDb"`
}

// IsGlobal reports whether the threshold applies to every device without an
// override.
func (t *Threshold) IsGlobal() bool {
	return t.DeviceID == nil
}

// GlobalThreshold builds the fallback threshold.
func GlobalThreshold(db float64) Threshold {
	return Threshold{ThresholdDb: db}
}

// DeviceThreshold builds a per-device override.
func DeviceThreshold(deviceID string, db float64) Threshold {
	id := deviceID

	return Threshold{DeviceID: &id, ThresholdDb: db}
}

// AlertEvent is emitted when a reading reaches its resolved threshold.
type AlertEvent struct {
	DeviceID    string  `json:"deviceId"`
	Zone        string  `json:"zone"`
	NoiseDb     float64 `json:"noiseDb"`
	ThresholdDb float64 `json:"thresholdDb"`
	Timestamp   int64   `json:"ts"`
}
