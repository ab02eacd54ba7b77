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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastEventJSONCarriesType(t *testing.T) {
	t.Parallel()

	enabled := true
	rec := DeviceRecord{DeviceID: "S1", Zone: "Z1", Status: DeviceOffline, LastSeen: 42}

	tests := []struct {
		name  string
		event BroadcastEvent
		want  string
	}{
		{
			name:  "noise",
			event: NoiseEvent{DeviceID: "S1", Zone: "Z1", NoiseDb: 61.5, Timestamp: 1000},
			want:  `{"type":"noise","deviceId":"S1","zone":"Z1","noiseDb":61.5,"ts":1000}`,
		},
		{
			name:  "alert",
			event: AlertEvent{DeviceID: "S1", Zone: "Z1", NoiseDb: 92, ThresholdDb: 85, Timestamp: 1000},
			want:  `{"type":"alert","deviceId":"S1","zone":"Z1","noiseDb":92,"thresholdDb":85,"ts":1000}`,
		},
		{
			name:  "device status",
			event: StatusEventFor(&rec),
			want:  `{"type":"device_status","deviceId":"S1","zone":"Z1","status":"OFFLINE","lastSeen":42}`,
		},
		{
			name:  "device config omits unchanged flags",
			event: DeviceConfigEvent{DeviceID: "S1", Enabled: &enabled},
			want:  `{"type":"device_config","deviceId":"S1","enabled":true}`,
		},
		{
			name:  "thresholds",
			event: ThresholdsEvent{Thresholds: []Threshold{GlobalThreshold(85), DeviceThreshold("S1", 70)}},
			want: `{"type":"thresholds","thresholds":[{"deviceId":null,"thresholdDb":85},` +
				`{"deviceId":"S1","thresholdDb":70}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestDeviceRecordCloneIsDeep(t *testing.T) {
	t.Parallel()

	db := 50.0
	online := true
	rec := DeviceRecord{DeviceID: "S1", LatestNoiseDb: &db, SensorReportedOnline: &online}

	clone := rec.Clone()
	*clone.LatestNoiseDb = 99
	*clone.SensorReportedOnline = false

	assert.InDelta(t, 50.0, *rec.LatestNoiseDb, 0.001)
	assert.True(t, *rec.SensorReportedOnline)
}

func TestDurationUnmarshal(t *testing.T) {
	t.Parallel()

	var d Duration

	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, time.Duration(d))

	require.NoError(t, json.Unmarshal([]byte(`2000000000`), &d))
	assert.Equal(t, 2*time.Second, time.Duration(d))

	require.ErrorIs(t, json.Unmarshal([]byte(`"soon"`), &d), errInvalidDuration)
	require.ErrorIs(t, json.Unmarshal([]byte(`true`), &d), errInvalidDuration)
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, (&MQTTConfig{}).Validate(), errMQTTBroker)
	require.NoError(t, (&MQTTConfig{BrokerURL: "tcp://b:1883"}).Validate())

	require.ErrorIs(t, (&NATSConfig{}).Validate(), errNATSURLRequired)

	err := (&CNPGDatabase{}).Validate()
	require.ErrorIs(t, err, errCNPGHost)
	require.ErrorIs(t, err, errCNPGDatabase)
}
