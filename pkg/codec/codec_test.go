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

package codec

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var receivedAt = time.UnixMilli(1_750_000_000_123)

func TestDecodeReading(t *testing.T) {
	t.Parallel()

	d := NewDecoder(TopicScheme{})

	msg, err := d.Decode("campus/bruit/Z1/db",
		[]byte(`{"value":92.0,"sensorId":"S1","zone":"Z1","ts":1700000000000}`), receivedAt)
	require.NoError(t, err)

	reading, ok := msg.(*NoiseReading)
	require.True(t, ok, "expected *NoiseReading, got %T", msg)
	assert.Equal(t, "S1", reading.DeviceID)
	assert.Equal(t, "S1", reading.Device())
	assert.Equal(t, "Z1", reading.Zone)
	assert.InDelta(t, 92.0, reading.NoiseDb, 1e-9)
	assert.Equal(t, int64(1_700_000_000_000), reading.TimestampMs)
}

func TestDecodeReadingAcceptsDbAlias(t *testing.T) {
	t.Parallel()

	d := NewDecoder(DefaultTopicScheme())

	msg, err := d.Decode("campus/bruit/hall/db",
		[]byte(`{"db":61.5,"sensorId":"S2","zone":"hall","ts":1700000000}`), receivedAt)
	require.NoError(t, err)

	reading := msg.(*NoiseReading)
	assert.InDelta(t, 61.5, reading.NoiseDb, 1e-9)
	assert.Equal(t, int64(1_700_000_000_000), reading.TimestampMs)
}

func TestDecodeStatus(t *testing.T) {
	t.Parallel()

	d := NewDecoder(DefaultTopicScheme())

	msg, err := d.Decode("campus/bruit/Z1/status",
		[]byte(`{"online":false,"sensorId":"S1","zone":"Z1","ts":42}`), receivedAt)
	require.NoError(t, err)

	status, ok := msg.(*StatusReport)
	require.True(t, ok)
	assert.False(t, status.Online)
	assert.Equal(t, "Z1", status.Zone)
	assert.Equal(t, receivedAt.UnixMilli(), status.TimestampMs)
}

func TestDecodeTopicZoneIsAuthoritative(t *testing.T) {
	t.Parallel()

	d := NewDecoder(DefaultTopicScheme())

	msg, err := d.Decode("campus/bruit/library/db",
		[]byte(`{"value":50,"sensorId":"S3","zone":"somewhere-else","ts":1700000000000}`), receivedAt)
	require.NoError(t, err)
	assert.Equal(t, "library", msg.(*NoiseReading).Zone)
}

func TestDecodeCustomScheme(t *testing.T) {
	t.Parallel()

	d := NewDecoder(TopicScheme{Namespace: "site", Category: "noise", ReadingKind: "level", StatusKind: "alive"})

	assert.Equal(t, "site/noise/+/level", d.Scheme().ReadingFilter())
	assert.Equal(t, "site/noise/+/alive", d.Scheme().StatusFilter())

	_, err := d.Decode("site/noise/a/level", []byte(`{"value":1,"sensorId":"x","zone":"a","ts":1}`), receivedAt)
	require.NoError(t, err)

	_, err = d.Decode("campus/bruit/a/db", []byte(`{"value":1,"sensorId":"x","zone":"a","ts":1}`), receivedAt)
	require.ErrorIs(t, err, ErrUnrecognizedTopic)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		topic   string
		payload string
		want    error
	}{
		{"too few segments", "campus/bruit/db", `{}`, ErrUnrecognizedTopic},
		{"too many segments", "campus/bruit/Z1/db/extra", `{}`, ErrUnrecognizedTopic},
		{"wrong namespace", "school/bruit/Z1/db", `{}`, ErrUnrecognizedTopic},
		{"wrong category", "campus/light/Z1/db", `{}`, ErrUnrecognizedTopic},
		{"unknown kind", "campus/bruit/Z1/battery", `{}`, ErrUnrecognizedTopic},
		{"empty zone", "campus/bruit//db", `{}`, ErrUnrecognizedTopic},
		{"diagnostic topic", "$SYS/broker/uptime", `42`, ErrUnrecognizedTopic},
		{"not json", "campus/bruit/Z1/db", `not json`, ErrInvalidPayload},
		{"json array", "campus/bruit/Z1/db", `[1,2]`, ErrInvalidPayload},
		{"json null", "campus/bruit/Z1/status", `null`, ErrInvalidPayload},
		{"empty payload", "campus/bruit/Z1/status", ``, ErrInvalidPayload},
		{"missing value", "campus/bruit/Z1/db", `{"sensorId":"S1","zone":"Z1","ts":1}`, ErrSchemaViolation},
		{"string value", "campus/bruit/Z1/db", `{"value":"92","sensorId":"S1","zone":"Z1","ts":1}`, ErrSchemaViolation},
		{"null value", "campus/bruit/Z1/db", `{"value":null,"sensorId":"S1","zone":"Z1","ts":1}`, ErrSchemaViolation},
		{"empty sensor", "campus/bruit/Z1/db", `{"value":1,"sensorId":"","zone":"Z1","ts":1}`, ErrSchemaViolation},
		{"numeric sensor", "campus/bruit/Z1/db", `{"value":1,"sensorId":7,"zone":"Z1","ts":1}`, ErrSchemaViolation},
		{"missing zone", "campus/bruit/Z1/db", `{"value":1,"sensorId":"S1","ts":1}`, ErrSchemaViolation},
		{"missing ts", "campus/bruit/Z1/db", `{"value":1,"sensorId":"S1","zone":"Z1"}`, ErrSchemaViolation},
		{"string online", "campus/bruit/Z1/status", `{"online":"yes","sensorId":"S1","zone":"Z1","ts":1}`, ErrSchemaViolation},
		{"null online", "campus/bruit/Z1/status", `{"online":null,"sensorId":"S1","zone":"Z1","ts":1}`, ErrSchemaViolation},
		{"reading on status topic", "campus/bruit/Z1/status", `{"value":1,"sensorId":"S1","zone":"Z1","ts":1}`, ErrSchemaViolation},
	}

	d := NewDecoder(DefaultTopicScheme())

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			msg, err := d.Decode(tc.topic, []byte(tc.payload), receivedAt)
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, tc.want)

			var decodeErr *DecodeError

			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tc.topic, decodeErr.Topic)
		})
	}
}

func TestDecodeErrorPreviewIsTruncated(t *testing.T) {
	t.Parallel()

	d := NewDecoder(DefaultTopicScheme())
	payload := strings.Repeat("x", 1000)

	_, err := d.Decode("campus/bruit/Z1/db", []byte(payload), receivedAt)

	var decodeErr *DecodeError

	require.ErrorAs(t, err, &decodeErr)
	assert.Len(t, decodeErr.Preview, previewLimit)
	assert.NotErrorIs(t, err, ErrSchemaViolation)
}

func TestNormalizeTimestampMs(t *testing.T) {
	t.Parallel()

	now := time.Now()

	assert.Equal(t, int64(1_700_000_000_000), NormalizeTimestampMs(1_700_000_000_000, now))
	assert.Equal(t, int64(1_700_000_000_000), NormalizeTimestampMs(1_700_000_000, now))
	assert.Equal(t, int64(1_000_000_000_000), NormalizeTimestampMs(1e12, now))
	assert.Equal(t, int64(1_000_000_000_000), NormalizeTimestampMs(1e9, now))
	assert.Equal(t, int64(1_700_000_000_500), NormalizeTimestampMs(1_700_000_000.5, now))

	got := NormalizeTimestampMs(42, now)
	assert.InDelta(t, now.UnixMilli(), got, 1)

	got = NormalizeTimestampMs(-5, now)
	assert.InDelta(t, now.UnixMilli(), got, 1)

	for _, ts := range []float64{1e14, 9e15, 1e19, 1e300} {
		assert.Equal(t, now.UnixMilli(), NormalizeTimestampMs(ts, now), "ts=%g", ts)
	}

	assert.Equal(t, int64(99_999_999_999_999), NormalizeTimestampMs(99_999_999_999_999, now))
}

func TestIsDiagnosticTopic(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDiagnosticTopic("$SYS/broker/clients/connected"))
	assert.False(t, IsDiagnosticTopic("campus/bruit/Z1/db"))
	assert.False(t, IsDiagnosticTopic("SYS/x"))
}
