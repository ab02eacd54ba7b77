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

// Package codec turns raw transport messages into typed sensor messages.
package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

const diagnosticPrefix = "$SYS/"

// TopicScheme names the fixed segments of <namespace>/<category>/<zone>/<kind>.
type TopicScheme struct {
	Namespace   string
	Category    string
	ReadingKind string
	StatusKind  string
}

// DefaultTopicScheme matches campus/bruit/<zone>/db and campus/bruit/<zone>/status.
func DefaultTopicScheme() TopicScheme {
	return TopicScheme{
		Namespace:   "campus",
		Category:    "bruit",
		ReadingKind: "db",
		StatusKind:  "status",
	}
}

// WithDefaults fills empty segments from DefaultTopicScheme.
func (s TopicScheme) WithDefaults() TopicScheme {
	def := DefaultTopicScheme()

	if s.Namespace == "" {
		s.Namespace = def.Namespace
	}

	if s.Category == "" {
		s.Category = def.Category
	}

	if s.ReadingKind == "" {
		s.ReadingKind = def.ReadingKind
	}

	if s.StatusKind == "" {
		s.StatusKind = def.StatusKind
	}

	return s
}

// ReadingFilter is the subscription filter for readings, e.g. campus/bruit/+/db.
func (s TopicScheme) ReadingFilter() string {
	return s.Namespace + "/" + s.Category + "/+/" + s.ReadingKind
}

// StatusFilter is the subscription filter for status reports.
func (s TopicScheme) StatusFilter() string {
	return s.Namespace + "/" + s.Category + "/+/" + s.StatusKind
}

// IsDiagnosticTopic reports whether topic is a broker $SYS topic.
func IsDiagnosticTopic(topic string) bool {
	return strings.HasPrefix(topic, diagnosticPrefix)
}

// Message is the closed set of decoded sensor messages: NoiseReading or
// StatusReport.
type Message interface {
	Device() string
	message()
}

// NoiseReading is one acoustic sample.
type NoiseReading struct {
	DeviceID        string
	Zone            string
	NoiseDb         float64
	SensorTimestamp float64
	TimestampMs     int64
}

// StatusReport is a sensor's own assertion of liveness.
type StatusReport struct {
	DeviceID        string
	Zone            string
	Online          bool
	SensorTimestamp float64
	TimestampMs     int64
}

func (r *NoiseReading) Device() string { return r.DeviceID }
func (r *StatusReport) Device() string { return r.DeviceID }

func (*NoiseReading) message() {}
func (*StatusReport) message() {}

// Decoder validates topics and payloads against a TopicScheme. It holds no
// mutable state and is safe for concurrent use.
type Decoder struct {
	scheme TopicScheme
}

// NewDecoder builds a Decoder; empty scheme fields take their defaults.
func NewDecoder(scheme TopicScheme) *Decoder {
	return &Decoder{scheme: scheme.WithDefaults()}
}

// Scheme returns the effective topic scheme.
func (d *Decoder) Scheme() TopicScheme {
	return d.scheme
}

// Decode parses one transport message. Every failure is a *DecodeError
// matching one of ErrUnrecognizedTopic, ErrInvalidPayload or ErrSchemaViolation.
func (d *Decoder) Decode(topic string, payload []byte, receivedAt time.Time) (Message, error) {
	zone, kind, ok := d.splitTopic(topic)
	if !ok {
		return nil, newDecodeError(ErrUnrecognizedTopic, topic, payload, nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, newDecodeError(ErrInvalidPayload, topic, payload, err)
	}

	switch kind {
	case d.scheme.ReadingKind:
		return d.decodeReading(topic, zone, payload, fields, receivedAt)
	default:
		return d.decodeStatus(topic, zone, payload, fields, receivedAt)
	}
}

func (d *Decoder) splitTopic(topic string) (zone, kind string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return "", "", false
	}

	if parts[0] != d.scheme.Namespace || parts[1] != d.scheme.Category || parts[2] == "" {
		return "", "", false
	}

	if parts[3] != d.scheme.ReadingKind && parts[3] != d.scheme.StatusKind {
		return "", "", false
	}

	return parts[2], parts[3], true
}

func (*Decoder) decodeReading(
	topic, zone string, payload []byte, fields map[string]json.RawMessage, receivedAt time.Time,
) (Message, error) {
	valueKey := "value"
	if _, ok := fields[valueKey]; !ok {
		valueKey = "db"
	}

	value, err := numberField(fields, valueKey)
	if err != nil {
		return nil, newDecodeError(ErrSchemaViolation, topic, payload, err)
	}

	sensorID, ts, err := commonFields(fields)
	if err != nil {
		return nil, newDecodeError(ErrSchemaViolation, topic, payload, err)
	}

	return &NoiseReading{
		DeviceID:        sensorID,
		Zone:            zone,
		NoiseDb:         value,
		SensorTimestamp: ts,
		TimestampMs:     NormalizeTimestampMs(ts, receivedAt),
	}, nil
}

func (*Decoder) decodeStatus(
	topic, zone string, payload []byte, fields map[string]json.RawMessage, receivedAt time.Time,
) (Message, error) {
	online, err := boolField(fields, "online")
	if err != nil {
		return nil, newDecodeError(ErrSchemaViolation, topic, payload, err)
	}

	sensorID, ts, err := commonFields(fields)
	if err != nil {
		return nil, newDecodeError(ErrSchemaViolation, topic, payload, err)
	}

	return &StatusReport{
		DeviceID:        sensorID,
		Zone:            zone,
		Online:          online,
		SensorTimestamp: ts,
		TimestampMs:     NormalizeTimestampMs(ts, receivedAt),
	}, nil
}

// commonFields validates sensorId, zone and ts. The payload zone must be
// present but the topic's zone segment is authoritative.
func commonFields(fields map[string]json.RawMessage) (sensorID string, ts float64, err error) {
	sensorID, err = stringField(fields, "sensorId")
	if err != nil {
		return "", 0, err
	}

	if _, err = stringField(fields, "zone"); err != nil {
		return "", 0, err
	}

	ts, err = numberField(fields, "ts")
	if err != nil {
		return "", 0, err
	}

	return sensorID, ts, nil
}

// lookup treats an explicit JSON null like a missing key, since decoding null
// into a Go scalar silently leaves the zero value.
func lookup(fields map[string]json.RawMessage, key string) (json.RawMessage, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return nil, fmt.Errorf("%w: %s", errFieldMissing, key)
	}

	return raw, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, err := lookup(fields, key)
	if err != nil {
		return "", err
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", errFieldType, key)
	}

	if s == "" {
		return "", fmt.Errorf("%w: %s", errFieldEmpty, key)
	}

	return s, nil
}

func numberField(fields map[string]json.RawMessage, key string) (float64, error) {
	raw, err := lookup(fields, key)
	if err != nil {
		return 0, err
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errFieldType, key)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s", errFieldNotFinite, key)
	}

	return f, nil
}

func boolField(fields map[string]json.RawMessage, key string) (bool, error) {
	raw, err := lookup(fields, key)
	if err != nil {
		return false, err
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errFieldType, key)
	}

	return b, nil
}
