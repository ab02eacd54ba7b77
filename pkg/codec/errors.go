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
	"fmt"
)

var (
	// ErrUnrecognizedTopic marks a topic outside <namespace>/<category>/<zone>/<kind>.
	ErrUnrecognizedTopic = errors.New("unrecognized topic")
	// ErrInvalidPayload marks a payload that is not a JSON object.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrSchemaViolation marks a JSON payload with missing or mistyped fields.
	ErrSchemaViolation = errors.New("schema violation")

	errFieldMissing   = errors.New("missing field")
	errFieldType      = errors.New("wrong type")
	errFieldEmpty     = errors.New("empty string")
	errFieldNotFinite = errors.New("value is not finite")
)

const previewLimit = 200

// DecodeError describes a dropped message with enough context to find the
// misbehaving producer.
type DecodeError struct {
	Kind    error
	Topic   string
	Preview string
	Cause   error
}

func newDecodeError(kind error, topic string, payload []byte, cause error) *DecodeError {
	return &DecodeError{
		Kind:    kind,
		Topic:   topic,
		Preview: preview(payload),
		Cause:   cause,
	}
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v on %q: %v", e.Kind, e.Topic, e.Cause)
	}

	return fmt.Sprintf("%v on %q", e.Kind, e.Topic)
}

// Is matches the sentinel kind so callers can use errors.Is.
func (e *DecodeError) Is(target error) bool {
	return target == e.Kind
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

func preview(payload []byte) string {
	if len(payload) <= previewLimit {
		return string(payload)
	}

	return string(payload[:previewLimit])
}
