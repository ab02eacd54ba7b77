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

package mqtt

//go:generate mockgen -destination=mock_mqtt.go -package=mqtt github.com/carverauto/noiseradar/pkg/mqtt Session

import (
	"context"
	"time"
)

// ConnectionStatus is the observable state of the broker session.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusReconnecting ConnectionStatus = "reconnecting"
)

// QoS levels used by subscriptions.
const (
	AtMostOnce  byte = 0
	AtLeastOnce byte = 1
)

// Message is one inbound publish, copied out of the client library.
type Message struct {
	Topic      string
	Payload    []byte
	QoS        byte
	Retained   bool
	Duplicate  bool
	ReceivedAt time.Time
}

// Subscription is a topic filter and the QoS requested for it.
type Subscription struct {
	Filter string
	QoS    byte
}

// Session is a broker connection that redelivers its subscriptions after
// every reconnect and hands messages to a single consumer in arrival order.
type Session interface {
	Connect(ctx context.Context) error
	Messages() <-chan Message
	Status() ConnectionStatus
	Disconnect()
}
