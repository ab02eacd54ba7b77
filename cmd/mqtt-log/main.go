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

// mqtt-log subscribes to the sensor topics and logs every message it sees.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carverauto/noiseradar/pkg/codec"
	"github.com/carverauto/noiseradar/pkg/lifecycle"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/mqtt"
)

const previewLimit = 200

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
	username := flag.String("username", os.Getenv("MQTT_USERNAME"), "MQTT username")
	password := flag.String("password", os.Getenv("MQTT_PASSWORD"), "MQTT password")
	topics := flag.String("topics", "", "Comma separated topic filters (default: readings, status and $SYS/#)")
	decode := flag.Bool("decode", true, "Decode sensor messages and log the result")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := logger.DefaultConfig()
	cfg.Level = "debug"

	logr, err := lifecycle.CreateComponentLogger(ctx, "mqtt-log", cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	scheme := codec.DefaultTopicScheme()

	session, err := mqtt.NewSession(mqtt.Config{
		BrokerURL:     *broker,
		Username:      *username,
		Password:      *password,
		ClientID:      mqtt.ClientID("mqtt-log"),
		CleanSession:  true,
		Subscriptions: subscriptions(*topics, scheme),
	}, logr)
	if err != nil {
		log.Fatalf("Failed to create MQTT session: %v", err)
	}

	if err := session.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to %s: %v", *broker, err)
	}
	defer session.Disconnect()

	decoder := codec.NewDecoder(scheme)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-session.Messages():
			if !ok {
				return
			}

			logMessage(logr, decoder, msg, *decode)
		}
	}
}

func subscriptions(raw string, scheme codec.TopicScheme) []mqtt.Subscription {
	if strings.TrimSpace(raw) == "" {
		return mqtt.SubscriptionsFor(scheme, true)
	}

	var subs []mqtt.Subscription

	for _, filter := range strings.Split(raw, ",") {
		if filter = strings.TrimSpace(filter); filter != "" {
			subs = append(subs, mqtt.Subscription{Filter: filter, QoS: mqtt.AtLeastOnce})
		}
	}

	return subs
}

func logMessage(logr logger.Logger, decoder *codec.Decoder, msg mqtt.Message, decode bool) {
	payload := string(msg.Payload)
	if len(payload) > previewLimit {
		payload = payload[:previewLimit] + "..."
	}

	event := logr.Info().
		Str("topic", msg.Topic).
		Uint8("qos", msg.QoS).
		Bool("retained", msg.Retained).
		Str("payload", payload)

	if decode && !codec.IsDiagnosticTopic(msg.Topic) {
		receivedAt := msg.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = time.Now()
		}

		decoded, err := decoder.Decode(msg.Topic, msg.Payload, receivedAt)
		if err != nil {
			event = event.Str("decode_error", err.Error())
		} else {
			event = event.Interface("decoded", decoded)
		}
	}

	event.Msg("Message")
}
