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

package hub

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/noiseradar/pkg/models"
)

const hubMeterName = "github.com/carverauto/noiseradar/pkg/hub"

var (
	//nolint:gochecknoglobals // instruments are shared singletons
	hubMetricsOnce sync.Once
	//nolint:gochecknoglobals // instruments are shared singletons
	hubPublished metric.Int64Counter
	//nolint:gochecknoglobals // instruments are shared singletons
	hubDropped metric.Int64Counter
)

func initHubMetrics() {
	meter := otel.Meter(hubMeterName)

	var err error

	hubPublished, err = meter.Int64Counter(
		"hub_events_published",
		metric.WithDescription("Broadcast events handed to the hub"),
	)
	if err != nil {
		otel.Handle(err)
	}

	hubDropped, err = meter.Int64Counter(
		"hub_events_dropped",
		metric.WithDescription("Per-subscriber deliveries dropped because the subscriber buffer was full"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

func recordPublish(eventType models.EventType, dropped int) {
	hubMetricsOnce.Do(initHubMetrics)

	attrs := metric.WithAttributes(attribute.String("type", string(eventType)))
	ctx := context.Background()

	if hubPublished != nil {
		hubPublished.Add(ctx, 1, attrs)
	}

	if hubDropped != nil && dropped > 0 {
		hubDropped.Add(ctx, int64(dropped), attrs)
	}
}
