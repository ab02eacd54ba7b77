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

package ingest

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const ingestMeterName = "github.com/carverauto/noiseradar/pkg/ingest"

// tracer delegates to whichever provider InitializeTracing installs.
//
//nolint:gochecknoglobals // shared tracer
var tracer = otel.Tracer(ingestMeterName)

const (
	kindReading    = "reading"
	kindStatus     = "status"
	kindDiagnostic = "diagnostic"
)

var (
	//nolint:gochecknoglobals // instruments are shared singletons
	ingestMetricsOnce sync.Once
	//nolint:gochecknoglobals // instruments are shared singletons
	ingestMessages metric.Int64Counter
	//nolint:gochecknoglobals // instruments are shared singletons
	ingestDecodeFailures metric.Int64Counter
	//nolint:gochecknoglobals // instruments are shared singletons
	ingestStorageFailures metric.Int64Counter
	//nolint:gochecknoglobals // instruments are shared singletons
	ingestStorageDropped metric.Int64Counter
	//nolint:gochecknoglobals // instruments are shared singletons
	ingestAlerts metric.Int64Counter
)

func initIngestMetrics() {
	meter := otel.Meter(ingestMeterName)

	ingestMessages = newCounter(meter, "ingest_messages_total", "Transport messages handled, by kind")
	ingestDecodeFailures = newCounter(meter, "ingest_decode_failures_total", "Messages dropped by the codec, by reason")
	ingestStorageFailures = newCounter(meter, "ingest_storage_failures_total", "Readings the storage collaborator rejected")
	ingestStorageDropped = newCounter(meter, "ingest_storage_dropped_total", "Readings dropped because the write queue was full")
	ingestAlerts = newCounter(meter, "ingest_alerts_total", "Alert events published")
}

func newCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)
		return nil
	}

	return counter
}

func addCounter(counter *metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	ingestMetricsOnce.Do(initIngestMetrics)

	if *counter == nil || n == 0 {
		return
	}

	(*counter).Add(context.Background(), n, metric.WithAttributes(attrs...))
}

func recordMessage(kind string) {
	addCounter(&ingestMessages, 1, attribute.String("kind", kind))
}

func recordDecodeFailure(reason string) {
	addCounter(&ingestDecodeFailures, 1, attribute.String("reason", reason))
}

func recordStorageFailures(n int) {
	addCounter(&ingestStorageFailures, int64(n))
}

func recordStorageDropped() {
	addCounter(&ingestStorageDropped, 1)
}

func recordAlert() {
	addCounter(&ingestAlerts, 1)
}
