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

package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	registryMeterName        = "github.com/carverauto/noiseradar/pkg/registry"
	metricDevicesOnlineName  = "registry_devices_online"
	metricDevicesOfflineName = "registry_devices_offline"
)

type registryMetricsObservatory struct {
	online  atomic.Int64
	offline atomic.Int64
}

var (
	//nolint:gochecknoglobals // metric observers are shared singletons
	registryMetricsOnce sync.Once
	//nolint:gochecknoglobals // metric observers are shared singletons
	registryMetricsData = &registryMetricsObservatory{}
	//nolint:gochecknoglobals // metric observers are shared singletons
	registryMetricsGauges struct {
		online  metric.Int64ObservableGauge
		offline metric.Int64ObservableGauge
	}
	registryMetricsRegistration metric.Registration //nolint:unused,gochecknoglobals // kept to retain callback
)

func initRegistryMetrics() {
	meter := otel.Meter(registryMeterName)

	var err error

	registryMetricsGauges.online, err = meter.Int64ObservableGauge(
		metricDevicesOnlineName,
		metric.WithDescription("Number of sensors currently ONLINE"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	registryMetricsGauges.offline, err = meter.Int64ObservableGauge(
		metricDevicesOfflineName,
		metric.WithDescription("Number of known sensors currently OFFLINE"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(registryMetricsGauges.online, registryMetricsData.online.Load())
		observer.ObserveInt64(registryMetricsGauges.offline, registryMetricsData.offline.Load())

		return nil
	},
		registryMetricsGauges.online,
		registryMetricsGauges.offline,
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	registryMetricsRegistration = registration
}

func recordRegistryMetrics(online, offline int) {
	registryMetricsOnce.Do(initRegistryMetrics)

	registryMetricsData.online.Store(int64(online))
	registryMetricsData.offline.Store(int64(offline))
}
