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

package logger

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.31.0"
	"google.golang.org/grpc/credentials"
)

const (
	defaultServiceName    = "noiseradar"
	defaultServiceVersion = "dev"
	shutdownTimeout       = 10 * time.Second
)

var (
	ErrOTelEndpointRequired = errors.New("OTel endpoint is required when enabled")
	errFailedToParseCACert  = errors.New("failed to parse CA certificate")
)

// pipelines holds the process-wide OTLP providers so Shutdown can flush them.
//
//nolint:gochecknoglobals // providers are process singletons
var pipelines struct {
	mu      sync.Mutex
	logs    *sdklog.LoggerProvider
	metrics *sdkmetric.MeterProvider
	traces  *sdktrace.TracerProvider
}

// exportTarget is the collector both pipelines ship to.
type exportTarget struct {
	endpoint string
	headers  map[string]string
	insecure bool
	tls      *tls.Config
}

func newExportTarget(cfg *OTelConfig) (exportTarget, error) {
	if cfg.Endpoint == "" {
		return exportTarget{}, ErrOTelEndpointRequired
	}

	target := exportTarget{
		endpoint: cfg.Endpoint,
		headers:  cfg.Headers,
		insecure: cfg.Insecure,
	}

	if !cfg.Insecure && cfg.TLS != nil {
		tlsConfig, err := clientTLS(cfg.TLS)
		if err != nil {
			return exportTarget{}, fmt.Errorf("otlp tls: %w", err)
		}

		target.tls = tlsConfig
	}

	return target, nil
}

func (t exportTarget) logOptions() []otlploggrpc.Option {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(t.endpoint)}

	switch {
	case t.insecure:
		opts = append(opts, otlploggrpc.WithInsecure())
	case t.tls != nil:
		opts = append(opts, otlploggrpc.WithTLSCredentials(credentials.NewTLS(t.tls)))
	}

	if len(t.headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(t.headers))
	}

	return opts
}

func (t exportTarget) metricOptions() []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(t.endpoint)}

	switch {
	case t.insecure:
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	case t.tls != nil:
		opts = append(opts, otlpmetricgrpc.WithTLSCredentials(credentials.NewTLS(t.tls)))
	}

	if len(t.headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(t.headers))
	}

	return opts
}

func (t exportTarget) traceOptions() []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(t.endpoint)}

	switch {
	case t.insecure:
		opts = append(opts, otlptracegrpc.WithInsecure())
	case t.tls != nil:
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(t.tls)))
	}

	if len(t.headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(t.headers))
	}

	return opts
}

func serviceResource(ctx context.Context, name, version string) (*resource.Resource, error) {
	if name == "" {
		name = defaultServiceName
	}

	if version == "" {
		version = defaultServiceVersion
	}

	return resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(name),
		semconv.ServiceVersion(version),
	))
}

func clientTLS(cfg *TLSConfig) (*tls.Config, error) {
	out := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}

		out.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errFailedToParseCACert
		}

		out.RootCAs = pool
	}

	return out, nil
}

// ShutdownOTEL flushes and stops whichever OTLP pipelines were started.
func ShutdownOTEL() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	pipelines.mu.Lock()
	logs, metrics, traces := pipelines.logs, pipelines.metrics, pipelines.traces
	pipelines.logs, pipelines.metrics, pipelines.traces = nil, nil, nil
	pipelines.mu.Unlock()

	var errs []error

	// Spans first so their export can still be logged.
	if traces != nil {
		errs = append(errs, traces.Shutdown(ctx))
	}

	if logs != nil {
		errs = append(errs, logs.Shutdown(ctx))
	}

	if metrics != nil {
		errs = append(errs, metrics.Shutdown(ctx))
	}

	return errors.Join(errs...)
}
