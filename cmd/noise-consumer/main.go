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

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/carverauto/noiseradar/pkg/config"
	"github.com/carverauto/noiseradar/pkg/config/kvnats"
	"github.com/carverauto/noiseradar/pkg/ingest"
	"github.com/carverauto/noiseradar/pkg/lifecycle"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
	"github.com/carverauto/noiseradar/pkg/natsutil"
	"github.com/carverauto/noiseradar/pkg/version"
)

const serviceName = "noise-consumer"

func main() {
	configPath := flag.String("config", "/etc/noiseradar/noise-consumer.json", "Path to config file")
	kvURL := flag.String("kv-url", os.Getenv("NOISERADAR_KV_URL"), "NATS URL of the config KV bucket (used with CONFIG_SOURCE=kv)")
	kvBucket := flag.String("kv-bucket", "noiseradar-config", "Config KV bucket name")
	flag.Parse()

	if err := run(*configPath, *kvURL, *kvBucket); err != nil {
		log.Fatalf("Noise consumer failed: %v", err)
	}
}

func run(configPath, kvURL, kvBucket string) error {
	ctx := context.Background()

	var cfg ingest.Config

	loader := config.NewConfig(nil)

	if strings.EqualFold(os.Getenv("CONFIG_SOURCE"), "kv") && kvURL != "" {
		closeKV, err := attachKVStore(loader, kvURL, kvBucket)
		if err != nil {
			return err
		}
		defer closeKV()
	}

	if err := loader.LoadAndValidate(ctx, configPath, &cfg); err != nil {
		return err
	}

	if cfg.CNPG != nil && cfg.CNPG.TLS != nil && cfg.CNPG.CertDir != "" {
		config.NormalizeTLSPaths(cfg.CNPG.TLS, cfg.CNPG.CertDir)
	}

	if err := config.ApplyCNPGPassword(cfg.CNPG); err != nil {
		return err
	}

	loggerConfig := cfg.Logging
	if loggerConfig == nil {
		loggerConfig = logger.DefaultConfig()
	}

	serviceLogger, err := lifecycle.CreateComponentLogger(ctx, serviceName, loggerConfig)
	if err != nil {
		return err
	}

	defer func() { _ = lifecycle.ShutdownLogger() }()

	// Metrics and traces are flushed by ShutdownLogger along with the logs.
	_, err = logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		OTel:           &loggerConfig.OTel,
	})
	if err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		serviceLogger.Warn().Err(err).Msg("Metrics export unavailable")
	}

	_, err = logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		OTel:           &loggerConfig.OTel,
	})
	if err != nil && !errors.Is(err, logger.ErrOTelTracingDisabled) {
		serviceLogger.Warn().Err(err).Msg("Trace export unavailable")
	}

	serviceLogger.Info().Str("version", version.GetFullVersion()).Msg("Starting noise consumer")

	app, err := newApp(ctx, &cfg, serviceLogger)
	if err != nil {
		return err
	}

	return lifecycle.RunService(ctx, &lifecycle.ServiceOptions{
		ServiceName: serviceName,
		Service:     app,
		Logger:      serviceLogger,
	})
}

func attachKVStore(loader *config.Config, url, bucket string) (func(), error) {
	nc, err := natsutil.Connect(&models.NATSConfig{URL: url}, serviceName+"-config", nil)
	if err != nil {
		return nil, err
	}

	store, err := kvnats.New(nc, bucket)
	if err != nil {
		nc.Close()
		return nil, err
	}

	loader.SetKVStore(store)

	return func() { _ = store.Close() }, nil
}
