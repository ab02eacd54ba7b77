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
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/noiseradar/pkg/alerts"
	"github.com/carverauto/noiseradar/pkg/api"
	"github.com/carverauto/noiseradar/pkg/codec"
	"github.com/carverauto/noiseradar/pkg/control"
	"github.com/carverauto/noiseradar/pkg/db"
	"github.com/carverauto/noiseradar/pkg/hub"
	"github.com/carverauto/noiseradar/pkg/ingest"
	"github.com/carverauto/noiseradar/pkg/lifecycle"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
	"github.com/carverauto/noiseradar/pkg/mqtt"
	"github.com/carverauto/noiseradar/pkg/natsutil"
	"github.com/carverauto/noiseradar/pkg/push"
	"github.com/carverauto/noiseradar/pkg/registry"
	"github.com/carverauto/noiseradar/pkg/sweeper"
)

func component(log logger.Logger, name string) logger.Logger {
	return logger.FromZerolog(log.WithComponent(name))
}

// newApp wires every component. The returned group starts storage first and
// the HTTP surface last.
func newApp(ctx context.Context, cfg *ingest.Config, log logger.Logger) (*lifecycle.Group, error) {
	var (
		group    lifecycle.Group
		database *db.DB
		resolver alerts.ThresholdResolver
		cache    *alerts.CachingResolver
	)

	if cfg.CNPG != nil {
		var err error

		database, err = db.New(ctx, cfg.CNPG, component(log, "db"))
		if err != nil {
			return nil, fmt.Errorf("initialize database: %w", err)
		}

		cache = alerts.NewCachingResolver(database, time.Duration(cfg.ThresholdTTL))
		resolver = cache

		group.Add(lifecycle.Func{StopFunc: func(context.Context) error { return database.Close() }})
	} else {
		static := alerts.NewStaticResolver()
		if cfg.GlobalThreshold != nil {
			static.Upsert(nil, *cfg.GlobalThreshold)
		}

		resolver = static

		log.Warn().Msg("No cnpg section configured; readings are not persisted and thresholds are static")
	}

	h := hub.New(hub.DefaultBufferSize, component(log, "hub"))
	group.Add(lifecycle.Func{StopFunc: func(context.Context) error {
		h.Close()
		return nil
	}})

	if cfg.NATS != nil {
		bridge, nc, err := newEventBridge(ctx, cfg.NATS, h, component(log, "nats-bridge"))
		if err != nil {
			if database != nil {
				_ = database.Close()
			}

			return nil, err
		}

		group.Add(lifecycle.Func{StopFunc: func(context.Context) error { return nc.Drain() }})
		group.Add(bridge)
	}

	reg := registry.New(component(log, "registry"))

	session, err := newSession(cfg.MQTT, cfg.TopicScheme(), component(log, "mqtt"))
	if err != nil {
		if database != nil {
			_ = database.Close()
		}

		return nil, err
	}

	ingestOpts := []ingest.Option{
		ingest.WithDecoder(codec.NewDecoder(cfg.TopicScheme())),
		ingest.WithResolver(resolver),
	}

	ctrlOpts := []control.Option{}
	apiOpts := []api.Option{}

	if database != nil {
		ingestOpts = append(ingestOpts,
			ingest.WithStore(database),
			ingest.WithStorageWorkers(cfg.StorageWorkers, cfg.StorageQueue))
		ctrlOpts = append(ctrlOpts, control.WithStore(database), control.WithInvalidator(cache))
		apiOpts = append(apiOpts, api.WithStorage(database), api.WithHistory(database))
	}

	consumer := ingest.New(session, reg, h, component(log, "ingest"), ingestOpts...)

	sweep := sweeper.New(sweeper.Config{
		OfflineThreshold: time.Duration(cfg.OfflineThreshold),
		Interval:         time.Duration(cfg.SweepInterval),
	}, reg, h, component(log, "sweeper"))

	group.Add(consumer, sweep)

	ctrl := control.New(reg, h, component(log, "control"), ctrlOpts...)

	stream := push.NewHandler(h, component(log, "push"), push.WithOriginCheck(originChecker(cfg.AllowedOrigins)))

	apiOpts = append(apiOpts,
		api.WithStream(stream),
		api.WithStatus(consumer),
		api.WithCORS(models.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}),
		api.WithAPIKey(cfg.APIKey))
	group.Add(api.NewServer(cfg.ListenAddr, ctrl, component(log, "api"), apiOpts...))

	return &group, nil
}

func newSession(cfg *models.MQTTConfig, scheme codec.TopicScheme, log logger.Logger) (*mqtt.PahoSession, error) {
	tlsConfig, err := mqtt.TLSConfigFrom(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("mqtt tls: %w", err)
	}

	return mqtt.NewSession(mqtt.Config{
		BrokerURL:         cfg.BrokerURL,
		Username:          cfg.Username,
		Password:          cfg.Password,
		ClientID:          mqtt.ClientID(cfg.ClientIDPrefix),
		ReconnectInterval: time.Duration(cfg.ReconnectInterval),
		TLS:               tlsConfig,
		Subscriptions:     mqtt.SubscriptionsFor(scheme, true),
	}, log)
}

func newEventBridge(
	ctx context.Context, cfg *models.NATSConfig, h *hub.Hub, log logger.Logger,
) (*natsutil.EventBridge, *nats.Conn, error) {
	nc, err := natsutil.Connect(cfg, serviceName, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}

	publisher, err := natsutil.CreateEventPublisher(ctx, nc, cfg)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create event publisher: %w", err)
	}

	return natsutil.NewEventBridge(h, publisher, log), nc, nil
}

// originChecker allows same-origin requests, plus the listed origins. A "*"
// entry allows everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		if slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil {
			return false
		}

		return u.Host == r.Host
	}
}
