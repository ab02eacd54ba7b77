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
	"errors"
	"time"

	"github.com/carverauto/noiseradar/pkg/codec"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
)

const (
	DefaultListenAddr       = ":8080"
	DefaultOfflineThreshold = 10 * time.Second
	DefaultSweepInterval    = 5 * time.Second
	DefaultStorageWorkers   = 4
	DefaultStorageQueue     = 1024
	DefaultClientIDPrefix   = "iot-api"
	DefaultThresholdTTL     = 30 * time.Second
)

var (
	errMQTTRequired       = errors.New("mqtt configuration is required")
	errThresholdOrder     = errors.New("sweep_interval must not exceed offline_threshold")
	errNegativeWorkers    = errors.New("storage_workers must not be negative")
	errNegativeQueue      = errors.New("storage_queue must not be negative")
	errNegativeThreshold  = errors.New("offline_threshold must not be negative")
	errNegativeSweepEvery = errors.New("sweep_interval must not be negative")
)

// Config is the noise-consumer configuration.
type Config struct {
	ListenAddr       string               `json:"listen_addr"`
	OfflineThreshold models.Duration      `json:"offline_threshold"`
	SweepInterval    models.Duration      `json:"sweep_interval"`
	ThresholdTTL     models.Duration      `json:"threshold_cache_ttl"`
	GlobalThreshold  *float64             `json:"global_threshold_db,omitempty"`
	StorageWorkers   int                  `json:"storage_workers"`
	StorageQueue     int                  `json:"storage_queue"`
	AllowedOrigins   []string             `json:"allowed_origins,omitempty"`
	APIKey           string               `json:"api_key,omitempty"`
	MQTT             *models.MQTTConfig   `json:"mqtt"`
	NATS             *models.NATSConfig   `json:"nats,omitempty"`
	CNPG             *models.CNPGDatabase `json:"cnpg,omitempty"`
	Logging          *logger.Config       `json:"logging,omitempty"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}

	if c.OfflineThreshold == 0 {
		c.OfflineThreshold = models.Duration(DefaultOfflineThreshold)
	}

	if c.SweepInterval == 0 {
		c.SweepInterval = models.Duration(DefaultSweepInterval)
	}

	if c.ThresholdTTL == 0 {
		c.ThresholdTTL = models.Duration(DefaultThresholdTTL)
	}

	if c.StorageWorkers == 0 {
		c.StorageWorkers = DefaultStorageWorkers
	}

	if c.StorageQueue == 0 {
		c.StorageQueue = DefaultStorageQueue
	}

	if c.MQTT != nil {
		if c.MQTT.ClientIDPrefix == "" {
			c.MQTT.ClientIDPrefix = DefaultClientIDPrefix
		}

		if c.MQTT.ReconnectInterval == 0 {
			c.MQTT.ReconnectInterval = models.Duration(2 * time.Second)
		}
	}
}

// Validate applies defaults and reports every problem at once.
func (c *Config) Validate() error {
	c.ApplyDefaults()

	var errs []error

	if c.MQTT == nil {
		errs = append(errs, errMQTTRequired)
	} else if err := c.MQTT.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.OfflineThreshold < 0 {
		errs = append(errs, errNegativeThreshold)
	}

	if c.SweepInterval < 0 {
		errs = append(errs, errNegativeSweepEvery)
	}

	if c.SweepInterval > c.OfflineThreshold {
		errs = append(errs, errThresholdOrder)
	}

	if c.StorageWorkers < 0 {
		errs = append(errs, errNegativeWorkers)
	}

	if c.StorageQueue < 0 {
		errs = append(errs, errNegativeQueue)
	}

	if c.NATS != nil {
		if err := c.NATS.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.CNPG != nil {
		if err := c.CNPG.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// TopicScheme builds the codec scheme from the MQTT section.
func (c *Config) TopicScheme() codec.TopicScheme {
	if c.MQTT == nil {
		return codec.DefaultTopicScheme()
	}

	return codec.TopicScheme{
		Namespace:   c.MQTT.Namespace,
		Category:    c.MQTT.Category,
		ReadingKind: c.MQTT.ReadingKind,
		StatusKind:  c.MQTT.StatusKind,
	}.WithDefaults()
}
