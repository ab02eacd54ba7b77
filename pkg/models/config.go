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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	errInvalidDuration = errors.New("invalid duration")
	errNATSURLRequired = errors.New("nats url is required")
	errMQTTBroker      = errors.New("mqtt broker_url is required")
	errCNPGHost        = errors.New("cnpg host is required")
	errCNPGDatabase    = errors.New("cnpg database is required")
)

// Duration is a time.Duration that unmarshals from either a Go duration string
// ("10s") or a number of nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// MQTTConfig configures the sensor transport session.
type MQTTConfig struct {
	BrokerURL         string     `json:"broker_url"`
	Username          string     `json:"username,omitempty"`
	Password          string     `json:"password,omitempty"`
	ClientIDPrefix    string     `json:"client_id_prefix,omitempty"`
	ReconnectInterval Duration   `json:"reconnect_interval,omitempty"`
	Namespace         string     `json:"namespace,omitempty"`
	Category          string     `json:"category,omitempty"`
	ReadingKind       string     `json:"reading_kind,omitempty"`
	StatusKind        string     `json:"status_kind,omitempty"`
	TLS               *TLSConfig `json:"tls,omitempty"`
}

func (c *MQTTConfig) Validate() error {
	if c.BrokerURL == "" {
		return errMQTTBroker
	}

	return nil
}

// NATSConfig configures NATS connectivity for the event bridge.
type NATSConfig struct {
	URL           string          `json:"url"`
	Domain        string          `json:"domain,omitempty"`
	StreamName    string          `json:"stream_name,omitempty"`
	SubjectPrefix string          `json:"subject_prefix,omitempty"`
	Security      *SecurityConfig `json:"security,omitempty"`
}

// Validate ensures the NATS configuration is valid
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return errNATSURLRequired
	}

	return nil
}

// CNPGDatabase describes the Postgres/Timescale cluster used for readings,
// thresholds and audit entries.
type CNPGDatabase struct {
	Host               string            `json:"host"`
	Port               int               `json:"port,omitempty"`
	Database           string            `json:"database"`
	Username           string            `json:"username,omitempty"`
	Password           string            `json:"password,omitempty"`
	SSLMode            string            `json:"ssl_mode,omitempty"`
	ApplicationName    string            `json:"application_name,omitempty"`
	CertDir            string            `json:"cert_dir,omitempty"`
	TLS                *TLSConfig        `json:"tls,omitempty"`
	MaxConnections     int32             `json:"max_connections,omitempty"`
	MinConnections     int32             `json:"min_connections,omitempty"`
	MaxConnLifetime    Duration          `json:"max_conn_lifetime,omitempty"`
	HealthCheckPeriod  Duration          `json:"health_check_period,omitempty"`
	StatementTimeout   Duration          `json:"statement_timeout,omitempty"`
	ExtraRuntimeParams map[string]string `json:"extra_runtime_params,omitempty"`
}

func (c *CNPGDatabase) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, errCNPGHost)
	}

	if c.Database == "" {
		errs = append(errs, errCNPGDatabase)
	}

	return errors.Join(errs...)
}

// CORSConfig controls cross-origin access to the HTTP API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins,omitempty"`
	AllowCredentials bool     `json:"allow_credentials,omitempty"`
}

// AllowsOrigin reports whether origin is listed. A "*" entry allows any origin.
func (c *CORSConfig) AllowsOrigin(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}
