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

// Package natsutil connects to NATS and bridges hub events onto JetStream.
package natsutil

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/carverauto/noiseradar/pkg/config"
	"github.com/carverauto/noiseradar/pkg/models"
)

var (
	// ErrTLSRequired is returned when TLSConfig is asked for a plaintext mode.
	ErrTLSRequired = errors.New("tls or mtls security required")
	// ErrCAParsingFailed is returned when the CA certificate cannot be parsed.
	ErrCAParsingFailed = errors.New("failed to parse CA certificate")
)

// TLSConfig builds the client tls.Config for mode "tls" (server verification
// only) or "mtls" (also presents a client certificate). Relative paths are
// resolved against CertDir.
func TLSConfig(sec *models.SecurityConfig) (*tls.Config, error) {
	if sec == nil || (sec.Mode != models.SecurityModeTLS && sec.Mode != models.SecurityModeMTLS) {
		return nil, ErrTLSRequired
	}

	tlsPaths := sec.TLS
	config.NormalizeTLSPaths(&tlsPaths, sec.CertDir)

	caCert, err := os.ReadFile(tlsPaths.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, ErrCAParsingFailed
	}

	conf := &tls.Config{
		RootCAs:    caPool,
		ServerName: sec.ServerName,
		MinVersion: tls.VersionTLS13,
	}

	if sec.Mode == models.SecurityModeMTLS {
		cert, err := tls.LoadX509KeyPair(tlsPaths.CertFile, tlsPaths.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}

		conf.Certificates = []tls.Certificate{cert}
	}

	return conf, nil
}
