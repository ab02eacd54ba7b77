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
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/noiseradar/pkg/ingest"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
)

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no origin header", want: true},
		{name: "same host", origin: "http://dashboard.local", want: true},
		{name: "foreign host", origin: "http://evil.example", want: false},
		{name: "listed origin", allowed: []string{"http://ui.example"}, origin: "http://ui.example", want: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://anything.example", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "http://dashboard.local/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			assert.Equal(t, tt.want, originChecker(tt.allowed)(req))
		})
	}
}

func TestNewAppWithoutOptionalBackends(t *testing.T) {
	t.Parallel()

	global := 85.0
	cfg := &ingest.Config{
		ListenAddr:      "127.0.0.1:0",
		GlobalThreshold: &global,
		MQTT:            &models.MQTTConfig{BrokerURL: "tcp://127.0.0.1:1"},
	}
	require.NoError(t, cfg.Validate())

	app, err := newApp(context.Background(), cfg, logger.NewTestLogger())
	require.NoError(t, err)
	require.NotNil(t, app)

	require.NoError(t, app.Stop(context.Background()))
}
