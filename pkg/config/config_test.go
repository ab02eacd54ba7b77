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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/noiseradar/pkg/models"
)

type fakeKVStore struct {
	values map[string][]byte
	err    error
}

func (f *fakeKVStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}

	v, ok := f.values[key]

	return v, ok, nil
}

type sampleConfig struct {
	ListenAddr string                 `json:"listen_addr"`
	Offline    models.Duration        `json:"offline_threshold"`
	MQTT       models.MQTTConfig      `json:"mqtt"`
	NATS       *models.NATSConfig     `json:"nats,omitempty"`
	Security   *models.SecurityConfig `json:"security,omitempty"`
}

var errNoListen = errors.New("listen_addr required")

func (c *sampleConfig) Validate() error {
	if c.ListenAddr == "" {
		return errNoListen
	}

	return c.MQTT.Validate()
}

func writeJSON(t *testing.T, path string, value interface{}) {
	t.Helper()

	data, err := json.Marshal(value)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestLoadAndValidateFromFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := filepath.Join(t.TempDir(), "noise-consumer.json")
	writeJSON(t, path, map[string]any{
		"listen_addr":       ":8080",
		"offline_threshold": "10s",
		"mqtt":              map[string]any{"broker_url": "tcp://localhost:1883"},
		"security": map[string]any{
			"mode":     "mtls",
			"cert_dir": "/etc/noiseradar/certs",
			"tls":      map[string]any{"cert_file": "client.pem", "key_file": "client-key.pem", "ca_file": "/abs/ca.pem"},
		},
	})

	var cfg sampleConfig

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, models.Duration(10*time.Second), cfg.Offline)
	assert.Nil(t, cfg.NATS)
	require.NotNil(t, cfg.Security)
	assert.Equal(t, "/etc/noiseradar/certs/client.pem", cfg.Security.TLS.CertFile)
	assert.Equal(t, "/abs/ca.pem", cfg.Security.TLS.CAFile)
	assert.Equal(t, "/abs/ca.pem", cfg.Security.TLS.ClientCAFile)
}

func TestLoadAndValidateRunsValidator(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := filepath.Join(t.TempDir(), "bad.json")
	writeJSON(t, path, map[string]any{"mqtt": map[string]any{"broker_url": "tcp://x:1883"}})

	var cfg sampleConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorIs(t, err, errNoListen)
}

func TestLoadAndValidateInvalidSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "carrier-pigeon")

	var cfg sampleConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "x.json", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestLoadAndValidateFromEnv(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("NOISERADAR_LISTEN_ADDR", ":9090")
	t.Setenv("NOISERADAR_OFFLINE_THRESHOLD", "30s")
	t.Setenv("NOISERADAR_MQTT_BROKER_URL", "tcp://broker:1883")
	t.Setenv("NOISERADAR_MQTT_RECONNECT_INTERVAL", "3s")

	var cfg sampleConfig

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, models.Duration(30*time.Second), cfg.Offline)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.BrokerURL)
	assert.Equal(t, models.Duration(3*time.Second), cfg.MQTT.ReconnectInterval)
	assert.Nil(t, cfg.NATS, "optional sections stay nil without variables")
	assert.Nil(t, cfg.Security)
}

func TestLoadFromEnvOptionalSectionAllocated(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("NOISERADAR_LISTEN_ADDR", ":9090")
	t.Setenv("NOISERADAR_MQTT_BROKER_URL", "tcp://broker:1883")
	t.Setenv("NOISERADAR_NATS_URL", "nats://localhost:4222")

	var cfg sampleConfig

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))
	require.NotNil(t, cfg.NATS)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

func TestLoadFromKVFallsBackToFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	path := filepath.Join(t.TempDir(), "noise-consumer.json")
	writeJSON(t, path, map[string]any{
		"listen_addr": ":7000",
		"mqtt":        map[string]any{"broker_url": "tcp://file:1883"},
	})

	cfg := NewConfig(nil)
	cfg.SetKVStore(&fakeKVStore{values: map[string][]byte{}})

	var out sampleConfig

	require.NoError(t, cfg.LoadAndValidate(context.Background(), path, &out))
	assert.Equal(t, ":7000", out.ListenAddr)
}

func TestLoadFromKV(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	kvBytes, err := json.Marshal(map[string]any{
		"listen_addr": ":7001",
		"mqtt":        map[string]any{"broker_url": "tcp://kv:1883"},
	})
	require.NoError(t, err)

	cfg := NewConfig(nil)
	cfg.SetKVStore(&fakeKVStore{values: map[string][]byte{
		KeyForPath("/etc/noiseradar/noise-consumer.json"): kvBytes,
	}})

	var out sampleConfig

	require.NoError(t, cfg.LoadAndValidate(context.Background(), "/etc/noiseradar/noise-consumer.json", &out))
	assert.Equal(t, "tcp://kv:1883", out.MQTT.BrokerURL)
}

func TestLoadFromKVWithoutStore(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	var out sampleConfig

	require.ErrorIs(t, NewConfig(nil).LoadAndValidate(context.Background(), "x.json", &out), errKVStoreNotSet)
}

func TestApplyCNPGPassword(t *testing.T) {
	dir := t.TempDir()

	pwFile := filepath.Join(dir, "pw")
	require.NoError(t, os.WriteFile(pwFile, []byte("s3cret\n"), 0o600))

	t.Setenv("CNPG_PASSWORD_FILE", pwFile)

	cnpg := &models.CNPGDatabase{Host: "db", Database: "noise"}
	require.NoError(t, ApplyCNPGPassword(cnpg))
	assert.Equal(t, "s3cret", cnpg.Password)

	explicit := &models.CNPGDatabase{Password: "keep"}
	require.NoError(t, ApplyCNPGPassword(explicit))
	assert.Equal(t, "keep", explicit.Password)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))
	t.Setenv("CNPG_PASSWORD_FILE", empty)

	require.ErrorIs(t, ApplyCNPGPassword(&models.CNPGDatabase{}), ErrCNPGPasswordEmpty)
	require.NoError(t, ApplyCNPGPassword(nil))
}
