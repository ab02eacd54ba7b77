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

package kvnats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/noiseradar/pkg/config"
	"github.com/carverauto/noiseradar/pkg/models"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	srv, err := server.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestClientFeedsConfigLoader(t *testing.T) {
	srv := runJetStreamServer(t)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)

	client, err := New(nc, "noiseradar-config")
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, found, err := client.Get(ctx, "config/missing.json")
	require.NoError(t, err)
	assert.False(t, found)

	path := filepath.Join("/etc/noiseradar", "noise-consumer.json")
	require.NoError(t, client.Put(ctx, config.KeyForPath(path),
		[]byte(`{"broker_url":"tcp://kv-broker:1883","client_id_prefix":"kv"}`)))

	t.Setenv("CONFIG_SOURCE", "kv")

	loader := config.NewConfig(nil)
	loader.SetKVStore(client)

	var mqttCfg models.MQTTConfig

	require.NoError(t, loader.LoadAndValidate(ctx, path, &mqttCfg))
	assert.Equal(t, "tcp://kv-broker:1883", mqttCfg.BrokerURL)
	assert.Equal(t, "kv", mqttCfg.ClientIDPrefix)
}
