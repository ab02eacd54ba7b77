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

package push

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/noiseradar/pkg/hub"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
)

func startServer(t *testing.T, h *hub.Hub, opts ...Option) (*Handler, string) {
	t.Helper()

	handler := NewHandler(h, logger.NewTestLogger(), opts...)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return handler, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	return out
}

func TestSessionReceivesEvents(t *testing.T) {
	h := hub.New(8, logger.NewTestLogger())
	t.Cleanup(h.Close)

	handler, url := startServer(t, h)
	conn := dial(t, url)

	waitFor(t, func() bool { return h.Len() == 1 })
	assert.Equal(t, int64(1), handler.Sessions())

	h.Publish(models.NoiseEvent{DeviceID: "S1", Zone: "Z1", NoiseDb: 92, Timestamp: 1_700_000_000_000})
	h.Publish(models.AlertEvent{DeviceID: "S1", Zone: "Z1", NoiseDb: 92, ThresholdDb: 85, Timestamp: 1_700_000_000_000})

	first := readEvent(t, conn)
	assert.Equal(t, "noise", first["type"])
	assert.Equal(t, 92.0, first["noiseDb"])

	second := readEvent(t, conn)
	assert.Equal(t, "alert", second["type"])
	assert.Equal(t, 85.0, second["thresholdDb"])
}

func TestEverySessionGetsItsOwnSubscription(t *testing.T) {
	h := hub.New(8, logger.NewTestLogger())
	t.Cleanup(h.Close)

	_, url := startServer(t, h)
	a := dial(t, url)
	b := dial(t, url)

	waitFor(t, func() bool { return h.Len() == 2 })

	h.Publish(models.DeviceStatusEvent{DeviceID: "S1", Zone: "Z1", Status: models.DeviceOffline, LastSeen: 1})

	assert.Equal(t, "device_status", readEvent(t, a)["type"])
	assert.Equal(t, "device_status", readEvent(t, b)["type"])
}

func TestClientDisconnectUnsubscribes(t *testing.T) {
	h := hub.New(8, logger.NewTestLogger())
	t.Cleanup(h.Close)

	handler, url := startServer(t, h)
	conn := dial(t, url)

	waitFor(t, func() bool { return h.Len() == 1 })

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	_ = conn.Close()

	waitFor(t, func() bool { return h.Len() == 0 && handler.Sessions() == 0 })

	// publishing after the session left must not block or panic
	assert.Equal(t, 0, h.Publish(models.NoiseEvent{DeviceID: "S1"}))
}

func TestHubCloseEndsSessions(t *testing.T) {
	h := hub.New(8, logger.NewTestLogger())

	handler, url := startServer(t, h)
	conn := dial(t, url)

	waitFor(t, func() bool { return h.Len() == 1 })

	h.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	waitFor(t, func() bool { return handler.Sessions() == 0 })
}

func TestOriginCheckRejects(t *testing.T) {
	h := hub.New(8, logger.NewTestLogger())
	t.Cleanup(h.Close)

	_, url := startServer(t, h, WithOriginCheck(func(*http.Request) bool { return false }))

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
	assert.Equal(t, 0, h.Len())
}

func TestPlainHTTPRequestIsRejected(t *testing.T) {
	h := hub.New(8, logger.NewTestLogger())
	t.Cleanup(h.Close)

	handler := NewHandler(h, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, h.Len())
}
