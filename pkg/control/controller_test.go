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

package control

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/noiseradar/pkg/db"
	"github.com/carverauto/noiseradar/pkg/hub"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
	"github.com/carverauto/noiseradar/pkg/registry"
)

var errStoreDown = errors.New("store down")

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate() { c.calls++ }

func receive(t *testing.T, sub *hub.Subscription) map[string]any {
	t.Helper()

	select {
	case msg := <-sub.C():
		var out map[string]any
		require.NoError(t, json.Unmarshal(msg, &out))

		return out
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func assertNoEvent(t *testing.T, sub *hub.Subscription) {
	t.Helper()

	select {
	case msg := <-sub.C():
		t.Fatalf("unexpected event: %s", msg)
	default:
	}
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *registry.Registry, *hub.Subscription) {
	t.Helper()

	reg := registry.New(logger.NewTestLogger())
	h := hub.New(16, logger.NewTestLogger())
	t.Cleanup(h.Close)

	sub := h.Subscribe()

	return New(reg, h, logger.NewTestLogger(), opts...), reg, sub
}

func TestSetEnabledKnownDevice(t *testing.T) {
	c, reg, sub := newTestController(t)
	reg.RecordReading("S1", "Z1", 60, 1_000)

	rec, ok := c.SetEnabled(context.Background(), "admin", "S1", false)
	require.True(t, ok)
	assert.False(t, rec.Enabled)

	got, _ := reg.Get("S1")
	assert.False(t, got.Enabled)
	assert.Equal(t, models.DeviceOnline, got.Status)

	assert.Equal(t, map[string]any{"type": "device_config", "deviceId": "S1", "enabled": false}, receive(t, sub))

	// idempotent
	rec, ok = c.SetEnabled(context.Background(), "admin", "S1", false)
	require.True(t, ok)
	assert.False(t, rec.Enabled)
	assert.Equal(t, "device_config", receive(t, sub)["type"])
}

func TestSetEcoModeKnownDevice(t *testing.T) {
	c, reg, sub := newTestController(t)
	reg.RecordStatus("S1", "Z1", false, 1_000)

	rec, ok := c.SetEcoMode(context.Background(), "admin", "S1", true)
	require.True(t, ok)
	assert.True(t, rec.EcoMode)
	assert.True(t, rec.Enabled)
	assert.Equal(t, models.DeviceOffline, rec.Status)

	assert.Equal(t, map[string]any{"type": "device_config", "deviceId": "S1", "ecoMode": true}, receive(t, sub))
}

func TestCommandsOnUnknownDeviceAreNoOps(t *testing.T) {
	c, reg, sub := newTestController(t)

	_, ok := c.SetEnabled(context.Background(), "admin", "ghost", false)
	assert.False(t, ok)

	_, ok = c.SetEcoMode(context.Background(), "admin", "ghost", true)
	assert.False(t, ok)

	assert.Equal(t, 0, reg.Len())
	assertNoEvent(t, sub)
}

func TestFlagsSurviveLivenessTransitions(t *testing.T) {
	c, reg, _ := newTestController(t)
	reg.RecordReading("S1", "Z1", 60, 1_000)

	c.SetEnabled(context.Background(), "admin", "S1", false)
	c.SetEcoMode(context.Background(), "admin", "S1", true)

	reg.RecordStatus("S1", "Z1", false, 2_000)
	reg.RecordReading("S1", "Z1", 61, 3_000)

	rec, ok := c.Device("S1")
	require.True(t, ok)
	assert.False(t, rec.Enabled)
	assert.True(t, rec.EcoMode)
	assert.Len(t, c.Devices(), 1)
}

func TestSetEnabledWritesAudit(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	c, reg, _ := newTestController(t, WithStore(store))
	reg.RecordReading("S1", "Z1", 60, 1_000)

	store.EXPECT().
		WriteAudit(gomock.Any(), ActionSetEnabled, "admin", map[string]any{"deviceId": "S1", "enabled": true}).
		Return(errStoreDown)

	_, ok := c.SetEnabled(context.Background(), "admin", "S1", true)
	assert.True(t, ok)
}

func TestSetThreshold(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)
	cache := &countingInvalidator{}

	c, _, sub := newTestController(t, WithStore(store), WithInvalidator(cache))

	device := "S1"
	table := []models.Threshold{models.GlobalThreshold(85), models.DeviceThreshold("S1", 70)}

	gomock.InOrder(
		store.EXPECT().UpsertThreshold(gomock.Any(), &device, 70.0).Return(nil),
		store.EXPECT().
			WriteAudit(gomock.Any(), ActionSetThreshold, "admin@example.com",
				map[string]any{"deviceId": "S1", "thresholdDb": 70.0}).
			Return(nil),
		store.EXPECT().ListThresholds(gomock.Any()).Return(table, nil),
	)

	got, err := c.SetThreshold(context.Background(), "admin@example.com", &device, 70)
	require.NoError(t, err)
	assert.Equal(t, table, got)
	assert.Equal(t, 1, cache.calls)

	event := receive(t, sub)
	assert.Equal(t, "thresholds", event["type"])
	assert.Len(t, event["thresholds"], 2)
}

func TestSetGlobalThresholdAuditsNullDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	c, _, _ := newTestController(t, WithStore(store))

	store.EXPECT().UpsertThreshold(gomock.Any(), (*string)(nil), 85.0).Return(nil)
	store.EXPECT().
		WriteAudit(gomock.Any(), ActionSetThreshold, "admin", map[string]any{"deviceId": nil, "thresholdDb": 85.0}).
		Return(nil)
	store.EXPECT().ListThresholds(gomock.Any()).Return([]models.Threshold{models.GlobalThreshold(85)}, nil)

	_, err := c.SetThreshold(context.Background(), "admin", nil, 85)
	require.NoError(t, err)
}

func TestSetThresholdFailures(t *testing.T) {
	c, _, sub := newTestController(t)

	_, err := c.SetThreshold(context.Background(), "admin", nil, 85)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)
	cache := &countingInvalidator{}

	c, _, sub = newTestController(t, WithStore(store), WithInvalidator(cache))

	_, err = c.SetThreshold(context.Background(), "admin", nil, math.NaN())
	require.ErrorIs(t, err, ErrInvalidThreshold)

	empty := ""
	_, err = c.SetThreshold(context.Background(), "admin", &empty, 80)
	require.ErrorIs(t, err, ErrEmptyDeviceID)

	store.EXPECT().UpsertThreshold(gomock.Any(), gomock.Nil(), 85.0).Return(errStoreDown)

	_, err = c.SetThreshold(context.Background(), "admin", nil, 85)
	require.ErrorIs(t, err, errStoreDown)

	assert.Equal(t, 0, cache.calls)
	assertNoEvent(t, sub)
}

func TestReadThroughStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	c, _, _ := newTestController(t, WithStore(store))

	store.EXPECT().ListThresholds(gomock.Any()).Return([]models.Threshold{}, nil)
	store.EXPECT().ListAudit(gomock.Any(), 10).Return([]models.AuditEntry{{ID: 1, Action: ActionSetThreshold}}, nil)

	thresholds, err := c.Thresholds(context.Background())
	require.NoError(t, err)
	assert.Empty(t, thresholds)

	entries, err := c.Audit(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	bare, _, _ := newTestController(t)
	_, err = bare.Audit(context.Background(), 10)
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
