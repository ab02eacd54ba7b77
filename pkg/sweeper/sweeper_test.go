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

package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/noiseradar/pkg/hub"
	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
	"github.com/carverauto/noiseradar/pkg/registry"
)

func TestSweepOncePublishesTransitions(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := NewMockClock(ctrl)
	pub := NewMockPublisher(ctrl)

	reg := registry.New(logger.NewTestLogger())
	base := time.UnixMilli(1_700_000_000_000)

	reg.RecordReading("S1", "Z1", 50, base.UnixMilli())
	reg.RecordReading("S2", "Z1", 50, base.Add(8*time.Second).UnixMilli())

	s := New(Config{OfflineThreshold: 10 * time.Second}, reg, pub, logger.NewTestLogger(), WithClock(clock))

	clock.EXPECT().Now().Return(base.Add(11 * time.Second)).Times(2)
	pub.EXPECT().Publish(models.DeviceStatusEvent{
		DeviceID: "S1",
		Zone:     "Z1",
		Status:   models.DeviceOffline,
		LastSeen: base.UnixMilli(),
	}).Return(1).Times(1)

	transitioned := s.SweepOnce()
	require.Len(t, transitioned, 1)
	assert.Equal(t, "S1", transitioned[0].DeviceID)

	assert.Empty(t, s.SweepOnce(), "second sweep with no new messages emits nothing")
}

func TestOfflineStatusThenSweepIsNoop(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := NewMockClock(ctrl)
	pub := NewMockPublisher(ctrl)

	reg := registry.New(nil)
	base := time.UnixMilli(1_700_000_000_000)

	reg.RecordStatus("S1", "Z1", false, base.UnixMilli())

	s := New(Config{OfflineThreshold: 10 * time.Second}, reg, pub, nil, WithClock(clock))

	clock.EXPECT().Now().Return(base.Add(time.Minute))
	pub.EXPECT().Publish(gomock.Any()).Times(0)

	assert.Empty(t, s.SweepOnce())

	rec, ok := reg.Get("S1")
	require.True(t, ok)
	assert.Equal(t, models.DeviceOffline, rec.Status)
}

func TestStartRunsOnTicksAndStops(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	clock := NewMockClock(ctrl)
	ticker := NewMockTicker(ctrl)

	ticks := make(chan time.Time)
	base := time.UnixMilli(1_700_000_000_000)

	clock.EXPECT().Ticker(5 * time.Second).Return(ticker)
	clock.EXPECT().Now().Return(base.Add(time.Minute)).AnyTimes()
	ticker.EXPECT().Chan().Return((<-chan time.Time)(ticks)).AnyTimes()
	ticker.EXPECT().Stop()

	reg := registry.New(nil)
	reg.RecordReading("S1", "Z1", 50, base.UnixMilli())

	h := hub.New(4, nil)
	sub := h.Subscribe()

	s := New(Config{}, reg, h, nil, WithClock(clock))

	require.NoError(t, s.Start(context.Background()))
	require.ErrorIs(t, s.Start(context.Background()), errAlreadyStarted)

	ticks <- base
	ticks <- base

	msg := <-sub.C()
	assert.Contains(t, string(msg), `"type":"device_status"`)
	assert.Contains(t, string(msg), `"status":"OFFLINE"`)

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()), "stop is idempotent")

	assert.Empty(t, sub.C(), "only one transition per silence period")
}

func TestRealClockTicker(t *testing.T) {
	t.Parallel()

	ticker := realClock{}.Ticker(time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.Chan():
	case <-time.After(time.Second):
		t.Fatal("real ticker never fired")
	}
}
