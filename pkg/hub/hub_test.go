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

package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
)

func noiseEvent(i int) models.NoiseEvent {
	return models.NoiseEvent{DeviceID: fmt.Sprintf("S%d", i), Zone: "Z1", NoiseDb: float64(i), Timestamp: int64(i)}
}

func TestPublishFanOut(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 100} {
		t.Run(fmt.Sprintf("subscribers=%d", n), func(t *testing.T) {
			t.Parallel()

			h := New(4, logger.NewTestLogger())
			subs := make([]*Subscription, n)

			for i := range subs {
				subs[i] = h.Subscribe()
			}

			require.Equal(t, n, h.Len())
			require.Equal(t, n, h.Publish(noiseEvent(1)))

			for _, sub := range subs {
				select {
				case msg := <-sub.C():
					var decoded map[string]any
					require.NoError(t, json.Unmarshal(msg, &decoded))
					assert.Equal(t, "noise", decoded["type"])
					assert.Equal(t, "S1", decoded["deviceId"])
				default:
					t.Fatalf("subscriber %s did not receive the event", sub.ID)
				}
			}
		})
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	h := New(2, logger.NewTestLogger())

	slow := h.Subscribe()
	fast := h.Subscribe()

	done := make(chan struct{})

	go func() {
		defer close(done)

		for i := 0; i < 10; i++ {
			h.Publish(noiseEvent(i))

			msg := <-fast.C()

			var decoded models.NoiseEvent
			if err := json.Unmarshal(msg, &decoded); err != nil || decoded.DeviceID != fmt.Sprintf("S%d", i) {
				t.Errorf("fast subscriber got %s for event %d", msg, i)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	assert.Len(t, slow.C(), 2)
	assert.Equal(t, int64(8), slow.Dropped())
	assert.Zero(t, fast.Dropped())
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	t.Parallel()

	h := New(1024, logger.NewTestLogger())

	keep := make([]*Subscription, 10)
	for i := range keep {
		keep[i] = h.Subscribe()
	}

	churn := make([]*Subscription, 50)
	for i := range churn {
		churn[i] = h.Subscribe()
	}

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()

		for i := 0; i < 200; i++ {
			h.Publish(noiseEvent(i))
		}
	}()

	go func() {
		defer wg.Done()

		for _, sub := range churn {
			h.Unsubscribe(sub)
			h.Unsubscribe(sub)
		}
	}()

	wg.Wait()

	assert.Equal(t, len(keep), h.Len())

	for _, sub := range keep {
		assert.Len(t, sub.C(), 200, "remaining subscribers receive every event")
	}

	for _, sub := range churn {
		for range sub.C() {
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	h := New(1, nil)
	sub := h.Subscribe()

	h.Unsubscribe(sub)
	h.Unsubscribe(nil)

	_, open := <-sub.C()
	assert.False(t, open)
	assert.Zero(t, h.Publish(noiseEvent(1)))
}

func TestCloseHub(t *testing.T) {
	t.Parallel()

	h := New(1, nil)
	a := h.Subscribe()

	h.Close()

	_, open := <-a.C()
	assert.False(t, open)
	assert.Zero(t, h.Len())

	late := h.Subscribe()
	_, open = <-late.C()
	assert.False(t, open, "subscriptions on a closed hub are closed")
}

func TestPublishSerializesEveryEventKind(t *testing.T) {
	t.Parallel()

	h := New(8, nil)
	sub := h.Subscribe()

	enabled := false
	events := []models.BroadcastEvent{
		noiseEvent(1),
		models.AlertEvent{DeviceID: "S1", Zone: "Z1", NoiseDb: 92, ThresholdDb: 85, Timestamp: 1},
		models.DeviceStatusEvent{DeviceID: "S1", Zone: "Z1", Status: models.DeviceOffline, LastSeen: 1},
		models.DeviceConfigEvent{DeviceID: "S1", Enabled: &enabled},
		models.ThresholdsEvent{Thresholds: []models.Threshold{models.GlobalThreshold(85)}},
	}

	for _, ev := range events {
		h.Publish(ev)
	}

	for _, ev := range events {
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(<-sub.C(), &decoded))
		assert.Equal(t, string(ev.EventType()), decoded["type"])
	}
}
