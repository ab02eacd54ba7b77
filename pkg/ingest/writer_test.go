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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
)

type blockingWriter struct {
	release chan struct{}

	mu      sync.Mutex
	written int
}

func (w *blockingWriter) WriteReadings(_ context.Context, samples []models.NoiseSample) error {
	<-w.release

	w.mu.Lock()
	w.written += len(samples)
	w.mu.Unlock()

	return nil
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	store := &blockingWriter{release: make(chan struct{})}
	w := newStorageWriter(store, 1, 2, logger.NewTestLogger())

	// Workers are not started, so nothing leaves the queue.
	assert.True(t, w.enqueue(models.NoiseSample{DeviceID: "S1"}))
	assert.True(t, w.enqueue(models.NoiseSample{DeviceID: "S2"}))

	done := make(chan bool)

	go func() {
		done <- w.enqueue(models.NoiseSample{DeviceID: "S3"})
	}()

	select {
	case accepted := <-done:
		assert.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}

	close(store.release)
	w.start(context.Background())
	require.NoError(t, w.stop(context.Background()))

	store.mu.Lock()
	defer store.mu.Unlock()

	assert.Equal(t, 2, store.written)
}

func TestStopRejectsLateSamples(t *testing.T) {
	t.Parallel()

	store := &blockingWriter{release: make(chan struct{})}
	close(store.release)

	w := newStorageWriter(store, 2, 4, nil)
	w.start(context.Background())

	require.NoError(t, w.stop(context.Background()))
	require.NoError(t, w.stop(context.Background()))

	assert.False(t, w.enqueue(models.NoiseSample{DeviceID: "late"}))
}

func TestStopHonorsContext(t *testing.T) {
	t.Parallel()

	store := &blockingWriter{release: make(chan struct{})}
	w := newStorageWriter(store, 1, 4, logger.NewTestLogger())
	w.start(context.Background())

	require.True(t, w.enqueue(models.NoiseSample{DeviceID: "S1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, w.stop(ctx), context.DeadlineExceeded)

	close(store.release)
}
