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
	"time"

	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
)

const (
	maxWriteBatch = 64
	writeTimeout  = 5 * time.Second
)

// ReadingWriter persists readings.
type ReadingWriter interface {
	WriteReadings(ctx context.Context, samples []models.NoiseSample) error
}

// storageWriter is a bounded fire-and-forget queue in front of the storage
// collaborator. enqueue never blocks; a full queue drops the sample.
type storageWriter struct {
	store   ReadingWriter
	queue   chan models.NoiseSample
	workers int
	logger  logger.Logger

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	stopped   chan struct{}
	mu        sync.RWMutex
}

func newStorageWriter(store ReadingWriter, workers, queueSize int, log logger.Logger) *storageWriter {
	if workers <= 0 {
		workers = DefaultStorageWorkers
	}

	if queueSize <= 0 {
		queueSize = DefaultStorageQueue
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &storageWriter{
		store:   store,
		queue:   make(chan models.NoiseSample, queueSize),
		workers: workers,
		logger:  log,
		stopped: make(chan struct{}),
	}
}

func (w *storageWriter) start(ctx context.Context) {
	w.startOnce.Do(func() {
		ctx = context.WithoutCancel(ctx)

		for range w.workers {
			w.wg.Add(1)

			go w.run(ctx)
		}
	})
}

// enqueue reports whether the sample was accepted.
func (w *storageWriter) enqueue(sample models.NoiseSample) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	select {
	case <-w.stopped:
		return false
	default:
	}

	select {
	case w.queue <- sample:
		return true
	default:
		recordStorageDropped()
		w.logger.Warn().
			Str("device_id", sample.DeviceID).
			Int("queue", cap(w.queue)).
			Msg("Storage queue full, dropping reading")

		return false
	}
}

func (w *storageWriter) run(ctx context.Context) {
	defer w.wg.Done()

	batch := make([]models.NoiseSample, 0, maxWriteBatch)

	for sample := range w.queue {
		batch = append(batch[:0], sample)

	drain:
		for len(batch) < maxWriteBatch {
			select {
			case next, ok := <-w.queue:
				if !ok {
					break drain
				}

				batch = append(batch, next)
			default:
				break drain
			}
		}

		w.flush(ctx, batch)
	}
}

func (w *storageWriter) flush(ctx context.Context, batch []models.NoiseSample) {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := w.store.WriteReadings(writeCtx, batch); err != nil {
		recordStorageFailures(len(batch))
		w.logger.Warn().
			Err(err).
			Int("readings", len(batch)).
			Str("first_device_id", batch[0].DeviceID).
			Msg("Storage write failed")
	}
}

// stop refuses new samples, lets workers drain what is queued and waits for
// them or ctx.
func (w *storageWriter) stop(ctx context.Context) error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		close(w.stopped)
		close(w.queue)
		w.mu.Unlock()
	})

	done := make(chan struct{})

	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
