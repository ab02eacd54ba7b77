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

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/carverauto/noiseradar/pkg/models"
)

const (
	insertNoiseReadingSQL = `
INSERT INTO noise_readings (ts, device_id, noise_db)
VALUES ($1, $2, $3)`

	listNoiseReadingsSQL = `
SELECT device_id, noise_db, ts
FROM noise_readings
WHERE device_id = $1 AND ts >= $2
ORDER BY ts ASC`
)

// WriteReading persists one sample.
func (db *DB) WriteReading(ctx context.Context, deviceID string, noiseDb float64, tsMs int64) error {
	if deviceID == "" {
		return ErrDeviceIDRequired
	}

	if _, err := db.executor.Exec(ctx, insertNoiseReadingSQL, time.UnixMilli(tsMs).UTC(), deviceID, noiseDb); err != nil {
		return fmt.Errorf("%w noise reading: %w", ErrFailedToInsert, err)
	}

	return nil
}

// WriteReadings persists samples in a single batch. Samples without a device
// id are skipped.
func (db *DB) WriteReadings(ctx context.Context, samples []models.NoiseSample) error {
	batch := queueAll(samples, insertNoiseReadingSQL, func(s models.NoiseSample) ([]any, bool) {
		if s.DeviceID == "" {
			return nil, false
		}

		return []any{time.UnixMilli(s.TimestampMs).UTC(), s.DeviceID, s.NoiseDb}, true
	})

	if err := sendBatchExecAll(ctx, batch, db.executor.SendBatch, "noise_readings"); err != nil {
		return fmt.Errorf("%w noise readings: %w", ErrFailedToInsert, err)
	}

	return nil
}

// ListReadings returns a device's samples at or after sinceMs, oldest first.
func (db *DB) ListReadings(ctx context.Context, deviceID string, sinceMs int64) ([]models.NoiseSample, error) {
	rows, err := db.executor.Query(ctx, listNoiseReadingsSQL, deviceID, time.UnixMilli(sinceMs).UTC())
	if err != nil {
		return nil, fmt.Errorf("%w noise readings: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var samples []models.NoiseSample

	for rows.Next() {
		var (
			s  models.NoiseSample
			ts time.Time
		)

		if err := rows.Scan(&s.DeviceID, &s.NoiseDb, &ts); err != nil {
			return nil, fmt.Errorf("%w noise reading: %w", ErrFailedToScan, err)
		}

		s.TimestampMs = ts.UnixMilli()
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w noise readings: %w", ErrFailedToQuery, err)
	}

	return samples, nil
}
