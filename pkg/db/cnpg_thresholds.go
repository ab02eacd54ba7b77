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
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/carverauto/noiseradar/pkg/models"
)

const (
	// Device row sorts before the global row; NULLs sort last ascending.
	resolveThresholdSQL = `
SELECT device_id, threshold_db
FROM thresholds
WHERE device_id = $1 OR device_id IS NULL
ORDER BY device_id ASC NULLS LAST
LIMIT 1`

	listThresholdsSQL = `
SELECT device_id, threshold_db
FROM thresholds
ORDER BY device_id ASC NULLS FIRST`

	upsertThresholdSQL = `
INSERT INTO thresholds (device_id, threshold_db)
VALUES ($1, $2)
ON CONFLICT ((COALESCE(device_id, ''))) DO UPDATE
SET threshold_db = EXCLUDED.threshold_db,
    updated_at = now()`
)

// ResolveThreshold returns the device threshold, else the global one, else
// nil.
func (db *DB) ResolveThreshold(ctx context.Context, deviceID string) (*models.Threshold, error) {
	var t models.Threshold

	err := db.executor.QueryRow(ctx, resolveThresholdSQL, deviceID).Scan(&t.DeviceID, &t.ThresholdDb)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w threshold for %s: %w", ErrFailedToQuery, deviceID, err)
	}

	return &t, nil
}

// ListThresholds returns every configured threshold, global first.
func (db *DB) ListThresholds(ctx context.Context) ([]models.Threshold, error) {
	rows, err := db.executor.Query(ctx, listThresholdsSQL)
	if err != nil {
		return nil, fmt.Errorf("%w thresholds: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	thresholds := make([]models.Threshold, 0)

	for rows.Next() {
		var t models.Threshold

		if err := rows.Scan(&t.DeviceID, &t.ThresholdDb); err != nil {
			return nil, fmt.Errorf("%w threshold: %w", ErrFailedToScan, err)
		}

		thresholds = append(thresholds, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w thresholds: %w", ErrFailedToQuery, err)
	}

	return thresholds, nil
}

// UpsertThreshold sets the threshold for deviceID, or the global one when
// deviceID is nil.
func (db *DB) UpsertThreshold(ctx context.Context, deviceID *string, thresholdDb float64) error {
	if math.IsNaN(thresholdDb) || math.IsInf(thresholdDb, 0) {
		return ErrInvalidThreshold
	}

	if deviceID != nil && *deviceID == "" {
		return ErrDeviceIDRequired
	}

	if _, err := db.executor.Exec(ctx, upsertThresholdSQL, deviceID, thresholdDb); err != nil {
		return fmt.Errorf("%w threshold: %w", ErrFailedToInsert, err)
	}

	return nil
}
