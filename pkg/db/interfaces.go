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

// Package db persists noise readings, thresholds and audit entries in a
// CNPG/Timescale cluster.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/noiseradar/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/carverauto/noiseradar/pkg/db Service

// Service is the storage collaborator used by ingestion and operator commands.
type Service interface {
	// Readings.

	WriteReading(ctx context.Context, deviceID string, noiseDb float64, tsMs int64) error
	WriteReadings(ctx context.Context, samples []models.NoiseSample) error
	ListReadings(ctx context.Context, deviceID string, sinceMs int64) ([]models.NoiseSample, error)

	// Thresholds.

	ResolveThreshold(ctx context.Context, deviceID string) (*models.Threshold, error)
	ListThresholds(ctx context.Context) ([]models.Threshold, error)
	UpsertThreshold(ctx context.Context, deviceID *string, thresholdDb float64) error

	// Audit.

	WriteAudit(ctx context.Context, action, actor string, data map[string]any) error
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)

	Ping(ctx context.Context) error
	Close() error
}

// pgxExecutor is the subset of *pgxpool.Pool the queries use.
type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}
