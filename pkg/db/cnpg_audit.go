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
	"encoding/json"
	"fmt"

	"github.com/carverauto/noiseradar/pkg/models"
)

const (
	defaultAuditLimit = 100

	insertAuditSQL = `
INSERT INTO audit_logs (action, actor, data)
VALUES ($1, $2, $3)`

	listAuditSQL = `
SELECT id, action, actor, data, created_at
FROM audit_logs
ORDER BY id DESC
LIMIT $1`
)

// WriteAudit records an operator action. data is stored as JSONB and may be
// nil.
func (db *DB) WriteAudit(ctx context.Context, action, actor string, data map[string]any) error {
	if action == "" {
		return ErrActionRequired
	}

	var payload []byte

	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("%w audit data: %w", ErrFailedToInsert, err)
		}

		payload = encoded
	}

	if _, err := db.executor.Exec(ctx, insertAuditSQL, action, actor, payload); err != nil {
		return fmt.Errorf("%w audit entry: %w", ErrFailedToInsert, err)
	}

	return nil
}

// ListAudit returns the most recent entries, newest first.
func (db *DB) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	rows, err := db.executor.Query(ctx, listAuditSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("%w audit entries: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)

	for rows.Next() {
		var (
			entry models.AuditEntry
			data  []byte
		)

		if err := rows.Scan(&entry.ID, &entry.Action, &entry.Actor, &data, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w audit entry: %w", ErrFailedToScan, err)
		}

		if len(data) > 0 {
			entry.Data = data
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w audit entries: %w", ErrFailedToQuery, err)
	}

	return entries, nil
}
