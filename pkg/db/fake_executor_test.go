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
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errFakeScanArity = errors.New("scan arity mismatch")

type execCall struct {
	sql  string
	args []any
}

// fakePgxExecutor records statements and replays canned rows.
type fakePgxExecutor struct {
	execs   []execCall
	execErr error

	queries  []execCall
	rows     [][]any
	queryErr error
	rowsErr  error

	row    []any
	rowErr error

	batches []*pgx.Batch
	br      *fakeBatchResults
}

func (f *fakePgxExecutor) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})

	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}

	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakePgxExecutor) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, execCall{sql: sql, args: args})

	if f.queryErr != nil {
		return nil, f.queryErr
	}

	return &fakeRows{rows: f.rows, err: f.rowsErr, idx: -1}, nil
}

func (f *fakePgxExecutor) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, execCall{sql: sql, args: args})

	return &fakeRow{values: f.row, err: f.rowErr}
}

func (f *fakePgxExecutor) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batches = append(f.batches, b)

	if f.br == nil {
		f.br = &fakeBatchResults{}
	}

	return f.br
}

func scanInto(values []any, dest []any) error {
	if len(values) != len(dest) {
		return errFakeScanArity
	}

	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()

		if values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}

		target.Set(reflect.ValueOf(values[i]))
	}

	return nil
}

type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	return scanInto(r.values, dest)
}

type fakeRows struct {
	rows   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Close() { r.closed = true }
func (r *fakeRows) Err() error { return r.err }
func (*fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (*fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error) { return r.rows[r.idx], nil }
func (*fakeRows) RawValues() [][]byte { return nil }
func (*fakeRows) Conn() *pgx.Conn { return nil }

func (r *fakeRows) Next() bool {
	if r.idx+1 >= len(r.rows) {
		return false
	}

	r.idx++

	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return scanInto(r.rows[r.idx], dest)
}

var errFakeBatchQuery = errors.New("batch queries are not scripted")

// fakeBatchResults answers Exec calls in order, failing at execErrAt when
// execErr is set.
type fakeBatchResults struct {
	execErrAt  int
	execErr    error
	closeErr   error
	execCalls  int
	closeCalls int
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	call := f.execCalls
	f.execCalls++

	if f.execErr != nil && call == f.execErrAt {
		return pgconn.CommandTag{}, f.execErr
	}

	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (*fakeBatchResults) Query() (pgx.Rows, error) { return nil, errFakeBatchQuery }

func (*fakeBatchResults) QueryRow() pgx.Row { return &fakeRow{err: errFakeBatchQuery} }

func (f *fakeBatchResults) Close() error {
	f.closeCalls++

	return f.closeErr
}
