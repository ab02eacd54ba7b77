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

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStageFailed = errors.New("stage failed")

type orderLog struct {
	mu     sync.Mutex
	events []string
}

func (o *orderLog) add(e string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.events = append(o.events, e)
}

func (o *orderLog) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]string(nil), o.events...)
}

func recorded(log *orderLog, name string, startErr error) Func {
	return Func{
		StartFunc: func(context.Context) error {
			log.add("start " + name)
			return startErr
		},
		StopFunc: func(context.Context) error {
			log.add("stop " + name)
			return nil
		},
	}
}

func TestGroupStopsInReverseOrder(t *testing.T) {
	t.Parallel()

	log := &orderLog{}

	var g Group
	g.Add(recorded(log, "storage", nil))
	g.Add(recorded(log, "ingest", nil))
	g.Add()
	g.Add(nil)

	ctx := context.Background()
	require.NoError(t, g.Start(ctx))
	require.NoError(t, g.Stop(ctx))
	require.NoError(t, g.Stop(ctx))

	assert.Equal(t, []string{"start storage", "start ingest", "stop ingest", "stop storage"}, log.snapshot())
}

func TestGroupStartFailureUnwinds(t *testing.T) {
	t.Parallel()

	log := &orderLog{}

	var g Group
	g.Add(recorded(log, "storage", nil))
	g.Add(recorded(log, "ingest", errStageFailed))
	g.Add(recorded(log, "http", nil))

	err := g.Start(context.Background())
	require.ErrorIs(t, err, errStageFailed)

	assert.Equal(t, []string{"start storage", "start ingest", "stop ingest", "stop storage"}, log.snapshot())
}

func TestGroupStageRunsConcurrently(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	waiting := Func{StartFunc: func(context.Context) error {
		<-release
		return nil
	}}
	releaser := Func{StartFunc: func(context.Context) error {
		close(release)
		return nil
	}}

	var g Group
	g.Add(waiting, releaser)

	require.NoError(t, g.Start(context.Background()))
}
