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
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Group runs services in stages. Services within a stage start and stop
// concurrently; stages start in order and stop in reverse order.
type Group struct {
	mu      sync.Mutex
	stages  [][]Service
	started int
}

var _ Service = (*Group)(nil)

// Add appends a stage. Nil interface values are skipped.
func (g *Group) Add(services ...Service) {
	stage := make([]Service, 0, len(services))

	for _, svc := range services {
		if svc != nil {
			stage = append(stage, svc)
		}
	}

	if len(stage) == 0 {
		return
	}

	g.mu.Lock()
	g.stages = append(g.stages, stage)
	g.mu.Unlock()
}

// Start starts every stage. When a stage fails it and every earlier stage are
// stopped before the error is returned, so services must tolerate Stop
// without a successful Start.
func (g *Group) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, stage := range g.stages {
		if err := runStage(ctx, stage, Service.Start); err != nil {
			g.started = i + 1
			_ = g.stopLocked(context.WithoutCancel(ctx))

			return fmt.Errorf("stage %d: %w", i, err)
		}

		g.started = i + 1
	}

	return nil
}

// Stop stops started stages in reverse order and reports the first failure.
func (g *Group) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.stopLocked(ctx)
}

func (g *Group) stopLocked(ctx context.Context) error {
	var firstErr error

	for i := g.started - 1; i >= 0; i-- {
		if err := runStage(ctx, g.stages[i], Service.Stop); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stage %d: %w", i, err)
		}
	}

	g.started = 0

	return firstErr
}

func runStage(ctx context.Context, stage []Service, op func(Service, context.Context) error) error {
	var eg errgroup.Group

	for _, svc := range stage {
		eg.Go(func() error {
			return op(svc, ctx)
		})
	}

	return eg.Wait()
}

// Func adapts a pair of functions to Service.
type Func struct {
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
}

func (f Func) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}

	return f.StartFunc(ctx)
}

func (f Func) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}

	return f.StopFunc(ctx)
}
