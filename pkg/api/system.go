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

package api

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const systemSampleTimeout = 2 * time.Second

// SystemStats is a point-in-time view of the consumer process and its host.
type SystemStats struct {
	PID               int32   `json:"pid"`
	Goroutines        int     `json:"goroutines"`
	RSSBytes          uint64  `json:"rssBytes"`
	CPUPercent        float64 `json:"cpuPercent"`
	Threads           int32   `json:"threads"`
	HostMemoryUsedPct float64 `json:"hostMemoryUsedPercent"`
	UptimeSeconds     int64   `json:"uptimeSeconds"`
}

// SystemSampler collects SystemStats. Fields it cannot read stay zero.
type SystemSampler func(ctx context.Context) (SystemStats, error)

func newProcessSampler(started time.Time) SystemSampler {
	return func(ctx context.Context) (SystemStats, error) {
		stats := SystemStats{
			PID:           int32(os.Getpid()), //nolint:gosec // pids fit in int32
			Goroutines:    runtime.NumGoroutine(),
			UptimeSeconds: int64(time.Since(started).Seconds()),
		}

		proc, err := process.NewProcessWithContext(ctx, stats.PID)
		if err != nil {
			return stats, err
		}

		if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
			stats.RSSBytes = info.RSS
		}

		if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
			stats.CPUPercent = pct
		}

		if n, err := proc.NumThreadsWithContext(ctx); err == nil {
			stats.Threads = n
		}

		if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
			stats.HostMemoryUsedPct = vm.UsedPercent
		}

		return stats, nil
	}
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), systemSampleTimeout)
	defer cancel()

	stats, err := s.sampler(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Partial system stats")
	}

	writeJSON(w, http.StatusOK, stats)
}
