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

package codec

import "time"

const (
	msEpochFloor   = 1e12
	secEpochFloor  = 1e9
	// Year 5138 in ms. Anything later is garbage and would not fit a
	// Postgres timestamptz or survive the int64 conversion.
	msEpochCeiling = 1e14
)

// NormalizeTimestampMs converts a sensor-supplied timestamp to milliseconds
// since the epoch.
//
// This is a heuristic, not a guarantee. Values >= 1e12 are taken as
// milliseconds, values in [1e9, 1e12) as seconds, and anything smaller
// (uptime counters, unset clocks) is replaced by receivedAt. Values at or
// above 1e14 are replaced by receivedAt as well.
func NormalizeTimestampMs(ts float64, receivedAt time.Time) int64 {
	switch {
	case ts >= msEpochCeiling:
		return receivedAt.UnixMilli()
	case ts >= msEpochFloor:
		return int64(ts)
	case ts >= secEpochFloor:
		return int64(ts * 1000)
	default:
		return receivedAt.UnixMilli()
	}
}
