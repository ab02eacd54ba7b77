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

package mqtt

import "github.com/carverauto/noiseradar/pkg/codec"

// DiagnosticFilter matches broker diagnostics, which are logged and dropped.
const DiagnosticFilter = "$SYS/#"

// SubscriptionsFor returns the filters a consumer needs for scheme: readings
// at QoS 0, status reports at QoS 1 and broker diagnostics at QoS 0.
func SubscriptionsFor(scheme codec.TopicScheme, includeDiagnostics bool) []Subscription {
	scheme = scheme.WithDefaults()

	subs := []Subscription{
		{Filter: scheme.ReadingFilter(), QoS: AtMostOnce},
		{Filter: scheme.StatusFilter(), QoS: AtLeastOnce},
	}

	if includeDiagnostics {
		subs = append(subs, Subscription{Filter: DiagnosticFilter, QoS: AtMostOnce})
	}

	return subs
}
