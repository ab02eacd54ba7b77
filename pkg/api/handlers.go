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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/carverauto/noiseradar/pkg/control"
	"github.com/carverauto/noiseradar/pkg/mqtt"
	"github.com/carverauto/noiseradar/pkg/version"
)

const (
	actorHeader  = "X-Actor"
	defaultActor = "operator"
	maxBodyBytes = 1 << 16
)

type errorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type healthResponse struct {
	Status  string `json:"status"`
	MQTT    string `json:"mqtt"`
	Storage string `json:"storage"`
	Version string `json:"version"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type ecoModeRequest struct {
	EcoMode *bool `json:"ecoMode"`
}

type thresholdRequest struct {
	DeviceID    *string  `json:"deviceId"`
	ThresholdDb *float64 `json:"thresholdDb"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", MQTT: "unknown", Storage: "disabled", Version: version.GetVersion()}
	code := http.StatusOK

	if s.status != nil {
		st := s.status.ConnectionStatus()
		resp.MQTT = string(st)

		if st != mqtt.StatusConnected {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	if s.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := s.storage.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Storage health check failed")

			resp.Storage = "unavailable"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			resp.Storage = "ok"
		}
	}

	writeJSON(w, code, resp)
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Devices())
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.controller.Device(mux.Vars(r)["id"])
	if !ok {
		writeError(w, "device not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Enabled == nil {
		writeError(w, "enabled is required", http.StatusBadRequest)
		return
	}

	rec, ok := s.controller.SetEnabled(r.Context(), actorFrom(r), mux.Vars(r)["id"], *req.Enabled)
	if !ok {
		writeError(w, "device not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSetEcoMode(w http.ResponseWriter, r *http.Request) {
	var req ecoModeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.EcoMode == nil {
		writeError(w, "ecoMode is required", http.StatusBadRequest)
		return
	}

	rec, ok := s.controller.SetEcoMode(r.Context(), actorFrom(r), mux.Vars(r)["id"], *req.EcoMode)
	if !ok {
		writeError(w, "device not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, "storage is not configured", http.StatusServiceUnavailable)
		return
	}

	var since int64

	if raw := r.URL.Query().Get("since_ms"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, "since_ms must be an integer", http.StatusBadRequest)
			return
		}

		since = v
	}

	samples, err := s.history.ListReadings(r.Context(), mux.Vars(r)["id"], since)
	if err != nil {
		s.logger.Error().Err(err).Str("device_id", mux.Vars(r)["id"]).Msg("Failed to list readings")
		writeError(w, "failed to list readings", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleListThresholds(w http.ResponseWriter, r *http.Request) {
	thresholds, err := s.controller.Thresholds(r.Context())
	if err != nil {
		s.writeControlError(w, "failed to list thresholds", err)
		return
	}

	writeJSON(w, http.StatusOK, thresholds)
}

func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.ThresholdDb == nil {
		writeError(w, "thresholdDb is required", http.StatusBadRequest)
		return
	}

	thresholds, err := s.controller.SetThreshold(r.Context(), actorFrom(r), req.DeviceID, *req.ThresholdDb)
	if err != nil {
		s.writeControlError(w, "failed to set threshold", err)
		return
	}

	writeJSON(w, http.StatusOK, thresholds)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}

		limit = v
	}

	entries, err := s.controller.Audit(r.Context(), limit)
	if err != nil {
		s.writeControlError(w, "failed to list audit entries", err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) writeControlError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, control.ErrStoreUnavailable):
		writeError(w, "storage is not configured", http.StatusServiceUnavailable)
	case errors.Is(err, control.ErrInvalidThreshold), errors.Is(err, control.ErrEmptyDeviceID):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error().Err(err).Msg(message)
		writeError(w, message, http.StatusInternalServerError)
	}
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get(actorHeader); actor != "" {
		return actor
	}

	return defaultActor
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, errorResponse{Message: message, Status: statusCode})
}
