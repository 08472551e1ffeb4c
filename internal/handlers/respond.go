// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"backdrop/internal/jobs"
	"backdrop/internal/library"
	"backdrop/internal/media"
	"backdrop/internal/models"
	"backdrop/internal/store"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// writeErr maps a domain error to its HTTP status. Unknown errors are
// logged and reported as a generic 500.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorBody) {
	var verr *media.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorBody{
			Error: verr.Error(),
			Code:  string(verr.Reason),
			Details: map[string]any{
				"width":        verr.Width,
				"height":       verr.Height,
				"min_width":    verr.MinWidth,
				"min_height":   verr.MinHeight,
				"ratio":        verr.Ratio,
				"target_ratio": verr.TargetRatio,
				"tolerance":    verr.Tolerance,
			},
		}
	case errors.Is(err, media.ErrUnsupportedMedia):
		return http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: "unsupported_media"}
	case errors.Is(err, media.ErrProbeUnavailable):
		return http.StatusServiceUnavailable, errorBody{Error: err.Error(), Code: "probe_unavailable"}
	case errors.Is(err, models.ErrInvalidTheme):
		return http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: "invalid_theme"}
	case errors.Is(err, library.ErrAssetNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: "asset_not_found"}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not found", Code: "not_found"}
	case errors.Is(err, library.ErrNothingToRevert):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "nothing_to_revert"}
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, errorBody{Error: "the record was modified concurrently, retry the request", Code: "conflict"}
	case errors.Is(err, jobs.ErrUnknownJob):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: "unknown_job"}
	case errors.Is(err, jobs.ErrBusy):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "job_busy"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "internal"}
	}
}

// pathID parses a UUID route parameter, writing a 400 when it is invalid.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// decodeJSON reads a JSON request body, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
