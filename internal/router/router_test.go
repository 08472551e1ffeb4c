// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains, and the health endpoint.
package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backdrop/internal/handlers"
)

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("content-type: got %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want %q", body["status"], "ok")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := New(handlers.NewAPI(nil, nil, nil, nil, nil), nil)

	// Serve one request first so the HTTP counters have a sample.
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "backdrop_http_requests_total") {
		t.Error("metrics output should include the HTTP request counter")
	}
}

func TestWritesRequireActor(t *testing.T) {
	r := New(handlers.NewAPI(nil, nil, nil, nil, nil), nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/themes"},
		{http.MethodPatch, "/api/themes/6a1f3c1e-52f0-4b8d-9f5e-1d2c3b4a5e6f"},
		{http.MethodDelete, "/api/themes/6a1f3c1e-52f0-4b8d-9f5e-1d2c3b4a5e6f"},
		{http.MethodPost, "/api/themes/6a1f3c1e-52f0-4b8d-9f5e-1d2c3b4a5e6f/revert"},
		{http.MethodPost, "/api/assets"},
		{http.MethodPost, "/api/jobs/publish/run"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", w.Code)
			}
		})
	}
}
