// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// RunJob runs a registered job now and waits for it to finish. The run
// continues even if the client goes away.
func (a *API) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	start := time.Now()
	if err := a.jobs.RunNow(r.Context(), name); err != nil {
		writeErr(w, r, err)
		return
	}
	elapsed := time.Since(start)
	slog.Info("job triggered manually", "job", name, "actor", actor(r), "duration", elapsed)
	writeJSON(w, http.StatusOK, map[string]any{
		"job":         name,
		"status":      "ok",
		"duration_ms": elapsed.Milliseconds(),
	})
}
