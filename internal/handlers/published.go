// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"backdrop/internal/models"
	"backdrop/internal/rollout"
)

// publishedMaxAge matches how stale clients may see the snapshot anyway.
const publishedMaxAge = "public, max-age=30"

// Published returns the whole published snapshot document.
func (a *API) Published(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.snapshot(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", publishedMaxAge)
	writeJSON(w, http.StatusOK, snap)
}

// PublishedFor returns the items one viewer sees in an audience, after
// rollout bucketing on ?viewer=ID.
func (a *API) PublishedFor(w http.ResponseWriter, r *http.Request) {
	audience := models.Audience(strings.ToLower(chi.URLParam(r, "audience")))
	if !audience.Valid() {
		writeError(w, http.StatusNotFound, "unknown_audience", "unknown audience")
		return
	}
	viewer := strings.TrimSpace(r.URL.Query().Get("viewer"))
	if viewer == "" {
		writeError(w, http.StatusBadRequest, "missing_viewer", "viewer is required")
		return
	}

	snap, ok := a.snapshot(w, r)
	if !ok {
		return
	}
	items := make([]models.PublishedItem, 0)
	for _, it := range snap.ItemsFor(audience) {
		percent := it.Rollout.All
		if audience == models.AudienceVIP {
			percent = it.Rollout.VIP
		}
		if rollout.Includes(percent, it.RolloutSalt, viewer) {
			items = append(items, it)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"audience":  audience,
		"items":     items,
		"updatedAt": snap.UpdatedAt,
	})
}

func (a *API) snapshot(w http.ResponseWriter, r *http.Request) (*models.PublishedSnapshot, bool) {
	snap, found, err := a.snapshots.Get(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return nil, false
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_published", "no snapshot has been published yet")
		return nil, false
	}
	return snap, true
}
