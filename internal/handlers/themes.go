// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backdrop/internal/models"
	"backdrop/internal/store"
)

// themeRequest is the body of theme create and patch requests. Absent
// scalar fields are left untouched on patch; absent schedule fields are
// cleared.
type themeRequest struct {
	Name            *string                `json:"name"`
	Description     *string                `json:"description"`
	BackgroundURL   *string                `json:"background_url"`
	BackgroundType  *models.BackgroundType `json:"background_type"`
	Visibility      *models.Visibility     `json:"visibility"`
	Audiences       *[]models.Audience     `json:"audiences"`
	Rollout         *models.Rollout        `json:"rollout"`
	RolloutSalt     *string                `json:"rollout_salt"`
	FeaturedOnLogin *bool                  `json:"featured_on_login"`
	Tier            *string                `json:"tier"`
	ABRollout       *int                   `json:"ab_rollout"`

	ReleaseAt    nullTime `json:"release_at"`
	VIPReleaseAt nullTime `json:"vip_release_at"`
	ExpiresAt    nullTime `json:"expires_at"`
	DeleteAt     nullTime `json:"delete_at"`
}

// nullTime is a schedule time in a request body. null and "" both decode
// as unset.
type nullTime struct{ t *time.Time }

func (n *nullTime) UnmarshalJSON(b []byte) error {
	if s := string(b); s == "null" || s == `""` {
		n.t = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	n.t = &t
	return nil
}

func (req *themeRequest) patch() models.ThemePatch {
	p := models.ThemePatch{
		Name:            req.Name,
		Description:     req.Description,
		Visibility:      req.Visibility,
		Audiences:       req.Audiences,
		Rollout:         req.Rollout,
		RolloutSalt:     req.RolloutSalt,
		FeaturedOnLogin: req.FeaturedOnLogin,
		Tier:            req.Tier,
		ABRollout:       req.ABRollout,
		ReleaseAt:       req.ReleaseAt.t,
		VIPReleaseAt:    req.VIPReleaseAt.t,
		ExpiresAt:       req.ExpiresAt.t,
		DeleteAt:        req.DeleteAt.t,
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	return p
}

// ListThemes returns themes, newest first. Archived themes are included
// only with ?include_archived=true.
func (a *API) ListThemes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ThemeFilter{
		IncludeArchived: q.Get("include_archived") == "true",
		Limit:           queryInt(q.Get("limit"), 50),
		Offset:          queryInt(q.Get("offset"), 0),
	}
	themes, err := a.themes.List(r.Context(), f)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if themes == nil {
		themes = []models.Theme{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"themes": themes})
}

// CreateTheme creates a private draft theme from the request body.
func (a *API) CreateTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := validateThemeRequest(&req, true); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_theme", msg)
		return
	}

	t := &models.Theme{Visibility: models.VisibilityPrivate}
	if req.BackgroundURL != nil {
		t.BackgroundURL = *req.BackgroundURL
	}
	if req.BackgroundType != nil {
		t.BackgroundType = *req.BackgroundType
	}
	req.patch().Apply(t)

	created, err := a.themes.Create(r.Context(), t, actor(r), map[string]any{"source": "api"})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetTheme returns one theme, archived or not.
func (a *API) GetTheme(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := a.themes.FindByID(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// PatchTheme applies a merge-patch to a theme.
func (a *API) PatchTheme(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req themeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BackgroundURL != nil || req.BackgroundType != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_theme",
			"Backgrounds are changed through the background, apply and revert endpoints.")
		return
	}
	if msg := validateThemeRequest(&req, false); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_theme", msg)
		return
	}

	t, err := a.themes.Update(r.Context(), id, req.patch(), actor(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTheme archives a theme permanently. Repeating it is harmless.
func (a *API) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := a.themes.Delete(r.Context(), id, actor(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ThemeAudit returns a theme's audit trail, newest first.
func (a *API) ThemeAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := a.themes.FindByID(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	entries, err := a.themes.Audit(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func queryInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
