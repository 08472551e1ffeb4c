// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON API handlers for themes, assets, the
// published snapshot and job triggers. Handlers receive their dependencies
// through the API struct and map domain errors to HTTP responses.
package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"backdrop/internal/library"
	"backdrop/internal/middleware"
	"backdrop/internal/models"
	"backdrop/internal/store"
)

// ThemeService is the theme record store as seen by the API.
type ThemeService interface {
	Create(ctx context.Context, t *models.Theme, actor uuid.UUID, payload map[string]any) (*models.Theme, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Theme, error)
	List(ctx context.Context, f store.ThemeFilter) ([]models.Theme, error)
	Update(ctx context.Context, id uuid.UUID, patch models.ThemePatch, actor uuid.UUID) (*models.Theme, error)
	Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) (*models.Theme, error)
	Audit(ctx context.Context, themeID uuid.UUID) ([]models.AuditEntry, error)
}

// AssetLister reads registered background assets.
type AssetLister interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.BackgroundAsset, error)
	List(ctx context.Context, limit, offset int) ([]models.BackgroundAsset, error)
}

// AssetWorkflow registers assets and moves backgrounds between themes.
type AssetWorkflow interface {
	Register(ctx context.Context, up library.Upload, actor uuid.UUID) (*models.BackgroundAsset, error)
	ReplaceBackground(ctx context.Context, themeID uuid.UUID, up library.Upload, actor uuid.UUID) (*models.Theme, error)
	Apply(ctx context.Context, themeID, assetID uuid.UUID, actor uuid.UUID) (*models.Theme, error)
	Revert(ctx context.Context, themeID uuid.UUID, actor uuid.UUID) (*models.Theme, error)
}

// SnapshotReader reads the last published snapshot.
type SnapshotReader interface {
	Get(ctx context.Context) (*models.PublishedSnapshot, bool, error)
}

// JobTrigger runs a registered job on demand.
type JobTrigger interface {
	RunNow(ctx context.Context, name string) error
}

// API groups the JSON API handlers and their dependencies.
type API struct {
	themes    ThemeService
	assets    AssetLister
	library   AssetWorkflow
	snapshots SnapshotReader
	jobs      JobTrigger
}

// NewAPI creates the API handler group. library may be nil when object
// storage is not configured; upload and apply endpoints then answer 503.
func NewAPI(themes ThemeService, assets AssetLister, lib AssetWorkflow, snapshots SnapshotReader, jobs JobTrigger) *API {
	return &API{
		themes:    themes,
		assets:    assets,
		library:   lib,
		snapshots: snapshots,
		jobs:      jobs,
	}
}

// actor returns the caller's ID. Routes that mutate state are mounted
// behind middleware.RequireActor, so the zero value only shows up on
// read-only routes.
func actor(r *http.Request) uuid.UUID {
	id, _ := middleware.ActorFromCtx(r.Context())
	return id
}
