// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// api_test.go provides in-memory fakes and a test router shared by the
// handler tests.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"backdrop/internal/library"
	"backdrop/internal/middleware"
	"backdrop/internal/models"
	"backdrop/internal/store"
)

var testActor = uuid.MustParse("2b4f8c6d-1e3a-4d5b-9c7e-0f1a2b3c4d5e")

type memThemes struct {
	themes map[uuid.UUID]*models.Theme
	audit  map[uuid.UUID][]models.AuditEntry
}

func newMemThemes() *memThemes {
	return &memThemes{themes: map[uuid.UUID]*models.Theme{}, audit: map[uuid.UUID][]models.AuditEntry{}}
}

func (m *memThemes) add(t *models.Theme, actor uuid.UUID, action models.AuditAction, payload map[string]any) {
	m.audit[t.ID] = append([]models.AuditEntry{{
		ID: uuid.New(), ThemeID: t.ID, At: time.Now(), ActorID: actor, Action: action, Payload: payload,
	}}, m.audit[t.ID]...)
}

func (m *memThemes) Create(_ context.Context, t *models.Theme, actor uuid.UUID, payload map[string]any) (*models.Theme, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.RolloutSalt == "" {
		t.RolloutSalt = t.ID.String()
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.CreatedBy = actor
	t.Version = 1
	c := *t
	m.themes[t.ID] = &c
	m.add(t, actor, models.AuditCreated, payload)
	return t, nil
}

func (m *memThemes) FindByID(_ context.Context, id uuid.UUID) (*models.Theme, error) {
	t, ok := m.themes[id]
	if !ok {
		return nil, fmt.Errorf("theme %s: %w", id, store.ErrNotFound)
	}
	c := *t
	return &c, nil
}

func (m *memThemes) List(_ context.Context, f store.ThemeFilter) ([]models.Theme, error) {
	var out []models.Theme
	for _, t := range m.themes {
		if t.Archived && !f.IncludeArchived {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memThemes) Update(ctx context.Context, id uuid.UUID, patch models.ThemePatch, actor uuid.UUID) (*models.Theme, error) {
	t, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	changed := patch.Apply(t)
	if len(changed) == 0 {
		return t, nil
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.Version++
	c := *t
	m.themes[id] = &c
	m.add(t, actor, models.AuditUpdated, map[string]any{"fields": changed})
	return t, nil
}

func (m *memThemes) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) (*models.Theme, error) {
	t, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Archived {
		return t, nil
	}
	t.Archived = true
	t.Visibility = models.VisibilityPrivate
	c := *t
	m.themes[id] = &c
	m.add(t, actor, models.AuditDeleted, nil)
	return t, nil
}

func (m *memThemes) Audit(_ context.Context, id uuid.UUID) ([]models.AuditEntry, error) {
	return m.audit[id], nil
}

type fakeAssets struct {
	assets []models.BackgroundAsset
}

func (f *fakeAssets) FindByID(_ context.Context, id uuid.UUID) (*models.BackgroundAsset, error) {
	for _, a := range f.assets {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeAssets) List(context.Context, int, int) ([]models.BackgroundAsset, error) {
	return f.assets, nil
}

type fakeLibrary struct {
	err      error
	uploads  []library.Upload
	applied  [][2]uuid.UUID
	reverted []uuid.UUID
}

func (f *fakeLibrary) Register(_ context.Context, up library.Upload, actor uuid.UUID) (*models.BackgroundAsset, error) {
	f.uploads = append(f.uploads, up)
	if f.err != nil {
		return nil, f.err
	}
	return &models.BackgroundAsset{ID: uuid.New(), Key: "library/x/" + up.Filename, CreatedBy: actor}, nil
}

func (f *fakeLibrary) ReplaceBackground(_ context.Context, themeID uuid.UUID, up library.Upload, _ uuid.UUID) (*models.Theme, error) {
	f.uploads = append(f.uploads, up)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Theme{ID: themeID, BackgroundURL: "https://cdn.example.com/" + up.Filename}, nil
}

func (f *fakeLibrary) Apply(_ context.Context, themeID, assetID uuid.UUID, _ uuid.UUID) (*models.Theme, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.applied = append(f.applied, [2]uuid.UUID{themeID, assetID})
	return &models.Theme{ID: themeID, BackgroundAsset: &assetID}, nil
}

func (f *fakeLibrary) Revert(_ context.Context, themeID uuid.UUID, _ uuid.UUID) (*models.Theme, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reverted = append(f.reverted, themeID)
	return &models.Theme{ID: themeID}, nil
}

type fakeSnapshots struct {
	snap *models.PublishedSnapshot
	err  error
}

func (f *fakeSnapshots) Get(context.Context) (*models.PublishedSnapshot, bool, error) {
	return f.snap, f.snap != nil, f.err
}

type fakeJobs struct {
	err  error
	runs []string
}

func (f *fakeJobs) RunNow(_ context.Context, name string) error {
	f.runs = append(f.runs, name)
	return f.err
}

// testRouter mounts the API the same way the production router does.
func testRouter(api *API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Actor)
	r.Get("/api/published", api.Published)
	r.Get("/api/published/{audience}", api.PublishedFor)
	r.Get("/api/themes", api.ListThemes)
	r.Post("/api/themes", api.CreateTheme)
	r.Get("/api/themes/{id}", api.GetTheme)
	r.Patch("/api/themes/{id}", api.PatchTheme)
	r.Delete("/api/themes/{id}", api.DeleteTheme)
	r.Get("/api/themes/{id}/audit", api.ThemeAudit)
	r.Post("/api/themes/{id}/background", api.UploadBackground)
	r.Post("/api/themes/{id}/apply/{assetID}", api.ApplyAsset)
	r.Post("/api/themes/{id}/revert", api.RevertBackground)
	r.Get("/api/assets", api.ListAssets)
	r.Post("/api/assets", api.RegisterAsset)
	r.Get("/api/assets/{id}", api.GetAsset)
	r.Post("/api/jobs/{name}/run", api.RunJob)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(middleware.ActorHeader, testActor.String())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}
