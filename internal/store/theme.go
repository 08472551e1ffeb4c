// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"backdrop/internal/metrics"
	"backdrop/internal/models"
	"backdrop/internal/rollout"
)

// ThemeStore handles theme records and their audit trail. Every mutation
// and its audit row are committed in the same transaction.
type ThemeStore struct {
	db *sql.DB
}

// NewThemeStore creates a new ThemeStore with the given database connection.
func NewThemeStore(db *sql.DB) *ThemeStore {
	return &ThemeStore{db: db}
}

// ThemeFilter narrows List results.
type ThemeFilter struct {
	IncludeArchived bool
	Limit           int
	Offset          int
}

// themeColumns lists the columns selected in theme queries.
const themeColumns = `id, name, description, background_url, background_type,
	background_meta, background_asset_id, thumb_path, visibility, audiences,
	rollout, rollout_salt, release_at, vip_release_at, expires_at, delete_at,
	archived, archived_at, featured_on_login, previous_background_url,
	previous_background_type, previous_background_meta,
	previous_background_asset_id, tier, ab_rollout, version, created_by,
	created_at, updated_at`

// scanTheme scans a theme row. JSON columns that fail to decode and
// out-of-range values are logged and replaced with defaults so one bad row
// cannot stop a listing.
func scanTheme(scanner interface{ Scan(...any) error }) (*models.Theme, error) {
	var (
		t                             models.Theme
		meta, audiences, ro, prevMeta []byte
	)
	err := scanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.BackgroundURL, &t.BackgroundType,
		&meta, &t.BackgroundAsset, &t.ThumbPath, &t.Visibility, &audiences,
		&ro, &t.RolloutSalt, &t.ReleaseAt, &t.VIPReleaseAt, &t.ExpiresAt, &t.DeleteAt,
		&t.Archived, &t.ArchivedAt, &t.FeaturedOnLogin, &t.PreviousBackgroundURL,
		&t.PreviousBackgroundType, &prevMeta,
		&t.PreviousBackgroundAsset, &t.Tier, &t.ABRollout, &t.Version, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	malformed := func(field string, err error) {
		metrics.MalformedThemes.Inc()
		slog.Warn("malformed theme field, using default",
			"theme_id", t.ID, "field", field, "error", err)
	}

	if err := decodeJSON(meta, &t.BackgroundMeta); err != nil {
		malformed("background_meta", err)
		t.BackgroundMeta = models.Dimensions{}
	}
	if err := decodeJSON(audiences, &t.Audiences); err != nil {
		malformed("audiences", err)
		t.Audiences = nil
	}
	if err := decodeJSON(ro, &t.Rollout); err != nil {
		malformed("rollout", err)
		t.Rollout = models.Rollout{}
	}
	if len(prevMeta) > 0 {
		var d models.Dimensions
		if err := decodeJSON(prevMeta, &d); err != nil {
			malformed("previous_background_meta", err)
		} else {
			t.PreviousBackgroundMeta = &d
		}
	}

	if !t.Visibility.Valid() {
		malformed("visibility", fmt.Errorf("unknown value %q", t.Visibility))
		t.Visibility = models.VisibilityPrivate
	}
	if !t.BackgroundType.Valid() {
		malformed("background_type", fmt.Errorf("unknown value %q", t.BackgroundType))
		t.BackgroundType = models.BackgroundImage
	}
	if !t.Rollout.Valid() || (t.ABRollout != nil && rollout.Clamp(*t.ABRollout) != *t.ABRollout) {
		malformed("rollout", fmt.Errorf("percentage out of range"))
		t.Rollout.All = clampPtr(t.Rollout.All)
		t.Rollout.VIP = clampPtr(t.Rollout.VIP)
		t.ABRollout = clampPtr(t.ABRollout)
	}
	if t.Archived {
		t.Visibility = models.VisibilityPrivate
	}
	return &t, nil
}

func decodeJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

func clampPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := rollout.Clamp(*p)
	return &v
}

// themeArgs returns the JSON-encoded columns of t.
func themeArgs(t *models.Theme) (meta, audiences, ro string, prevMeta *string, err error) {
	b, err := json.Marshal(t.BackgroundMeta)
	if err != nil {
		return "", "", "", nil, fmt.Errorf("encode background meta: %w", err)
	}
	meta = string(b)

	auds := t.Audiences
	if auds == nil {
		auds = []models.Audience{}
	}
	if b, err = json.Marshal(auds); err != nil {
		return "", "", "", nil, fmt.Errorf("encode audiences: %w", err)
	}
	audiences = string(b)

	if b, err = json.Marshal(t.Rollout); err != nil {
		return "", "", "", nil, fmt.Errorf("encode rollout: %w", err)
	}
	ro = string(b)

	if t.PreviousBackgroundMeta != nil {
		if b, err = json.Marshal(t.PreviousBackgroundMeta); err != nil {
			return "", "", "", nil, fmt.Errorf("encode previous background meta: %w", err)
		}
		s := string(b)
		prevMeta = &s
	}
	return meta, audiences, ro, prevMeta, nil
}

// Create inserts a new theme and appends a created audit entry. Themes
// start as private drafts unless the caller set a visibility. An empty
// rollout salt defaults to the theme ID.
func (s *ThemeStore) Create(ctx context.Context, t *models.Theme, actor uuid.UUID, payload map[string]any) (*models.Theme, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Visibility == "" {
		t.Visibility = models.VisibilityPrivate
	}
	if t.BackgroundType == "" {
		t.BackgroundType = models.BackgroundImage
	}
	if t.RolloutSalt == "" {
		t.RolloutSalt = t.ID.String()
	}
	t.CreatedBy = actor
	if err := t.Validate(); err != nil {
		return nil, err
	}

	meta, audiences, ro, prevMeta, err := themeArgs(t)
	if err != nil {
		return nil, err
	}

	err = RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO themes (id, name, description, background_url, background_type,
				background_meta, background_asset_id, thumb_path, visibility, audiences,
				rollout, rollout_salt, release_at, vip_release_at, expires_at, delete_at,
				archived, archived_at, featured_on_login, previous_background_url,
				previous_background_type, previous_background_meta,
				previous_background_asset_id, tier, ab_rollout, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
				$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
			RETURNING version, created_at, updated_at`,
			t.ID, t.Name, t.Description, t.BackgroundURL, t.BackgroundType,
			meta, t.BackgroundAsset, t.ThumbPath, t.Visibility, audiences,
			ro, t.RolloutSalt, t.ReleaseAt, t.VIPReleaseAt, t.ExpiresAt, t.DeleteAt,
			t.Archived, t.ArchivedAt, t.FeaturedOnLogin, t.PreviousBackgroundURL,
			t.PreviousBackgroundType, prevMeta,
			t.PreviousBackgroundAsset, t.Tier, t.ABRollout, t.CreatedBy,
		)
		if err := row.Scan(&t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return fmt.Errorf("create theme: %w", err)
		}
		return appendAudit(ctx, tx, t.ID, actor, models.AuditCreated, payload)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindByID retrieves a single theme by its UUID.
func (s *ThemeStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Theme, error) {
	return findTheme(ctx, s.db, id)
}

func findTheme(ctx context.Context, q queryer, id uuid.UUID) (*models.Theme, error) {
	row := q.QueryRowContext(ctx, `SELECT `+themeColumns+` FROM themes WHERE id = $1`, id)
	t, err := scanTheme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("theme %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find theme by id: %w", err)
	}
	return t, nil
}

// List returns themes ordered by creation date, with pagination.
func (s *ThemeStore) List(ctx context.Context, f ThemeFilter) ([]models.Theme, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	return s.query(ctx, `
		SELECT `+themeColumns+`
		FROM themes
		WHERE $1 OR NOT archived
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, f.IncludeArchived, limit, f.Offset)
}

// ListActive returns every non-archived theme for the publisher.
func (s *ThemeStore) ListActive(ctx context.Context) ([]models.Theme, error) {
	return s.query(ctx, `
		SELECT `+themeColumns+`
		FROM themes
		WHERE NOT archived
		ORDER BY id
	`)
}

// ListDueForArchive returns non-archived themes whose delete time has
// passed.
func (s *ThemeStore) ListDueForArchive(ctx context.Context, now time.Time) ([]models.Theme, error) {
	return s.query(ctx, `
		SELECT `+themeColumns+`
		FROM themes
		WHERE NOT archived AND delete_at IS NOT NULL AND delete_at <= $1
		ORDER BY delete_at, id
	`, now)
}

func (s *ThemeStore) query(ctx context.Context, query string, args ...any) ([]models.Theme, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	var themes []models.Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			// A row that cannot even be scanned is skipped, not fatal.
			metrics.MalformedThemes.Inc()
			slog.Error("skipping unreadable theme row", "error", err)
			continue
		}
		themes = append(themes, *t)
	}
	return themes, rows.Err()
}

// Update applies a merge-patch and appends an updated audit entry listing
// the changed fields. A patch that changes nothing writes nothing.
func (s *ThemeStore) Update(ctx context.Context, id uuid.UUID, patch models.ThemePatch, actor uuid.UUID) (*models.Theme, error) {
	var out *models.Theme
	err := RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := findTheme(ctx, tx, id)
		if err != nil {
			return err
		}
		changed := patch.Apply(t)
		if len(changed) == 0 {
			out = t
			return nil
		}
		if err := t.Validate(); err != nil {
			return err
		}
		if err := saveTheme(ctx, tx, t); err != nil {
			return err
		}
		out = t
		return appendAudit(ctx, tx, id, actor, models.AuditUpdated, map[string]any{"fields": changed})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete retires a theme for good: it is archived and made private, and a
// deleted audit entry is appended. Deleting an archived theme is a no-op.
func (s *ThemeStore) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) (*models.Theme, error) {
	var out *models.Theme
	err := RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := findTheme(ctx, tx, id)
		if err != nil {
			return err
		}
		out = t
		if t.Archived {
			return nil
		}
		now := time.Now().UTC()
		t.Archived = true
		t.ArchivedAt = &now
		t.Visibility = models.VisibilityPrivate
		if err := saveTheme(ctx, tx, t); err != nil {
			return err
		}
		return appendAudit(ctx, tx, id, actor, models.AuditDeleted, nil)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkArchived archives a theme, points its background at archivedURL
// (when non-empty) and appends an archived audit entry. It returns false,
// without writing anything, when the theme is already archived.
func (s *ThemeStore) MarkArchived(ctx context.Context, id uuid.UUID, archivedURL string, now time.Time, payload map[string]any) (bool, error) {
	var archived bool
	err := RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE themes
			SET archived = true,
				visibility = 'private',
				archived_at = $2,
				background_url = COALESCE(NULLIF($3, ''), background_url),
				version = version + 1,
				updated_at = now()
			WHERE id = $1 AND NOT archived
		`, id, now, archivedURL)
		if err != nil {
			return fmt.Errorf("mark theme archived: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("mark theme archived: %w", err)
		}
		archived = n == 1
		if !archived {
			return nil
		}
		return appendAudit(ctx, tx, id, models.SystemActor, models.AuditArchived, payload)
	})
	if err != nil {
		return false, err
	}
	return archived, nil
}

// saveTheme writes every mutable column of t, guarded by its version. A
// stale version yields ErrConflict. On success t carries the new version.
func saveTheme(ctx context.Context, q queryer, t *models.Theme) error {
	meta, audiences, ro, prevMeta, err := themeArgs(t)
	if err != nil {
		return err
	}

	err = q.QueryRowContext(ctx, `
		UPDATE themes SET
			name = $3, description = $4, background_url = $5, background_type = $6,
			background_meta = $7, background_asset_id = $8, thumb_path = $9,
			visibility = $10, audiences = $11, rollout = $12, rollout_salt = $13,
			release_at = $14, vip_release_at = $15, expires_at = $16, delete_at = $17,
			archived = $18, archived_at = $19, featured_on_login = $20,
			previous_background_url = $21, previous_background_type = $22,
			previous_background_meta = $23, previous_background_asset_id = $24,
			tier = $25, ab_rollout = $26,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`,
		t.ID, t.Version,
		t.Name, t.Description, t.BackgroundURL, t.BackgroundType,
		meta, t.BackgroundAsset, t.ThumbPath,
		t.Visibility, audiences, ro, t.RolloutSalt,
		t.ReleaseAt, t.VIPReleaseAt, t.ExpiresAt, t.DeleteAt,
		t.Archived, t.ArchivedAt, t.FeaturedOnLogin,
		t.PreviousBackgroundURL, t.PreviousBackgroundType,
		prevMeta, t.PreviousBackgroundAsset,
		t.Tier, t.ABRollout,
	).Scan(&t.Version, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("save theme %s at version %d: %w", t.ID, t.Version, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
