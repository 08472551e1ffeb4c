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

	"github.com/google/uuid"

	"backdrop/internal/models"
)

// AssetStore handles reusable background assets. Reference counts are only
// changed through RunInTx.
type AssetStore struct {
	db *sql.DB
}

// NewAssetStore creates a new AssetStore with the given database connection.
func NewAssetStore(db *sql.DB) *AssetStore {
	return &AssetStore{db: db}
}

// assetColumns lists the columns selected in asset queries.
const assetColumns = `id, url, storage_key, kind, width, height, thumb_path,
	used_by_count, used_by_themes, version, created_by, created_at, updated_at`

// scanAsset scans an asset row from the result set.
func scanAsset(scanner interface{ Scan(...any) error }) (*models.BackgroundAsset, error) {
	var (
		a     models.BackgroundAsset
		count int
		ids   []byte
	)
	err := scanner.Scan(
		&a.ID, &a.URL, &a.Key, &a.Kind, &a.Width, &a.Height, &a.ThumbPath,
		&count, &ids, &a.Version, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var themes []uuid.UUID
	if err := decodeJSON(ids, &themes); err != nil {
		return nil, fmt.Errorf("decode used_by_themes: %w", err)
	}
	for _, id := range themes {
		a.UsedBy.Add(id)
	}
	return &a, nil
}

// Create inserts a new asset with an empty usage set.
func (s *AssetStore) Create(ctx context.Context, a *models.BackgroundAsset) (*models.BackgroundAsset, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.UsedBy = models.UsedBy{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO background_assets (id, url, storage_key, kind, width, height,
			thumb_path, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING version, created_at, updated_at`,
		a.ID, a.URL, a.Key, a.Kind, a.Width, a.Height, a.ThumbPath, a.CreatedBy,
	).Scan(&a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	return a, nil
}

// FindByID retrieves a single asset by its UUID.
func (s *AssetStore) FindByID(ctx context.Context, id uuid.UUID) (*models.BackgroundAsset, error) {
	return findAsset(ctx, s.db, id)
}

func findAsset(ctx context.Context, q queryer, id uuid.UUID) (*models.BackgroundAsset, error) {
	row := q.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM background_assets WHERE id = $1`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find asset by id: %w", err)
	}
	return a, nil
}

// List returns assets ordered by creation date, with pagination.
func (s *AssetStore) List(ctx context.Context, limit, offset int) ([]models.BackgroundAsset, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM background_assets
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var items []models.BackgroundAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}

// saveAsset writes the usage set of a, guarded by its version.
func saveAsset(ctx context.Context, q queryer, a *models.BackgroundAsset) error {
	b, err := json.Marshal(a.UsedBy.IDs())
	if err != nil {
		return fmt.Errorf("encode used_by_themes: %w", err)
	}
	err = q.QueryRowContext(ctx, `
		UPDATE background_assets
		SET used_by_count = $3, used_by_themes = $4, thumb_path = $5,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`,
		a.ID, a.Version, len(a.UsedBy.Themes), string(b), a.ThumbPath,
	).Scan(&a.Version, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("save asset %s at version %d: %w", a.ID, a.Version, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("save asset: %w", err)
	}
	return nil
}

// AssetTx is the view of one transaction the asset workflows run in. Reads
// return the row versions that the matching Save calls check against.
type AssetTx interface {
	Theme(ctx context.Context, id uuid.UUID) (*models.Theme, error)
	Asset(ctx context.Context, id uuid.UUID) (*models.BackgroundAsset, error)
	SaveTheme(ctx context.Context, t *models.Theme) error
	SaveAsset(ctx context.Context, a *models.BackgroundAsset) error
	AppendAudit(ctx context.Context, themeID, actor uuid.UUID, action models.AuditAction, payload map[string]any) error
}

type sqlAssetTx struct {
	tx *sql.Tx
}

func (t sqlAssetTx) Theme(ctx context.Context, id uuid.UUID) (*models.Theme, error) {
	return findTheme(ctx, t.tx, id)
}

func (t sqlAssetTx) Asset(ctx context.Context, id uuid.UUID) (*models.BackgroundAsset, error) {
	return findAsset(ctx, t.tx, id)
}

func (t sqlAssetTx) SaveTheme(ctx context.Context, th *models.Theme) error {
	if err := th.Validate(); err != nil {
		return err
	}
	return saveTheme(ctx, t.tx, th)
}

func (t sqlAssetTx) SaveAsset(ctx context.Context, a *models.BackgroundAsset) error {
	return saveAsset(ctx, t.tx, a)
}

func (t sqlAssetTx) AppendAudit(ctx context.Context, themeID, actor uuid.UUID, action models.AuditAction, payload map[string]any) error {
	return appendAudit(ctx, t.tx, themeID, actor, action, payload)
}

// RunInTx runs fn in a retried optimistic transaction spanning themes,
// assets and the audit trail.
func (s *AssetStore) RunInTx(ctx context.Context, fn func(AssetTx) error) error {
	return RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(sqlAssetTx{tx: tx})
	})
}
