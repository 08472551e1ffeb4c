// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package library manages reusable background assets and applies them to
// themes. Usage counts are only changed inside a store transaction.
package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"backdrop/internal/imaging"
	"backdrop/internal/media"
	"backdrop/internal/models"
	"backdrop/internal/storage"
	"backdrop/internal/store"
)

var (
	// ErrNothingToRevert is returned when a theme has no previous background.
	ErrNothingToRevert = errors.New("theme has no previous background")
	// ErrAssetNotFound is returned when the asset to apply does not exist.
	ErrAssetNotFound = errors.New("asset not found")
)

// Objects is the part of object storage the service writes to.
type Objects interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	FileURL(key string) string
}

// Assets persists assets and runs the transactions that touch usage sets.
type Assets interface {
	Create(ctx context.Context, a *models.BackgroundAsset) (*models.BackgroundAsset, error)
	RunInTx(ctx context.Context, fn func(store.AssetTx) error) error
}

// Upload is a file received from an admin.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service implements the asset-application workflow.
type Service struct {
	objects Objects
	prober  media.Prober
	assets  Assets
	policy  media.Policy
	now     func() time.Time
}

// NewService creates an asset service.
func NewService(objects Objects, prober media.Prober, assets Assets, policy media.Policy) *Service {
	return &Service{
		objects: objects,
		prober:  prober,
		assets:  assets,
		policy:  policy,
		now:     time.Now,
	}
}

// Register uploads a reusable asset, validates it and records it with an
// empty usage set. A rejected upload is removed from storage again.
func (s *Service) Register(ctx context.Context, up Upload, actor uuid.UUID) (*models.BackgroundAsset, error) {
	id := uuid.New()
	key := storage.LibraryAssetKey(id, up.Filename)

	res, err := s.store(ctx, key, up)
	if err != nil {
		return nil, err
	}

	asset := &models.BackgroundAsset{
		ID:        id,
		URL:       s.objects.FileURL(key),
		Key:       key,
		Kind:      res.Kind,
		Width:     res.Width,
		Height:    res.Height,
		ThumbPath: s.thumbnail(ctx, key, res.Kind, up.Data),
		CreatedBy: actor,
	}
	created, err := s.assets.Create(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("register asset: %w", err)
	}
	slog.Info("asset registered", "asset_id", created.ID, "key", key, "kind", created.Kind)
	return created, nil
}

// ReplaceBackground uploads a one-off background for a theme. The current
// background becomes the previous one, and any asset the theme referenced
// loses it as a user.
func (s *Service) ReplaceBackground(ctx context.Context, themeID uuid.UUID, up Upload, actor uuid.UUID) (*models.Theme, error) {
	key := storage.ThemeAssetKey(themeID, s.now(), up.Filename)
	res, err := s.store(ctx, key, up)
	if err != nil {
		return nil, err
	}
	url := s.objects.FileURL(key)
	thumb := s.thumbnail(ctx, key, res.Kind, up.Data)

	var result *models.Theme
	err = s.assets.RunInTx(ctx, func(tx store.AssetTx) error {
		theme, err := tx.Theme(ctx, themeID)
		if err != nil {
			return err
		}
		if theme.BackgroundAsset != nil {
			if err := releaseAsset(ctx, tx, *theme.BackgroundAsset, themeID); err != nil {
				return err
			}
		}
		pushPrevious(theme)
		theme.BackgroundURL = url
		theme.BackgroundType = res.Kind
		theme.BackgroundMeta = res.Dimensions()
		theme.BackgroundAsset = nil
		theme.ThumbPath = thumb
		if err := tx.SaveTheme(ctx, theme); err != nil {
			return err
		}
		result = theme
		return tx.AppendAudit(ctx, themeID, actor, models.AuditUpdated, map[string]any{
			"fields": []string{"background"},
			"source": "upload",
		})
	})
	if err != nil {
		return nil, fmt.Errorf("replace background of theme %s: %w", themeID, err)
	}
	return result, nil
}

// Apply points a theme at a library asset. The theme's current background
// becomes its previous one; the target asset gains the theme as a user and
// the asset it replaced loses it. Reapplying the current asset is a no-op.
func (s *Service) Apply(ctx context.Context, themeID, assetID uuid.UUID, actor uuid.UUID) (*models.Theme, error) {
	var result *models.Theme
	err := s.assets.RunInTx(ctx, func(tx store.AssetTx) error {
		theme, err := tx.Theme(ctx, themeID)
		if err != nil {
			return err
		}
		asset, err := tx.Asset(ctx, assetID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
		}
		if err != nil {
			return err
		}

		if theme.BackgroundAsset != nil && *theme.BackgroundAsset == assetID {
			result = theme
			if asset.UsedBy.Has(themeID) {
				return nil
			}
			// Repair a usage set that lost the theme.
			asset.UsedBy.Add(themeID)
			return tx.SaveAsset(ctx, asset)
		}

		if theme.BackgroundAsset != nil {
			if err := releaseAsset(ctx, tx, *theme.BackgroundAsset, themeID); err != nil {
				return err
			}
		}
		asset.UsedBy.Add(themeID)
		if err := tx.SaveAsset(ctx, asset); err != nil {
			return err
		}

		payload := map[string]any{"asset_id": assetID.String()}
		if theme.BackgroundAsset != nil {
			payload["previous_asset_id"] = theme.BackgroundAsset.String()
		}
		pushPrevious(theme)
		theme.BackgroundURL = asset.URL
		theme.BackgroundType = asset.Kind
		theme.BackgroundMeta = models.Dimensions{Width: asset.Width, Height: asset.Height}
		theme.BackgroundAsset = &asset.ID
		theme.ThumbPath = asset.ThumbPath
		if err := tx.SaveTheme(ctx, theme); err != nil {
			return err
		}
		result = theme
		return tx.AppendAudit(ctx, themeID, actor, models.AuditAppliedAsset, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("apply asset %s to theme %s: %w", assetID, themeID, err)
	}
	return result, nil
}

// Revert swaps a theme back to its previous background and clears the
// previous slot. Usage sets follow the swap.
func (s *Service) Revert(ctx context.Context, themeID uuid.UUID, actor uuid.UUID) (*models.Theme, error) {
	var result *models.Theme
	err := s.assets.RunInTx(ctx, func(tx store.AssetTx) error {
		theme, err := tx.Theme(ctx, themeID)
		if err != nil {
			return err
		}
		if !theme.HasPrevious() {
			return ErrNothingToRevert
		}

		current, previous := theme.BackgroundAsset, theme.PreviousBackgroundAsset
		if !sameAsset(current, previous) {
			if current != nil {
				if err := releaseAsset(ctx, tx, *current, themeID); err != nil {
					return err
				}
			}
			if previous != nil {
				if err := claimAsset(ctx, tx, *previous, themeID); err != nil {
					return err
				}
			}
		}

		payload := map[string]any{"restored_url": *theme.PreviousBackgroundURL}
		if previous != nil {
			payload["asset_id"] = previous.String()
		}

		theme.BackgroundURL = *theme.PreviousBackgroundURL
		if theme.PreviousBackgroundType != nil {
			theme.BackgroundType = *theme.PreviousBackgroundType
		}
		theme.BackgroundMeta = models.Dimensions{}
		if theme.PreviousBackgroundMeta != nil {
			theme.BackgroundMeta = *theme.PreviousBackgroundMeta
		}
		theme.BackgroundAsset = previous
		theme.ThumbPath = ""
		theme.PreviousBackgroundURL = nil
		theme.PreviousBackgroundType = nil
		theme.PreviousBackgroundMeta = nil
		theme.PreviousBackgroundAsset = nil
		if err := tx.SaveTheme(ctx, theme); err != nil {
			return err
		}
		result = theme
		return tx.AppendAudit(ctx, themeID, actor, models.AuditReverted, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("revert theme %s: %w", themeID, err)
	}
	return result, nil
}

// store uploads the file and validates it in place. Objects that fail
// validation are deleted.
func (s *Service) store(ctx context.Context, key string, up Upload) (*media.Result, error) {
	if _, err := media.KindOf(up.ContentType); err != nil {
		return nil, err
	}
	if err := s.objects.Upload(ctx, key, up.ContentType, bytes.NewReader(up.Data), int64(len(up.Data))); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	res, err := media.Check(ctx, s.prober, s.policy, key, up.ContentType)
	if err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			slog.Warn("failed to delete rejected upload", "key", key, "error", delErr)
		}
		return nil, err
	}
	return res, nil
}

func (s *Service) thumbnail(ctx context.Context, key string, kind models.BackgroundType, data []byte) string {
	if kind != models.BackgroundImage {
		return ""
	}
	thumb, err := imaging.Thumbnail(data, imaging.DefaultThumbnail)
	if err != nil {
		slog.Warn("failed to render thumbnail", "key", key, "error", err)
		return ""
	}
	thumbKey := imaging.VariantKey(key, thumb.Name)
	if err := s.objects.Upload(ctx, thumbKey, thumb.ContentType, bytes.NewReader(thumb.Data), int64(len(thumb.Data))); err != nil {
		slog.Warn("failed to upload thumbnail", "key", thumbKey, "error", err)
		return ""
	}
	return s.objects.FileURL(thumbKey)
}

// pushPrevious moves the current background into the previous slot.
func pushPrevious(t *models.Theme) {
	url := t.BackgroundURL
	typ := t.BackgroundType
	meta := t.BackgroundMeta
	t.PreviousBackgroundURL = &url
	t.PreviousBackgroundType = &typ
	t.PreviousBackgroundMeta = &meta
	t.PreviousBackgroundAsset = t.BackgroundAsset
}

// releaseAsset removes themeID from an asset's users. An asset that no
// longer exists is ignored.
func releaseAsset(ctx context.Context, tx store.AssetTx, assetID, themeID uuid.UUID) error {
	a, err := tx.Asset(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("theme referenced a missing asset", "theme_id", themeID, "asset_id", assetID)
		return nil
	}
	if err != nil {
		return err
	}
	if !a.UsedBy.Remove(themeID) {
		return nil
	}
	return tx.SaveAsset(ctx, a)
}

func claimAsset(ctx context.Context, tx store.AssetTx, assetID, themeID uuid.UUID) error {
	a, err := tx.Asset(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("previous background asset no longer exists", "theme_id", themeID, "asset_id", assetID)
		return nil
	}
	if err != nil {
		return err
	}
	if !a.UsedBy.Add(themeID) {
		return nil
	}
	return tx.SaveAsset(ctx, a)
}

func sameAsset(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
