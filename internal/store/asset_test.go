// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"backdrop/internal/models"
)

func TestAssetStoreUsageRoundTrip(t *testing.T) {
	db := testDB(t)
	themes := NewThemeStore(db)
	assets := NewAssetStore(db)
	ctx := context.Background()

	w, h := 1920, 1080
	asset, err := assets.Create(ctx, &models.BackgroundAsset{
		URL: "https://cdn.example.com/library/a.jpg", Key: "library/a.jpg",
		Kind: models.BackgroundImage, Width: &w, Height: &h, CreatedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Create asset: %v", err)
	}
	th, err := themes.Create(ctx, newTestTheme("asset-usage"), uuid.New(), nil)
	if err != nil {
		t.Fatalf("Create theme: %v", err)
	}
	t.Cleanup(func() {
		cleanThemes(t, db, th.ID)
		cleanAssets(t, db, asset.ID)
	})

	err = assets.RunInTx(ctx, func(tx AssetTx) error {
		a, err := tx.Asset(ctx, asset.ID)
		if err != nil {
			return err
		}
		a.UsedBy.Add(th.ID)
		a.UsedBy.Add(th.ID)
		return tx.SaveAsset(ctx, a)
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}

	found, err := assets.FindByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.UsedBy.Count != 1 || !found.UsedBy.Has(th.ID) {
		t.Errorf("usage: got %+v", found.UsedBy)
	}
	if found.Version != 2 {
		t.Errorf("version: got %d, want 2", found.Version)
	}

	if _, err := assets.FindByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
