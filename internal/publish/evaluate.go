// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package publish decides which themes are live for each audience and
// writes the denormalized snapshot clients read. Liveness is derived from
// the schedule fields on every run and is never stored.
package publish

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	"backdrop/internal/models"
	"backdrop/internal/rollout"
)

// LiveForAll reports whether a theme is released, not expired, not past
// its delete time and public at now. Archived themes are never live.
func LiveForAll(t *models.Theme, now time.Time) bool {
	if t.Archived || t.Visibility != models.VisibilityPublic {
		return false
	}
	releaseOK := t.ReleaseAt == nil || !t.ReleaseAt.After(now)
	notExpired := t.ExpiresAt == nil || t.ExpiresAt.After(now)
	notDeleted := t.DeleteAt == nil || t.DeleteAt.After(now)
	return releaseOK && notExpired && notDeleted
}

// LiveFor reports whether a theme belongs in the list for audience a. The
// VIP release time can only hold a theme back; it never extends it past
// the ordinary expiry.
func LiveFor(t *models.Theme, a models.Audience, now time.Time) bool {
	if !LiveForAll(t, now) || !rollout.Targets(t, a) {
		return false
	}
	if a == models.AudienceVIP && t.VIPReleaseAt != nil && t.VIPReleaseAt.After(now) {
		return false
	}
	return true
}

// Evaluate builds the snapshot for now. It is pure: the same themes and
// now always give the same snapshot, whatever the input order.
func Evaluate(themes []models.Theme, now time.Time) *models.PublishedSnapshot {
	live := make([]*models.Theme, 0, len(themes))
	for i := range themes {
		t := &themes[i]
		if t.Archived {
			continue
		}
		if t.BackgroundURL == "" {
			slog.Warn("theme has no background, not publishing", "theme_id", t.ID)
			continue
		}
		live = append(live, t)
	}
	slices.SortFunc(live, compareThemes)

	snap := &models.PublishedSnapshot{
		ItemsAll:  []models.PublishedItem{},
		ItemsVIP:  []models.PublishedItem{},
		UpdatedAt: now.UTC(),
	}
	for _, t := range live {
		if LiveFor(t, models.AudienceAll, now) {
			snap.ItemsAll = append(snap.ItemsAll, item(t))
		}
		if LiveFor(t, models.AudienceVIP, now) {
			snap.ItemsVIP = append(snap.ItemsVIP, item(t))
		}
	}
	snap.Items = snap.ItemsAll
	return snap
}

func item(t *models.Theme) models.PublishedItem {
	return models.PublishedItem{
		ID:              t.ID.String(),
		Name:            t.Name,
		BgURL:           t.BackgroundURL,
		BgType:          t.BackgroundType,
		BgMeta:          t.BackgroundMeta,
		ThumbPath:       t.ThumbPath,
		FeaturedOnLogin: t.FeaturedOnLogin,
		Rollout:         rollout.Resolved(t),
		RolloutSalt:     t.RolloutSalt,
	}
}

// compareThemes orders featured themes first, then the most recently
// released, then by ID. Themes without a release time sort after dated
// ones.
func compareThemes(a, b *models.Theme) int {
	if a.FeaturedOnLogin != b.FeaturedOnLogin {
		if a.FeaturedOnLogin {
			return -1
		}
		return 1
	}
	switch {
	case a.ReleaseAt != nil && b.ReleaseAt != nil:
		if c := b.ReleaseAt.Compare(*a.ReleaseAt); c != 0 {
			return c
		}
	case a.ReleaseAt != nil:
		return -1
	case b.ReleaseAt != nil:
		return 1
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}
