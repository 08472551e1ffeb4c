// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// BackgroundAsset is a reusable, validated background that themes reference.
// UsedBy is only ever changed inside an asset-application transaction.
type BackgroundAsset struct {
	ID        uuid.UUID      `json:"id"`
	URL       string         `json:"url"`
	Key       string         `json:"key"`
	Kind      BackgroundType `json:"kind"`
	Width     *int           `json:"width"`
	Height    *int           `json:"height"`
	ThumbPath string         `json:"thumb_path,omitempty"`
	UsedBy    UsedBy         `json:"used_by"`
	Version   int            `json:"version"`
	CreatedBy uuid.UUID      `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// UsedBy tracks which themes currently reference an asset. Count always
// equals the size of the set.
type UsedBy struct {
	Count  int                    `json:"count"`
	Themes map[uuid.UUID]struct{} `json:"-"`
}

// Add records themeID as a user. It reports false if it was already present.
func (u *UsedBy) Add(themeID uuid.UUID) bool {
	if u.Themes == nil {
		u.Themes = make(map[uuid.UUID]struct{})
	}
	if _, ok := u.Themes[themeID]; ok {
		return false
	}
	u.Themes[themeID] = struct{}{}
	u.Count = len(u.Themes)
	return true
}

// Remove drops themeID. It reports false if it was not present.
func (u *UsedBy) Remove(themeID uuid.UUID) bool {
	if _, ok := u.Themes[themeID]; !ok {
		return false
	}
	delete(u.Themes, themeID)
	u.Count = len(u.Themes)
	return true
}

// Has reports whether themeID uses the asset.
func (u *UsedBy) Has(themeID uuid.UUID) bool {
	_, ok := u.Themes[themeID]
	return ok
}

// IDs returns the theme IDs in a stable order.
func (u *UsedBy) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(u.Themes))
	for id := range u.Themes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
