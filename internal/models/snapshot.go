// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// PublishedRollout is the effective rollout per audience after legacy
// fallbacks are resolved.
type PublishedRollout struct {
	All int `json:"all"`
	VIP int `json:"vip"`
}

// PublishedItem is the client-facing shape of a live theme.
type PublishedItem struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	BgURL           string           `json:"bgUrl"`
	BgType          BackgroundType   `json:"bgType"`
	BgMeta          Dimensions       `json:"bgMeta"`
	ThumbPath       string           `json:"thumbPath"`
	FeaturedOnLogin bool             `json:"featuredOnLogin"`
	Rollout         PublishedRollout `json:"rollout"`
	RolloutSalt     string           `json:"rolloutSalt"`
}

// PublishedSnapshot is the denormalized document clients read directly.
// Items duplicates ItemsAll for clients that predate audiences.
type PublishedSnapshot struct {
	ItemsAll  []PublishedItem `json:"items_all"`
	ItemsVIP  []PublishedItem `json:"items_vip"`
	Items     []PublishedItem `json:"items"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ItemsFor returns the list published for an audience.
func (s *PublishedSnapshot) ItemsFor(a Audience) []PublishedItem {
	if a == AudienceVIP {
		return s.ItemsVIP
	}
	return s.ItemsAll
}
