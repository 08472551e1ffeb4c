// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Audience is a targeting bucket for published themes.
type Audience string

const (
	AudienceAll Audience = "all"
	AudienceVIP Audience = "vip"
)

// Valid reports whether a is a known audience.
func (a Audience) Valid() bool {
	return a == AudienceAll || a == AudienceVIP
}

// Visibility controls whether a theme may be published at all.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// BackgroundType is the media kind of a theme background.
type BackgroundType string

const (
	BackgroundImage BackgroundType = "image"
	BackgroundVideo BackgroundType = "video"
)

// Dimensions holds intrinsic media size. Both fields are nil when the probe
// was skipped because no decoder was available.
type Dimensions struct {
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

// Rollout holds per-audience rollout percentages. A nil value means unset;
// resolution falls back to the legacy flat percentage, then to 100.
type Rollout struct {
	All *int `json:"all,omitempty"`
	VIP *int `json:"vip,omitempty"`
}

// Theme is a schedulable, audience-targeted background configuration.
// Whether a theme is live is never stored; the publisher computes it on
// every run from the schedule fields.
type Theme struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	BackgroundURL   string         `json:"background_url"`
	BackgroundType  BackgroundType `json:"background_type"`
	BackgroundMeta  Dimensions     `json:"background_meta"`
	BackgroundAsset *uuid.UUID     `json:"background_asset_id,omitempty"`
	ThumbPath       string         `json:"thumb_path,omitempty"`
	Visibility      Visibility     `json:"visibility"`
	Audiences       []Audience     `json:"audiences"`
	Rollout         Rollout        `json:"rollout"`
	RolloutSalt     string         `json:"rollout_salt"`

	ReleaseAt    *time.Time `json:"release_at,omitempty"`
	VIPReleaseAt *time.Time `json:"vip_release_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	DeleteAt     *time.Time `json:"delete_at,omitempty"`

	Archived        bool       `json:"archived"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
	FeaturedOnLogin bool       `json:"featured_on_login"`

	PreviousBackgroundURL   *string         `json:"previous_background_url,omitempty"`
	PreviousBackgroundType  *BackgroundType `json:"previous_background_type,omitempty"`
	PreviousBackgroundMeta  *Dimensions     `json:"previous_background_meta,omitempty"`
	PreviousBackgroundAsset *uuid.UUID      `json:"previous_background_asset_id,omitempty"`

	// Legacy fields still written by older admin clients.
	Tier      string `json:"tier,omitempty"`
	ABRollout *int   `json:"ab_rollout,omitempty"`

	Version   int       `json:"version"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrInvalidTheme wraps every validation failure returned by Validate.
var ErrInvalidTheme = errors.New("invalid theme")

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Valid reports whether b is a known background type.
func (b BackgroundType) Valid() bool {
	return b == BackgroundImage || b == BackgroundVideo
}

// Valid reports whether both percentages are unset or within [0, 100].
func (r Rollout) Valid() bool {
	return validPercent(r.All) && validPercent(r.VIP)
}

func validPercent(p *int) bool {
	return p == nil || (*p >= 0 && *p <= 100)
}

// Validate checks the invariants enforced on every write.
func (t *Theme) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTheme)
	}
	if !t.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalidTheme, t.Visibility)
	}
	if t.BackgroundType != "" && !t.BackgroundType.Valid() {
		return fmt.Errorf("%w: unknown background type %q", ErrInvalidTheme, t.BackgroundType)
	}
	for _, a := range t.Audiences {
		if !a.Valid() {
			return fmt.Errorf("%w: unknown audience %q", ErrInvalidTheme, a)
		}
	}
	if !t.Rollout.Valid() || !validPercent(t.ABRollout) {
		return fmt.Errorf("%w: rollout must be between 0 and 100", ErrInvalidTheme)
	}
	if t.Archived && t.Visibility != VisibilityPrivate {
		return fmt.Errorf("%w: archived themes must be private", ErrInvalidTheme)
	}
	return nil
}

// HasPrevious reports whether the theme has a background to revert to.
func (t *Theme) HasPrevious() bool {
	return t.PreviousBackgroundURL != nil && *t.PreviousBackgroundURL != ""
}

// ThemePatch is a merge-patch for Theme. Nil pointer fields are left
// untouched. The schedule fields are always written: a nil value clears the
// stored time, so callers must resend a time to keep it.
type ThemePatch struct {
	Name            *string
	Description     *string
	Visibility      *Visibility
	Audiences       *[]Audience
	Rollout         *Rollout
	RolloutSalt     *string
	FeaturedOnLogin *bool
	Tier            *string
	ABRollout       *int

	ReleaseAt    *time.Time
	VIPReleaseAt *time.Time
	ExpiresAt    *time.Time
	DeleteAt     *time.Time
}

// Apply merges the patch into t and returns the names of the fields that
// changed.
func (p ThemePatch) Apply(t *Theme) []string {
	var changed []string
	if p.Name != nil && *p.Name != t.Name {
		t.Name = *p.Name
		changed = append(changed, "name")
	}
	if p.Description != nil && *p.Description != t.Description {
		t.Description = *p.Description
		changed = append(changed, "description")
	}
	if p.Visibility != nil && *p.Visibility != t.Visibility {
		t.Visibility = *p.Visibility
		changed = append(changed, "visibility")
	}
	if p.Audiences != nil {
		t.Audiences = append([]Audience(nil), (*p.Audiences)...)
		changed = append(changed, "audiences")
	}
	if p.Rollout != nil {
		t.Rollout = *p.Rollout
		changed = append(changed, "rollout")
	}
	if p.RolloutSalt != nil && *p.RolloutSalt != t.RolloutSalt {
		t.RolloutSalt = *p.RolloutSalt
		changed = append(changed, "rollout_salt")
	}
	if p.FeaturedOnLogin != nil && *p.FeaturedOnLogin != t.FeaturedOnLogin {
		t.FeaturedOnLogin = *p.FeaturedOnLogin
		changed = append(changed, "featured_on_login")
	}
	if p.Tier != nil && *p.Tier != t.Tier {
		t.Tier = *p.Tier
		changed = append(changed, "tier")
	}
	if p.ABRollout != nil {
		v := *p.ABRollout
		t.ABRollout = &v
		changed = append(changed, "ab_rollout")
	}

	setTime := func(name string, dst **time.Time, v *time.Time) {
		if !sameTime(*dst, v) {
			changed = append(changed, name)
		}
		if v == nil {
			*dst = nil
			return
		}
		c := v.UTC()
		*dst = &c
	}
	setTime("release_at", &t.ReleaseAt, p.ReleaseAt)
	setTime("vip_release_at", &t.VIPReleaseAt, p.VIPReleaseAt)
	setTime("expires_at", &t.ExpiresAt, p.ExpiresAt)
	setTime("delete_at", &t.DeleteAt, p.DeleteAt)

	// Archived themes stay private regardless of what the patch asked for.
	if t.Archived {
		t.Visibility = VisibilityPrivate
	}
	return changed
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
