// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package rollout resolves the audience and rollout fields of a theme,
// including the legacy tier and flat abRollout fields older records still
// carry, and assigns viewers to stable rollout buckets.
//
// Precedence:
//
//	audiences: explicit audiences -> tier ("vip" -> [vip], anything else -> [all])
//	percent:   rollout.<audience> -> abRollout -> 100
package rollout

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"backdrop/internal/models"
)

// Buckets is the number of rollout buckets; a percentage maps directly onto
// the bucket range.
const Buckets = 100

// ResolveAudiences returns the audiences a theme targets. Unknown values in
// the explicit list are dropped; if nothing valid remains the legacy tier
// decides. The result is never empty.
func ResolveAudiences(t *models.Theme) []models.Audience {
	var out []models.Audience
	seen := make(map[models.Audience]bool, 2)
	for _, a := range t.Audiences {
		if a.Valid() && !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	if len(out) > 0 {
		return out
	}
	if strings.EqualFold(strings.TrimSpace(t.Tier), string(models.AudienceVIP)) {
		return []models.Audience{models.AudienceVIP}
	}
	return []models.Audience{models.AudienceAll}
}

// Targets reports whether the theme's resolved audiences include a.
func Targets(t *models.Theme, a models.Audience) bool {
	for _, got := range ResolveAudiences(t) {
		if got == a {
			return true
		}
	}
	return false
}

// ResolvePercent returns the effective rollout percentage for an audience,
// clamped to [0, 100].
func ResolvePercent(t *models.Theme, a models.Audience) int {
	var v *int
	switch a {
	case models.AudienceAll:
		v = t.Rollout.All
	case models.AudienceVIP:
		v = t.Rollout.VIP
	}
	if v == nil {
		v = t.ABRollout
	}
	if v == nil {
		return 100
	}
	return Clamp(*v)
}

// Resolved returns both effective percentages in published form.
func Resolved(t *models.Theme) models.PublishedRollout {
	return models.PublishedRollout{
		All: ResolvePercent(t, models.AudienceAll),
		VIP: ResolvePercent(t, models.AudienceVIP),
	}
}

// Clamp limits a percentage to [0, 100].
func Clamp(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// Bucket maps a viewer to [0, Buckets) using the theme's salt. The same
// salt and viewer always land in the same bucket, and changing the salt
// reshuffles the assignment.
func Bucket(salt, viewerID string) int {
	return int(xxhash.Sum64String(salt+":"+viewerID) % Buckets)
}

// Includes reports whether a viewer falls inside a rollout percentage.
func Includes(percent int, salt, viewerID string) bool {
	return Bucket(salt, viewerID) < Clamp(percent)
}
