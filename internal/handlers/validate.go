package handlers

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for theme fields.
const (
	maxNameLen        = 200
	maxDescriptionLen = 2_000
	maxSaltLen        = 100
	maxTierLen        = 50
	maxJSONBody       = 1 << 20
)

// validateThemeRequest checks free-text fields and returns the first
// error found. Enumerations and ranges are checked by the model.
func validateThemeRequest(req *themeRequest, creating bool) string {
	if creating || req.Name != nil {
		if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
			return "Name is required."
		}
		if utf8.RuneCountInString(*req.Name) > maxNameLen {
			return "Name is too long (max 200 characters)."
		}
	}
	if req.Description != nil && utf8.RuneCountInString(*req.Description) > maxDescriptionLen {
		return "Description is too long (max 2,000 characters)."
	}
	if req.RolloutSalt != nil && utf8.RuneCountInString(*req.RolloutSalt) > maxSaltLen {
		return "Rollout salt is too long (max 100 characters)."
	}
	if req.Tier != nil && utf8.RuneCountInString(*req.Tier) > maxTierLen {
		return "Tier is too long (max 50 characters)."
	}
	return ""
}
