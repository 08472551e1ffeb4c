// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package media

import (
	"math"
	"strings"

	"backdrop/internal/models"
)

// Default policy values for theme backgrounds.
const (
	DefaultMinWidth       = 1280
	DefaultMinHeight      = 720
	DefaultTargetRatio    = 16.0 / 9.0
	DefaultRatioTolerance = 0.02
)

// Policy is the resolution and aspect-ratio rule set for backgrounds.
// It is passed by value so no component can change another's policy.
type Policy struct {
	MinWidth       int
	MinHeight      int
	TargetRatio    float64
	RatioTolerance float64

	// Strict turns ErrProbeUnavailable into a hard failure.
	Strict bool
}

// DefaultPolicy returns the 1280x720, 16:9 ±2% policy.
func DefaultPolicy() Policy {
	return Policy{
		MinWidth:       DefaultMinWidth,
		MinHeight:      DefaultMinHeight,
		TargetRatio:    DefaultTargetRatio,
		RatioTolerance: DefaultRatioTolerance,
	}
}

// Result is a validated (or soft-skipped) asset.
type Result struct {
	Kind     models.BackgroundType
	Width    *int
	Height   *int
	Duration float64

	// Skipped is set when the probe was unavailable and the policy allowed
	// continuing without dimensions.
	Skipped bool
}

// Dimensions returns the result's size in the theme model's shape.
func (r *Result) Dimensions() models.Dimensions {
	return models.Dimensions{Width: r.Width, Height: r.Height}
}

// CheckDimensions applies the size and ratio rules to w x h.
func (p Policy) CheckDimensions(w, h int) error {
	if w < p.MinWidth || h < p.MinHeight {
		return &ValidationError{
			Reason: ReasonTooSmall, Width: w, Height: h,
			MinWidth: p.MinWidth, MinHeight: p.MinHeight,
			TargetRatio: p.TargetRatio, Tolerance: p.RatioTolerance,
		}
	}
	ratio := float64(w) / float64(h)
	if math.Abs(ratio-p.TargetRatio) > p.TargetRatio*p.RatioTolerance {
		return &ValidationError{
			Reason: ReasonBadAspectRatio, Width: w, Height: h,
			MinWidth: p.MinWidth, MinHeight: p.MinHeight,
			Ratio: ratio, TargetRatio: p.TargetRatio, Tolerance: p.RatioTolerance,
		}
	}
	return nil
}

// Validate checks probe output against the policy.
func (p Policy) Validate(info *Info) (*Result, error) {
	if err := p.CheckDimensions(info.Width, info.Height); err != nil {
		return nil, err
	}
	w, h := info.Width, info.Height
	return &Result{Kind: info.Kind, Width: &w, Height: &h, Duration: info.Duration}, nil
}

// KindOf classifies a declared content type.
func KindOf(contentType string) (models.BackgroundType, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return models.BackgroundImage, nil
	case strings.HasPrefix(ct, "video/"):
		return models.BackgroundVideo, nil
	default:
		return "", &ProbeError{Op: "classify " + contentType, Kind: ErrUnsupportedMedia}
	}
}
