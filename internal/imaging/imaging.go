// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging renders the small JPEG thumbnails shown next to themes
// in pickers and admin listings. Orientation from EXIF is applied before
// resizing, and sources narrower than the target are never upscaled.
package imaging

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

// Variant describes a single thumbnail size.
type Variant struct {
	Name    string // e.g., "thumb"
	Width   int    // Target width in pixels
	Quality int    // JPEG quality 1-100
}

// DefaultThumbnail is the variant stored for every image background.
var DefaultThumbnail = Variant{Name: "thumb", Width: 480, Quality: 80}

// ProcessedImage holds one generated variant ready for upload.
type ProcessedImage struct {
	Name        string
	Width       int
	Height      int
	Data        []byte
	ContentType string // Always "image/jpeg"
}

// Thumbnail decodes src, applies its EXIF orientation and scales it to
// v.Width keeping the aspect ratio.
func Thumbnail(src []byte, v Variant) (*ProcessedImage, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}

	if img.Bounds().Dx() > v.Width {
		img = imaging.Resize(img, v.Width, 0, imaging.Lanczos)
	}

	quality := v.Quality
	if quality <= 0 {
		quality = DefaultThumbnail.Quality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("imaging: encode %s: %w", v.Name, err)
	}

	b := img.Bounds()
	return &ProcessedImage{
		Name:        v.Name,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
	}, nil
}

// VariantKey builds the storage key for a variant next to its source, e.g.
// "themes/1/bg/17_a.png" -> "themes/1/bg/17_a_thumb.jpg".
func VariantKey(sourceKey, name string) string {
	ext := path.Ext(sourceKey)
	return strings.TrimSuffix(sourceKey, ext) + "_" + name + ".jpg"
}
