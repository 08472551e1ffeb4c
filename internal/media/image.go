// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP format support

	"backdrop/internal/models"
)

func (p *StorageProber) probeImage(ctx context.Context, key string) (*Info, error) {
	rc, err := p.objects.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", key, err)
	}
	defer rc.Close()

	head, err := io.ReadAll(io.LimitReader(rc, HeaderBytes))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", key, err)
	}
	return DecodeImageHeader(head)
}

// DecodeImageHeader reads dimensions and EXIF orientation from the leading
// bytes of an image. An unregistered format is reported as
// ErrProbeUnavailable; a corrupt header is a plain error.
func DecodeImageHeader(head []byte) (*Info, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(head))
	if errors.Is(err, image.ErrFormat) {
		return nil, &ProbeError{Op: "decode image header", Kind: ErrProbeUnavailable, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}

	w, h := OrientedSize(cfg.Width, cfg.Height, exifOrientation(head))
	return &Info{Kind: models.BackgroundImage, Width: w, Height: h}, nil
}

// exifOrientation returns the EXIF orientation tag, or 1 when the image
// carries none.
func exifOrientation(head []byte) int {
	x, err := exif.Decode(bytes.NewReader(head))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return v
}

// OrientedSize returns the displayed size for an EXIF orientation.
// Orientations 5-8 rotate by 90 or 270 degrees (6 and 8 plain, 5 and 7
// mirrored) and swap the axes.
func OrientedSize(w, h, orientation int) (int, int) {
	switch orientation {
	case 5, 6, 7, 8:
		return h, w
	default:
		return w, h
	}
}
