// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package media extracts intrinsic dimensions from stored image and video
// assets and validates them against the background policy. Errors are
// tagged at the point they are raised so callers can decide on soft-skip
// behaviour without inspecting message text.
package media

import (
	"context"
	"io"
	"time"

	"backdrop/internal/models"
)

const (
	// HeaderBytes is how much of an image object is read to decode its
	// header and EXIF block.
	HeaderBytes = 1 << 20

	// DefaultProbeTimeout bounds a single ffprobe run.
	DefaultProbeTimeout = 20 * time.Second
)

// Info is raw probe output with orientation and pixel aspect already
// applied, so Width x Height is the displayed size.
type Info struct {
	Kind     models.BackgroundType
	Width    int
	Height   int
	Duration float64
	Rotation int
}

// Prober extracts Info for a stored object.
type Prober interface {
	Probe(ctx context.Context, key, contentType string) (*Info, error)
}

// ObjectReader is the part of object storage the prober reads from.
type ObjectReader interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	DownloadToFile(ctx context.Context, key, path string) error
}

// StorageProber probes objects held in object storage. Images are decoded
// in-process from their header; videos are copied to a temporary file and
// inspected with ffprobe.
type StorageProber struct {
	objects     ObjectReader
	ffprobePath string
	timeout     time.Duration
	tempDir     string
}

// ProberOptions configures a StorageProber. Zero values select defaults.
type ProberOptions struct {
	FFProbePath string
	Timeout     time.Duration
	TempDir     string
}

// NewStorageProber creates a prober reading from objects.
func NewStorageProber(objects ObjectReader, opts ProberOptions) *StorageProber {
	if opts.FFProbePath == "" {
		opts.FFProbePath = "ffprobe"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProbeTimeout
	}
	return &StorageProber{
		objects:     objects,
		ffprobePath: opts.FFProbePath,
		timeout:     opts.Timeout,
		tempDir:     opts.TempDir,
	}
}

// Probe dispatches on the declared content type.
func (p *StorageProber) Probe(ctx context.Context, key, contentType string) (*Info, error) {
	kind, err := KindOf(contentType)
	if err != nil {
		return nil, err
	}
	if kind == models.BackgroundVideo {
		return p.probeVideo(ctx, key)
	}
	return p.probeImage(ctx, key)
}
