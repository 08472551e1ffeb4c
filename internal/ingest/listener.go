// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ingest turns objects dropped into the import prefix into draft
// themes. Each object is probed and validated; only an unavailable probe
// may be skipped, and only when the policy is not strict.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"backdrop/internal/imaging"
	"backdrop/internal/media"
	"backdrop/internal/metrics"
	"backdrop/internal/models"
	"backdrop/internal/storage"
)

// DefaultPrefix is where bulk imports are dropped.
const DefaultPrefix = "imports/"

const (
	metaBulkImport = "bulk-import"
	metaThemeName  = "theme-name"
)

// ErrIgnored is returned for objects that are not bulk imports.
var ErrIgnored = errors.New("object is not a bulk import")

// Objects is the part of object storage the listener uses.
type Objects interface {
	Head(ctx context.Context, key string) (*storage.ObjectInfo, error)
	CopyAs(ctx context.Context, srcKey, dstKey, contentType string, meta map[string]string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	FileURL(key string) string
}

// ThemeCreator creates the draft theme and its audit entry.
type ThemeCreator interface {
	Create(ctx context.Context, t *models.Theme, actor uuid.UUID, payload map[string]any) (*models.Theme, error)
}

// Options configures a Listener.
type Options struct {
	Prefix string
	Policy media.Policy
	// Now is used for asset key timestamps; time.Now when nil.
	Now func() time.Time
}

// Listener handles object-created events.
type Listener struct {
	objects Objects
	prober  media.Prober
	themes  ThemeCreator
	prefix  string
	policy  media.Policy
	now     func() time.Time
}

// NewListener creates a bulk import listener.
func NewListener(objects Objects, prober media.Prober, themes ThemeCreator, opts Options) *Listener {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Listener{
		objects: objects,
		prober:  prober,
		themes:  themes,
		prefix:  opts.Prefix,
		policy:  opts.Policy,
		now:     opts.Now,
	}
}

// HandleMessage processes one bucket notification. Per-object failures are
// logged; only an undecodable message is returned as an error.
func (l *Listener) HandleMessage(ctx context.Context, data []byte) error {
	events, err := ParseNotification(data)
	if err != nil {
		metrics.IngestEventsTotal.WithLabelValues("error").Inc()
		return err
	}
	for _, ev := range events {
		t, err := l.Handle(ctx, ev)
		switch {
		case errors.Is(err, ErrIgnored):
			slog.Debug("ignoring object outside bulk import", "key", ev.Key)
		case err != nil:
			slog.Error("bulk import failed",
				"key", ev.Key, "class", media.Classify(err).String(), "error", err)
		default:
			slog.Info("bulk import created draft theme", "key", ev.Key, "theme_id", t.ID)
		}
	}
	return nil
}

// Handle imports a single object and returns the created draft theme. The
// returned error keeps its type so callers can tell a rejection from an
// infrastructure failure.
func (l *Listener) Handle(ctx context.Context, ev ObjectEvent) (*models.Theme, error) {
	// Objects the service wrote itself raise events too; never import them.
	if strings.HasSuffix(ev.Key, "/") || storage.Managed(ev.Key) {
		metrics.IngestEventsTotal.WithLabelValues("ignored").Inc()
		return nil, ErrIgnored
	}

	underPrefix := strings.HasPrefix(ev.Key, l.prefix)
	if ev.ContentType == "" || (!underPrefix && ev.Metadata == nil) {
		info, err := l.objects.Head(ctx, ev.Key)
		if err != nil {
			metrics.IngestEventsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("inspect %s: %w", ev.Key, err)
		}
		if ev.ContentType == "" {
			ev.ContentType = info.ContentType
		}
		if ev.Metadata == nil {
			ev.Metadata = info.Metadata
		}
	}
	if !underPrefix && !strings.EqualFold(ev.Metadata[metaBulkImport], "true") {
		metrics.IngestEventsTotal.WithLabelValues("ignored").Inc()
		return nil, ErrIgnored
	}

	res, err := media.Check(ctx, l.prober, l.policy, ev.Key, ev.ContentType)
	if err != nil {
		outcome := "error"
		if media.Classify(err) == media.ClassRejected || errors.Is(err, media.ErrUnsupportedMedia) {
			outcome = "rejected"
		}
		metrics.IngestEventsTotal.WithLabelValues(outcome).Inc()
		return nil, fmt.Errorf("validate %s: %w", ev.Key, err)
	}

	filename := path.Base(ev.Key)
	themeID := uuid.New()
	assetKey := storage.ThemeAssetKey(themeID, l.now(), filename)
	if err := l.objects.CopyAs(ctx, ev.Key, assetKey, ev.ContentType, assetMetadata(ev.Metadata)); err != nil {
		metrics.IngestEventsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("copy %s: %w", ev.Key, err)
	}

	var thumbPath string
	if res.Kind == models.BackgroundImage {
		thumbPath = l.thumbnail(ctx, assetKey)
	}

	theme := &models.Theme{
		ID:             themeID,
		Name:           themeName(ev.Metadata, filename),
		BackgroundURL:  l.objects.FileURL(assetKey),
		BackgroundType: res.Kind,
		BackgroundMeta: res.Dimensions(),
		ThumbPath:      thumbPath,
		Visibility:     models.VisibilityPrivate,
		Audiences:      []models.Audience{models.AudienceAll},
	}
	created, err := l.themes.Create(ctx, theme, models.SystemActor, map[string]any{"source": "bulk-import"})
	if err != nil {
		metrics.IngestEventsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create theme for %s: %w", ev.Key, err)
	}

	if res.Skipped {
		slog.Warn("imported theme without dimensions", "theme_id", created.ID, "key", ev.Key)
	}
	metrics.IngestEventsTotal.WithLabelValues("created").Inc()
	return created, nil
}

// thumbnail renders and stores a thumbnail for an image asset. Failures
// are logged and leave the theme without one.
func (l *Listener) thumbnail(ctx context.Context, key string) string {
	src, err := l.objects.Download(ctx, key)
	if err != nil {
		slog.Warn("failed to download image for thumbnail", "key", key, "error", err)
		return ""
	}
	thumb, err := imaging.Thumbnail(src, imaging.DefaultThumbnail)
	if err != nil {
		slog.Warn("failed to render thumbnail", "key", key, "error", err)
		return ""
	}
	thumbKey := imaging.VariantKey(key, thumb.Name)
	if err := l.objects.Upload(ctx, thumbKey, thumb.ContentType, bytes.NewReader(thumb.Data), int64(len(thumb.Data))); err != nil {
		slog.Warn("failed to upload thumbnail", "key", thumbKey, "error", err)
		return ""
	}
	return l.objects.FileURL(thumbKey)
}

// assetMetadata is the source metadata without the import flag.
func assetMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if !strings.EqualFold(k, metaBulkImport) {
			out[k] = v
		}
	}
	return out
}

func themeName(meta map[string]string, filename string) string {
	if name := strings.TrimSpace(meta[metaThemeName]); name != "" {
		return name
	}
	name := strings.TrimSuffix(filename, path.Ext(filename))
	if name == "" {
		return filename
	}
	return name
}
