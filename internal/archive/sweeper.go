// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package archive retires themes whose delete time has passed: their
// background object is moved under the archive prefix, reclassified to cold
// storage and the theme is marked archived. Each theme is handled on its
// own; a failure is logged and retried on the next sweep.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"backdrop/internal/metrics"
	"backdrop/internal/models"
	"backdrop/internal/storage"
)

const (
	// JobName identifies the sweeper in the job runner and metrics.
	JobName = "archive"

	// DefaultPrefix is prepended to a key to form its archive key.
	DefaultPrefix = storage.ArchivePrefix

	// DefaultStorageClass is the cold storage class archived objects get.
	DefaultStorageClass = "GLACIER"
)

// ThemeSource is the part of the theme store the sweeper uses.
type ThemeSource interface {
	ListDueForArchive(ctx context.Context, now time.Time) ([]models.Theme, error)
	MarkArchived(ctx context.Context, id uuid.UUID, archivedURL string, now time.Time, payload map[string]any) (bool, error)
}

// ObjectMover is the part of object storage the sweeper uses. Delete must
// treat a missing object as success, and Copy must wrap storage.ErrNotFound
// when the source does not exist.
type ObjectMover interface {
	Exists(ctx context.Context, key string) (bool, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	SetStorageClass(ctx context.Context, key, class string) error
	ExtractS3Key(rawURL string) (string, bool)
	FileURL(key string) string
}

// StorageMoveError reports a failed move of a theme's background object.
type StorageMoveError struct {
	ThemeID uuid.UUID
	Key     string
	Step    string // "copy" or "delete"
	Err     error
}

func (e *StorageMoveError) Error() string {
	return fmt.Sprintf("archive theme %s: %s %s: %v", e.ThemeID, e.Step, e.Key, e.Err)
}

func (e *StorageMoveError) Unwrap() error { return e.Err }

// Options configures a Sweeper. Zero values select defaults.
type Options struct {
	Prefix       string
	StorageClass string
}

// Report summarises one sweep.
type Report struct {
	Due      int
	Archived int
	Skipped  int // already archived by someone else
	Failed   int
}

// Sweeper archives themes that are due.
type Sweeper struct {
	themes  ThemeSource
	objects ObjectMover
	prefix  string
	class   string
}

// NewSweeper creates a sweeper.
func NewSweeper(themes ThemeSource, objects ObjectMover, opts Options) *Sweeper {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.StorageClass == "" {
		opts.StorageClass = DefaultStorageClass
	}
	return &Sweeper{themes: themes, objects: objects, prefix: opts.Prefix, class: opts.StorageClass}
}

// Name returns the job name.
func (s *Sweeper) Name() string { return JobName }

// Run sweeps once. Per-theme failures are logged, not returned.
func (s *Sweeper) Run(ctx context.Context, now time.Time) error {
	_, err := s.Sweep(ctx, now)
	return err
}

// Sweep archives every theme due at now and reports what happened.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Report, error) {
	due, err := s.themes.ListDueForArchive(ctx, now)
	if err != nil {
		return Report{}, fmt.Errorf("list themes due for archive: %w", err)
	}

	rep := Report{Due: len(due)}
	for i := range due {
		t := &due[i]
		archived, err := s.archiveOne(ctx, t, now)
		switch {
		case err != nil:
			rep.Failed++
			var moveErr *StorageMoveError
			if errors.As(err, &moveErr) {
				slog.Error("archive move failed, retrying next sweep",
					"theme_id", t.ID, "key", moveErr.Key, "step", moveErr.Step, "error", moveErr.Err)
			} else {
				slog.Error("archive theme failed", "theme_id", t.ID, "error", err)
			}
		case archived:
			rep.Archived++
			metrics.ArchivedThemesTotal.Inc()
		default:
			rep.Skipped++
		}
	}

	slog.Info("archive sweep finished",
		"due", rep.Due, "archived", rep.Archived, "skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}

// errSourceGone reports that neither the object nor its archived copy exists.
var errSourceGone = errors.New("background object is gone")

func (s *Sweeper) archiveOne(ctx context.Context, t *models.Theme, now time.Time) (bool, error) {
	var archivedURL string
	payload := map[string]any{"reason": "auto-archive"}

	key, managed := s.objects.ExtractS3Key(t.BackgroundURL)
	switch {
	case !managed || key == "":
		slog.Debug("background outside managed storage, archiving record only",
			"theme_id", t.ID, "url", t.BackgroundURL)
	default:
		archivedKey := key
		if !strings.HasPrefix(key, s.prefix) {
			archivedKey = s.prefix + key
			err := s.move(ctx, t.ID, key, archivedKey)
			if errors.Is(err, errSourceGone) {
				metrics.ArchiveFailuresTotal.WithLabelValues("missing").Inc()
				slog.Warn("background object lost, archiving record only",
					"theme_id", t.ID, "key", key)
				payload["missing_object"] = key
				break
			}
			if err != nil {
				metrics.ArchiveFailuresTotal.WithLabelValues("move").Inc()
				return false, err
			}
		}

		if err := s.objects.SetStorageClass(ctx, archivedKey, s.class); err != nil {
			metrics.ArchiveFailuresTotal.WithLabelValues("storage_class").Inc()
			slog.Warn("failed to reclassify archived object, continuing",
				"theme_id", t.ID, "key", archivedKey, "class", s.class, "error", err)
		}
		archivedURL = s.objects.FileURL(archivedKey)
	}

	ok, err := s.themes.MarkArchived(ctx, t.ID, archivedURL, now, payload)
	if err != nil {
		metrics.ArchiveFailuresTotal.WithLabelValues("mark").Inc()
		return false, fmt.Errorf("mark archived: %w", err)
	}
	if !ok {
		slog.Info("theme already archived", "theme_id", t.ID)
	}
	return ok, nil
}

// move copies src to dst and removes src. A destination left by an earlier
// attempt counts as copied, and a source that is already gone counts as
// deleted. When both are missing it returns errSourceGone.
func (s *Sweeper) move(ctx context.Context, themeID uuid.UUID, src, dst string) error {
	exists, err := s.objects.Exists(ctx, dst)
	if err != nil {
		return &StorageMoveError{ThemeID: themeID, Key: dst, Step: "copy", Err: err}
	}
	if !exists {
		err := s.objects.Copy(ctx, src, dst)
		if errors.Is(err, storage.ErrNotFound) {
			return errSourceGone
		}
		if err != nil {
			return &StorageMoveError{ThemeID: themeID, Key: src, Step: "copy", Err: err}
		}
	}
	if err := s.objects.Delete(ctx, src); err != nil {
		return &StorageMoveError{ThemeID: themeID, Key: src, Step: "delete", Err: err}
	}
	return nil
}
