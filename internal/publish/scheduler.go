// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"backdrop/internal/metrics"
	"backdrop/internal/models"
)

// JobName identifies the publisher in the job runner and metrics.
const JobName = "publish"

// ThemeLister loads the themes the publisher evaluates.
type ThemeLister interface {
	ListActive(ctx context.Context) ([]models.Theme, error)
}

// SnapshotWriter stores a finished snapshot in one write.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, snap *models.PublishedSnapshot) error
}

// Scheduler evaluates every theme and replaces the published snapshot.
type Scheduler struct {
	themes ThemeLister
	out    SnapshotWriter
}

// NewScheduler creates a publisher reading from themes and writing to out.
func NewScheduler(themes ThemeLister, out SnapshotWriter) *Scheduler {
	return &Scheduler{themes: themes, out: out}
}

// Name returns the job name.
func (s *Scheduler) Name() string { return JobName }

// Run builds the whole snapshot in memory and writes it once. If the
// themes cannot be loaded nothing is written, so readers keep the previous
// snapshot rather than an empty one.
func (s *Scheduler) Run(ctx context.Context, now time.Time) error {
	themes, err := s.themes.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load themes: %w", err)
	}

	snap := Evaluate(themes, now)
	if err := s.out.WriteSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	metrics.PublishedItems.WithLabelValues(string(models.AudienceAll)).Set(float64(len(snap.ItemsAll)))
	metrics.PublishedItems.WithLabelValues(string(models.AudienceVIP)).Set(float64(len(snap.ItemsVIP)))
	slog.Info("published theme snapshot",
		"themes", len(themes),
		"items_all", len(snap.ItemsAll),
		"items_vip", len(snap.ItemsVIP),
	)
	return nil
}
