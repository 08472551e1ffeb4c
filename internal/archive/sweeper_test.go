// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"backdrop/internal/models"
	"backdrop/internal/storage"
)

const cdn = "https://cdn.example.com/"

var now = time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)

// memThemes is an in-memory ThemeSource with an audit log.
type memThemes struct {
	themes map[uuid.UUID]*models.Theme
	audit  []models.AuditEntry
}

func newMemThemes(themes ...*models.Theme) *memThemes {
	m := &memThemes{themes: make(map[uuid.UUID]*models.Theme)}
	for _, t := range themes {
		m.themes[t.ID] = t
	}
	return m
}

func (m *memThemes) ListDueForArchive(_ context.Context, now time.Time) ([]models.Theme, error) {
	var out []models.Theme
	for _, t := range m.themes {
		if !t.Archived && t.DeleteAt != nil && !t.DeleteAt.After(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memThemes) MarkArchived(_ context.Context, id uuid.UUID, url string, now time.Time, payload map[string]any) (bool, error) {
	t := m.themes[id]
	if t.Archived {
		return false, nil
	}
	t.Archived = true
	t.Visibility = models.VisibilityPrivate
	t.ArchivedAt = &now
	if url != "" {
		t.BackgroundURL = url
	}
	m.audit = append(m.audit, models.AuditEntry{ThemeID: id, Action: models.AuditArchived, Payload: payload})
	return true, nil
}

// memObjects is an in-memory ObjectMover with failure injection.
type memObjects struct {
	objects  map[string]string // key -> storage class
	copies   int
	failCopy map[string]bool
	failCls  bool
}

func newMemObjects(keys ...string) *memObjects {
	m := &memObjects{objects: make(map[string]string), failCopy: make(map[string]bool)}
	for _, k := range keys {
		m.objects[k] = "STANDARD"
	}
	return m
}

func (m *memObjects) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memObjects) Copy(_ context.Context, src, dst string) error {
	if m.failCopy[src] {
		return errors.New("copy refused")
	}
	cls, ok := m.objects[src]
	if !ok {
		return fmt.Errorf("copy %s: %w", src, storage.ErrNotFound)
	}
	m.copies++
	m.objects[dst] = cls
	return nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memObjects) SetStorageClass(_ context.Context, key, class string) error {
	if m.failCls {
		return errors.New("storage class not supported")
	}
	if _, ok := m.objects[key]; !ok {
		return errors.New("no such key")
	}
	m.objects[key] = class
	return nil
}

func (m *memObjects) ExtractS3Key(rawURL string) (string, bool) {
	if strings.HasPrefix(rawURL, cdn) {
		return strings.TrimPrefix(rawURL, cdn), true
	}
	return "", false
}

func (m *memObjects) FileURL(key string) string { return cdn + key }

func dueTheme(key string) *models.Theme {
	deleteAt := now.Add(-time.Minute)
	return &models.Theme{
		ID:            uuid.New(),
		Name:          key,
		BackgroundURL: cdn + key,
		Visibility:    models.VisibilityPublic,
		DeleteAt:      &deleteAt,
	}
}

func TestSweepScenario(t *testing.T) {
	th := dueTheme("themes/a/bg/1_a.jpg")
	themes := newMemThemes(th)
	objects := newMemObjects("themes/a/bg/1_a.jpg")

	rep, err := NewSweeper(themes, objects, Options{}).Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if rep.Archived != 1 || rep.Failed != 0 {
		t.Fatalf("report: %+v", rep)
	}

	if !th.Archived || th.Visibility != models.VisibilityPrivate || th.ArchivedAt == nil {
		t.Errorf("theme not archived: %+v", th)
	}
	if th.BackgroundURL != cdn+"archive/themes/a/bg/1_a.jpg" {
		t.Errorf("background url: got %q", th.BackgroundURL)
	}
	if _, ok := objects.objects["themes/a/bg/1_a.jpg"]; ok {
		t.Error("original object should be removed")
	}
	if cls := objects.objects["archive/themes/a/bg/1_a.jpg"]; cls != "GLACIER" {
		t.Errorf("archived object class: got %q", cls)
	}
	if len(themes.audit) != 1 || themes.audit[0].Payload["reason"] != "auto-archive" {
		t.Errorf("audit: %+v", themes.audit)
	}
}

func TestSweepIdempotent(t *testing.T) {
	th := dueTheme("themes/a/bg/1_a.jpg")
	themes := newMemThemes(th)
	objects := newMemObjects("themes/a/bg/1_a.jpg")
	s := NewSweeper(themes, objects, Options{})

	for i := 0; i < 2; i++ {
		if _, err := s.Sweep(context.Background(), now); err != nil {
			t.Fatalf("Sweep %d: %v", i, err)
		}
	}
	if len(themes.audit) != 1 {
		t.Errorf("audit entries: got %d, want 1", len(themes.audit))
	}
	if objects.copies != 1 {
		t.Errorf("copies: got %d, want 1", objects.copies)
	}
}

func TestSweepResumesPartialMove(t *testing.T) {
	// A previous attempt copied the object and removed the original but
	// died before marking the theme.
	th := dueTheme("themes/b/bg/1_b.jpg")
	themes := newMemThemes(th)
	objects := newMemObjects("archive/themes/b/bg/1_b.jpg")

	rep, err := NewSweeper(themes, objects, Options{}).Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if rep.Archived != 1 {
		t.Fatalf("report: %+v", rep)
	}
	if objects.copies != 0 {
		t.Errorf("existing destination should not be copied again, got %d copies", objects.copies)
	}
	if !strings.HasSuffix(th.BackgroundURL, "archive/themes/b/bg/1_b.jpg") {
		t.Errorf("background url: got %q", th.BackgroundURL)
	}
}

func TestSweepFailureIsolation(t *testing.T) {
	bad := dueTheme("themes/bad/bg/1.jpg")
	good := dueTheme("themes/good/bg/1.jpg")
	themes := newMemThemes(bad, good)
	objects := newMemObjects("themes/bad/bg/1.jpg", "themes/good/bg/1.jpg")
	objects.failCopy["themes/bad/bg/1.jpg"] = true

	rep, err := NewSweeper(themes, objects, Options{}).Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if rep.Archived != 1 || rep.Failed != 1 {
		t.Fatalf("report: %+v", rep)
	}
	if bad.Archived {
		t.Error("theme whose move failed must stay unarchived for the next sweep")
	}
	if !good.Archived {
		t.Error("one failure must not stop the batch")
	}

	// The next sweep picks the failed theme up again.
	delete(objects.failCopy, "themes/bad/bg/1.jpg")
	rep, _ = NewSweeper(themes, objects, Options{}).Sweep(context.Background(), now)
	if rep.Archived != 1 || !bad.Archived {
		t.Errorf("retry: report %+v, archived=%v", rep, bad.Archived)
	}
}

func TestSweepStorageClassFailureIsNotFatal(t *testing.T) {
	th := dueTheme("themes/c/bg/1.jpg")
	themes := newMemThemes(th)
	objects := newMemObjects("themes/c/bg/1.jpg")
	objects.failCls = true

	rep, _ := NewSweeper(themes, objects, Options{}).Sweep(context.Background(), now)
	if rep.Archived != 1 || !th.Archived {
		t.Errorf("storage class failure should not block archiving: %+v", rep)
	}
}

func TestSweepUnmanagedURL(t *testing.T) {
	th := dueTheme("x")
	th.BackgroundURL = "https://elsewhere.example.org/x.jpg"
	themes := newMemThemes(th)
	objects := newMemObjects()

	rep, _ := NewSweeper(themes, objects, Options{}).Sweep(context.Background(), now)
	if rep.Archived != 1 || !th.Archived {
		t.Fatalf("report: %+v", rep)
	}
	if th.BackgroundURL != "https://elsewhere.example.org/x.jpg" {
		t.Errorf("foreign url should be kept, got %q", th.BackgroundURL)
	}
}

func TestSweepAlreadyUnderArchivePrefix(t *testing.T) {
	th := dueTheme("archive/themes/d/bg/1.jpg")
	themes := newMemThemes(th)
	objects := newMemObjects("archive/themes/d/bg/1.jpg")

	rep, _ := NewSweeper(themes, objects, Options{StorageClass: "DEEP_ARCHIVE"}).Sweep(context.Background(), now)
	if rep.Archived != 1 || objects.copies != 0 {
		t.Errorf("report %+v, copies %d", rep, objects.copies)
	}
	if strings.Contains(th.BackgroundURL, "archive/archive/") {
		t.Errorf("archive prefix applied twice: %q", th.BackgroundURL)
	}
	if cls := objects.objects["archive/themes/d/bg/1.jpg"]; cls != "DEEP_ARCHIVE" {
		t.Errorf("storage class: got %q", cls)
	}
}

func TestSweepLostObject(t *testing.T) {
	th := dueTheme("themes/e/bg/1_e.jpg")
	themes := newMemThemes(th)
	objects := newMemObjects()

	rep, err := NewSweeper(themes, objects, Options{}).Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if rep.Archived != 1 || rep.Failed != 0 {
		t.Fatalf("report: %+v", rep)
	}
	if !th.Archived || th.Visibility != models.VisibilityPrivate {
		t.Errorf("theme should be archived: %+v", th)
	}
	if th.BackgroundURL != cdn+"themes/e/bg/1_e.jpg" {
		t.Errorf("background url should be left alone, got %q", th.BackgroundURL)
	}
	if len(themes.audit) != 1 || themes.audit[0].Payload["missing_object"] != "themes/e/bg/1_e.jpg" {
		t.Errorf("audit: %+v", themes.audit)
	}

	rep, _ = NewSweeper(themes, objects, Options{}).Sweep(context.Background(), now)
	if rep.Due != 0 {
		t.Errorf("archived theme swept again: %+v", rep)
	}
}

func TestStorageMoveErrorUnwraps(t *testing.T) {
	cause := errors.New("denied")
	err := error(&StorageMoveError{ThemeID: uuid.New(), Key: "k", Step: "copy", Err: cause})
	if !errors.Is(err, cause) {
		t.Error("StorageMoveError should unwrap to its cause")
	}
}
