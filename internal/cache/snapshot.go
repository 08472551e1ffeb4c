// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// snapshot.go stores the published theme snapshot as a single JSON
// document. Clients read the key directly, so the whole document is
// replaced with one SET and never expires.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"backdrop/internal/models"
)

// DefaultSnapshotKey is the Valkey key holding the published snapshot.
const DefaultSnapshotKey = "themes:published"

// SnapshotStore reads and writes the published snapshot document.
type SnapshotStore struct {
	client *redis.Client
	key    string
}

// NewSnapshotStore creates a snapshot store for key.
func NewSnapshotStore(client *redis.Client, key string) *SnapshotStore {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &SnapshotStore{client: client, key: key}
}

// Key returns the Valkey key of the document.
func (s *SnapshotStore) Key() string {
	return s.key
}

// WriteSnapshot replaces the document in one SET.
func (s *SnapshotStore) WriteSnapshot(ctx context.Context, snap *models.PublishedSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("write snapshot %s: %w", s.key, err)
	}
	return nil
}

// Get returns the current document. found is false when nothing has been
// published yet.
func (s *SnapshotStore) Get(ctx context.Context) (snap *models.PublishedSnapshot, found bool, err error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot %s: %w", s.key, err)
	}
	var out models.PublishedSnapshot
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", s.key, err)
	}
	return &out, true, nil
}
