// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"backdrop/internal/models"
)

// appendAudit inserts an audit row. The theme_audit table has no update or
// delete path in this package.
func appendAudit(ctx context.Context, q queryer, themeID, actor uuid.UUID, action models.AuditAction, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode audit payload: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO theme_audit (theme_id, actor_id, action, payload)
		VALUES ($1, $2, $3, $4)
	`, themeID, actor, action, string(b))
	if err != nil {
		return fmt.Errorf("append %s audit: %w", action, err)
	}
	return nil
}

// Audit returns a theme's audit trail, newest first.
func (s *ThemeStore) Audit(ctx context.Context, themeID uuid.UUID) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, theme_id, at, actor_id, action, payload
		FROM theme_audit
		WHERE theme_id = $1
		ORDER BY at DESC, id
	`, themeID)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			e       models.AuditEntry
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.ThemeID, &e.At, &e.ActorID, &e.Action, &payload); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if err := decodeJSON(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
