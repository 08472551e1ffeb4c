// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names the kind of mutation recorded in a theme's audit trail.
type AuditAction string

const (
	AuditCreated      AuditAction = "created"
	AuditUpdated      AuditAction = "updated"
	AuditDeleted      AuditAction = "deleted"
	AuditAppliedAsset AuditAction = "applied-asset"
	AuditArchived     AuditAction = "archived"
	AuditReverted     AuditAction = "reverted"
)

// AuditEntry is one append-only record in a theme's audit trail.
type AuditEntry struct {
	ID      uuid.UUID      `json:"id"`
	ThemeID uuid.UUID      `json:"theme_id"`
	At      time.Time      `json:"at"`
	ActorID uuid.UUID      `json:"actor_id"`
	Action  AuditAction    `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
}

// SystemActor is the actor recorded for mutations made by background jobs.
var SystemActor = uuid.Nil
