// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ActorHeader carries the authenticated admin's ID, set by the auth proxy
// in front of the API.
const ActorHeader = "X-Actor-ID"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const actorKey contextKey = "actor"

// Actor reads ActorHeader and stores the parsed ID in the request context.
// A missing or malformed header leaves the request anonymous.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := strings.TrimSpace(r.Header.Get(ActorHeader)); raw != "" {
			if id, err := uuid.Parse(raw); err == nil && id != uuid.Nil {
				r = r.WithContext(WithActor(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireActor rejects requests without a valid actor. Must run after Actor.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ActorFromCtx(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid "+ActorHeader+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithActor returns a copy of ctx carrying the actor ID.
func WithActor(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey, id)
}

// ActorFromCtx returns the actor stored by Actor.
func ActorFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey).(uuid.UUID)
	return id, ok
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
