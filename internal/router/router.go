// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// backdrop API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backdrop/internal/handlers"
	"backdrop/internal/middleware"
)

// New creates the chi router. limiter guards the expensive endpoints
// (uploads and job triggers) and may be nil.
func New(api *handlers.API, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request. Actor runs before
	// Logger so request logs carry the caller.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Actor)
	r.Use(middleware.Logger)

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIHeaders)

		// Published snapshot, read by clients.
		r.Get("/published", api.Published)
		r.Get("/published/{audience}", api.PublishedFor)

		// Admin API. Reads are open to the proxy; writes need an actor.
		r.Route("/themes", func(r chi.Router) {
			r.Get("/", api.ListThemes)
			r.Get("/{id}", api.GetTheme)
			r.Get("/{id}/audit", api.ThemeAudit)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireActor)
				r.Post("/", api.CreateTheme)
				r.Patch("/{id}", api.PatchTheme)
				r.Delete("/{id}", api.DeleteTheme)
				r.Post("/{id}/apply/{assetID}", api.ApplyAsset)
				r.Post("/{id}/revert", api.RevertBackground)

				r.Group(func(r chi.Router) {
					if limiter != nil {
						r.Use(limiter.Middleware)
					}
					r.Post("/{id}/background", api.UploadBackground)
				})
			})
		})

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", api.ListAssets)
			r.Get("/{id}", api.GetAsset)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireActor)
				if limiter != nil {
					r.Use(limiter.Middleware)
				}
				r.Post("/", api.RegisterAsset)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireActor)
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			r.Post("/jobs/{name}/run", api.RunJob)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
