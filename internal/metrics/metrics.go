// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backdrop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Job metrics
var (
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrop_job_runs_total",
			Help: "Total number of periodic job runs",
		},
		[]string{"job", "status"}, // "ok", "error", "skipped"
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backdrop_job_duration_seconds",
			Help:    "Periodic job duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"job"},
	)

	JobLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backdrop_job_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful job run",
		},
		[]string{"job"},
	)
)

// Publication metrics
var (
	PublishedItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backdrop_published_items",
			Help: "Number of themes in the last published snapshot",
		},
		[]string{"audience"},
	)

	MalformedThemes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backdrop_malformed_themes_total",
			Help: "Theme rows read with substituted defaults",
		},
	)
)

// Archival metrics
var (
	ArchivedThemesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backdrop_archived_themes_total",
			Help: "Themes archived by the sweeper",
		},
	)

	ArchiveFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrop_archive_failures_total",
			Help: "Archival step failures",
		},
		[]string{"step"}, // "move", "storage_class", "mark"
	)
)

// Media metrics
var (
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrop_media_probes_total",
			Help: "Media probe and validation outcomes",
		},
		[]string{"kind", "outcome"}, // outcome: "accepted", "rejected", "skipped", "error"
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backdrop_media_probe_duration_seconds",
			Help:    "Media probe duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"kind"},
	)
)

// Ingest and asset-application metrics
var (
	IngestEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backdrop_ingest_events_total",
			Help: "Bulk import object events by outcome",
		},
		[]string{"outcome"}, // "created", "ignored", "rejected", "error"
	)

	TxConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backdrop_tx_conflicts_total",
			Help: "Optimistic transaction conflicts that triggered a retry",
		},
	)
)
