// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package media

import (
	"context"
	"log/slog"
	"time"

	"backdrop/internal/metrics"
)

// Check probes an object and validates it against policy. When the probe is
// unavailable and the policy is not strict, it returns a Skipped result with
// nil dimensions instead of an error. Rejections and unsupported media are
// always returned as errors.
func Check(ctx context.Context, prober Prober, policy Policy, key, contentType string) (*Result, error) {
	kind, err := KindOf(contentType)
	if err != nil {
		metrics.ProbesTotal.WithLabelValues("unknown", "rejected").Inc()
		return nil, err
	}

	start := time.Now()
	info, err := prober.Probe(ctx, key, contentType)
	metrics.ProbeDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		if Classify(err) == ClassProbeUnavailable && !policy.Strict {
			slog.Warn("media probe unavailable, continuing without dimensions",
				"key", key, "content_type", contentType, "error", err)
			metrics.ProbesTotal.WithLabelValues(string(kind), "skipped").Inc()
			return &Result{Kind: kind, Skipped: true}, nil
		}
		metrics.ProbesTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, err
	}

	res, err := policy.Validate(info)
	if err != nil {
		metrics.ProbesTotal.WithLabelValues(string(kind), "rejected").Inc()
		return nil, err
	}
	metrics.ProbesTotal.WithLabelValues(string(kind), "accepted").Inc()
	return res, nil
}
