// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for cache operations.
var (
	tracer = otel.Tracer("acp.cache")
	meter  = otel.Meter("acp.cache")
)

// Metrics for cache build and persistence.
var (
	buildsTotal    metric.Int64Counter
	buildConflicts metric.Int64Counter
	buildDuration  metric.Float64Histogram
	loadFailures   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildsTotal, err = meter.Int64Counter(
			"cache_builds_total",
			metric.WithDescription("Total number of cache builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildConflicts, err = meter.Int64Counter(
			"cache_build_conflicts_total",
			metric.WithDescription("Total number of first-wins metadata conflicts"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildDuration, err = meter.Float64Histogram(
			"cache_build_duration_seconds",
			metric.WithDescription("Duration of cache builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		loadFailures, err = meter.Int64Counter(
			"cache_load_failures_total",
			metric.WithDescription("Total number of cache loads rejected as corrupt"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuild records one completed build.
func recordBuild(ctx context.Context, duration time.Duration, conflicts int) {
	if err := initMetrics(); err != nil {
		return
	}
	buildsTotal.Add(ctx, 1)
	buildDuration.Record(ctx, duration.Seconds())
	if conflicts > 0 {
		buildConflicts.Add(ctx, int64(conflicts))
	}
}

// recordLoadFailure counts one rejected load.
func recordLoadFailure(ctx context.Context, reason string) {
	if err := initMetrics(); err != nil {
		return
	}
	loadFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// startBuildSpan creates a span for a cache build.
func startBuildSpan(ctx context.Context, records int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Cache.Build",
		trace.WithAttributes(
			attribute.Int("build.records", records),
		),
	)
}
