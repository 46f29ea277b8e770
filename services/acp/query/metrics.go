// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package query

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for query operations.
var (
	tracer = otel.Tracer("acp.query")
	meter  = otel.Meter("acp.query")
)

// Metrics for lookups and primer generation.
var (
	lookupsTotal      metric.Int64Counter
	primersTotal      metric.Int64Counter
	primerTruncations metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		lookupsTotal, err = meter.Int64Counter(
			"query_lookups_total",
			metric.WithDescription("Total number of cache lookups by operation"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		primersTotal, err = meter.Int64Counter(
			"query_primers_total",
			metric.WithDescription("Total number of primers generated"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		primerTruncations, err = meter.Int64Counter(
			"query_primer_truncations_total",
			metric.WithDescription("Total number of primers truncated to fit their budget"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordLookup counts one lookup by operation and hit/miss.
func recordLookup(ctx context.Context, op string, found bool) {
	if err := initMetrics(); err != nil {
		return
	}
	lookupsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("op", op),
			attribute.Bool("found", found),
		),
	)
}

// recordPrimer counts one primer generation.
func recordPrimer(ctx context.Context, scoped, truncated bool) {
	if err := initMetrics(); err != nil {
		return
	}
	primersTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("scoped", scoped)),
	)
	if truncated {
		primerTruncations.Add(ctx, 1)
	}
}

// startPrimerSpan creates a span for primer generation.
func startPrimerSpan(ctx context.Context, domain string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Query.GeneratePrimer",
		trace.WithAttributes(
			attribute.String("primer.domain", domain),
		),
	)
}
