// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scanner

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for scan operations.
var (
	tracer = otel.Tracer("acp.scanner")
	meter  = otel.Meter("acp.scanner")
)

// Metrics for scan operations.
var (
	scanFilesTotal   metric.Int64Counter
	scanWarnings     metric.Int64Counter
	scanDuration     metric.Float64Histogram
	scanRecordsTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		scanFilesTotal, err = meter.Int64Counter(
			"scan_files_total",
			metric.WithDescription("Total number of files considered by the scanner"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		scanWarnings, err = meter.Int64Counter(
			"scan_warnings_total",
			metric.WithDescription("Total number of scan warnings by kind"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		scanDuration, err = meter.Float64Histogram(
			"scan_duration_seconds",
			metric.WithDescription("Duration of full tree scans"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		scanRecordsTotal, err = meter.Int64Counter(
			"scan_records_total",
			metric.WithDescription("Total number of annotation records extracted"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordScanFile counts one file, scanned or skipped.
func recordScanFile(ctx context.Context, skipped bool) {
	if err := initMetrics(); err != nil {
		return
	}
	scanFilesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("skipped", skipped)),
	)
}

// recordScanWarning counts one warning by kind.
func recordScanWarning(ctx context.Context, kind WarningKind) {
	if err := initMetrics(); err != nil {
		return
	}
	scanWarnings.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", string(kind))),
	)
}

// recordScanComplete records the duration and record count of a scan.
func recordScanComplete(ctx context.Context, duration time.Duration, records int) {
	if err := initMetrics(); err != nil {
		return
	}
	scanDuration.Record(ctx, duration.Seconds())
	scanRecordsTotal.Add(ctx, int64(records))
}

// startScanSpan creates a span for a scan operation.
func startScanSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Scanner.Scan",
		trace.WithAttributes(
			attribute.String("scan.root", root),
		),
	)
}
