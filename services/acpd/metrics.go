// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package acpd

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for daemon operations. Request-level metrics come
// from the otelgin middleware; these cover the reindex pipeline.
var meter = otel.Meter("acp.daemon")

var (
	reindexTotal    metric.Int64Counter
	reindexDuration metric.Float64Histogram
	snapshotFiles   metric.Int64Gauge

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		reindexTotal, err = meter.Int64Counter(
			"daemon_reindex_total",
			metric.WithDescription("Total number of reindex attempts by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		reindexDuration, err = meter.Float64Histogram(
			"daemon_reindex_duration_seconds",
			metric.WithDescription("Duration of completed reindex runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		snapshotFiles, err = meter.Int64Gauge(
			"daemon_snapshot_files",
			metric.WithDescription("File count of the published snapshot"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordReindex records one reindex attempt.
func recordReindex(ctx context.Context, duration time.Duration, files int, err error) {
	if initErr := initMetrics(); initErr != nil {
		return
	}

	outcome := "ok"
	switch {
	case errors.Is(err, ErrReindexInProgress):
		outcome = "conflict"
	case err != nil:
		outcome = "error"
	}

	reindexTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
	if err == nil {
		reindexDuration.Record(ctx, duration.Seconds())
		snapshotFiles.Record(ctx, int64(files))
	}
}
