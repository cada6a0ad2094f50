// Package contracts defines the service interfaces for the GridSight
// decision plane.
//
// These interfaces form the boundary between the orchestration core and its
// external collaborators: the metrics store written by the evaluation and
// monitoring jobs, the natural-language summary model, and the alert
// notification channels. The orchestrator receives implementations by
// injection, so swapping a file-backed provider for a remote one is a single
// line change in the wiring code (pkg/server).
package contracts

import (
	"context"

	"github.com/gridsight/control-plane/pkg/models"
)

// ── Metrics Provider ────────────────────────────────────────

// MetricsProvider serves the current model evaluation state.
// Implementation: internal/metricsource.FileProvider (optionally wrapped in Cached).
type MetricsProvider interface {
	// LatestMetrics returns the most recent evaluation snapshot.
	LatestMetrics(ctx context.Context) (models.MetricsSnapshot, error)

	// DriftStatus returns the current drift detector verdict.
	DriftStatus(ctx context.Context) (models.DriftStatus, error)

	// RecentLogs returns up to limit operational prediction log entries, oldest first.
	RecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error)

	// MetricsHistory returns up to limit historical snapshots, oldest first.
	MetricsHistory(ctx context.Context, limit int) ([]models.MetricsSnapshot, error)
}

// ── Summary Generator ───────────────────────────────────────

// SummaryGenerator turns a prompt into a natural-language summary.
// Generate never fails: errors are folded into the returned text.
// Implementation: internal/summary.Client
type SummaryGenerator interface {
	Generate(ctx context.Context, prompt string) string
}

// ── Alert Notifier ──────────────────────────────────────────

// AlertNotifier delivers a triggered alert to external channels.
// Implementation: internal/notify.Service
type AlertNotifier interface {
	DispatchAlert(ctx context.Context, alert models.AlertRecord)
}
