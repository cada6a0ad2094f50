package metricsource

import (
	"context"

	"github.com/gridsight/control-plane/pkg/models"
)

// StaticProvider serves fixed values. Used by tests and by callers that
// already hold a snapshot. A non-nil Err is returned from every call.
type StaticProvider struct {
	Snapshot models.MetricsSnapshot
	Drift    models.DriftStatus
	Logs     []models.LogEntry
	History  []models.MetricsSnapshot
	Err      error
}

func (p *StaticProvider) LatestMetrics(ctx context.Context) (models.MetricsSnapshot, error) {
	if p.Err != nil {
		return models.MetricsSnapshot{}, p.Err
	}
	return p.Snapshot.Clone(), nil
}

func (p *StaticProvider) DriftStatus(ctx context.Context) (models.DriftStatus, error) {
	if p.Err != nil {
		return models.DriftStatus{}, p.Err
	}
	if p.Drift.DriftRisk == "" {
		return models.DriftStatus{DriftRisk: models.DriftLow, Source: "static"}, nil
	}
	return p.Drift, nil
}

func (p *StaticProvider) RecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return last(append([]models.LogEntry(nil), p.Logs...), limit), nil
}

func (p *StaticProvider) MetricsHistory(ctx context.Context, limit int) ([]models.MetricsSnapshot, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return last(append([]models.MetricsSnapshot(nil), p.History...), limit), nil
}
