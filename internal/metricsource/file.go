// Package metricsource adapts the artifacts written by the evaluation and
// monitoring jobs into the contracts.MetricsProvider interface.
package metricsource

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/gridsight/control-plane/internal/config"
	"github.com/gridsight/control-plane/pkg/models"
)

// ErrMetricsNotFound is returned when no evaluation report has been written yet.
var ErrMetricsNotFound = errors.New("metrics not found")

// Derived drift thresholds, used when no drift report exists.
const (
	driftR2Threshold          = 0.95
	driftImprovementThreshold = 10.0
)

// FileProvider reads metrics from JSON files on local disk.
type FileProvider struct {
	reportPath  string
	driftPath   string
	logPath     string
	historyPath string
}

// NewFileProvider creates a provider over the configured artifact paths.
func NewFileProvider(cfg config.MetricsConfig) *FileProvider {
	return &FileProvider{
		reportPath:  cfg.ReportPath,
		driftPath:   cfg.DriftPath,
		logPath:     cfg.PredictionLogPath,
		historyPath: cfg.HistoryPath,
	}
}

// LatestMetrics decodes and validates the evaluation report.
func (p *FileProvider) LatestMetrics(ctx context.Context) (models.MetricsSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.MetricsSnapshot{}, err
	}
	data, err := os.ReadFile(p.reportPath)
	if errors.Is(err, os.ErrNotExist) {
		return models.MetricsSnapshot{}, fmt.Errorf("%w: %s", ErrMetricsNotFound, p.reportPath)
	}
	if err != nil {
		return models.MetricsSnapshot{}, fmt.Errorf("read evaluation report: %w", err)
	}
	return DecodeReport(data)
}

// DriftStatus reads the drift report. Without one, drift is derived from the
// latest metrics: HIGH when R2 is below 0.95 or improvement below 10%.
func (p *FileProvider) DriftStatus(ctx context.Context) (models.DriftStatus, error) {
	if err := ctx.Err(); err != nil {
		return models.DriftStatus{}, err
	}
	data, err := os.ReadFile(p.driftPath)
	switch {
	case err == nil:
		var ds models.DriftStatus
		if err := json.Unmarshal(data, &ds); err != nil {
			return models.DriftStatus{}, fmt.Errorf("decode drift report: %w", err)
		}
		if !validDrift(ds.DriftRisk) {
			return models.DriftStatus{}, fmt.Errorf("drift report: invalid drift_risk %q", ds.DriftRisk)
		}
		if ds.Source == "" {
			ds.Source = "drift_report"
		}
		return ds, nil
	case !errors.Is(err, os.ErrNotExist):
		return models.DriftStatus{}, fmt.Errorf("read drift report: %w", err)
	}

	snap, err := p.LatestMetrics(ctx)
	if err != nil {
		return models.DriftStatus{}, fmt.Errorf("derive drift: %w", err)
	}
	return DeriveDrift(snap), nil
}

// DeriveDrift classifies drift from headline metrics alone.
func DeriveDrift(m models.MetricsSnapshot) models.DriftStatus {
	level := models.DriftLow
	if m.R2Value() < driftR2Threshold || m.ImprovementValue() < driftImprovementThreshold {
		level = models.DriftHigh
	}
	return models.DriftStatus{
		DriftRisk: level,
		Source:    "derived",
		Details: map[string]any{
			"r2":                  m.R2Value(),
			"improvement_percent": m.ImprovementValue(),
		},
	}
}

// RecentLogs returns the last limit prediction log entries. The log may be
// a JSON array or JSON lines. A missing log yields no entries.
func (p *FileProvider) RecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.logPath)
	if errors.Is(err, os.ErrNotExist) {
		return []models.LogEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prediction log: %w", err)
	}

	var entries []models.LogEntry
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode prediction log: %w", err)
		}
	} else {
		sc := bufio.NewScanner(bytes.NewReader(trimmed))
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		line := 0
		for sc.Scan() {
			line++
			raw := bytes.TrimSpace(sc.Bytes())
			if len(raw) == 0 {
				continue
			}
			var e models.LogEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				log.Warn().Err(err).Int("line", line).Str("path", p.logPath).Msg("Skipping malformed prediction log line")
				continue
			}
			entries = append(entries, e)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("scan prediction log: %w", err)
		}
	}
	return last(entries, limit), nil
}

// MetricsHistory returns the last limit historical snapshots. A missing
// history file yields no entries.
func (p *FileProvider) MetricsHistory(ctx context.Context, limit int) ([]models.MetricsSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.historyPath)
	if errors.Is(err, os.ErrNotExist) {
		return []models.MetricsSnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metrics history: %w", err)
	}
	var history []models.MetricsSnapshot
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode metrics history: %w", err)
	}
	return last(history, limit), nil
}

func last[T any](items []T, limit int) []T {
	if items == nil {
		items = []T{}
	}
	if limit > 0 && len(items) > limit {
		return items[len(items)-limit:]
	}
	return items
}
