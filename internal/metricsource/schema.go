package metricsource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/gridsight/control-plane/pkg/models"
)

// DecodeReport decodes an evaluation report and validates it against the
// declared schema. Unknown top-level keys are tolerated; known keys must
// have the right type and a finite value.
func DecodeReport(data []byte) (models.MetricsSnapshot, error) {
	var snap models.MetricsSnapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&snap); err != nil {
		return models.MetricsSnapshot{}, fmt.Errorf("decode evaluation report: %w", err)
	}
	if err := Validate(snap); err != nil {
		return models.MetricsSnapshot{}, fmt.Errorf("evaluation report: %w", err)
	}
	return snap, nil
}

// Validate checks that every present metric is finite, error metrics are
// non-negative, and the drift level is known.
func Validate(m models.MetricsSnapshot) error {
	fields := []struct {
		name   string
		v      *float64
		nonNeg bool
	}{
		{"r2", m.R2, false},
		{"mae", m.MAE, true},
		{"metrics.r2", m.Metrics.R2, false},
		{"metrics.rmse", m.Metrics.RMSE, true},
		{"metrics.mae", m.Metrics.MAE, true},
		{"metrics.mape", m.Metrics.MAPE, true},
		{"metrics.improvement_percent", m.Metrics.ImprovementPercent, false},
	}
	for _, f := range fields {
		if f.v == nil {
			continue
		}
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return fmt.Errorf("%s is not finite", f.name)
		}
		if f.nonNeg && *f.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %v", f.name, *f.v)
		}
	}
	if m.DriftRisk != "" && !validDrift(m.DriftRisk) {
		return fmt.Errorf("invalid drift_risk %q", m.DriftRisk)
	}
	return nil
}

func validDrift(d models.DriftLevel) bool {
	switch d {
	case models.DriftLow, models.DriftMedium, models.DriftHigh:
		return true
	}
	return false
}
