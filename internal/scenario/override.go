package scenario

import "github.com/gridsight/control-plane/pkg/models"

// ApplyOverrides returns a copy of snapshot with the overrides applied.
// The input snapshot is never modified.
//
// Numeric overrides are written to both the flat and the nested fields.
// AccuracyDropPercent is applied last, relative to the r2 that results from
// any explicit r2 override. Values are not range-checked.
func ApplyOverrides(snapshot models.MetricsSnapshot, o models.ScenarioOverrides) models.MetricsSnapshot {
	out := snapshot.Clone()

	if o.R2 != nil {
		out.R2 = models.Float(*o.R2)
		out.Metrics.R2 = models.Float(*o.R2)
	}
	if o.MAE != nil {
		out.MAE = models.Float(*o.MAE)
		out.Metrics.MAE = models.Float(*o.MAE)
	}
	if o.RMSE != nil {
		out.Metrics.RMSE = models.Float(*o.RMSE)
	}
	if o.MAPE != nil {
		out.Metrics.MAPE = models.Float(*o.MAPE)
	}
	if o.ImprovementPercent != nil {
		out.Metrics.ImprovementPercent = models.Float(*o.ImprovementPercent)
	}
	if o.DriftRisk != "" {
		out.DriftRisk = o.DriftRisk
	}
	if o.AccuracyDropPercent != nil {
		r2 := models.Round(out.R2Value()*(1-*o.AccuracyDropPercent/100), 4)
		out.R2 = models.Float(r2)
		out.Metrics.R2 = models.Float(r2)
	}
	return out
}
