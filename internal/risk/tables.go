package risk

import (
	"fmt"

	"github.com/gridsight/control-plane/pkg/models"
)

func r2Below(limit float64) func(models.MetricsSnapshot) bool {
	return func(m models.MetricsSnapshot) bool { return m.R2Value() < limit }
}

func maeAbove(limit float64) func(models.MetricsSnapshot) bool {
	return func(m models.MetricsSnapshot) bool { return m.MAEValue() > limit }
}

func driftIs(level models.DriftLevel) func(models.MetricsSnapshot) bool {
	return func(m models.MetricsSnapshot) bool { return m.Drift() == level }
}

func text(format string, value func(models.MetricsSnapshot) float64) func(models.MetricsSnapshot) string {
	return func(m models.MetricsSnapshot) string { return fmt.Sprintf(format, fmtFloat(value(m))) }
}

func fixed(s string) func(models.MetricsSnapshot) string {
	return func(models.MetricsSnapshot) string { return s }
}

var (
	r2Of          = models.MetricsSnapshot.R2Value
	maeOf         = models.MetricsSnapshot.MAEValue
	rmseOf        = models.MetricsSnapshot.RMSEValue
	mapeOf        = models.MetricsSnapshot.MAPEValue
	improvementOf = models.MetricsSnapshot.ImprovementValue
)

// RegistryPolicy is the additive point model used by the live risk agent.
// Points set the level; the loss bands are an independent estimate.
var RegistryPolicy = Policy{
	Name: "registry",
	Factors: []Factor{
		{
			Name: "r2",
			Tiers: []Tier{
				{When: r2Below(0.85), Points: 4, Loss: 500000, Explain: text("R2=%s below 0.85 (+4)", r2Of)},
				{When: r2Below(0.90), Points: 3, Loss: 200000, Explain: text("R2=%s below 0.90 (+3)", r2Of)},
				{When: r2Below(0.95), Points: 1, Loss: 50000, Explain: text("R2=%s below 0.95 (+1)", r2Of)},
			},
		},
		{
			Name: "drift",
			Tiers: []Tier{
				{When: driftIs(models.DriftHigh), Points: 3, Loss: 150000, Explain: fixed("Drift HIGH (+3)")},
				{When: driftIs(models.DriftMedium), Points: 1, Loss: 50000, Explain: fixed("Drift MEDIUM (+1)")},
			},
		},
		{
			Name: "mape",
			Tiers: []Tier{
				{When: func(m models.MetricsSnapshot) bool { return m.MAPEValue() > 5 }, Points: 2, Explain: text("MAPE=%s above 5 (+2)", mapeOf)},
			},
		},
		{
			Name: "rmse",
			Tiers: []Tier{
				{When: func(m models.MetricsSnapshot) bool { return m.RMSEValue() > 10 }, Points: 2, Explain: text("RMSE=%s above 10 (+2)", rmseOf)},
			},
		},
		{
			Name: "improvement",
			Tiers: []Tier{
				{When: func(m models.MetricsSnapshot) bool { return m.ImprovementValue() < 20 }, Points: 3, Explain: text("Improvement=%s%% below 20%% (+3)", improvementOf)},
			},
		},
		{
			Name: "mae",
			Tiers: []Tier{
				{When: maeAbove(5), Loss: 300000, Explain: text("MAE=%s above 5", maeOf)},
				{When: maeAbove(3), Loss: 100000, Explain: text("MAE=%s above 3", maeOf)},
			},
		},
	},
	Thresholds: []Threshold{
		{MinScore: 7, Level: models.RiskCritical},
		{MinScore: 5, Level: models.RiskHigh},
		{MinScore: 3, Level: models.RiskMedium},
	},
}

// SimulationPolicy is the floor-based model used to recalculate risk for
// hypothetical snapshots.
var SimulationPolicy = Policy{
	Name: "simulation",
	Factors: []Factor{
		{
			Name: "r2",
			Tiers: []Tier{
				{When: r2Below(0.85), Level: models.RiskCritical, Priority: models.PriorityP0, Loss: 500000,
					Explain: text("R2=%s is below 0.85 (CRITICAL threshold)", r2Of)},
				{When: r2Below(0.90), Level: models.RiskHigh, Priority: models.PriorityP1, Loss: 200000,
					Explain: text("R2=%s is below 0.90 (HIGH threshold)", r2Of)},
				{When: r2Below(0.95), Level: models.RiskMedium, Priority: models.PriorityP1, Loss: 50000,
					Explain: text("R2=%s is below 0.95 (MEDIUM threshold)", r2Of)},
			},
			Otherwise: text("R2=%s is healthy", r2Of),
		},
		{
			Name: "drift",
			Tiers: []Tier{
				{When: driftIs(models.DriftHigh), Level: models.RiskHigh, Priority: models.PriorityP1, Loss: 150000,
					Explain: fixed("Drift is HIGH, risk escalated")},
				{When: driftIs(models.DriftMedium), Level: models.RiskMedium, Loss: 50000,
					Explain: fixed("Drift is MEDIUM, moderate concern")},
			},
			Otherwise: fixed("Drift is LOW, no escalation"),
		},
		{
			Name: "mae",
			Tiers: []Tier{
				{When: maeAbove(5), Loss: 300000, Explain: text("MAE=%s is critically high (>5)", maeOf)},
				{When: maeAbove(3), Loss: 100000, Explain: text("MAE=%s is elevated (>3)", maeOf)},
			},
			Otherwise: text("MAE=%s is acceptable", maeOf),
		},
	},
}

// Recalculate scores a (possibly overridden) snapshot with SimulationPolicy.
func Recalculate(m models.MetricsSnapshot) models.RiskAssessment {
	return SimulationPolicy.Evaluate(m)
}

// Assess scores a snapshot with RegistryPolicy.
func Assess(m models.MetricsSnapshot) models.RiskAssessment {
	return RegistryPolicy.Evaluate(m)
}
