// Package agents implements the rule-based evaluators consulted by the
// orchestrator. Each evaluator is a pure function of a metrics snapshot and
// never fails: missing fields fall back to healthy defaults.
package agents

import (
	"github.com/gridsight/control-plane/internal/risk"
	"github.com/gridsight/control-plane/pkg/models"
)

// Evaluator produces one agent's verdict for a snapshot.
type Evaluator interface {
	Name() models.AgentName
	Evaluate(m models.MetricsSnapshot) models.Verdict
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc struct {
	Agent models.AgentName
	Fn    func(m models.MetricsSnapshot) models.Verdict
}

func (f EvaluatorFunc) Name() models.AgentName { return f.Agent }
func (f EvaluatorFunc) Evaluate(m models.MetricsSnapshot) models.Verdict { return f.Fn(m) }

// ── Ops ──────────────────────────────────────────────────────

// Ops rates operational health from rmse and r2.
func Ops(m models.MetricsSnapshot) models.OpsVerdict {
	switch {
	case m.RMSEValue() > 20:
		return models.OpsVerdict{Risk: models.SeverityHigh, Reason: "High RMSE indicates unstable predictions"}
	case m.R2Value() < 0.9:
		return models.OpsVerdict{Risk: models.SeverityMedium, Reason: "Low R2 indicates reduced accuracy"}
	default:
		return models.OpsVerdict{Risk: models.SeverityLow, Reason: "Model performing within operational thresholds"}
	}
}

// ── Finance ──────────────────────────────────────────────────

const (
	ImpactHigh   = "Significant revenue deviation risk, model accuracy critically degraded"
	ImpactMedium = "Moderate revenue risk, model performance below optimal"
	ImpactLow    = "Forecasting aligned with revenue targets"
)

// Finance rates revenue exposure from r2, drift, improvement and mae.
func Finance(m models.MetricsSnapshot) models.FinanceVerdict {
	r2 := m.R2Value()
	driftHigh := m.Drift() == models.DriftHigh

	switch {
	case r2 < 0.85 || (driftHigh && r2 < 0.90) || m.ImprovementValue() < 20:
		return models.FinanceVerdict{Risk: models.SeverityHigh, Impact: ImpactHigh}
	case r2 < 0.90 || driftHigh || m.MAEValue() > 5:
		return models.FinanceVerdict{Risk: models.SeverityMedium, Impact: ImpactMedium}
	default:
		return models.FinanceVerdict{Risk: models.SeverityLow, Impact: ImpactLow}
	}
}

// ── Risk ─────────────────────────────────────────────────────

// Risk scores the snapshot with the registry policy.
func Risk(m models.MetricsSnapshot) models.RiskVerdict {
	a := risk.Assess(m)
	return models.RiskVerdict{
		Level:                  a.Level,
		Score:                  a.Score,
		EstimatedFinancialRisk: a.EstimatedFinancialRisk,
		Factors:                a.Factors,
	}
}

// ── Executive ────────────────────────────────────────────────

const (
	StrategyRetrain  = "Consider retraining model within next cycle"
	StrategyContinue = "Continue deployment, schedule quarterly review"
)

// Strategy recommends retraining once r2 falls under 0.95.
func Strategy(m models.MetricsSnapshot) models.StrategyVerdict {
	if m.R2Value() < 0.95 {
		return models.StrategyVerdict{Recommendation: StrategyRetrain}
	}
	return models.StrategyVerdict{Recommendation: StrategyContinue}
}
