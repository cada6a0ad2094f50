package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridsight/control-plane/internal/agents"
	"github.com/gridsight/control-plane/pkg/models"
)

func allVerdicts(m models.MetricsSnapshot) map[models.AgentName]models.Verdict {
	return map[models.AgentName]models.Verdict{
		models.AgentOps:       agents.Ops(m),
		models.AgentFinance:   agents.Finance(m),
		models.AgentRisk:      agents.Risk(m),
		models.AgentExecutive: agents.Strategy(m),
	}
}

func withR2(r2 float64) models.MetricsSnapshot {
	return models.MetricsSnapshot{Metrics: models.EvaluationMetrics{R2: models.Float(r2)}}
}

func TestCompute_Healthy(t *testing.T) {
	m := withR2(0.97)
	got := Compute(allVerdicts(m), &models.DriftStatus{DriftRisk: models.DriftLow}, m)

	assert.Equal(t, 1.0, got.Score)
	assert.Equal(t, models.ConfidenceHigh, got.Label)
	assert.Equal(t, []string{
		"R2=0.97: excellent, no penalty",
		"Drift risk LOW: no penalty",
		"All agents agree: no risk penalty",
	}, got.Breakdown)
	assert.Empty(t, got.DisagreeingAgents)
}

func TestCompute_Penalties(t *testing.T) {
	m := models.MetricsSnapshot{Metrics: models.EvaluationMetrics{R2: models.Float(0.80), RMSE: models.Float(25)}}
	got := Compute(allVerdicts(m), nil, m)

	// -0.40 for r2, -0.15 for ops, finance and risk all flagging.
	assert.Equal(t, 0.45, got.Score)
	assert.Equal(t, models.ConfidenceLow, got.Label)
	assert.Equal(t, []models.AgentName{models.AgentOps, models.AgentFinance, models.AgentRisk}, got.DisagreeingAgents)
	assert.Len(t, got.Breakdown, 3)
}

func TestCompute_DriftSource(t *testing.T) {
	m := withR2(0.97)

	got := Compute(nil, &models.DriftStatus{DriftRisk: models.DriftMedium}, m)
	assert.Equal(t, 0.85, got.Score, "provider drift used when snapshot has none")

	m.DriftRisk = models.DriftHigh
	got = Compute(nil, &models.DriftStatus{DriftRisk: models.DriftLow}, m)
	assert.Equal(t, 0.6, got.Score, "snapshot drift takes precedence")
	assert.Equal(t, "Drift risk HIGH: -0.40", got.Breakdown[1])
}

func TestCompute_SingleDissent(t *testing.T) {
	m := withR2(0.97)
	verdicts := map[models.AgentName]models.Verdict{
		models.AgentOps: models.OpsVerdict{Risk: models.SeverityHigh},
	}
	got := Compute(verdicts, nil, m)
	assert.Equal(t, 0.95, got.Score)
	assert.Equal(t, "Single agent flagged risk (ops_agent): -0.05", got.Breakdown[2])
}

func TestCompute_CriticalRiskNotCountedAsDissent(t *testing.T) {
	verdicts := map[models.AgentName]models.Verdict{
		models.AgentRisk: models.RiskVerdict{Level: models.RiskCritical},
	}
	got := Compute(verdicts, nil, withR2(0.97))
	assert.Empty(t, got.DisagreeingAgents)
}

func TestCompute_ClampedAtZero(t *testing.T) {
	m := models.MetricsSnapshot{
		DriftRisk: models.DriftHigh,
		Metrics:   models.EvaluationMetrics{R2: models.Float(0.5), RMSE: models.Float(30)},
	}
	got := Compute(allVerdicts(m), nil, m)
	assert.GreaterOrEqual(t, got.Score, 0.0)
	assert.Equal(t, models.ConfidenceLow, got.Label)
}

func TestCompute_MonotonicInR2(t *testing.T) {
	prev := 2.0
	for _, r2 := range []float64{0.96, 0.94, 0.89, 0.84} {
		m := withR2(r2)
		got := Compute(allVerdicts(m), nil, m)
		assert.LessOrEqual(t, got.Score, prev, "score increased at r2=%v", r2)
		prev = got.Score
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, models.ConfidenceHigh, Label(0.85))
	assert.Equal(t, models.ConfidenceMedium, Label(0.84))
	assert.Equal(t, models.ConfidenceMedium, Label(0.65))
	assert.Equal(t, models.ConfidenceLow, Label(0.64))
}
