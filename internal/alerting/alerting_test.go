package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsight/control-plane/internal/aggregator"
	"github.com/gridsight/control-plane/internal/logstore"
	"github.com/gridsight/control-plane/internal/telemetry"
	"github.com/gridsight/control-plane/pkg/models"
)

func stable() *models.AggregatedDecision {
	return &models.AggregatedDecision{
		FinalDecision: aggregator.DecisionStable,
		Priority:      models.PriorityP2,
		Confidence:    models.ConfidenceResult{Score: 1, Label: models.ConfidenceHigh},
		AgentOutputs: map[models.AgentName]models.Verdict{
			models.AgentOps:     models.OpsVerdict{Risk: models.SeverityLow},
			models.AgentFinance: models.FinanceVerdict{Risk: models.SeverityLow},
			models.AgentRisk:    models.RiskVerdict{Level: models.RiskLow},
		},
	}
}

func TestDetermineSeverity(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(d *models.AggregatedDecision)
		want     models.Priority
		contains string
	}{
		{"nominal", func(d *models.AggregatedDecision) {}, models.PriorityP2, "nominal"},
		{"critical decision", func(d *models.AggregatedDecision) {
			d.FinalDecision = aggregator.DecisionCritical
			d.Priority = models.PriorityP0
		}, models.PriorityP0, "Final decision is CRITICAL"},
		{"registry loss", func(d *models.AggregatedDecision) {
			d.AgentOutputs[models.AgentRisk] = models.RiskVerdict{Level: models.RiskMedium, EstimatedFinancialRisk: 500_000}
		}, models.PriorityP0, "₹500,000 exceeds ₹500,000"},
		{"simulation loss", func(d *models.AggregatedDecision) {
			d.Simulation = &models.SimulationInfo{Risk: models.RiskAssessment{Level: models.RiskHigh, EstimatedFinancialRisk: 650_000}}
		}, models.PriorityP0, "₹650,000"},
		{"simulation critical", func(d *models.AggregatedDecision) {
			d.Simulation = &models.SimulationInfo{Risk: models.RiskAssessment{Level: models.RiskCritical}}
		}, models.PriorityP0, "Risk assessment is CRITICAL"},
		{"drift high with r2 factor", func(d *models.AggregatedDecision) {
			d.DriftStatus = &models.DriftStatus{DriftRisk: models.DriftHigh}
			d.Simulation = &models.SimulationInfo{Risk: models.RiskAssessment{
				Level:   models.RiskHigh,
				Factors: []string{"R2=0.84 is below 0.85 (CRITICAL threshold)"},
			}}
		}, models.PriorityP0, "Drift HIGH and R2 below 0.85"},
		{"finance high", func(d *models.AggregatedDecision) {
			d.AgentOutputs[models.AgentFinance] = models.FinanceVerdict{Risk: models.SeverityHigh}
		}, models.PriorityP1, "Finance agent"},
		{"ops medium", func(d *models.AggregatedDecision) {
			d.AgentOutputs[models.AgentOps] = models.OpsVerdict{Risk: models.SeverityMedium}
		}, models.PriorityP1, "Operational risk is Medium"},
		{"registry high", func(d *models.AggregatedDecision) {
			d.AgentOutputs[models.AgentRisk] = models.RiskVerdict{Level: models.RiskHigh}
		}, models.PriorityP1, "Risk assessment is HIGH"},
		{"low confidence", func(d *models.AggregatedDecision) {
			d.Confidence.Label = models.ConfidenceLow
		}, models.PriorityP1, "Confidence is LOW"},
		{"upstream p0", func(d *models.AggregatedDecision) {
			d.Priority = models.PriorityP0
		}, models.PriorityP1, "Priority escalated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := stable()
			tt.mutate(d)
			got, reason := DetermineSeverity(d)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, reason, tt.contains)
		})
	}
}

func TestDetermineSeverity_CriticalDecisionAlwaysP0(t *testing.T) {
	for _, score := range []float64{0, 0.1, 0.25, 0.39} {
		decision, priority := aggregator.Decide(score)
		d := stable()
		d.FinalDecision, d.Priority = decision, priority
		got, _ := DetermineSeverity(d)
		assert.Equal(t, models.PriorityP0, got, "score %v", score)
	}
}

func TestDetermineSeverity_FirstMatchWins(t *testing.T) {
	d := stable()
	d.AgentOutputs[models.AgentFinance] = models.FinanceVerdict{Risk: models.SeverityHigh}
	d.AgentOutputs[models.AgentOps] = models.OpsVerdict{Risk: models.SeverityHigh}
	_, reason := DetermineSeverity(d)
	assert.Equal(t, "Finance agent flagged HIGH financial risk", reason)
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []models.AlertRecord
}

func (n *recordingNotifier) DispatchAlert(_ context.Context, a models.AlertRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
}

type failingLog struct{ logstore.Log[models.AlertRecord] }

func (failingLog) Append(context.Context, models.AlertRecord) error { return errors.New("disk full") }

func TestEngine_Evaluate(t *testing.T) {
	ctx := context.Background()
	alerts := logstore.NewMemoryLog[models.AlertRecord](50)
	notifier := &recordingNotifier{}
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	e := NewEngine(alerts, notifier, metrics)

	d := stable()
	d.FinalDecision, d.Priority = aggregator.DecisionCritical, models.PriorityP0
	out := e.Evaluate(ctx, d, 12)

	assert.True(t, out.Triggered)
	assert.Equal(t, models.PriorityP0, out.Severity)
	assert.Equal(t, models.AlertCritical, out.AlertType)
	assert.Len(t, out.AlertID, 8)

	stored, err := alerts.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, out.AlertID, stored[0].ID)
	assert.Equal(t, 12, stored[0].PlantID)
	assert.Equal(t, models.PriorityP0, stored[0].Priority)
	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Alerts.WithLabelValues("P0")))

	d = stable()
	d.Confidence.Label = models.ConfidenceLow
	out = e.Evaluate(ctx, d, 12)
	assert.Equal(t, models.AlertWarning, out.AlertType)

	out = e.Evaluate(ctx, stable(), 12)
	assert.False(t, out.Triggered)
	assert.Equal(t, models.AlertNone, out.AlertType)

	stored, err = alerts.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 2, "P2 is informational only")
	assert.Len(t, notifier.alerts, 2)
}

func TestEngine_PersistFailureDoesNotChangeOutcome(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	e := NewEngine(failingLog{}, nil, metrics)

	d := stable()
	d.FinalDecision = aggregator.DecisionCritical
	out := e.Evaluate(context.Background(), d, 1)

	assert.True(t, out.Triggered)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LogWriteFailures.WithLabelValues("alerts")))
}
