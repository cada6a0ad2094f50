// Package alerting classifies a decision into P0/P1/P2 and fires alerts.
package alerting

import (
	"fmt"
	"strings"

	"github.com/gridsight/control-plane/internal/aggregator"
	"github.com/gridsight/control-plane/pkg/models"
)

// CriticalLossThreshold is the estimated loss, in rupees, at or above which
// an alert is always P0.
const CriticalLossThreshold = 500_000

// DetermineSeverity applies the ordered severity rules to a decision. The
// first matching rule wins and its reason is returned alongside.
func DetermineSeverity(d *models.AggregatedDecision) (models.Priority, string) {
	var (
		registryLevel = models.RiskLow
		registryLoss  int
		simLevel      = models.RiskLow
		simLoss       int
		simFactors    []string
	)
	if rv, ok := d.Risk(); ok {
		registryLevel = rv.Level
		registryLoss = rv.EstimatedFinancialRisk
	}
	if d.Simulation != nil {
		simLevel = d.Simulation.Risk.Level
		simLoss = d.Simulation.Risk.EstimatedFinancialRisk
		simFactors = d.Simulation.Risk.Factors
	}

	// P0
	if strings.Contains(strings.ToUpper(d.FinalDecision), "CRITICAL") {
		return models.PriorityP0, "Final decision is CRITICAL: " + d.FinalDecision
	}
	if loss := max(registryLoss, simLoss); loss >= CriticalLossThreshold {
		return models.PriorityP0, fmt.Sprintf("Estimated financial risk %s exceeds %s threshold",
			aggregator.Rupees(loss), aggregator.Rupees(CriticalLossThreshold))
	}
	if registryLevel == models.RiskCritical || simLevel == models.RiskCritical {
		return models.PriorityP0, "Risk assessment is CRITICAL"
	}
	if driftOf(d) == models.DriftHigh {
		for _, f := range simFactors {
			if strings.Contains(f, "below 0.85") {
				return models.PriorityP0, "Drift HIGH and R2 below 0.85 threshold"
			}
		}
	}

	// P1
	if fv, ok := d.Finance(); ok && fv.Risk == models.SeverityHigh {
		return models.PriorityP1, "Finance agent flagged HIGH financial risk"
	}
	if ov, ok := d.Ops(); ok && (ov.Risk == models.SeverityMedium || ov.Risk == models.SeverityHigh) {
		return models.PriorityP1, fmt.Sprintf("Operational risk is %s", ov.Risk)
	}
	if registryLevel == models.RiskHigh || registryLevel == models.RiskMedium {
		return models.PriorityP1, fmt.Sprintf("Risk assessment is %s", registryLevel)
	}
	if d.Confidence.Label == models.ConfidenceLow {
		return models.PriorityP1, "Confidence is LOW, uncertain prediction quality"
	}
	if d.Priority == models.PriorityP0 {
		return models.PriorityP1, "Priority escalated to P0 by aggregator"
	}

	return models.PriorityP2, "All systems nominal, no escalation needed"
}

// driftOf prefers the attached drift status and falls back to the
// simulated snapshot.
func driftOf(d *models.AggregatedDecision) models.DriftLevel {
	if d.DriftStatus != nil && d.DriftStatus.DriftRisk != "" {
		return d.DriftStatus.DriftRisk
	}
	if d.Simulation != nil {
		return d.Simulation.SimulatedMetrics.Drift()
	}
	return models.DriftLow
}
