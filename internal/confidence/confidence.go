// Package confidence scores how much a decision can be trusted, from model
// health, drift, and whether the agents agree.
package confidence

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gridsight/control-plane/pkg/models"
)

// Compute scores the verdicts of the agents that ran. Drift comes from the
// snapshot when set, otherwise from the provider drift status.
//
// Breakdown always holds exactly three lines, in order: r2, drift, agreement.
func Compute(verdicts map[models.AgentName]models.Verdict, drift *models.DriftStatus, m models.MetricsSnapshot) models.ConfidenceResult {
	score := 1.0
	breakdown := make([]string, 0, 3)

	r2 := m.R2Value()
	r2s := strconv.FormatFloat(r2, 'f', -1, 64)
	switch {
	case r2 < 0.85:
		score -= 0.40
		breakdown = append(breakdown, fmt.Sprintf("R2=%s: below 0.85 threshold, -0.40", r2s))
	case r2 < 0.90:
		score -= 0.25
		breakdown = append(breakdown, fmt.Sprintf("R2=%s: below 0.90, -0.25", r2s))
	case r2 < 0.95:
		score -= 0.10
		breakdown = append(breakdown, fmt.Sprintf("R2=%s: below 0.95, -0.10", r2s))
	default:
		breakdown = append(breakdown, fmt.Sprintf("R2=%s: excellent, no penalty", r2s))
	}

	switch effectiveDrift(drift, m) {
	case models.DriftHigh:
		score -= 0.40
		breakdown = append(breakdown, "Drift risk HIGH: -0.40")
	case models.DriftMedium:
		score -= 0.15
		breakdown = append(breakdown, "Drift risk MEDIUM: -0.15")
	default:
		breakdown = append(breakdown, "Drift risk LOW: no penalty")
	}

	flagged := disagreeing(verdicts)
	switch {
	case len(flagged) >= 2:
		score -= 0.15
		breakdown = append(breakdown, fmt.Sprintf("Multiple agents flagged risk (%s): -0.15", joinAgents(flagged)))
	case len(flagged) == 1:
		score -= 0.05
		breakdown = append(breakdown, fmt.Sprintf("Single agent flagged risk (%s): -0.05", flagged[0]))
	default:
		breakdown = append(breakdown, "All agents agree: no risk penalty")
	}

	score = models.Round(max(0, min(1, score)), 2)
	return models.ConfidenceResult{
		Score:             score,
		Label:             Label(score),
		Breakdown:         breakdown,
		DisagreeingAgents: flagged,
	}
}

// Label buckets a score: >=0.85 HIGH, >=0.65 MEDIUM, else LOW.
func Label(score float64) models.ConfidenceLabel {
	switch {
	case score >= 0.85:
		return models.ConfidenceHigh
	case score >= 0.65:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func effectiveDrift(drift *models.DriftStatus, m models.MetricsSnapshot) models.DriftLevel {
	if m.DriftRisk != "" {
		return m.DriftRisk
	}
	if drift != nil && drift.DriftRisk != "" {
		return drift.DriftRisk
	}
	return models.DriftLow
}

// disagreeing lists agents raising a high-severity flag. A CRITICAL risk
// level is not counted here; it is handled by alerting.
func disagreeing(verdicts map[models.AgentName]models.Verdict) []models.AgentName {
	flagged := []models.AgentName{}
	if v, ok := verdicts[models.AgentOps].(models.OpsVerdict); ok && v.Risk == models.SeverityHigh {
		flagged = append(flagged, models.AgentOps)
	}
	if v, ok := verdicts[models.AgentFinance].(models.FinanceVerdict); ok && v.Risk == models.SeverityHigh {
		flagged = append(flagged, models.AgentFinance)
	}
	if v, ok := verdicts[models.AgentRisk].(models.RiskVerdict); ok && v.Level == models.RiskHigh {
		flagged = append(flagged, models.AgentRisk)
	}
	return flagged
}

func joinAgents(agents []models.AgentName) string {
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}
