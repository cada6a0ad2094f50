// Package aggregator folds agent verdicts and the confidence score into a
// single prioritized decision.
package aggregator

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/gridsight/control-plane/pkg/models"
)

// Final decision strings.
const (
	DecisionCritical = "CRITICAL — Immediate Action Required"
	DecisionWarning  = "WARNING — Monitor Closely"
	DecisionStable   = "STABLE — System operating normally"
)

// Input is everything the aggregator needs from earlier stages.
type Input struct {
	Verdicts    map[models.AgentName]models.Verdict
	Intent      models.IntentResult
	Confidence  models.ConfidenceResult
	DriftStatus *models.DriftStatus
	Simulation  bool
}

// Decide maps a confidence score to the final decision and priority.
func Decide(score float64) (string, models.Priority) {
	switch {
	case score < 0.4:
		return DecisionCritical, models.PriorityP0
	case score < 0.7:
		return DecisionWarning, models.PriorityP1
	default:
		return DecisionStable, models.PriorityP2
	}
}

// Aggregate builds the decision. Only verdicts from selected agents are
// surfaced; drift status is attached whenever the risk agent is selected.
func Aggregate(in Input) *models.AggregatedDecision {
	decision, priority := Decide(in.Confidence.Score)

	outputs := make(map[models.AgentName]models.Verdict, len(in.Intent.SelectedAgents))
	for _, agent := range in.Intent.SelectedAgents {
		if v, ok := in.Verdicts[agent]; ok {
			outputs[agent] = v
		}
	}

	d := &models.AggregatedDecision{
		FinalDecision:  decision,
		Priority:       priority,
		Confidence:     in.Confidence,
		AgentOutputs:   outputs,
		SimulationMode: in.Simulation,
		Routing:        in.Intent,
	}
	if in.Intent.Selected(models.AgentRisk) {
		drift := models.DriftStatus{DriftRisk: models.DriftLow}
		if in.DriftStatus != nil {
			drift = *in.DriftStatus
		}
		d.DriftStatus = &drift
	}
	d.ExecutiveSummary = ExecutiveSummary(outputs, decision)
	return d
}

// ExecutiveSummary renders the pipe-separated one-line summary in fixed
// agent order, followed by the decision.
func ExecutiveSummary(outputs map[models.AgentName]models.Verdict, decision string) string {
	parts := make([]string, 0, len(models.AllAgents)+1)
	for _, agent := range models.AllAgents {
		v, ok := outputs[agent]
		if !ok {
			continue
		}
		switch v := v.(type) {
		case models.OpsVerdict:
			parts = append(parts, fmt.Sprintf("Operations: %s risk (%s)", v.Risk, v.Reason))
		case models.FinanceVerdict:
			parts = append(parts, fmt.Sprintf("Finance: %s risk (%s)", v.Risk, v.Impact))
		case models.RiskVerdict:
			parts = append(parts, fmt.Sprintf("Risk Level: %s (Est. Loss: %s)", v.Level, Rupees(v.EstimatedFinancialRisk)))
		case models.StrategyVerdict:
			parts = append(parts, "Strategy: "+v.Recommendation)
		}
	}
	parts = append(parts, "Decision: "+decision)
	return strings.Join(parts, " | ")
}

// Rupees formats an amount with thousands separators, e.g. ₹500,000.
func Rupees(amount int) string {
	return "₹" + humanize.Comma(int64(amount))
}
