package summary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gridsight/control-plane/pkg/models"
)

// PromptInput is the context handed to the summary model.
type PromptInput struct {
	Question   string
	Decision   *models.AggregatedDecision
	RecentLogs []models.LogEntry
	History    []models.MetricsSnapshot
}

// BuildPrompt renders the summary prompt. Sections with no data are omitted.
func BuildPrompt(in PromptInput) string {
	d := in.Decision
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n\n", in.Question)
	fmt.Fprintf(&b, "Executive Summary: %s\n", d.ExecutiveSummary)
	fmt.Fprintf(&b, "Final Decision: %s\n", d.FinalDecision)
	fmt.Fprintf(&b, "Priority: %s\n", d.Priority)
	fmt.Fprintf(&b, "Confidence: %.2f (%s)\n", d.Confidence.Score, d.Confidence.Label)
	if d.SimulationMode {
		b.WriteString("Mode: hypothetical scenario simulation\n")
	}

	outputs, _ := json.MarshalIndent(d.AgentOutputs, "", "  ")
	fmt.Fprintf(&b, "Agent Outputs: %s\n", outputs)

	if len(in.History) > 0 {
		b.WriteString("\nMetrics History:\n")
		for _, h := range in.History {
			label := h.EvaluatedAt
			if label == "" {
				label = "-"
			}
			fmt.Fprintf(&b, "- %s: r2=%.4f rmse=%.2f mae=%.2f\n", label, h.R2Value(), h.RMSEValue(), h.MAEValue())
		}
	}

	if len(in.RecentLogs) > 0 {
		logs, _ := json.Marshal(in.RecentLogs)
		fmt.Fprintf(&b, "\nRecent Prediction Logs: %s\n", logs)
	}

	b.WriteString("\nExplain the decision for a plant operator in three sentences or fewer.")
	return b.String()
}
