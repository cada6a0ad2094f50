// Package intent routes an operator question to the agents that should
// answer it, using a static keyword table.
package intent

import (
	"strings"

	"github.com/gridsight/control-plane/internal/scenario"
	"github.com/gridsight/control-plane/pkg/models"
)

// Table maps each agent to the keywords that select it.
type Table map[models.AgentName][]string

// DefaultTable is the built-in routing table.
var DefaultTable = Table{
	models.AgentRisk:      {"drift", "risk", "anomaly", "degradation", "unstable"},
	models.AgentFinance:   {"financial", "revenue", "loss", "cost", "money", "roi", "budget"},
	models.AgentExecutive: {"summary", "executive", "overview", "dashboard", "strategy", "recommend"},
	models.AgentOps:       {"operational", "performance", "rmse", "accuracy", "model", "metric", "r2"},
}

// Classifier matches questions against a keyword table.
type Classifier struct {
	table Table
}

// NewClassifier builds a classifier. Agents missing from table keep their
// default keywords; a nil table yields the default classifier.
func NewClassifier(table Table) *Classifier {
	merged := make(Table, len(DefaultTable))
	for agent, kws := range DefaultTable {
		merged[agent] = kws
	}
	for agent, kws := range table {
		if _, known := DefaultTable[agent]; !known || len(kws) == 0 {
			continue
		}
		lowered := make([]string, 0, len(kws))
		for _, kw := range kws {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				lowered = append(lowered, kw)
			}
		}
		merged[agent] = lowered
	}
	return &Classifier{table: merged}
}

// Classify selects agents for question. Hypothetical questions always go to
// every agent; questions with no keyword hit are broadcast.
func (c *Classifier) Classify(question string) models.IntentResult {
	q := strings.ToLower(question)
	result := models.IntentResult{
		DetectedIntents: []models.IntentMatch{},
		IsHypothetical:  scenario.IsHypothetical(q),
	}

	var matched []models.AgentName
	for _, agent := range models.AllAgents {
		hit := false
		for _, kw := range c.table[agent] {
			if strings.Contains(q, kw) {
				result.DetectedIntents = append(result.DetectedIntents, models.IntentMatch{Keyword: kw, RoutedTo: agent})
				hit = true
			}
		}
		if hit {
			matched = append(matched, agent)
		}
	}

	switch {
	case result.IsHypothetical:
		result.SelectedAgents = append([]models.AgentName(nil), models.AllAgents...)
		result.RoutingType = models.RoutingSimulation
	case len(matched) == 0:
		result.SelectedAgents = append([]models.AgentName(nil), models.AllAgents...)
		result.RoutingType = models.RoutingBroadcast
	default:
		result.SelectedAgents = matched
		result.RoutingType = models.RoutingTargeted
	}
	result.AgentCount = len(result.SelectedAgents)
	return result
}
