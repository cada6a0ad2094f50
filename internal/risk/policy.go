// Package risk scores a metrics snapshot against an ordered rule table.
//
// Both the live risk agent and the simulation recalculator evaluate through
// the same Policy engine; they differ only in the tables they load.
package risk

import (
	"strconv"

	"github.com/gridsight/control-plane/pkg/models"
)

// Tier is one rule inside a Factor. Level and Priority are floors: they can
// raise the running assessment but never lower it.
type Tier struct {
	When     func(m models.MetricsSnapshot) bool
	Points   int
	Level    models.RiskLevel
	Priority models.Priority
	Loss     int
	Explain  func(m models.MetricsSnapshot) string
}

// Factor groups mutually exclusive tiers for one metric. The first matching
// tier applies; Otherwise explains the untriggered case.
type Factor struct {
	Name      string
	Tiers     []Tier
	Otherwise func(m models.MetricsSnapshot) string
}

// Threshold maps a minimum point score to a level.
type Threshold struct {
	MinScore int
	Level    models.RiskLevel
}

// Policy is an ordered list of factors plus an optional score scale.
type Policy struct {
	Name       string
	Factors    []Factor
	Thresholds []Threshold // descending MinScore
}

// Evaluate runs every factor in order and returns the combined assessment.
// Factor explanations keep evaluation order.
func (p Policy) Evaluate(m models.MetricsSnapshot) models.RiskAssessment {
	out := models.RiskAssessment{
		Level:    models.RiskLow,
		Priority: models.PriorityP2,
		Factors:  []string{},
	}

	for _, f := range p.Factors {
		matched := false
		for _, t := range f.Tiers {
			if !t.When(m) {
				continue
			}
			matched = true
			out.Score += t.Points
			out.EstimatedFinancialRisk += t.Loss
			out.Level = out.Level.Max(t.Level)
			out.Priority = out.Priority.Escalate(t.Priority)
			if t.Explain != nil {
				out.Factors = append(out.Factors, t.Explain(m))
			}
			break
		}
		if !matched && f.Otherwise != nil {
			out.Factors = append(out.Factors, f.Otherwise(m))
		}
	}

	for _, th := range p.Thresholds {
		if out.Score >= th.MinScore {
			out.Level = out.Level.Max(th.Level)
			break
		}
	}
	return out
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
