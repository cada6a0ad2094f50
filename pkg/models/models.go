package models

import (
	"math"
	"time"
)

// ── Levels & Priorities ──────────────────────────────────────

// DriftLevel is the drift classification reported by the drift detector.
type DriftLevel string

const (
	DriftLow    DriftLevel = "LOW"
	DriftMedium DriftLevel = "MEDIUM"
	DriftHigh   DriftLevel = "HIGH"
)

// Severity is the three-tier rating used by the ops and finance agents.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// RiskLevel is the four-tier rating produced by the risk policy engine.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Rank orders risk levels so floors can be compared. Unknown levels rank as LOW.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// Max returns the more severe of two levels.
func (l RiskLevel) Max(other RiskLevel) RiskLevel {
	if other.Rank() > l.Rank() {
		return other
	}
	if l == "" {
		return RiskLow
	}
	return l
}

// Priority is the P0/P1/P2 escalation tier. P0 is the most urgent.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

// Urgency returns 2 for P0, 1 for P1 and 0 otherwise.
func (p Priority) Urgency() int {
	switch p {
	case PriorityP0:
		return 2
	case PriorityP1:
		return 1
	default:
		return 0
	}
}

// Escalate returns the more urgent of two priorities.
func (p Priority) Escalate(other Priority) Priority {
	if other.Urgency() > p.Urgency() {
		return other
	}
	if p == "" {
		return PriorityP2
	}
	return p
}

// ── Metrics Snapshot ─────────────────────────────────────────

// EvaluationMetrics is the nested metrics block of a model evaluation report.
type EvaluationMetrics struct {
	R2                 *float64 `json:"r2,omitempty" yaml:"r2,omitempty"`
	RMSE               *float64 `json:"rmse,omitempty" yaml:"rmse,omitempty"`
	MAE                *float64 `json:"mae,omitempty" yaml:"mae,omitempty"`
	MAPE               *float64 `json:"mape,omitempty" yaml:"mape,omitempty"`
	ImprovementPercent *float64 `json:"improvement_percent,omitempty" yaml:"improvement_percent,omitempty"`
}

// MetricsSnapshot is one evaluation record for the deployed model.
//
// The flat R2, MAE and DriftRisk fields are written by simulation overrides
// and take precedence over the nested Metrics block when both are present.
// Any field may be absent; accessors fall back to healthy defaults.
type MetricsSnapshot struct {
	Model       string            `json:"model,omitempty" yaml:"model,omitempty"`
	EvaluatedAt string            `json:"evaluated_at,omitempty" yaml:"evaluated_at,omitempty"`
	R2          *float64          `json:"r2,omitempty" yaml:"r2,omitempty"`
	MAE         *float64          `json:"mae,omitempty" yaml:"mae,omitempty"`
	DriftRisk   DriftLevel        `json:"drift_risk,omitempty" yaml:"drift_risk,omitempty"`
	Metrics     EvaluationMetrics `json:"metrics" yaml:"metrics"`
}

// Healthy defaults used when a field is missing from a snapshot.
const (
	DefaultR2          = 1.0
	DefaultMAE         = 0.0
	DefaultRMSE        = 0.0
	DefaultMAPE        = 0.0
	DefaultImprovement = 100.0
)

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

func firstOf(fallback float64, vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return fallback
}

// R2Value resolves r2: flat field, nested field, then 1.0.
func (m MetricsSnapshot) R2Value() float64 { return firstOf(DefaultR2, m.R2, m.Metrics.R2) }

// MAEValue resolves mae: flat field, nested field, then 0.
func (m MetricsSnapshot) MAEValue() float64 { return firstOf(DefaultMAE, m.MAE, m.Metrics.MAE) }

func (m MetricsSnapshot) RMSEValue() float64 { return firstOf(DefaultRMSE, m.Metrics.RMSE) }

func (m MetricsSnapshot) MAPEValue() float64 { return firstOf(DefaultMAPE, m.Metrics.MAPE) }

func (m MetricsSnapshot) ImprovementValue() float64 {
	return firstOf(DefaultImprovement, m.Metrics.ImprovementPercent)
}

// Drift returns the snapshot drift level, LOW when unset.
func (m MetricsSnapshot) Drift() DriftLevel {
	if m.DriftRisk == "" {
		return DriftLow
	}
	return m.DriftRisk
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Clone returns a deep copy; the copy shares no pointers with m.
func (m MetricsSnapshot) Clone() MetricsSnapshot {
	out := m
	out.R2 = clonePtr(m.R2)
	out.MAE = clonePtr(m.MAE)
	out.Metrics = EvaluationMetrics{
		R2:                 clonePtr(m.Metrics.R2),
		RMSE:               clonePtr(m.Metrics.RMSE),
		MAE:                clonePtr(m.Metrics.MAE),
		MAPE:               clonePtr(m.Metrics.MAPE),
		ImprovementPercent: clonePtr(m.Metrics.ImprovementPercent),
	}
	return out
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// DriftStatus is the drift detector output served by the metrics provider.
type DriftStatus struct {
	DriftRisk DriftLevel     `json:"drift_risk"`
	Source    string         `json:"source,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// LogEntry is one record from the operational prediction log.
type LogEntry map[string]any

// ── Scenario ─────────────────────────────────────────────────

// ScenarioOverrides holds hypothetical metric values parsed from a question.
// Unset fields leave the snapshot untouched.
type ScenarioOverrides struct {
	R2                  *float64   `json:"r2,omitempty"`
	MAE                 *float64   `json:"mae,omitempty"`
	RMSE                *float64   `json:"rmse,omitempty"`
	MAPE                *float64   `json:"mape,omitempty"`
	ImprovementPercent  *float64   `json:"improvement_percent,omitempty"`
	DriftRisk           DriftLevel `json:"drift_risk,omitempty"`
	AccuracyDropPercent *float64   `json:"accuracy_drop_percent,omitempty"`
}

// IsEmpty reports whether no override field is set.
func (o ScenarioOverrides) IsEmpty() bool {
	return o.R2 == nil && o.MAE == nil && o.RMSE == nil && o.MAPE == nil &&
		o.ImprovementPercent == nil && o.DriftRisk == "" && o.AccuracyDropPercent == nil
}

// ScenarioRequest is the scenario detector verdict for one question.
type ScenarioRequest struct {
	IsSimulation bool              `json:"is_simulation"`
	Overrides    ScenarioOverrides `json:"overrides"`
}

// ── Intent Routing ───────────────────────────────────────────

// AgentName identifies one evaluator.
type AgentName string

const (
	AgentOps       AgentName = "ops_agent"
	AgentFinance   AgentName = "finance_agent"
	AgentRisk      AgentName = "risk_agent"
	AgentExecutive AgentName = "executive_agent"
)

// AllAgents lists every agent in canonical summary order.
var AllAgents = []AgentName{AgentOps, AgentFinance, AgentRisk, AgentExecutive}

// RoutingType describes how the agent set was chosen.
type RoutingType string

const (
	RoutingTargeted   RoutingType = "targeted"
	RoutingBroadcast  RoutingType = "broadcast"
	RoutingSimulation RoutingType = "simulation"
)

// IntentMatch records one keyword hit and the agent it routed to.
type IntentMatch struct {
	Keyword  string    `json:"keyword"`
	RoutedTo AgentName `json:"routed_to"`
}

// IntentResult is the intent classifier output.
type IntentResult struct {
	SelectedAgents  []AgentName   `json:"selected_agents"`
	DetectedIntents []IntentMatch `json:"detected_intents"`
	RoutingType     RoutingType   `json:"routing_type"`
	IsHypothetical  bool          `json:"is_hypothetical"`
	AgentCount      int           `json:"agent_count"`
}

// Selected reports whether agent is in the selected set.
func (r IntentResult) Selected(agent AgentName) bool {
	for _, a := range r.SelectedAgents {
		if a == agent {
			return true
		}
	}
	return false
}

// ── Risk & Confidence ────────────────────────────────────────

// RiskAssessment is the output of one risk policy evaluation.
type RiskAssessment struct {
	Level                  RiskLevel `json:"risk_level"`
	Priority               Priority  `json:"priority"`
	Score                  int       `json:"risk_score"`
	EstimatedFinancialRisk int       `json:"estimated_financial_risk"`
	Factors                []string  `json:"risk_factors"`
}

// ConfidenceLabel buckets a confidence score.
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "HIGH"
	ConfidenceMedium ConfidenceLabel = "MEDIUM"
	ConfidenceLow    ConfidenceLabel = "LOW"
)

// ConfidenceResult is the confidence engine output.
type ConfidenceResult struct {
	Score             float64         `json:"confidence_score"`
	Label             ConfidenceLabel `json:"confidence_label"`
	Breakdown         []string        `json:"breakdown"`
	DisagreeingAgents []AgentName     `json:"disagreeing_agents"`
}

// ── Decision ─────────────────────────────────────────────────

// SimulationInfo carries the real and hypothetical views of a simulated run.
type SimulationInfo struct {
	Overrides        ScenarioOverrides `json:"overrides"`
	RealMetrics      MetricsSnapshot   `json:"real_metrics"`
	SimulatedMetrics MetricsSnapshot   `json:"simulated_metrics"`
	Risk             RiskAssessment    `json:"simulation_risk"`
}

// AggregatedDecision is the final product of one orchestration run.
type AggregatedDecision struct {
	RunID            string                `json:"run_id"`
	PlantID          int                   `json:"plant_id"`
	Question         string                `json:"question"`
	FinalDecision    string                `json:"final_decision"`
	Priority         Priority              `json:"priority"`
	Confidence       ConfidenceResult      `json:"confidence"`
	AgentOutputs     map[AgentName]Verdict `json:"agent_outputs"`
	ExecutiveSummary string                `json:"executive_summary"`
	SimulationMode   bool                  `json:"simulation_mode"`
	Routing          IntentResult          `json:"routing"`
	DriftStatus      *DriftStatus          `json:"drift_status,omitempty"`
	Simulation       *SimulationInfo       `json:"simulation,omitempty"`
	AISummary        string                `json:"ai_summary,omitempty"`
	Alert            *AlertOutcome         `json:"alert,omitempty"`
	Warnings         []string              `json:"warnings,omitempty"`
	StartedAt        time.Time             `json:"started_at"`
	CompletedAt      time.Time             `json:"completed_at"`
}

// Ops returns the ops verdict if the ops agent ran.
func (d *AggregatedDecision) Ops() (OpsVerdict, bool) {
	v, ok := d.AgentOutputs[AgentOps].(OpsVerdict)
	return v, ok
}

// Finance returns the finance verdict if the finance agent ran.
func (d *AggregatedDecision) Finance() (FinanceVerdict, bool) {
	v, ok := d.AgentOutputs[AgentFinance].(FinanceVerdict)
	return v, ok
}

// Risk returns the registry risk verdict if the risk agent ran.
func (d *AggregatedDecision) Risk() (RiskVerdict, bool) {
	v, ok := d.AgentOutputs[AgentRisk].(RiskVerdict)
	return v, ok
}

// Strategy returns the executive verdict if the executive agent ran.
func (d *AggregatedDecision) Strategy() (StrategyVerdict, bool) {
	v, ok := d.AgentOutputs[AgentExecutive].(StrategyVerdict)
	return v, ok
}

// ── Alerts & Logs ────────────────────────────────────────────

// AlertType is the coarse alert classification exposed to consumers.
type AlertType string

const (
	AlertCritical AlertType = "CRITICAL_ALERT"
	AlertWarning  AlertType = "WARNING_ALERT"
	AlertNone     AlertType = "NONE"
)

// AlertRecord is one persisted alert. Records are never mutated after creation.
type AlertRecord struct {
	ID        string    `json:"alert_id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  Priority  `json:"severity"`
	Decision  string    `json:"decision"`
	Priority  Priority  `json:"priority"`
	PlantID   int       `json:"plant_id"`
	Message   string    `json:"message"`
}

// AlertOutcome is the alert classifier result attached to a decision.
type AlertOutcome struct {
	Triggered bool      `json:"alert_triggered"`
	Severity  Priority  `json:"severity"`
	AlertType AlertType `json:"alert_type"`
	Reason    string    `json:"reason"`
	AlertID   string    `json:"alert_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SimulationLogEntry records one hypothetical run.
type SimulationLogEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	RunID      string            `json:"run_id"`
	PlantID    int               `json:"plant_id"`
	Question   string            `json:"question"`
	Overrides  ScenarioOverrides `json:"overrides"`
	Risk       RiskAssessment    `json:"risk_result"`
	Confidence ConfidenceResult  `json:"confidence"`
}

// MemoryEntry records one answered question for agent memory.
type MemoryEntry struct {
	Timestamp  time.Time   `json:"timestamp"`
	RunID      string      `json:"run_id"`
	PlantID    int         `json:"plant_id"`
	Question   string      `json:"question"`
	Response   string      `json:"response"`
	RiskLevel  RiskLevel   `json:"risk_level,omitempty"`
	AgentsUsed []AgentName `json:"agents_used"`
	Confidence float64     `json:"confidence"`
}
