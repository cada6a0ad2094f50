package models

// Verdict is the typed output of one agent evaluator. The set of
// implementations is closed: OpsVerdict, FinanceVerdict, RiskVerdict and
// StrategyVerdict.
type Verdict interface {
	Agent() AgentName
	verdict()
}

// OpsVerdict is the operational health rating.
type OpsVerdict struct {
	Risk   Severity `json:"operational_risk"`
	Reason string   `json:"reason"`
}

func (OpsVerdict) Agent() AgentName { return AgentOps }
func (OpsVerdict) verdict() {}

// FinanceVerdict is the revenue impact rating.
type FinanceVerdict struct {
	Risk   Severity `json:"financial_risk"`
	Impact string   `json:"impact"`
}

func (FinanceVerdict) Agent() AgentName { return AgentFinance }
func (FinanceVerdict) verdict() {}

// RiskVerdict is the registry risk assessment.
type RiskVerdict struct {
	Level                  RiskLevel `json:"risk_level"`
	Score                  int       `json:"risk_score"`
	EstimatedFinancialRisk int       `json:"estimated_financial_risk"`
	Factors                []string  `json:"risk_factors"`
}

func (RiskVerdict) Agent() AgentName { return AgentRisk }
func (RiskVerdict) verdict() {}

// StrategyVerdict is the executive recommendation.
type StrategyVerdict struct {
	Recommendation string `json:"strategy"`
}

func (StrategyVerdict) Agent() AgentName { return AgentExecutive }
func (StrategyVerdict) verdict() {}
