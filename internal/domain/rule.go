// Package domain contains the core types and interfaces for Shikra.
package domain

import "time"

// Category groups fraud rules by the engine that evaluates them.
type Category string

const (
	CategoryIdentity          Category = "IDENTITY"
	CategoryFinancial         Category = "FINANCIAL"
	CategoryEmployment        Category = "EMPLOYMENT"
	CategoryCrossVerification Category = "CROSS_VERIFICATION"
)

// AllCategories returns the categories in engine execution order.
func AllCategories() []Category {
	return []Category{
		CategoryIdentity,
		CategoryFinancial,
		CategoryEmployment,
		CategoryCrossVerification,
	}
}

// Severity ranks how serious a triggered rule is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Weight maps a severity to its numeric weight used when persisting
// fraud flags and filtering by severity. Unknown severities weigh 2.
func (s Severity) Weight() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 2
	}
}

// RuleType describes how a rule is evaluated.
type RuleType string

const (
	RuleTypeThreshold      RuleType = "THRESHOLD"
	RuleTypePatternMatch   RuleType = "PATTERN_MATCH"
	RuleTypeDuplicateCheck RuleType = "DUPLICATE_CHECK"
	RuleTypeCrossCheck     RuleType = "CROSS_CHECK"

	// RuleTypeExpression marks operator-defined rules whose Expression
	// field holds a CEL predicate over applicant facts.
	RuleTypeExpression RuleType = "EXPRESSION"
)

// RuleDefinition is a catalog entry describing one fraud rule.
// Points and severity always come from the catalog, never from the
// engine code, so operators can retune rules without a deploy.
type RuleDefinition struct {
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Category       Category  `json:"category"`
	Severity       Severity  `json:"severity"`
	Points         int       `json:"points"`
	Active         bool      `json:"active"`
	RuleType       RuleType  `json:"ruleType"`
	ExecutionOrder int       `json:"executionOrder"`
	Expression     string    `json:"expression,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TriggeredRule is one rule that fired during a screening run.
type TriggeredRule struct {
	RuleCode    string    `json:"ruleCode"`
	RuleName    string    `json:"ruleName"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Severity    Severity  `json:"severity"`
	Points      int       `json:"points"`
	Details     string    `json:"details,omitempty"`
	DetectedAt  time.Time `json:"detectedAt"`
}

// RiskLevel classifies the aggregate fraud score.
type RiskLevel string

const (
	RiskClean    RiskLevel = "CLEAN"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Recommendation is the screening outcome for a loan decision.
type Recommendation string

const (
	RecommendApprove Recommendation = "APPROVE"
	RecommendReview  Recommendation = "REVIEW"
	RecommendReject  Recommendation = "REJECT"
)

// DetectionResult accumulates triggered rules for one applicant.
// TotalScore is always the exact sum of the triggered rules' points.
type DetectionResult struct {
	ApplicantID    int64           `json:"applicantId"`
	ApplicantName  string          `json:"applicantName"`
	TotalScore     int             `json:"totalScore"`
	RiskLevel      RiskLevel       `json:"riskLevel"`
	IsFraudulent   bool            `json:"isFraudulent"`
	Recommendation Recommendation  `json:"recommendation"`
	TriggeredRules []TriggeredRule `json:"triggeredRules"`
}

// NewDetectionResult creates an empty result for an applicant.
func NewDetectionResult(applicantID int64, applicantName string) *DetectionResult {
	return &DetectionResult{
		ApplicantID:    applicantID,
		ApplicantName:  applicantName,
		TriggeredRules: []TriggeredRule{},
	}
}

// Add appends a triggered rule and keeps TotalScore in sync.
func (r *DetectionResult) Add(rule TriggeredRule) {
	r.TriggeredRules = append(r.TriggeredRules, rule)
	r.TotalScore += rule.Points
}

// Classify applies the risk step function to the current score.
// Boundaries are inclusive: 60 is HIGH and fraudulent, 59 is MEDIUM.
func (r *DetectionResult) Classify() {
	switch {
	case r.TotalScore >= 100:
		r.RiskLevel = RiskCritical
		r.IsFraudulent = true
		r.Recommendation = RecommendReject
	case r.TotalScore >= 60:
		r.RiskLevel = RiskHigh
		r.IsFraudulent = true
		r.Recommendation = RecommendReject
	case r.TotalScore >= 30:
		r.RiskLevel = RiskMedium
		r.IsFraudulent = false
		r.Recommendation = RecommendReview
	case r.TotalScore >= 10:
		r.RiskLevel = RiskLow
		r.IsFraudulent = false
		r.Recommendation = RecommendReview
	default:
		r.RiskLevel = RiskClean
		r.IsFraudulent = false
		r.Recommendation = RecommendApprove
	}
}
