package domain

import "time"

// FraudFlag is a persisted record of one triggered rule, attached to
// the applicant and, when one exists, the loan under screening.
type FraudFlag struct {
	ID             string    `json:"id"`
	ApplicantID    int64     `json:"applicantId"`
	LoanID         *int64    `json:"loanId,omitempty"`
	RuleCode       string    `json:"ruleCode"`
	RuleName       string    `json:"ruleName"`
	Category       Category  `json:"category"`
	Severity       Severity  `json:"severity"`
	SeverityWeight int       `json:"severityWeight"`
	Points         int       `json:"points"`
	Details        string    `json:"details,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// EnhancedResult is a screening result rescaled to a 0-100 score for
// loan-officer presentation. The points scale stays canonical; this is
// a view over it.
type EnhancedResult struct {
	ApplicantID      int64            `json:"applicantId"`
	ApplicantName    string           `json:"applicantName"`
	RawScore         int              `json:"rawScore"`
	MaxScore         int              `json:"maxScore"`
	NormalizedScore  float64          `json:"normalizedScore"`
	RiskLevel        RiskLevel        `json:"riskLevel"`
	Interpretation   string           `json:"interpretation"`
	Recommendation   Recommendation   `json:"recommendation"`
	CanApproveReject bool             `json:"canApproveReject"`
	Breakdown        ScoringBreakdown `json:"breakdown"`
	Violations       []TriggeredRule  `json:"violations"`
}

// ScoringBreakdown explains how the normalized score was produced.
type ScoringBreakdown struct {
	RawScore            int        `json:"rawScore"`
	MaxPossibleScore    int        `json:"maxPossibleScore"`
	NormalizedScore     float64    `json:"normalizedScore"`
	ViolatedRulesCount  int        `json:"violatedRulesCount"`
	Categories          []Category `json:"categories"`
	NormalizationMethod string     `json:"normalizationMethod"`
}
