package screening

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/opensource-finance/shikra/internal/domain"
	"github.com/opensource-finance/shikra/internal/repository"
)

// Fallback presentation when the engines fail mid-run: a conservative
// HIGH that forces manual review and blocks the officer gate.
const (
	fallbackScore = 75.0

	defaultMaxInternalScore   = 200
	defaultRiskScoreThreshold = 70.0
)

// Enhanced runs a full screening and returns the officer-facing
// normalized view. An unknown applicant surfaces as ErrNotFound; any
// other failure degrades to the conservative fallback instead of
// erroring, so the loan desk always gets a decision frame.
func (s *Service) Enhanced(ctx context.Context, applicantID int64) (*domain.EnhancedResult, error) {
	res, err := s.Screen(ctx, applicantID, nil)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		slog.Error("screening failed, returning fallback assessment", "applicant_id", applicantID, "error", err)
		return s.fallback(applicantID), nil
	}
	return s.Normalize(res), nil
}

// Normalize rescales a raw points result to the 0-100 presentation.
func (s *Service) Normalize(res *domain.DetectionResult) *domain.EnhancedResult {
	maxScore := s.cfg.MaxInternalScore
	if maxScore <= 0 {
		maxScore = defaultMaxInternalScore
	}
	threshold := s.cfg.RiskScoreThreshold
	if threshold <= 0 {
		threshold = defaultRiskScoreThreshold
	}

	normalized := float64(res.TotalScore) / float64(maxScore) * 100
	normalized = math.Round(normalized*100) / 100
	if normalized > 100 {
		normalized = 100
	}

	level := normalizedRiskLevel(normalized)

	return &domain.EnhancedResult{
		ApplicantID:      res.ApplicantID,
		ApplicantName:    res.ApplicantName,
		RawScore:         res.TotalScore,
		MaxScore:         maxScore,
		NormalizedScore:  normalized,
		RiskLevel:        level,
		Interpretation:   interpret(level),
		Recommendation:   normalizedRecommendation(level),
		CanApproveReject: normalized < threshold,
		Breakdown: domain.ScoringBreakdown{
			RawScore:            res.TotalScore,
			MaxPossibleScore:    maxScore,
			NormalizedScore:     normalized,
			ViolatedRulesCount:  len(res.TriggeredRules),
			Categories:          violatedCategories(res.TriggeredRules),
			NormalizationMethod: "min(100, raw / max * 100)",
		},
		Violations: res.TriggeredRules,
	}
}

func (s *Service) fallback(applicantID int64) *domain.EnhancedResult {
	maxScore := s.cfg.MaxInternalScore
	if maxScore <= 0 {
		maxScore = defaultMaxInternalScore
	}
	threshold := s.cfg.RiskScoreThreshold
	if threshold <= 0 {
		threshold = defaultRiskScoreThreshold
	}

	return &domain.EnhancedResult{
		ApplicantID:      applicantID,
		NormalizedScore:  fallbackScore,
		MaxScore:         maxScore,
		RiskLevel:        domain.RiskHigh,
		Interpretation:   "Screening could not complete; treat as high risk pending manual review",
		Recommendation:   domain.RecommendReview,
		CanApproveReject: fallbackScore < threshold,
		Breakdown: domain.ScoringBreakdown{
			MaxPossibleScore:    maxScore,
			NormalizedScore:     fallbackScore,
			NormalizationMethod: "fallback",
		},
		Violations: []domain.TriggeredRule{},
	}
}

// normalizedRiskLevel bands the 0-100 score. These cuts are distinct
// from the raw points step function.
func normalizedRiskLevel(score float64) domain.RiskLevel {
	switch {
	case score >= 80:
		return domain.RiskCritical
	case score >= 60:
		return domain.RiskHigh
	case score >= 35:
		return domain.RiskMedium
	case score >= 15:
		return domain.RiskLow
	default:
		return domain.RiskClean
	}
}

func normalizedRecommendation(level domain.RiskLevel) domain.Recommendation {
	switch level {
	case domain.RiskCritical, domain.RiskHigh:
		return domain.RecommendReject
	case domain.RiskMedium, domain.RiskLow:
		return domain.RecommendReview
	default:
		return domain.RecommendApprove
	}
}

func interpret(level domain.RiskLevel) string {
	switch level {
	case domain.RiskCritical:
		return "Severe fraud indicators; reject and investigate"
	case domain.RiskHigh:
		return "Strong fraud indicators; reject recommended"
	case domain.RiskMedium:
		return "Notable inconsistencies; manual review required"
	case domain.RiskLow:
		return "Minor inconsistencies; review before approval"
	default:
		return "No significant fraud indicators"
	}
}

func violatedCategories(rules []domain.TriggeredRule) []domain.Category {
	seen := make(map[domain.Category]bool)
	var categories []domain.Category
	for _, rule := range rules {
		if !seen[rule.Category] {
			seen[rule.Category] = true
			categories = append(categories, rule.Category)
		}
	}
	return categories
}
