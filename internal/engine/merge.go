package engine

import (
	"fmt"
	"sort"

	"github.com/opensource-finance/shikra/internal/domain"
)

// Merge combines per-category results into one classified result.
// Triggered rules keep their engine execution order; the score is the
// exact sum across all engines.
func Merge(results ...*domain.DetectionResult) *domain.DetectionResult {
	merged := &domain.DetectionResult{
		TriggeredRules: []domain.TriggeredRule{},
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		if merged.ApplicantID == 0 {
			merged.ApplicantID = res.ApplicantID
			merged.ApplicantName = res.ApplicantName
		}
		for _, rule := range res.TriggeredRules {
			merged.Add(rule)
		}
	}
	merged.Classify()
	return merged
}

// SeverityBreakdown counts triggered rules per severity.
func SeverityBreakdown(rules []domain.TriggeredRule) map[domain.Severity]int {
	breakdown := make(map[domain.Severity]int)
	for _, rule := range rules {
		breakdown[rule.Severity]++
	}
	return breakdown
}

// Explain renders a result as an ordered audit narrative, most severe
// rules first, points-descending within a severity.
func Explain(res *domain.DetectionResult) []string {
	lines := []string{
		fmt.Sprintf("Applicant %d (%s): score %d, risk %s, recommendation %s",
			res.ApplicantID, res.ApplicantName, res.TotalScore, res.RiskLevel, res.Recommendation),
	}

	rules := make([]domain.TriggeredRule, len(res.TriggeredRules))
	copy(rules, res.TriggeredRules)
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Severity.Weight() != rules[j].Severity.Weight() {
			return rules[i].Severity.Weight() > rules[j].Severity.Weight()
		}
		return rules[i].Points > rules[j].Points
	})

	for _, rule := range rules {
		line := fmt.Sprintf("[%s] %s (+%d): %s", rule.Severity, rule.RuleCode, rule.Points, rule.Details)
		lines = append(lines, line)
	}
	return lines
}
