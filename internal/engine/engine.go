// Package engine implements the four fraud detection engines that
// evaluate a loan applicant's profile against the rule catalog.
package engine

import (
	"context"
	"time"

	"github.com/opensource-finance/shikra/internal/domain"
)

// Detector is one category engine. Detect loads the category's active
// rules once, runs every check against the profile, and returns the
// classified result. Checks are isolated: a failing check skips only
// itself.
type Detector interface {
	Category() domain.Category
	Detect(ctx context.Context, p *domain.Profile) (*domain.DetectionResult, error)
}

type ruleSet map[string]*domain.RuleDefinition

// trigger emits a rule with its catalog description. A rule that is
// missing from the active set is silently suppressed; all points and
// severities come from the catalog entry.
func trigger(res *domain.DetectionResult, defs ruleSet, code, details string) {
	def, ok := defs[code]
	if !ok || !def.Active {
		return
	}
	res.Add(domain.TriggeredRule{
		RuleCode:    def.Code,
		RuleName:    def.Name,
		Description: def.Description,
		Category:    def.Category,
		Severity:    def.Severity,
		Points:      def.Points,
		Details:     details,
		DetectedAt:  time.Now().UTC(),
	})
}

// triggerDesc emits a rule with a computed description replacing the
// catalog one, for checks whose evidence carries measured values.
func triggerDesc(res *domain.DetectionResult, defs ruleSet, code, description, details string) {
	def, ok := defs[code]
	if !ok || !def.Active {
		return
	}
	res.Add(domain.TriggeredRule{
		RuleCode:    def.Code,
		RuleName:    def.Name,
		Description: description,
		Category:    def.Category,
		Severity:    def.Severity,
		Points:      def.Points,
		Details:     details,
		DetectedAt:  time.Now().UTC(),
	})
}
