// Package screening orchestrates a fraud screening run: load the
// applicant profile once, fan out to the detection engines, merge and
// classify, persist the flags atomically, and publish the outcome.
package screening

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/opensource-finance/shikra/internal/domain"
	"github.com/opensource-finance/shikra/internal/engine"
	"github.com/opensource-finance/shikra/internal/rules"
)

// Service runs screenings end to end.
type Service struct {
	repo      domain.Repository
	catalog   *rules.Catalog
	detectors []engine.Detector
	custom    *rules.ExpressionEngine
	bus       domain.EventBus
	cfg       domain.ScreeningConfig
}

// New creates the screening service. custom and bus may be nil.
func New(repo domain.Repository, catalog *rules.Catalog, detectors []engine.Detector, custom *rules.ExpressionEngine, bus domain.EventBus, cfg domain.ScreeningConfig) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		detectors: detectors,
		custom:    custom,
		bus:       bus,
		cfg:       cfg,
	}
}

// CompletedEvent is the payload published on screening completion.
type CompletedEvent struct {
	ApplicantID    int64                 `json:"applicantId"`
	LoanID         *int64                `json:"loanId,omitempty"`
	TotalScore     int                   `json:"totalScore"`
	RiskLevel      domain.RiskLevel      `json:"riskLevel"`
	IsFraudulent   bool                  `json:"isFraudulent"`
	Recommendation domain.Recommendation `json:"recommendation"`
	RuleCount      int                   `json:"ruleCount"`
	CompletedAt    time.Time             `json:"completedAt"`
}

// Screen runs the requested category engines against one applicant.
// An empty categories list means all engines. The merged result is
// persisted before this returns; a catalog read failure aborts the run
// with nothing persisted.
func (s *Service) Screen(ctx context.Context, applicantID int64, categories []domain.Category) (*domain.DetectionResult, error) {
	tracer := otel.Tracer("shikra-screening")
	ctx, span := tracer.Start(ctx, "screening.Screen")
	defer span.End()
	span.SetAttributes(attribute.Int64("applicant.id", applicantID))

	profile, err := s.repo.GetProfile(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	requested := categorySet(categories)

	results := make([]*domain.DetectionResult, 0, len(s.detectors)+1)
	for _, det := range s.detectors {
		if requested != nil && !requested[det.Category()] {
			continue
		}
		res, err := det.Detect(ctx, profile)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	if s.custom != nil && s.custom.Count() > 0 {
		custom := domain.NewDetectionResult(profile.Applicant.ID, profile.Applicant.FullName())
		for _, rule := range s.custom.Evaluate(profile, requested) {
			custom.Add(rule)
		}
		results = append(results, custom)
	}

	merged := engine.Merge(results...)
	span.SetAttributes(
		attribute.Int("screening.score", merged.TotalScore),
		attribute.String("screening.risk", string(merged.RiskLevel)),
	)

	var loanID *int64
	if profile.Loan != nil {
		loanID = &profile.Loan.ID
	}

	flags := s.buildFlags(merged, loanID)
	if err := s.repo.SaveScreeningResult(ctx, applicantID, loanID, flags, merged.TotalScore); err != nil {
		return nil, err
	}

	s.publishOutcome(ctx, merged, loanID)

	slog.Info("screening completed",
		"applicant_id", applicantID,
		"score", merged.TotalScore,
		"risk", merged.RiskLevel,
		"rules", len(merged.TriggeredRules))

	return merged, nil
}

func (s *Service) buildFlags(res *domain.DetectionResult, loanID *int64) []*domain.FraudFlag {
	flags := make([]*domain.FraudFlag, 0, len(res.TriggeredRules))
	for _, rule := range res.TriggeredRules {
		flags = append(flags, &domain.FraudFlag{
			ID:             uuid.New().String(),
			ApplicantID:    res.ApplicantID,
			LoanID:         loanID,
			RuleCode:       rule.RuleCode,
			RuleName:       rule.RuleName,
			Category:       rule.Category,
			Severity:       rule.Severity,
			SeverityWeight: rule.Severity.Weight(),
			Points:         rule.Points,
			Details:        rule.Details,
			CreatedAt:      rule.DetectedAt,
		})
	}
	return flags
}

// publishOutcome emits the completion event, plus a fraud alert when
// the run classified fraudulent. Publish failures are logged, never
// surfaced: the result is already persisted.
func (s *Service) publishOutcome(ctx context.Context, res *domain.DetectionResult, loanID *int64) {
	if s.bus == nil {
		return
	}

	event := CompletedEvent{
		ApplicantID:    res.ApplicantID,
		LoanID:         loanID,
		TotalScore:     res.TotalScore,
		RiskLevel:      res.RiskLevel,
		IsFraudulent:   res.IsFraudulent,
		Recommendation: res.Recommendation,
		RuleCount:      len(res.TriggeredRules),
		CompletedAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal screening event", "applicant_id", res.ApplicantID, "error", err)
		return
	}

	if err := s.bus.Publish(ctx, domain.TopicScreeningCompleted, payload); err != nil {
		slog.Error("failed to publish screening event", "applicant_id", res.ApplicantID, "error", err)
	}
	if res.IsFraudulent {
		if err := s.bus.Publish(ctx, domain.TopicFraudAlert, payload); err != nil {
			slog.Error("failed to publish fraud alert", "applicant_id", res.ApplicantID, "error", err)
		}
	}
}

// categorySet returns nil for "all categories".
func categorySet(categories []domain.Category) map[domain.Category]bool {
	if len(categories) == 0 {
		return nil
	}
	set := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}
	return set
}
