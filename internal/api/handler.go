package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/shikra/internal/domain"
	"github.com/opensource-finance/shikra/internal/repository"
	"github.com/opensource-finance/shikra/internal/rules"
	"github.com/opensource-finance/shikra/internal/worker"
)

// Screener runs screenings. Satisfied by screening.Service.
type Screener interface {
	Screen(ctx context.Context, applicantID int64, categories []domain.Category) (*domain.DetectionResult, error)
	Enhanced(ctx context.Context, applicantID int64) (*domain.EnhancedResult, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	screener Screener
	catalog  *rules.Catalog
	custom   *rules.ExpressionEngine
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, screener Screener, catalog *rules.Catalog, custom *rules.ExpressionEngine, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		screener: screener,
		catalog:  catalog,
		custom:   custom,
		version:  version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// CreateApplicantRequest is the request body for POST /applicants. The
// applicant record is required; everything else is attached when
// present.
type CreateApplicantRequest struct {
	Applicant    domain.Applicant          `json:"applicant"`
	Identity     []domain.IdentityDocument `json:"identityDocuments,omitempty"`
	Employment   *domain.Employment        `json:"employment,omitempty"`
	BankRecord   *domain.BankRecord        `json:"bankRecord,omitempty"`
	CreditReport *domain.CreditReport      `json:"creditReport,omitempty"`
	Loan         *domain.Loan              `json:"loan,omitempty"`
	Collateral   *domain.Collateral        `json:"collateral,omitempty"`
	Documents    []domain.Document         `json:"documents,omitempty"`
}

// CreateApplicant handles POST /applicants: persists the applicant and
// any attached records, returning the assigned IDs.
func (h *Handler) CreateApplicant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateApplicantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if req.Applicant.FirstName == "" {
		writeError(w, http.StatusBadRequest, "applicant.firstName is required")
		return
	}

	applicant := req.Applicant
	applicant.ID = 0
	if err := h.repo.SaveApplicant(ctx, &applicant); err != nil {
		slog.Error("failed to save applicant", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save applicant")
		return
	}

	for i := range req.Identity {
		doc := req.Identity[i]
		doc.ApplicantID = applicant.ID
		if err := h.repo.SaveIdentityDocument(ctx, &doc); err != nil {
			slog.Error("failed to save identity document", "applicant_id", applicant.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save identity document")
			return
		}
	}

	if req.Employment != nil {
		emp := *req.Employment
		emp.ApplicantID = applicant.ID
		if err := h.repo.SaveEmployment(ctx, &emp); err != nil {
			slog.Error("failed to save employment", "applicant_id", applicant.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save employment")
			return
		}
	}

	if req.BankRecord != nil {
		rec := *req.BankRecord
		rec.ApplicantID = applicant.ID
		if err := h.repo.SaveBankRecord(ctx, &rec); err != nil {
			slog.Error("failed to save bank record", "applicant_id", applicant.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save bank record")
			return
		}
	}

	if req.CreditReport != nil {
		rep := *req.CreditReport
		rep.ApplicantID = applicant.ID
		if err := h.repo.SaveCreditReport(ctx, &rep); err != nil {
			slog.Error("failed to save credit report", "applicant_id", applicant.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save credit report")
			return
		}
	}

	var loanID int64
	if req.Loan != nil {
		loan := *req.Loan
		loan.ID = 0
		loan.ApplicantID = applicant.ID
		if err := h.repo.SaveLoan(ctx, &loan); err != nil {
			slog.Error("failed to save loan", "applicant_id", applicant.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save loan")
			return
		}
		loanID = loan.ID
	}

	if req.Collateral != nil {
		col := *req.Collateral
		col.ApplicantID = applicant.ID
		if col.LoanID == 0 {
			col.LoanID = loanID
		}
		if err := h.repo.SaveCollateral(ctx, &col); err != nil {
			slog.Error("failed to save collateral", "applicant_id", applicant.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save collateral")
			return
		}
	}

	for i := range req.Documents {
		doc := req.Documents[i]
		doc.ApplicantID = applicant.ID
		if err := h.repo.SaveDocument(ctx, &doc); err != nil {
			slog.Error("failed to save document", "applicant_id", applicant.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save document")
			return
		}
	}

	slog.Info("applicant created", "applicant_id", applicant.ID)
	resp := map[string]any{"applicantId": applicant.ID}
	if loanID != 0 {
		resp["loanId"] = loanID
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetApplicant handles GET /applicants/{id}: the assembled profile.
func (h *Handler) GetApplicant(w http.ResponseWriter, r *http.Request) {
	applicantID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	profile, err := h.repo.GetProfile(r.Context(), applicantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "applicant not found")
			return
		}
		slog.Error("failed to load profile", "applicant_id", applicantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// ScreenRequest is the optional body for POST /screenings/{applicantID}.
type ScreenRequest struct {
	Categories []domain.Category `json:"categories,omitempty"`
}

// Screen handles POST /screenings/{applicantID}: a synchronous
// screening run. An empty or missing body screens all categories.
func (h *Handler) Screen(w http.ResponseWriter, r *http.Request) {
	applicantID, ok := pathID(w, r, "applicantID")
	if !ok {
		return
	}

	categories, ok := decodeCategories(w, r)
	if !ok {
		return
	}

	result, err := h.screener.Screen(r.Context(), applicantID, categories)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "applicant not found")
			return
		}
		slog.Error("screening failed", "applicant_id", applicantID, "error", err)
		writeError(w, http.StatusInternalServerError, "screening failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ScreenAsync handles POST /screenings/{applicantID}/async: publishes a
// screening request for the worker and returns 202.
func (h *Handler) ScreenAsync(w http.ResponseWriter, r *http.Request) {
	applicantID, ok := pathID(w, r, "applicantID")
	if !ok {
		return
	}

	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	categories, ok := decodeCategories(w, r)
	if !ok {
		return
	}

	req := worker.ScreeningRequest{
		ApplicantID: applicantID,
		Categories:  categories,
		RequestID:   GetTraceID(r.Context()),
	}
	payload, err := json.Marshal(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode request")
		return
	}

	if err := h.bus.Publish(r.Context(), domain.TopicScreeningRequested, payload); err != nil {
		slog.Error("failed to publish screening request", "applicant_id", applicantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to queue screening")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"applicantId": applicantID,
		"requestId":   req.RequestID,
		"status":      "queued",
		"queuedAt":    time.Now().UTC(),
	})
}

// Enhanced handles GET /screenings/{applicantID}/enhanced: runs a full
// screening and returns the 0-100 normalized view.
func (h *Handler) Enhanced(w http.ResponseWriter, r *http.Request) {
	applicantID, ok := pathID(w, r, "applicantID")
	if !ok {
		return
	}

	result, err := h.screener.Enhanced(r.Context(), applicantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "applicant not found")
			return
		}
		slog.Error("enhanced screening failed", "applicant_id", applicantID, "error", err)
		writeError(w, http.StatusInternalServerError, "screening failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListApplicantFlags handles GET /applicants/{id}/flags.
func (h *Handler) ListApplicantFlags(w http.ResponseWriter, r *http.Request) {
	applicantID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	flags, err := h.repo.ListFlagsByApplicant(r.Context(), applicantID)
	if err != nil {
		slog.Error("failed to list flags", "applicant_id", applicantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list flags")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"flags": flags,
		"count": len(flags),
	})
}

// ListLoanFlags handles GET /loans/{id}/flags.
func (h *Handler) ListLoanFlags(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	flags, err := h.repo.ListFlagsByLoan(r.Context(), loanID)
	if err != nil {
		slog.Error("failed to list flags", "loan_id", loanID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list flags")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"flags": flags,
		"count": len(flags),
	})
}

// ListFlags handles GET /flags?severity=HIGH: flags at or above the
// given severity.
func (h *Handler) ListFlags(w http.ResponseWriter, r *http.Request) {
	severity := domain.Severity(r.URL.Query().Get("severity"))
	switch severity {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical:
	case "":
		severity = domain.SeverityLow
	default:
		writeError(w, http.StatusBadRequest, "severity must be LOW, MEDIUM, HIGH, or CRITICAL")
		return
	}

	flags, err := h.repo.ListFlagsBySeverity(r.Context(), severity.Weight())
	if err != nil {
		slog.Error("failed to list flags", "severity", severity, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list flags")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"flags":    flags,
		"count":    len(flags),
		"severity": severity,
	})
}

// ListRules returns the active rule catalog.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	defs, err := h.catalog.ActiveRules(r.Context())
	if err != nil {
		slog.Error("failed to list rules", "error", err)
		writeError(w, http.StatusServiceUnavailable, "rule catalog unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": defs,
		"count": len(defs),
	})
}

// GetRule retrieves one rule by code, active or not.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "rule code is required")
		return
	}

	def, err := h.catalog.ByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		slog.Error("failed to get rule", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get rule")
		return
	}

	writeJSON(w, http.StatusOK, def)
}

// CreateRule upserts a rule definition. EXPRESSION rules are compiled
// before saving so a bad predicate never lands in the catalog.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var def domain.RuleDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if def.Code == "" || def.Name == "" {
		writeError(w, http.StatusBadRequest, "code and name are required")
		return
	}
	if !validCategory(def.Category) {
		writeError(w, http.StatusBadRequest, "unknown category: "+string(def.Category))
		return
	}
	if def.RuleType == domain.RuleTypeExpression {
		if def.Expression == "" {
			writeError(w, http.StatusBadRequest, "expression is required for EXPRESSION rules")
			return
		}
		if h.custom != nil {
			if err := h.custom.Validate(&def); err != nil {
				writeError(w, http.StatusBadRequest, "invalid expression: "+err.Error())
				return
			}
		}
	}

	if err := h.repo.SaveRuleDefinition(ctx, &def); err != nil {
		slog.Error("failed to save rule", "code", def.Code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save rule")
		return
	}

	h.catalog.Invalidate(ctx)

	slog.Info("rule saved", "code", def.Code, "category", def.Category)
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule":    def,
		"message": "Rule saved. Call POST /rules/reload to apply expression changes.",
	})
}

// ReloadRules reloads the expression engine from the catalog and drops
// cached catalog snapshots. Enables hot-reloading without restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.catalog.Invalidate(ctx)

	defs, err := h.catalog.ActiveRules(ctx)
	if err != nil {
		slog.Error("failed to load rules", "error", err)
		writeError(w, http.StatusServiceUnavailable, "rule catalog unavailable")
		return
	}

	expressions := 0
	if h.custom != nil {
		if err := h.custom.Reload(defs); err != nil {
			slog.Error("failed to reload expression rules", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to reload expression rules: "+err.Error())
			return
		}
		expressions = h.custom.Count()
	}

	slog.Info("rules reloaded", "count", len(defs), "expressions", expressions)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "rules reloaded successfully",
		"count":       len(defs),
		"expressions": expressions,
	})
}

// SetRuleActiveRequest is the body for PUT /rules/{code}/active.
type SetRuleActiveRequest struct {
	Active bool `json:"active"`
}

// SetRuleActive toggles a rule without editing its definition.
func (h *Handler) SetRuleActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "rule code is required")
		return
	}

	var req SetRuleActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if err := h.repo.SetRuleActive(ctx, code, req.Active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		slog.Error("failed to update rule", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update rule")
		return
	}

	h.catalog.Invalidate(ctx)

	slog.Info("rule toggled", "code", code, "active", req.Active)
	writeJSON(w, http.StatusOK, map[string]any{
		"code":   code,
		"active": req.Active,
	})
}

// pathID parses a numeric chi URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, param+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// decodeCategories reads the optional categories body. A missing or
// empty body means all categories.
func decodeCategories(w http.ResponseWriter, r *http.Request) ([]domain.Category, bool) {
	var req ScreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return nil, false
	}

	for _, c := range req.Categories {
		if !validCategory(c) {
			writeError(w, http.StatusBadRequest, "unknown category: "+string(c))
			return nil, false
		}
	}
	return req.Categories, true
}

func validCategory(c domain.Category) bool {
	for _, known := range domain.AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
