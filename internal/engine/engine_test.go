package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/shikra/internal/domain"
	"github.com/opensource-finance/shikra/internal/rules"
)

// stubRepo serves the seeded rule catalog and configurable duplicate
// counts without a database.
type stubRepo struct {
	domain.Repository

	rules          []*domain.RuleDefinition
	aadhaarCount   int
	panCount       int
	phoneCount     int
	emailCount     int
	valuationCount int
}

func newStubRepo() *stubRepo {
	return &stubRepo{rules: rules.DefaultRuleDefinitions()}
}

func (r *stubRepo) ListActiveRulesByCategory(_ context.Context, category domain.Category) ([]*domain.RuleDefinition, error) {
	var out []*domain.RuleDefinition
	for _, def := range r.rules {
		if def.Category == category && def.Active {
			out = append(out, def)
		}
	}
	return out, nil
}

func (r *stubRepo) ListActiveRules(_ context.Context) ([]*domain.RuleDefinition, error) {
	var out []*domain.RuleDefinition
	for _, def := range r.rules {
		if def.Active {
			out = append(out, def)
		}
	}
	return out, nil
}

func (r *stubRepo) CountApplicantsByAadhaar(context.Context, string, int64) (int, error) {
	return r.aadhaarCount, nil
}

func (r *stubRepo) CountApplicantsByPAN(context.Context, string, int64) (int, error) {
	return r.panCount, nil
}

func (r *stubRepo) CountApplicantsByPhone(context.Context, string, int64) (int, error) {
	return r.phoneCount, nil
}

func (r *stubRepo) CountApplicantsByEmail(context.Context, string, int64) (int, error) {
	return r.emailCount, nil
}

func (r *stubRepo) CountCollateralsByValuationReport(context.Context, string, int64) (int, error) {
	return r.valuationCount, nil
}

func (r *stubRepo) deactivate(code string) {
	for _, def := range r.rules {
		if def.Code == code {
			def.Active = false
		}
	}
}

func newTestCatalog(repo *stubRepo) *rules.Catalog {
	return rules.NewCatalog(repo, nil, time.Minute)
}

func hasRule(res *domain.DetectionResult, code string) bool {
	for _, rule := range res.TriggeredRules {
		if rule.RuleCode == code {
			return true
		}
	}
	return false
}

func yearsAgo(n int) *time.Time {
	t := time.Now().AddDate(-n, 0, 0)
	return &t
}

// cleanProfile is a well-documented salaried applicant that should not
// trip any rule.
func cleanProfile() *domain.Profile {
	dob := yearsAgo(32)
	start := yearsAgo(5)
	return &domain.Profile{
		Applicant: domain.Applicant{
			ID:            1,
			FirstName:     "Ravi",
			LastName:      "Sharma",
			DateOfBirth:   dob,
			Gender:        "male",
			Phone:         "9876543210",
			Email:         "ravi.sharma@gmail.com",
			Address:       "12 MG Road, Bengaluru",
			City:          "Bengaluru",
			State:         "Karnataka",
			AadhaarNumber: "234123412346",
			PANNumber:     "ABCDE1234F",
		},
		Identity: []domain.IdentityDocument{
			{Type: domain.DocAadhaar, Number: "234123412346", Name: "Ravi Sharma", DateOfBirth: dob, Gender: "male", Address: "12 MG Road Bengaluru Karnataka"},
			{Type: domain.DocPAN, Number: "ABCDE1234F", Name: "Ravi Kumar Sharma", DateOfBirth: dob},
		},
		Employment: &domain.Employment{
			ApplicantID:    1,
			EmployerName:   "Infosys Limited",
			EmployerEmail:  "hr@infosys.com",
			EmploymentType: domain.EmploymentSalaried,
			MonthlyIncome:  80000,
			StartDate:      start,
			DeclaredYears:  5,
		},
		BankRecord: &domain.BankRecord{
			ApplicantID: 1,
			BankName:    "HDFC Bank",
			IFSCCode:    "HDFC0001234",
			TotalCredit: 82000,
			TotalDebit:  40000,
		},
		CreditReport: &domain.CreditReport{
			ApplicantID:       1,
			ActiveLoans:       1,
			TotalMonthlyEMI:   12000,
			CreditUtilization: 30,
			CreditCardCount:   2,
		},
		Loan: &domain.Loan{
			ID:                    10,
			ApplicantID:           1,
			Type:                  "personal",
			Amount:                500000,
			DeclaredExistingLoans: 1,
		},
		Documents: []domain.Document{
			{Type: domain.FilePayslip, OCRText: "Infosys Limited\nBasic: 50,000\nGross: 80,000\nDeduction: 8,000\nNet Pay: Rs 72,000"},
		},
	}
}

func TestIdentityCleanProfile(t *testing.T) {
	repo := newStubRepo()
	eng := NewIdentity(repo, newTestCatalog(repo))

	res, err := eng.Detect(context.Background(), cleanProfile())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(res.TriggeredRules) != 0 {
		t.Fatalf("expected no triggered rules, got %+v", res.TriggeredRules)
	}
	if res.RiskLevel != domain.RiskClean || res.Recommendation != domain.RecommendApprove {
		t.Fatalf("expected CLEAN/APPROVE, got %s/%s", res.RiskLevel, res.Recommendation)
	}
}

func TestIdentityDuplicateAadhaar(t *testing.T) {
	repo := newStubRepo()
	repo.aadhaarCount = 2
	eng := NewIdentity(repo, newTestCatalog(repo))

	res, err := eng.Detect(context.Background(), cleanProfile())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "DUPLICATE_AADHAAR") {
		t.Fatal("expected DUPLICATE_AADHAAR")
	}
	if res.TotalScore != 50 {
		t.Fatalf("expected score 50, got %d", res.TotalScore)
	}
	if res.RiskLevel != domain.RiskMedium {
		t.Fatalf("expected MEDIUM, got %s", res.RiskLevel)
	}
}

func TestIdentityChecksumAndFormat(t *testing.T) {
	repo := newStubRepo()
	eng := NewIdentity(repo, newTestCatalog(repo))

	p := cleanProfile()
	p.Applicant.AadhaarNumber = "234123412345" // checksum off by one
	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "INVALID_AADHAAR_CHECKSUM") {
		t.Fatal("expected INVALID_AADHAAR_CHECKSUM")
	}
	if hasRule(res, "INVALID_AADHAAR_FORMAT") {
		t.Fatal("format rule should not fire when digits are well formed")
	}

	p.Applicant.AadhaarNumber = "12345"
	res, err = eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "INVALID_AADHAAR_FORMAT") {
		t.Fatal("expected INVALID_AADHAAR_FORMAT")
	}
	if hasRule(res, "INVALID_AADHAAR_CHECKSUM") {
		t.Fatal("checksum rule should not fire on malformed input")
	}
}

func TestIdentityMinorApplicant(t *testing.T) {
	repo := newStubRepo()
	eng := NewIdentity(repo, newTestCatalog(repo))

	p := cleanProfile()
	p.Applicant.DateOfBirth = yearsAgo(16)
	p.Identity = nil

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "MINOR_APPLICANT") {
		t.Fatal("expected MINOR_APPLICANT")
	}
	if hasRule(res, "SUSPICIOUS_AGE_LOW") {
		t.Fatal("borderline age rule should not fire for a minor")
	}
}

func TestIdentityInactiveRuleSuppressed(t *testing.T) {
	repo := newStubRepo()
	repo.aadhaarCount = 1
	repo.deactivate("DUPLICATE_AADHAAR")
	eng := NewIdentity(repo, newTestCatalog(repo))

	res, err := eng.Detect(context.Background(), cleanProfile())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if hasRule(res, "DUPLICATE_AADHAAR") {
		t.Fatal("deactivated rule must not fire")
	}
}

func TestFinancialLoanToIncome(t *testing.T) {
	repo := newStubRepo()
	eng := NewFinancial(newTestCatalog(repo))
	ctx := context.Background()

	p := cleanProfile()
	p.Employment.MonthlyIncome = 10000
	p.Loan.Amount = 3000000 // 25x annual

	res, err := eng.Detect(ctx, p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "HIGH_LOAN_TO_INCOME_RATIO") {
		t.Fatal("expected HIGH_LOAN_TO_INCOME_RATIO at 25x")
	}

	// Exactly 20.00x is elevated, not high.
	p.Loan.Amount = 2400000
	res, err = eng.Detect(ctx, p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if hasRule(res, "HIGH_LOAN_TO_INCOME_RATIO") {
		t.Fatal("exactly 20x must not trip the high rule")
	}
	if !hasRule(res, "ELEVATED_LOAN_TO_INCOME_RATIO") {
		t.Fatal("expected ELEVATED_LOAN_TO_INCOME_RATIO at 20x")
	}
}

func TestFinancialCreditUtilizationBands(t *testing.T) {
	repo := newStubRepo()
	eng := NewFinancial(newTestCatalog(repo))
	ctx := context.Background()

	p := cleanProfile()
	p.CreditReport.CreditUtilization = 92

	res, err := eng.Detect(ctx, p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "CRITICAL_CREDIT_UTILIZATION") {
		t.Fatal("expected CRITICAL_CREDIT_UTILIZATION at 92%")
	}
	if hasRule(res, "EXCESSIVE_CREDIT_UTILIZATION") {
		t.Fatal("only the critical band should fire at 92%")
	}

	p.CreditReport.CreditUtilization = 85
	res, err = eng.Detect(ctx, p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "EXCESSIVE_CREDIT_UTILIZATION") {
		t.Fatal("expected EXCESSIVE_CREDIT_UTILIZATION at 85%")
	}
}

func TestFinancialSalaryMismatchNeedsPayslip(t *testing.T) {
	repo := newStubRepo()
	eng := NewFinancial(newTestCatalog(repo))
	ctx := context.Background()

	p := cleanProfile()
	p.BankRecord.TotalCredit = 20000 // far below declared 80000

	res, err := eng.Detect(ctx, p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "SALARY_MISMATCH") {
		t.Fatal("expected SALARY_MISMATCH with a payslip on file")
	}

	p.Documents = nil
	res, err = eng.Detect(ctx, p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if hasRule(res, "SALARY_MISMATCH") {
		t.Fatal("salary mismatch must not fire without a payslip")
	}
}

func TestFinancialUnfiledITR(t *testing.T) {
	repo := newStubRepo()
	eng := NewFinancial(newTestCatalog(repo))

	p := cleanProfile()
	p.Employment.EmploymentType = domain.EmploymentSelfEmployed
	p.Employment.MonthlyIncome = 90000
	p.Documents = nil

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "UNFILED_ITR") {
		t.Fatal("expected UNFILED_ITR")
	}
}

func TestFinancialLowBalanceOverdrawn(t *testing.T) {
	repo := newStubRepo()
	eng := NewFinancial(newTestCatalog(repo))

	p := cleanProfile()
	p.BankRecord.TotalCredit = 30000
	p.BankRecord.TotalDebit = 90000

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "LOW_BALANCE_HIGH_LOAN") {
		t.Fatal("an overdrawn month should read as zero balance")
	}
}

func TestEmploymentMissingDetails(t *testing.T) {
	repo := newStubRepo()
	eng := NewEmployment(newTestCatalog(repo))

	p := cleanProfile()
	p.Employment = nil

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "MISSING_EMPLOYMENT_DETAILS") {
		t.Fatal("expected MISSING_EMPLOYMENT_DETAILS")
	}
	if len(res.TriggeredRules) != 1 {
		t.Fatalf("missing employment should short-circuit, got %+v", res.TriggeredRules)
	}
}

func TestEmploymentShellCompany(t *testing.T) {
	repo := newStubRepo()
	eng := NewEmployment(newTestCatalog(repo))

	p := cleanProfile()
	p.Employment.EmployerName = "Quick Trading Exports"
	p.Employment.EmployerEmail = ""
	p.Documents[0].OCRText = "Quick Trading Exports\nBasic Gross Deduction Net Pay"

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "SHELL_COMPANY_EMPLOYER") {
		t.Fatal("expected SHELL_COMPANY_EMPLOYER")
	}
	if hasRule(res, "UNVERIFIED_EMPLOYER") {
		t.Fatal("shell and unverified are mutually exclusive")
	}
	// Two shell keywords also accumulate ghost signals.
	if !hasRule(res, "SUSPICIOUS_EMPLOYER") {
		t.Fatal("expected SUSPICIOUS_EMPLOYER from accumulated signals")
	}
}

func TestEmploymentKnownEmployerSkipsChecks(t *testing.T) {
	repo := newStubRepo()
	eng := NewEmployment(newTestCatalog(repo))

	res, err := eng.Detect(context.Background(), cleanProfile())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	for _, code := range []string{"UNVERIFIED_EMPLOYER", "SHELL_COMPANY_EMPLOYER", "GHOST_COMPANY", "SUSPICIOUS_EMPLOYER"} {
		if hasRule(res, code) {
			t.Fatalf("known employer must not trip %s", code)
		}
	}
}

func TestEmploymentFakeEmployerEmail(t *testing.T) {
	repo := newStubRepo()
	eng := NewEmployment(newTestCatalog(repo))

	p := cleanProfile()
	p.Employment.EmployerEmail = "infosys.hr@gmail.com"

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "FAKE_EMPLOYER_EMAIL") {
		t.Fatal("expected FAKE_EMPLOYER_EMAIL for a free mail domain")
	}
}

func TestEmploymentFutureStartDate(t *testing.T) {
	repo := newStubRepo()
	eng := NewEmployment(newTestCatalog(repo))

	p := cleanProfile()
	future := time.Now().AddDate(1, 0, 0)
	p.Employment.StartDate = &future

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "FUTURE_EMPLOYMENT_DATE") {
		t.Fatal("expected FUTURE_EMPLOYMENT_DATE")
	}
	if hasRule(res, "EMPLOYMENT_DURATION_MISMATCH") {
		t.Fatal("duration mismatch must not fire on a future start date")
	}
}

func TestEmploymentTemplatePayslip(t *testing.T) {
	repo := newStubRepo()
	eng := NewEmployment(newTestCatalog(repo))

	p := cleanProfile()
	p.Documents[0].OCRText = "SAMPLE PAYSLIP TEMPLATE\nInfosys\nBasic Gross Deduction Net Pay"

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "FAKE_PAYSLIP_TEMPLATE") {
		t.Fatal("expected FAKE_PAYSLIP_TEMPLATE")
	}
}

func TestCrossVerifyNameAcrossSources(t *testing.T) {
	repo := newStubRepo()
	eng := NewCrossVerify(repo, newTestCatalog(repo))

	p := cleanProfile()
	p.Identity[1].Name = "Suresh Patel"

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "NAME_CROSS_VERIFICATION_FAILED") {
		t.Fatal("expected NAME_CROSS_VERIFICATION_FAILED")
	}
	for _, rule := range res.TriggeredRules {
		if rule.RuleCode == "NAME_CROSS_VERIFICATION_FAILED" {
			if !strings.Contains(rule.Details, "form: Ravi Sharma") {
				t.Fatalf("details should label sources, got %q", rule.Details)
			}
		}
	}
}

func TestCrossVerifyNameNeedsThreeSources(t *testing.T) {
	repo := newStubRepo()
	eng := NewCrossVerify(repo, newTestCatalog(repo))

	// Form plus a single disagreeing Aadhaar name is two sources,
	// below the gate for the name check.
	p := cleanProfile()
	p.Identity = p.Identity[:1]
	p.Identity[0].Name = "Suresh Patel"

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if hasRule(res, "NAME_CROSS_VERIFICATION_FAILED") {
		t.Fatal("two sources must not flag a name mismatch")
	}
}

func TestCrossVerifyHiddenLoans(t *testing.T) {
	repo := newStubRepo()
	eng := NewCrossVerify(repo, newTestCatalog(repo))

	p := cleanProfile()
	p.Loan.DeclaredExistingLoans = 0
	p.Documents = append(p.Documents, domain.Document{
		Type:    domain.FileBankStatement,
		OCRText: "01/05 EMI debit 12,000\n01/06 loan repayment 8,000",
	})

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "HIDDEN_LOANS_DETECTED") {
		t.Fatal("expected HIDDEN_LOANS_DETECTED")
	}
}

func TestCrossVerifyIFSC(t *testing.T) {
	repo := newStubRepo()
	eng := NewCrossVerify(repo, newTestCatalog(repo))
	ctx := context.Background()

	p := cleanProfile()
	p.BankRecord.IFSCCode = "HD1C0001234"
	res, err := eng.Detect(ctx, p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "INVALID_IFSC_CODE") {
		t.Fatal("expected INVALID_IFSC_CODE")
	}

	p.BankRecord.IFSCCode = "ICIC0001234" // valid format, wrong bank
	res, err = eng.Detect(ctx, p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if hasRule(res, "INVALID_IFSC_CODE") {
		t.Fatal("format rule must not fire on a well-formed IFSC")
	}
	if !hasRule(res, "BANK_IFSC_MISMATCH") {
		t.Fatal("expected BANK_IFSC_MISMATCH for HDFC with an ICIC prefix")
	}
}

func TestCrossVerifyGoldLoan(t *testing.T) {
	repo := newStubRepo()
	eng := NewCrossVerify(repo, newTestCatalog(repo))
	ctx := context.Background()

	p := cleanProfile()
	p.Loan.Type = "gold"
	res, err := eng.Detect(ctx, p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "GOLD_LOAN_NO_COLLATERAL") {
		t.Fatal("expected GOLD_LOAN_NO_COLLATERAL")
	}

	p.Collateral = &domain.Collateral{
		LoanID:      10,
		ApplicantID: 1,
		Type:        "gold",
		OwnerName:   "Ravi Sharma",
	}
	res, err = eng.Detect(ctx, p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if hasRule(res, "GOLD_LOAN_NO_COLLATERAL") {
		t.Fatal("collateral present, rule must not fire")
	}
	if !hasRule(res, "GOLD_NO_VALUATION_REPORT") {
		t.Fatal("expected GOLD_NO_VALUATION_REPORT")
	}
}

func TestCrossVerifyDuplicateValuation(t *testing.T) {
	repo := newStubRepo()
	repo.valuationCount = 3
	eng := NewCrossVerify(repo, newTestCatalog(repo))

	p := cleanProfile()
	p.Collateral = &domain.Collateral{
		LoanID:             10,
		ApplicantID:        1,
		Type:               "gold",
		OwnerName:          "Ravi Sharma",
		ValuationReportURL: "https://reports.example/val-42.pdf",
	}

	res, err := eng.Detect(context.Background(), p)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !hasRule(res, "DUPLICATE_GOLD_VALUATION") {
		t.Fatal("expected DUPLICATE_GOLD_VALUATION")
	}
}

func TestMergeClassifiesAcrossEngines(t *testing.T) {
	a := domain.NewDetectionResult(1, "Ravi Sharma")
	a.Add(domain.TriggeredRule{RuleCode: "DUPLICATE_AADHAAR", Severity: domain.SeverityCritical, Points: 50})

	b := domain.NewDetectionResult(1, "Ravi Sharma")
	b.Add(domain.TriggeredRule{RuleCode: "SALARY_MISMATCH", Severity: domain.SeverityHigh, Points: 55})

	merged := Merge(a, b)
	if merged.TotalScore != 105 {
		t.Fatalf("expected 105, got %d", merged.TotalScore)
	}
	if merged.RiskLevel != domain.RiskCritical || !merged.IsFraudulent {
		t.Fatalf("expected CRITICAL fraudulent, got %s", merged.RiskLevel)
	}
	if merged.Recommendation != domain.RecommendReject {
		t.Fatalf("expected REJECT, got %s", merged.Recommendation)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		score      int
		level      domain.RiskLevel
		fraudulent bool
		rec        domain.Recommendation
	}{
		{0, domain.RiskClean, false, domain.RecommendApprove},
		{9, domain.RiskClean, false, domain.RecommendApprove},
		{10, domain.RiskLow, false, domain.RecommendReview},
		{29, domain.RiskLow, false, domain.RecommendReview},
		{30, domain.RiskMedium, false, domain.RecommendReview},
		{59, domain.RiskMedium, false, domain.RecommendReview},
		{60, domain.RiskHigh, true, domain.RecommendReject},
		{99, domain.RiskHigh, true, domain.RecommendReject},
		{100, domain.RiskCritical, true, domain.RecommendReject},
	}
	for _, tc := range cases {
		res := domain.NewDetectionResult(1, "Ravi Sharma")
		res.TotalScore = tc.score
		res.Classify()
		if res.RiskLevel != tc.level || res.IsFraudulent != tc.fraudulent || res.Recommendation != tc.rec {
			t.Errorf("score %d: got %s fraudulent=%v %s, want %s fraudulent=%v %s",
				tc.score, res.RiskLevel, res.IsFraudulent, res.Recommendation,
				tc.level, tc.fraudulent, tc.rec)
		}
	}
}

func TestMergeEmpty(t *testing.T) {
	merged := Merge()
	if merged.TotalScore != 0 || merged.RiskLevel != domain.RiskClean {
		t.Fatalf("empty merge should classify clean, got %+v", merged)
	}
}

func TestSeverityBreakdown(t *testing.T) {
	rules := []domain.TriggeredRule{
		{Severity: domain.SeverityHigh},
		{Severity: domain.SeverityHigh},
		{Severity: domain.SeverityLow},
	}
	breakdown := SeverityBreakdown(rules)
	if breakdown[domain.SeverityHigh] != 2 || breakdown[domain.SeverityLow] != 1 {
		t.Fatalf("unexpected breakdown %+v", breakdown)
	}
}

func TestExplainOrdersBySeverity(t *testing.T) {
	res := domain.NewDetectionResult(1, "Ravi Sharma")
	res.Add(domain.TriggeredRule{RuleCode: "LOW_RULE", Severity: domain.SeverityLow, Points: 10})
	res.Add(domain.TriggeredRule{RuleCode: "CRITICAL_RULE", Severity: domain.SeverityCritical, Points: 50})
	res.Classify()

	lines := Explain(res)
	if len(lines) != 3 {
		t.Fatalf("expected header plus two rules, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "CRITICAL_RULE") {
		t.Fatalf("critical rule should come first, got %q", lines[1])
	}
}
