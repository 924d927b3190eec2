package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/shikra/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "shikra-test.db"),
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func saveApplicant(t *testing.T, repo domain.Repository, a *domain.Applicant) *domain.Applicant {
	t.Helper()
	if err := repo.SaveApplicant(context.Background(), a); err != nil {
		t.Fatalf("SaveApplicant failed: %v", err)
	}
	return a
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetApplicant", func(t *testing.T) {
		dob := time.Date(1992, 4, 11, 0, 0, 0, 0, time.UTC)
		a := saveApplicant(t, repo, &domain.Applicant{
			FirstName:     "Ravi",
			LastName:      "Sharma",
			DateOfBirth:   &dob,
			Gender:        "male",
			Phone:         "9876543210",
			Email:         "ravi@example.com",
			City:          "Bengaluru",
			State:         "Karnataka",
			AadhaarNumber: "234123412346",
			PANNumber:     "ABCDE1234F",
		})
		if a.ID == 0 {
			t.Fatal("expected SaveApplicant to assign an id")
		}

		retrieved, err := repo.GetApplicant(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetApplicant failed: %v", err)
		}
		if retrieved.FullName() != "Ravi Sharma" {
			t.Errorf("expected Ravi Sharma, got %s", retrieved.FullName())
		}
		if retrieved.DateOfBirth == nil || !retrieved.DateOfBirth.Equal(dob) {
			t.Errorf("date of birth round trip failed: %v", retrieved.DateOfBirth)
		}
		if retrieved.PANNumber != "ABCDE1234F" {
			t.Errorf("expected PAN ABCDE1234F, got %s", retrieved.PANNumber)
		}
	})

	t.Run("UpdateApplicant", func(t *testing.T) {
		a := saveApplicant(t, repo, &domain.Applicant{FirstName: "Meera", LastName: "Nair"})

		a.City = "Kochi"
		if err := repo.SaveApplicant(ctx, a); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		retrieved, err := repo.GetApplicant(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetApplicant failed: %v", err)
		}
		if retrieved.City != "Kochi" {
			t.Errorf("expected updated city, got %q", retrieved.City)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.GetApplicant(ctx, 999999); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.GetProfile(ctx, 999999); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.GetLoan(ctx, 999999); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("ProfileAssembly", func(t *testing.T) {
		a := saveApplicant(t, repo, &domain.Applicant{FirstName: "Arjun", LastName: "Rao"})

		dob := time.Date(1990, 1, 15, 0, 0, 0, 0, time.UTC)
		if err := repo.SaveIdentityDocument(ctx, &domain.IdentityDocument{
			ApplicantID: a.ID,
			Type:        domain.DocAadhaar,
			Number:      "234123412346",
			Name:        "Arjun Rao",
			DateOfBirth: &dob,
		}); err != nil {
			t.Fatalf("SaveIdentityDocument failed: %v", err)
		}

		if err := repo.SaveEmployment(ctx, &domain.Employment{
			ApplicantID:    a.ID,
			EmployerName:   "Infosys Limited",
			EmploymentType: domain.EmploymentSalaried,
			MonthlyIncome:  75000,
		}); err != nil {
			t.Fatalf("SaveEmployment failed: %v", err)
		}

		if err := repo.SaveBankRecord(ctx, &domain.BankRecord{
			ApplicantID: a.ID,
			BankName:    "HDFC Bank",
			IFSCCode:    "HDFC0001234",
			TotalCredit: 76000,
			TotalDebit:  40000,
			Anomalies:   []string{"cheque bounce on 03/05"},
		}); err != nil {
			t.Fatalf("SaveBankRecord failed: %v", err)
		}

		if err := repo.SaveCreditReport(ctx, &domain.CreditReport{
			ApplicantID:       a.ID,
			ActiveLoans:       2,
			TotalMonthlyEMI:   15000,
			CreditUtilization: 45,
			CreditCardCount:   1,
		}); err != nil {
			t.Fatalf("SaveCreditReport failed: %v", err)
		}

		loan := &domain.Loan{ApplicantID: a.ID, Type: "gold", Amount: 300000}
		if err := repo.SaveLoan(ctx, loan); err != nil {
			t.Fatalf("SaveLoan failed: %v", err)
		}
		if loan.ID == 0 {
			t.Fatal("expected SaveLoan to assign an id")
		}
		if loan.Status != domain.LoanStatusPending {
			t.Errorf("expected default pending status, got %s", loan.Status)
		}

		if err := repo.SaveCollateral(ctx, &domain.Collateral{
			LoanID:             loan.ID,
			ApplicantID:        a.ID,
			Type:               "gold",
			OwnerName:          "Arjun Rao",
			EstimatedValue:     350000,
			ValuationReportURL: "https://reports.example/val-1.pdf",
		}); err != nil {
			t.Fatalf("SaveCollateral failed: %v", err)
		}

		if err := repo.SaveDocument(ctx, &domain.Document{
			ApplicantID: a.ID,
			Type:        domain.FilePayslip,
			OCRText:     "Net Pay: Rs 70,000",
		}); err != nil {
			t.Fatalf("SaveDocument failed: %v", err)
		}

		profile, err := repo.GetProfile(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if len(profile.Identity) != 1 || profile.Identity[0].Name != "Arjun Rao" {
			t.Errorf("identity documents not assembled: %+v", profile.Identity)
		}
		if profile.Employment == nil || profile.Employment.EmployerName != "Infosys Limited" {
			t.Errorf("employment not assembled: %+v", profile.Employment)
		}
		if profile.BankRecord == nil || len(profile.BankRecord.Anomalies) != 1 {
			t.Errorf("bank record not assembled: %+v", profile.BankRecord)
		}
		if profile.CreditReport == nil || profile.CreditReport.ActiveLoans != 2 {
			t.Errorf("credit report not assembled: %+v", profile.CreditReport)
		}
		if profile.Loan == nil || profile.Loan.ID != loan.ID {
			t.Errorf("loan not assembled: %+v", profile.Loan)
		}
		if profile.Collateral == nil || profile.Collateral.OwnerName != "Arjun Rao" {
			t.Errorf("collateral not assembled: %+v", profile.Collateral)
		}
		if len(profile.Documents) != 1 {
			t.Errorf("documents not assembled: %+v", profile.Documents)
		}
	})

	t.Run("SparseProfile", func(t *testing.T) {
		a := saveApplicant(t, repo, &domain.Applicant{FirstName: "Kiran"})

		profile, err := repo.GetProfile(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if profile.Employment != nil || profile.BankRecord != nil || profile.Loan != nil {
			t.Error("missing sub-records must be nil, not zero values")
		}
	})

	t.Run("DuplicateCounts", func(t *testing.T) {
		shared := "555566667777"
		first := saveApplicant(t, repo, &domain.Applicant{FirstName: "Dup", LastName: "One", AadhaarNumber: shared, Phone: "9000000001"})
		saveApplicant(t, repo, &domain.Applicant{FirstName: "Dup", LastName: "Two", AadhaarNumber: shared, Phone: "9000000001"})

		count, err := repo.CountApplicantsByAadhaar(ctx, shared, first.ID)
		if err != nil {
			t.Fatalf("CountApplicantsByAadhaar failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 other applicant, got %d", count)
		}

		count, err = repo.CountApplicantsByPhone(ctx, "9000000001", first.ID)
		if err != nil {
			t.Fatalf("CountApplicantsByPhone failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 other applicant by phone, got %d", count)
		}

		if _, err := repo.CountApplicantsByAadhaar(ctx, "", first.ID); err == nil {
			t.Error("expected error for empty value")
		}
	})

	t.Run("ValuationReportReuse", func(t *testing.T) {
		url := "https://reports.example/shared.pdf"
		a1 := saveApplicant(t, repo, &domain.Applicant{FirstName: "Gold", LastName: "One"})
		a2 := saveApplicant(t, repo, &domain.Applicant{FirstName: "Gold", LastName: "Two"})

		for _, a := range []*domain.Applicant{a1, a2} {
			loan := &domain.Loan{ApplicantID: a.ID, Type: "gold", Amount: 100000}
			if err := repo.SaveLoan(ctx, loan); err != nil {
				t.Fatalf("SaveLoan failed: %v", err)
			}
			if err := repo.SaveCollateral(ctx, &domain.Collateral{
				LoanID:             loan.ID,
				ApplicantID:        a.ID,
				Type:               "gold",
				ValuationReportURL: url,
			}); err != nil {
				t.Fatalf("SaveCollateral failed: %v", err)
			}
		}

		count, err := repo.CountCollateralsByValuationReport(ctx, url, a1.ID)
		if err != nil {
			t.Fatalf("CountCollateralsByValuationReport failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 other applicant reusing the report, got %d", count)
		}
	})
}

func TestRuleCatalogPersistence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	def := &domain.RuleDefinition{
		Code:           "DUPLICATE_AADHAAR",
		Name:           "Duplicate Aadhaar Number",
		Category:       domain.CategoryIdentity,
		Severity:       domain.SeverityCritical,
		Points:         50,
		Active:         true,
		RuleType:       domain.RuleTypeDuplicateCheck,
		ExecutionOrder: 10,
	}
	if err := repo.SaveRuleDefinition(ctx, def); err != nil {
		t.Fatalf("SaveRuleDefinition failed: %v", err)
	}

	retrieved, err := repo.GetRuleByCode(ctx, "DUPLICATE_AADHAAR")
	if err != nil {
		t.Fatalf("GetRuleByCode failed: %v", err)
	}
	if retrieved.Points != 50 || retrieved.Severity != domain.SeverityCritical {
		t.Errorf("rule round trip failed: %+v", retrieved)
	}

	// Upsert updates in place, no duplicate row.
	def.Points = 40
	if err := repo.SaveRuleDefinition(ctx, def); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	retrieved, err = repo.GetRuleByCode(ctx, "DUPLICATE_AADHAAR")
	if err != nil {
		t.Fatalf("GetRuleByCode failed: %v", err)
	}
	if retrieved.Points != 40 {
		t.Errorf("expected retuned points 40, got %d", retrieved.Points)
	}

	active, err := repo.ListActiveRulesByCategory(ctx, domain.CategoryIdentity)
	if err != nil {
		t.Fatalf("ListActiveRulesByCategory failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active rule, got %d", len(active))
	}

	if err := repo.SetRuleActive(ctx, "DUPLICATE_AADHAAR", false); err != nil {
		t.Fatalf("SetRuleActive failed: %v", err)
	}
	active, err = repo.ListActiveRulesByCategory(ctx, domain.CategoryIdentity)
	if err != nil {
		t.Fatalf("ListActiveRulesByCategory failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("deactivated rule still listed: %+v", active)
	}

	if err := repo.SetRuleActive(ctx, "NO_SUCH_RULE", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveScreeningResult(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := saveApplicant(t, repo, &domain.Applicant{FirstName: "Screen", LastName: "Me"})
	loan := &domain.Loan{ApplicantID: a.ID, Type: "personal", Amount: 200000}
	if err := repo.SaveLoan(ctx, loan); err != nil {
		t.Fatalf("SaveLoan failed: %v", err)
	}

	flags := []*domain.FraudFlag{
		{
			ID:             "flag-001",
			ApplicantID:    a.ID,
			LoanID:         &loan.ID,
			RuleCode:       "DUPLICATE_AADHAAR",
			Category:       domain.CategoryIdentity,
			Severity:       domain.SeverityCritical,
			SeverityWeight: 4,
			Points:         50,
		},
		{
			ID:             "flag-002",
			ApplicantID:    a.ID,
			LoanID:         &loan.ID,
			RuleCode:       "SALARY_MISMATCH",
			Category:       domain.CategoryFinancial,
			Severity:       domain.SeverityHigh,
			SeverityWeight: 3,
			Points:         55,
		},
	}
	if err := repo.SaveScreeningResult(ctx, a.ID, &loan.ID, flags, 105); err != nil {
		t.Fatalf("SaveScreeningResult failed: %v", err)
	}

	updated, err := repo.GetLoan(ctx, loan.ID)
	if err != nil {
		t.Fatalf("GetLoan failed: %v", err)
	}
	if updated.Status != domain.LoanStatusRejected {
		t.Errorf("score 105 must reject the loan, got %s", updated.Status)
	}
	if updated.RiskScore != 105 {
		t.Errorf("expected risk score 105, got %.0f", updated.RiskScore)
	}

	byApplicant, err := repo.ListFlagsByApplicant(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListFlagsByApplicant failed: %v", err)
	}
	if len(byApplicant) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(byApplicant))
	}
	if byApplicant[0].Points < byApplicant[1].Points {
		t.Error("flags should list highest points first")
	}

	byLoan, err := repo.ListFlagsByLoan(ctx, loan.ID)
	if err != nil {
		t.Fatalf("ListFlagsByLoan failed: %v", err)
	}
	if len(byLoan) != 2 {
		t.Errorf("expected 2 flags by loan, got %d", len(byLoan))
	}

	critical, err := repo.ListFlagsBySeverity(ctx, 4)
	if err != nil {
		t.Fatalf("ListFlagsBySeverity failed: %v", err)
	}
	if len(critical) != 1 || critical[0].RuleCode != "DUPLICATE_AADHAAR" {
		t.Errorf("severity filter wrong: %+v", critical)
	}

	// Re-screening replaces the previous flags.
	rerun := []*domain.FraudFlag{{
		ID:             "flag-003",
		ApplicantID:    a.ID,
		LoanID:         &loan.ID,
		RuleCode:       "NEW_TO_CREDIT",
		Category:       domain.CategoryFinancial,
		Severity:       domain.SeverityLow,
		SeverityWeight: 1,
		Points:         20,
	}}
	if err := repo.SaveScreeningResult(ctx, a.ID, &loan.ID, rerun, 20); err != nil {
		t.Fatalf("re-screen failed: %v", err)
	}

	byApplicant, err = repo.ListFlagsByApplicant(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListFlagsByApplicant failed: %v", err)
	}
	if len(byApplicant) != 1 || byApplicant[0].RuleCode != "NEW_TO_CREDIT" {
		t.Errorf("re-screen must replace flags: %+v", byApplicant)
	}

	updated, err = repo.GetLoan(ctx, loan.ID)
	if err != nil {
		t.Fatalf("GetLoan failed: %v", err)
	}
	if updated.Status != domain.LoanStatusPending {
		t.Errorf("score 20 should leave the loan pending, got %s", updated.Status)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
