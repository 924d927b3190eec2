package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/opensource-finance/shikra/internal/domain"
	"github.com/opensource-finance/shikra/internal/match"
	"github.com/opensource-finance/shikra/internal/rules"
)

// Affordability thresholds.
const (
	loanIncomeHighRatio     = 20.0
	loanIncomeElevatedRatio = 10.0
	debtIncomeHighPct       = 50.0
	debtIncomeElevatedPct   = 40.0
	salaryBandLow           = 0.70
	salaryBandHigh          = 1.30
	itrBandLow              = 0.60
	itrBandHigh             = 1.40
	itrIncomeFloor          = 50000.0
)

var (
	chequeBounceKeywords = []string{"cheque bounce", "insufficient funds", "payment failed", "dishonoured"}
	cashSalaryKeywords   = []string{"cash", "daily wage", "contract", "freelance"}
)

// Financial checks affordability, bank statement consistency and the
// applicant's credit footprint.
type Financial struct {
	catalog *rules.Catalog
}

// NewFinancial creates the financial engine.
func NewFinancial(catalog *rules.Catalog) *Financial {
	return &Financial{catalog: catalog}
}

// Category implements Detector.
func (e *Financial) Category() domain.Category { return domain.CategoryFinancial }

// Detect implements Detector.
func (e *Financial) Detect(ctx context.Context, p *domain.Profile) (*domain.DetectionResult, error) {
	defs, err := e.catalog.ActiveByCategory(ctx, domain.CategoryFinancial)
	if err != nil {
		return nil, err
	}

	res := domain.NewDetectionResult(p.Applicant.ID, p.Applicant.FullName())

	e.checkLoanToIncome(p, defs, res)
	e.checkDebtToIncome(p, defs, res)
	e.checkSalaryMismatch(p, defs, res)
	e.checkLowBalance(p, defs, res)
	e.checkChequeBounces(p, defs, res)
	e.checkCashSalary(p, defs, res)
	e.checkUnfiledITR(p, defs, res)
	e.checkITRIncome(p, defs, res)
	e.checkCreditUtilization(p, defs, res)
	e.checkActiveLoans(p, defs, res)
	e.checkCreditFootprint(p, defs, res)

	res.Classify()
	return res, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (e *Financial) checkLoanToIncome(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Loan == nil || p.Employment == nil || p.Employment.MonthlyIncome <= 0 {
		return
	}

	annual := p.Employment.MonthlyIncome * 12
	ratio := round2(p.Loan.Amount / annual)

	// Strict inequality: a ratio of exactly 20.00 is elevated, not high.
	if ratio > loanIncomeHighRatio {
		trigger(res, defs, "HIGH_LOAN_TO_INCOME_RATIO",
			fmt.Sprintf("Loan %.0f is %.2fx annual income %.0f", p.Loan.Amount, ratio, annual))
	} else if ratio > loanIncomeElevatedRatio {
		trigger(res, defs, "ELEVATED_LOAN_TO_INCOME_RATIO",
			fmt.Sprintf("Loan %.0f is %.2fx annual income %.0f", p.Loan.Amount, ratio, annual))
	}
}

func (e *Financial) checkDebtToIncome(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.CreditReport == nil || p.Employment == nil || p.Employment.MonthlyIncome <= 0 {
		return
	}

	pct := round2(p.CreditReport.TotalMonthlyEMI / p.Employment.MonthlyIncome * 100)

	if pct > debtIncomeHighPct {
		trigger(res, defs, "HIGH_DEBT_TO_INCOME_RATIO",
			fmt.Sprintf("Existing EMIs consume %.2f%% of monthly income", pct))
	} else if pct > debtIncomeElevatedPct {
		trigger(res, defs, "ELEVATED_DEBT_TO_INCOME_RATIO",
			fmt.Sprintf("Existing EMIs consume %.2f%% of monthly income", pct))
	}
}

func (e *Financial) checkSalaryMismatch(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.BankRecord == nil || p.Employment == nil || p.Employment.MonthlyIncome <= 0 {
		return
	}
	// Only meaningful when a payslip backs the declared figure.
	if !p.HasDocument(domain.FilePayslip) {
		return
	}

	declared := p.Employment.MonthlyIncome
	credited := p.BankRecord.TotalCredit

	if credited < declared*salaryBandLow || credited > declared*salaryBandHigh {
		variance := round2((credited - declared) / declared * 100)
		trigger(res, defs, "SALARY_MISMATCH",
			fmt.Sprintf("Bank credits %.0f deviate %.2f%% from declared salary %.0f", credited, variance, declared))
	}
}

func (e *Financial) checkLowBalance(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.BankRecord == nil || p.Loan == nil || p.Loan.Amount <= 0 {
		return
	}

	balance := p.BankRecord.AverageBalance()
	if balance < p.Loan.Amount*0.01 && balance < 10000 {
		trigger(res, defs, "LOW_BALANCE_HIGH_LOAN",
			fmt.Sprintf("Average balance %.0f against requested loan %.0f", balance, p.Loan.Amount))
	}
}

func (e *Financial) checkChequeBounces(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.BankRecord == nil {
		return
	}
	for _, anomaly := range p.BankRecord.Anomalies {
		if match.ContainsAny(anomaly, chequeBounceKeywords) {
			trigger(res, defs, "FREQUENT_CHEQUE_BOUNCES",
				fmt.Sprintf("Statement anomaly: %s", anomaly))
			return
		}
	}
}

func (e *Financial) checkCashSalary(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Employment == nil || p.Employment.EmployerName == "" {
		return
	}
	if match.ContainsAny(p.Employment.EmployerName, cashSalaryKeywords) {
		trigger(res, defs, "CASH_SALARY_DECLARATION",
			fmt.Sprintf("Employer %q suggests informal salary", p.Employment.EmployerName))
	}
}

func (e *Financial) checkUnfiledITR(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Employment == nil || p.Employment.EmploymentType != domain.EmploymentSelfEmployed {
		return
	}
	if p.Employment.MonthlyIncome > itrIncomeFloor && !p.HasDocument(domain.FileITR) {
		trigger(res, defs, "UNFILED_ITR",
			fmt.Sprintf("Self-employed income %.0f/month with no ITR on file", p.Employment.MonthlyIncome))
	}
}

func (e *Financial) checkITRIncome(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Employment == nil || p.Employment.MonthlyIncome <= 0 {
		return
	}
	itr := p.DocumentOfType(domain.FileITR)
	if itr == nil || itr.OCRText == "" {
		return
	}

	itrIncome, ok := match.ExtractAmount(itr.OCRText, match.ITRIncomePatterns)
	if !ok {
		// Extraction miss is not evidence of fraud.
		return
	}

	annual := p.Employment.MonthlyIncome * 12
	if itrIncome < annual*itrBandLow || itrIncome > annual*itrBandHigh {
		variance := round2((itrIncome - annual) / annual * 100)
		trigger(res, defs, "ITR_SALARY_MISMATCH",
			fmt.Sprintf("ITR income %.0f deviates %.2f%% from declared annual %.0f", itrIncome, variance, annual))
	}
}

func (e *Financial) checkCreditUtilization(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.CreditReport == nil {
		return
	}

	util := p.CreditReport.CreditUtilization
	if util > 90 {
		trigger(res, defs, "CRITICAL_CREDIT_UTILIZATION",
			fmt.Sprintf("Credit utilization at %.1f%%", util))
	} else if util > 80 {
		trigger(res, defs, "EXCESSIVE_CREDIT_UTILIZATION",
			fmt.Sprintf("Credit utilization at %.1f%%", util))
	}
}

func (e *Financial) checkActiveLoans(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.CreditReport == nil {
		return
	}

	loans := p.CreditReport.ActiveLoans
	if loans >= 5 {
		trigger(res, defs, "EXCESSIVE_ACTIVE_LOANS",
			fmt.Sprintf("%d active loans on the credit report", loans))
	} else if loans >= 3 {
		trigger(res, defs, "MULTIPLE_ACTIVE_LOANS",
			fmt.Sprintf("%d active loans on the credit report", loans))
	}
}

func (e *Financial) checkCreditFootprint(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	age := p.Applicant.Age(time.Now())
	if age < 0 {
		return
	}

	hasITR := p.HasDocument(domain.FileITR)
	cards, loans := 0, 0
	if p.CreditReport != nil {
		cards = p.CreditReport.CreditCardCount
		loans = p.CreditReport.ActiveLoans
	}

	if age > 25 && !hasITR && cards == 0 && loans == 0 {
		trigger(res, defs, "SHORT_CREDIT_HISTORY",
			fmt.Sprintf("No credit footprint at age %d", age))
	} else if age < 23 && !hasITR && cards == 0 {
		trigger(res, defs, "NEW_TO_CREDIT",
			fmt.Sprintf("No credit footprint at age %d", age))
	}
}
