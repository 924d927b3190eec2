package rules

import (
	"context"
	"log/slog"

	"github.com/opensource-finance/shikra/internal/domain"
)

func def(code, name string, category domain.Category, severity domain.Severity, points, order int, ruleType domain.RuleType, description string) *domain.RuleDefinition {
	return &domain.RuleDefinition{
		Code:           code,
		Name:           name,
		Description:    description,
		Category:       category,
		Severity:       severity,
		Points:         points,
		Active:         true,
		RuleType:       ruleType,
		ExecutionOrder: order,
	}
}

// DefaultRuleDefinitions returns the built-in rule catalog. The seed
// CLI writes these into the repository; operators can retune points,
// severities and active flags afterwards without a deploy.
func DefaultRuleDefinitions() []*domain.RuleDefinition {
	id := domain.CategoryIdentity
	fin := domain.CategoryFinancial
	emp := domain.CategoryEmployment
	xv := domain.CategoryCrossVerification

	threshold := domain.RuleTypeThreshold
	pattern := domain.RuleTypePatternMatch
	duplicate := domain.RuleTypeDuplicateCheck
	cross := domain.RuleTypeCrossCheck

	return []*domain.RuleDefinition{
		// Identity
		def("DUPLICATE_AADHAAR", "Duplicate Aadhaar Number", id, domain.SeverityCritical, 50, 10, duplicate, "Aadhaar number shared with other applicants"),
		def("DUPLICATE_PAN", "Duplicate PAN Number", id, domain.SeverityCritical, 50, 20, duplicate, "PAN number shared with other applicants"),
		def("INVALID_PAN_FORMAT", "Invalid PAN Format", id, domain.SeverityHigh, 30, 30, pattern, "PAN number does not match the valid format"),
		def("INVALID_AADHAAR_FORMAT", "Invalid Aadhaar Format", id, domain.SeverityHigh, 30, 40, pattern, "Aadhaar number is not 12 digits"),
		def("INVALID_AADHAAR_CHECKSUM", "Invalid Aadhaar Checksum", id, domain.SeverityHigh, 35, 50, pattern, "Aadhaar number fails Verhoeff checksum validation"),
		def("DOB_MISMATCH", "Date of Birth Mismatch", id, domain.SeverityHigh, 40, 60, cross, "Date of birth differs across identity documents"),
		def("NAME_MISMATCH", "Name Mismatch", id, domain.SeverityHigh, 35, 70, cross, "Name differs across identity documents"),
		def("GENDER_MISMATCH", "Gender Mismatch", id, domain.SeverityMedium, 25, 80, cross, "Gender differs from Aadhaar record"),
		def("EXPIRED_PASSPORT", "Expired Passport", id, domain.SeverityMedium, 20, 90, threshold, "Passport submitted as identity proof has expired"),
		def("DUPLICATE_PHONE", "Duplicate Phone Number", id, domain.SeverityHigh, 45, 100, duplicate, "Phone number shared with other applicants"),
		def("DUPLICATE_EMAIL", "Duplicate Email Address", id, domain.SeverityHigh, 45, 110, duplicate, "Email address shared with other applicants"),
		def("MINOR_APPLICANT", "Minor Applicant", id, domain.SeverityCritical, 50, 120, threshold, "Applicant is below 18 years of age"),
		def("SUSPICIOUS_AGE_HIGH", "Unusually High Age", id, domain.SeverityLow, 15, 130, threshold, "Applicant is above 80 years of age"),
		def("SUSPICIOUS_AGE_LOW", "Borderline Age", id, domain.SeverityLow, 10, 140, threshold, "Applicant is between 18 and 20 years of age"),
		def("MISSING_AADHAAR", "Missing Aadhaar", id, domain.SeverityMedium, 25, 150, threshold, "No Aadhaar number provided"),
		def("MISSING_PAN", "Missing PAN", id, domain.SeverityMedium, 25, 160, threshold, "No PAN number provided"),
		def("AADHAAR_TAMPERED", "Tampered Aadhaar Document", id, domain.SeverityCritical, 50, 170, pattern, "Aadhaar document shows signs of tampering"),
		def("PAN_TAMPERED", "Tampered PAN Document", id, domain.SeverityCritical, 50, 180, pattern, "PAN document shows signs of tampering"),
		def("PASSPORT_TAMPERED", "Tampered Passport Document", id, domain.SeverityCritical, 50, 190, pattern, "Passport document shows signs of tampering"),
		def("ADDRESS_MISMATCH", "Address Mismatch", id, domain.SeverityMedium, 20, 200, cross, "Address differs from Aadhaar record"),

		// Financial
		def("HIGH_LOAN_TO_INCOME_RATIO", "Very High Loan to Income Ratio", fin, domain.SeverityHigh, 60, 10, threshold, "Loan amount exceeds 20x annual income"),
		def("ELEVATED_LOAN_TO_INCOME_RATIO", "Elevated Loan to Income Ratio", fin, domain.SeverityMedium, 30, 20, threshold, "Loan amount exceeds 10x annual income"),
		def("HIGH_DEBT_TO_INCOME_RATIO", "High Debt to Income Ratio", fin, domain.SeverityHigh, 50, 30, threshold, "Existing EMIs exceed 50% of monthly income"),
		def("ELEVATED_DEBT_TO_INCOME_RATIO", "Elevated Debt to Income Ratio", fin, domain.SeverityMedium, 30, 40, threshold, "Existing EMIs exceed 40% of monthly income"),
		def("SALARY_MISMATCH", "Declared Salary Mismatch", fin, domain.SeverityHigh, 55, 50, cross, "Bank credits deviate more than 30% from declared salary"),
		def("LOW_BALANCE_HIGH_LOAN", "Low Balance High Loan", fin, domain.SeverityHigh, 45, 60, threshold, "Average bank balance negligible against requested loan"),
		def("FREQUENT_CHEQUE_BOUNCES", "Frequent Cheque Bounces", fin, domain.SeverityHigh, 40, 70, pattern, "Bank statement shows bounced or failed payments"),
		def("CASH_SALARY_DECLARATION", "Cash Salary Employment", fin, domain.SeverityMedium, 35, 80, pattern, "Employer name suggests cash or informal salary"),
		def("UNFILED_ITR", "Unfiled Income Tax Return", fin, domain.SeverityHigh, 50, 90, threshold, "Self-employed with high income but no ITR document"),
		def("ITR_SALARY_MISMATCH", "ITR Income Mismatch", fin, domain.SeverityHigh, 55, 100, cross, "ITR income deviates more than 40% from declared income"),
		def("EXCESSIVE_CREDIT_UTILIZATION", "Excessive Credit Utilization", fin, domain.SeverityMedium, 35, 110, threshold, "Credit utilization above 80%"),
		def("CRITICAL_CREDIT_UTILIZATION", "Critical Credit Utilization", fin, domain.SeverityHigh, 45, 120, threshold, "Credit utilization above 90%"),
		def("MULTIPLE_ACTIVE_LOANS", "Multiple Active Loans", fin, domain.SeverityMedium, 25, 130, threshold, "Three or more active loans"),
		def("EXCESSIVE_ACTIVE_LOANS", "Excessive Active Loans", fin, domain.SeverityHigh, 40, 140, threshold, "Five or more active loans"),
		def("SHORT_CREDIT_HISTORY", "Short Credit History", fin, domain.SeverityMedium, 30, 150, threshold, "No credit footprint for an applicant above 25"),
		def("NEW_TO_CREDIT", "New to Credit", fin, domain.SeverityLow, 20, 160, threshold, "Young applicant with no credit footprint"),

		// Employment
		def("MISSING_EMPLOYMENT_DETAILS", "Missing Employment Details", emp, domain.SeverityMedium, 30, 10, threshold, "No employment record provided"),
		def("SHELL_COMPANY_EMPLOYER", "Shell Company Employer", emp, domain.SeverityHigh, 50, 20, pattern, "Employer name matches shell company patterns"),
		def("UNVERIFIED_EMPLOYER", "Unverified Employer", emp, domain.SeverityMedium, 35, 30, pattern, "Employer not found in the known company list"),
		def("FAKE_EMPLOYER_EMAIL", "Fake Employer Email", emp, domain.SeverityHigh, 45, 40, pattern, "Employer email uses a free mail domain"),
		def("PERSONAL_EMAIL_IN_EMPLOYER", "Personal Email as Employer Contact", emp, domain.SeverityHigh, 40, 50, pattern, "Employer contact is a personal mailbox"),
		def("MISSING_PAYSLIP", "Missing Payslip", emp, domain.SeverityMedium, 25, 60, threshold, "Salaried applicant without a payslip document"),
		def("FAKE_PAYSLIP_TEMPLATE", "Template Payslip", emp, domain.SeverityHigh, 50, 70, pattern, "Payslip OCR contains template or sample boilerplate"),
		def("PAYSLIP_EMPLOYER_MISMATCH", "Payslip Employer Mismatch", emp, domain.SeverityHigh, 40, 80, cross, "Payslip does not mention the declared employer"),
		def("INCOMPLETE_PAYSLIP", "Incomplete Payslip", emp, domain.SeverityMedium, 30, 90, pattern, "Payslip missing standard salary components"),
		def("RESIDENTIAL_EMPLOYER_ADDRESS", "Residential Employer Address", emp, domain.SeverityMedium, 35, 100, pattern, "Employer address looks residential"),
		def("VAGUE_EMPLOYER_NAME", "Vague Employer Name", emp, domain.SeverityMedium, 25, 110, pattern, "Employer name is generic and uninformative"),
		def("EMPLOYMENT_DURATION_MISMATCH", "Employment Duration Mismatch", emp, domain.SeverityHigh, 45, 120, cross, "Declared tenure differs from employment start date"),
		def("UNREALISTIC_EMPLOYMENT_DURATION", "Unrealistic Employment Duration", emp, domain.SeverityMedium, 30, 130, threshold, "Employment duration exceeds 40 years"),
		def("FUTURE_EMPLOYMENT_DATE", "Future Employment Start Date", emp, domain.SeverityCritical, 50, 140, threshold, "Employment start date is in the future"),
		def("UNVERIFIABLE_SELF_EMPLOYED", "Unverifiable Self Employment", emp, domain.SeverityHigh, 40, 150, threshold, "Self-employed without GST or business registration"),
		def("SELF_EMPLOYED_NO_ITR", "Self Employed Without ITR", emp, domain.SeverityMedium, 35, 160, threshold, "Self-employed without an ITR document"),
		def("SELF_EMPLOYED_NO_PAN", "Self Employed Without PAN", emp, domain.SeverityMedium, 30, 170, threshold, "Self-employed without a PAN number"),
		def("GHOST_COMPANY", "Ghost Company", emp, domain.SeverityHigh, 50, 180, pattern, "Employer name scores as a likely ghost company"),
		def("SUSPICIOUS_EMPLOYER", "Suspicious Employer", emp, domain.SeverityMedium, 30, 190, pattern, "Employer name carries weak ghost company signals"),

		// Cross-verification
		def("NAME_CROSS_VERIFICATION_FAILED", "Name Cross Verification Failed", xv, domain.SeverityHigh, 50, 10, cross, "Name inconsistent across three or more sources"),
		def("DOB_CROSS_VERIFICATION_FAILED", "DOB Cross Verification Failed", xv, domain.SeverityHigh, 45, 20, cross, "Date of birth inconsistent across sources"),
		def("GENDER_CROSS_VERIFICATION_FAILED", "Gender Cross Verification Failed", xv, domain.SeverityMedium, 30, 30, cross, "Gender inconsistent across sources"),
		def("FATHER_NAME_MISMATCH", "Father Name Mismatch", xv, domain.SeverityMedium, 35, 40, cross, "Father's name inconsistent across sources"),
		def("ADDRESS_CROSS_VERIFICATION_FAILED", "Address Cross Verification Failed", xv, domain.SeverityHigh, 40, 50, cross, "Address inconsistent across three or more sources"),
		def("CITY_MISMATCH", "City Mismatch", xv, domain.SeverityMedium, 25, 60, cross, "City differs between form and documents"),
		def("STATE_MISMATCH", "State Mismatch", xv, domain.SeverityMedium, 25, 70, cross, "State differs between form and documents"),
		def("PAN_CROSS_VERIFICATION_FAILED", "PAN Cross Verification Failed", xv, domain.SeverityHigh, 50, 80, cross, "PAN inconsistent across sources"),
		def("AADHAAR_CROSS_VERIFICATION_FAILED", "Aadhaar Cross Verification Failed", xv, domain.SeverityHigh, 50, 90, cross, "Aadhaar inconsistent across sources"),
		def("PAN_AADHAAR_LINKING_UNVERIFIED", "PAN Aadhaar Linking Unverified", xv, domain.SeverityMedium, 30, 100, cross, "PAN and Aadhaar identity records disagree"),
		def("INCOME_CROSS_VERIFICATION_FAILED", "Income Cross Verification Failed", xv, domain.SeverityHigh, 55, 110, cross, "Documented income deviates more than 30% from declared"),
		def("EMPLOYER_CROSS_VERIFICATION_FAILED", "Employer Cross Verification Failed", xv, domain.SeverityHigh, 45, 120, cross, "Employer name inconsistent across sources"),
		def("INVALID_IFSC_CODE", "Invalid IFSC Code", xv, domain.SeverityMedium, 30, 130, pattern, "Bank IFSC code fails format validation"),
		def("BANK_IFSC_MISMATCH", "Bank IFSC Mismatch", xv, domain.SeverityMedium, 25, 140, cross, "IFSC prefix does not match the declared bank"),
		def("HIDDEN_LOANS_DETECTED", "Hidden Loans Detected", xv, domain.SeverityHigh, 50, 150, cross, "EMI debits found despite zero declared loans"),
		def("LOAN_DECLARATION_MISMATCH", "Loan Declaration Mismatch", xv, domain.SeverityHigh, 40, 160, cross, "Declared loan count far from observed EMI activity"),
		def("HIDDEN_CREDIT_CARDS", "Hidden Credit Cards", xv, domain.SeverityMedium, 35, 170, cross, "Credit card activity exceeds declared card count"),
		def("PROPERTY_OWNER_NAME_MISMATCH", "Property Owner Name Mismatch", xv, domain.SeverityHigh, 45, 180, cross, "Property deed owner differs from applicant"),
		def("PROPERTY_VALUE_MISMATCH", "Property Value Mismatch", xv, domain.SeverityMedium, 35, 190, cross, "Declared property value deviates over 20% from valuation"),
		def("GOLD_LOAN_NO_COLLATERAL", "Gold Loan Without Collateral", xv, domain.SeverityHigh, 40, 200, threshold, "Gold loan application without a collateral record"),
		def("GOLD_NO_VALUATION_REPORT", "Gold Collateral Without Valuation", xv, domain.SeverityMedium, 35, 210, threshold, "Gold collateral without a valuation report"),
		def("DUPLICATE_GOLD_VALUATION", "Duplicate Gold Valuation Report", xv, domain.SeverityHigh, 50, 220, duplicate, "Valuation report reused across applicants"),
		def("PHONE_CROSS_VERIFICATION_FAILED", "Phone Cross Verification Failed", xv, domain.SeverityMedium, 30, 230, cross, "Phone number inconsistent across sources"),
		def("EMAIL_DOMAIN_MISMATCH", "Email Domain Mismatch", xv, domain.SeverityMedium, 25, 240, cross, "Applicant email domain conflicts with employer domain"),
	}
}

// SeedDefaults writes any missing built-in rules into the repository.
// Existing definitions are left untouched so operator tuning survives
// reseeding.
func SeedDefaults(ctx context.Context, repo domain.Repository) (int, error) {
	seeded := 0
	for _, rule := range DefaultRuleDefinitions() {
		if _, err := repo.GetRuleByCode(ctx, rule.Code); err == nil {
			continue
		}
		if err := repo.SaveRuleDefinition(ctx, rule); err != nil {
			return seeded, err
		}
		seeded++
	}
	if seeded > 0 {
		slog.Info("seeded rule catalog", "rules", seeded)
	}
	return seeded, nil
}
