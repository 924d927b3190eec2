package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/opensource-finance/shikra/internal/domain"
	"github.com/opensource-finance/shikra/internal/match"
	"github.com/opensource-finance/shikra/internal/rules"
)

// IFSC prefixes expected for the common retail banks.
var bankIFSCPrefixes = map[string]string{
	"hdfc":  "HDFC",
	"icici": "ICIC",
	"sbi":   "SBIN",
	"axis":  "UTIB",
	"kotak": "KKBK",
	"pnb":   "PUNB",
}

var emiKeywords = []string{"emi", "loan", "installment", "instalment", "repayment"}

var (
	employerLinePattern = regexp.MustCompile(`(?i)employer[:\s]+([^\n]+)`)
	phoneLinePattern    = regexp.MustCompile(`(?i)(?:phone|mobile|contact)[:\s]+(?:\+?91[-\s]?)?([0-9]{10})\b`)

	propertyValuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)market\s*value[:\s]+(?:rs\.?|inr)?\s*([0-9,]+)`),
		regexp.MustCompile(`(?i)estimated\s*value[:\s]+(?:rs\.?|inr)?\s*([0-9,]+)`),
		regexp.MustCompile(`(?i)valuation[:\s]+(?:rs\.?|inr)?\s*([0-9,]+)`),
	}
)

// source is one labeled value in a cross-verification comparison.
type source struct {
	label string
	value string
}

func formatSources(sources []source) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, fmt.Sprintf("%s: %s", s.label, s.value))
	}
	return strings.Join(parts, "; ")
}

// CrossVerify compares the same fact across every source that carries
// it: the application form, KYC documents, OCR'd uploads, the bank
// record and the collateral.
type CrossVerify struct {
	repo    domain.Repository
	catalog *rules.Catalog
}

// NewCrossVerify creates the cross-verification engine.
func NewCrossVerify(repo domain.Repository, catalog *rules.Catalog) *CrossVerify {
	return &CrossVerify{repo: repo, catalog: catalog}
}

// Category implements Detector.
func (e *CrossVerify) Category() domain.Category { return domain.CategoryCrossVerification }

// Detect implements Detector.
func (e *CrossVerify) Detect(ctx context.Context, p *domain.Profile) (*domain.DetectionResult, error) {
	defs, err := e.catalog.ActiveByCategory(ctx, domain.CategoryCrossVerification)
	if err != nil {
		return nil, err
	}

	res := domain.NewDetectionResult(p.Applicant.ID, p.Applicant.FullName())

	e.checkName(p, defs, res)
	e.checkDOB(p, defs, res)
	e.checkGender(p, defs, res)
	e.checkFatherName(p, defs, res)
	e.checkAddress(p, defs, res)
	e.checkCityState(p, defs, res)
	e.checkPAN(p, defs, res)
	e.checkAadhaar(p, defs, res)
	e.checkPANAadhaarLinking(p, defs, res)
	e.checkIncome(p, defs, res)
	e.checkEmployer(p, defs, res)
	e.checkIFSC(p, defs, res)
	e.checkHiddenLiabilities(p, defs, res)
	e.checkCollateral(ctx, p, defs, res)
	e.checkPhone(p, defs, res)
	e.checkEmailDomain(p, defs, res)

	res.Classify()
	return res, nil
}

func (e *CrossVerify) checkName(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	sources := []source{}
	if name := p.Applicant.FullName(); name != "" {
		sources = append(sources, source{"form", name})
	}
	for _, doc := range p.Identity {
		if doc.Name != "" {
			sources = append(sources, source{doc.Type, doc.Name})
		}
	}
	if len(sources) < 3 {
		return
	}

	for i := 1; i < len(sources); i++ {
		if !match.Names(sources[0].value, sources[i].value) {
			trigger(res, defs, "NAME_CROSS_VERIFICATION_FAILED", formatSources(sources))
			return
		}
	}
}

func (e *CrossVerify) checkDOB(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	sources := []source{}
	if p.Applicant.DateOfBirth != nil {
		sources = append(sources, source{"form", p.Applicant.DateOfBirth.Format("2006-01-02")})
	}
	for _, doc := range p.Identity {
		if doc.DateOfBirth != nil {
			sources = append(sources, source{doc.Type, doc.DateOfBirth.Format("2006-01-02")})
		}
	}
	if len(sources) < 3 {
		return
	}

	for i := 1; i < len(sources); i++ {
		if sources[i].value != sources[0].value {
			trigger(res, defs, "DOB_CROSS_VERIFICATION_FAILED", formatSources(sources))
			return
		}
	}
}

func (e *CrossVerify) checkGender(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	sources := []source{}
	if p.Applicant.Gender != "" {
		sources = append(sources, source{"form", p.Applicant.Gender})
	}
	for _, doc := range p.Identity {
		if doc.Gender != "" {
			sources = append(sources, source{doc.Type, doc.Gender})
		}
	}
	if len(sources) < 2 {
		return
	}

	for i := 1; i < len(sources); i++ {
		if !strings.EqualFold(sources[i].value, sources[0].value) {
			trigger(res, defs, "GENDER_CROSS_VERIFICATION_FAILED", formatSources(sources))
			return
		}
	}
}

func (e *CrossVerify) checkFatherName(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	sources := []source{}
	if p.Applicant.FatherName != "" {
		sources = append(sources, source{"form", p.Applicant.FatherName})
	}
	for _, doc := range p.Identity {
		if doc.FatherName != "" {
			sources = append(sources, source{doc.Type, doc.FatherName})
		}
	}
	if len(sources) < 2 {
		return
	}

	for i := 1; i < len(sources); i++ {
		if !match.Names(sources[0].value, sources[i].value) {
			trigger(res, defs, "FATHER_NAME_MISMATCH", formatSources(sources))
			return
		}
	}
}

func (e *CrossVerify) checkAddress(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	sources := []source{}
	if p.Applicant.Address != "" {
		sources = append(sources, source{"form", p.Applicant.Address})
	}
	for _, doc := range p.Identity {
		if doc.Address != "" {
			sources = append(sources, source{doc.Type, doc.Address})
		}
	}
	if len(sources) < 3 {
		return
	}

	for i := 1; i < len(sources); i++ {
		if !match.Addresses(sources[0].value, sources[i].value) {
			trigger(res, defs, "ADDRESS_CROSS_VERIFICATION_FAILED", formatSources(sources))
			return
		}
	}
}

// checkCityState verifies the form's city and state appear in the
// Aadhaar address.
func (e *CrossVerify) checkCityState(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	aadhaar := p.IdentityDoc(domain.DocAadhaar)
	if aadhaar == nil || aadhaar.Address == "" {
		return
	}
	addr := match.Normalize(aadhaar.Address)

	if city := match.Normalize(p.Applicant.City); city != "" && !strings.Contains(addr, city) {
		trigger(res, defs, "CITY_MISMATCH",
			fmt.Sprintf("Form city %q not found in Aadhaar address %q", p.Applicant.City, aadhaar.Address))
	}
	if state := match.Normalize(p.Applicant.State); state != "" && !strings.Contains(addr, state) {
		trigger(res, defs, "STATE_MISMATCH",
			fmt.Sprintf("Form state %q not found in Aadhaar address %q", p.Applicant.State, aadhaar.Address))
	}
}

func (e *CrossVerify) checkPAN(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	sources := []source{}
	if p.Applicant.PANNumber != "" {
		sources = append(sources, source{"form", strings.ToUpper(p.Applicant.PANNumber)})
	}
	if doc := p.IdentityDoc(domain.DocPAN); doc != nil && doc.Number != "" {
		sources = append(sources, source{"pan card", strings.ToUpper(doc.Number)})
	}
	if itr := p.DocumentOfType(domain.FileITR); itr != nil {
		if pan, ok := match.ExtractPAN(itr.OCRText); ok {
			sources = append(sources, source{"itr", pan})
		}
	}
	if len(sources) < 2 {
		return
	}

	for i := 1; i < len(sources); i++ {
		if sources[i].value != sources[0].value {
			trigger(res, defs, "PAN_CROSS_VERIFICATION_FAILED", formatSources(sources))
			return
		}
	}
}

func (e *CrossVerify) checkAadhaar(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	form := p.Applicant.AadhaarNumber
	doc := p.IdentityDoc(domain.DocAadhaar)
	if form == "" || doc == nil || doc.Number == "" {
		return
	}

	docNum := strings.ReplaceAll(doc.Number, " ", "")
	if docNum != form {
		trigger(res, defs, "AADHAAR_CROSS_VERIFICATION_FAILED",
			fmt.Sprintf("form: %s; aadhaar card: %s", match.MaskAadhaar(form), match.MaskAadhaar(docNum)))
	}
}

// checkPANAadhaarLinking compares the identity recorded on the PAN
// card against the Aadhaar card. Disagreement on name or date of birth
// means the two were likely never linked to the same person.
func (e *CrossVerify) checkPANAadhaarLinking(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	pan := p.IdentityDoc(domain.DocPAN)
	aadhaar := p.IdentityDoc(domain.DocAadhaar)
	if pan == nil || aadhaar == nil {
		return
	}

	if pan.Name != "" && aadhaar.Name != "" && !match.Names(pan.Name, aadhaar.Name) {
		trigger(res, defs, "PAN_AADHAAR_LINKING_UNVERIFIED",
			fmt.Sprintf("pan card: %s; aadhaar card: %s", pan.Name, aadhaar.Name))
		return
	}
	if pan.DateOfBirth != nil && aadhaar.DateOfBirth != nil && !pan.DateOfBirth.Equal(*aadhaar.DateOfBirth) {
		trigger(res, defs, "PAN_AADHAAR_LINKING_UNVERIFIED",
			fmt.Sprintf("pan card DOB: %s; aadhaar card DOB: %s",
				pan.DateOfBirth.Format("2006-01-02"), aadhaar.DateOfBirth.Format("2006-01-02")))
	}
}

// checkIncome compares monthly income across the form and every
// document it can be extracted from. Annual figures are divided by 12.
func (e *CrossVerify) checkIncome(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Employment == nil || p.Employment.MonthlyIncome <= 0 {
		return
	}

	sources := []source{{"declared", fmt.Sprintf("%.0f", p.Employment.MonthlyIncome)}}
	values := []float64{p.Employment.MonthlyIncome}

	if doc := p.DocumentOfType(domain.FilePayslip); doc != nil {
		if v, ok := match.ExtractAmount(doc.OCRText, match.PayslipIncomePatterns); ok {
			sources = append(sources, source{"payslip", fmt.Sprintf("%.0f", v)})
			values = append(values, v)
		}
	}
	if doc := p.DocumentOfType(domain.FileITR); doc != nil {
		if v, ok := match.ExtractAmount(doc.OCRText, match.ITRIncomePatterns); ok {
			monthly := v / 12
			sources = append(sources, source{"itr", fmt.Sprintf("%.0f", monthly)})
			values = append(values, monthly)
		}
	}
	if doc := p.DocumentOfType(domain.FileForm16); doc != nil {
		if v, ok := match.ExtractAmount(doc.OCRText, match.Form16IncomePatterns); ok {
			monthly := v / 12
			sources = append(sources, source{"form16", fmt.Sprintf("%.0f", monthly)})
			values = append(values, monthly)
		}
	}

	if len(values) < 3 {
		return
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi > 0 && (hi-lo)/hi > 0.30 {
		trigger(res, defs, "INCOME_CROSS_VERIFICATION_FAILED", formatSources(sources))
	}
}

func (e *CrossVerify) checkEmployer(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Employment == nil || p.Employment.EmployerName == "" {
		return
	}

	sources := []source{{"declared", p.Employment.EmployerName}}
	for _, fileType := range []string{domain.FilePayslip, domain.FileForm16} {
		doc := p.DocumentOfType(fileType)
		if doc == nil {
			continue
		}
		if m := employerLinePattern.FindStringSubmatch(doc.OCRText); len(m) == 2 {
			sources = append(sources, source{fileType, strings.TrimSpace(m[1])})
		}
	}
	if len(sources) < 2 {
		return
	}

	for i := 1; i < len(sources); i++ {
		if !match.Employers(sources[0].value, sources[i].value) {
			trigger(res, defs, "EMPLOYER_CROSS_VERIFICATION_FAILED", formatSources(sources))
			return
		}
	}
}

func (e *CrossVerify) checkIFSC(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.BankRecord == nil || p.BankRecord.IFSCCode == "" {
		return
	}
	ifsc := strings.ToUpper(p.BankRecord.IFSCCode)

	if !match.ValidIFSC(ifsc) {
		trigger(res, defs, "INVALID_IFSC_CODE",
			fmt.Sprintf("IFSC %s fails format validation", ifsc))
		return
	}

	bank := strings.ToLower(p.BankRecord.BankName)
	for key, prefix := range bankIFSCPrefixes {
		if strings.Contains(bank, key) {
			if !strings.HasPrefix(ifsc, prefix) {
				trigger(res, defs, "BANK_IFSC_MISMATCH",
					fmt.Sprintf("Bank %q expects IFSC prefix %s, got %s", p.BankRecord.BankName, prefix, ifsc[:4]))
			}
			return
		}
	}
}

// checkHiddenLiabilities estimates loan and card activity from the
// bank statement text and compares it against the declarations.
func (e *CrossVerify) checkHiddenLiabilities(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	statement := p.DocumentOfType(domain.FileBankStatement)
	if statement == nil || statement.OCRText == "" {
		return
	}

	observedLoans := match.CountKeywords(statement.OCRText, emiKeywords)
	if observedLoans > 10 {
		observedLoans = 10
	}

	if p.Loan != nil {
		declared := p.Loan.DeclaredExistingLoans
		if declared == 0 && observedLoans > 0 {
			trigger(res, defs, "HIDDEN_LOANS_DETECTED",
				fmt.Sprintf("Zero loans declared but %d EMI references in the bank statement", observedLoans))
		} else if diff := observedLoans - declared; diff >= 2 || diff <= -2 {
			trigger(res, defs, "LOAN_DECLARATION_MISMATCH",
				fmt.Sprintf("%d loans declared vs %d EMI references in the bank statement", declared, observedLoans))
		}
	}

	if p.CreditReport != nil {
		observedCards := match.CountKeywords(statement.OCRText, []string{"credit card"}) / 2
		if observedCards > 5 {
			observedCards = 5
		}
		if observedCards > p.CreditReport.CreditCardCount {
			trigger(res, defs, "HIDDEN_CREDIT_CARDS",
				fmt.Sprintf("%d cards on the bureau report vs %d estimated from statement activity",
					p.CreditReport.CreditCardCount, observedCards))
		}
	}
}

func (e *CrossVerify) checkCollateral(ctx context.Context, p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	goldLoan := p.Loan != nil && strings.Contains(strings.ToLower(p.Loan.Type), "gold")

	if p.Collateral == nil {
		if goldLoan {
			trigger(res, defs, "GOLD_LOAN_NO_COLLATERAL", "Gold loan with no collateral record")
		}
		return
	}
	col := p.Collateral

	if col.OwnerName != "" && !match.Names(col.OwnerName, p.Applicant.FullName()) {
		trigger(res, defs, "PROPERTY_OWNER_NAME_MISMATCH",
			fmt.Sprintf("collateral owner: %s; applicant: %s", col.OwnerName, p.Applicant.FullName()))
	}

	if col.EstimatedValue > 0 {
		if doc := p.DocumentOfType(domain.FileValuationReport); doc != nil {
			if v, ok := match.ExtractAmount(doc.OCRText, propertyValuePatterns); ok && v > 0 {
				deviation := math.Abs(col.EstimatedValue-v) / v
				if deviation > 0.20 {
					trigger(res, defs, "PROPERTY_VALUE_MISMATCH",
						fmt.Sprintf("Declared value %.0f vs valuation %.0f (%.0f%% apart)", col.EstimatedValue, v, deviation*100))
				}
			}
		}
	}

	goldCollateral := strings.Contains(strings.ToLower(col.Type), "gold")
	if goldCollateral && col.ValuationReportURL == "" && !p.HasDocument(domain.FileValuationReport) {
		trigger(res, defs, "GOLD_NO_VALUATION_REPORT", "Gold collateral with no valuation report")
	}

	if col.ValuationReportURL != "" {
		count, err := e.repo.CountCollateralsByValuationReport(ctx, col.ValuationReportURL, p.Applicant.ID)
		if err != nil {
			slog.Error("duplicate valuation lookup failed", "applicant_id", p.Applicant.ID, "error", err)
		} else if count > 0 {
			trigger(res, defs, "DUPLICATE_GOLD_VALUATION",
				fmt.Sprintf("Valuation report reused by %d other applicant(s)", count))
		}
	}
}

// checkPhone compares the form's phone number against phone lines
// found in uploaded document text.
func (e *CrossVerify) checkPhone(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	formPhone := digitsOnly(p.Applicant.Phone)
	if len(formPhone) < 10 {
		return
	}
	formPhone = formPhone[len(formPhone)-10:]

	for _, doc := range p.Documents {
		m := phoneLinePattern.FindStringSubmatch(doc.OCRText)
		if len(m) != 2 {
			continue
		}
		if m[1] != formPhone {
			trigger(res, defs, "PHONE_CROSS_VERIFICATION_FAILED",
				fmt.Sprintf("form: %s; %s: %s", formPhone, doc.Type, m[1]))
			return
		}
	}
}

// checkEmailDomain flags an applicant claiming a corporate mailbox at
// a different domain than the employer's corporate domain.
func (e *CrossVerify) checkEmailDomain(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Employment == nil {
		return
	}
	applicantDomain := emailDomain(p.Applicant.Email)
	employerDomain := emailDomain(p.Employment.EmployerEmail)
	if applicantDomain == "" || employerDomain == "" {
		return
	}
	if isFreeMailDomain(applicantDomain) || isFreeMailDomain(employerDomain) {
		return
	}
	if applicantDomain != employerDomain {
		trigger(res, defs, "EMAIL_DOMAIN_MISMATCH",
			fmt.Sprintf("applicant: %s; employer: %s", applicantDomain, employerDomain))
	}
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

func isFreeMailDomain(domainName string) bool {
	for _, free := range freeMailDomains {
		if domainName == free {
			return true
		}
	}
	return false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
