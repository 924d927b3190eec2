package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/opensource-finance/shikra/internal/domain"
	"github.com/opensource-finance/shikra/internal/match"
	"github.com/opensource-finance/shikra/internal/rules"
)

// knownEmployers is the allow-list of employers considered verifiable
// without further checks. Matching is on normalized substring.
var knownEmployers = []string{
	"tcs", "infosys", "wipro", "cognizant", "hcl", "tech mahindra",
	"accenture", "ibm", "microsoft", "google", "amazon", "flipkart",
	"hdfc", "icici", "sbi", "axis", "kotak", "reliance", "tata",
}

var shellCompanyKeywords = []string{
	"consultancy", "services pvt ltd", "solutions pvt ltd", "enterprises",
	"trading", "exports", "imports", "ventures", "holdings",
}

var freeMailDomains = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com",
	"rediffmail.com", "ymail.com", "aol.com", "mail.com",
	"protonmail.com", "zoho.com", "icloud.com",
}

var genericEmployerWords = []string{"company", "business", "firm", "office", "group"}

var payslipTemplateKeywords = []string{"template", "sample", "dummy", "example"}

var payslipComponents = []string{"basic", "gross", "deduction", "net pay"}

var residentialAddressKeywords = []string{"flat", "apartment", "house no", "villa", "residency"}

var (
	consecutiveDigits = regexp.MustCompile(`[0-9]{5,}`)
	employerSpecials  = regexp.MustCompile(`[#$%&*@!]`)
)

// Employment checks the declared employer's legitimacy, the payslip
// evidence behind it, and the plausibility of the declared tenure.
type Employment struct {
	catalog *rules.Catalog
}

// NewEmployment creates the employment engine.
func NewEmployment(catalog *rules.Catalog) *Employment {
	return &Employment{catalog: catalog}
}

// Category implements Detector.
func (e *Employment) Category() domain.Category { return domain.CategoryEmployment }

// Detect implements Detector.
func (e *Employment) Detect(ctx context.Context, p *domain.Profile) (*domain.DetectionResult, error) {
	defs, err := e.catalog.ActiveByCategory(ctx, domain.CategoryEmployment)
	if err != nil {
		return nil, err
	}

	res := domain.NewDetectionResult(p.Applicant.ID, p.Applicant.FullName())

	if p.Employment == nil || p.Employment.EmployerName == "" {
		trigger(res, defs, "MISSING_EMPLOYMENT_DETAILS", "No employment record on the application")
		res.Classify()
		return res, nil
	}

	e.checkEmployerLegitimacy(p, defs, res)
	e.checkEmployerEmail(p, defs, res)
	e.checkPayslip(p, defs, res)
	e.checkEmployerAddress(p, defs, res)
	e.checkEmployerNameQuality(p, defs, res)
	e.checkDuration(p, defs, res)
	e.checkSelfEmployed(p, defs, res)
	e.checkGhostSignals(p, defs, res)

	res.Classify()
	return res, nil
}

func isKnownEmployer(name string) bool {
	return match.ContainsAny(name, knownEmployers)
}

func (e *Employment) checkEmployerLegitimacy(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	name := p.Employment.EmployerName
	if isKnownEmployer(name) {
		return
	}

	if match.ContainsAny(name, shellCompanyKeywords) {
		trigger(res, defs, "SHELL_COMPANY_EMPLOYER",
			fmt.Sprintf("Employer %q matches shell company naming patterns", name))
	} else {
		trigger(res, defs, "UNVERIFIED_EMPLOYER",
			fmt.Sprintf("Employer %q not found in the verified company list", name))
	}
}

func (e *Employment) checkEmployerEmail(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	email := strings.ToLower(strings.TrimSpace(p.Employment.EmployerEmail))
	if email == "" {
		return
	}

	if personal := strings.ToLower(strings.TrimSpace(p.Applicant.Email)); personal != "" && email == personal {
		trigger(res, defs, "PERSONAL_EMAIL_IN_EMPLOYER",
			fmt.Sprintf("Employer contact %s is the applicant's own mailbox", email))
		return
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return
	}
	emailDomain := email[at+1:]
	for _, free := range freeMailDomains {
		if emailDomain == free {
			trigger(res, defs, "FAKE_EMPLOYER_EMAIL",
				fmt.Sprintf("Employer contact %s uses free mail domain %s", email, emailDomain))
			return
		}
	}
}

func (e *Employment) checkPayslip(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Employment.EmploymentType != domain.EmploymentSalaried {
		return
	}

	payslip := p.DocumentOfType(domain.FilePayslip)
	if payslip == nil {
		trigger(res, defs, "MISSING_PAYSLIP", "Salaried applicant with no payslip uploaded")
		return
	}
	if payslip.OCRText == "" {
		return
	}

	if match.ContainsAny(payslip.OCRText, payslipTemplateKeywords) {
		trigger(res, defs, "FAKE_PAYSLIP_TEMPLATE", "Payslip text contains template or sample boilerplate")
	}

	if !payslipMentionsEmployer(payslip.OCRText, p.Employment.EmployerName) {
		trigger(res, defs, "PAYSLIP_EMPLOYER_MISMATCH",
			fmt.Sprintf("Payslip does not mention employer %q", p.Employment.EmployerName))
	}

	missing := missingPayslipComponents(payslip.OCRText)
	if len(missing) > 0 {
		trigger(res, defs, "INCOMPLETE_PAYSLIP",
			fmt.Sprintf("Payslip missing components: %s", strings.Join(missing, ", ")))
	}
}

// payslipMentionsEmployer checks whether any significant token of the
// employer name appears in the payslip text.
func payslipMentionsEmployer(ocr, employer string) bool {
	text := match.Normalize(ocr)
	for _, token := range strings.Fields(match.Normalize(employer)) {
		if len(token) > 3 && strings.Contains(text, token) {
			return true
		}
	}
	return false
}

func missingPayslipComponents(ocr string) []string {
	text := strings.ToLower(ocr)
	var missing []string
	for _, component := range payslipComponents {
		if !strings.Contains(text, component) {
			missing = append(missing, component)
		}
	}
	return missing
}

func (e *Employment) checkEmployerAddress(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	addr := p.Employment.EmployerAddress
	if addr == "" {
		return
	}
	if match.ContainsAny(addr, residentialAddressKeywords) {
		trigger(res, defs, "RESIDENTIAL_EMPLOYER_ADDRESS",
			fmt.Sprintf("Employer address %q looks residential", addr))
	}
}

func (e *Employment) checkEmployerNameQuality(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	name := p.Employment.EmployerName
	if isKnownEmployer(name) {
		return
	}
	if len(name) < 20 && match.ContainsAny(name, genericEmployerWords) {
		trigger(res, defs, "VAGUE_EMPLOYER_NAME",
			fmt.Sprintf("Employer name %q is generic and uninformative", name))
	}
}

func (e *Employment) checkDuration(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	emp := p.Employment
	now := time.Now()

	if emp.StartDate != nil {
		if emp.StartDate.After(now) {
			trigger(res, defs, "FUTURE_EMPLOYMENT_DATE",
				fmt.Sprintf("Employment starts %s", emp.StartDate.Format("2006-01-02")))
			return
		}
		if emp.DeclaredYears > 0 {
			actual := now.Sub(*emp.StartDate).Hours() / (24 * 365.25)
			if diff := emp.DeclaredYears - actual; diff > 1 || diff < -1 {
				trigger(res, defs, "EMPLOYMENT_DURATION_MISMATCH",
					fmt.Sprintf("Declared %.1f years vs %.1f years since start date", emp.DeclaredYears, actual))
			}
		}
	}

	if emp.DeclaredYears > 40 {
		trigger(res, defs, "UNREALISTIC_EMPLOYMENT_DURATION",
			fmt.Sprintf("Declared employment duration of %.1f years", emp.DeclaredYears))
	}
}

func (e *Employment) checkSelfEmployed(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Employment.EmploymentType != domain.EmploymentSelfEmployed {
		return
	}

	if !p.HasDocument(domain.FileGSTCertificate) && !p.HasDocument(domain.FileBusinessReg) {
		trigger(res, defs, "UNVERIFIABLE_SELF_EMPLOYED",
			"Self-employed with neither GST certificate nor business registration")
	}
	if !p.HasDocument(domain.FileITR) {
		trigger(res, defs, "SELF_EMPLOYED_NO_ITR", "Self-employed with no ITR document")
	}
	if p.Applicant.PANNumber == "" {
		trigger(res, defs, "SELF_EMPLOYED_NO_PAN", "Self-employed with no PAN number")
	}
}

// checkGhostSignals scores weak signals in the employer name and fires
// one of two rules depending on how many accumulate.
func (e *Employment) checkGhostSignals(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	name := p.Employment.EmployerName
	if isKnownEmployer(name) {
		return
	}

	score := 0
	var signals []string

	if n := match.CountKeywords(name, shellCompanyKeywords); n >= 2 {
		score += 20
		signals = append(signals, fmt.Sprintf("%d shell keywords", n))
	}
	if consecutiveDigits.MatchString(name) {
		score += 15
		signals = append(signals, "long digit run")
	}
	if len(strings.TrimSpace(name)) < 10 {
		score += 10
		signals = append(signals, "very short name")
	}
	if employerSpecials.MatchString(name) {
		score += 10
		signals = append(signals, "special characters")
	}
	if n := match.CountKeywords(name, genericEmployerWords); n >= 2 {
		score += 15
		signals = append(signals, fmt.Sprintf("%d generic words", n))
	}

	details := fmt.Sprintf("Employer %q scored %d: %s", name, score, strings.Join(signals, "; "))
	if score >= 30 {
		trigger(res, defs, "GHOST_COMPANY", details)
	} else if score >= 15 {
		trigger(res, defs, "SUSPICIOUS_EMPLOYER", details)
	}
}
