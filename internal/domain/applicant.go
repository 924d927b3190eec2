package domain

import (
	"strings"
	"time"
)

// Applicant is the loan applicant as declared on the application form.
type Applicant struct {
	ID            int64      `json:"id"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	DateOfBirth   *time.Time `json:"dateOfBirth,omitempty"`
	Gender        string     `json:"gender,omitempty"`
	FatherName    string     `json:"fatherName,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Email         string     `json:"email,omitempty"`
	Address       string     `json:"address,omitempty"`
	City          string     `json:"city,omitempty"`
	State         string     `json:"state,omitempty"`
	AadhaarNumber string     `json:"aadhaarNumber,omitempty"`
	PANNumber     string     `json:"panNumber,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// FullName joins first and last name, tolerating either being empty.
func (a *Applicant) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Age returns whole years at the given instant, or -1 when the date of
// birth is unknown.
func (a *Applicant) Age(at time.Time) int {
	if a.DateOfBirth == nil {
		return -1
	}
	dob := *a.DateOfBirth
	years := at.Year() - dob.Year()
	if at.YearDay() < dob.YearDay() {
		years--
	}
	return years
}

// Identity document types.
const (
	DocAadhaar  = "aadhaar"
	DocPAN      = "pan"
	DocPassport = "passport"
)

// IdentityDocument holds the fields read off a KYC document.
type IdentityDocument struct {
	ID          int64      `json:"id"`
	ApplicantID int64      `json:"applicantId"`
	Type        string     `json:"type"`
	Number      string     `json:"number,omitempty"`
	Name        string     `json:"name,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	FatherName  string     `json:"fatherName,omitempty"`
	Address     string     `json:"address,omitempty"`
	ExpiryDate  *time.Time `json:"expiryDate,omitempty"`
	Tampered    bool       `json:"tampered"`
}

// Employment types.
const (
	EmploymentSalaried     = "salaried"
	EmploymentSelfEmployed = "self_employed"
)

// Employment is the declared employment record.
type Employment struct {
	ApplicantID     int64      `json:"applicantId"`
	EmployerName    string     `json:"employerName,omitempty"`
	EmployerAddress string     `json:"employerAddress,omitempty"`
	EmployerEmail   string     `json:"employerEmail,omitempty"`
	EmploymentType  string     `json:"employmentType,omitempty"`
	MonthlyIncome   float64    `json:"monthlyIncome"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	DeclaredYears   float64    `json:"declaredYears"`
}

// BankRecord summarizes the applicant's bank statement.
type BankRecord struct {
	ApplicantID   int64    `json:"applicantId"`
	BankName      string   `json:"bankName,omitempty"`
	IFSCCode      string   `json:"ifscCode,omitempty"`
	AccountNumber string   `json:"accountNumber,omitempty"`
	TotalCredit   float64  `json:"totalCredit"`
	TotalDebit    float64  `json:"totalDebit"`
	Anomalies     []string `json:"anomalies,omitempty"`
}

// AverageBalance approximates the month's standing balance. An
// overdrawn month reads as zero, never as a surplus.
func (b *BankRecord) AverageBalance() float64 {
	diff := b.TotalCredit - b.TotalDebit
	if diff < 0 {
		return 0
	}
	return diff
}

// CreditReport is the applicant's bureau snapshot.
type CreditReport struct {
	ApplicantID       int64   `json:"applicantId"`
	ActiveLoans       int     `json:"activeLoans"`
	TotalMonthlyEMI   float64 `json:"totalMonthlyEmi"`
	CreditUtilization float64 `json:"creditUtilization"`
	CreditCardCount   int     `json:"creditCardCount"`
}

// Loan statuses written back by the screening pipeline.
const (
	LoanStatusPending     = "pending"
	LoanStatusUnderReview = "under_review"
	LoanStatusRejected    = "rejected"
)

// Loan is the application under screening.
type Loan struct {
	ID                    int64   `json:"id"`
	ApplicantID           int64   `json:"applicantId"`
	Type                  string  `json:"type,omitempty"`
	Amount                float64 `json:"amount"`
	Status                string  `json:"status"`
	RiskScore             float64 `json:"riskScore"`
	DeclaredExistingLoans int     `json:"declaredExistingLoans"`
}

// Collateral backs a secured loan (gold, property).
type Collateral struct {
	ID                 int64   `json:"id"`
	LoanID             int64   `json:"loanId"`
	ApplicantID        int64   `json:"applicantId"`
	Type               string  `json:"type,omitempty"`
	OwnerName          string  `json:"ownerName,omitempty"`
	EstimatedValue     float64 `json:"estimatedValue"`
	ValuationReportURL string  `json:"valuationReportUrl,omitempty"`
}

// Uploaded document types carrying OCR text.
const (
	FilePayslip         = "payslip"
	FileITR             = "itr"
	FileForm16          = "form16"
	FileBankStatement   = "bank_statement"
	FileGSTCertificate  = "gst_certificate"
	FileBusinessReg     = "business_registration"
	FilePropertyDeed    = "property_deed"
	FileValuationReport = "valuation_report"
)

// Document is an uploaded file with its pre-extracted OCR text.
type Document struct {
	ID          int64  `json:"id"`
	ApplicantID int64  `json:"applicantId"`
	Type        string `json:"type"`
	FileURL     string `json:"fileUrl,omitempty"`
	OCRText     string `json:"ocrText,omitempty"`
}

// Profile is everything the engines need about one applicant, loaded
// in a single repository call at the start of a screening run.
type Profile struct {
	Applicant    Applicant          `json:"applicant"`
	Identity     []IdentityDocument `json:"identityDocuments,omitempty"`
	Employment   *Employment        `json:"employment,omitempty"`
	BankRecord   *BankRecord        `json:"bankRecord,omitempty"`
	CreditReport *CreditReport      `json:"creditReport,omitempty"`
	Loan         *Loan              `json:"loan,omitempty"`
	Collateral   *Collateral        `json:"collateral,omitempty"`
	Documents    []Document         `json:"documents,omitempty"`
}

// IdentityDoc returns the first identity document of the given type.
func (p *Profile) IdentityDoc(docType string) *IdentityDocument {
	for i := range p.Identity {
		if p.Identity[i].Type == docType {
			return &p.Identity[i]
		}
	}
	return nil
}

// DocumentOfType returns the first uploaded document of the given type.
func (p *Profile) DocumentOfType(fileType string) *Document {
	for i := range p.Documents {
		if p.Documents[i].Type == fileType {
			return &p.Documents[i]
		}
	}
	return nil
}

// HasDocument reports whether any uploaded document of the type exists.
func (p *Profile) HasDocument(fileType string) bool {
	return p.DocumentOfType(fileType) != nil
}
