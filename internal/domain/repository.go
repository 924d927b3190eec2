package domain

import (
	"context"
	"time"
)

// Repository defines persistence for applicants, the rule catalog,
// and fraud flags. Implemented by internal/repository for SQLite and
// PostgreSQL.
type Repository interface {
	// Applicant profile
	SaveApplicant(ctx context.Context, a *Applicant) error
	GetApplicant(ctx context.Context, applicantID int64) (*Applicant, error)
	GetProfile(ctx context.Context, applicantID int64) (*Profile, error)
	SaveIdentityDocument(ctx context.Context, doc *IdentityDocument) error
	SaveEmployment(ctx context.Context, emp *Employment) error
	SaveBankRecord(ctx context.Context, rec *BankRecord) error
	SaveCreditReport(ctx context.Context, rep *CreditReport) error
	SaveLoan(ctx context.Context, loan *Loan) error
	GetLoan(ctx context.Context, loanID int64) (*Loan, error)
	SaveCollateral(ctx context.Context, col *Collateral) error
	SaveDocument(ctx context.Context, doc *Document) error

	// Duplicate lookups. Each counts OTHER applicants sharing the
	// identifier, excluding the applicant under screening. Backed by
	// indexed columns, not a population scan.
	CountApplicantsByAadhaar(ctx context.Context, number string, excludeID int64) (int, error)
	CountApplicantsByPAN(ctx context.Context, number string, excludeID int64) (int, error)
	CountApplicantsByPhone(ctx context.Context, phone string, excludeID int64) (int, error)
	CountApplicantsByEmail(ctx context.Context, email string, excludeID int64) (int, error)
	CountCollateralsByValuationReport(ctx context.Context, reportURL string, excludeApplicantID int64) (int, error)

	// Rule catalog
	SaveRuleDefinition(ctx context.Context, def *RuleDefinition) error
	ListActiveRules(ctx context.Context) ([]*RuleDefinition, error)
	ListActiveRulesByCategory(ctx context.Context, category Category) ([]*RuleDefinition, error)
	GetRuleByCode(ctx context.Context, code string) (*RuleDefinition, error)
	SetRuleActive(ctx context.Context, code string, active bool) error

	// Screening results. SaveScreeningResult persists the flags and
	// the loan status/risk update in one transaction.
	SaveScreeningResult(ctx context.Context, applicantID int64, loanID *int64, flags []*FraudFlag, totalScore int) error
	ListFlagsByApplicant(ctx context.Context, applicantID int64) ([]*FraudFlag, error)
	ListFlagsByLoan(ctx context.Context, loanID int64) ([]*FraudFlag, error)
	ListFlagsBySeverity(ctx context.Context, severityWeight int) ([]*FraudFlag, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is "sqlite" or "postgres"
	Driver string

	// SQLite settings
	SQLitePath string

	// PostgreSQL settings
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
