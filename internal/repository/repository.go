// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/shikra/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas(r.driver) {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// insertID runs an already-rebound INSERT and returns the generated
// id. PostgreSQL does not support LastInsertId, so it gets a RETURNING
// clause.
func (r *SQLRepository) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	if r.driver == "postgres" {
		var id int64
		err := r.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id)
		return id, err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// SaveApplicant inserts a new applicant, assigning its ID, or updates
// an existing one when the ID is already set.
func (r *SQLRepository) SaveApplicant(ctx context.Context, a *domain.Applicant) error {
	if a == nil || a.FirstName == "" {
		return fmt.Errorf("%w: first name is required", ErrInvalidInput)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	if a.ID == 0 {
		query := `
			INSERT INTO applicants (
				first_name, last_name, date_of_birth, gender, father_name,
				phone, email, address, city, state,
				aadhaar_number, pan_number, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		id, err := r.insertID(ctx, r.rebind(query),
			a.FirstName, a.LastName, a.DateOfBirth, a.Gender, a.FatherName,
			a.Phone, a.Email, a.Address, a.City, a.State,
			a.AadhaarNumber, a.PANNumber, a.CreatedAt,
		)
		if err != nil {
			return err
		}
		a.ID = id
		return nil
	}

	query := `
		UPDATE applicants SET
			first_name = ?, last_name = ?, date_of_birth = ?, gender = ?, father_name = ?,
			phone = ?, email = ?, address = ?, city = ?, state = ?,
			aadhaar_number = ?, pan_number = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, r.rebind(query),
		a.FirstName, a.LastName, a.DateOfBirth, a.Gender, a.FatherName,
		a.Phone, a.Email, a.Address, a.City, a.State,
		a.AadhaarNumber, a.PANNumber, a.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetApplicant retrieves an applicant by ID.
func (r *SQLRepository) GetApplicant(ctx context.Context, applicantID int64) (*domain.Applicant, error) {
	query := `
		SELECT id, first_name, last_name, date_of_birth, gender, father_name,
			   phone, email, address, city, state,
			   aadhaar_number, pan_number, created_at
		FROM applicants
		WHERE id = ?
	`

	var a domain.Applicant
	var dob sql.NullTime

	err := r.db.QueryRowContext(ctx, r.rebind(query), applicantID).Scan(
		&a.ID, &a.FirstName, &a.LastName, &dob, &a.Gender, &a.FatherName,
		&a.Phone, &a.Email, &a.Address, &a.City, &a.State,
		&a.AadhaarNumber, &a.PANNumber, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if dob.Valid {
		a.DateOfBirth = &dob.Time
	}
	return &a, nil
}

// GetProfile assembles everything the engines need about one applicant
// in a single call. Missing sub-records are nil, never an error; only
// an unknown applicant is.
func (r *SQLRepository) GetProfile(ctx context.Context, applicantID int64) (*domain.Profile, error) {
	applicant, err := r.GetApplicant(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	profile := &domain.Profile{Applicant: *applicant}

	if profile.Identity, err = r.listIdentityDocuments(ctx, applicantID); err != nil {
		return nil, err
	}
	if profile.Employment, err = r.getEmployment(ctx, applicantID); err != nil {
		return nil, err
	}
	if profile.BankRecord, err = r.getBankRecord(ctx, applicantID); err != nil {
		return nil, err
	}
	if profile.CreditReport, err = r.getCreditReport(ctx, applicantID); err != nil {
		return nil, err
	}
	if profile.Loan, err = r.getLatestLoan(ctx, applicantID); err != nil {
		return nil, err
	}
	if profile.Collateral, err = r.getCollateral(ctx, applicantID); err != nil {
		return nil, err
	}
	if profile.Documents, err = r.listDocuments(ctx, applicantID); err != nil {
		return nil, err
	}

	return profile, nil
}

// SaveIdentityDocument inserts a KYC document, assigning its ID.
func (r *SQLRepository) SaveIdentityDocument(ctx context.Context, doc *domain.IdentityDocument) error {
	if doc == nil || doc.ApplicantID == 0 || doc.Type == "" {
		return fmt.Errorf("%w: applicant id and type are required", ErrInvalidInput)
	}

	tampered := 0
	if doc.Tampered {
		tampered = 1
	}

	query := `
		INSERT INTO identity_documents (
			applicant_id, type, number, name, date_of_birth,
			gender, father_name, address, expiry_date, tampered
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.insertID(ctx, r.rebind(query),
		doc.ApplicantID, doc.Type, doc.Number, doc.Name, doc.DateOfBirth,
		doc.Gender, doc.FatherName, doc.Address, doc.ExpiryDate, tampered,
	)
	if err != nil {
		return err
	}
	doc.ID = id
	return nil
}

func (r *SQLRepository) listIdentityDocuments(ctx context.Context, applicantID int64) ([]domain.IdentityDocument, error) {
	query := `
		SELECT id, applicant_id, type, number, name, date_of_birth,
			   gender, father_name, address, expiry_date, tampered
		FROM identity_documents
		WHERE applicant_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), applicantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.IdentityDocument
	for rows.Next() {
		var doc domain.IdentityDocument
		var dob, expiry sql.NullTime
		var tampered int

		if err := rows.Scan(
			&doc.ID, &doc.ApplicantID, &doc.Type, &doc.Number, &doc.Name, &dob,
			&doc.Gender, &doc.FatherName, &doc.Address, &expiry, &tampered,
		); err != nil {
			return nil, err
		}

		if dob.Valid {
			doc.DateOfBirth = &dob.Time
		}
		if expiry.Valid {
			doc.ExpiryDate = &expiry.Time
		}
		doc.Tampered = tampered == 1
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// SaveEmployment upserts the applicant's employment record.
func (r *SQLRepository) SaveEmployment(ctx context.Context, emp *domain.Employment) error {
	if emp == nil || emp.ApplicantID == 0 {
		return fmt.Errorf("%w: applicant id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO employments (
			applicant_id, employer_name, employer_address, employer_email,
			employment_type, monthly_income, start_date, declared_years
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(applicant_id) DO UPDATE SET
			employer_name = excluded.employer_name,
			employer_address = excluded.employer_address,
			employer_email = excluded.employer_email,
			employment_type = excluded.employment_type,
			monthly_income = excluded.monthly_income,
			start_date = excluded.start_date,
			declared_years = excluded.declared_years
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		emp.ApplicantID, emp.EmployerName, emp.EmployerAddress, emp.EmployerEmail,
		emp.EmploymentType, emp.MonthlyIncome, emp.StartDate, emp.DeclaredYears,
	)
	return err
}

func (r *SQLRepository) getEmployment(ctx context.Context, applicantID int64) (*domain.Employment, error) {
	query := `
		SELECT applicant_id, employer_name, employer_address, employer_email,
			   employment_type, monthly_income, start_date, declared_years
		FROM employments
		WHERE applicant_id = ?
	`

	var emp domain.Employment
	var start sql.NullTime

	err := r.db.QueryRowContext(ctx, r.rebind(query), applicantID).Scan(
		&emp.ApplicantID, &emp.EmployerName, &emp.EmployerAddress, &emp.EmployerEmail,
		&emp.EmploymentType, &emp.MonthlyIncome, &start, &emp.DeclaredYears,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if start.Valid {
		emp.StartDate = &start.Time
	}
	return &emp, nil
}

// SaveBankRecord upserts the applicant's bank statement summary.
func (r *SQLRepository) SaveBankRecord(ctx context.Context, rec *domain.BankRecord) error {
	if rec == nil || rec.ApplicantID == 0 {
		return fmt.Errorf("%w: applicant id is required", ErrInvalidInput)
	}

	anomalies, _ := json.Marshal(rec.Anomalies)

	query := `
		INSERT INTO bank_records (
			applicant_id, bank_name, ifsc_code, account_number,
			total_credit, total_debit, anomalies
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(applicant_id) DO UPDATE SET
			bank_name = excluded.bank_name,
			ifsc_code = excluded.ifsc_code,
			account_number = excluded.account_number,
			total_credit = excluded.total_credit,
			total_debit = excluded.total_debit,
			anomalies = excluded.anomalies
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ApplicantID, rec.BankName, rec.IFSCCode, rec.AccountNumber,
		rec.TotalCredit, rec.TotalDebit, string(anomalies),
	)
	return err
}

func (r *SQLRepository) getBankRecord(ctx context.Context, applicantID int64) (*domain.BankRecord, error) {
	query := `
		SELECT applicant_id, bank_name, ifsc_code, account_number,
			   total_credit, total_debit, anomalies
		FROM bank_records
		WHERE applicant_id = ?
	`

	var rec domain.BankRecord
	var anomalies string

	err := r.db.QueryRowContext(ctx, r.rebind(query), applicantID).Scan(
		&rec.ApplicantID, &rec.BankName, &rec.IFSCCode, &rec.AccountNumber,
		&rec.TotalCredit, &rec.TotalDebit, &anomalies,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if anomalies != "" {
		json.Unmarshal([]byte(anomalies), &rec.Anomalies)
	}
	return &rec, nil
}

// SaveCreditReport upserts the applicant's bureau snapshot.
func (r *SQLRepository) SaveCreditReport(ctx context.Context, rep *domain.CreditReport) error {
	if rep == nil || rep.ApplicantID == 0 {
		return fmt.Errorf("%w: applicant id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO credit_reports (
			applicant_id, active_loans, total_monthly_emi,
			credit_utilization, credit_card_count
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(applicant_id) DO UPDATE SET
			active_loans = excluded.active_loans,
			total_monthly_emi = excluded.total_monthly_emi,
			credit_utilization = excluded.credit_utilization,
			credit_card_count = excluded.credit_card_count
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rep.ApplicantID, rep.ActiveLoans, rep.TotalMonthlyEMI,
		rep.CreditUtilization, rep.CreditCardCount,
	)
	return err
}

func (r *SQLRepository) getCreditReport(ctx context.Context, applicantID int64) (*domain.CreditReport, error) {
	query := `
		SELECT applicant_id, active_loans, total_monthly_emi,
			   credit_utilization, credit_card_count
		FROM credit_reports
		WHERE applicant_id = ?
	`

	var rep domain.CreditReport
	err := r.db.QueryRowContext(ctx, r.rebind(query), applicantID).Scan(
		&rep.ApplicantID, &rep.ActiveLoans, &rep.TotalMonthlyEMI,
		&rep.CreditUtilization, &rep.CreditCardCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// SaveLoan inserts a loan application, assigning its ID, or updates an
// existing one.
func (r *SQLRepository) SaveLoan(ctx context.Context, loan *domain.Loan) error {
	if loan == nil || loan.ApplicantID == 0 {
		return fmt.Errorf("%w: applicant id is required", ErrInvalidInput)
	}
	if loan.Status == "" {
		loan.Status = domain.LoanStatusPending
	}

	if loan.ID == 0 {
		query := `
			INSERT INTO loans (
				applicant_id, type, amount, status, risk_score, declared_existing_loans
			) VALUES (?, ?, ?, ?, ?, ?)
		`
		id, err := r.insertID(ctx, r.rebind(query),
			loan.ApplicantID, loan.Type, loan.Amount, loan.Status,
			loan.RiskScore, loan.DeclaredExistingLoans,
		)
		if err != nil {
			return err
		}
		loan.ID = id
		return nil
	}

	query := `
		UPDATE loans SET
			applicant_id = ?, type = ?, amount = ?, status = ?,
			risk_score = ?, declared_existing_loans = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, r.rebind(query),
		loan.ApplicantID, loan.Type, loan.Amount, loan.Status,
		loan.RiskScore, loan.DeclaredExistingLoans, loan.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLoan retrieves a loan by ID.
func (r *SQLRepository) GetLoan(ctx context.Context, loanID int64) (*domain.Loan, error) {
	query := `
		SELECT id, applicant_id, type, amount, status, risk_score, declared_existing_loans
		FROM loans
		WHERE id = ?
	`

	var loan domain.Loan
	err := r.db.QueryRowContext(ctx, r.rebind(query), loanID).Scan(
		&loan.ID, &loan.ApplicantID, &loan.Type, &loan.Amount,
		&loan.Status, &loan.RiskScore, &loan.DeclaredExistingLoans,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *SQLRepository) getLatestLoan(ctx context.Context, applicantID int64) (*domain.Loan, error) {
	query := `
		SELECT id, applicant_id, type, amount, status, risk_score, declared_existing_loans
		FROM loans
		WHERE applicant_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	var loan domain.Loan
	err := r.db.QueryRowContext(ctx, r.rebind(query), applicantID).Scan(
		&loan.ID, &loan.ApplicantID, &loan.Type, &loan.Amount,
		&loan.Status, &loan.RiskScore, &loan.DeclaredExistingLoans,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// SaveCollateral inserts a collateral record, assigning its ID.
func (r *SQLRepository) SaveCollateral(ctx context.Context, col *domain.Collateral) error {
	if col == nil || col.ApplicantID == 0 || col.LoanID == 0 {
		return fmt.Errorf("%w: applicant id and loan id are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO collaterals (
			loan_id, applicant_id, type, owner_name, estimated_value, valuation_report_url
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.insertID(ctx, r.rebind(query),
		col.LoanID, col.ApplicantID, col.Type, col.OwnerName,
		col.EstimatedValue, col.ValuationReportURL,
	)
	if err != nil {
		return err
	}
	col.ID = id
	return nil
}

func (r *SQLRepository) getCollateral(ctx context.Context, applicantID int64) (*domain.Collateral, error) {
	query := `
		SELECT id, loan_id, applicant_id, type, owner_name, estimated_value, valuation_report_url
		FROM collaterals
		WHERE applicant_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	var col domain.Collateral
	err := r.db.QueryRowContext(ctx, r.rebind(query), applicantID).Scan(
		&col.ID, &col.LoanID, &col.ApplicantID, &col.Type, &col.OwnerName,
		&col.EstimatedValue, &col.ValuationReportURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &col, nil
}

// SaveDocument inserts an uploaded document, assigning its ID.
func (r *SQLRepository) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ApplicantID == 0 || doc.Type == "" {
		return fmt.Errorf("%w: applicant id and type are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO documents (applicant_id, type, file_url, ocr_text)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.insertID(ctx, r.rebind(query),
		doc.ApplicantID, doc.Type, doc.FileURL, doc.OCRText,
	)
	if err != nil {
		return err
	}
	doc.ID = id
	return nil
}

func (r *SQLRepository) listDocuments(ctx context.Context, applicantID int64) ([]domain.Document, error) {
	query := `
		SELECT id, applicant_id, type, file_url, ocr_text
		FROM documents
		WHERE applicant_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), applicantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.ApplicantID, &doc.Type, &doc.FileURL, &doc.OCRText); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *SQLRepository) countApplicants(ctx context.Context, column, value string, excludeID int64) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: value is required", ErrInvalidInput)
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM applicants WHERE %s = ? AND id != ?`, column)

	var count int
	err := r.db.QueryRowContext(ctx, r.rebind(query), value, excludeID).Scan(&count)
	return count, err
}

// CountApplicantsByAadhaar counts other applicants sharing an Aadhaar.
func (r *SQLRepository) CountApplicantsByAadhaar(ctx context.Context, number string, excludeID int64) (int, error) {
	return r.countApplicants(ctx, "aadhaar_number", number, excludeID)
}

// CountApplicantsByPAN counts other applicants sharing a PAN.
func (r *SQLRepository) CountApplicantsByPAN(ctx context.Context, number string, excludeID int64) (int, error) {
	return r.countApplicants(ctx, "pan_number", number, excludeID)
}

// CountApplicantsByPhone counts other applicants sharing a phone number.
func (r *SQLRepository) CountApplicantsByPhone(ctx context.Context, phone string, excludeID int64) (int, error) {
	return r.countApplicants(ctx, "phone", phone, excludeID)
}

// CountApplicantsByEmail counts other applicants sharing an email.
func (r *SQLRepository) CountApplicantsByEmail(ctx context.Context, email string, excludeID int64) (int, error) {
	return r.countApplicants(ctx, "email", email, excludeID)
}

// CountCollateralsByValuationReport counts other applicants whose
// collateral reuses the same valuation report.
func (r *SQLRepository) CountCollateralsByValuationReport(ctx context.Context, reportURL string, excludeApplicantID int64) (int, error) {
	if reportURL == "" {
		return 0, fmt.Errorf("%w: report url is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*) FROM collaterals
		WHERE valuation_report_url = ? AND applicant_id != ?
	`

	var count int
	err := r.db.QueryRowContext(ctx, r.rebind(query), reportURL, excludeApplicantID).Scan(&count)
	return count, err
}

// SaveRuleDefinition upserts a catalog entry keyed by rule code.
func (r *SQLRepository) SaveRuleDefinition(ctx context.Context, def *domain.RuleDefinition) error {
	if def == nil || def.Code == "" {
		return fmt.Errorf("%w: rule code is required", ErrInvalidInput)
	}

	active := 0
	if def.Active {
		active = 1
	}

	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now

	query := `
		INSERT INTO rule_definitions (
			code, name, description, category, severity, points,
			active, rule_type, execution_order, expression, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			severity = excluded.severity,
			points = excluded.points,
			active = excluded.active,
			rule_type = excluded.rule_type,
			execution_order = excluded.execution_order,
			expression = excluded.expression,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		def.Code, def.Name, def.Description, def.Category, def.Severity, def.Points,
		active, def.RuleType, def.ExecutionOrder, def.Expression, def.CreatedAt, def.UpdatedAt,
	)
	return err
}

const ruleColumns = `code, name, description, category, severity, points,
	   active, rule_type, execution_order, expression, created_at, updated_at`

func scanRule(row interface{ Scan(...any) error }) (*domain.RuleDefinition, error) {
	var def domain.RuleDefinition
	var active int

	err := row.Scan(
		&def.Code, &def.Name, &def.Description, &def.Category, &def.Severity, &def.Points,
		&active, &def.RuleType, &def.ExecutionOrder, &def.Expression, &def.CreatedAt, &def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	def.Active = active == 1
	return &def, nil
}

// ListActiveRules retrieves the active catalog in execution order.
func (r *SQLRepository) ListActiveRules(ctx context.Context) ([]*domain.RuleDefinition, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rule_definitions
		WHERE active = 1
		ORDER BY category, execution_order
	`
	return r.listRules(ctx, query)
}

// ListActiveRulesByCategory retrieves one category's active rules in
// execution order.
func (r *SQLRepository) ListActiveRulesByCategory(ctx context.Context, category domain.Category) ([]*domain.RuleDefinition, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rule_definitions
		WHERE category = ? AND active = 1
		ORDER BY execution_order
	`
	return r.listRules(ctx, query, category)
}

func (r *SQLRepository) listRules(ctx context.Context, query string, args ...any) ([]*domain.RuleDefinition, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*domain.RuleDefinition
	for rows.Next() {
		def, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// GetRuleByCode retrieves a rule definition, active or not.
func (r *SQLRepository) GetRuleByCode(ctx context.Context, code string) (*domain.RuleDefinition, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rule_definitions
		WHERE code = ?
	`

	def, err := scanRule(r.db.QueryRowContext(ctx, r.rebind(query), code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}

// SetRuleActive toggles a rule without touching the rest of its
// definition.
func (r *SQLRepository) SetRuleActive(ctx context.Context, code string, active bool) error {
	value := 0
	if active {
		value = 1
	}

	query := `UPDATE rule_definitions SET active = ?, updated_at = ? WHERE code = ?`
	result, err := r.db.ExecContext(ctx, r.rebind(query), value, time.Now().UTC(), code)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveScreeningResult replaces the applicant's fraud flags and updates
// the loan status and risk score, all in one transaction. A score of
// 60 or more rejects the loan, 30 or more sends it to review.
func (r *SQLRepository) SaveScreeningResult(ctx context.Context, applicantID int64, loanID *int64, flags []*domain.FraudFlag, totalScore int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM fraud_flags WHERE applicant_id = ?`), applicantID); err != nil {
		return err
	}

	insert := r.rebind(`
		INSERT INTO fraud_flags (
			id, applicant_id, loan_id, rule_code, rule_name, category,
			severity, severity_weight, points, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for _, flag := range flags {
		if flag.CreatedAt.IsZero() {
			flag.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, insert,
			flag.ID, flag.ApplicantID, flag.LoanID, flag.RuleCode, flag.RuleName, flag.Category,
			flag.Severity, flag.SeverityWeight, flag.Points, flag.Details, flag.CreatedAt,
		); err != nil {
			return err
		}
	}

	if loanID != nil {
		status := domain.LoanStatusPending
		switch {
		case totalScore >= 60:
			status = domain.LoanStatusRejected
		case totalScore >= 30:
			status = domain.LoanStatusUnderReview
		}

		update := r.rebind(`UPDATE loans SET status = ?, risk_score = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, update, status, float64(totalScore), *loanID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const flagColumns = `id, applicant_id, loan_id, rule_code, rule_name, category,
	   severity, severity_weight, points, details, created_at`

func (r *SQLRepository) listFlags(ctx context.Context, query string, args ...any) ([]*domain.FraudFlag, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []*domain.FraudFlag
	for rows.Next() {
		var flag domain.FraudFlag
		var loanID sql.NullInt64

		if err := rows.Scan(
			&flag.ID, &flag.ApplicantID, &loanID, &flag.RuleCode, &flag.RuleName, &flag.Category,
			&flag.Severity, &flag.SeverityWeight, &flag.Points, &flag.Details, &flag.CreatedAt,
		); err != nil {
			return nil, err
		}

		if loanID.Valid {
			flag.LoanID = &loanID.Int64
		}
		flags = append(flags, &flag)
	}
	return flags, rows.Err()
}

// ListFlagsByApplicant retrieves the applicant's persisted flags,
// highest points first.
func (r *SQLRepository) ListFlagsByApplicant(ctx context.Context, applicantID int64) ([]*domain.FraudFlag, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM fraud_flags
		WHERE applicant_id = ?
		ORDER BY points DESC, rule_code
	`
	return r.listFlags(ctx, query, applicantID)
}

// ListFlagsByLoan retrieves the flags attached to one loan.
func (r *SQLRepository) ListFlagsByLoan(ctx context.Context, loanID int64) ([]*domain.FraudFlag, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM fraud_flags
		WHERE loan_id = ?
		ORDER BY points DESC, rule_code
	`
	return r.listFlags(ctx, query, loanID)
}

// ListFlagsBySeverity retrieves flags at or above a severity weight.
func (r *SQLRepository) ListFlagsBySeverity(ctx context.Context, severityWeight int) ([]*domain.FraudFlag, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM fraud_flags
		WHERE severity_weight >= ?
		ORDER BY severity_weight DESC, points DESC
	`
	return r.listFlags(ctx, query, severityWeight)
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
