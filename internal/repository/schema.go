package repository

import "fmt"

// Schema definitions for the Shikra database.
// Compatible with both SQLite and PostgreSQL; the only divergence is
// the auto-increment primary key syntax.

const schemaApplicants = `
CREATE TABLE IF NOT EXISTS applicants (
    id %s,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL DEFAULT '',
    date_of_birth TIMESTAMP,
    gender TEXT,
    father_name TEXT,
    phone TEXT,
    email TEXT,
    address TEXT,
    city TEXT,
    state TEXT,
    aadhaar_number TEXT,
    pan_number TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_applicants_aadhaar ON applicants(aadhaar_number);
CREATE INDEX IF NOT EXISTS idx_applicants_pan ON applicants(pan_number);
CREATE INDEX IF NOT EXISTS idx_applicants_phone ON applicants(phone);
CREATE INDEX IF NOT EXISTS idx_applicants_email ON applicants(email);
`

const schemaIdentityDocuments = `
CREATE TABLE IF NOT EXISTS identity_documents (
    id %s,
    applicant_id BIGINT NOT NULL,
    type TEXT NOT NULL,
    number TEXT,
    name TEXT,
    date_of_birth TIMESTAMP,
    gender TEXT,
    father_name TEXT,
    address TEXT,
    expiry_date TIMESTAMP,
    tampered INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_identity_documents_applicant ON identity_documents(applicant_id);
`

const schemaEmployments = `
CREATE TABLE IF NOT EXISTS employments (
    applicant_id BIGINT PRIMARY KEY,
    employer_name TEXT,
    employer_address TEXT,
    employer_email TEXT,
    employment_type TEXT,
    monthly_income REAL NOT NULL DEFAULT 0,
    start_date TIMESTAMP,
    declared_years REAL NOT NULL DEFAULT 0
);
`

const schemaBankRecords = `
CREATE TABLE IF NOT EXISTS bank_records (
    applicant_id BIGINT PRIMARY KEY,
    bank_name TEXT,
    ifsc_code TEXT,
    account_number TEXT,
    total_credit REAL NOT NULL DEFAULT 0,
    total_debit REAL NOT NULL DEFAULT 0,
    anomalies TEXT
);
`

const schemaCreditReports = `
CREATE TABLE IF NOT EXISTS credit_reports (
    applicant_id BIGINT PRIMARY KEY,
    active_loans INTEGER NOT NULL DEFAULT 0,
    total_monthly_emi REAL NOT NULL DEFAULT 0,
    credit_utilization REAL NOT NULL DEFAULT 0,
    credit_card_count INTEGER NOT NULL DEFAULT 0
);
`

const schemaLoans = `
CREATE TABLE IF NOT EXISTS loans (
    id %s,
    applicant_id BIGINT NOT NULL,
    type TEXT,
    amount REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    risk_score REAL NOT NULL DEFAULT 0,
    declared_existing_loans INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_loans_applicant ON loans(applicant_id);
`

const schemaCollaterals = `
CREATE TABLE IF NOT EXISTS collaterals (
    id %s,
    loan_id BIGINT NOT NULL,
    applicant_id BIGINT NOT NULL,
    type TEXT,
    owner_name TEXT,
    estimated_value REAL NOT NULL DEFAULT 0,
    valuation_report_url TEXT
);

CREATE INDEX IF NOT EXISTS idx_collaterals_applicant ON collaterals(applicant_id);
CREATE INDEX IF NOT EXISTS idx_collaterals_valuation ON collaterals(valuation_report_url);
`

const schemaDocuments = `
CREATE TABLE IF NOT EXISTS documents (
    id %s,
    applicant_id BIGINT NOT NULL,
    type TEXT NOT NULL,
    file_url TEXT,
    ocr_text TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_applicant ON documents(applicant_id);
`

const schemaRuleDefinitions = `
CREATE TABLE IF NOT EXISTS rule_definitions (
    code TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    category TEXT NOT NULL,
    severity TEXT NOT NULL,
    points INTEGER NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 1,
    rule_type TEXT NOT NULL,
    execution_order INTEGER NOT NULL DEFAULT 0,
    expression TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rule_definitions_category ON rule_definitions(category, active);
`

const schemaFraudFlags = `
CREATE TABLE IF NOT EXISTS fraud_flags (
    id TEXT PRIMARY KEY,
    applicant_id BIGINT NOT NULL,
    loan_id BIGINT,
    rule_code TEXT NOT NULL,
    rule_name TEXT,
    category TEXT NOT NULL,
    severity TEXT NOT NULL,
    severity_weight INTEGER NOT NULL DEFAULT 2,
    points INTEGER NOT NULL DEFAULT 0,
    details TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fraud_flags_applicant ON fraud_flags(applicant_id);
CREATE INDEX IF NOT EXISTS idx_fraud_flags_loan ON fraud_flags(loan_id);
CREATE INDEX IF NOT EXISTS idx_fraud_flags_severity ON fraud_flags(severity_weight);
`

// AllSchemas returns all schema statements in order for the driver.
func AllSchemas(driver string) []string {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	withSerial := func(schema string) string {
		return fmt.Sprintf(schema, serial)
	}

	return []string{
		withSerial(schemaApplicants),
		withSerial(schemaIdentityDocuments),
		schemaEmployments,
		schemaBankRecords,
		schemaCreditReports,
		withSerial(schemaLoans),
		withSerial(schemaCollaterals),
		withSerial(schemaDocuments),
		schemaRuleDefinitions,
		schemaFraudFlags,
	}
}
