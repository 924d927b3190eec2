// Seed tool for initializing a Shikra database.
//
// Usage:
//   go run cmd/seed/main.go -driver sqlite -sqlite ./shikra.db
//   go run cmd/seed/main.go -driver postgres -pg-host localhost -pg-db shikra -demo
//
// This tool:
//  1. Creates the schema (repository migration runs on open)
//  2. Seeds the built-in rule catalog, leaving tuned rules untouched
//  3. Optionally loads a demo applicant pair (one clean, one risky)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/opensource-finance/shikra/internal/domain"
	"github.com/opensource-finance/shikra/internal/repository"
	"github.com/opensource-finance/shikra/internal/rules"
)

func main() {
	driver := flag.String("driver", "sqlite", "database driver: sqlite or postgres")
	sqlitePath := flag.String("sqlite", "./shikra.db", "sqlite database path")
	pgHost := flag.String("pg-host", "localhost", "postgres host")
	pgPort := flag.Int("pg-port", 5432, "postgres port")
	pgUser := flag.String("pg-user", "shikra", "postgres user")
	pgPassword := flag.String("pg-password", "", "postgres password")
	pgDB := flag.String("pg-db", "shikra", "postgres database")
	demo := flag.Bool("demo", false, "load demo applicants")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := domain.RepositoryConfig{
		Driver:           *driver,
		SQLitePath:       *sqlitePath,
		PostgresHost:     *pgHost,
		PostgresPort:     *pgPort,
		PostgresUser:     *pgUser,
		PostgresPassword: *pgPassword,
		PostgresDB:       *pgDB,
	}

	repo, err := repository.New(cfg)
	if err != nil {
		slog.Error("failed to open repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seeded, err := rules.SeedDefaults(ctx, repo)
	if err != nil {
		slog.Error("failed to seed rule catalog", "error", err)
		os.Exit(1)
	}
	fmt.Printf("rule catalog: %d new rules seeded\n", seeded)

	if *demo {
		if err := loadDemoApplicants(ctx, repo); err != nil {
			slog.Error("failed to load demo applicants", "error", err)
			os.Exit(1)
		}
		fmt.Println("demo applicants loaded")
	}
}

// loadDemoApplicants inserts one clean and one suspicious applicant so
// a fresh install has something to screen.
func loadDemoApplicants(ctx context.Context, repo domain.Repository) error {
	dob := time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC)
	start := time.Now().AddDate(-3, 0, 0)

	clean := &domain.Applicant{
		FirstName:     "Ravi",
		LastName:      "Sharma",
		DateOfBirth:   &dob,
		Gender:        "male",
		Phone:         "9876543210",
		Email:         "ravi.sharma@gmail.com",
		Address:       "Flat 12, Sea View Apartments, Mumbai",
		City:          "Mumbai",
		State:         "Maharashtra",
		AadhaarNumber: "234123412346",
		PANNumber:     "ABCDE1234F",
	}
	if err := repo.SaveApplicant(ctx, clean); err != nil {
		return fmt.Errorf("save clean applicant: %w", err)
	}
	if err := repo.SaveIdentityDocument(ctx, &domain.IdentityDocument{
		ApplicantID: clean.ID,
		Type:        domain.DocAadhaar,
		Number:      "234123412346",
		Name:        "Ravi Sharma",
		Address:     "Flat 12, Sea View Apartments, Mumbai, Maharashtra",
	}); err != nil {
		return err
	}
	if err := repo.SaveEmployment(ctx, &domain.Employment{
		ApplicantID:    clean.ID,
		EmployerName:   "Infosys",
		EmploymentType: domain.EmploymentSalaried,
		MonthlyIncome:  80000,
		StartDate:      &start,
		DeclaredYears:  3,
	}); err != nil {
		return err
	}
	if err := repo.SaveBankRecord(ctx, &domain.BankRecord{
		ApplicantID: clean.ID,
		BankName:    "HDFC Bank",
		IFSCCode:    "HDFC0001234",
		TotalCredit: 82000,
		TotalDebit:  40000,
	}); err != nil {
		return err
	}
	if err := repo.SaveLoan(ctx, &domain.Loan{
		ApplicantID: clean.ID,
		Type:        "personal",
		Amount:      500000,
	}); err != nil {
		return err
	}

	risky := &domain.Applicant{
		FirstName:     "Suresh",
		LastName:      "Kumar",
		Phone:         "9000000000",
		Email:         "suresh@gmail.com",
		AadhaarNumber: "123456789012",
		PANNumber:     "INVALID123",
	}
	if err := repo.SaveApplicant(ctx, risky); err != nil {
		return fmt.Errorf("save risky applicant: %w", err)
	}
	if err := repo.SaveEmployment(ctx, &domain.Employment{
		ApplicantID:    risky.ID,
		EmployerName:   "Quick Trading Exports",
		EmployerEmail:  "hr@gmail.com",
		EmploymentType: domain.EmploymentSalaried,
		MonthlyIncome:  25000,
	}); err != nil {
		return err
	}
	if err := repo.SaveLoan(ctx, &domain.Loan{
		ApplicantID: risky.ID,
		Type:        "personal",
		Amount:      8000000,
	}); err != nil {
		return err
	}

	return nil
}
