package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opensource-finance/shikra/internal/domain"
	"github.com/opensource-finance/shikra/internal/match"
	"github.com/opensource-finance/shikra/internal/rules"
)

// Identity checks the applicant's identity documents: duplicates
// across the applicant base, format and checksum validity, and
// consistency between the form and the documents.
type Identity struct {
	repo    domain.Repository
	catalog *rules.Catalog
}

// NewIdentity creates the identity engine.
func NewIdentity(repo domain.Repository, catalog *rules.Catalog) *Identity {
	return &Identity{repo: repo, catalog: catalog}
}

// Category implements Detector.
func (e *Identity) Category() domain.Category { return domain.CategoryIdentity }

// Detect implements Detector.
func (e *Identity) Detect(ctx context.Context, p *domain.Profile) (*domain.DetectionResult, error) {
	defs, err := e.catalog.ActiveByCategory(ctx, domain.CategoryIdentity)
	if err != nil {
		return nil, err
	}

	res := domain.NewDetectionResult(p.Applicant.ID, p.Applicant.FullName())

	e.checkDuplicates(ctx, p, defs, res)
	e.checkIdentifierValidity(p, defs, res)
	e.checkDOBMismatch(p, defs, res)
	e.checkNameMismatch(p, defs, res)
	e.checkGenderMismatch(p, defs, res)
	e.checkExpiredPassport(p, defs, res)
	e.checkAge(p, defs, res)
	e.checkTampering(p, defs, res)
	e.checkAddressMismatch(p, defs, res)

	res.Classify()
	return res, nil
}

func (e *Identity) checkDuplicates(ctx context.Context, p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	a := &p.Applicant

	if a.AadhaarNumber != "" {
		count, err := e.repo.CountApplicantsByAadhaar(ctx, a.AadhaarNumber, a.ID)
		if err != nil {
			slog.Error("duplicate aadhaar lookup failed", "applicant_id", a.ID, "error", err)
		} else if count > 0 {
			trigger(res, defs, "DUPLICATE_AADHAAR",
				fmt.Sprintf("Aadhaar %s shared with %d other applicant(s)", match.MaskAadhaar(a.AadhaarNumber), count))
		}
	}

	if a.PANNumber != "" {
		count, err := e.repo.CountApplicantsByPAN(ctx, a.PANNumber, a.ID)
		if err != nil {
			slog.Error("duplicate pan lookup failed", "applicant_id", a.ID, "error", err)
		} else if count > 0 {
			trigger(res, defs, "DUPLICATE_PAN",
				fmt.Sprintf("PAN %s shared with %d other applicant(s)", a.PANNumber, count))
		}
	}

	if a.Phone != "" {
		count, err := e.repo.CountApplicantsByPhone(ctx, a.Phone, a.ID)
		if err != nil {
			slog.Error("duplicate phone lookup failed", "applicant_id", a.ID, "error", err)
		} else if count > 0 {
			trigger(res, defs, "DUPLICATE_PHONE",
				fmt.Sprintf("Phone number shared with %d other applicant(s)", count))
		}
	}

	if a.Email != "" {
		count, err := e.repo.CountApplicantsByEmail(ctx, strings.ToLower(a.Email), a.ID)
		if err != nil {
			slog.Error("duplicate email lookup failed", "applicant_id", a.ID, "error", err)
		} else if count > 0 {
			trigger(res, defs, "DUPLICATE_EMAIL",
				fmt.Sprintf("Email address shared with %d other applicant(s)", count))
		}
	}
}

func (e *Identity) checkIdentifierValidity(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	a := &p.Applicant

	if a.AadhaarNumber == "" {
		trigger(res, defs, "MISSING_AADHAAR", "No Aadhaar number on the application")
	} else if !match.ValidAadhaarFormat(a.AadhaarNumber) {
		triggerDesc(res, defs, "INVALID_AADHAAR_FORMAT",
			fmt.Sprintf("Aadhaar %s is not a 12-digit number", match.MaskAadhaar(a.AadhaarNumber)),
			"format validation failed")
	} else if !match.VerhoeffValid(a.AadhaarNumber) {
		triggerDesc(res, defs, "INVALID_AADHAAR_CHECKSUM",
			fmt.Sprintf("Aadhaar %s fails Verhoeff checksum", match.MaskAadhaar(a.AadhaarNumber)),
			"checksum validation failed")
	}

	if a.PANNumber == "" {
		trigger(res, defs, "MISSING_PAN", "No PAN number on the application")
	} else if !match.ValidPANFormat(a.PANNumber) {
		triggerDesc(res, defs, "INVALID_PAN_FORMAT",
			fmt.Sprintf("PAN %s does not match format [A-Z]{5}[0-9]{4}[A-Z]", a.PANNumber),
			"format validation failed")
	}
}

func (e *Identity) checkDOBMismatch(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Applicant.DateOfBirth == nil {
		return
	}
	formDOB := p.Applicant.DateOfBirth.Format("2006-01-02")

	mismatch := false
	var details strings.Builder
	details.WriteString("DOB mismatches found:")

	for _, doc := range p.Identity {
		if doc.DateOfBirth == nil {
			continue
		}
		docDOB := doc.DateOfBirth.Format("2006-01-02")
		if docDOB != formDOB {
			mismatch = true
			fmt.Fprintf(&details, " %s has %s vs form %s;", doc.Type, docDOB, formDOB)
		}
	}

	if mismatch {
		trigger(res, defs, "DOB_MISMATCH", details.String())
	}
}

func (e *Identity) checkNameMismatch(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	formName := p.Applicant.FullName()
	if formName == "" {
		return
	}

	mismatch := false
	var details strings.Builder
	details.WriteString("Name mismatches found:")

	for _, doc := range p.Identity {
		if doc.Name == "" {
			continue
		}
		if !match.Names(formName, doc.Name) {
			mismatch = true
			fmt.Fprintf(&details, " %s has %q vs form %q;", doc.Type, doc.Name, formName)
		}
	}

	if mismatch {
		trigger(res, defs, "NAME_MISMATCH", details.String())
	}
}

func (e *Identity) checkGenderMismatch(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Applicant.Gender == "" {
		return
	}
	aadhaar := p.IdentityDoc(domain.DocAadhaar)
	if aadhaar == nil || aadhaar.Gender == "" {
		return
	}
	if !strings.EqualFold(p.Applicant.Gender, aadhaar.Gender) {
		trigger(res, defs, "GENDER_MISMATCH",
			fmt.Sprintf("Form gender %q vs Aadhaar gender %q", p.Applicant.Gender, aadhaar.Gender))
	}
}

func (e *Identity) checkExpiredPassport(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	passport := p.IdentityDoc(domain.DocPassport)
	if passport == nil || passport.ExpiryDate == nil {
		return
	}
	if passport.ExpiryDate.Before(time.Now()) {
		trigger(res, defs, "EXPIRED_PASSPORT",
			fmt.Sprintf("Passport expired on %s", passport.ExpiryDate.Format("2006-01-02")))
	}
}

func (e *Identity) checkAge(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	age := p.Applicant.Age(time.Now())
	if age < 0 {
		return
	}

	switch {
	case age < 18:
		trigger(res, defs, "MINOR_APPLICANT", fmt.Sprintf("Applicant is %d years old", age))
	case age > 80:
		trigger(res, defs, "SUSPICIOUS_AGE_HIGH", fmt.Sprintf("Applicant is %d years old", age))
	case age <= 20:
		trigger(res, defs, "SUSPICIOUS_AGE_LOW", fmt.Sprintf("Applicant is %d years old", age))
	}
}

func (e *Identity) checkTampering(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	for _, doc := range p.Identity {
		if !doc.Tampered {
			continue
		}
		switch doc.Type {
		case domain.DocAadhaar:
			trigger(res, defs, "AADHAAR_TAMPERED", "Aadhaar document flagged as tampered")
		case domain.DocPAN:
			trigger(res, defs, "PAN_TAMPERED", "PAN document flagged as tampered")
		case domain.DocPassport:
			trigger(res, defs, "PASSPORT_TAMPERED", "Passport document flagged as tampered")
		}
	}
}

func (e *Identity) checkAddressMismatch(p *domain.Profile, defs ruleSet, res *domain.DetectionResult) {
	if p.Applicant.Address == "" {
		return
	}
	aadhaar := p.IdentityDoc(domain.DocAadhaar)
	if aadhaar == nil || aadhaar.Address == "" {
		return
	}
	if !match.Addresses(p.Applicant.Address, aadhaar.Address) {
		trigger(res, defs, "ADDRESS_MISMATCH",
			fmt.Sprintf("Form address %q vs Aadhaar address %q", p.Applicant.Address, aadhaar.Address))
	}
}
