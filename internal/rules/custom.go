package rules

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/shikra/internal/domain"
)

// ExpressionEngine compiles and evaluates operator-defined EXPRESSION
// rules. These let a risk team add ad-hoc checks over applicant facts
// via the rule catalog, without a deploy.
type ExpressionEngine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*compiledExpression
}

type compiledExpression struct {
	def     *domain.RuleDefinition
	program cel.Program
}

// NewExpressionEngine creates the engine with the applicant fact
// variables available to expressions.
func NewExpressionEngine() (*ExpressionEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("age", cel.IntType),
		cel.Variable("gender", cel.StringType),
		cel.Variable("city", cel.StringType),
		cel.Variable("state", cel.StringType),
		cel.Variable("monthly_income", cel.DoubleType),
		cel.Variable("annual_income", cel.DoubleType),
		cel.Variable("employment_type", cel.StringType),
		cel.Variable("employer_name", cel.StringType),
		cel.Variable("loan_amount", cel.DoubleType),
		cel.Variable("loan_type", cel.StringType),
		cel.Variable("declared_loans", cel.IntType),
		cel.Variable("active_loans", cel.IntType),
		cel.Variable("credit_cards", cel.IntType),
		cel.Variable("credit_utilization", cel.DoubleType),
		cel.Variable("total_emi", cel.DoubleType),
		cel.Variable("total_credit", cel.DoubleType),
		cel.Variable("total_debit", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &ExpressionEngine{
		env:      env,
		compiled: make(map[string]*compiledExpression),
	}, nil
}

// Validate compiles an expression without loading it.
func (e *ExpressionEngine) Validate(def *domain.RuleDefinition) error {
	if def == nil {
		return fmt.Errorf("rule definition is required")
	}
	_, err := e.compile(def)
	return err
}

// Load compiles and loads one expression rule.
func (e *ExpressionEngine) Load(def *domain.RuleDefinition) error {
	compiled, err := e.compile(def)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.compiled[def.Code] = compiled
	e.mu.Unlock()
	return nil
}

// Reload replaces the loaded expressions with the EXPRESSION rules in
// defs that are active and carry an expression. Enables hot-reloading
// after catalog changes.
func (e *ExpressionEngine) Reload(defs []*domain.RuleDefinition) error {
	next := make(map[string]*compiledExpression)
	for _, def := range defs {
		if def.RuleType != domain.RuleTypeExpression || !def.Active || def.Expression == "" {
			continue
		}
		compiled, err := e.compile(def)
		if err != nil {
			return err
		}
		next[def.Code] = compiled
	}

	e.mu.Lock()
	e.compiled = next
	e.mu.Unlock()
	return nil
}

// Count returns the number of loaded expression rules.
func (e *ExpressionEngine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// Evaluate runs every loaded expression whose category is in the
// requested set against the profile and returns the triggered rules.
// An expression that fails to evaluate is logged by the caller's
// result handling and skipped; it never aborts the run.
func (e *ExpressionEngine) Evaluate(p *domain.Profile, categories map[domain.Category]bool) []domain.TriggeredRule {
	e.mu.RLock()
	loaded := make([]*compiledExpression, 0, len(e.compiled))
	for _, ce := range e.compiled {
		loaded = append(loaded, ce)
	}
	e.mu.RUnlock()

	if len(loaded) == 0 {
		return nil
	}

	activation := activationFromProfile(p)

	var triggered []domain.TriggeredRule
	for _, ce := range loaded {
		if categories != nil && !categories[ce.def.Category] {
			continue
		}
		out, _, err := ce.program.Eval(activation)
		if err != nil {
			continue
		}
		if b, ok := out.(types.Bool); ok && bool(b) {
			triggered = append(triggered, domain.TriggeredRule{
				RuleCode:    ce.def.Code,
				RuleName:    ce.def.Name,
				Description: ce.def.Description,
				Category:    ce.def.Category,
				Severity:    ce.def.Severity,
				Points:      ce.def.Points,
				Details:     "expression rule matched: " + ce.def.Expression,
				DetectedAt:  time.Now().UTC(),
			})
		}
	}
	return triggered
}

func activationFromProfile(p *domain.Profile) map[string]any {
	activation := map[string]any{
		"age":                int64(p.Applicant.Age(time.Now())),
		"gender":             p.Applicant.Gender,
		"city":               p.Applicant.City,
		"state":              p.Applicant.State,
		"monthly_income":     0.0,
		"annual_income":      0.0,
		"employment_type":    "",
		"employer_name":      "",
		"loan_amount":        0.0,
		"loan_type":          "",
		"declared_loans":     int64(0),
		"active_loans":       int64(0),
		"credit_cards":       int64(0),
		"credit_utilization": 0.0,
		"total_emi":          0.0,
		"total_credit":       0.0,
		"total_debit":        0.0,
	}

	if emp := p.Employment; emp != nil {
		activation["monthly_income"] = emp.MonthlyIncome
		activation["annual_income"] = emp.MonthlyIncome * 12
		activation["employment_type"] = emp.EmploymentType
		activation["employer_name"] = emp.EmployerName
	}
	if loan := p.Loan; loan != nil {
		activation["loan_amount"] = loan.Amount
		activation["loan_type"] = loan.Type
		activation["declared_loans"] = int64(loan.DeclaredExistingLoans)
	}
	if rep := p.CreditReport; rep != nil {
		activation["active_loans"] = int64(rep.ActiveLoans)
		activation["credit_cards"] = int64(rep.CreditCardCount)
		activation["credit_utilization"] = rep.CreditUtilization
		activation["total_emi"] = rep.TotalMonthlyEMI
	}
	if rec := p.BankRecord; rec != nil {
		activation["total_credit"] = rec.TotalCredit
		activation["total_debit"] = rec.TotalDebit
	}

	return activation
}

func (e *ExpressionEngine) compile(def *domain.RuleDefinition) (*compiledExpression, error) {
	ast, issues := e.env.Compile(def.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", def.Code, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", def.Code, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", def.Code, err)
	}

	return &compiledExpression{def: def, program: program}, nil
}
