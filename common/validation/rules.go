// Package validation checks recipe input before it reaches the stores.
package validation

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/lyzr/recipes/common/apperrors"
)

// DefaultIngredientRules apply when no rules are configured. Names are free
// form, empty ones included; stricter checks go in INGREDIENT_RULES.
var DefaultIngredientRules = []string{
	"amount >= 0.0",
}

type rule struct {
	expr string
	prg  cel.Program
}

// IngredientRules evaluates CEL expressions against one ingredient line.
// Expressions see name (string), amount (double) and unit (string) and must
// yield a bool.
type IngredientRules struct {
	rules []rule
}

// NewIngredientRules compiles exprs. Blank entries are skipped; an empty list
// falls back to DefaultIngredientRules.
func NewIngredientRules(exprs []string) (*IngredientRules, error) {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("unit", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	var cleaned []string
	for _, expr := range exprs {
		if expr = strings.TrimSpace(expr); expr != "" {
			cleaned = append(cleaned, expr)
		}
	}
	if len(cleaned) == 0 {
		cleaned = DefaultIngredientRules
	}

	r := &IngredientRules{}
	for _, expr := range cleaned {
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("CEL compilation error in %q: %w", expr, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule %q must return bool, got %s", expr, ast.OutputType())
		}

		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create CEL program for %q: %w", expr, err)
		}
		r.rules = append(r.rules, rule{expr: expr, prg: prg})
	}

	return r, nil
}

// Validate returns an apperrors.ErrInvalid error naming the first rule the line breaks
func (r *IngredientRules) Validate(name string, amount float64, unit string) error {
	if r == nil {
		return nil
	}

	vars := map[string]any{
		"name":   name,
		"amount": amount,
		"unit":   unit,
	}

	for _, rl := range r.rules {
		out, _, err := rl.prg.Eval(vars)
		if err != nil {
			return apperrors.Invalid("ingredient %q: rule %q: %v", name, rl.expr, err)
		}
		if ok, _ := out.Value().(bool); !ok {
			return apperrors.Invalid("ingredient %q violates rule %q", name, rl.expr)
		}
	}

	return nil
}

// Exprs lists the compiled expressions in evaluation order
func (r *IngredientRules) Exprs() []string {
	exprs := make([]string, len(r.rules))
	for i, rl := range r.rules {
		exprs[i] = rl.expr
	}
	return exprs
}
