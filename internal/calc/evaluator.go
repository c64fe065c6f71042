// Package calc evaluates vector-calculator expressions: arithmetic over
// named variables, applied elementwise to equal-length float64 columns.
// It provides the expression-evaluation capability the timeseries
// accessors consume.
package calc

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// Evaluator parses and evaluates calculator expressions with govaluate.
// The zero value is ready to use.
type Evaluator struct{}

// NewEvaluator returns an expression evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Validate reports whether the expression parses and references only the
// given variables.
func (e *Evaluator) Validate(expression string, variables []string) error {
	parsed, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return fmt.Errorf("parse expression %q: %w", expression, err)
	}
	allowed := make(map[string]struct{}, len(variables))
	for _, v := range variables {
		allowed[v] = struct{}{}
	}
	for _, v := range parsed.Vars() {
		if _, ok := allowed[v]; !ok {
			return fmt.Errorf("expression %q references unmapped variable %q", expression, v)
		}
	}
	return nil
}

// Evaluate computes the expression once per row over the variable columns
// and returns the output column. All columns must have equal length and
// the expression must produce a numeric result.
func (e *Evaluator) Evaluate(expression string, variables map[string][]float64) ([]float64, error) {
	parsed, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return nil, fmt.Errorf("parse expression %q: %w", expression, err)
	}

	rows := -1
	for name, column := range variables {
		if rows == -1 {
			rows = len(column)
			continue
		}
		if len(column) != rows {
			return nil, fmt.Errorf("variable %s has %d values, expected %d", name, len(column), rows)
		}
	}
	if rows < 0 {
		return nil, fmt.Errorf("expression %q has no variable columns", expression)
	}

	out := make([]float64, rows)
	params := make(map[string]interface{}, len(variables))
	for i := 0; i < rows; i++ {
		for name, column := range variables {
			params[name] = column[i]
		}
		result, err := parsed.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("evaluate expression %q at row %d: %w", expression, i, err)
		}
		value, ok := result.(float64)
		if !ok {
			return nil, fmt.Errorf("expression %q produced %T, expected a number", expression, result)
		}
		out[i] = value
	}
	return out, nil
}
