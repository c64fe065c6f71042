package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEvaluatorValidate tests expression parsing and variable coverage
func TestEvaluatorValidate(t *testing.T) {
	evaluator := NewEvaluator()

	tests := []struct {
		name       string
		expression string
		variables  []string
		wantErr    bool
	}{
		{name: "simple sum", expression: "x+y", variables: []string{"x", "y"}},
		{name: "unused variable allowed", expression: "x", variables: []string{"x", "y"}},
		{name: "parenthesized", expression: "(x+y)*0.5", variables: []string{"x", "y"}},
		{name: "unmapped variable", expression: "x+z", variables: []string{"x", "y"}, wantErr: true},
		{name: "unparsable", expression: "x+", variables: []string{"x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := evaluator.Validate(tt.expression, tt.variables)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestEvaluatorEvaluate tests elementwise evaluation over columns
func TestEvaluatorEvaluate(t *testing.T) {
	evaluator := NewEvaluator()

	t.Run("sum is elementwise", func(t *testing.T) {
		out, err := evaluator.Evaluate("x+y", map[string][]float64{
			"x": {1, 2, 3},
			"y": {10, 20, 30},
		})
		require.NoError(t, err)
		assert.Equal(t, []float64{11, 22, 33}, out)
	})

	t.Run("mixed arithmetic", func(t *testing.T) {
		out, err := evaluator.Evaluate("(x-y)*2", map[string][]float64{
			"x": {5, 5},
			"y": {1, 2},
		})
		require.NoError(t, err)
		assert.Equal(t, []float64{8, 6}, out)
	})

	t.Run("zero rows", func(t *testing.T) {
		out, err := evaluator.Evaluate("x*3", map[string][]float64{"x": {}})
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("column length mismatch", func(t *testing.T) {
		_, err := evaluator.Evaluate("x+y", map[string][]float64{
			"x": {1, 2},
			"y": {1},
		})
		assert.Error(t, err)
	})

	t.Run("no variable columns", func(t *testing.T) {
		_, err := evaluator.Evaluate("1+1", map[string][]float64{})
		assert.Error(t, err)
	})

	t.Run("non numeric result", func(t *testing.T) {
		_, err := evaluator.Evaluate("x > y", map[string][]float64{
			"x": {1},
			"y": {2},
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "expected a number")
	})

	t.Run("unparsable expression", func(t *testing.T) {
		_, err := evaluator.Evaluate("x+", map[string][]float64{"x": {1}})
		assert.Error(t, err)
	})
}
