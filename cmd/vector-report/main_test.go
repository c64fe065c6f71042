package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"simcli/internal/config"
	"simcli/internal/timeseries"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRealizations(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    []int
		expectError bool
	}{
		{name: "empty means all", input: "", expected: nil},
		{name: "whitespace only", input: "   ", expected: nil},
		{name: "single id", input: "4", expected: []int{4}},
		{name: "list preserves order", input: "3,1,2", expected: []int{3, 1, 2}},
		{name: "range", input: "0-3", expected: []int{0, 1, 2, 3}},
		{name: "mixed with duplicates", input: "0-2,1,5", expected: []int{0, 1, 2, 5}},
		{name: "spaces tolerated", input: " 1 , 2-3 ", expected: []int{1, 2, 3}},
		{name: "trailing comma", input: "7,", expected: []int{7}},
		{name: "single element range", input: "6-6", expected: []int{6}},
		{name: "negative id", input: "-1", expectError: true},
		{name: "descending range", input: "5-2", expectError: true},
		{name: "garbage", input: "abc", expectError: true},
		{name: "garbage range end", input: "1-x", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRealizations(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDeltaPair(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectedA   string
		expectedB   string
		expectError bool
	}{
		{name: "simple pair", input: "iter-0:iter-3", expectedA: "iter-0", expectedB: "iter-3"},
		{name: "spaces trimmed", input: " base : sens ", expectedA: "base", expectedB: "sens"},
		{name: "missing colon", input: "iter-0", expectError: true},
		{name: "empty right side", input: "iter-0:", expectError: true},
		{name: "empty left side", input: ":iter-3", expectError: true},
		{name: "empty string", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := parseDeltaPair(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedA, def.EnsembleA)
			assert.Equal(t, tt.expectedB, def.EnsembleB)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"FOPT", "PER_DAY_FOPT", "R1"}, splitList("FOPT, PER_DAY_FOPT ,,R1"))
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , "))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "iter-0", expected: "iter-0"},
		{input: "(iter-0)-(iter-3)", expected: "_iter-0_-_iter-3_"},
		{input: "weird name/x", expected: "weird_name_x"},
		{input: "A.B_c-9", expected: "A.B_c-9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeName(tt.input))
	}
}

func TestDefaultOutputName(t *testing.T) {
	name := defaultOutputName("iter-0", "xlsx")
	assert.True(t, strings.HasPrefix(name, "iter-0_vectors_"), name)
	assert.True(t, strings.HasSuffix(name, ".xlsx"), name)

	name = defaultOutputName("(iter-0)-(iter-3)", "csv")
	assert.True(t, strings.HasPrefix(name, "_iter-0_-_iter-3__vectors_"), name)
	assert.True(t, strings.HasSuffix(name, ".csv"), name)
}

func TestExpressionsFromConfig(t *testing.T) {
	records := []config.ExpressionConfig{
		{Name: "R1", Expression: "x + 1", VariableVectorMap: map[string]string{"x": "FOPT"}},
	}

	expressions := expressionsFromConfig(records)
	require.Len(t, expressions, 1)
	assert.Equal(t, "R1", expressions[0].Name)
	assert.Equal(t, "x + 1", expressions[0].Expression)
	assert.Equal(t, map[string]string{"x": "FOPT"}, expressions[0].VariableVectorMap)
	assert.False(t, expressions[0].IsValid, "expressions are validated later, never at load")
}

func TestLoadExpressionsFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "expressions.yaml")
	content := `- name: R1
  expression: x + y
  variableVectorMap:
    x: FOPT
    y: FGPT
- name: DOUBLE
  expression: 2 * a
  variableVectorMap:
    a: FWPT
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	expressions, err := loadExpressionsFile(path)
	require.NoError(t, err)
	require.Len(t, expressions, 2)
	assert.Equal(t, "R1", expressions[0].Name)
	assert.Equal(t, map[string]string{"x": "FOPT", "y": "FGPT"}, expressions[0].VariableVectorMap)
	assert.Equal(t, "DOUBLE", expressions[1].Name)
	assert.Equal(t, "2 * a", expressions[1].Expression)

	_, err = loadExpressionsFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("a: b"), 0o644))
	_, err = loadExpressionsFile(bad)
	assert.Error(t, err)
}

func TestDateSpan(t *testing.T) {
	jan := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	first, last := dateSpan(timeseries.NewNaiveDates([]time.Time{feb, mar, jan}))
	assert.Equal(t, jan, first)
	assert.Equal(t, mar, last)
}
