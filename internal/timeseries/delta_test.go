package timeseries

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simcli/internal/calc"
)

// deltaFixture builds the two sides of a delta ensemble over Jan-Mar 2020.
// Ensemble A carries realizations 1, 2, 4 and 7; ensemble B carries 1, 2
// and 4 with its rows in reverse order, so alignment cannot rely on row
// position. Values scale with the realization id.
func deltaFixture(t *testing.T) (ensA, ensB *InMemoryProvider) {
	t.Helper()
	jan, feb, mar := date(2020, time.January, 1), date(2020, time.February, 1), date(2020, time.March, 1)

	frameA := mustFrame(t,
		[]time.Time{jan, feb, mar, jan, feb, mar, jan, feb, mar, jan, feb, mar},
		[]int{1, 1, 1, 2, 2, 2, 4, 4, 4, 7, 7, 7},
		[]Series{
			{Name: "A", Values: []float64{10, 20, 30, 20, 40, 60, 40, 80, 120, 70, 140, 210}},
			{Name: "B", Values: []float64{500, 1000, 1500, 1000, 2000, 3000, 2000, 4000, 6000, 3500, 7000, 10500}},
			{Name: "ONLY_A", Values: []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
		})

	frameB := mustFrame(t,
		[]time.Time{mar, feb, jan, mar, feb, jan, mar, feb, jan},
		[]int{4, 4, 4, 2, 2, 2, 1, 1, 1},
		[]Series{
			{Name: "A", Values: []float64{12, 8, 4, 6, 4, 2, 3, 2, 1}},
			{Name: "B", Values: []float64{600, 400, 200, 300, 200, 100, 150, 100, 50}},
		})

	return NewInMemoryProvider(frameA), NewInMemoryProvider(frameB)
}

// TestNewDeltaEnsembleVectorsAccessor tests provider-pair guards
func TestNewDeltaEnsembleVectorsAccessor(t *testing.T) {
	ensA, ensB := deltaFixture(t)

	t.Run("exactly two providers", func(t *testing.T) {
		_, err := NewDeltaEnsembleVectorsAccessor([]SummaryProvider{ensA}, AccessorConfig{})
		assert.ErrorIs(t, err, ErrInvalidProviderPair)
	})

	t.Run("nil provider in pair", func(t *testing.T) {
		_, err := NewDeltaEnsembleVectorsAccessor([]SummaryProvider{ensA, nil}, AccessorConfig{})
		assert.ErrorIs(t, err, ErrInvalidProviderPair)
	})

	t.Run("resampling capability must agree", func(t *testing.T) {
		a, b := deltaFixture(t)
		a.SetResamplingSupported(true)
		_, err := NewDeltaEnsembleVectorsAccessor([]SummaryProvider{a, b}, AccessorConfig{})
		assert.ErrorIs(t, err, ErrResamplingSupportMismatch)
	})

	t.Run("vector universe is the intersection", func(t *testing.T) {
		accessor, err := NewDeltaEnsembleVectorsAccessor([]SummaryProvider{ensA, ensB}, AccessorConfig{
			VectorNames: []string{"ONLY_A"},
		})
		require.NoError(t, err)
		assert.False(t, accessor.HasProviderVectors())
	})
}

// TestDeltaGetProviderVectors tests aligned ensemble subtraction
func TestDeltaGetProviderVectors(t *testing.T) {
	ctx := context.Background()
	ensA, ensB := deltaFixture(t)
	accessor, err := NewDeltaEnsembleVectorsAccessor([]SummaryProvider{ensA, ensB}, AccessorConfig{
		VectorNames: []string{"A", "B"},
	})
	require.NoError(t, err)

	t.Run("difference over shared realizations", func(t *testing.T) {
		frame, err := accessor.GetProviderVectors(ctx, nil)
		require.NoError(t, err)

		// realization 7 exists only in ensemble A and is dropped
		assert.Equal(t, []int{1, 1, 1, 2, 2, 2, 4, 4, 4}, frame.Reals())
		a, _ := frame.Vector("A")
		b, _ := frame.Vector("B")
		assert.Equal(t, []float64{9, 18, 27, 18, 36, 54, 36, 72, 108}, a)
		assert.Equal(t, []float64{450, 900, 1350, 900, 1800, 2700, 1800, 3600, 5400}, b)
	})

	t.Run("realization filter is clipped to the shared set", func(t *testing.T) {
		frame, err := accessor.GetProviderVectors(ctx, []int{1, 7})
		require.NoError(t, err)

		assert.Equal(t, []int{1, 1, 1}, frame.Reals())
		a, _ := frame.Vector("A")
		assert.Equal(t, []float64{9, 18, 27}, a)
	})

	t.Run("antisymmetry", func(t *testing.T) {
		reversed, err := NewDeltaEnsembleVectorsAccessor([]SummaryProvider{ensB, ensA}, AccessorConfig{
			VectorNames: []string{"A"},
		})
		require.NoError(t, err)

		forward, err := accessor.GetProviderVectors(ctx, nil)
		require.NoError(t, err)
		backward, err := reversed.GetProviderVectors(ctx, nil)
		require.NoError(t, err)

		fa, _ := forward.Vector("A")
		ba, _ := backward.Vector("A")
		require.Len(t, ba, len(fa))
		for i := range fa {
			assert.Equal(t, -fa[i], ba[i])
		}
	})

	t.Run("rows missing from one side are dropped", func(t *testing.T) {
		jan, feb, mar := date(2020, time.January, 1), date(2020, time.February, 1), date(2020, time.March, 1)
		full := NewInMemoryProvider(mustFrame(t,
			[]time.Time{jan, feb, mar}, []int{1, 1, 1},
			[]Series{{Name: "V", Values: []float64{5, 6, 7}}}))
		short := NewInMemoryProvider(mustFrame(t,
			[]time.Time{jan, feb}, []int{1, 1},
			[]Series{{Name: "V", Values: []float64{1, 1}}}))

		accessor, err := NewDeltaEnsembleVectorsAccessor([]SummaryProvider{full, short}, AccessorConfig{
			VectorNames: []string{"V"},
		})
		require.NoError(t, err)

		frame, err := accessor.GetProviderVectors(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{jan, feb}, frame.Dates().Times())
		v, _ := frame.Vector("V")
		assert.Equal(t, []float64{4, 5}, v)
	})
}

// TestDeltaGetRateVectors tests rate derivation from the differenced
// cumulative
func TestDeltaGetRateVectors(t *testing.T) {
	ctx := context.Background()
	jan, feb, mar := date(2020, time.January, 1), date(2020, time.February, 1), date(2020, time.March, 1)

	ensA := NewInMemoryProvider(mustFrame(t,
		[]time.Time{jan, feb, mar}, []int{1, 1, 1},
		[]Series{{Name: "FOPT", Values: []float64{0, 100, 300}}}))
	ensB := NewInMemoryProvider(mustFrame(t,
		[]time.Time{jan, feb, mar}, []int{1, 1, 1},
		[]Series{{Name: "FOPT", Values: []float64{0, 40, 100}}}))

	accessor, err := NewDeltaEnsembleVectorsAccessor([]SummaryProvider{ensA, ensB}, AccessorConfig{
		VectorNames: []string{"PER_INTVL_FOPR"},
	})
	require.NoError(t, err)

	frame, err := accessor.GetRateVectors(ctx, nil)
	require.NoError(t, err)

	// delta cumulative is [0, 60, 200]; intervals derive from that
	values, ok := frame.Vector("PER_INTVL_FOPT")
	require.True(t, ok)
	assert.Equal(t, []float64{60, 140, 0}, values)
}

// TestDeltaGetCalculatedVectors tests that expressions evaluate per
// ensemble before subtraction
func TestDeltaGetCalculatedVectors(t *testing.T) {
	ctx := context.Background()
	ensA, ensB := deltaFixture(t)

	expressions := ValidateExpressions([]Expression{
		{Name: "PROD", Expression: "x*y", VariableVectorMap: map[string]string{"x": "A", "y": "B"}},
	}, calc.NewEvaluator())

	accessor, err := NewDeltaEnsembleVectorsAccessor([]SummaryProvider{ensA, ensB}, AccessorConfig{
		VectorNames: []string{"PROD"},
		Expressions: expressions,
		Evaluator:   calc.NewEvaluator(),
	})
	require.NoError(t, err)

	frame, err := accessor.GetCalculatedVectors(ctx, []int{1})
	require.NoError(t, err)

	// x*y evaluated per ensemble then differenced: 10*500-1*50, not
	// (10-1)*(500-50)
	values, _ := frame.Vector("PROD")
	assert.Equal(t, []float64{4950, 19800, 44550}, values)
}

// TestDeltaValidRealizationsQuery tests containment over the shared
// realization set
func TestDeltaValidRealizationsQuery(t *testing.T) {
	ensA, ensB := deltaFixture(t)
	accessor, err := NewDeltaEnsembleVectorsAccessor([]SummaryProvider{ensA, ensB}, AccessorConfig{
		VectorNames: []string{"A"},
	})
	require.NoError(t, err)

	t.Run("superset of the shared set needs no filter", func(t *testing.T) {
		assert.Nil(t, accessor.ValidRealizationsQuery([]int{1, 2, 4, 7}))
	})

	t.Run("partial overlap intersects", func(t *testing.T) {
		assert.Equal(t, []int{4, 1}, accessor.ValidRealizationsQuery([]int{4, 1, 7}))
	})

	t.Run("disjoint selection yields empty non-nil", func(t *testing.T) {
		got := accessor.ValidRealizationsQuery([]int{7, 9})
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
