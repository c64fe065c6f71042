package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRebaseToDate tests rebasing vectors against a reference date
func TestRebaseToDate(t *testing.T) {
	jan, feb, mar := date(2020, time.January, 1), date(2020, time.February, 1), date(2020, time.March, 1)

	t.Run("reference row becomes zero", func(t *testing.T) {
		frame := mustFrame(t,
			[]time.Time{jan, feb, mar},
			[]int{1, 1, 1},
			[]Series{{Name: "FOPT", Values: []float64{100, 150, 240}}})

		rebased, err := RebaseToDate(frame, feb)
		require.NoError(t, err)

		values, _ := rebased.Vector("FOPT")
		assert.Equal(t, []float64{-50, 0, 90}, values)
		assert.Equal(t, []time.Time{jan, feb, mar}, rebased.Dates().Times())
	})

	t.Run("realizations without the reference date are dropped", func(t *testing.T) {
		frame := mustFrame(t,
			[]time.Time{jan, feb, jan, mar},
			[]int{1, 1, 2, 2},
			[]Series{{Name: "FOPT", Values: []float64{10, 25, 7, 9}}})

		rebased, err := RebaseToDate(frame, feb)
		require.NoError(t, err)

		assert.Equal(t, []int{1, 1}, rebased.Reals())
		values, _ := rebased.Vector("FOPT")
		assert.Equal(t, []float64{-15, 0}, values)
	})

	t.Run("no realization at the reference date", func(t *testing.T) {
		frame := mustFrame(t,
			[]time.Time{jan, feb},
			[]int{1, 1},
			[]Series{{Name: "FOPT", Values: []float64{1, 2}}})

		rebased, err := RebaseToDate(frame, date(2030, time.January, 1))
		require.NoError(t, err)

		assert.Equal(t, 0, rebased.NumRows())
		assert.Equal(t, []string{"FOPT"}, rebased.VectorNames())
	})

	t.Run("reference matches exact sample instants only", func(t *testing.T) {
		frame := mustFrame(t,
			[]time.Time{jan, feb},
			[]int{1, 1},
			[]Series{{Name: "FOPT", Values: []float64{1, 2}}})

		noon := time.Date(2020, time.January, 1, 12, 0, 0, 0, time.UTC)
		rebased, err := RebaseToDate(frame, noon)
		require.NoError(t, err)
		assert.Equal(t, 0, rebased.NumRows())
	})

	t.Run("missing key columns fail", func(t *testing.T) {
		var frame Frame
		_, err := RebaseToDate(frame, jan)
		assert.ErrorIs(t, err, ErrMissingRequiredColumns)
	})

	t.Run("raw timestamp dates rejected", func(t *testing.T) {
		frame, err := NewFrame(NewTimestampDates([]int64{0}, TimeUnitMillisecond), []int{1},
			[]Series{{Name: "FOPT", Values: []float64{1}}})
		require.NoError(t, err)

		_, err = RebaseToDate(frame, jan)
		assert.ErrorIs(t, err, ErrInvalidDateColumn)
	})
}
