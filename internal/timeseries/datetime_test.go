package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAssertDateColumn tests the canonical-representation guard
func TestAssertDateColumn(t *testing.T) {
	t.Run("canonical column passes", func(t *testing.T) {
		frame := mustFrame(t, monthlyDates(2), []int{1, 1}, nil)
		assert.NoError(t, AssertDateColumn(frame))
	})

	t.Run("zero row frame passes", func(t *testing.T) {
		frame := mustFrame(t, nil, []int{}, nil)
		assert.NoError(t, AssertDateColumn(frame))
	})

	t.Run("missing key columns fail", func(t *testing.T) {
		var frame Frame
		assert.ErrorIs(t, AssertDateColumn(frame), ErrInvalidDateColumn)
	})

	t.Run("raw timestamp column fails", func(t *testing.T) {
		ticks := []int64{date(2020, time.January, 1).UnixMilli()}
		frame, err := NewFrame(NewTimestampDates(ticks, TimeUnitMillisecond), []int{1}, nil)
		require.NoError(t, err)

		err = AssertDateColumn(frame)
		assert.ErrorIs(t, err, ErrInvalidDateColumn)
		assert.Contains(t, err.Error(), "raw timestamp")
	})
}

// TestNormalizeDateColumn tests conversion to canonical dates
func TestNormalizeDateColumn(t *testing.T) {
	jan, feb := date(2020, time.January, 1), date(2020, time.February, 1)

	t.Run("canonical input passes through", func(t *testing.T) {
		frame := mustFrame(t, []time.Time{jan, feb}, []int{1, 1},
			[]Series{{Name: "V", Values: []float64{1, 2}}})

		normalized, err := NormalizeDateColumn(frame)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{jan, feb}, normalized.Dates().Times())
	})

	t.Run("millisecond ticks convert", func(t *testing.T) {
		ticks := []int64{jan.UnixMilli(), feb.UnixMilli()}
		frame, err := NewFrame(NewTimestampDates(ticks, TimeUnitMillisecond), []int{1, 1},
			[]Series{{Name: "V", Values: []float64{1, 2}}})
		require.NoError(t, err)

		normalized, err := NormalizeDateColumn(frame)
		require.NoError(t, err)
		assert.Equal(t, DateKindNaive, normalized.Dates().Kind())
		assert.Equal(t, []time.Time{jan, feb}, normalized.Dates().Times())
		values, _ := normalized.Vector("V")
		assert.Equal(t, []float64{1, 2}, values)
	})

	t.Run("second ticks convert", func(t *testing.T) {
		frame, err := NewFrame(NewTimestampDates([]int64{jan.Unix()}, TimeUnitSecond), []int{1}, nil)
		require.NoError(t, err)

		normalized, err := NormalizeDateColumn(frame)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{jan}, normalized.Dates().Times())
	})

	t.Run("idempotent beyond nanosecond range", func(t *testing.T) {
		// year 2500 overflows a nanosecond-tick representation; the
		// canonical form must survive repeated normalization unchanged
		far := date(2500, time.June, 15)
		frame, err := NewFrame(NewTimestampDates([]int64{far.UnixMilli()}, TimeUnitMillisecond), []int{1}, nil)
		require.NoError(t, err)

		once, err := NormalizeDateColumn(frame)
		require.NoError(t, err)
		twice, err := NormalizeDateColumn(once)
		require.NoError(t, err)

		assert.Equal(t, []time.Time{far}, once.Dates().Times())
		assert.Equal(t, once.Dates().Times(), twice.Dates().Times())
	})

	t.Run("unknown representation fails", func(t *testing.T) {
		frame, err := NewFrame(NewUnknownDates("string dates", 2), []int{1, 2}, nil)
		require.NoError(t, err)

		_, err = NormalizeDateColumn(frame)
		assert.ErrorIs(t, err, ErrUnsupportedDateType)
		assert.Contains(t, err.Error(), "string dates")
	})

	t.Run("missing key columns fail", func(t *testing.T) {
		var frame Frame
		_, err := NormalizeDateColumn(frame)
		assert.ErrorIs(t, err, ErrInvalidDateColumn)
	})
}
