package arrowstore

import (
	"time"

	"simcli/internal/timeseries"
)

// resampleTicks re-derives one realization's samples at calendar period
// starts. Input ticks are epoch milliseconds, sorted ascending. The output
// covers every period start inside [first, last]; each sample carries the
// last stored observation at or before it (no interpolation). The returned
// rows index into the original ticks for column value lookup.
func resampleTicks(ticks []int64, freq timeseries.Frequency) ([]int64, []int) {
	if len(ticks) == 0 {
		return []int64{}, []int{}
	}

	first := time.UnixMilli(ticks[0]).UTC()
	last := ticks[len(ticks)-1]

	start := periodStart(first, freq)
	if start.UnixMilli() < ticks[0] {
		start = nextPeriodStart(start, freq)
	}

	var sampleTicks []int64
	var rows []int
	row := 0
	for t := start; t.UnixMilli() <= last; t = nextPeriodStart(t, freq) {
		sample := t.UnixMilli()
		for row+1 < len(ticks) && ticks[row+1] <= sample {
			row++
		}
		sampleTicks = append(sampleTicks, sample)
		rows = append(rows, row)
	}

	if sampleTicks == nil {
		return []int64{}, []int{}
	}
	return sampleTicks, rows
}

// periodStart floors a date to the start of its calendar period.
func periodStart(t time.Time, freq timeseries.Frequency) time.Time {
	t = t.UTC()
	switch freq {
	case timeseries.FrequencyDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case timeseries.FrequencyWeekly:
		// ISO weeks start on Monday
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case timeseries.FrequencyMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case timeseries.FrequencyQuarterly:
		quarterMonth := time.Month(((int(t.Month())-1)/3)*3 + 1)
		return time.Date(t.Year(), quarterMonth, 1, 0, 0, 0, 0, time.UTC)
	case timeseries.FrequencyYearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

// nextPeriodStart advances a period start by one period.
func nextPeriodStart(t time.Time, freq timeseries.Frequency) time.Time {
	switch freq {
	case timeseries.FrequencyDaily:
		return t.AddDate(0, 0, 1)
	case timeseries.FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case timeseries.FrequencyMonthly:
		return t.AddDate(0, 1, 0)
	case timeseries.FrequencyQuarterly:
		return t.AddDate(0, 3, 0)
	case timeseries.FrequencyYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t
	}
}
