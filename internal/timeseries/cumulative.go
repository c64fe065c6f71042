package timeseries

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Reserved prefixes naming vectors derived from cumulatives. Recognition is
// case-sensitive.
const (
	// PerDayPrefix marks a rate vector: interval delta divided by the
	// calendar days spanned.
	PerDayPrefix = "PER_DAY_"
	// PerIntervalPrefix marks an interval vector: the raw delta between
	// consecutive samples.
	PerIntervalPrefix = "PER_INTVL_"
)

// IsRateVector reports whether the name carries one of the reserved
// per-day/per-interval prefixes.
func IsRateVector(name string) bool {
	return strings.HasPrefix(name, PerDayPrefix) || strings.HasPrefix(name, PerIntervalPrefix)
}

// CumulativeNameFor returns the cumulative provider vector a rate-vector
// name derives from: the name with its prefix stripped and, when the
// mnemonic root (the part before any ':' qualifier) ends in the rate
// letter 'R', that letter rewritten to the total letter 'T'. FOPR maps to
// FOPT, WOPR:OP1 to WOPT:OP1, FOPT stays FOPT. Fails with ErrNotARateVector
// when the name carries no recognized prefix.
func CumulativeNameFor(name string) (string, error) {
	var base string
	switch {
	case strings.HasPrefix(name, PerDayPrefix):
		base = strings.TrimPrefix(name, PerDayPrefix)
	case strings.HasPrefix(name, PerIntervalPrefix):
		base = strings.TrimPrefix(name, PerIntervalPrefix)
	default:
		return "", fmt.Errorf("%w: %s", ErrNotARateVector, name)
	}

	root, qualifier, hasQualifier := strings.Cut(base, ":")
	if strings.HasSuffix(root, "R") {
		root = root[:len(root)-1] + "T"
	}
	if hasQualifier {
		return root + ":" + qualifier, nil
	}
	return root, nil
}

// ComputeRateVectors derives interval or per-day-rate vectors from a frame
// of cumulative vectors. Per realization, ordered by date ascending, the
// output at sample i is cumulative[i+1]-cumulative[i], divided by the
// calendar days between the samples when asPerDay is set. The final sample
// of each realization is 0.0 by definition (no following interval), also
// when the realization has a single sample. Output columns are the input
// names with PerDayPrefix or PerIntervalPrefix prepended; DATE and REAL
// pass through. The DATE column must be canonical.
func ComputeRateVectors(frame Frame, asPerDay bool) (Frame, error) {
	if err := AssertDateColumn(frame); err != nil {
		return Frame{}, err
	}

	prefix := PerIntervalPrefix
	if asPerDay {
		prefix = PerDayPrefix
	}

	sorted := frame
	if sorted.NumRows() > 0 {
		sorted = frame.SortByRealAndDate()
	}
	runs := realizationRuns(sorted.Reals())

	var dayCounts [][]float64
	if asPerDay {
		dayCounts = make([][]float64, len(runs))
		for ri, run := range runs {
			days := make([]float64, run.end-run.start-1)
			for i := range days {
				row := run.start + i
				days[i] = sorted.Dates().At(row+1).Sub(sorted.Dates().At(row)).Hours() / 24.0
			}
			dayCounts[ri] = days
		}
	}

	columns := make([]Series, len(sorted.Columns()))
	for c, col := range sorted.Columns() {
		values := make([]float64, len(col.Values))
		for ri, run := range runs {
			for i := run.start; i < run.end-1; i++ {
				values[i] = col.Values[i+1] - col.Values[i]
			}
			values[run.end-1] = 0.0
			if asPerDay && run.end-run.start > 1 {
				floats.Div(values[run.start:run.end-1], dayCounts[ri])
			}
		}
		columns[c] = Series{Name: prefix + col.Name, Values: values}
	}

	return NewFrame(sorted.Dates(), sorted.Reals(), columns)
}

// run is a contiguous [start, end) row range belonging to one realization
// in a frame sorted by REAL then DATE.
type run struct {
	start, end int
}

func realizationRuns(reals []int) []run {
	var runs []run
	for i := 0; i < len(reals); {
		j := i + 1
		for j < len(reals) && reals[j] == reals[i] {
			j++
		}
		runs = append(runs, run{start: i, end: j})
		i = j
	}
	return runs
}
