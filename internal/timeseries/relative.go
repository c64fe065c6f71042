package timeseries

import (
	"fmt"
	"time"
)

// RebaseToDate rebases every vector column so that the value observed at
// refDate becomes the zero point, per realization: for each realization
// with a row at refDate, that row's values are subtracted elementwise from
// all of the realization's rows. Realizations without a row at refDate are
// dropped entirely (not an error); when no realization has one, the result
// is a zero-row frame with the input's column set and representations.
// Requires DATE and REAL columns (ErrMissingRequiredColumns) with the DATE
// column canonical (ErrInvalidDateColumn).
func RebaseToDate(frame Frame, refDate time.Time) (Frame, error) {
	if !frame.hasKeyColumns() {
		return Frame{}, fmt.Errorf("%w: cannot rebase to %s", ErrMissingRequiredColumns, refDate.Format("2006-01-02"))
	}
	if err := AssertDateColumn(frame); err != nil {
		return Frame{}, err
	}

	refKey := toCanonical(refDate).UnixMilli()
	refRows := make(map[int]int)
	for i := 0; i < frame.NumRows(); i++ {
		if frame.Dates().keyAt(i) == refKey {
			refRows[frame.Reals()[i]] = i
		}
	}
	if len(refRows) == 0 {
		return frame.emptyLike(), nil
	}

	var keep []int
	for i, real := range frame.Reals() {
		if _, ok := refRows[real]; ok {
			keep = append(keep, i)
		}
	}

	rebased := frame.takeRows(keep)
	for c, col := range frame.Columns() {
		out := rebased.Columns()[c].Values
		for i, row := range keep {
			out[i] = col.Values[row] - col.Values[refRows[frame.Reals()[row]]]
		}
	}
	return rebased, nil
}
