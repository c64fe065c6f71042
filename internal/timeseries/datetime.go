package timeseries

import "fmt"

// Canonical dates are UTC wall-clock time.Time values at millisecond
// precision. Timestamp libraries coerce dates beyond year 2262 into a
// different representation than dates within it (nanosecond tick overflow);
// normalizing up front keeps equality and subtraction well-defined across
// the whole calendar range a simulation can reach.

// AssertDateColumn verifies that the frame carries a DATE column in the
// canonical representation. A zero-row frame passes. A frame without key
// columns, or with a non-canonical DATE representation, fails with
// ErrInvalidDateColumn naming the representation found.
func AssertDateColumn(frame Frame) error {
	if !frame.hasKeyColumns() {
		return fmt.Errorf("%w: no DATE column", ErrInvalidDateColumn)
	}
	if frame.NumRows() == 0 {
		return nil
	}
	if kind := frame.Dates().Kind(); kind != DateKindNaive {
		return fmt.Errorf("%w: DATE column holds %s values, expected naive datetimes", ErrInvalidDateColumn, kind)
	}
	return nil
}

// NormalizeDateColumn returns the frame with its DATE column converted to
// the canonical representation. Canonical input passes through unchanged;
// raw timestamp columns are converted elementwise preserving row order.
// Unrecognized representations fail with ErrUnsupportedDateType naming the
// representation.
func NormalizeDateColumn(frame Frame) (Frame, error) {
	if !frame.hasKeyColumns() {
		return Frame{}, fmt.Errorf("%w: no DATE column", ErrInvalidDateColumn)
	}
	if frame.NumRows() == 0 {
		return frame, nil
	}
	if frame.Dates().Kind() == DateKindNaive {
		return frame, nil
	}
	dates, err := frame.Dates().normalized()
	if err != nil {
		return Frame{}, err
	}
	return NewFrame(dates, frame.Reals(), frame.Columns())
}
