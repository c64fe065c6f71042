package timeseries

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Frequency represents the calendar granularity at which a provider may
// re-derive samples from its native storage.
type Frequency string

const (
	// FrequencyNone requests the provider's native sampling (no resampling).
	FrequencyNone Frequency = ""
	// FrequencyDaily resamples to calendar days.
	FrequencyDaily Frequency = "DAILY"
	// FrequencyWeekly resamples to ISO weeks (Monday start).
	FrequencyWeekly Frequency = "WEEKLY"
	// FrequencyMonthly resamples to calendar months.
	FrequencyMonthly Frequency = "MONTHLY"
	// FrequencyQuarterly resamples to calendar quarters.
	FrequencyQuarterly Frequency = "QUARTERLY"
	// FrequencyYearly resamples to calendar years.
	FrequencyYearly Frequency = "YEARLY"
)

// String returns the string representation of the frequency
func (f Frequency) String() string {
	if f == FrequencyNone {
		return "none"
	}
	return string(f)
}

// IsValid checks whether the frequency is one of the recognized values
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyNone, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	default:
		return false
	}
}

// ParseFrequency converts a string such as "monthly" or "MONTHLY" into a
// Frequency. An empty string means no resampling.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(s))
	if !f.IsValid() {
		return FrequencyNone, fmt.Errorf("unrecognized resampling frequency %q", s)
	}
	return f, nil
}

// TimeUnit is the tick resolution of a raw timestamp column as read from
// columnar storage.
type TimeUnit int

const (
	// TimeUnitSecond counts seconds since the Unix epoch.
	TimeUnitSecond TimeUnit = iota
	// TimeUnitMillisecond counts milliseconds since the Unix epoch.
	TimeUnitMillisecond
	// TimeUnitMicrosecond counts microseconds since the Unix epoch.
	TimeUnitMicrosecond
	// TimeUnitNanosecond counts nanoseconds since the Unix epoch.
	TimeUnitNanosecond
)

// String returns the string representation of the time unit
func (u TimeUnit) String() string {
	switch u {
	case TimeUnitSecond:
		return "s"
	case TimeUnitMillisecond:
		return "ms"
	case TimeUnitMicrosecond:
		return "us"
	case TimeUnitNanosecond:
		return "ns"
	default:
		return "unknown"
	}
}

// DateKind tags the representation carried by a DateColumn. All date
// handling branches on this tag; nothing inspects concrete value types.
type DateKind int

const (
	// DateKindUnknown marks a column whose representation is not
	// recognized (or a zero-value column that was never populated).
	DateKindUnknown DateKind = iota
	// DateKindNaive is the canonical representation: UTC wall-clock
	// time.Time values at millisecond precision.
	DateKindNaive
	// DateKindTimestamp is a library-native representation: raw integer
	// ticks plus a TimeUnit, as read from columnar storage.
	DateKindTimestamp
)

// String returns the string representation of the date kind
func (k DateKind) String() string {
	switch k {
	case DateKindNaive:
		return "naive datetime"
	case DateKindTimestamp:
		return "raw timestamp"
	default:
		return "unknown"
	}
}

// DateColumn is the DATE column of a Frame in one of the tagged
// representations. Construct via NewNaiveDates, NewTimestampDates or
// NewUnknownDates; the tag is fixed at construction.
type DateColumn struct {
	kind  DateKind
	times []time.Time
	ticks []int64
	unit  TimeUnit
	desc  string
	n     int
}

// NewNaiveDates builds a canonical date column. Values are coerced to UTC;
// sub-millisecond precision is discarded.
func NewNaiveDates(dates []time.Time) DateColumn {
	times := make([]time.Time, len(dates))
	for i, d := range dates {
		times[i] = toCanonical(d)
	}
	return DateColumn{kind: DateKindNaive, times: times, n: len(times)}
}

// NewTimestampDates builds a raw-timestamp date column from integer ticks
// and their resolution.
func NewTimestampDates(ticks []int64, unit TimeUnit) DateColumn {
	own := make([]int64, len(ticks))
	copy(own, ticks)
	return DateColumn{kind: DateKindTimestamp, ticks: own, unit: unit, n: len(own)}
}

// NewUnknownDates builds a column of n values in an unrecognized
// representation described by desc. It exists so that ingestion layers can
// defer the failure to the normalizer instead of inventing their own.
func NewUnknownDates(desc string, n int) DateColumn {
	return DateColumn{kind: DateKindUnknown, desc: desc, n: n}
}

// Kind returns the representation tag.
func (dc DateColumn) Kind() DateKind { return dc.kind }

// Len returns the number of values in the column.
func (dc DateColumn) Len() int { return dc.n }

// Description names the unrecognized representation of a DateKindUnknown
// column. Empty for the other kinds.
func (dc DateColumn) Description() string { return dc.desc }

// At returns the i-th canonical date. Valid only for DateKindNaive columns.
func (dc DateColumn) At(i int) time.Time { return dc.times[i] }

// Times returns the canonical values of a DateKindNaive column, or nil for
// the other kinds.
func (dc DateColumn) Times() []time.Time { return dc.times }

// normalized converts the column to the canonical representation. Naive
// columns pass through untouched; raw timestamp columns are converted
// elementwise preserving order.
func (dc DateColumn) normalized() (DateColumn, error) {
	switch dc.kind {
	case DateKindNaive:
		return dc, nil
	case DateKindTimestamp:
		times := make([]time.Time, len(dc.ticks))
		for i, t := range dc.ticks {
			times[i] = tickToTime(t, dc.unit)
		}
		return DateColumn{kind: DateKindNaive, times: times, n: len(times)}, nil
	default:
		desc := dc.desc
		if desc == "" {
			desc = "unpopulated date column"
		}
		return DateColumn{}, fmt.Errorf("%w: %s", ErrUnsupportedDateType, desc)
	}
}

// keyAt returns the i-th value as epoch milliseconds for join keys.
// Valid only for DateKindNaive columns.
func (dc DateColumn) keyAt(i int) int64 { return dc.times[i].UnixMilli() }

func toCanonical(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func tickToTime(tick int64, unit TimeUnit) time.Time {
	switch unit {
	case TimeUnitSecond:
		return time.Unix(tick, 0).UTC()
	case TimeUnitMillisecond:
		return time.UnixMilli(tick).UTC()
	case TimeUnitMicrosecond:
		return time.UnixMicro(tick).UTC()
	default:
		return time.Unix(0, tick).UTC()
	}
}

// Series is a named float64 vector column.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Frame is a vector table: a DATE column, a REAL column of realization ids
// and zero or more float64 vector columns of equal length. (DATE, REAL) is
// the composite key for all join operations. Frames are treated as
// immutable; transforming operations return fresh frames.
type Frame struct {
	dates   DateColumn
	reals   []int
	columns []Series
	index   map[string]int
}

// NewFrame builds a frame from its columns. The date and realization
// columns must be present (non-nil) and all columns must have equal
// length; vector names must be unique.
func NewFrame(dates DateColumn, reals []int, columns []Series) (Frame, error) {
	if dates.Kind() == DateKindUnknown && dates.Len() == 0 && reals == nil {
		return Frame{}, fmt.Errorf("%w: frame has neither DATE nor REAL", ErrMissingRequiredColumns)
	}
	if dates.Len() != len(reals) {
		return Frame{}, fmt.Errorf("column length mismatch: DATE has %d values, REAL has %d", dates.Len(), len(reals))
	}
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			return Frame{}, fmt.Errorf("vector column %d has no name", i)
		}
		if len(col.Values) != len(reals) {
			return Frame{}, fmt.Errorf("column length mismatch: %s has %d values, expected %d", col.Name, len(col.Values), len(reals))
		}
		if _, dup := index[col.Name]; dup {
			return Frame{}, fmt.Errorf("duplicate vector column %s", col.Name)
		}
		index[col.Name] = i
	}
	return Frame{dates: dates, reals: reals, columns: columns, index: index}, nil
}

// NumRows returns the number of rows.
func (f Frame) NumRows() int { return len(f.reals) }

// Dates returns the DATE column.
func (f Frame) Dates() DateColumn { return f.dates }

// Reals returns the REAL column.
func (f Frame) Reals() []int { return f.reals }

// Columns returns the vector columns in order.
func (f Frame) Columns() []Series { return f.columns }

// VectorNames returns the vector column names in order.
func (f Frame) VectorNames() []string {
	names := make([]string, len(f.columns))
	for i, col := range f.columns {
		names[i] = col.Name
	}
	return names
}

// HasVector reports whether a vector column with the given name exists.
func (f Frame) HasVector(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Vector returns the values of the named vector column.
func (f Frame) Vector(name string) ([]float64, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i].Values, true
}

// hasKeyColumns reports whether the frame carries usable DATE and REAL
// columns. A zero-value Frame does not.
func (f Frame) hasKeyColumns() bool {
	return f.index != nil
}

// UniqueRealizations returns the distinct realization ids in ascending
// order.
func (f Frame) UniqueRealizations() []int {
	seen := make(map[int]struct{}, len(f.reals))
	var reals []int
	for _, r := range f.reals {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		reals = append(reals, r)
	}
	sort.Ints(reals)
	return reals
}

// FilterRealizations returns the rows whose realization id is in keep,
// preserving row order. A nil keep returns the frame unchanged. Valid only
// for canonical date columns.
func (f Frame) FilterRealizations(keep []int) Frame {
	if keep == nil {
		return f
	}
	keepSet := make(map[int]struct{}, len(keep))
	for _, r := range keep {
		keepSet[r] = struct{}{}
	}
	var rows []int
	for i, r := range f.reals {
		if _, ok := keepSet[r]; ok {
			rows = append(rows, i)
		}
	}
	return f.takeRows(rows)
}

// SelectVectors returns a frame holding only the named vector columns, in
// the given order, alongside the key columns.
func (f Frame) SelectVectors(names []string) (Frame, error) {
	columns := make([]Series, 0, len(names))
	for _, name := range names {
		i, ok := f.index[name]
		if !ok {
			return Frame{}, fmt.Errorf("%w: %s", ErrUnknownVector, name)
		}
		columns = append(columns, f.columns[i])
	}
	return NewFrame(f.dates, f.reals, columns)
}

// SortByRealAndDate returns the frame ordered by REAL ascending then DATE
// ascending, with freshly allocated dense columns (no residual ordering
// artifacts from prior filtering). Valid only for canonical date columns.
func (f Frame) SortByRealAndDate() Frame {
	rows := make([]int, f.NumRows())
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		ra, rb := f.reals[rows[a]], f.reals[rows[b]]
		if ra != rb {
			return ra < rb
		}
		return f.dates.keyAt(rows[a]) < f.dates.keyAt(rows[b])
	})
	return f.takeRows(rows)
}

// takeRows builds a fresh frame from the given row indices, in order.
func (f Frame) takeRows(rows []int) Frame {
	times := make([]time.Time, len(rows))
	reals := make([]int, len(rows))
	for i, row := range rows {
		times[i] = f.dates.At(row)
		reals[i] = f.reals[row]
	}
	columns := make([]Series, len(f.columns))
	for c, col := range f.columns {
		values := make([]float64, len(rows))
		for i, row := range rows {
			values[i] = col.Values[row]
		}
		columns[c] = Series{Name: col.Name, Values: values}
	}
	out, _ := NewFrame(NewNaiveDates(times), reals, columns)
	return out
}

// emptyLike returns a zero-row frame with the same column set and column
// representations as f.
func (f Frame) emptyLike() Frame {
	columns := make([]Series, len(f.columns))
	for i, col := range f.columns {
		columns[i] = Series{Name: col.Name, Values: []float64{}}
	}
	out, _ := NewFrame(NewNaiveDates(nil), []int{}, columns)
	return out
}

// rowKey identifies a row by its (DATE, REAL) composite key.
type rowKey struct {
	ms   int64
	real int
}

func (f Frame) rowKeyAt(i int) rowKey {
	return rowKey{ms: f.dates.keyAt(i), real: f.reals[i]}
}

// JoinFrames inner-joins frames column-wise on (DATE, REAL). Row order
// follows the first frame; rows missing from any frame are dropped.
// Vector columns are concatenated in frame order.
func JoinFrames(frames []Frame) (Frame, error) {
	if len(frames) == 0 {
		return Frame{}, fmt.Errorf("no frames to join")
	}
	base := frames[0]
	if len(frames) == 1 {
		return base, nil
	}

	lookups := make([]map[rowKey]int, len(frames)-1)
	for i, fr := range frames[1:] {
		lookup := make(map[rowKey]int, fr.NumRows())
		for row := 0; row < fr.NumRows(); row++ {
			lookup[fr.rowKeyAt(row)] = row
		}
		lookups[i] = lookup
	}

	var times []time.Time
	var reals []int
	matches := make([][]int, 0, base.NumRows())
	for row := 0; row < base.NumRows(); row++ {
		key := base.rowKeyAt(row)
		match := make([]int, len(frames))
		match[0] = row
		ok := true
		for i, lookup := range lookups {
			other, found := lookup[key]
			if !found {
				ok = false
				break
			}
			match[i+1] = other
		}
		if !ok {
			continue
		}
		times = append(times, base.dates.At(row))
		reals = append(reals, base.reals[row])
		matches = append(matches, match)
	}

	var columns []Series
	seen := make(map[string]struct{})
	for fi, fr := range frames {
		for _, col := range fr.columns {
			if _, dup := seen[col.Name]; dup {
				return Frame{}, fmt.Errorf("duplicate vector column %s across joined frames", col.Name)
			}
			seen[col.Name] = struct{}{}
			values := make([]float64, len(matches))
			for i, match := range matches {
				values[i] = col.Values[match[fi]]
			}
			columns = append(columns, Series{Name: col.Name, Values: values})
		}
	}
	if reals == nil {
		reals = []int{}
	}
	return NewFrame(NewNaiveDates(times), reals, columns)
}

// Expression is a user-defined calculated vector: a mathematical expression
// over single-letter variables, each mapped to an underlying provider
// vector name. Construct via config loading and validate with
// ValidateExpressions before use; classification ignores expressions whose
// IsValid flag is unset.
type Expression struct {
	Name              string            `json:"name" yaml:"name" validate:"required"`
	Expression        string            `json:"expression" yaml:"expression" validate:"required"`
	VariableVectorMap map[string]string `json:"variableVectorMap" yaml:"variableVectorMap" validate:"required,min=1,dive,required"`
	IsValid           bool              `json:"isValid" yaml:"-"`
	ID                string            `json:"id" yaml:"id,omitempty"`
}

var expressionValidate = validator.New()

// Validate checks the structural shape of the expression record. It does
// not parse the expression string; ValidateExpressions covers that via the
// evaluator.
func (e Expression) Validate() error {
	if err := expressionValidate.Struct(e); err != nil {
		return fmt.Errorf("expression %q: %w", e.Name, err)
	}
	return nil
}

// RequiredVectorNames returns the distinct underlying vector names the
// expression reads, sorted.
func (e Expression) RequiredVectorNames() []string {
	seen := make(map[string]struct{}, len(e.VariableVectorMap))
	var names []string
	for _, vector := range e.VariableVectorMap {
		if _, ok := seen[vector]; ok {
			continue
		}
		seen[vector] = struct{}{}
		names = append(names, vector)
	}
	sort.Strings(names)
	return names
}

// Evaluator is the expression-evaluation capability consumed by accessors.
// Implementations parse an expression string and produce one output value
// per row from equal-length variable columns.
type Evaluator interface {
	// Validate reports whether the expression parses and references only
	// the given variables.
	Validate(expression string, variables []string) error
	// Evaluate computes the expression elementwise over equal-length
	// variable columns.
	Evaluate(expression string, variables map[string][]float64) ([]float64, error)
}

// ValidateExpressions returns a copy of the expressions with the IsValid
// flag set from structural validation plus an evaluator parse check.
func ValidateExpressions(expressions []Expression, evaluator Evaluator) []Expression {
	out := make([]Expression, len(expressions))
	for i, e := range expressions {
		variables := make([]string, 0, len(e.VariableVectorMap))
		for v := range e.VariableVectorMap {
			variables = append(variables, v)
		}
		e.IsValid = e.Validate() == nil &&
			(evaluator == nil || evaluator.Validate(e.Expression, variables) == nil)
		out[i] = e
	}
	return out
}

// Cache is an injected query cache for accessor results. Implementations
// must be safe for concurrent use; keys are derived from the accessor
// identity, the query method and its arguments.
type Cache interface {
	Get(key string) (Frame, bool)
	Put(key string, frame Frame)
}
