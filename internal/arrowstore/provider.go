package arrowstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"simcli/internal/timeseries"
)

// dateColumnName is the required first column of every realization file.
const dateColumnName = "DATE"

// realizationSlab holds the rows of one realization, date-sorted. Ticks
// are epoch milliseconds regardless of the unit stored in the file.
type realizationSlab struct {
	id      int
	ticks   []int64
	columns []timeseries.Series
}

// Provider serves summary vectors for one ensemble from loaded Arrow
// data. It supports calendar resampling and is safe for concurrent reads
// once constructed.
type Provider struct {
	ensemble string
	vectors  []string
	index    map[string]int
	slabs    []realizationSlab
	logger   *slog.Logger
}

// newProvider wires loaded slabs into a provider. Every realization must
// carry the same vector set; a mismatch means the store was written by
// incompatible imports.
func newProvider(ensemble string, slabs []realizationSlab, logger *slog.Logger) (*Provider, error) {
	if len(slabs) == 0 {
		return nil, fmt.Errorf("%w: %s", timeseries.ErrUnknownEnsemble, ensemble)
	}
	if logger == nil {
		logger = slog.Default()
	}

	index := make(map[string]int, len(slabs[0].columns))
	vectors := make([]string, len(slabs[0].columns))
	for i, col := range slabs[0].columns {
		index[col.Name] = i
		vectors[i] = col.Name
	}

	for _, slab := range slabs[1:] {
		if len(slab.columns) != len(vectors) {
			return nil, fmt.Errorf("ensemble %s: realization %d has %d vectors, expected %d",
				ensemble, slab.id, len(slab.columns), len(vectors))
		}
		for i, col := range slab.columns {
			if col.Name != vectors[i] {
				return nil, fmt.Errorf("ensemble %s: realization %d has vector %s where %s was expected",
					ensemble, slab.id, col.Name, vectors[i])
			}
		}
	}

	sort.Slice(slabs, func(a, b int) bool { return slabs[a].id < slabs[b].id })

	return &Provider{
		ensemble: ensemble,
		vectors:  vectors,
		index:    index,
		slabs:    slabs,
		logger:   logger,
	}, nil
}

// Ensemble returns the ensemble name this provider serves.
func (p *Provider) Ensemble() string { return p.ensemble }

// VectorNames returns the stored vector names in file order.
func (p *Provider) VectorNames() []string {
	out := make([]string, len(p.vectors))
	copy(out, p.vectors)
	return out
}

// Realizations returns the realization ids in ascending order.
func (p *Provider) Realizations() []int {
	out := make([]int, len(p.slabs))
	for i, slab := range p.slabs {
		out[i] = slab.id
	}
	return out
}

// SupportsResampling reports that this provider can re-derive samples at
// calendar frequencies.
func (p *Provider) SupportsResampling() bool { return true }

// GetVectors returns the named vectors for the selected realizations,
// resampled when a frequency is given. The DATE column comes back in the
// raw timestamp representation; normalization is the caller's concern.
func (p *Provider) GetVectors(ctx context.Context, names []string, freq timeseries.Frequency, realizations []int) (timeseries.Frame, error) {
	if err := ctx.Err(); err != nil {
		return timeseries.Frame{}, err
	}
	if len(names) == 0 {
		return timeseries.Frame{}, fmt.Errorf("no vector names requested")
	}
	if !freq.IsValid() {
		return timeseries.Frame{}, fmt.Errorf("unrecognized resampling frequency %q", string(freq))
	}

	cols := make([]int, len(names))
	for i, name := range names {
		idx, ok := p.index[name]
		if !ok {
			return timeseries.Frame{}, fmt.Errorf("%w: %s", timeseries.ErrUnknownVector, name)
		}
		cols[i] = idx
	}

	selected := p.slabs
	if realizations != nil {
		keep := make(map[int]struct{}, len(realizations))
		for _, r := range realizations {
			keep[r] = struct{}{}
		}
		selected = make([]realizationSlab, 0, len(keep))
		for _, slab := range p.slabs {
			if _, ok := keep[slab.id]; ok {
				selected = append(selected, slab)
			}
		}
	}

	var ticks []int64
	var reals []int
	values := make([][]float64, len(names))

	for _, slab := range selected {
		if err := ctx.Err(); err != nil {
			return timeseries.Frame{}, err
		}

		rowTicks := slab.ticks
		rows := identityRows(len(slab.ticks))
		if freq != timeseries.FrequencyNone {
			rowTicks, rows = resampleTicks(slab.ticks, freq)
		}

		ticks = append(ticks, rowTicks...)
		for range rowTicks {
			reals = append(reals, slab.id)
		}
		for i, c := range cols {
			src := slab.columns[c].Values
			for _, row := range rows {
				values[i] = append(values[i], src[row])
			}
		}
	}

	columns := make([]timeseries.Series, len(names))
	for i, name := range names {
		if values[i] == nil {
			values[i] = []float64{}
		}
		columns[i] = timeseries.Series{Name: name, Values: values[i]}
	}
	if reals == nil {
		reals = []int{}
	}

	dates := timeseries.NewTimestampDates(ticks, timeseries.TimeUnitMillisecond)
	return timeseries.NewFrame(dates, reals, columns)
}

// identityRows returns [0, 1, ..., n-1].
func identityRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// loadRealizationFile reads one Arrow IPC file into a slab. The file must
// start with a DATE timestamp column; every other column must be float64.
// Rows are sorted by date if the file is not already ordered.
func loadRealizationFile(path string) (realizationSlab, error) {
	f, err := os.Open(path)
	if err != nil {
		return realizationSlab{}, err
	}
	defer f.Close()

	rdr, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return realizationSlab{}, fmt.Errorf("not an Arrow file: %w", err)
	}
	defer rdr.Close()

	schema := rdr.Schema()
	if schema.NumFields() == 0 || schema.Field(0).Name != dateColumnName {
		return realizationSlab{}, fmt.Errorf("%w: first column must be %s", timeseries.ErrMissingRequiredColumns, dateColumnName)
	}
	tsType, ok := schema.Field(0).Type.(*arrow.TimestampType)
	if !ok {
		return realizationSlab{}, fmt.Errorf("%w: %s column has type %s, expected timestamp",
			timeseries.ErrInvalidDateColumn, dateColumnName, schema.Field(0).Type)
	}
	msFactor, err := millisecondFactor(tsType.Unit)
	if err != nil {
		return realizationSlab{}, err
	}

	slab := realizationSlab{columns: make([]timeseries.Series, schema.NumFields()-1)}
	for i := 1; i < schema.NumFields(); i++ {
		field := schema.Field(i)
		if field.Type.ID() != arrow.FLOAT64 {
			return realizationSlab{}, fmt.Errorf("vector column %s has type %s, expected float64", field.Name, field.Type)
		}
		slab.columns[i-1] = timeseries.Series{Name: field.Name}
	}

	for i := 0; i < rdr.NumRecords(); i++ {
		rec, err := rdr.Record(i)
		if err != nil {
			return realizationSlab{}, fmt.Errorf("reading record %d: %w", i, err)
		}

		tsCol, ok := rec.Column(0).(*array.Timestamp)
		if !ok {
			return realizationSlab{}, fmt.Errorf("%w: %s column is not a timestamp array",
				timeseries.ErrInvalidDateColumn, dateColumnName)
		}
		for _, ts := range tsCol.TimestampValues() {
			slab.ticks = append(slab.ticks, toMilliseconds(int64(ts), msFactor))
		}

		for c := 1; c < int(rec.NumCols()); c++ {
			vals, ok := rec.Column(c).(*array.Float64)
			if !ok {
				return realizationSlab{}, fmt.Errorf("vector column %s is not a float64 array", rec.ColumnName(c))
			}
			slab.columns[c-1].Values = append(slab.columns[c-1].Values, vals.Float64Values()...)
		}
	}

	for _, col := range slab.columns {
		if len(col.Values) != len(slab.ticks) {
			return realizationSlab{}, fmt.Errorf("vector column %s has %d values for %d dates", col.Name, len(col.Values), len(slab.ticks))
		}
	}

	sortSlabByDate(&slab)
	return slab, nil
}

// tickFactor describes how a stored tick converts to epoch milliseconds:
// multiply for coarse units, divide for finer ones.
type tickFactor struct {
	mul int64
	div int64
}

func millisecondFactor(unit arrow.TimeUnit) (tickFactor, error) {
	switch unit {
	case arrow.Second:
		return tickFactor{mul: 1000, div: 1}, nil
	case arrow.Millisecond:
		return tickFactor{mul: 1, div: 1}, nil
	case arrow.Microsecond:
		return tickFactor{mul: 1, div: 1000}, nil
	case arrow.Nanosecond:
		return tickFactor{mul: 1, div: 1000000}, nil
	default:
		return tickFactor{}, fmt.Errorf("unsupported timestamp unit %s", unit)
	}
}

func toMilliseconds(tick int64, f tickFactor) int64 {
	return tick * f.mul / f.div
}

// sortSlabByDate orders the slab rows by tick ascending, keeping columns
// aligned. Files written by this package are already sorted; imports from
// elsewhere may not be.
func sortSlabByDate(slab *realizationSlab) {
	if sort.SliceIsSorted(slab.ticks, func(a, b int) bool { return slab.ticks[a] < slab.ticks[b] }) {
		return
	}

	rows := identityRows(len(slab.ticks))
	sort.SliceStable(rows, func(a, b int) bool { return slab.ticks[rows[a]] < slab.ticks[rows[b]] })

	ticks := make([]int64, len(rows))
	for i, row := range rows {
		ticks[i] = slab.ticks[row]
	}
	slab.ticks = ticks

	for c := range slab.columns {
		src := slab.columns[c].Values
		vals := make([]float64, len(rows))
		for i, row := range rows {
			vals[i] = src[row]
		}
		slab.columns[c].Values = vals
	}
}
