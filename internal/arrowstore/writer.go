package arrowstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	apperrors "simcli/internal/errors"
	"simcli/internal/timeseries"
)

// RealizationData is the payload written for one realization: dates plus
// equally sized vector columns. Rows need not be pre-sorted.
type RealizationData struct {
	Dates   []time.Time
	Columns []timeseries.Series
}

// WriteEnsemble writes one file per realization under the ensemble
// directory, replacing files that already exist. Vector sets must agree
// across realizations so the ensemble loads back as one provider.
func (s *Store) WriteEnsemble(ctx context.Context, ensemble string, data map[int]RealizationData) error {
	if ensemble == "" || len(data) == 0 {
		return apperrors.NewValidationError("ensemble name and at least one realization are required")
	}

	ids := make([]int, 0, len(data))
	for id := range data {
		if id < 0 {
			return apperrors.NewValidationError(fmt.Sprintf("realization id %d is negative", id))
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var vectors []string
	for _, id := range ids {
		names := columnNames(data[id].Columns)
		if vectors == nil {
			vectors = names
			continue
		}
		if !equalStrings(vectors, names) {
			return apperrors.NewValidationError(
				fmt.Sprintf("realization %d has vectors %v, expected %v", id, names, vectors))
		}
	}

	dir := filepath.Join(s.root, ensemble)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("cannot create ensemble directory %s", dir), err).
			WithContext("ensemble", ensemble)
	}

	start := time.Now()
	rows := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, realizationFilename(id))
		if err := writeRealizationFile(path, data[id]); err != nil {
			return apperrors.NewStorageError(
				fmt.Sprintf("writing realization %d of ensemble %s", id, ensemble), err).
				WithContext("file", path)
		}
		rows += len(data[id].Dates)
	}

	s.logger.InfoContext(ctx, "Ensemble written",
		slog.String("ensemble", ensemble),
		slog.Int("realizations", len(ids)),
		slog.Int("vectors", len(vectors)),
		slog.Int("rows", rows),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// writeRealizationFile writes one realization as a single-record Arrow IPC
// file: DATE timestamp[ms] followed by float64 vector columns.
func writeRealizationFile(path string, data RealizationData) error {
	for _, col := range data.Columns {
		if len(col.Values) != len(data.Dates) {
			return fmt.Errorf("column %s has %d values for %d dates", col.Name, len(col.Values), len(data.Dates))
		}
	}

	rows := identityRows(len(data.Dates))
	sort.SliceStable(rows, func(a, b int) bool {
		return data.Dates[rows[a]].Before(data.Dates[rows[b]])
	})

	fields := make([]arrow.Field, 1+len(data.Columns))
	fields[0] = arrow.Field{Name: dateColumnName, Type: arrow.FixedWidthTypes.Timestamp_ms}
	for i, col := range data.Columns {
		fields[1+i] = arrow.Field{Name: col.Name, Type: arrow.PrimitiveTypes.Float64}
	}
	schema := arrow.NewSchema(fields, nil)

	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()

	tsBldr := bldr.Field(0).(*array.TimestampBuilder)
	for _, row := range rows {
		tsBldr.Append(arrow.Timestamp(data.Dates[row].UTC().UnixMilli()))
	}
	for i, col := range data.Columns {
		fBldr := bldr.Field(1 + i).(*array.Float64Builder)
		for _, row := range rows {
			fBldr.Append(col.Values[row])
		}
	}

	rec := bldr.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		f.Close()
		return err
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func columnNames(columns []timeseries.Series) []string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
