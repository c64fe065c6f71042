package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "simcli/internal/errors"
	"simcli/internal/timeseries"
)

func exportFrame(t *testing.T) timeseries.Frame {
	t.Helper()

	dates := []time.Time{
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	frame, err := timeseries.NewFrame(
		timeseries.NewNaiveDates(dates),
		[]int{1, 1, 2, 2},
		[]timeseries.Series{
			{Name: "FOPT", Values: []float64{0, 50, 0, 100}},
			{Name: "PER_DAY_FOPT", Values: []float64{50.0 / 31.0, 0, 100.0 / 31.0, 0}},
		},
	)
	require.NoError(t, err)
	return frame
}

func TestWriteFrameCSV(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir)
	frame := exportFrame(t)

	require.NoError(t, writer.WriteFrame("report.csv", frame, WriteOptions{BOMPrefix: true}))

	raw, err := os.ReadFile(filepath.Join(dir, "report.csv"))
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "expected UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, []string{"DATE", "REAL", "FOPT", "PER_DAY_FOPT"}, records[0])
	// Midnight-only columns use the date-only layout
	assert.Equal(t, "2020-01-01", records[1][0])
	assert.Equal(t, "1", records[1][1])
	assert.Equal(t, "0", records[1][2])

	// Values must round-trip through the text form
	parsed, err := parseFloat(records[1][3])
	require.NoError(t, err)
	assert.Equal(t, 50.0/31.0, parsed)
}

func TestWriteFrameCSVAppend(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir)
	frame := exportFrame(t)

	require.NoError(t, writer.WriteFrame("report.csv", frame, WriteOptions{}))
	require.NoError(t, writer.WriteFrame("report.csv", frame, WriteOptions{Append: true}))

	raw, err := os.ReadFile(filepath.Join(dir, "report.csv"))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)

	// One header plus both frames' rows
	require.Len(t, records, 9)
	assert.Equal(t, "DATE", records[0][0])
	assert.NotEqual(t, "DATE", records[5][0])
}

func TestCSVRejectsRawTimestampFrame(t *testing.T) {
	frame, err := timeseries.NewFrame(
		timeseries.NewTimestampDates([]int64{1577836800000}, timeseries.TimeUnitMillisecond),
		[]int{1},
		[]timeseries.Series{{Name: "FOPT", Values: []float64{1}}},
	)
	require.NoError(t, err)

	writer := NewCSVWriter(t.TempDir())
	err = writer.WriteFrame("report.csv", frame, WriteOptions{})
	require.ErrorIs(t, err, timeseries.ErrInvalidDateColumn)
}

func TestWriteFrameXLSX(t *testing.T) {
	dir := t.TempDir()
	writer := NewXLSXWriter(dir)
	frame := exportFrame(t)

	require.NoError(t, writer.WriteFrame("report.xlsx", frame))

	f, err := excelize.OpenFile(filepath.Join(dir, "report.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(vectorSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"DATE", "REAL", "FOPT", "PER_DAY_FOPT"}, rows[0])
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "100", rows[4][2])
	assert.NotEmpty(t, rows[1][0], "expected a formatted date cell")
}

func TestWriteFrameJSON(t *testing.T) {
	dir := t.TempDir()
	writer := NewJSONWriter(dir)
	frame := exportFrame(t)

	require.NoError(t, writer.WriteFrame("report.json", frame))

	raw, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)

	var doc struct {
		Dates   []string `json:"dates"`
		Reals   []int    `json:"reals"`
		Vectors []struct {
			Name   string    `json:"name"`
			Values []float64 `json:"values"`
		} `json:"vectors"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, "2020-01-01T00:00:00Z", doc.Dates[0])
	assert.Equal(t, []int{1, 1, 2, 2}, doc.Reals)
	require.Len(t, doc.Vectors, 2)
	assert.Equal(t, "FOPT", doc.Vectors[0].Name)
	assert.Equal(t, []float64{0, 50, 0, 100}, doc.Vectors[0].Values)
}

func TestExporterFacade(t *testing.T) {
	dir := t.TempDir()
	exp := New(dir, nil)
	frame := exportFrame(t)
	ctx := context.Background()

	for _, format := range []string{FormatCSV, FormatXLSX, FormatJSON} {
		t.Run(format, func(t *testing.T) {
			name := "report." + format
			require.NoError(t, exp.Export(ctx, frame, format, name))
			_, err := os.Stat(filepath.Join(dir, name))
			require.NoError(t, err)
		})
	}

	t.Run("unsupported format", func(t *testing.T) {
		err := exp.Export(ctx, frame, "pdf", "report.pdf")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeExport, appErr.Type)
	})

	t.Run("writer failure is typed", func(t *testing.T) {
		badFrame, err := timeseries.NewFrame(
			timeseries.NewTimestampDates([]int64{0}, timeseries.TimeUnitMillisecond),
			[]int{1},
			[]timeseries.Series{{Name: "A", Values: []float64{1}}},
		)
		require.NoError(t, err)

		err = exp.Export(ctx, badFrame, FormatCSV, "bad.csv")
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeExport, appErr.Type)
		assert.ErrorIs(t, err, timeseries.ErrInvalidDateColumn)
	})
}

func TestSupportedFormat(t *testing.T) {
	assert.True(t, SupportedFormat("csv"))
	assert.True(t, SupportedFormat("xlsx"))
	assert.True(t, SupportedFormat("json"))
	assert.False(t, SupportedFormat("pdf"))
	assert.False(t, SupportedFormat(""))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "0.25", formatFloat(0.25))
	assert.Equal(t, "42", formatFloat(42))

	midnights := []time.Time{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2006-01-02", dateLayoutFor(midnights))

	withTime := append(midnights, time.Date(2020, 1, 1, 12, 30, 0, 0, time.UTC))
	assert.Equal(t, time.RFC3339, dateLayoutFor(withTime))
}

func parseFloat(s string) (float64, error) {
	var f float64
	err := json.Unmarshal([]byte(s), &f)
	return f, err
}
