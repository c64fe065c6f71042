package arrowstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	apperrors "simcli/internal/errors"
	"simcli/internal/timeseries"
)

// csvDateLayouts are the accepted DATE formats, tried in order.
var csvDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ImportResult summarizes a completed CSV import.
type ImportResult struct {
	Ensemble     string
	Realizations []int
	Vectors      []string
	Rows         int
}

// ImportCSV reads UNSMRY-style rows (DATE,REAL,vector...) and writes them
// into the store as one ensemble. Both key columns are mandatory; every
// remaining header column becomes a stored vector.
func (s *Store) ImportCSV(ctx context.Context, ensemble string, r io.Reader) (*ImportResult, error) {
	data, vectors, err := parseCSV(r)
	if err != nil {
		return nil, err
	}

	if err := s.WriteEnsemble(ctx, ensemble, data); err != nil {
		return nil, err
	}

	result := &ImportResult{Ensemble: ensemble, Vectors: vectors}
	for id, rd := range data {
		result.Realizations = append(result.Realizations, id)
		result.Rows += len(rd.Dates)
	}
	sort.Ints(result.Realizations)
	return result, nil
}

// parseCSV parses rows grouped by realization. Column order is preserved
// from the header.
func parseCSV(r io.Reader) (map[int]RealizationData, []string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, apperrors.NewParsingError("CSV input is empty", nil)
	}
	if err != nil {
		return nil, nil, apperrors.NewParsingError("reading CSV header", err)
	}

	dateCol, realCol := -1, -1
	var vectors []string
	vectorCols := make([]int, 0, len(header))
	for i, name := range header {
		switch name {
		case "DATE":
			dateCol = i
		case "REAL":
			realCol = i
		case "":
			return nil, nil, apperrors.NewParsingError(fmt.Sprintf("header column %d is empty", i), nil)
		default:
			vectors = append(vectors, name)
			vectorCols = append(vectorCols, i)
		}
	}
	if dateCol < 0 || realCol < 0 {
		return nil, nil, fmt.Errorf("%w: CSV header needs DATE and REAL", timeseries.ErrMissingRequiredColumns)
	}
	if len(vectors) == 0 {
		return nil, nil, apperrors.NewParsingError("CSV has no vector columns", nil)
	}

	data := make(map[int]RealizationData)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, apperrors.NewParsingError(fmt.Sprintf("reading CSV line %d", line), err)
		}

		date, err := parseCSVDate(record[dateCol])
		if err != nil {
			return nil, nil, apperrors.NewParsingError(fmt.Sprintf("line %d: bad DATE %q", line, record[dateCol]), err)
		}
		realID, err := strconv.Atoi(record[realCol])
		if err != nil || realID < 0 {
			return nil, nil, apperrors.NewParsingError(fmt.Sprintf("line %d: bad REAL %q", line, record[realCol]), err)
		}

		rd, ok := data[realID]
		if !ok {
			rd = RealizationData{Columns: make([]timeseries.Series, len(vectors))}
			for i, name := range vectors {
				rd.Columns[i] = timeseries.Series{Name: name}
			}
		}
		rd.Dates = append(rd.Dates, date)
		for i, col := range vectorCols {
			v, err := strconv.ParseFloat(record[col], 64)
			if err != nil {
				return nil, nil, apperrors.NewParsingError(
					fmt.Sprintf("line %d: bad value %q for vector %s", line, record[col], vectors[i]), err)
			}
			rd.Columns[i].Values = append(rd.Columns[i].Values, v)
		}
		data[realID] = rd
	}

	if len(data) == 0 {
		return nil, nil, apperrors.NewParsingError("CSV has a header but no rows", nil)
	}
	return data, vectors, nil
}

func parseCSVDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range csvDateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
