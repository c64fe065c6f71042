package exporter

import (
	"strconv"
	"time"

	"simcli/internal/timeseries"
)

// formatFloat formats a float64 value for text output. The shortest
// round-trippable representation is used so re-imported values compare
// equal.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatInt formats an int value for text output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// dateLayoutFor picks one date layout for a whole column: date-only when
// every sample sits on midnight UTC, full RFC 3339 otherwise.
func dateLayoutFor(dates []time.Time) string {
	for _, d := range dates {
		if d.Hour() != 0 || d.Minute() != 0 || d.Second() != 0 || d.Nanosecond() != 0 {
			return time.RFC3339
		}
	}
	return "2006-01-02"
}

// frameHeaders returns the export header row: the key columns followed by
// the vector names in frame order.
func frameHeaders(frame timeseries.Frame) []string {
	headers := []string{"DATE", "REAL"}
	return append(headers, frame.VectorNames()...)
}

// frameRecords renders every frame row as strings in header order.
func frameRecords(frame timeseries.Frame) [][]string {
	dates := frame.Dates().Times()
	layout := dateLayoutFor(dates)
	columns := frame.Columns()

	records := make([][]string, frame.NumRows())
	for i := range records {
		row := make([]string, 0, 2+len(columns))
		row = append(row, dates[i].Format(layout), formatInt(frame.Reals()[i]))
		for _, col := range columns {
			row = append(row, formatFloat(col.Values[i]))
		}
		records[i] = row
	}
	return records
}
