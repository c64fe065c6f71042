// Package exporter writes derived-vector frames to report files.
//
// This package contains three writers plus a format-dispatching facade:
//
// CSVWriter: Core CSV writing functionality with support for headers,
// appending and UTF-8 BOM for Excel compatibility.
//
// XLSXWriter: Excel workbook export with a styled header row and frozen
// panes, one row per (DATE, REAL) sample.
//
// JSONWriter: Column-major JSON export for downstream plotting tools.
//
// Example usage:
//
//	exp := exporter.New("/path/to/exports", logger)
//
//	// Export a frame in the configured format
//	err := exp.Export(ctx, frame, "csv", "rates.csv")
//
//	// Or drive a specific writer directly
//	csvWriter := exporter.NewCSVWriter("/path/to/exports")
//	err = csvWriter.WriteFrame("rates.csv", frame, exporter.WriteOptions{BOMPrefix: true})
package exporter
