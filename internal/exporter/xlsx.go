package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"simcli/internal/timeseries"
)

// vectorSheetName is the sheet derived-vector rows are written to.
const vectorSheetName = "Vectors"

// XLSXWriter provides Excel workbook export functionality
type XLSXWriter struct {
	outputDir string
}

// NewXLSXWriter creates a new XLSX writer rooted at the given directory
func NewXLSXWriter(outputDir string) *XLSXWriter {
	return &XLSXWriter{outputDir: outputDir}
}

// WriteFrame writes a frame to an Excel workbook: a bold frozen header
// row, then one row per (DATE, REAL) sample. Dates are written as native
// Excel dates so spreadsheet formulas work on them.
func (w *XLSXWriter) WriteFrame(filePath string, frame timeseries.Frame) error {
	if err := timeseries.AssertDateColumn(frame); err != nil {
		return fmt.Errorf("frame is not exportable: %w", err)
	}

	fullPath := w.resolvePath(filePath)

	slog.Info("Writing XLSX file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", frame.NumRows()))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), vectorSheetName)

	headers := frameHeaders(frame)
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell %d: %w", i, err)
		}
		if err := f.SetCellValue(vectorSheetName, cell, header); err != nil {
			return fmt.Errorf("writing header %s: %w", header, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(vectorSheetName, "A1", lastHeader, headerStyle)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{
		NumFmt: 14, // built-in date format
	})
	if err != nil {
		return fmt.Errorf("creating date style: %w", err)
	}

	dates := frame.Dates().Times()
	reals := frame.Reals()
	columns := frame.Columns()
	for i := 0; i < frame.NumRows(); i++ {
		row := i + 2
		if err := w.setRow(f, row, dates[i], reals[i], columns); err != nil {
			return err
		}
	}
	if frame.NumRows() > 0 {
		lastDate, _ := excelize.CoordinatesToCellName(1, frame.NumRows()+1)
		f.SetCellStyle(vectorSheetName, "A2", lastDate, dateStyle)
	}

	// Freeze the header row
	f.SetPanes(vectorSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	f.SetColWidth(vectorSheetName, "A", "A", 14)

	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (w *XLSXWriter) setRow(f *excelize.File, row int, date time.Time, realID int, columns []timeseries.Series) error {
	dateCell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	if err := f.SetCellValue(vectorSheetName, dateCell, date); err != nil {
		return fmt.Errorf("row %d date: %w", row, err)
	}

	realCell, _ := excelize.CoordinatesToCellName(2, row)
	if err := f.SetCellValue(vectorSheetName, realCell, realID); err != nil {
		return fmt.Errorf("row %d real: %w", row, err)
	}

	for c, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(3+c, row)
		if err := f.SetCellValue(vectorSheetName, cell, col.Values[row-2]); err != nil {
			return fmt.Errorf("row %d vector %s: %w", row, col.Name, err)
		}
	}
	return nil
}

// resolvePath resolves a path against the output directory
func (w *XLSXWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.outputDir == "" {
		return filePath
	}
	return filepath.Join(w.outputDir, filePath)
}
