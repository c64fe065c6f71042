package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "simcli/internal/errors"
	"simcli/internal/timeseries"
)

// Format names accepted by the facade.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// Exporter dispatches frame exports to the writer for a format.
type Exporter struct {
	csv    *CSVWriter
	xlsx   *XLSXWriter
	json   *JSONWriter
	logger *slog.Logger
}

// New creates an exporter whose relative output paths resolve under
// outputDir.
func New(outputDir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		csv:    NewCSVWriter(outputDir),
		xlsx:   NewXLSXWriter(outputDir),
		json:   NewJSONWriter(outputDir),
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// SupportedFormat reports whether the facade can write the format.
func SupportedFormat(format string) bool {
	switch format {
	case FormatCSV, FormatXLSX, FormatJSON:
		return true
	default:
		return false
	}
}

// Export writes a frame in the given format. Failures come back as typed
// export errors carrying the target path.
func (e *Exporter) Export(ctx context.Context, frame timeseries.Frame, format, filePath string) error {
	start := time.Now()

	var err error
	switch format {
	case FormatCSV:
		err = e.csv.WriteFrame(filePath, frame, WriteOptions{BOMPrefix: true})
	case FormatXLSX:
		err = e.xlsx.WriteFrame(filePath, frame)
	case FormatJSON:
		err = e.json.WriteFrame(filePath, frame)
	default:
		return apperrors.NewExportError(fmt.Sprintf("unsupported export format %q", format), nil)
	}
	if err != nil {
		return apperrors.NewExportError(fmt.Sprintf("exporting %s", filePath), err).
			WithContext("format", format)
	}

	e.logger.InfoContext(ctx, "Frame exported",
		slog.String("format", format),
		slog.String("file", filePath),
		slog.Int("rows", frame.NumRows()),
		slog.Int("vectors", len(frame.Columns())),
		slog.Duration("duration", time.Since(start)))

	return nil
}
