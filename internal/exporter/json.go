package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"simcli/internal/timeseries"
)

// JSONWriter provides column-major JSON export functionality
type JSONWriter struct {
	outputDir string
}

// NewJSONWriter creates a new JSON writer rooted at the given directory
func NewJSONWriter(outputDir string) *JSONWriter {
	return &JSONWriter{outputDir: outputDir}
}

// frameDocument is the serialized layout: parallel key columns plus one
// value array per vector, all in row order.
type frameDocument struct {
	Dates   []string            `json:"dates"`
	Reals   []int               `json:"reals"`
	Vectors []timeseries.Series `json:"vectors"`
}

// WriteFrame writes a frame as a single JSON document. Dates use RFC 3339
// so they parse unambiguously everywhere.
func (w *JSONWriter) WriteFrame(filePath string, frame timeseries.Frame) error {
	if err := timeseries.AssertDateColumn(frame); err != nil {
		return fmt.Errorf("frame is not exportable: %w", err)
	}

	fullPath := w.resolvePath(filePath)

	slog.Info("Writing JSON file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", frame.NumRows()))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	doc := frameDocument{
		Dates:   make([]string, frame.NumRows()),
		Reals:   frame.Reals(),
		Vectors: frame.Columns(),
	}
	for i, d := range frame.Dates().Times() {
		doc.Dates[i] = d.Format(time.RFC3339)
	}
	if doc.Reals == nil {
		doc.Reals = []int{}
	}
	if doc.Vectors == nil {
		doc.Vectors = []timeseries.Series{}
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return file.Close()
}

// resolvePath resolves a path against the output directory
func (w *JSONWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.outputDir == "" {
		return filePath
	}
	return filepath.Join(w.outputDir, filePath)
}
