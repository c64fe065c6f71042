package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"simcli/internal/arrowstore"
	"simcli/internal/config"
	"simcli/internal/infrastructure"
	"simcli/internal/timeseries"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults to simcli.yaml in the working directory)")
	storeRoot := flag.String("store", "", "ensemble store root directory (defaults to the configured store root)")
	ensemble := flag.String("ensemble", "", "target ensemble name, e.g. iter-0 (required)")
	csvPath := flag.String("csv", "", "input CSV file with DATE, REAL and one column per vector (required)")
	flag.Parse()

	if *ensemble == "" {
		slog.Error("Missing required -ensemble flag")
		flag.Usage()
		os.Exit(1)
	}
	if *csvPath == "" {
		slog.Error("Missing required -csv flag")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	if *storeRoot == "" {
		*storeRoot = cfg.Store.RootDir
	}

	logger.Info("Starting ensemble import",
		slog.String("store", *storeRoot),
		slog.String("ensemble", *ensemble),
		slog.String("csv", *csvPath))

	store, err := arrowstore.Create(*storeRoot,
		arrowstore.WithMaxConcurrentLoads(cfg.Store.MaxConcurrentLoads),
		arrowstore.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to open ensemble store", "store", *storeRoot, "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		logger.Error("Failed to open CSV file", "path", *csvPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := infrastructure.EnsureTraceID(context.Background())
	start := time.Now()

	result, err := store.ImportCSV(ctx, *ensemble, f)
	if err != nil {
		if errors.Is(err, timeseries.ErrMissingRequiredColumns) {
			logger.Error("CSV rejected",
				"path", *csvPath,
				"error", err,
				"hint", "the header row must contain DATE and REAL columns")
		} else {
			logger.Error("Import failed",
				"ensemble", *ensemble,
				"path", *csvPath,
				"error", err)
		}
		os.Exit(1)
	}

	logger.Info("Ensemble import completed",
		slog.String("ensemble", result.Ensemble),
		slog.Int("realizations", len(result.Realizations)),
		slog.Int("vectors", len(result.Vectors)),
		slog.Int("rows", result.Rows),
		slog.Duration("elapsed", time.Since(start)))

	fmt.Printf("Imported %d rows into %s: %d realizations, %d vectors\n",
		result.Rows, result.Ensemble, len(result.Realizations), len(result.Vectors))
	fmt.Printf("Vectors: %s\n", strings.Join(result.Vectors, ", "))
}
