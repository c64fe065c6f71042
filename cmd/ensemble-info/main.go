package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"simcli/internal/arrowstore"
	"simcli/internal/calc"
	"simcli/internal/config"
	"simcli/internal/infrastructure"
	"simcli/internal/timeseries"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults to simcli.yaml in the working directory)")
	storeRoot := flag.String("store", "", "ensemble store root directory (defaults to the configured store root)")
	ensemble := flag.String("ensemble", "", "ensemble to inspect (defaults to an overview of every ensemble)")
	vectorList := flag.String("vectors", "", "comma-separated vector names to classify against the ensemble")
	flag.Parse()

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

	store, err := arrowstore.Open(*storeRoot,
		arrowstore.WithMaxConcurrentLoads(cfg.Store.MaxConcurrentLoads),
		arrowstore.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to open ensemble store", "store", *storeRoot, "error", err)
		os.Exit(1)
	}

	ctx := infrastructure.EnsureTraceID(context.Background())

	if *ensemble == "" {
		names, err := store.Ensembles()
		if err != nil {
			logger.Error("Failed to list ensembles", "store", store.Root(), "error", err)
			os.Exit(1)
		}
		if len(names) == 0 {
			fmt.Printf("No ensembles found under %s\n", store.Root())
			return
		}

		infos := make([]*arrowstore.EnsembleInfo, 0, len(names))
		for _, name := range names {
			info, err := store.Info(ctx, name)
			if err != nil {
				logger.Error("Failed to load ensemble", "ensemble", name, "error", err)
				os.Exit(1)
			}
			infos = append(infos, info)
		}
		printOverview(store.Root(), infos)
		return
	}

	info, err := store.Info(ctx, *ensemble)
	if err != nil {
		if errors.Is(err, timeseries.ErrUnknownEnsemble) {
			logger.Error("Unknown ensemble",
				"ensemble", *ensemble,
				"store", store.Root(),
				"hint", "run without -ensemble to list available ensembles")
		} else {
			logger.Error("Failed to load ensemble", "ensemble", *ensemble, "error", err)
		}
		os.Exit(1)
	}

	printDetail(info)

	if *vectorList != "" {
		expressions := timeseries.ValidateExpressions(
			expressionsFromConfig(cfg.Expressions), calc.NewEvaluator())
		printClassification(splitList(*vectorList), info.Vectors, expressions)
	}
}

func printOverview(root string, infos []*arrowstore.EnsembleInfo) {
	fmt.Printf("Ensemble store: %s\n\n", root)
	fmt.Println("Ensemble             | Reals | Vectors |      Rows | First      | Last")
	fmt.Println("---------------------|-------|---------|-----------|------------|-----------")
	for _, info := range infos {
		fmt.Printf("%-20s | %5d | %7d | %9d | %s | %s\n",
			info.Name, len(info.Realizations), len(info.Vectors), info.Rows,
			info.FirstDate.Format("2006-01-02"), info.LastDate.Format("2006-01-02"))
	}
}

func printDetail(info *arrowstore.EnsembleInfo) {
	fmt.Printf("Ensemble %s\n", info.Name)
	fmt.Printf("  Realizations: %d (%s)\n", len(info.Realizations), formatRealizations(info.Realizations))
	fmt.Printf("  Rows:         %d\n", info.Rows)
	fmt.Printf("  Date range:   %s .. %s\n",
		info.FirstDate.Format("2006-01-02"), info.LastDate.Format("2006-01-02"))
	fmt.Printf("  Vectors (%d):\n", len(info.Vectors))
	for _, name := range info.Vectors {
		fmt.Printf("    %s\n", name)
	}
}

func printClassification(requested, stored []string, expressions []timeseries.Expression) {
	cls := timeseries.ClassifyVectors(requested, stored, expressions)

	kinds := make(map[string]string, len(requested))
	for _, name := range cls.Provider {
		kinds[name] = "provider"
	}
	for _, name := range cls.Rate {
		kinds[name] = "rate"
	}
	for _, name := range cls.Calculated {
		kinds[name] = "calculated"
	}

	fmt.Println("\nVector classification:")
	for _, name := range requested {
		kind, ok := kinds[name]
		if !ok {
			kind = "not available"
		}
		fmt.Printf("  %-30s %s\n", name, kind)
	}
}

// formatRealizations collapses a sorted id list into compact ranges,
// e.g. [0 1 2 5 7 8] becomes "0-2,5,7-8".
func formatRealizations(ids []int) string {
	if len(ids) == 0 {
		return "none"
	}

	var parts []string
	start, prev := ids[0], ids[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, id := range ids[1:] {
		if id == prev+1 {
			prev = id
			continue
		}
		flush()
		start, prev = id, id
	}
	flush()
	return strings.Join(parts, ",")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func expressionsFromConfig(records []config.ExpressionConfig) []timeseries.Expression {
	expressions := make([]timeseries.Expression, 0, len(records))
	for _, record := range records {
		expressions = append(expressions, timeseries.Expression{
			Name:              record.Name,
			Expression:        record.Expression,
			VariableVectorMap: record.VariableVectorMap,
		})
	}
	return expressions
}
