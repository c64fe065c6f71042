package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"simcli/internal/arrowstore"
	"simcli/internal/cache"
	"simcli/internal/calc"
	"simcli/internal/config"
	"simcli/internal/exporter"
	"simcli/internal/infrastructure"
	"simcli/internal/timeseries"

	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v2"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults to simcli.yaml in the working directory)")
	storeRoot := flag.String("store", "", "ensemble store root directory (defaults to the configured store root)")
	ensemble := flag.String("ensemble", "", "ensemble to query, e.g. iter-0")
	delta := flag.String("delta", "", `delta ensemble to query as "A:B" (reports A minus B)`)
	vectorList := flag.String("vectors", "", "comma-separated vector names: stored vectors, PER_DAY_/PER_INTVL_ rates or expression names (required)")
	expressionsPath := flag.String("expressions", "", "YAML file with additional calculator expressions")
	freqName := flag.String("freq", "", "resampling frequency: daily, weekly, monthly, quarterly or yearly (defaults to native dates)")
	relativeDate := flag.String("relative-date", "", "rebase vectors to zero at this date, YYYY-MM-DD")
	realizationList := flag.String("realizations", "", `realizations to include, e.g. "0-9,12" (defaults to all)`)
	format := flag.String("format", "", "output format: csv, xlsx or json (defaults to the configured format)")
	outPath := flag.String("out", "", "output file path (defaults to a timestamped name in the export directory)")
	diagnosticsAddr := flag.String("diagnostics-addr", "", "serve /healthz and /metrics on this address while the report runs")
	flag.Parse()

	if *vectorList == "" {
		slog.Error("Missing required -vectors flag")
		flag.Usage()
		os.Exit(1)
	}
	if (*ensemble == "") == (*delta == "") {
		slog.Error("Exactly one of -ensemble or -delta is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	if *storeRoot == "" {
		*storeRoot = cfg.Store.RootDir
	}
	if *format == "" {
		*format = cfg.Export.Format
	}
	if *freqName == "" {
		*freqName = cfg.Query.ResamplingFrequency
	}
	if *diagnosticsAddr != "" {
		cfg.Diagnostics.Addr = *diagnosticsAddr
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	if !exporter.SupportedFormat(*format) {
		logger.Error("Unsupported output format", "format", *format, "hint", "use csv, xlsx or json")
		os.Exit(1)
	}

	frequency, err := timeseries.ParseFrequency(*freqName)
	if err != nil {
		logger.Error("Invalid resampling frequency", "freq", *freqName, "error", err)
		os.Exit(1)
	}

	var relDate time.Time
	if *relativeDate != "" {
		relDate, err = time.Parse("2006-01-02", *relativeDate)
		if err != nil {
			logger.Error("Invalid -relative-date value", "relative_date", *relativeDate, "error", err)
			os.Exit(1)
		}
	}

	selected, err := parseRealizations(*realizationList)
	if err != nil {
		logger.Error("Invalid -realizations value", "realizations", *realizationList, "error", err)
		os.Exit(1)
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("OpenTelemetry shutdown failed", "error", err)
		}
	}()

	var metrics *infrastructure.DataMetrics
	if providers.Meter != nil {
		metrics, err = infrastructure.CreateDataMetrics(providers.Meter)
		if err != nil {
			logger.Warn("Failed to create metric instruments", "error", err)
		}
	}

	ctx := infrastructure.EnsureTraceID(context.Background())
	if providers.Tracer != nil {
		var span trace.Span
		ctx, span = providers.Tracer.Start(ctx, "vector_report")
		defer span.End()
	}

	if cfg.Diagnostics.Addr != "" {
		diag, err := infrastructure.NewDiagnosticsServer(cfg.Diagnostics, providers, logger)
		if err != nil {
			logger.Error("Failed to create diagnostics server", "addr", cfg.Diagnostics.Addr, "error", err)
			os.Exit(1)
		}
		diag.Start(ctx)
		defer func() {
			if err := diag.Stop(context.Background()); err != nil {
				logger.Warn("Diagnostics shutdown failed", "error", err)
			}
		}()
	}

	expressions := expressionsFromConfig(cfg.Expressions)
	if *expressionsPath != "" {
		extra, err := loadExpressionsFile(*expressionsPath)
		if err != nil {
			logger.Error("Failed to load expressions file", "path", *expressionsPath, "error", err)
			os.Exit(1)
		}
		expressions = append(expressions, extra...)
	}
	evaluator := calc.NewEvaluator()
	expressions = timeseries.ValidateExpressions(expressions, evaluator)
	for _, e := range expressions {
		if !e.IsValid {
			logger.Warn("Ignoring invalid calculator expression",
				"name", e.Name, "expression", e.Expression)
		}
	}

	store, err := arrowstore.Open(*storeRoot,
		arrowstore.WithMaxConcurrentLoads(cfg.Store.MaxConcurrentLoads),
		arrowstore.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to open ensemble store", "store", *storeRoot, "error", err)
		os.Exit(1)
	}

	frameCache := cache.New(cfg.Query.CacheTTL, cfg.Query.CacheMaxEntries)
	defer frameCache.Stop()

	params := timeseries.RegistryParams{
		Providers:           map[string]timeseries.SummaryProvider{},
		VectorNames:         splitList(*vectorList),
		Expressions:         expressions,
		ResamplingFrequency: frequency,
		RelativeDate:        relDate,
		Evaluator:           evaluator,
		Cache:               frameCache,
		Logger:              logger,
	}

	var accessorKey string
	if *delta != "" {
		def, err := parseDeltaPair(*delta)
		if err != nil {
			logger.Error("Invalid -delta value", "delta", *delta, "error", err)
			os.Exit(1)
		}
		for _, name := range []string{def.EnsembleA, def.EnsembleB} {
			if _, ok := params.Providers[name]; ok {
				continue
			}
			provider, err := loadProvider(ctx, store, metrics, logger, name)
			if err != nil {
				os.Exit(1)
			}
			params.Providers[name] = provider
		}
		params.DeltaEnsembles = []timeseries.DeltaEnsembleDef{def}
		accessorKey = def.AccessorName()
	} else {
		provider, err := loadProvider(ctx, store, metrics, logger, *ensemble)
		if err != nil {
			os.Exit(1)
		}
		params.Providers[*ensemble] = provider
		params.EnsembleNames = []string{*ensemble}
		accessorKey = *ensemble
	}

	registry, err := timeseries.BuildAccessorRegistry(params)
	if err != nil {
		logger.Error("Failed to build vector accessors", "error", err)
		os.Exit(1)
	}
	accessor := registry[accessorKey]

	queryRealizations := selected
	if selected != nil {
		queryRealizations = accessor.ValidRealizationsQuery(selected)
		if queryRealizations != nil && len(queryRealizations) == 0 {
			logger.Error("None of the requested realizations exist in the ensemble",
				"ensemble", accessorKey, "requested", *realizationList)
			os.Exit(1)
		}
	}

	type vectorQuery struct {
		kind string
		has  bool
		run  func(context.Context, []int) (timeseries.Frame, error)
	}
	queries := []vectorQuery{
		{"provider", accessor.HasProviderVectors(), accessor.GetProviderVectors},
		{"rate", accessor.HasRateVectors(), accessor.GetRateVectors},
		{"calculated", accessor.HasCalculatedVectors(), accessor.GetCalculatedVectors},
	}

	var frames []timeseries.Frame
	for _, q := range queries {
		if !q.has {
			continue
		}
		queryStart := time.Now()
		cacheBefore := frameCache.Stats()
		frame, err := q.run(ctx, queryRealizations)
		infrastructure.RecordCacheAccess(ctx, metrics, frameCache.Stats().HitCount > cacheBefore.HitCount)
		infrastructure.RecordVectorQuery(ctx, metrics, accessorKey, q.kind, frame.NumRows(), time.Since(queryStart), err)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			logger.Error("Vector query failed", "kind", q.kind, "ensemble", accessorKey, "error", err)
			os.Exit(1)
		}
		infrastructure.AddSpanEvent(ctx, "vector_query", map[string]interface{}{
			"kind": q.kind,
			"rows": frame.NumRows(),
		})
		logger.Info("Vector query completed",
			slog.String("kind", q.kind),
			slog.Int("rows", frame.NumRows()),
			slog.Int("vectors", len(frame.Columns())),
			slog.Duration("elapsed", time.Since(queryStart)))
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		logger.Error("No requested vector matched the ensemble",
			"ensemble", accessorKey,
			"vectors", *vectorList,
			"hint", "run ensemble-info -vectors to see how names classify")
		os.Exit(1)
	}

	report, err := timeseries.JoinFrames(frames)
	if err != nil {
		logger.Error("Failed to combine query results", "error", err)
		os.Exit(1)
	}

	if *outPath == "" {
		*outPath = defaultOutputName(accessorKey, *format)
	}
	exp := exporter.New(cfg.Export.OutputDir, logger)
	exportStart := time.Now()
	err = exp.Export(ctx, report, *format, *outPath)
	infrastructure.RecordExport(ctx, metrics, *format, report.NumRows(), time.Since(exportStart), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		logger.Error("Export failed", "format", *format, "path", *outPath, "error", err)
		os.Exit(1)
	}

	finalPath := *outPath
	if !filepath.IsAbs(finalPath) {
		finalPath = filepath.Join(cfg.Export.OutputDir, finalPath)
	}

	cacheStats := frameCache.Stats()
	logger.Info("Vector report completed",
		slog.String("ensemble", accessorKey),
		slog.String("path", finalPath),
		slog.Int("rows", report.NumRows()),
		slog.Int("vectors", len(report.Columns())),
		slog.Int64("cache_hits", cacheStats.HitCount),
		slog.Int64("cache_misses", cacheStats.MissCount))

	fmt.Printf("Report written to %s\n", finalPath)
	printVectorSummary(accessorKey, report)
}

// loadProvider loads one ensemble from the store, recording the load as a
// metric either way. Failures are already logged on return.
func loadProvider(ctx context.Context, store *arrowstore.Store, metrics *infrastructure.DataMetrics, logger *slog.Logger, ensemble string) (timeseries.SummaryProvider, error) {
	start := time.Now()
	provider, err := store.Provider(ctx, ensemble)
	if err != nil {
		infrastructure.RecordEnsembleLoad(ctx, metrics, ensemble, 0, time.Since(start), err)
		infrastructure.RecordError(ctx, err)
		if errors.Is(err, timeseries.ErrUnknownEnsemble) {
			logger.Error("Unknown ensemble",
				"ensemble", ensemble,
				"hint", "run ensemble-info to list available ensembles")
		} else {
			logger.Error("Failed to load ensemble", "ensemble", ensemble, "error", err)
		}
		return nil, err
	}
	infrastructure.RecordEnsembleLoad(ctx, metrics, ensemble, len(provider.Realizations()), time.Since(start), nil)
	return provider, nil
}

func printVectorSummary(name string, frame timeseries.Frame) {
	fmt.Printf("\n=== VECTOR SUMMARY: %s ===\n", name)
	if frame.NumRows() == 0 {
		fmt.Println("No rows.")
		return
	}

	first, last := dateSpan(frame.Dates())
	fmt.Printf("Rows: %d   Realizations: %d   Dates: %s .. %s\n\n",
		frame.NumRows(), len(frame.UniqueRealizations()),
		first.Format("2006-01-02"), last.Format("2006-01-02"))

	fmt.Println("Vector                         |          Min |         Mean |          Max |       StdDev")
	fmt.Println("-------------------------------|--------------|--------------|--------------|-------------")
	for _, col := range frame.Columns() {
		if len(col.Values) == 0 {
			continue
		}
		fmt.Printf("%-30s | %12.6g | %12.6g | %12.6g | %12.6g\n",
			col.Name, floats.Min(col.Values), stat.Mean(col.Values, nil),
			floats.Max(col.Values), stat.StdDev(col.Values, nil))
	}
}

func dateSpan(dates timeseries.DateColumn) (time.Time, time.Time) {
	first, last := dates.At(0), dates.At(0)
	for i := 1; i < dates.Len(); i++ {
		d := dates.At(i)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last
}

// parseRealizations parses a selection such as "0-9,12,15-17" into ids,
// preserving order and dropping duplicates. An empty string means all.
func parseRealizations(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var out []int
	seen := make(map[int]struct{})
	add := func(id int) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, isRange := strings.Cut(part, "-"); isRange {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid realization range %q", part)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("invalid realization range %q", part)
			}
			if start < 0 || end < start {
				return nil, fmt.Errorf("invalid realization range %q", part)
			}
			for id := start; id <= end; id++ {
				add(id)
			}
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid realization id %q", part)
		}
		add(id)
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func parseDeltaPair(s string) (timeseries.DeltaEnsembleDef, error) {
	a, b, ok := strings.Cut(s, ":")
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if !ok || a == "" || b == "" {
		return timeseries.DeltaEnsembleDef{}, fmt.Errorf(`expected "ensembleA:ensembleB", got %q`, s)
	}
	return timeseries.DeltaEnsembleDef{EnsembleA: a, EnsembleB: b}, nil
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

// loadExpressionsFile reads a YAML list of calculator expressions, the same
// shape as the expressions section of the config file.
func loadExpressionsFile(path string) ([]timeseries.Expression, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []config.ExpressionConfig
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse expressions file: %w", err)
	}
	return expressionsFromConfig(records), nil
}

func defaultOutputName(ensemble, format string) string {
	return fmt.Sprintf("%s_vectors_%s.%s",
		sanitizeName(ensemble), time.Now().Format("20060102_150405"), format)
}

// sanitizeName keeps delta keys like "(iter-0)-(iter-3)" portable as file
// names.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
