package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"simcli/internal/config"
)

const (
	ServiceName    = "simcli-vector-service"
	ServiceVersion = config.AppVersion
	MeterName      = "simcli"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes OpenTelemetry with comprehensive observability
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		otel.SetMeterProvider(mp)

	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// CreateDataMetrics creates application-specific metrics
func CreateDataMetrics(meter metric.Meter) (*DataMetrics, error) {
	// Ensemble store metrics
	ensembleLoadsTotal, err := meter.Int64Counter(
		"ensemble_loads_total",
		metric.WithDescription("Total number of ensemble load operations"),
	)
	if err != nil {
		return nil, err
	}

	ensembleLoadDuration, err := meter.Float64Histogram(
		"ensemble_load_duration_seconds",
		metric.WithDescription("Ensemble load duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	realizationsLoaded, err := meter.Int64Counter(
		"ensemble_realizations_loaded_total",
		metric.WithDescription("Total number of realization files loaded"),
	)
	if err != nil {
		return nil, err
	}

	// Vector query metrics
	vectorQueriesTotal, err := meter.Int64Counter(
		"vector_queries_total",
		metric.WithDescription("Total number of derived-vector queries"),
	)
	if err != nil {
		return nil, err
	}

	vectorQueryDuration, err := meter.Float64Histogram(
		"vector_query_duration_seconds",
		metric.WithDescription("Derived-vector query duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	vectorQueryErrors, err := meter.Int64Counter(
		"vector_query_errors_total",
		metric.WithDescription("Total number of failed derived-vector queries"),
	)
	if err != nil {
		return nil, err
	}

	vectorRowsReturned, err := meter.Int64Counter(
		"vector_rows_returned_total",
		metric.WithDescription("Total number of frame rows returned by queries"),
	)
	if err != nil {
		return nil, err
	}

	// Frame cache metrics
	cacheHits, err := meter.Int64Counter(
		"frame_cache_hits_total",
		metric.WithDescription("Total number of frame cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"frame_cache_misses_total",
		metric.WithDescription("Total number of frame cache misses"),
	)
	if err != nil {
		return nil, err
	}

	// Export metrics
	exportsTotal, err := meter.Int64Counter(
		"exports_total",
		metric.WithDescription("Total number of report exports"),
	)
	if err != nil {
		return nil, err
	}

	exportDuration, err := meter.Float64Histogram(
		"export_duration_seconds",
		metric.WithDescription("Report export duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	exportRows, err := meter.Int64Counter(
		"export_rows_total",
		metric.WithDescription("Total number of rows written by exports"),
	)
	if err != nil {
		return nil, err
	}

	// System metrics
	systemErrors, err := meter.Int64Counter(
		"system_errors_total",
		metric.WithDescription("Total number of system errors"),
	)
	if err != nil {
		return nil, err
	}

	systemUptime, err := meter.Float64UpDownCounter(
		"system_uptime_seconds",
		metric.WithDescription("System uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &DataMetrics{
		EnsembleLoadsTotal:   ensembleLoadsTotal,
		EnsembleLoadDuration: ensembleLoadDuration,
		RealizationsLoaded:   realizationsLoaded,

		VectorQueriesTotal:  vectorQueriesTotal,
		VectorQueryDuration: vectorQueryDuration,
		VectorQueryErrors:   vectorQueryErrors,
		VectorRowsReturned:  vectorRowsReturned,

		CacheHits:   cacheHits,
		CacheMisses: cacheMisses,

		ExportsTotal:   exportsTotal,
		ExportDuration: exportDuration,
		ExportRows:     exportRows,

		SystemErrors: systemErrors,
		SystemUptime: systemUptime,
	}, nil
}

// DataMetrics holds all application-specific metrics
type DataMetrics struct {
	// Ensemble store metrics
	EnsembleLoadsTotal   metric.Int64Counter
	EnsembleLoadDuration metric.Float64Histogram
	RealizationsLoaded   metric.Int64Counter

	// Vector query metrics
	VectorQueriesTotal  metric.Int64Counter
	VectorQueryDuration metric.Float64Histogram
	VectorQueryErrors   metric.Int64Counter
	VectorRowsReturned  metric.Int64Counter

	// Frame cache metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// Export metrics
	ExportsTotal   metric.Int64Counter
	ExportDuration metric.Float64Histogram
	ExportRows     metric.Int64Counter

	// System metrics
	SystemErrors metric.Int64Counter
	SystemUptime metric.Float64UpDownCounter
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// SpanFromContext returns the current span from context
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// RecordEnsembleLoad records metrics for one ensemble load
func RecordEnsembleLoad(ctx context.Context, metrics *DataMetrics, ensemble string, realizations int, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ensemble", ensemble),
	}
	statusAttr := attribute.String("status", "success")
	if err != nil {
		statusAttr = attribute.String("status", "failure")
	}

	metrics.EnsembleLoadsTotal.Add(ctx, 1, metric.WithAttributes(append(attrs, statusAttr)...))
	metrics.EnsembleLoadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if err == nil {
		metrics.RealizationsLoaded.Add(ctx, int64(realizations), metric.WithAttributes(attrs...))
	}
}

// RecordVectorQuery records metrics for one derived-vector query
func RecordVectorQuery(ctx context.Context, metrics *DataMetrics, ensemble, kind string, rows int, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ensemble", ensemble),
		attribute.String("query.kind", kind),
	}

	metrics.VectorQueriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.VectorQueryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		errorAttrs := append(attrs, attribute.String("error.type", fmt.Sprintf("%T", err)))
		metrics.VectorQueryErrors.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
		return
	}
	metrics.VectorRowsReturned.Add(ctx, int64(rows), metric.WithAttributes(attrs...))
}

// RecordCacheAccess records a frame cache hit or miss
func RecordCacheAccess(ctx context.Context, metrics *DataMetrics, hit bool) {
	if metrics == nil {
		return
	}

	if hit {
		metrics.CacheHits.Add(ctx, 1)
		return
	}
	metrics.CacheMisses.Add(ctx, 1)
}

// RecordExport records metrics for one report export
func RecordExport(ctx context.Context, metrics *DataMetrics, format string, rows int, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("format", format),
	}
	statusAttr := attribute.String("status", "success")
	if err != nil {
		statusAttr = attribute.String("status", "failure")
	}

	metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(append(attrs, statusAttr)...))
	metrics.ExportDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if err == nil {
		metrics.ExportRows.Add(ctx, int64(rows), metric.WithAttributes(attrs...))
	}
}
