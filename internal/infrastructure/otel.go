package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
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
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "meralco-rates"
	ServiceVersion = "0.1.0"
	MeterName      = "meralcocli"
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
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing and metrics for the pipeline
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

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

	logger.InfoContext(ctx, "opentelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
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
		semconv.DeploymentEnvironment(cfg.Environment),
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
		// Spans still propagate for log correlation, nothing is exported.
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetTracerProvider(tp)
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

	providers.Logger.InfoContext(ctx, "tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		// Dedicated registry so repeated initialization (tests, serve
		// restarts) never trips duplicate collector registration.
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

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

	providers.Logger.InfoContext(ctx, "metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// PipelineMetrics holds the fetch/extract/backfill instrumentation
type PipelineMetrics struct {
	// Fetch metrics
	FetchAttemptsTotal metric.Int64Counter
	FetchRetriesTotal  metric.Int64Counter
	FetchBytesTotal    metric.Int64Counter
	FetchDuration      metric.Float64Histogram

	// Extraction metrics
	DocumentsExtractedTotal metric.Int64Counter
	ExtractDuration         metric.Float64Histogram
	RowsParsedTotal         metric.Int64Counter
	RowsSkippedTotal        metric.Int64Counter
	RowsFailedTotal         metric.Int64Counter

	// Backfill metrics
	BackfillPeriodsTotal  metric.Int64Counter
	BackfillActivePeriods metric.Int64UpDownCounter

	// API metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

// CreatePipelineMetrics creates the application-specific metrics
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	fetchAttemptsTotal, err := meter.Int64Counter(
		"fetch_attempts_total",
		metric.WithDescription("Total number of source fetch attempts"),
	)
	if err != nil {
		return nil, err
	}

	fetchRetriesTotal, err := meter.Int64Counter(
		"fetch_retries_total",
		metric.WithDescription("Total number of fetch attempts that were retries"),
	)
	if err != nil {
		return nil, err
	}

	fetchBytesTotal, err := meter.Int64Counter(
		"fetch_bytes_total",
		metric.WithDescription("Total bytes downloaded from the source site"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"fetch_duration_seconds",
		metric.WithDescription("Source fetch duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	documentsExtractedTotal, err := meter.Int64Counter(
		"documents_extracted_total",
		metric.WithDescription("Total number of documents run through extraction"),
	)
	if err != nil {
		return nil, err
	}

	extractDuration, err := meter.Float64Histogram(
		"extract_duration_seconds",
		metric.WithDescription("Document extraction duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rowsParsedTotal, err := meter.Int64Counter(
		"rows_parsed_total",
		metric.WithDescription("Total table rows canonicalized successfully"),
	)
	if err != nil {
		return nil, err
	}

	rowsSkippedTotal, err := meter.Int64Counter(
		"rows_skipped_total",
		metric.WithDescription("Total non-data table rows skipped"),
	)
	if err != nil {
		return nil, err
	}

	rowsFailedTotal, err := meter.Int64Counter(
		"rows_failed_total",
		metric.WithDescription("Total table rows that failed to parse"),
	)
	if err != nil {
		return nil, err
	}

	backfillPeriodsTotal, err := meter.Int64Counter(
		"backfill_periods_total",
		metric.WithDescription("Total backfill periods processed, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	backfillActivePeriods, err := meter.Int64UpDownCounter(
		"backfill_active_periods",
		metric.WithDescription("Number of periods currently being processed"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of API requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("API request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		FetchAttemptsTotal:      fetchAttemptsTotal,
		FetchRetriesTotal:       fetchRetriesTotal,
		FetchBytesTotal:         fetchBytesTotal,
		FetchDuration:           fetchDuration,
		DocumentsExtractedTotal: documentsExtractedTotal,
		ExtractDuration:         extractDuration,
		RowsParsedTotal:         rowsParsedTotal,
		RowsSkippedTotal:        rowsSkippedTotal,
		RowsFailedTotal:         rowsFailedTotal,
		BackfillPeriodsTotal:    backfillPeriodsTotal,
		BackfillActivePeriods:   backfillActivePeriods,
		HTTPRequestsTotal:       httpRequestsTotal,
		HTTPRequestDuration:     httpRequestDuration,
	}, nil
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

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// RecordFetchMetrics records one fetch attempt
func RecordFetchMetrics(ctx context.Context, metrics *PipelineMetrics, attempt int, bytes int, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))

	metrics.FetchAttemptsTotal.Add(ctx, 1, attrs)
	if attempt > 1 {
		metrics.FetchRetriesTotal.Add(ctx, 1)
	}
	if bytes > 0 {
		metrics.FetchBytesTotal.Add(ctx, int64(bytes))
	}
	metrics.FetchDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordExtractMetrics records one document extraction
func RecordExtractMetrics(ctx context.Context, metrics *PipelineMetrics, parsed, skipped, failed int, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))

	metrics.DocumentsExtractedTotal.Add(ctx, 1, attrs)
	metrics.ExtractDuration.Record(ctx, duration.Seconds(), attrs)
	if parsed > 0 {
		metrics.RowsParsedTotal.Add(ctx, int64(parsed))
	}
	if skipped > 0 {
		metrics.RowsSkippedTotal.Add(ctx, int64(skipped))
	}
	if failed > 0 {
		metrics.RowsFailedTotal.Add(ctx, int64(failed))
	}
}

// RecordPeriodOutcome records the terminal state of one backfill period
func RecordPeriodOutcome(ctx context.Context, metrics *PipelineMetrics, stage string, success bool) {
	if metrics == nil {
		return
	}

	status := "succeeded"
	if !success {
		status = "failed"
	}
	metrics.BackfillPeriodsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("stage", stage),
	))
}

// RecordActivePeriodChange tracks periods entering and leaving processing
func RecordActivePeriodChange(ctx context.Context, metrics *PipelineMetrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.BackfillActivePeriods.Add(ctx, delta)
}

// RecordHTTPRequest records one API request
func RecordHTTPRequest(ctx context.Context, metrics *PipelineMetrics, route string, status int, duration time.Duration) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	metrics.HTTPRequestsTotal.Add(ctx, 1, attrs)
	metrics.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}
