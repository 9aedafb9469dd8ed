package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/facilitycollector"

// Metrics holds all application metrics
type Metrics struct {
	ReloadCount         metric.Int64Counter
	ReloadDuration      metric.Float64Histogram
	SourceFailureCount  metric.Int64Counter
	FacilitiesPublished metric.Int64Gauge
	PendingOverlays     metric.Int64Gauge
}

// Setup initializes OpenTelemetry
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	// Set up trace exporter
	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	// Set up trace provider
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Set up metric exporter and provider
	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	// Shutdown function
	shutdown := func(ctx context.Context) error {
		traceErr := tracerProvider.Shutdown(ctx)
		if err := meterProvider.Shutdown(ctx); err != nil {
			return err
		}
		return traceErr
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics on the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	reloadCount, err := meter.Int64Counter(
		"collector.reload.count",
		metric.WithDescription("Number of reload attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	reloadDuration, err := meter.Float64Histogram(
		"collector.reload.duration",
		metric.WithDescription("Reload duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sourceFailures, err := meter.Int64Counter(
		"collector.source.failure.count",
		metric.WithDescription("Number of failed source reloads"),
	)
	if err != nil {
		return nil, err
	}

	published, err := meter.Int64Gauge(
		"collector.facilities.published",
		metric.WithDescription("Facilities in the published snapshot"),
	)
	if err != nil {
		return nil, err
	}

	pending, err := meter.Int64Gauge(
		"collector.overlays.pending",
		metric.WithDescription("Overlays waiting for a matching facility"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ReloadCount:         reloadCount,
		ReloadDuration:      reloadDuration,
		SourceFailureCount:  sourceFailures,
		FacilitiesPublished: published,
		PendingOverlays:     pending,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordReload records the outcome of one reload attempt. m may be nil.
func (m *Metrics) RecordReload(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.ReloadCount.Add(ctx, 1, attrs)
	m.ReloadDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordSourceFailure counts a failed source reload. m may be nil.
func (m *Metrics) RecordSourceFailure(ctx context.Context, source string, critical bool) {
	if m == nil {
		return
	}
	m.SourceFailureCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("critical", critical),
	))
}

// RecordPublished records the size of a newly published snapshot. m may be nil.
func (m *Metrics) RecordPublished(ctx context.Context, facilities, pending int) {
	if m == nil {
		return
	}
	m.FacilitiesPublished.Record(ctx, int64(facilities))
	m.PendingOverlays.Record(ctx, int64(pending))
}
