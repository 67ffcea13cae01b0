// Package observer provides OTEL-based observability for the extraction
// service.
//
// It wraps the model gateway, the extraction pipeline, and the sheet
// publisher with instrumented versions emitting traces and metrics. Users
// export to any OTEL-compatible backend by setting standard OTEL env vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/LeThienKhiem/pdf-converter/observer"

// Instruments holds all OTEL instruments used by the instrumentation
// wrappers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Counters
	ModelRequests  metric.Int64Counter
	Extractions    metric.Int64Counter
	Publishes      metric.Int64Counter
	UploadRejected metric.Int64Counter

	// Histograms
	ModelDuration   metric.Float64Histogram
	PublishDuration metric.Float64Histogram
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP
// exporters. Configuration comes from standard OTEL env vars
// (OTEL_EXPORTER_OTLP_ENDPOINT, etc.). Returns a shutdown function that
// must be called on application exit.
func Init(ctx context.Context) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("pdf-converter")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := newInstruments()
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}
	return inst, shutdown, nil
}

func newInstruments() (*Instruments, error) {
	tracer := otel.Tracer(scopeName)
	meter := otel.Meter(scopeName)
	logger := global.Logger(scopeName)

	modelRequests, err := meter.Int64Counter("model.requests",
		metric.WithDescription("Model extraction calls, by outcome"))
	if err != nil {
		return nil, err
	}
	extractions, err := meter.Int64Counter("extract.requests",
		metric.WithDescription("Extraction pipeline runs, by outcome"))
	if err != nil {
		return nil, err
	}
	publishes, err := meter.Int64Counter("publish.requests",
		metric.WithDescription("Cloud sheet publishes, by outcome"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("upload.rejected",
		metric.WithDescription("Uploads rejected before any network call"))
	if err != nil {
		return nil, err
	}
	modelDuration, err := meter.Float64Histogram("model.duration",
		metric.WithDescription("Model call latency"), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	publishDuration, err := meter.Float64Histogram("publish.duration",
		metric.WithDescription("Cloud publish latency"), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:          tracer,
		Meter:           meter,
		Logger:          logger,
		ModelRequests:   modelRequests,
		Extractions:     extractions,
		Publishes:       publishes,
		UploadRejected:  rejected,
		ModelDuration:   modelDuration,
		PublishDuration: publishDuration,
	}, nil
}
