package observer

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	pdfconverter "github.com/LeThienKhiem/pdf-converter"
)

// Extractor runs the document-to-grid pipeline.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (pdfconverter.Grid, error)
}

// Publisher pushes a grid into a new cloud spreadsheet.
type Publisher interface {
	Publish(ctx context.Context, g pdfconverter.Grid) (string, error)
}

// ObservedExtractor wraps an Extractor with OTEL instrumentation.
type ObservedExtractor struct {
	inner Extractor
	inst  *Instruments
}

// WrapExtractor returns an instrumented extractor that emits a span and a
// run counter per pipeline run, plus a rejection counter for uploads that
// fail validation before any network call.
func WrapExtractor(inner Extractor, inst *Instruments) *ObservedExtractor {
	return &ObservedExtractor{inner: inner, inst: inst}
}

func (o *ObservedExtractor) Extract(ctx context.Context, data []byte, mimeType string) (pdfconverter.Grid, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "extract", trace.WithAttributes(
		AttrMimeType.String(mimeType),
		AttrBytes.Int(len(data)),
	))
	defer span.End()

	grid, err := o.inner.Extract(ctx, data, mimeType)

	status := "ok"
	if err != nil {
		status = "error"
		if isRejectedUpload(err) {
			status = "rejected"
			o.inst.UploadRejected.Add(ctx, 1, metric.WithAttributes(AttrMimeType.String(mimeType)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.inst.Extractions.Add(ctx, 1, metric.WithAttributes(AttrStatus.String(status)))
	return grid, err
}

// ObservedPublisher wraps a Publisher with OTEL instrumentation.
type ObservedPublisher struct {
	inner Publisher
	inst  *Instruments
}

// WrapPublisher returns an instrumented publisher that emits a span, a
// counter increment, and a latency sample per publish.
func WrapPublisher(inner Publisher, inst *Instruments) *ObservedPublisher {
	return &ObservedPublisher{inner: inner, inst: inst}
}

func (o *ObservedPublisher) Publish(ctx context.Context, g pdfconverter.Grid) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "sheet.publish")
	defer span.End()
	start := time.Now()

	copyURL, err := o.inner.Publish(ctx, g)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		if pdfconverter.IsTokenExpired(err) {
			status = "token_expired"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	attrs := metric.WithAttributes(AttrStatus.String(status))
	o.inst.Publishes.Add(ctx, 1, attrs)
	o.inst.PublishDuration.Record(ctx, durationMs, attrs)
	return copyURL, err
}

// isRejectedUpload reports whether err is a pre-flight validation failure
// rather than a pipeline error.
func isRejectedUpload(err error) bool {
	return errors.Is(err, pdfconverter.ErrBadFileType) ||
		errors.Is(err, pdfconverter.ErrNotPDF) ||
		errors.Is(err, pdfconverter.ErrEmptyFile) ||
		errors.Is(err, pdfconverter.ErrFileTooLarge)
}
