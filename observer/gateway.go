package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	pdfconverter "github.com/LeThienKhiem/pdf-converter"
)

// Common attribute keys.
var (
	AttrModel    = attribute.Key("llm.model")
	AttrMimeType = attribute.Key("document.mime_type")
	AttrBytes    = attribute.Key("document.bytes")
	AttrStatus   = attribute.Key("status")
)

// ObservedGateway wraps a pdfconverter.Gateway with OTEL instrumentation.
type ObservedGateway struct {
	inner pdfconverter.Gateway
	inst  *Instruments
	model string
}

// WrapGateway returns an instrumented gateway that emits a span, a counter
// increment, and a latency sample per model call.
func WrapGateway(inner pdfconverter.Gateway, model string, inst *Instruments) *ObservedGateway {
	return &ObservedGateway{inner: inner, inst: inst, model: model}
}

func (o *ObservedGateway) ExtractTable(ctx context.Context, data []byte, mimeType string) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "model.extract_table", trace.WithAttributes(
		AttrModel.String(o.model),
		AttrMimeType.String(mimeType),
		AttrBytes.Int(len(data)),
	))
	defer span.End()
	start := time.Now()

	text, err := o.inner.ExtractTable(ctx, data, mimeType)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		if pdfconverter.IsRateLimited(err) {
			status = "rate_limited"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	attrs := metric.WithAttributes(AttrModel.String(o.model), AttrStatus.String(status))
	o.inst.ModelRequests.Add(ctx, 1, attrs)
	o.inst.ModelDuration.Record(ctx, durationMs, attrs)
	return text, err
}

var _ pdfconverter.Gateway = (*ObservedGateway)(nil)
