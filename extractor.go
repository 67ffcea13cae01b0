package pdfconverter

import (
	"context"
	"log/slog"
)

// Gateway obtains raw model text for a document. Implemented by
// provider/gemini; wrapped by observer for instrumentation.
type Gateway interface {
	ExtractTable(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Extractor runs the document-to-grid pipeline: validate the upload, call
// the gateway under the retry policy, normalize the response. It holds no
// per-request state and is safe for concurrent use.
type Extractor struct {
	gateway Gateway
	policy  RetryPolicy
	logger  *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithRetryPolicy overrides the default model-call retry policy.
func WithRetryPolicy(p RetryPolicy) ExtractorOption {
	return func(e *Extractor) { e.policy = p }
}

// WithLogger sets the structured logger. Nil (the default) means no output.
func WithLogger(l *slog.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an Extractor over gw with the default retry policy
// (3 attempts, 2s/4s backoff on rate limits).
func NewExtractor(gw Gateway, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		gateway: gw,
		policy:  ExtractRetryPolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = nopLogger
	}
	if e.policy.Logger == nil {
		e.policy.Logger = e.logger
	}
	return e
}

// Extract validates the document, obtains raw model text with retries, and
// normalizes it into a Grid. The gateway is never called for rejected
// uploads.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (Grid, error) {
	if err := ValidateUpload(mimeType, int64(len(data))); err != nil {
		return nil, err
	}

	raw, err := Retry(ctx, e.policy, "gemini.extract_table", func() (string, error) {
		return e.gateway.ExtractTable(ctx, data, mimeType)
	})
	if err != nil {
		return nil, err
	}

	grid, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	e.logger.Info("extraction complete",
		"mime_type", mimeType,
		"bytes", len(data),
		"rows", len(grid),
		"cols", grid.ColumnCount())
	return grid, nil
}
