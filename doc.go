// Package pdfconverter extracts tabular data from uploaded PDF and image
// documents using the Gemini vision API.
//
// The root package holds the core pipeline: upload validation, the retry
// policy for rate-limited model calls, and normalization of free-form model
// output into a rectangular Grid of nullable string cells. Subpackages
// provide the Gemini wire client (provider/gemini), styled XLSX emission
// (xlsx), Google Sheets publishing (sheets), the HTTP surface (server),
// site content backed by Postgres (content), and OTEL instrumentation
// (observer).
//
// Compose a pipeline by injecting a Gateway into an Extractor:
//
//	gw := gemini.New(apiKey, model)
//	ex := pdfconverter.NewExtractor(gw, pdfconverter.WithLogger(logger))
//	grid, err := ex.Extract(ctx, fileBytes, "application/pdf")
package pdfconverter
