package pdfconverter

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFPageCount reports the number of pages in a PDF document. It is used
// for logging on the publish path and never gates a request: scanned or
// unusual PDFs that this parser rejects are still sent to the model, which
// reads them visually.
func PDFPageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty PDF content")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	return r.NumPage(), nil
}
