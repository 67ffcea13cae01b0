package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	pdfconverter "github.com/LeThienKhiem/pdf-converter"
	"github.com/LeThienKhiem/pdf-converter/content"
	"github.com/LeThienKhiem/pdf-converter/xlsx"
)

// User-facing messages. The client matches some of these verbatim
// (tokenExpiredSentinel triggers the re-consent flow), so they are part of
// the API contract.
const (
	msgMissingFile     = "Missing file. Send a PDF or image in FormData under 'file' or 'pdf'."
	msgMissingBase64   = "Missing or invalid 'base64' in JSON body."
	msgBadFileType     = "Invalid file type. Only PDF and images (JPEG, PNG, WebP, GIF) are supported."
	msgEmptyFile       = "Uploaded file is empty."
	msgTooLargeExtract = "File too large. Please upload a PDF under 5MB for faster processing."
	msgTooLargeGSheet  = "File too large. Please upload a PDF under 5MB."
	msgBusy            = "Our AI is currently processing a high volume of documents. Please try again in a few seconds."
	msgBadModelJSON    = "Extraction failed. Invalid JSON from model."
	msgExtractGeneric  = "Extraction failed. An error occurred while processing the document."
	msgMissingPDF      = "Missing file. Please upload a PDF."
	msgOnlyPDF         = "Only PDF files are supported for this tool."
	msgNoData          = "No data was extracted from the PDF."
	msgGSheetGeneric   = "An error occurred while creating your Google Sheet."
	msgGSheetReady     = "Your sheet is ready. Make a copy to save it to your Drive."
	msgBadExportBody   = "Missing or invalid 'data' grid in JSON body."
	msgContentMissing  = "Server missing content database configuration."

	tokenExpiredSentinel = "Google_Token_Expired"
)

// upload is one decoded request document.
type upload struct {
	data     []byte
	mimeType string
}

// handleExtract accepts a document as JSON ({base64, mimeType}) or as a
// multipart form field (file/pdf) and returns the normalized grid.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r, msgMissingFile, msgTooLargeExtract)
	if !ok {
		return
	}

	grid, err := s.extractor.Extract(r.Context(), doc.data, doc.mimeType)
	if err != nil {
		status, msg := extractErrorResponse(err)
		s.log.Warn("extraction failed", "mime_type", doc.mimeType, "status", status, "error", err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": grid})
}

// handleExport renders a grid to a styled XLSX download. Purely local: no
// network call, and an empty grid yields a valid empty workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data pdfconverter.Grid `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, msgBadExportBody)
		return
	}

	file, err := xlsx.Write(body.Data)
	if err != nil {
		s.log.Error("xlsx write failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgExtractGeneric)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", xlsx.Filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(file)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file)
}

// handleGSheet runs the full pipeline for a PDF and publishes the grid into
// a new Google Sheet shared by link.
func (s *Server) handleGSheet(w http.ResponseWriter, r *http.Request) {
	if s.newPublisher == nil {
		writeError(w, http.StatusInternalServerError, msgGSheetGeneric)
		return
	}

	doc, ok := s.readMultipart(w, r, msgMissingPDF, msgTooLargeGSheet)
	if !ok {
		return
	}
	if err := pdfconverter.ValidatePDFUpload(doc.mimeType, int64(len(doc.data))); err != nil {
		status, msg := gsheetErrorResponse(err)
		writeError(w, status, msg)
		return
	}

	if pages, err := pdfconverter.PDFPageCount(doc.data); err == nil {
		s.log.Info("publishing pdf", "pages", pages, "bytes", len(doc.data))
	} else {
		s.log.Warn("pdf page count unavailable", "error", err)
	}

	grid, err := s.extractor.Extract(r.Context(), doc.data, doc.mimeType)
	if err != nil {
		status, msg := gsheetErrorResponse(err)
		s.log.Warn("gsheet extraction failed", "status", status, "error", err)
		writeError(w, status, msg)
		return
	}

	refreshToken := strings.TrimSpace(r.Header.Get("X-Google-Refresh-Token"))
	copyURL, err := s.newPublisher(refreshToken).Publish(r.Context(), grid)
	if err != nil {
		status, msg := gsheetErrorResponse(err)
		s.log.Warn("gsheet publish failed", "status", status, "error", err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"copyUrl": copyURL,
		"message": msgGSheetReady,
	})
}

func (s *Server) handleListBlogs(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusInternalServerError, msgContentMissing)
		return
	}
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		s.log.Error("list posts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if posts == nil {
		posts = []content.Post{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": posts})
}

func (s *Server) handleGetBlog(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusInternalServerError, msgContentMissing)
		return
	}
	post, err := s.store.GetPost(r.Context(), r.PathValue("slug"))
	if errors.Is(err, content.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Post not found.")
		return
	}
	if err != nil {
		s.log.Error("get post failed", "slug", r.PathValue("slug"), "error", err)
		writeError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": post})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readDocument decodes an upload from either a JSON body or a multipart
// form. Rejections are written to w; the bool reports success.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request, missingMsg, tooLargeMsg string) (upload, bool) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return s.readJSONDocument(w, r, tooLargeMsg)
	}
	return s.readMultipart(w, r, missingMsg, tooLargeMsg)
}

func (s *Server) readJSONDocument(w http.ResponseWriter, r *http.Request, tooLargeMsg string) (upload, bool) {
	var body struct {
		Base64   string `json:"base64"`
		MimeType string `json:"mimeType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Base64 == "" {
		writeError(w, http.StatusBadRequest, msgMissingBase64)
		return upload{}, false
	}
	mimeType := body.MimeType
	if mimeType == "" {
		mimeType = pdfconverter.MIMEPDF
	}
	// Size gate before decoding: 4 base64 chars encode 3 bytes.
	if estimated := len(body.Base64) * 3 / 4; estimated > pdfconverter.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, tooLargeMsg)
		return upload{}, false
	}
	data, err := base64.StdEncoding.DecodeString(body.Base64)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgMissingBase64)
		return upload{}, false
	}
	return upload{data: data, mimeType: mimeType}, true
}

func (s *Server) readMultipart(w http.ResponseWriter, r *http.Request, missingMsg, tooLargeMsg string) (upload, bool) {
	if err := r.ParseMultipartForm(pdfconverter.MaxUploadBytes + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, missingMsg)
		return upload{}, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("pdf")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, missingMsg)
		return upload{}, false
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = pdfconverter.MIMEPDF
	}

	data, err := io.ReadAll(io.LimitReader(file, pdfconverter.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, missingMsg)
		return upload{}, false
	}
	if len(data) > pdfconverter.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, tooLargeMsg)
		return upload{}, false
	}
	return upload{data: data, mimeType: mimeType}, true
}

// extractErrorResponse maps a pipeline error to the extraction endpoint's
// status and message (400 invalid input, 413 too large, 500 model/content,
// 503 rate-limited after retries).
func extractErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, pdfconverter.ErrBadFileType), errors.Is(err, pdfconverter.ErrNotPDF):
		return http.StatusBadRequest, msgBadFileType
	case errors.Is(err, pdfconverter.ErrEmptyFile):
		return http.StatusBadRequest, msgEmptyFile
	case errors.Is(err, pdfconverter.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, msgTooLargeExtract
	case pdfconverter.IsRateLimited(err):
		return http.StatusServiceUnavailable, msgBusy
	case errors.Is(err, pdfconverter.ErrMalformedOutput):
		return http.StatusInternalServerError, msgBadModelJSON
	}
	var me *pdfconverter.ErrModel
	if errors.As(err, &me) {
		if strings.Contains(me.Message, "no content") {
			return http.StatusInternalServerError, "Extraction failed. No content returned."
		}
		return http.StatusInternalServerError, "Extraction failed. Response was blocked or empty."
	}
	return http.StatusInternalServerError, msgExtractGeneric
}

// gsheetErrorResponse maps pipeline and publish errors for the cloud path,
// whose statuses are limited to {400, 401, 413, 500}. The 401 body carries
// the fixed sentinel the client uses to start re-authentication.
func gsheetErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, pdfconverter.ErrNotPDF), errors.Is(err, pdfconverter.ErrBadFileType):
		return http.StatusBadRequest, msgOnlyPDF
	case errors.Is(err, pdfconverter.ErrEmptyFile):
		return http.StatusBadRequest, msgEmptyFile
	case errors.Is(err, pdfconverter.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, msgTooLargeGSheet
	case errors.Is(err, pdfconverter.ErrNothingToPublish):
		return http.StatusBadRequest, msgNoData
	case pdfconverter.IsTokenExpired(err):
		return http.StatusUnauthorized, tokenExpiredSentinel
	case pdfconverter.IsRateLimited(err):
		return http.StatusInternalServerError, msgBusy
	case errors.Is(err, pdfconverter.ErrMalformedOutput):
		return http.StatusInternalServerError, "Extraction failed. Invalid AI output."
	}
	var me *pdfconverter.ErrModel
	if errors.As(err, &me) {
		if strings.Contains(me.Message, "no content") {
			return http.StatusInternalServerError, "Extraction failed. No content returned from AI."
		}
		return http.StatusInternalServerError, "Extraction failed. Response was blocked or empty."
	}
	return http.StatusInternalServerError, msgGSheetGeneric
}
