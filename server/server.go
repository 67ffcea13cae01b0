// Package server exposes the extraction pipeline over HTTP.
//
// Endpoints mirror the product's API surface: POST /api/extract returns the
// normalized grid as JSON, POST /api/export renders a grid to a styled XLSX
// download, POST /api/gsheet publishes a PDF into a new Google Sheet, and
// GET /api/blogs serves site content. All failures are converted to a
// single user-facing message plus a status code; internals never leak.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	pdfconverter "github.com/LeThienKhiem/pdf-converter"
	"github.com/LeThienKhiem/pdf-converter/content"
)

// Extractor runs the document-to-grid pipeline.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (pdfconverter.Grid, error)
}

// Publisher pushes a grid into a new cloud spreadsheet.
type Publisher interface {
	Publish(ctx context.Context, g pdfconverter.Grid) (string, error)
}

// PublisherFactory builds a Publisher for one request. refreshToken is the
// caller-supplied X-Google-Refresh-Token header value, "" when absent; the
// factory falls back to the server-configured token in that case.
type PublisherFactory func(refreshToken string) Publisher

// ContentStore serves published site content.
type ContentStore interface {
	ListPosts(ctx context.Context) ([]content.Post, error)
	GetPost(ctx context.Context, slug string) (content.Post, error)
}

// Config carries the server's collaborators. Nil Content disables the
// content endpoints with a configuration error; nil NewPublisher does the
// same for the publish endpoint.
type Config struct {
	Logger       *slog.Logger
	Extractor    Extractor
	NewPublisher PublisherFactory
	Content      ContentStore
}

// Server is the HTTP surface. Stateless: every request is handled
// independently with no cross-request coordination.
type Server struct {
	log          *slog.Logger
	extractor    Extractor
	newPublisher PublisherFactory
	store        ContentStore
	handler      http.Handler
}

// New creates a Server and builds its routes.
func New(cfg Config) *Server {
	s := &Server{
		log:          cfg.Logger,
		extractor:    cfg.Extractor,
		newPublisher: cfg.NewPublisher,
		store:        cfg.Content,
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("POST /api/gsheet", s.handleGSheet)
	mux.HandleFunc("GET /api/blogs", s.handleListBlogs)
	mux.HandleFunc("GET /api/blogs/{slug}", s.handleGetBlog)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	s.handler = s.withRequestLog(mux)
	return s
}

// Handler returns the root handler with logging and request-id middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags each request with a UUID, echoes it in X-Request-ID,
// and logs method, path, status, and duration.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		defer func() {
			if p := recover(); p != nil {
				s.log.Error("panic in handler", "request_id", id, "panic", p)
				writeError(rec, http.StatusInternalServerError, msgExtractGeneric)
			}
			s.log.Info("request",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start))
		}()

		next.ServeHTTP(rec, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
