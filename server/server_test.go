package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	pdfconverter "github.com/LeThienKhiem/pdf-converter"
	"github.com/LeThienKhiem/pdf-converter/content"
)

func str(s string) *string { return &s }

type stubExtractor struct {
	grid  pdfconverter.Grid
	err   error
	calls int

	lastData []byte
	lastMime string
}

func (e *stubExtractor) Extract(_ context.Context, data []byte, mimeType string) (pdfconverter.Grid, error) {
	e.calls++
	e.lastData = data
	e.lastMime = mimeType
	if e.err != nil {
		return nil, e.err
	}
	return e.grid, nil
}

type stubPublisher struct {
	url   string
	err   error
	calls int
}

func (p *stubPublisher) Publish(context.Context, pdfconverter.Grid) (string, error) {
	p.calls++
	return p.url, p.err
}

type stubStore struct {
	posts []content.Post
	post  content.Post
	err   error
}

func (s *stubStore) ListPosts(context.Context) ([]content.Post, error) {
	return s.posts, s.err
}

func (s *stubStore) GetPost(context.Context, string) (content.Post, error) {
	return s.post, s.err
}

func newTestServer(ext Extractor, pub Publisher, store ContentStore) *Server {
	cfg := Config{Extractor: ext}
	if pub != nil {
		cfg.NewPublisher = func(string) Publisher { return pub }
	}
	cfg.Content = store
	return New(cfg)
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func jsonExtractRequest(b64, mimeType string) *http.Request {
	payload, _ := json.Marshal(map[string]string{"base64": b64, "mimeType": mimeType})
	req := httptest.NewRequest(http.MethodPost, "/api/extract", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a form upload with an explicit part content type,
// which CreateFormFile cannot set.
func multipartRequest(t *testing.T, path, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExtract_JSONBody(t *testing.T) {
	ext := &stubExtractor{grid: pdfconverter.Grid{{str("a"), nil}}}
	s := newTestServer(ext, nil, nil)

	doc := []byte("fake png bytes")
	rec := do(s, jsonExtractRequest(base64.StdEncoding.EncodeToString(doc), "image/png"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ext.lastMime != "image/png" || !bytes.Equal(ext.lastData, doc) {
		t.Errorf("extractor received wrong document: %q", ext.lastMime)
	}
	body := decodeBody(t, rec)
	data := body["data"].([]any)
	row := data[0].([]any)
	if row[0] != "a" || row[1] != nil {
		t.Errorf("unexpected grid payload: %v", data)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestExtract_MultipartBody(t *testing.T) {
	ext := &stubExtractor{grid: pdfconverter.Grid{}}
	s := newTestServer(ext, nil, nil)

	rec := do(s, multipartRequest(t, "/api/extract", "file", "doc.pdf", "application/pdf", []byte("%PDF")))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ext.lastMime != "application/pdf" {
		t.Errorf("mime = %q", ext.lastMime)
	}
}

func TestExtract_MissingBase64(t *testing.T) {
	ext := &stubExtractor{}
	s := newTestServer(ext, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(`{"mimeType":"image/png"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(s, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != msgMissingBase64 {
		t.Errorf("message = %q", got)
	}
	if ext.calls != 0 {
		t.Errorf("extractor must not run, got %d calls", ext.calls)
	}
}

func TestExtract_OversizedBase64RejectedBeforeDecode(t *testing.T) {
	ext := &stubExtractor{}
	s := newTestServer(ext, nil, nil)

	// ~6 MiB once decoded; the estimate gate fires before decoding.
	big := strings.Repeat("A", 8<<20)
	rec := do(s, jsonExtractRequest(big, "application/pdf"))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != msgTooLargeExtract {
		t.Errorf("message = %q", got)
	}
	if ext.calls != 0 {
		t.Errorf("extractor must not run, got %d calls", ext.calls)
	}
}

func TestExtract_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"bad type", pdfconverter.ErrBadFileType, http.StatusBadRequest, msgBadFileType},
		{"empty", pdfconverter.ErrEmptyFile, http.StatusBadRequest, msgEmptyFile},
		{"too large", pdfconverter.ErrFileTooLarge, http.StatusRequestEntityTooLarge, msgTooLargeExtract},
		{"rate limited", &pdfconverter.ErrHTTP{Status: 429, Body: "quota"}, http.StatusServiceUnavailable, msgBusy},
		{"bad model json", pdfconverter.ErrMalformedOutput, http.StatusInternalServerError, msgBadModelJSON},
		{"blocked", &pdfconverter.ErrModel{Provider: "gemini", Message: "response blocked: SAFETY"},
			http.StatusInternalServerError, "Extraction failed. Response was blocked or empty."},
		{"no content", &pdfconverter.ErrModel{Provider: "gemini", Message: "no content returned"},
			http.StatusInternalServerError, "Extraction failed. No content returned."},
		{"generic", errors.New("boom"), http.StatusInternalServerError, msgExtractGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&stubExtractor{err: tc.err}, nil, nil)
			rec := do(s, jsonExtractRequest(base64.StdEncoding.EncodeToString([]byte("x")), "application/pdf"))
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := decodeBody(t, rec)["error"]; got != tc.wantMsg {
				t.Errorf("message = %q, want %q", got, tc.wantMsg)
			}
		})
	}
}

func TestExport_ReturnsWorkbook(t *testing.T) {
	s := newTestServer(&stubExtractor{}, nil, nil)

	payload := `{"data":[["Name","Total"],["Widget",null]]}`
	req := httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := do(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "extracted-data.xlsx") {
		t.Errorf("content disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()
	v, _ := f.GetCellValue("Sheet1", "A1")
	if v != "Name" {
		t.Errorf("A1 = %q", v)
	}
}

func TestExport_BadBody(t *testing.T) {
	s := newTestServer(&stubExtractor{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader("not json"))
	rec := do(s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != msgBadExportBody {
		t.Errorf("message = %q", got)
	}
}

func TestGSheet_Success(t *testing.T) {
	ext := &stubExtractor{grid: pdfconverter.Grid{{str("a")}}}
	pub := &stubPublisher{url: "https://docs.google.com/spreadsheets/d/ss-1/copy"}
	var gotToken string
	s := New(Config{
		Extractor: ext,
		NewPublisher: func(refreshToken string) Publisher {
			gotToken = refreshToken
			return pub
		},
	})

	req := multipartRequest(t, "/api/gsheet", "pdf", "doc.pdf", "application/pdf", []byte("%PDF"))
	req.Header.Set("X-Google-Refresh-Token", "user-token")
	rec := do(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Error("expected success true")
	}
	if body["copyUrl"] != pub.url {
		t.Errorf("copyUrl = %v", body["copyUrl"])
	}
	if body["message"] != msgGSheetReady {
		t.Errorf("message = %v", body["message"])
	}
	if gotToken != "user-token" {
		t.Errorf("factory received token %q", gotToken)
	}
}

func TestGSheet_RejectsNonPDF(t *testing.T) {
	ext := &stubExtractor{}
	pub := &stubPublisher{}
	s := newTestServer(ext, pub, nil)

	rec := do(s, multipartRequest(t, "/api/gsheet", "file", "pic.png", "image/png", []byte("png")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != msgOnlyPDF {
		t.Errorf("message = %q", got)
	}
	if ext.calls != 0 || pub.calls != 0 {
		t.Error("pipeline must not run for rejected uploads")
	}
}

func TestGSheet_MissingFile(t *testing.T) {
	s := newTestServer(&stubExtractor{}, &stubPublisher{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/gsheet", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := do(s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != msgMissingPDF {
		t.Errorf("message = %q", got)
	}
}

func TestGSheet_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		pubErr     error
		wantStatus int
		wantMsg    string
	}{
		{"nothing to publish", pdfconverter.ErrNothingToPublish, http.StatusBadRequest, msgNoData},
		{"token expired", pdfconverter.ErrTokenExpired, http.StatusUnauthorized, tokenExpiredSentinel},
		{"rate limited", &pdfconverter.ErrHTTP{Status: 429, Body: "quota"}, http.StatusInternalServerError, msgBusy},
		{"blocked", &pdfconverter.ErrModel{Provider: "gemini", Message: "response blocked: SAFETY"},
			http.StatusInternalServerError, "Extraction failed. Response was blocked or empty."},
		{"no content", &pdfconverter.ErrModel{Provider: "gemini", Message: "no content returned"},
			http.StatusInternalServerError, "Extraction failed. No content returned from AI."},
		{"generic", errors.New("boom"), http.StatusInternalServerError, msgGSheetGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ext := &stubExtractor{grid: pdfconverter.Grid{{str("a")}}}
			pub := &stubPublisher{err: tc.pubErr}
			s := newTestServer(ext, pub, nil)

			rec := do(s, multipartRequest(t, "/api/gsheet", "pdf", "doc.pdf", "application/pdf", []byte("%PDF")))
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := decodeBody(t, rec)["error"]; got != tc.wantMsg {
				t.Errorf("message = %q, want %q", got, tc.wantMsg)
			}
		})
	}
}

func TestGSheet_ExtractionRateLimitMapsTo500(t *testing.T) {
	ext := &stubExtractor{err: &pdfconverter.ErrHTTP{Status: 429, Body: "quota"}}
	s := newTestServer(ext, &stubPublisher{}, nil)

	rec := do(s, multipartRequest(t, "/api/gsheet", "pdf", "doc.pdf", "application/pdf", []byte("%PDF")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != msgBusy {
		t.Errorf("message = %q", got)
	}
}

func TestGSheet_PublisherNotConfigured(t *testing.T) {
	s := newTestServer(&stubExtractor{}, nil, nil)
	rec := do(s, multipartRequest(t, "/api/gsheet", "pdf", "doc.pdf", "application/pdf", []byte("%PDF")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBlogs_List(t *testing.T) {
	store := &stubStore{posts: []content.Post{{ID: "1", Title: "Hello", Slug: "hello"}}}
	s := newTestServer(&stubExtractor{}, nil, store)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/blogs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected 1 post, got %d", len(data))
	}
}

func TestBlogs_NotFound(t *testing.T) {
	store := &stubStore{err: content.ErrNotFound}
	s := newTestServer(&stubExtractor{}, nil, store)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/blogs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBlogs_StoreNotConfigured(t *testing.T) {
	s := newTestServer(&stubExtractor{}, nil, nil)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/blogs", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != msgContentMissing {
		t.Errorf("message = %q", got)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(&stubExtractor{}, nil, nil)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["status"]; got != "ok" {
		t.Errorf("status field = %v", got)
	}
}
