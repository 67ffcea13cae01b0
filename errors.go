package pdfconverter

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrHTTP is a non-2xx response from an upstream API (Gemini, Sheets, Drive).
type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ErrModel reports a model-side failure that is not an HTTP transport error,
// such as a blocked or empty response.
type ErrModel struct {
	Provider string
	Message  string
}

func (e *ErrModel) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Upload rejection reasons, detected before any network call.
var (
	ErrEmptyFile    = errors.New("uploaded file is empty")
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
	ErrBadFileType  = errors.New("unsupported file type")
	ErrNotPDF       = errors.New("only PDF files are supported")
)

// ErrMalformedOutput means the model returned text that is not valid JSON.
// This is a content problem, distinct from transport failures: the document
// was processed but the response contract was not honored.
var ErrMalformedOutput = errors.New("model output is not valid JSON")

// ErrNothingToPublish means the grid had no rows to write to a cloud sheet.
var ErrNothingToPublish = errors.New("no data extracted to publish")

// ErrTokenExpired means the Google credential is invalid or expired and a
// refresh did not recover it. Callers surface this as a re-authentication
// prompt rather than a generic failure.
var ErrTokenExpired = errors.New("google authorization expired")

// rateLimitSignatures are message fragments that mark an upstream response
// as a rate-limit condition even when the HTTP status is unavailable.
var rateLimitSignatures = []string{"429", "Too Many Requests", "RESOURCE_EXHAUSTED"}

// IsRateLimited reports whether err is a rate-limit condition: an ErrHTTP
// with status 429, or any error whose text carries a known quota signature.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var he *ErrHTTP
	if errors.As(err, &he) && he.Status == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	for _, sig := range rateLimitSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// tokenSignatures are message fragments that mark a Google API failure as a
// credential-expiry condition.
var tokenSignatures = []string{"invalid_grant", "invalid_token", "Token has been expired"}

// IsTokenExpired reports whether err carries a credential-expiry signature:
// ErrTokenExpired itself, an ErrHTTP with status 401, or any error whose
// text mentions an invalid or expired grant/token.
func IsTokenExpired(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	var he *ErrHTTP
	if errors.As(err, &he) && he.Status == http.StatusUnauthorized {
		return true
	}
	msg := err.Error()
	for _, sig := range tokenSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
