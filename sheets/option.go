package sheets

import (
	"log/slog"
	"net/http"
)

// Option configures a Publisher.
type Option func(*Publisher)

// WithAccessToken seeds a cached access token, skipping the initial refresh
// exchange until the token is rejected.
func WithAccessToken(token string) Option {
	return func(p *Publisher) { p.accessToken = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(p *Publisher) { p.httpClient = h }
}

// WithSheetsBaseURL overrides the Sheets API base URL. Used by tests.
func WithSheetsBaseURL(u string) Option {
	return func(p *Publisher) { p.sheetsBaseURL = u }
}

// WithDriveBaseURL overrides the Drive API base URL. Used by tests.
func WithDriveBaseURL(u string) Option {
	return func(p *Publisher) { p.driveBaseURL = u }
}

// WithTokenURL overrides the OAuth token endpoint. Used by tests.
func WithTokenURL(u string) Option {
	return func(p *Publisher) { p.tokenURL = u }
}

// WithLogger sets a structured logger. If not set, no output is emitted.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}
