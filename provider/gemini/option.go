package gemini

import (
	"log/slog"
	"net/http"
)

// Option configures a Client.
type Option func(*Client)

// WithTemperature sets the sampling temperature (default 0.1).
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

// WithTopP sets nucleus sampling top-p (default 0.9).
func WithTopP(p float64) Option {
	return func(c *Client) { c.topP = p }
}

// WithHTTPClient replaces the underlying HTTP client (default: 2 minute
// timeout, which also bounds the worst-case model latency per attempt).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLogger sets a structured logger. If not set, no output is emitted.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}
