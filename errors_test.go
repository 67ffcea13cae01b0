package pdfconverter

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRateLimited(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"http 429", &ErrHTTP{Status: 429, Body: "slow down"}, true},
		{"wrapped http 429", fmt.Errorf("call failed: %w", &ErrHTTP{Status: 429}), true},
		{"http 500 quota body", &ErrHTTP{Status: 500, Body: `{"status":"RESOURCE_EXHAUSTED"}`}, true},
		{"message 429", errors.New("googleapi: Error 429: quota exceeded"), true},
		{"message too many requests", errors.New("upstream said Too Many Requests"), true},
		{"http 500 plain", &ErrHTTP{Status: 500, Body: "internal"}, false},
		{"unrelated", errors.New("connection refused"), false},
		{"model error", &ErrModel{Provider: "gemini", Message: "response blocked"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRateLimited(tc.err); got != tc.want {
				t.Errorf("IsRateLimited(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsTokenExpired(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrTokenExpired, true},
		{"wrapped sentinel", fmt.Errorf("publish: %w", ErrTokenExpired), true},
		{"http 401", &ErrHTTP{Status: 401, Body: "unauthorized"}, true},
		{"invalid_grant", errors.New(`token exchange failed: {"error":"invalid_grant"}`), true},
		{"invalid_token", errors.New("invalid_token"), true},
		{"expired message", errors.New("Token has been expired or revoked."), true},
		{"http 403", &ErrHTTP{Status: 403, Body: "forbidden"}, false},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTokenExpired(tc.err); got != tc.want {
				t.Errorf("IsTokenExpired(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestErrHTTP_Error(t *testing.T) {
	err := &ErrHTTP{Status: 404, Body: "not found"}
	if got := err.Error(); got != "http 404: not found" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestErrModel_Error(t *testing.T) {
	err := &ErrModel{Provider: "gemini", Message: "no content returned"}
	if got := err.Error(); got != "gemini: no content returned" {
		t.Errorf("unexpected message: %q", got)
	}
}
