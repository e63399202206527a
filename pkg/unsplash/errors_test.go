package unsplash

import (
	"errors"
	"fmt"
	"testing"
)

func TestRequestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *RequestError
		expected string
	}{
		{
			name:     "with status text",
			err:      &RequestError{StatusCode: 500, Status: "500 Internal Server Error"},
			expected: "unsplash request failed with status 500: 500 Internal Server Error",
		},
		{
			name:     "status code only",
			err:      &RequestError{StatusCode: 403},
			expected: "unsplash request failed with status 403",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &NetworkError{Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
	if err.Error() != "unsplash network error: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ""},
		{"config missing", ErrConfigMissing, ErrorClassConfigMissing},
		{"request failed", &RequestError{StatusCode: 500}, ErrorClassRequest},
		{"wrapped request failed", fmt.Errorf("run: %w", &RequestError{StatusCode: 404}), ErrorClassRequest},
		{"decode failed", fmt.Errorf("%w: unexpected EOF", ErrDecodeFailed), ErrorClassDecode},
		{"network", &NetworkError{Err: errors.New("dial tcp")}, ErrorClassNetwork},
		{"unknown", errors.New("boom"), ErrorClassNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.err); got != tt.expected {
				t.Errorf("ClassOf(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestPhoto_Description(t *testing.T) {
	empty := ""
	text := "sunset"

	tests := []struct {
		name     string
		alt      *string
		wantText string
		wantOK   bool
	}{
		{"absent", nil, "", false},
		{"empty", &empty, "", false},
		{"present", &text, "sunset", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Photo{AltDescription: tt.alt}
			got, ok := p.Description()
			if got != tt.wantText || ok != tt.wantOK {
				t.Errorf("Description() = (%q, %v), want (%q, %v)", got, ok, tt.wantText, tt.wantOK)
			}
		})
	}
}
