package unsplash

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/infinite-gallery/internal/testutil"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := DefaultConfig("test-key")
	cfg.BaseURL = baseURL

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			modify:      func(*Config) {},
			expectError: false,
		},
		{
			name:        "missing access key is not fatal",
			modify:      func(c *Config) { c.AccessKey = "" },
			expectError: false,
		},
		{
			name:        "empty base url",
			modify:      func(c *Config) { c.BaseURL = "" },
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name:        "relative base url",
			modify:      func(c *Config) { c.BaseURL = "api.unsplash.com" },
			expectError: true,
			errorMsg:    `invalid base url "api.unsplash.com"`,
		},
		{
			name:        "count zero",
			modify:      func(c *Config) { c.Count = 0 },
			expectError: true,
			errorMsg:    "count must be between 1 and 30 (got 0)",
		},
		{
			name:        "count above maximum",
			modify:      func(c *Config) { c.Count = 31 },
			expectError: true,
			errorMsg:    "count must be between 1 and 30 (got 31)",
		},
		{
			name:        "blank query",
			modify:      func(c *Config) { c.Query = "  " },
			expectError: true,
			errorMsg:    "query is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("test-key")
			tt.modify(&cfg)

			client, err := New(cfg)
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("key")

	if cfg.BaseURL != "https://api.unsplash.com" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "https://api.unsplash.com")
	}
	if cfg.Count != 10 {
		t.Errorf("Count = %d, want 10", cfg.Count)
	}
	if cfg.Query != "beach" {
		t.Errorf("Query = %q, want %q", cfg.Query, "beach")
	}
	if cfg.AccessKey != "key" {
		t.Errorf("AccessKey = %q, want %q", cfg.AccessKey, "key")
	}
}

func TestClient_Endpoint(t *testing.T) {
	cfg := DefaultConfig("abc")
	cfg.BaseURL = "https://api.unsplash.com/"

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := "https://api.unsplash.com/photos/random/?client_id=abc&count=10&query=beach"
	if got := client.Endpoint(); got != want {
		t.Errorf("Endpoint() = %q, want %q", got, want)
	}
}

func TestRandomPhotos_Success(t *testing.T) {
	mock := testutil.NewMockUnsplash()
	defer mock.Close()

	client := newTestClient(t, mock.URL())

	photos, err := client.RandomPhotos(context.Background())
	if err != nil {
		t.Fatalf("RandomPhotos() error = %v", err)
	}

	if len(photos) != 2 {
		t.Fatalf("len(photos) = %d, want 2", len(photos))
	}

	if photos[0].DisplayURL() != "https://images.example/p1.jpg" {
		t.Errorf("photos[0].DisplayURL() = %q", photos[0].DisplayURL())
	}
	if photos[0].LinkURL() != "https://unsplash.example/photos/p1" {
		t.Errorf("photos[0].LinkURL() = %q", photos[0].LinkURL())
	}
	if desc, ok := photos[0].Description(); !ok || desc != "waves on a beach" {
		t.Errorf("photos[0].Description() = %q, %v", desc, ok)
	}
	if _, ok := photos[1].Description(); ok {
		t.Error("photos[1] should have no description")
	}
}

func TestRandomPhotos_RequestParameters(t *testing.T) {
	mock := testutil.NewMockUnsplash()
	defer mock.Close()

	client := newTestClient(t, mock.URL())
	if _, err := client.RandomPhotos(context.Background()); err != nil {
		t.Fatalf("RandomPhotos() error = %v", err)
	}

	query := mock.LastQuery()
	expected := map[string]string{
		"client_id": "test-key",
		"count":     "10",
		"query":     "beach",
	}
	for key, want := range expected {
		if got := query.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}

	header := mock.LastHeader()
	if header.Get("Accept-Version") != "v1" {
		t.Errorf("Accept-Version = %q, want v1", header.Get("Accept-Version"))
	}
	if header.Get("User-Agent") != "infinite-gallery/0.1.0" {
		t.Errorf("User-Agent = %q", header.Get("User-Agent"))
	}
}

func TestRandomPhotos_MissingKeyStillRequests(t *testing.T) {
	mock := testutil.NewMockUnsplash()
	defer mock.Close()
	mock.SetResponse(testutil.NewUnauthorizedResponse())

	cfg := DefaultConfig("")
	cfg.BaseURL = mock.URL()
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.RandomPhotos(context.Background())

	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount() = %d, want 1", mock.RequestCount())
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected *RequestError, got %T: %v", err, err)
	}
	if reqErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", reqErr.StatusCode)
	}
}

func TestRandomPhotos_Errors(t *testing.T) {
	tests := []struct {
		name          string
		response      testutil.MockResponse
		expectedClass ErrorClass
	}{
		{
			name:          "server error",
			response:      testutil.NewServerErrorResponse(),
			expectedClass: ErrorClassRequest,
		},
		{
			name:          "unauthorized",
			response:      testutil.NewUnauthorizedResponse(),
			expectedClass: ErrorClassRequest,
		},
		{
			name:          "malformed body",
			response:      testutil.NewMalformedResponse(),
			expectedClass: ErrorClassDecode,
		},
		{
			name:          "object instead of array",
			response:      testutil.NewPhotosResponse(`{"id": "p1"}`),
			expectedClass: ErrorClassDecode,
		},
		{
			name:          "null body",
			response:      testutil.NewPhotosResponse(`null`),
			expectedClass: ErrorClassDecode,
		},
		{
			name:          "null record",
			response:      testutil.NewPhotosResponse(`[null]`),
			expectedClass: ErrorClassDecode,
		},
		{
			name:          "empty record",
			response:      testutil.NewPhotosResponse(`[{}]`),
			expectedClass: ErrorClassDecode,
		},
		{
			name:          "record without links",
			response:      testutil.NewPhotosResponse(`[{"id": "p1", "urls": {"regular": "u1"}}]`),
			expectedClass: ErrorClassDecode,
		},
		{
			name:          "record with null urls",
			response:      testutil.NewPhotosResponse(`[{"id": "p1", "urls": null, "links": {"html": "l1"}}]`),
			expectedClass: ErrorClassDecode,
		},
		{
			name:          "second record invalid",
			response:      testutil.NewPhotosResponse(`[{"id": "p1", "urls": {"regular": "u1"}, "links": {"html": "l1"}}, {}]`),
			expectedClass: ErrorClassDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockUnsplash()
			defer mock.Close()
			mock.SetResponse(tt.response)

			client := newTestClient(t, mock.URL())

			photos, err := client.RandomPhotos(context.Background())
			if err == nil {
				t.Fatal("Expected error but got nil")
			}
			if photos != nil {
				t.Errorf("photos = %v, want nil", photos)
			}
			if class := ClassOf(err); class != tt.expectedClass {
				t.Errorf("ClassOf(%v) = %q, want %q", err, class, tt.expectedClass)
			}
		})
	}
}

func TestRandomPhotos_NetworkError(t *testing.T) {
	mock := testutil.NewMockUnsplash()
	baseURL := mock.URL()
	mock.Close()

	client := newTestClient(t, baseURL)

	_, err := client.RandomPhotos(context.Background())

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected *NetworkError, got %T: %v", err, err)
	}
	if ClassOf(err) != ErrorClassNetwork {
		t.Errorf("ClassOf() = %q, want %q", ClassOf(err), ErrorClassNetwork)
	}
}

func TestRandomPhotos_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockUnsplash()
	defer mock.Close()
	mock.Block()

	client := newTestClient(t, mock.URL())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.RandomPhotos(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded in chain, got %v", err)
	}
	if ClassOf(err) != ErrorClassNetwork {
		t.Errorf("ClassOf() = %q, want %q", ClassOf(err), ErrorClassNetwork)
	}
}

func TestRandomPhotos_EmptyArray(t *testing.T) {
	mock := testutil.NewMockUnsplash()
	defer mock.Close()
	mock.SetResponse(testutil.NewPhotosResponse(`[]`))

	client := newTestClient(t, mock.URL())

	photos, err := client.RandomPhotos(context.Background())
	if err != nil {
		t.Fatalf("RandomPhotos() error = %v", err)
	}
	if len(photos) != 0 {
		t.Errorf("len(photos) = %d, want 0", len(photos))
	}
}
