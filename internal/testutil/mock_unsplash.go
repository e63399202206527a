// Package testutil provides testing utilities for the gallery.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// RandomPath is the endpoint path served by MockUnsplash.
const RandomPath = "/photos/random/"

// MockResponse defines the behavior for one mock API response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockUnsplash is a configurable mock of the random photos endpoint.
type MockUnsplash struct {
	server  *httptest.Server
	mu      sync.RWMutex
	handler func(w http.ResponseWriter, r *http.Request)

	requestCount int
	lastQuery    url.Values
	lastHeader   http.Header
	release      chan struct{}
}

// NewMockUnsplash starts a mock server answering with DefaultPhotosBody.
func NewMockUnsplash() *MockUnsplash {
	mock := &MockUnsplash{}
	mock.SetResponse(NewPhotosResponse(DefaultPhotosBody))

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.lastQuery = r.URL.Query()
		mock.lastHeader = r.Header.Clone()
		handler := mock.handler
		release := mock.release
		mock.mu.Unlock()

		if r.URL.Path != RandomPath {
			http.NotFound(w, r)
			return
		}

		if release != nil {
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}

		handler(w, r)
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockUnsplash) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUnsplash) Close() {
	m.Unblock()
	m.server.Close()
}

// SetHandler replaces the endpoint handler.
func (m *MockUnsplash) SetHandler(handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// SetResponse configures a fixed response.
func (m *MockUnsplash) SetResponse(resp MockResponse) {
	m.SetHandler(func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// Block holds every subsequent request until Unblock is called.
func (m *MockUnsplash) Block() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.release == nil {
		m.release = make(chan struct{})
	}
}

// Unblock releases held requests.
func (m *MockUnsplash) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.release != nil {
		close(m.release)
		m.release = nil
	}
}

// RequestCount returns the number of requests received.
func (m *MockUnsplash) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// LastQuery returns the query parameters of the latest request.
func (m *MockUnsplash) LastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery
}

// LastHeader returns the headers of the latest request.
func (m *MockUnsplash) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// DefaultPhotosBody is a two-photo page, the second without description.
const DefaultPhotosBody = `[
	{"id": "p1", "urls": {"regular": "https://images.example/p1.jpg"}, "links": {"html": "https://unsplash.example/photos/p1"}, "alt_description": "waves on a beach"},
	{"id": "p2", "urls": {"regular": "https://images.example/p2.jpg"}, "links": {"html": "https://unsplash.example/photos/p2"}, "alt_description": null}
]`

// PhotoFixture is one record for PhotosBody.
type PhotoFixture struct {
	ID          string
	DisplayURL  string
	LinkURL     string
	Description *string
}

// PhotosBody encodes fixtures the way the API does.
func PhotosBody(photos ...PhotoFixture) string {
	type record struct {
		ID    string            `json:"id"`
		URLs  map[string]string `json:"urls"`
		Links map[string]string `json:"links"`
		Alt   *string           `json:"alt_description"`
	}

	records := make([]record, 0, len(photos))
	for _, p := range photos {
		records = append(records, record{
			ID:    p.ID,
			URLs:  map[string]string{"regular": p.DisplayURL},
			Links: map[string]string{"html": p.LinkURL},
			Alt:   p.Description,
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		panic(fmt.Sprintf("marshal photo fixtures: %v", err))
	}
	return string(data)
}

// NumberedPhotos returns n fixtures with predictable URLs.
func NumberedPhotos(n int) []PhotoFixture {
	photos := make([]PhotoFixture, 0, n)
	for i := 1; i <= n; i++ {
		desc := fmt.Sprintf("photo %d", i)
		photos = append(photos, PhotoFixture{
			ID:          fmt.Sprintf("p%d", i),
			DisplayURL:  fmt.Sprintf("https://images.example/p%d.jpg", i),
			LinkURL:     fmt.Sprintf("https://unsplash.example/photos/p%d", i),
			Description: &desc,
		})
	}
	return photos
}

// NewPhotosResponse creates a 200 OK JSON response.
func NewPhotosResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type":          "application/json",
			"X-Ratelimit-Limit":     "50",
			"X-Ratelimit-Remaining": "49",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"errors": ["Internal server error"]}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewUnauthorizedResponse creates the 401 the API returns without a valid key.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"errors": ["OAuth error: The access token is invalid"]}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewMalformedResponse creates a 200 response whose body is not a photo array.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"urls": "not an array"`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
