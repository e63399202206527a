package render

import (
	"context"
	"sync"
)

// MemorySurface is an in-process ReadWriter. It is safe for concurrent use.
type MemorySurface struct {
	mu       sync.RWMutex
	elements []Element
	loader   bool
}

// NewMemorySurface creates an empty surface with the loader hidden.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{}
}

// AppendElement implements Surface.
func (s *MemorySurface) AppendElement(_ context.Context, e Element) error {
	s.mu.Lock()
	s.elements = append(s.elements, e)
	s.mu.Unlock()

	ElementsAppended.WithLabelValues(string(e.Kind)).Inc()
	return nil
}

// SetLoaderVisible implements Surface.
func (s *MemorySurface) SetLoaderVisible(_ context.Context, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loader = visible
	return nil
}

// Elements implements Reader.
func (s *MemorySurface) Elements(_ context.Context, from int) ([]Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if from < 0 {
		from = 0
	}
	if from >= len(s.elements) {
		return []Element{}, nil
	}
	out := make([]Element, len(s.elements)-from)
	copy(out, s.elements[from:])
	return out, nil
}

// Len implements Reader.
func (s *MemorySurface) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elements), nil
}

// LoaderVisible implements Reader.
func (s *MemorySurface) LoaderVisible(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loader, nil
}
