package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/flavyr/internal/pipeline"
)

// MockWriter records uploaded results instead of calling Google.
type MockWriter struct {
	WriteFunc func(ctx context.Context, res *pipeline.Result) (string, error)
	Results   []*pipeline.Result
	mu        sync.Mutex
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write records res and delegates to WriteFunc when set.
func (m *MockWriter) Write(ctx context.Context, res *pipeline.Result) (string, error) {
	m.mu.Lock()
	m.Results = append(m.Results, res)
	fn := m.WriteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, res)
	}
	return "mock-spreadsheet", nil
}

// Calls returns how many results were written.
func (m *MockWriter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Results)
}
