package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/rd-classifier/internal/model"
)

// MockWriter is a ReportWriter that records what it was given.
type MockWriter struct {
	WriteFunc  func(ctx context.Context, result *model.Result) error
	LastResult *model.Result
	WriteCalls []WriteCall
	mu         sync.Mutex
}

// WriteCall represents a single call to Write.
type WriteCall struct {
	Error  error
	Result *model.Result
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write records the call and returns WriteFunc's error, if set.
func (m *MockWriter) Write(ctx context.Context, result *model.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastResult = result
	var err error
	if m.WriteFunc != nil {
		err = m.WriteFunc(ctx, result)
	}
	m.WriteCalls = append(m.WriteCalls, WriteCall{Result: result, Error: err})
	return err
}

// GetWriteCalls returns a copy of all write calls.
func (m *MockWriter) GetWriteCalls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError makes every later Write return err.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(context.Context, *model.Result) error {
		return err
	}
}
