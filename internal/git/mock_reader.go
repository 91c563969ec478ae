package git

import "context"

// MockRevisionReader is a test double for HistoryReader.
// It allows tests to provide predefined revisions without needing a real Git repository.
type MockRevisionReader struct {
	Revisions []DocumentRevision
	Error     error
}

// NewMockRevisionReader creates a new MockRevisionReader with the given data.
func NewMockRevisionReader(revisions []DocumentRevision, err error) *MockRevisionReader {
	return &MockRevisionReader{
		Revisions: revisions,
		Error:     err,
	}
}

// ReadRevisions returns the predefined revisions or error.
func (m *MockRevisionReader) ReadRevisions(_ context.Context) ([]DocumentRevision, error) {
	return m.Revisions, m.Error
}

// Compile-time interface conformance check.
var _ RevisionReader = (*MockRevisionReader)(nil)
