package git

import "context"

// RevisionReader defines the interface for reading document revisions from history.
// This abstraction allows for easier testing and potential alternative implementations.
type RevisionReader interface {
	// ReadRevisions walks the history and returns the revisions of matching documents, newest first.
	ReadRevisions(ctx context.Context) ([]DocumentRevision, error)
}

// Compile-time interface conformance check.
var _ RevisionReader = (*HistoryReader)(nil)
