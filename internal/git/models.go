package git

import (
	"strings"
	"time"
)

// CommitInfo represents minimal information about a Git commit.
type CommitInfo struct {
	SHA     string
	When    time.Time
	Author  AuthorInfo
	Message string
}

// AuthorInfo represents commit author information.
type AuthorInfo struct {
	Name  string
	Email string
}

// ContributorKey returns a normalized identifier for grouping contributors.
func (a AuthorInfo) ContributorKey() string {
	return strings.ToLower(a.Email)
}

// ChangeKind represents the type of change.
type ChangeKind int

const (
	ChangeKindAdded ChangeKind = iota
	ChangeKindModified
	ChangeKindDeleted
	ChangeKindRenamed
)

// String returns a string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeKindAdded:
		return "added"
	case ChangeKindModified:
		return "modified"
	case ChangeKindDeleted:
		return "deleted"
	case ChangeKindRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// DocumentRevision is one version of a document file, as written by a commit.
type DocumentRevision struct {
	Commit  CommitInfo
	Path    string
	OldPath string // For renames
	Kind    ChangeKind
	// Data is the blob at Path after the commit; nil for deletions.
	Data []byte
}

// ReadOptions configures the history reader.
type ReadOptions struct {
	RepoPath     string
	Branch       string
	Include      []string // Glob patterns to include
	Exclude      []string // Glob patterns to exclude
	MaxRevisions int      // 0 means unlimited
}
