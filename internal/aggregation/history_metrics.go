package aggregation

import (
	"sort"
	"strings"
	"time"

	"github.com/masmgr/amexamine/internal/git"
)

// RevisionMetrics holds the decoded statistics of one document revision.
type RevisionMetrics struct {
	Commit  git.CommitInfo
	Path    string
	OldPath string
	Kind    git.ChangeKind
	Size    int
	// Document is nil for deletions and for blobs that failed to decode.
	Document *DocumentMetrics
	Err      error
	// ChangeDelta is the change count difference to the previous decoded
	// revision of the same document. It is negative when history was rewritten.
	ChangeDelta int
}

// Failed reports whether the revision's blob could not be decoded.
func (r *RevisionMetrics) Failed() bool {
	return r.Err != nil
}

// DocumentHistory holds aggregated metrics for a single document across revisions.
type DocumentHistory struct {
	Path                     string
	RevisionCount            int
	FailedCount              int
	Deleted                  bool
	LastModifiedAt           time.Time
	Contributors             map[string]struct{}
	ContributorRevisionCount map[string]int
	// Latest is the newest successfully decoded revision.
	Latest *DocumentMetrics
}

// NewDocumentHistory creates a new DocumentHistory instance.
func NewDocumentHistory(path string) *DocumentHistory {
	return &DocumentHistory{
		Path:                     path,
		Contributors:             make(map[string]struct{}),
		ContributorRevisionCount: make(map[string]int),
	}
}

// ContributorCount returns number of unique commit authors.
func (h *DocumentHistory) ContributorCount() int {
	return len(h.Contributors)
}

// HistoryAggregator decodes document revisions and aggregates them per path.
type HistoryAggregator struct {
	histories map[string]*DocumentHistory
}

// NewHistoryAggregator creates a new aggregator.
func NewHistoryAggregator() *HistoryAggregator {
	return &HistoryAggregator{
		histories: make(map[string]*DocumentHistory),
	}
}

// Process decodes every revision and aggregates metrics. Revisions are
// expected newest first, as the history reader returns them; the result
// keeps that order.
func (a *HistoryAggregator) Process(revisions []git.DocumentRevision) []RevisionMetrics {
	results := make([]RevisionMetrics, len(revisions))
	for i := len(revisions) - 1; i >= 0; i-- {
		results[i] = a.processRevision(revisions[i])
	}
	return results
}

// processRevision processes a single revision; older revisions must come first.
func (a *HistoryAggregator) processRevision(rev git.DocumentRevision) RevisionMetrics {
	result := RevisionMetrics{
		Commit:  rev.Commit,
		Path:    rev.Path,
		OldPath: rev.OldPath,
		Kind:    rev.Kind,
		Size:    len(rev.Data),
	}

	// Handle renames: if there was an old path, merge its history
	if rev.Kind == git.ChangeKindRenamed && rev.OldPath != "" {
		a.rename(rev.OldPath, rev.Path)
	}

	history, exists := a.histories[rev.Path]
	if !exists {
		history = NewDocumentHistory(rev.Path)
		a.histories[rev.Path] = history
	}

	history.RevisionCount++
	if history.LastModifiedAt.IsZero() || rev.Commit.When.After(history.LastModifiedAt) {
		history.LastModifiedAt = rev.Commit.When
	}
	contributorKey := rev.Commit.Author.ContributorKey()
	history.Contributors[contributorKey] = struct{}{}
	history.ContributorRevisionCount[contributorKey]++

	if rev.Kind == git.ChangeKindDeleted {
		history.Deleted = true
		return result
	}
	history.Deleted = false

	doc, err := LoadDocumentMetrics(rev.Path, rev.Data)
	if err != nil {
		history.FailedCount++
		result.Err = err
		return result
	}
	result.Document = doc
	result.ChangeDelta = doc.ChangeCount
	if history.Latest != nil {
		result.ChangeDelta -= history.Latest.ChangeCount
	}
	history.Latest = doc

	return result
}

// rename moves the history of oldPath under newPath, merging if both exist.
func (a *HistoryAggregator) rename(oldPath, newPath string) {
	oldHistory, exists := a.histories[oldPath]
	if !exists {
		return
	}
	if _, newExists := a.histories[newPath]; !newExists {
		a.histories[newPath] = NewDocumentHistory(newPath)
	}
	mergeHistories(a.histories[newPath], oldHistory)
	delete(a.histories, oldPath)
}

// mergeHistories merges source history into target.
func mergeHistories(target, source *DocumentHistory) {
	target.RevisionCount += source.RevisionCount
	target.FailedCount += source.FailedCount

	if source.LastModifiedAt.After(target.LastModifiedAt) {
		target.LastModifiedAt = source.LastModifiedAt
	}
	if source.Latest != nil {
		target.Latest = source.Latest
	}

	for k := range source.Contributors {
		target.Contributors[k] = struct{}{}
	}
	for k, v := range source.ContributorRevisionCount {
		target.ContributorRevisionCount[k] += v
	}
}

// Histories returns the aggregated histories sorted by path.
func (a *HistoryAggregator) Histories() []*DocumentHistory {
	histories := make([]*DocumentHistory, 0, len(a.histories))
	for _, h := range a.histories {
		histories = append(histories, h)
	}
	sort.Slice(histories, func(i, j int) bool {
		return strings.Compare(histories[i].Path, histories[j].Path) < 0
	})
	return histories
}
