package output

import (
	"errors"
	"time"

	"github.com/masmgr/amexamine/internal/aggregation"
	"github.com/masmgr/amexamine/internal/git"
)

var reportTime = time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

const (
	headA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	headB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func sampleDocument(path string, changes int, missing ...string) *aggregation.DocumentMetrics {
	doc := aggregation.NewDocumentMetrics(path)
	doc.Size = 100 * changes
	doc.ChunkCount = 1
	doc.ChangeCount = changes
	doc.OpCount = 2 * changes
	doc.Heads = []string{headA}
	doc.HeadsVerified = true
	doc.ActionCounts["set"] = changes
	doc.ActionCounts["makeMap"] = changes
	doc.ActorChangeCounts["0a0a0a0a"] = changes
	doc.FirstChangeAt = reportTime.Add(-time.Hour)
	doc.LastChangeAt = reportTime
	if len(missing) > 0 {
		doc.PendingCount = 1
		doc.MissingDeps = missing
	}
	return doc
}

func sampleSummaryReport() *SummaryReport {
	return &SummaryReport{
		GeneratedAt: reportTime,
		Documents: []*aggregation.DocumentMetrics{
			sampleDocument("docs/complete.automerge", 3),
			sampleDocument("docs/partial.automerge", 1, headB),
		},
		Failures: []DocumentFailure{
			{Path: "docs/broken.automerge", Err: errors.New("invalid magic bytes")},
		},
	}
}

func sampleHistoryReport() *HistoryReport {
	commit := func(sha, msg string, offset time.Duration) git.CommitInfo {
		return git.CommitInfo{
			SHA:     sha,
			When:    reportTime.Add(offset),
			Author:  git.AuthorInfo{Name: "Test", Email: "test@example.com"},
			Message: msg,
		}
	}
	latest := sampleDocument("notes.automerge", 4)
	return &HistoryReport{
		RepoPath:    "/repo",
		Branch:      "main",
		GeneratedAt: reportTime,
		Revisions: []aggregation.RevisionMetrics{
			{
				Commit:      commit("3333333333333333333333333333333333333333", "rename notes", 0),
				Path:        "notes.automerge",
				OldPath:     "old.automerge",
				Kind:        git.ChangeKindRenamed,
				Size:        400,
				Document:    latest,
				ChangeDelta: 3,
			},
			{
				Commit: commit("2222222222222222222222222222222222222222", "corrupt", -time.Hour),
				Path:   "old.automerge",
				Kind:   git.ChangeKindModified,
				Size:   2,
				Err:    errors.New("chunk at offset 0: unexpected end of data"),
			},
			{
				Commit:      commit("1111111111111111111111111111111111111111", "add notes", -2*time.Hour),
				Path:        "old.automerge",
				Kind:        git.ChangeKindAdded,
				Size:        100,
				Document:    sampleDocument("old.automerge", 1),
				ChangeDelta: 1,
			},
		},
		Histories: []*aggregation.DocumentHistory{
			func() *aggregation.DocumentHistory {
				h := aggregation.NewDocumentHistory("notes.automerge")
				h.RevisionCount = 3
				h.FailedCount = 1
				h.LastModifiedAt = reportTime
				h.Contributors["test@example.com"] = struct{}{}
				h.ContributorRevisionCount["test@example.com"] = 3
				h.Latest = latest
				return h
			}(),
		},
	}
}
