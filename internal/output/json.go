package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/masmgr/amexamine/internal/aggregation"
)

// JSONSummaryWriter writes document summary reports as JSON.
type JSONSummaryWriter struct{}

// JSONSummaryReport is the JSON output structure for a document summary.
type JSONSummaryReport struct {
	GeneratedAt    string            `json:"generatedAt"`
	TotalDocuments int               `json:"totalDocuments"`
	TotalFailures  int               `json:"totalFailures"`
	Documents      []JSONDocument    `json:"documents"`
	Failures       []JSONFailureItem `json:"failures"`
}

// JSONDocument holds the metrics for a document in JSON format.
type JSONDocument struct {
	Path           string         `json:"path"`
	Size           int            `json:"size"`
	Chunks         int            `json:"chunks"`
	Changes        int            `json:"changes"`
	Ops            int            `json:"ops"`
	Actors         int            `json:"actors"`
	OwnershipRatio float64        `json:"ownershipRatio"`
	ActorEntropy   float64        `json:"actorEntropy"`
	BurstScore     float64        `json:"burstScore"`
	Heads          []string       `json:"heads"`
	HeadsVerified  bool           `json:"headsVerified"`
	Pending        int            `json:"pending"`
	MissingDeps    []string       `json:"missingDeps"`
	Actions        map[string]int `json:"actions"`
	ActorChanges   map[string]int `json:"actorChanges"`
	FirstChange    string         `json:"firstChange,omitempty"`
	LastChange     string         `json:"lastChange,omitempty"`
}

// JSONFailureItem is a document or revision that failed to decode.
type JSONFailureItem struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Write outputs the summary report as JSON.
func (w *JSONSummaryWriter) Write(report *SummaryReport, options OutputOptions) (err error) {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(file, err) }()

	docs := limitTop(report.Documents, options.Top)

	jsonDocs := make([]JSONDocument, len(docs))
	for i, doc := range docs {
		jsonDocs[i] = toJSONDocument(doc)
	}

	failures := make([]JSONFailureItem, len(report.Failures))
	for i, f := range report.Failures {
		failures[i] = JSONFailureItem{Path: f.Path, Error: errorString(f.Err)}
	}

	jsonReport := JSONSummaryReport{
		GeneratedAt:    report.GeneratedAt.Format(time.RFC3339),
		TotalDocuments: len(report.Documents),
		TotalFailures:  len(report.Failures),
		Documents:      jsonDocs,
		Failures:       failures,
	}

	return writeJSON(out, jsonReport)
}

func toJSONDocument(doc *aggregation.DocumentMetrics) JSONDocument {
	return JSONDocument{
		Path:           doc.Path,
		Size:           doc.Size,
		Chunks:         doc.ChunkCount,
		Changes:        doc.ChangeCount,
		Ops:            doc.OpCount,
		Actors:         doc.ActorCount(),
		OwnershipRatio: doc.OwnershipRatio(),
		ActorEntropy:   doc.ActorEntropy(),
		BurstScore:     doc.BurstScore,
		Heads:          nonNil(doc.Heads),
		HeadsVerified:  doc.HeadsVerified,
		Pending:        doc.PendingCount,
		MissingDeps:    nonNil(doc.MissingDeps),
		Actions:        doc.ActionCounts,
		ActorChanges:   doc.ActorChangeCounts,
		FirstChange:    formatRFC3339(doc.FirstChangeAt),
		LastChange:     formatRFC3339(doc.LastChangeAt),
	}
}

// JSONHistoryWriter writes document history reports as JSON.
type JSONHistoryWriter struct{}

// JSONHistoryReport is the JSON output structure for a document history.
type JSONHistoryReport struct {
	RepoPath       string                `json:"repo"`
	Branch         string                `json:"branch,omitempty"`
	GeneratedAt    string                `json:"generatedAt"`
	TotalRevisions int                   `json:"totalRevisions"`
	TotalFailures  int                   `json:"totalFailures"`
	Revisions      []JSONRevision        `json:"revisions"`
	Documents      []JSONDocumentHistory `json:"documents"`
}

// JSONRevision holds one document revision in JSON format.
type JSONRevision struct {
	Commit      string        `json:"commit"`
	When        string        `json:"when"`
	Author      string        `json:"author"`
	Message     string        `json:"message"`
	Path        string        `json:"path"`
	OldPath     string        `json:"oldPath,omitempty"`
	Kind        string        `json:"kind"`
	Size        int           `json:"size"`
	ChangeDelta int           `json:"changeDelta"`
	Document    *JSONDocument `json:"document,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// JSONDocumentHistory holds the aggregate of one document across revisions.
type JSONDocumentHistory struct {
	Path           string `json:"path"`
	Revisions      int    `json:"revisions"`
	Failed         int    `json:"failed"`
	Deleted        bool   `json:"deleted"`
	Contributors   int    `json:"contributors"`
	LastModified   string `json:"lastModified"`
	LatestChanges  int    `json:"latestChanges"`
	LatestOps      int    `json:"latestOps"`
	LatestComplete bool   `json:"latestComplete"`
}

// Write outputs the history report as JSON.
func (w *JSONHistoryWriter) Write(report *HistoryReport, options OutputOptions) (err error) {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(file, err) }()

	revisions := limitTop(report.Revisions, options.Top)

	jsonRevisions := make([]JSONRevision, len(revisions))
	for i, rev := range revisions {
		item := JSONRevision{
			Commit:      rev.Commit.SHA,
			When:        formatRFC3339(rev.Commit.When),
			Author:      rev.Commit.Author.Email,
			Message:     rev.Commit.Message,
			Path:        rev.Path,
			OldPath:     rev.OldPath,
			Kind:        rev.Kind.String(),
			Size:        rev.Size,
			ChangeDelta: rev.ChangeDelta,
			Error:       errorString(rev.Err),
		}
		if rev.Document != nil {
			doc := toJSONDocument(rev.Document)
			item.Document = &doc
		}
		jsonRevisions[i] = item
	}

	documents := make([]JSONDocumentHistory, len(report.Histories))
	for i, h := range report.Histories {
		item := JSONDocumentHistory{
			Path:         h.Path,
			Revisions:    h.RevisionCount,
			Failed:       h.FailedCount,
			Deleted:      h.Deleted,
			Contributors: h.ContributorCount(),
			LastModified: formatRFC3339(h.LastModifiedAt),
		}
		if h.Latest != nil {
			item.LatestChanges = h.Latest.ChangeCount
			item.LatestOps = h.Latest.OpCount
			item.LatestComplete = h.Latest.Complete()
		}
		documents[i] = item
	}

	jsonReport := JSONHistoryReport{
		RepoPath:       report.RepoPath,
		Branch:         report.Branch,
		GeneratedAt:    report.GeneratedAt.Format(time.RFC3339),
		TotalRevisions: len(report.Revisions),
		TotalFailures:  report.FailedCount(),
		Revisions:      jsonRevisions,
		Documents:      documents,
	}

	return writeJSON(out, jsonReport)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(out io.Writer, data interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
