package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// CISummaryWriter writes document summary reports as NDJSON (one JSON object per line) for CI pipelines.
type CISummaryWriter struct{}

// CISummary is the first line of CI output, containing aggregate statistics.
type CISummary struct {
	Type            string `json:"type"`
	TotalDocuments  int    `json:"totalDocuments"`
	FailedCount     int    `json:"failedCount"`
	IncompleteCount int    `json:"incompleteCount"`
	TotalChanges    int    `json:"totalChanges"`
	TotalOps        int    `json:"totalOps"`
}

// CIDocumentEntry represents a single document entry in CI output.
type CIDocumentEntry struct {
	Type    string `json:"type"`
	Path    string `json:"path"`
	Status  string `json:"status"`
	Changes int    `json:"changes"`
	Ops     int    `json:"ops"`
	Heads   int    `json:"heads"`
	Error   string `json:"error,omitempty"`
}

// Write outputs the summary report as NDJSON.
func (w *CISummaryWriter) Write(report *SummaryReport, options OutputOptions) (err error) {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(file, err) }()

	docs := limitTop(report.Documents, options.Top)

	summary := CISummary{
		Type:           "summary",
		TotalDocuments: len(docs),
		FailedCount:    len(report.Failures),
	}
	for _, doc := range docs {
		if !doc.Complete() {
			summary.IncompleteCount++
		}
		summary.TotalChanges += doc.ChangeCount
		summary.TotalOps += doc.OpCount
	}
	if err := writeNDJSONLine(out, summary); err != nil {
		return err
	}

	for _, doc := range docs {
		entry := CIDocumentEntry{
			Type:    "document",
			Path:    doc.Path,
			Status:  documentStatus(doc),
			Changes: doc.ChangeCount,
			Ops:     doc.OpCount,
			Heads:   len(doc.Heads),
		}
		if err := writeNDJSONLine(out, entry); err != nil {
			return err
		}
	}
	for _, f := range report.Failures {
		entry := CIDocumentEntry{
			Type:   "document",
			Path:   f.Path,
			Status: "error",
			Error:  errorString(f.Err),
		}
		if err := writeNDJSONLine(out, entry); err != nil {
			return err
		}
	}

	return nil
}

// CIHistoryWriter writes document history reports as NDJSON for CI pipelines.
type CIHistoryWriter struct{}

// CIHistorySummary is the first line of CI history output.
type CIHistorySummary struct {
	Type           string `json:"type"`
	TotalRevisions int    `json:"totalRevisions"`
	FailedCount    int    `json:"failedCount"`
	DocumentCount  int    `json:"documentCount"`
}

// CIRevisionEntry represents a single revision in CI output.
type CIRevisionEntry struct {
	Type        string `json:"type"`
	Commit      string `json:"commit"`
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	Changes     int    `json:"changes"`
	ChangeDelta int    `json:"changeDelta"`
	Error       string `json:"error,omitempty"`
}

// Write outputs the history report as NDJSON.
func (w *CIHistoryWriter) Write(report *HistoryReport, options OutputOptions) (err error) {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(file, err) }()

	revisions := limitTop(report.Revisions, options.Top)

	summary := CIHistorySummary{
		Type:           "summary",
		TotalRevisions: len(revisions),
		FailedCount:    report.FailedCount(),
		DocumentCount:  len(report.Histories),
	}
	if err := writeNDJSONLine(out, summary); err != nil {
		return err
	}

	for _, rev := range revisions {
		entry := CIRevisionEntry{
			Type:        "revision",
			Commit:      rev.Commit.SHA,
			Path:        rev.Path,
			Kind:        rev.Kind.String(),
			ChangeDelta: rev.ChangeDelta,
			Error:       errorString(rev.Err),
		}
		if rev.Document != nil {
			entry.Changes = rev.Document.ChangeCount
		}
		if err := writeNDJSONLine(out, entry); err != nil {
			return err
		}
	}

	return nil
}

func writeNDJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal NDJSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
