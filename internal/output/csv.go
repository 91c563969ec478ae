package output

import (
	"encoding/csv"
	"fmt"
	"strconv"
)

// CSVSummaryWriter writes document summary reports as CSV.
type CSVSummaryWriter struct{}

// Write outputs the summary report as CSV. Failed documents are listed with
// their error and empty metrics.
func (w *CSVSummaryWriter) Write(report *SummaryReport, options OutputOptions) (err error) {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(file, err) }()

	writer := csv.NewWriter(out)

	// Write header
	headers := []string{"Path", "Size", "Chunks", "Changes", "Ops", "Actors", "OwnershipRatio", "ActorEntropy", "BurstScore",
		"Heads", "HeadsVerified", "Pending", "MissingDeps", "FirstChange", "LastChange", "Error"}
	if err := writer.Write(headers); err != nil {
		return err
	}

	// Write data
	for _, doc := range limitTop(report.Documents, options.Top) {
		row := []string{
			doc.Path,
			strconv.Itoa(doc.Size),
			strconv.Itoa(doc.ChunkCount),
			strconv.Itoa(doc.ChangeCount),
			strconv.Itoa(doc.OpCount),
			strconv.Itoa(doc.ActorCount()),
			fmt.Sprintf("%.6f", doc.OwnershipRatio()),
			fmt.Sprintf("%.6f", doc.ActorEntropy()),
			fmt.Sprintf("%.6f", doc.BurstScore),
			strconv.Itoa(len(doc.Heads)),
			strconv.FormatBool(doc.HeadsVerified),
			strconv.Itoa(doc.PendingCount),
			strconv.Itoa(len(doc.MissingDeps)),
			formatRFC3339(doc.FirstChangeAt),
			formatRFC3339(doc.LastChangeAt),
			"",
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	for _, f := range report.Failures {
		row := make([]string, len(headers))
		row[0] = f.Path
		row[len(row)-1] = errorString(f.Err)
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// CSVHistoryWriter writes document history reports as CSV.
type CSVHistoryWriter struct{}

// Write outputs one CSV row per revision.
func (w *CSVHistoryWriter) Write(report *HistoryReport, options OutputOptions) (err error) {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(file, err) }()

	writer := csv.NewWriter(out)

	headers := []string{"Commit", "When", "Author", "Path", "OldPath", "Kind", "Size",
		"Changes", "ChangeDelta", "Ops", "Heads", "Error"}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, rev := range limitTop(report.Revisions, options.Top) {
		changes, delta, ops, heads := "", "", "", ""
		if rev.Document != nil {
			changes = strconv.Itoa(rev.Document.ChangeCount)
			delta = strconv.Itoa(rev.ChangeDelta)
			ops = strconv.Itoa(rev.Document.OpCount)
			heads = strconv.Itoa(len(rev.Document.Heads))
		}
		row := []string{
			rev.Commit.SHA,
			formatRFC3339(rev.Commit.When),
			rev.Commit.Author.Email,
			rev.Path,
			rev.OldPath,
			rev.Kind.String(),
			strconv.Itoa(rev.Size),
			changes,
			delta,
			ops,
			heads,
			errorString(rev.Err),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
