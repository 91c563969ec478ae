package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/masmgr/amexamine/internal/aggregation"
)

var (
	headerColor = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed)
)

// ConsoleSummaryWriter writes document summary reports to the console.
type ConsoleSummaryWriter struct{}

// Write outputs the summary report as aligned tables.
func (w *ConsoleSummaryWriter) Write(report *SummaryReport, options OutputOptions) (err error) {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(file, err) }()

	docs := limitTop(report.Documents, options.Top)

	headerColor.Fprintln(out, "Automerge Document Summary")
	fmt.Fprintf(out, "Documents decoded: %d, failed: %d\n\n", len(report.Documents), len(report.Failures))

	if len(docs) > 0 {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tPath\tSize\tChunks\tChanges\tOps\tActors\tHeads\tStatus")
		for i, doc := range docs {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
				i+1,
				doc.Path,
				doc.Size,
				doc.ChunkCount,
				doc.ChangeCount,
				doc.OpCount,
				doc.ActorCount(),
				shortHashes(doc.Heads),
				documentStatus(doc),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		for _, doc := range docs {
			fmt.Fprintf(out, "\n%s\n", doc.Path)
			fmt.Fprintf(out, "  Changes: %s to %s\n", formatTime(doc.FirstChangeAt), formatTime(doc.LastChangeAt))
			fmt.Fprintf(out, "  Actions: %s\n", formatActions(doc.Actions()))
			if len(doc.MissingDeps) > 0 {
				warnColor.Fprintf(out, "  Missing dependencies: %s\n", shortHashes(doc.MissingDeps))
			}
		}
	}

	if len(report.Failures) > 0 {
		fmt.Fprintln(out)
		for _, f := range report.Failures {
			errorColor.Fprintf(out, "FAILED %s: %v\n", f.Path, f.Err)
		}
	}

	return nil
}

// ConsoleHistoryWriter writes document history reports to the console.
type ConsoleHistoryWriter struct{}

// Write outputs the history report as aligned tables.
func (w *ConsoleHistoryWriter) Write(report *HistoryReport, options OutputOptions) (err error) {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(file, err) }()

	revisions := limitTop(report.Revisions, options.Top)

	headerColor.Fprintln(out, "Automerge Document History")
	fmt.Fprintf(out, "Repository: %s\n", report.RepoPath)
	if report.Branch != "" {
		fmt.Fprintf(out, "Branch: %s\n", report.Branch)
	}
	fmt.Fprintf(out, "Revisions: %d, documents: %d, failed: %d\n\n",
		len(report.Revisions), len(report.Histories), report.FailedCount())

	if len(revisions) == 0 {
		fmt.Fprintln(out, "No document revisions found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCommit\tDate\tPath\tKind\tChanges\tDelta\tOps\tHeads\tMessage")
	for i, rev := range revisions {
		changes, delta, ops, heads := "-", "-", "-", "-"
		if rev.Document != nil {
			changes = fmt.Sprintf("%d", rev.Document.ChangeCount)
			delta = fmt.Sprintf("%+d", rev.ChangeDelta)
			ops = fmt.Sprintf("%d", rev.Document.OpCount)
			heads = fmt.Sprintf("%d", len(rev.Document.Heads))
		}
		kind := rev.Kind.String()
		if rev.Failed() {
			kind = errorColor.Sprint("error")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			shortHash(rev.Commit.SHA),
			formatTime(rev.Commit.When),
			revisionPath(rev),
			kind,
			changes,
			delta,
			ops,
			heads,
			truncateMessage(rev.Commit.Message, 40),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, rev := range revisions {
		if rev.Failed() {
			errorColor.Fprintf(out, "%s %s: %v\n", shortHash(rev.Commit.SHA), rev.Path, rev.Err)
		}
	}

	return nil
}

// Helper functions

func truncateMessage(msg string, maxLen int) string {
	if len(msg) <= maxLen {
		return msg
	}
	return msg[:maxLen-3] + "..."
}

func formatActions(actions []aggregation.ActionCount) string {
	if len(actions) == 0 {
		return "-"
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = fmt.Sprintf("%s=%d", a.Action, a.Count)
	}
	return strings.Join(parts, " ")
}

func documentStatus(doc *aggregation.DocumentMetrics) string {
	switch {
	case len(doc.MissingDeps) > 0:
		return "incomplete"
	case !doc.HeadsVerified:
		return "unverified"
	default:
		return "ok"
	}
}

func revisionPath(rev aggregation.RevisionMetrics) string {
	if rev.OldPath != "" {
		return rev.OldPath + " -> " + rev.Path
	}
	return rev.Path
}

func writeLines(out io.Writer, lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
