package output

import (
	"fmt"
	"strings"
)

// MarkdownSummaryWriter writes document summary reports as Markdown.
type MarkdownSummaryWriter struct{}

// Write outputs the summary report as Markdown.
func (w *MarkdownSummaryWriter) Write(report *SummaryReport, options OutputOptions) (err error) {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(file, err) }()

	docs := limitTop(report.Documents, options.Top)

	// Header
	if err := writeLines(out,
		"# Automerge Document Summary",
		"",
		fmt.Sprintf("**Documents Decoded:** %d", len(report.Documents)),
		"",
		fmt.Sprintf("**Failures:** %d", len(report.Failures)),
		"",
	); err != nil {
		return err
	}

	if len(docs) > 0 {
		fmt.Fprintln(out, "## Documents")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "| # | Path | Size | Chunks | Changes | Ops | Actors | Heads | Status | Actions |")
		fmt.Fprintln(out, "|---|------|------|--------|---------|-----|--------|-------|--------|---------|")
		for i, doc := range docs {
			fmt.Fprintf(out, "| %d | `%s` | %d | %d | %d | %d | %d | %d | %s | %s |\n",
				i+1, doc.Path, doc.Size, doc.ChunkCount, doc.ChangeCount, doc.OpCount,
				doc.ActorCount(), len(doc.Heads), getStatusEmoji(documentStatus(doc)),
				escapeMarkdown(formatActions(doc.Actions())))
		}
		fmt.Fprintln(out)
	}

	if len(report.Failures) > 0 {
		fmt.Fprintln(out, "## Failures")
		fmt.Fprintln(out)
		for _, f := range report.Failures {
			fmt.Fprintf(out, "- `%s`: %s\n", f.Path, escapeMarkdown(errorString(f.Err)))
		}
		fmt.Fprintln(out)
	}

	_, err = fmt.Fprintf(out, "*Generated at %s*\n", formatTime(report.GeneratedAt))
	return err
}

// MarkdownHistoryWriter writes document history reports as Markdown.
type MarkdownHistoryWriter struct{}

// Write outputs the history report as Markdown.
func (w *MarkdownHistoryWriter) Write(report *HistoryReport, options OutputOptions) (err error) {
	out, file, err := openOutputWriter(options)
	if err != nil {
		return err
	}
	defer func() { err = closeOutput(file, err) }()

	revisions := limitTop(report.Revisions, options.Top)

	fmt.Fprintln(out, "# Automerge Document History")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "**Repository:** %s\n\n", report.RepoPath)
	if report.Branch != "" {
		fmt.Fprintf(out, "**Branch:** %s\n\n", report.Branch)
	}
	fmt.Fprintf(out, "**Revisions:** %d, **Failed:** %d\n\n", len(report.Revisions), report.FailedCount())

	if len(report.Histories) > 0 {
		fmt.Fprintln(out, "## Documents")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "| Path | Revisions | Failed | Contributors | Latest Changes | Last Modified |")
		fmt.Fprintln(out, "|------|-----------|--------|--------------|----------------|---------------|")
		for _, h := range report.Histories {
			latest := "-"
			if h.Latest != nil {
				latest = fmt.Sprintf("%d", h.Latest.ChangeCount)
			}
			path := fmt.Sprintf("`%s`", h.Path)
			if h.Deleted {
				path += " (deleted)"
			}
			fmt.Fprintf(out, "| %s | %d | %d | %d | %s | %s |\n",
				path, h.RevisionCount, h.FailedCount, h.ContributorCount(), latest, formatTime(h.LastModifiedAt))
		}
		fmt.Fprintln(out)
	}

	if len(revisions) > 0 {
		fmt.Fprintln(out, "## Revisions")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "| # | Commit | Path | Kind | Changes | Delta | Message |")
		fmt.Fprintln(out, "|---|--------|------|------|---------|-------|---------|")
		for i, rev := range revisions {
			kind := rev.Kind.String()
			changes, delta := "-", "-"
			switch {
			case rev.Failed():
				kind = getStatusEmoji("error") + " " + escapeMarkdown(errorString(rev.Err))
			case rev.Document != nil:
				changes = fmt.Sprintf("%d", rev.Document.ChangeCount)
				delta = fmt.Sprintf("%+d", rev.ChangeDelta)
			}
			fmt.Fprintf(out, "| %d | `%s` | `%s` | %s | %s | %s | %s |\n",
				i+1, shortHash(rev.Commit.SHA), revisionPath(rev), kind, changes, delta,
				escapeMarkdown(truncateMessage(rev.Commit.Message, 50)))
		}
		fmt.Fprintln(out)
	}

	_, err = fmt.Fprintf(out, "*Generated at %s*\n", formatTime(report.GeneratedAt))
	return err
}

func getStatusEmoji(status string) string {
	switch status {
	case "error", "incomplete":
		return "🔴"
	case "unverified":
		return "🟡"
	default:
		return "🟢"
	}
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
