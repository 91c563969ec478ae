package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/masmgr/amexamine/internal/aggregation"
)

// Compile-time interface conformance checks.
// These ensure that all writer types correctly implement their respective interfaces.
var (
	// SummaryReportWriter implementations
	_ SummaryReportWriter = (*ConsoleSummaryWriter)(nil)
	_ SummaryReportWriter = (*JSONSummaryWriter)(nil)
	_ SummaryReportWriter = (*CSVSummaryWriter)(nil)
	_ SummaryReportWriter = (*MarkdownSummaryWriter)(nil)
	_ SummaryReportWriter = (*CISummaryWriter)(nil)

	// HistoryReportWriter implementations
	_ HistoryReportWriter = (*ConsoleHistoryWriter)(nil)
	_ HistoryReportWriter = (*JSONHistoryWriter)(nil)
	_ HistoryReportWriter = (*CSVHistoryWriter)(nil)
	_ HistoryReportWriter = (*MarkdownHistoryWriter)(nil)
	_ HistoryReportWriter = (*CIHistoryWriter)(nil)
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
	FormatMarkdown OutputFormat = "markdown"
	FormatCI       OutputFormat = "ci"
)

// Formats lists every supported report format.
var Formats = []OutputFormat{FormatConsole, FormatJSON, FormatCSV, FormatMarkdown, FormatCI}

// ParseOutputFormat validates a format name. Matching is case-insensitive.
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (expected console, json, csv, markdown or ci)", s)
}

// OutputOptions controls output behavior.
type OutputOptions struct {
	Format     OutputFormat
	Top        int
	OutputPath string
	// Writer receives the report when OutputPath is empty. Defaults to stdout.
	Writer io.Writer
}

// DocumentFailure records a document that could not be read or decoded.
type DocumentFailure struct {
	Path string
	Err  error
}

// SummaryReport holds the statistics of a set of document files.
type SummaryReport struct {
	GeneratedAt time.Time
	Documents   []*aggregation.DocumentMetrics
	Failures    []DocumentFailure
}

// HistoryReport holds the decoded revisions of documents tracked in a repository.
type HistoryReport struct {
	RepoPath    string
	Branch      string
	GeneratedAt time.Time
	Revisions   []aggregation.RevisionMetrics
	Histories   []*aggregation.DocumentHistory
}

// FailedCount returns the number of revisions that could not be decoded.
func (r *HistoryReport) FailedCount() int {
	n := 0
	for i := range r.Revisions {
		if r.Revisions[i].Failed() {
			n++
		}
	}
	return n
}

// SummaryReportWriter writes document summary reports.
type SummaryReportWriter interface {
	Write(report *SummaryReport, options OutputOptions) error
}

// HistoryReportWriter writes document history reports.
type HistoryReportWriter interface {
	Write(report *HistoryReport, options OutputOptions) error
}

// NewSummaryReportWriter creates a summary report writer for the specified format.
func NewSummaryReportWriter(format OutputFormat) SummaryReportWriter {
	switch format {
	case FormatJSON:
		return &JSONSummaryWriter{}
	case FormatCSV:
		return &CSVSummaryWriter{}
	case FormatMarkdown:
		return &MarkdownSummaryWriter{}
	case FormatCI:
		return &CISummaryWriter{}
	default:
		return &ConsoleSummaryWriter{}
	}
}

// NewHistoryReportWriter creates a history report writer for the specified format.
func NewHistoryReportWriter(format OutputFormat) HistoryReportWriter {
	switch format {
	case FormatJSON:
		return &JSONHistoryWriter{}
	case FormatCSV:
		return &CSVHistoryWriter{}
	case FormatMarkdown:
		return &MarkdownHistoryWriter{}
	case FormatCI:
		return &CIHistoryWriter{}
	default:
		return &ConsoleHistoryWriter{}
	}
}
