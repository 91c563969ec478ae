package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/amexamine/internal/aggregation"
	"github.com/masmgr/amexamine/internal/output"
)

// SummaryCmd returns the summary command.
func SummaryCmd() *cli.Command {
	return &cli.Command{
		Name:      "summary",
		Aliases:   []string{"s"},
		Usage:     "Report change, op and actor statistics for document files",
		ArgsUsage: "[PATTERN...]",
		Flags:     reportFlags(),
		Action:    summaryAction,
	}
}

func summaryAction(c *cli.Context) error {
	cctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cctx.Close()

	opts, err := reportOptions(c, cctx.Config.Summary.Format)
	if err != nil {
		return err
	}

	patterns := c.Args().Slice()
	if len(patterns) == 0 {
		patterns = cctx.Config.Filters.Include
	}

	paths, err := expandPatterns(patterns, cctx.Config.Filters.Exclude)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents matched %v", patterns)
	}

	report := &output.SummaryReport{GeneratedAt: time.Now()}
	for _, path := range paths {
		doc, err := summarizeFile(path)
		if err != nil {
			cctx.Logger.Debugw("document failed", "path", path, "error", err)
			report.Failures = append(report.Failures, output.DocumentFailure{Path: path, Err: err})
			continue
		}
		cctx.Logger.Debugw("document decoded", "path", path, "changes", doc.ChangeCount, "ops", doc.OpCount)
		report.Documents = append(report.Documents, doc)
	}

	if err := writeSummaryReport(opts, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if n := len(report.Failures); n > 0 {
		return fmt.Errorf("failed to decode %d of %d documents", n, len(paths))
	}
	return nil
}

func summarizeFile(path string) (*aggregation.DocumentMetrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return aggregation.LoadDocumentMetrics(path, data)
}

// expandPatterns resolves doublestar globs against the filesystem, drops
// paths matching an exclude pattern, and returns the sorted, de-duplicated
// list of regular files. Patterns without glob syntax name files directly.
func expandPatterns(patterns, exclude []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}

			excluded, err := matchesAny(exclude, match)
			if err != nil {
				return nil, err
			}
			if excluded {
				continue
			}

			if _, dup := seen[match]; dup {
				continue
			}
			seen[match] = struct{}{}
			paths = append(paths, match)
		}
	}

	sort.Strings(paths)
	return paths, nil
}

func matchesAny(patterns []string, path string) (bool, error) {
	slashed := filepath.ToSlash(path)
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, slashed)
		if err != nil {
			return false, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
