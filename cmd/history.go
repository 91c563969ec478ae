package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/amexamine/internal/aggregation"
	"github.com/masmgr/amexamine/internal/git"
	"github.com/masmgr/amexamine/internal/output"
)

// HistoryCmd returns the history command.
func HistoryCmd() *cli.Command {
	flags := append(reportFlags(),
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"r"},
			Usage:   "Path to Git repository",
			Value:   ".",
		},
		&cli.StringFlag{
			Name:    "branch",
			Aliases: []string{"b"},
			Usage:   "Branch or revision to walk from",
		},
		&cli.IntFlag{
			Name:  "max",
			Usage: "Maximum number of document revisions to read (0 for all)",
		},
	)

	return &cli.Command{
		Name:   "history",
		Usage:  "Decode every committed revision of documents in a Git repository",
		Flags:  flags,
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	cctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cctx.Close()

	opts, err := reportOptions(c, string(output.FormatConsole))
	if err != nil {
		return err
	}

	branch := cctx.Config.History.Branch
	if b := c.String("branch"); b != "" {
		branch = b
	}
	maxRevisions := cctx.Config.History.MaxRevisions
	if c.IsSet("max") {
		maxRevisions = c.Int("max")
	}
	if maxRevisions < 0 {
		return fmt.Errorf("invalid --max %d: must not be negative", maxRevisions)
	}

	repoPath := c.String("repo")
	reader, err := git.NewHistoryReader(git.ReadOptions{
		RepoPath:     repoPath,
		Branch:       branch,
		Include:      cctx.Config.Filters.Include,
		Exclude:      cctx.Config.Filters.Exclude,
		MaxRevisions: maxRevisions,
	})
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	report, err := buildHistoryReport(c.Context, reader, repoPath, branch)
	if err != nil {
		return err
	}
	cctx.Logger.Debugw("history read", "repo", repoPath, "branch", branch, "revisions", len(report.Revisions))
	for _, rev := range report.Revisions {
		if rev.Failed() {
			cctx.Logger.Warnw("revision failed to decode", "commit", rev.Commit.SHA, "path", rev.Path, "error", rev.Err)
		}
	}

	if err := writeHistoryReport(opts, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// buildHistoryReport reads every revision from reader and aggregates them.
func buildHistoryReport(ctx context.Context, reader git.RevisionReader, repoPath, branch string) (*output.HistoryReport, error) {
	revisions, err := reader.ReadRevisions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	aggregator := aggregation.NewHistoryAggregator()
	results := aggregator.Process(revisions)

	return &output.HistoryReport{
		RepoPath:    repoPath,
		Branch:      branch,
		GeneratedAt: time.Now(),
		Revisions:   results,
		Histories:   aggregator.Histories(),
	}, nil
}
