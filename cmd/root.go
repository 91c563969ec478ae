package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/amexamine/config"
	"github.com/masmgr/amexamine/internal/output"
)

func init() {
	// -v is taken by --verbose.
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:      "amexamine",
		Usage:     "Inspect the change history stored in Automerge documents",
		Version:   "1.0.0",
		ArgsUsage: "[FILE]",
		Commands: []*cli.Command{
			ExamineCmd(),
			SummaryCmd(),
			HistoryCmd(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log decoding details to stderr",
			},
		},
		Action: legacyAction,
	}
}

// Flags shared by the report commands.
func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Glob patterns to include (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns to exclude (can be specified multiple times)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (console, json, csv, markdown, ci)",
		},
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"n"},
			Usage:   "Number of entries to show (0 for all)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (default: stdout)",
		},
	}
}

// getOutputFormat parses the output format flag, falling back to the configured default.
func getOutputFormat(flag, fallback string) (output.OutputFormat, error) {
	switch flag {
	case "":
		flag = fallback
	case "md":
		flag = string(output.FormatMarkdown)
	case "ndjson":
		flag = string(output.FormatCI)
	}
	return output.ParseOutputFormat(flag)
}

// loadConfig loads configuration from file or defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Apply filter overrides from CLI
	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Filters.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Filters.Exclude = excludes
	}

	return cfg, nil
}

// legacyAction handles the default command behavior.
// A file argument, or piped input, is examined as if the examine command had been given.
func legacyAction(c *cli.Context) error {
	if c.NArg() == 0 && isTerminal(c.App.Reader) {
		return cli.ShowAppHelp(c)
	}
	return examineAction(c)
}

// Run executes the CLI application.
func Run() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
