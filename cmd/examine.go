package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/amexamine/config"
	"github.com/masmgr/amexamine/internal/examine"
	"github.com/masmgr/amexamine/internal/git"
)

// ExamineCmd returns the examine command.
func ExamineCmd() *cli.Command {
	return &cli.Command{
		Name:      "examine",
		Aliases:   []string{"e"},
		Usage:     "Decode a document and print every change it contains",
		ArgsUsage: "[FILE|-]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: stdout)",
			},
			&cli.StringFlag{
				Name:  "color",
				Usage: "Colour mode (auto, always, never)",
			},
			&cli.StringFlag{
				Name:    "repo",
				Aliases: []string{"r"},
				Usage:   "Read FILE from this Git repository instead of the working tree",
			},
			&cli.StringFlag{
				Name:  "rev",
				Usage: "Revision to read FILE at when --repo is set",
				Value: "HEAD",
			},
		},
		Action: examineAction,
	}
}

func examineAction(c *cli.Context) error {
	cctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cctx.Close()

	mode := cctx.Config.Output.Color
	if flag := c.String("color"); flag != "" {
		mode = config.ColorMode(flag)
	}
	switch mode {
	case config.ColorAuto, config.ColorAlways, config.ColorNever:
	default:
		return fmt.Errorf("invalid --color %q: expected auto, always or never", mode)
	}

	input, closeInput, err := openExamineInput(c)
	if err != nil {
		return err
	}
	defer closeInput()

	outputPath := c.String("output")
	var w io.Writer = c.App.Writer
	var file *os.File
	if outputPath != "" {
		if file, err = os.Create(outputPath); err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		w = file
	}

	interactive := resolveInteractive(mode, w, file != nil)
	cctx.Logger.Debugw("examining document", "output", outputPath, "interactive", interactive)

	examiner := examine.NewExaminer(examine.Options{
		Logger: cctx.Logger,
		Indent: cctx.Config.Output.Indent,
	})
	err = examiner.Examine(input, w, interactive)

	if file != nil {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}
	return err
}

// openExamineInput returns the document source: a blob from git when --repo
// is set, stdin for "-" or no argument, the named file otherwise.
func openExamineInput(c *cli.Context) (io.Reader, func(), error) {
	noop := func() {}
	path := c.Args().First()

	if repo := c.String("repo"); repo != "" {
		if path == "" || path == "-" {
			return nil, noop, fmt.Errorf("a file path is required with --repo")
		}
		rev := c.String("rev")
		data, err := git.ReadBlob(repo, rev, path)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to read %s at %s: %w", path, rev, err)
		}
		return bytes.NewReader(data), noop, nil
	}

	if path == "" || path == "-" {
		return c.App.Reader, noop, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}
