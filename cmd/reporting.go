package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/masmgr/amexamine/internal/output"
)

// reportOptions creates OutputOptions from CLI flags.
func reportOptions(c *cli.Context, fallbackFormat string) (output.OutputOptions, error) {
	format, err := getOutputFormat(c.String("format"), fallbackFormat)
	if err != nil {
		return output.OutputOptions{}, err
	}
	return output.OutputOptions{
		Format:     format,
		Top:        c.Int("top"),
		OutputPath: c.String("output"),
		Writer:     c.App.Writer,
	}, nil
}

func writeSummaryReport(opts output.OutputOptions, report *output.SummaryReport) error {
	writer := output.NewSummaryReportWriter(opts.Format)
	return writer.Write(report, opts)
}

func writeHistoryReport(opts output.OutputOptions, report *output.HistoryReport) error {
	writer := output.NewHistoryReportWriter(opts.Format)
	return writer.Write(report, opts)
}
