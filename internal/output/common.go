package output

import (
	"io"
	"os"
	"strings"
	"time"
)

const (
	reportDateTimeLayout = "2006-01-02T15:04:05"
	shortHashLength      = 8
)

func limitTop[T any](items []T, top int) []T {
	if top <= 0 || top >= len(items) {
		return items
	}
	return items[:top]
}

// formatTime renders t in the report layout, or "-" when t is unset.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(reportDateTimeLayout)
}

// formatRFC3339 is formatTime for machine-readable formats; unset times are empty.
func formatRFC3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func shortHash(h string) string {
	if len(h) <= shortHashLength {
		return h
	}
	return h[:shortHashLength]
}

func shortHashes(hashes []string) string {
	short := make([]string, len(hashes))
	for i, h := range hashes {
		short[i] = shortHash(h)
	}
	return strings.Join(short, " ")
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// openOutputWriter returns the destination for a report. The returned file
// is non-nil when the caller must close it.
func openOutputWriter(options OutputOptions) (io.Writer, *os.File, error) {
	if options.OutputPath == "" {
		if options.Writer != nil {
			return options.Writer, nil, nil
		}
		return os.Stdout, nil, nil
	}
	file, err := os.Create(options.OutputPath)
	if err != nil {
		return nil, nil, err
	}
	return file, file, nil
}

// closeOutput closes file, if any, keeping the first error.
func closeOutput(file *os.File, err error) error {
	if file == nil {
		return err
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}
