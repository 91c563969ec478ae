package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the name of the configuration file looked up by LoadConfig.
const FileName = ".amexamine.json"

// Config is the root configuration structure.
type Config struct {
	Output  OutputConfig  `json:"output"`
	Filters FilterConfig  `json:"filters"`
	History HistoryConfig `json:"history"`
	Summary SummaryConfig `json:"summary"`
}

// ColorMode selects when examine output is coloured.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// OutputConfig holds rendering options for the examine command.
type OutputConfig struct {
	Color  ColorMode `json:"color"`  // Default: auto
	Indent string    `json:"indent"` // Default: two spaces
}

// FilterConfig holds document path filtering options.
type FilterConfig struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// HistoryConfig holds options for walking a repository's history.
type HistoryConfig struct {
	Branch       string `json:"branch"`       // Default: "HEAD"
	MaxRevisions int    `json:"maxRevisions"` // 0 means unlimited
}

// SummaryConfig holds report options shared by summary and history.
type SummaryConfig struct {
	Format string `json:"format"` // Default: "console"
}

var reportFormats = []string{"console", "json", "csv", "markdown", "ci"}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Color:  ColorAuto,
			Indent: "  ",
		},
		Filters: FilterConfig{
			Include: []string{"**/*.automerge", "**/*.amrg"},
			Exclude: []string{},
		},
		History: HistoryConfig{
			Branch:       "HEAD",
			MaxRevisions: 0,
		},
		Summary: SummaryConfig{
			Format: "console",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid output.color %q: expected auto, always or never", c.Output.Color)
	}
	if strings.Trim(c.Output.Indent, " \t") != "" {
		return fmt.Errorf("invalid output.indent %q: only spaces and tabs are allowed", c.Output.Indent)
	}
	if c.History.MaxRevisions < 0 {
		return fmt.Errorf("invalid history.maxRevisions %d: must not be negative", c.History.MaxRevisions)
	}
	if !isReportFormat(c.Summary.Format) {
		return fmt.Errorf("invalid summary.format %q: expected one of %s", c.Summary.Format, strings.Join(reportFormats, ", "))
	}
	return nil
}

func isReportFormat(format string) bool {
	for _, f := range reportFormats {
		if f == format {
			return true
		}
	}
	return false
}

// LoadConfig loads configuration from a file, merging with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		// Try default locations
		candidates := []string{FileName}
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			candidates = append(candidates, filepath.Join(home, FileName))
		} else if envHome := os.Getenv("HOME"); envHome != "" {
			candidates = append(candidates, filepath.Join(envHome, FileName))
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
