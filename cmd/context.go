package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/masmgr/amexamine/config"
)

// CommandContext holds common state for command execution.
// It encapsulates the shared setup logic across all commands.
type CommandContext struct {
	Config *config.Config
	Logger *zap.SugaredLogger
}

// NewCommandContext creates a context from CLI flags.
// It loads the configuration and builds the logger.
func NewCommandContext(c *cli.Context) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(c.Bool("verbose"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &CommandContext{Config: cfg, Logger: logger}, nil
}

// Close flushes buffered log entries.
func (ctx *CommandContext) Close() {
	_ = ctx.Logger.Sync()
}

// newLogger returns a development logger on stderr when verbose. Otherwise
// only warnings and errors reach stderr, without timestamps or callers.
func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		cfg.DisableCaller = true
		cfg.EncoderConfig.TimeKey = ""
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// resolveInteractive decides whether examine output is coloured.
func resolveInteractive(mode config.ColorMode, w io.Writer, toFile bool) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return !toFile && isTerminal(w)
	}
}
