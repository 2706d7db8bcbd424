package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/delegator/internal/config"
	"github.com/ShayCichocki/delegator/internal/logging"
	"github.com/ShayCichocki/delegator/internal/report"
)

// errValidationFailed makes the process exit non-zero without extra output.
var errValidationFailed = errors.New("validation failed")

var (
	configFile string
	formatFlag string
	logLevel   string

	cfg      *config.Config
	logger   = zap.NewNop()
	closeLog = func() error { return nil }
	format   = report.FormatText
)

var rootCmd = &cobra.Command{
	Use:   "delegator",
	Short: "Validate delegated work against EARS behavioral contracts",
	Long: `Delegator sends a task to a named agent, checks the reply against
EARS behavioral contracts, and drives a single enriched retry and a
fallback when the reply falls short.

Requirement statements follow the EARS grammar:
  <WHEN|WHILE|IF|WHERE> <condition> SHALL <behavior>

Configuration is read from ~/.config/delegator/config.yaml, a project
.delegator.yaml, and DELEGATOR_* environment variables.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return closeLog() },
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errValidationFailed) {
			fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		}
		_ = closeLog()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: user and project config)")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "output", "o", "text", "Output format: text, json or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(delegateCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and builds the logger for every command.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	format, err = report.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	if configFile != "" {
		cfg, err = config.LoadFromPath(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	l, closeFn, err := logging.New(cfg.Logging())
	if err != nil {
		return err
	}
	logger, closeLog = l, closeFn
	return nil
}

// render writes v in the selected format, using text for the text format.
func render(w io.Writer, v any, text func(io.Writer)) error {
	if format == report.FormatText {
		text(w)
		return nil
	}
	return report.Encode(w, format, v)
}

// printStatus prints a status line with a colored symbol.
func printStatus(w io.Writer, symbol, msg string, attr color.Attribute) {
	fmt.Fprintf(w, "%s %s\n", color.New(attr).Sprint(symbol), msg)
}
