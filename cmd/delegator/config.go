package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/delegator/internal/config"
	"github.com/ShayCichocki/delegator/internal/report"
)

var configPaths bool

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify delegator configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the value in the user config file.

Configuration is stored at ~/.config/delegator/config.yaml
Project-specific overrides can be placed in .delegator.yaml

Keys:
  ` + keyList(),
	Args: cobra.MaximumNArgs(2),
	// An invalid config must not lock the user out of inspecting it.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := report.ParseFormat(formatFlag); err != nil {
			return err
		}
		if err := setup(cmd, args); err != nil {
			printStatus(cmd.ErrOrStderr(), "⚠", err.Error(), color.FgYellow)
			cfg = config.Default()
		}
		return nil
	},
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configPaths, "path", false, "Print the config file locations")
}

func keyList() string {
	return strings.Join(config.Keys(), "\n  ")
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if configPaths {
		fmt.Fprintf(out, "user:    %s\n", config.GetUserConfigPath())
		project := config.GetProjectConfigPath()
		if project == "" {
			project = "(none)"
		}
		fmt.Fprintf(out, "project: %s\n", project)
		return nil
	}

	switch len(args) {
	case 0:
		masked := cfg.Masked()
		if format == report.FormatText {
			return report.Encode(out, report.FormatYAML, masked)
		}
		return report.Encode(out, format, masked)
	case 1:
		value, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, value)
		return nil
	default:
		if err := config.Set(args[0], args[1]); err != nil {
			return err
		}
		printStatus(out, "✓", fmt.Sprintf("Set %s = %s", args[0], args[1]), color.FgGreen)
		return nil
	}
}
