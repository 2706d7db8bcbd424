package main

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/delegator/internal/report"
	"github.com/ShayCichocki/delegator/internal/validation"
	"github.com/ShayCichocki/delegator/internal/watch"
	"github.com/ShayCichocki/delegator/pkg/models"
)

var (
	validateSource contractSource
	validateWatch  bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [output-file]",
	Short: "Validate delegate output against EARS contracts",
	Long: `Score free-text output against EARS behavioral contracts.

The output is read from the given file, or from stdin when the file is
omitted or "-". The command exits non-zero when validation fails.

Examples:
  delegator validate out.md -c "AC-1: WHEN user submits login SHALL validate credentials"
  delegator validate out.md --set contracts.yaml -o json
  delegator validate out.md --requirements requirements.md --task-id AC-1 --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateSource.register(validateCmd)
	validateCmd.Flags().BoolVarP(&validateWatch, "watch", "w", false, "Re-validate when the output or contract files change")
}

func runValidate(cmd *cobra.Command, args []string) error {
	outputPath := ""
	if len(args) > 0 {
		outputPath = args[0]
	}
	validator := validation.NewValidator(validation.WithLogger(logger))

	if !validateWatch {
		result, err := validateOnce(cmd, validator, outputPath)
		if err != nil {
			return err
		}
		if result == models.ResultFailed {
			return errValidationFailed
		}
		return nil
	}

	if outputPath == "" || outputPath == "-" {
		return errors.New("--watch needs an output file")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := validateOnce(cmd, validator, outputPath); err != nil {
		printStatus(cmd.ErrOrStderr(), "✗", err.Error(), color.FgRed)
	}
	w, err := watch.New(append([]string{outputPath}, validateSource.files()...),
		func(ctx context.Context, path string) error {
			logger.Info("change detected", zap.String("path", path))
			_, err := validateOnce(cmd, validator, outputPath)
			return err
		},
		watch.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	printStatus(cmd.ErrOrStderr(), "⟳", "Watching for changes (Ctrl+C to stop)", color.FgCyan)
	return w.Run(ctx)
}

func validateOnce(cmd *cobra.Command, v *validation.Validator, outputPath string) (models.OverallResult, error) {
	output, err := readOutput(outputPath)
	if err != nil {
		return "", err
	}
	earsCtx, err := validateSource.resolve(cmd.Context(), nil)
	if err != nil {
		return "", err
	}

	agg := v.ValidateContracts(output, earsCtx.BehavioralContracts)
	r := validation.Report(agg)
	payload := struct {
		Aggregate models.AggregateValidation  `json:"aggregate" yaml:"aggregate"`
		Report    validation.ValidationReport `json:"report" yaml:"report"`
	}{agg, r}
	if err := render(cmd.OutOrStdout(), payload, func(w io.Writer) { report.Validation(w, r) }); err != nil {
		return "", err
	}
	return agg.Result, nil
}
