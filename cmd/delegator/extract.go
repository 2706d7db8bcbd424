package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/delegator/internal/ears"
	"github.com/ShayCichocki/delegator/internal/report"
	"github.com/ShayCichocki/delegator/internal/watch"
)

var (
	extractRequirements string
	extractDesign       string
	extractTaskID       string
	extractWatch        bool
	extractClearCache   bool
	extractStats        bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a minimal EARS context from requirement documents",
	Long: `Pull acceptance criteria, behavioral contracts and context from a
requirements.md (and optionally a design.md) into the minimal context a
delegate receives.

Results are cached by document paths and task ID using the configured
cache backend (memory, sqlite or bolt). With --watch the cache is cleared
and the context re-extracted whenever either document changes.

Examples:
  delegator extract --requirements requirements.md --design design.md --task-id AC-2
  delegator extract --requirements requirements.md -o yaml > context.yaml`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractRequirements, "requirements", "", "requirements.md path (required)")
	extractCmd.Flags().StringVar(&extractDesign, "design", "", "design.md path")
	extractCmd.Flags().StringVar(&extractTaskID, "task-id", "", "Keep only criteria for this task")
	extractCmd.Flags().BoolVarP(&extractWatch, "watch", "w", false, "Re-extract when the documents change")
	extractCmd.Flags().BoolVar(&extractClearCache, "clear-cache", false, "Clear the context cache first")
	extractCmd.Flags().BoolVar(&extractStats, "stats", false, "Print extraction and cache statistics")
	_ = extractCmd.MarkFlagRequired("requirements")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ex, c, err := openExtractor()
	if err != nil {
		return err
	}
	defer c.Close()

	if extractClearCache {
		if err := ex.ClearCache(ctx); err != nil {
			return err
		}
		printStatus(cmd.ErrOrStderr(), "✓", "Context cache cleared", color.FgGreen)
	}

	if err := extractOnce(ctx, cmd, ex); err != nil {
		return err
	}

	if extractWatch {
		w, err := watch.New([]string{extractRequirements, extractDesign},
			func(ctx context.Context, path string) error {
				logger.Info("document changed, clearing context cache", zap.String("path", path))
				if err := ex.ClearCache(ctx); err != nil {
					return err
				}
				return extractOnce(ctx, cmd, ex)
			},
			watch.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		printStatus(cmd.ErrOrStderr(), "⟳", "Watching for changes (Ctrl+C to stop)", color.FgCyan)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	if extractStats {
		s := ex.Stats()
		fmt.Fprintf(cmd.ErrOrStderr(), "extractions: %d  avg: %s  cache hits: %d  misses: %d  efficiency: %.0f%%\n",
			s.Extractions, s.AvgExtractionTime, s.CacheHits, s.CacheMisses, s.CacheEfficiency()*100)
	}
	return nil
}

func extractOnce(ctx context.Context, cmd *cobra.Command, ex *ears.Extractor) error {
	earsCtx, err := ex.Extract(ctx, extractRequirements, extractDesign, extractTaskID)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), earsCtx, func(w io.Writer) { report.Context(w, earsCtx) })
}
