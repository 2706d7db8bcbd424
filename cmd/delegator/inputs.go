package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/delegator/internal/cache"
	"github.com/ShayCichocki/delegator/internal/ears"
	"github.com/ShayCichocki/delegator/pkg/models"
)

// contractSource collects the flags that name a set of contracts.
type contractSource struct {
	contracts    []string
	setFile      string
	contextFile  string
	requirements string
	design       string
	taskID       string
}

func (s *contractSource) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&s.contracts, "contract", "c", nil, "EARS contract (repeatable)")
	cmd.Flags().StringVar(&s.setFile, "set", "", "Requirement set file (YAML, JSON or TOML)")
	cmd.Flags().StringVar(&s.contextFile, "context", "", "EARS context file (YAML or JSON)")
	cmd.Flags().StringVar(&s.requirements, "requirements", "", "requirements.md to extract criteria from")
	cmd.Flags().StringVar(&s.design, "design", "", "design.md to extract contracts from")
	cmd.Flags().StringVar(&s.taskID, "task-id", "", "Keep only criteria for this task")
}

// files returns the on-disk inputs worth watching.
func (s *contractSource) files() []string {
	var out []string
	for _, p := range []string{s.setFile, s.contextFile, s.requirements, s.design} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolve builds the EARS context from, in order of precedence, a context
// file, extracted documents, a requirement set file, or inline contracts.
func (s *contractSource) resolve(ctx context.Context, ex *ears.Extractor) (models.EARSContext, error) {
	switch {
	case s.contextFile != "":
		return ears.LoadContext(s.contextFile)
	case s.requirements != "":
		if ex == nil {
			ex = ears.NewExtractor(nil, logger)
		}
		return ex.Extract(ctx, s.requirements, s.design, s.taskID)
	case s.setFile != "":
		set, err := ears.LoadRequirementSet(s.setFile)
		if err != nil {
			return models.EARSContext{}, err
		}
		return ears.ContextFromContracts("", set.Contracts), nil
	case len(s.contracts) > 0:
		return ears.ContextFromContracts("", s.contracts), nil
	default:
		return models.EARSContext{}, errors.New("no contracts: use --contract, --set, --context or --requirements")
	}
}

// openExtractor opens the configured context cache under the working directory.
func openExtractor() (*ears.Extractor, cache.Cache, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	c, err := cache.Open(cfg.Cache.Backend, cfg.CachePath(root))
	if err != nil {
		return nil, nil, fmt.Errorf("open context cache: %w", err)
	}
	return ears.NewExtractor(c, logger), c, nil
}

// readOutput reads delegate output from path, or stdin for "" and "-".
func readOutput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read output: %w", err)
	}
	return string(data), nil
}
