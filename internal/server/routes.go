package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ShayCichocki/delegator/internal/delegation"
	"github.com/ShayCichocki/delegator/internal/ears"
	"github.com/ShayCichocki/delegator/internal/validation"
	"github.com/ShayCichocki/delegator/pkg/models"
)

// ValidateRequest scores output against contract strings.
type ValidateRequest struct {
	Output    string   `json:"output" doc:"Free text produced by the delegate"`
	Contracts []string `json:"contracts" doc:"EARS statements, one per entry"`
}

// ValidateResponse carries the aggregate and its report.
type ValidateResponse struct {
	Aggregate models.AggregateValidation `json:"aggregate"`
	Report    validation.ValidationReport `json:"report"`
}

// DelegateRequest runs a delegation session. The context comes from, in
// order of precedence, Context, Contracts, or the document paths.
type DelegateRequest struct {
	AgentName        string              `json:"agent_name" minLength:"1"`
	Task             string              `json:"task"`
	Context          *models.EARSContext `json:"context,omitempty"`
	Contracts        []string            `json:"contracts,omitempty"`
	RequirementsPath string              `json:"requirements_path,omitempty"`
	DesignPath       string              `json:"design_path,omitempty"`
	TaskID           string              `json:"task_id,omitempty"`
	Options          *delegation.Options `json:"options,omitempty"`
}

// DelegateResponse carries the finished session and its report.
type DelegateResponse struct {
	Session *models.DelegationSession `json:"session"`
	Report  delegation.SessionReport  `json:"report"`
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerValidate(api huma.API, v *validation.Validator) {
	huma.Register(api, huma.Operation{
		OperationID: "validate",
		Method:      http.MethodPost,
		Path:        "/validate",
		Summary:     "Validate output against contracts",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ValidateRequest `json:"body"`
	}) (*struct {
		Body ValidateResponse `json:"body"`
	}, error) {
		agg := v.ValidateContracts(input.Body.Output, input.Body.Contracts)
		return &struct {
			Body ValidateResponse `json:"body"`
		}{Body: ValidateResponse{Aggregate: agg, Report: validation.Report(agg)}}, nil
	})
}

func registerDelegate(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "delegate",
		Method:      http.MethodPost,
		Path:        "/delegate",
		Summary:     "Run a delegation session",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body DelegateRequest `json:"body"`
	}) (*struct {
		Body DelegateResponse `json:"body"`
	}, error) {
		req := input.Body
		earsCtx, err := resolveContext(ctx, cfg.Extractor, req)
		if err != nil {
			return nil, err
		}
		opts := cfg.Options
		if req.Options != nil {
			opts = *req.Options
		}

		s, err := cfg.Orchestrator.Delegate(ctx, req.AgentName, req.Task, earsCtx, opts)
		if errors.Is(err, delegation.ErrNoAgent) {
			return nil, newAPIError(http.StatusBadRequest, "", err.Error(), nil)
		}
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "", "internal error", map[string]any{"error": err.Error()})
		}
		return &struct {
			Body DelegateResponse `json:"body"`
		}{Body: DelegateResponse{Session: s, Report: delegation.Report(s)}}, nil
	})
}

func resolveContext(ctx context.Context, ex *ears.Extractor, req DelegateRequest) (models.EARSContext, error) {
	switch {
	case req.Context != nil:
		return *req.Context, nil
	case len(req.Contracts) > 0:
		return ears.ContextFromContracts("", req.Contracts), nil
	case req.RequirementsPath != "":
		if ex == nil {
			return models.EARSContext{}, newAPIError(http.StatusBadRequest, "", "document extraction is not enabled", nil)
		}
		c, err := ex.Extract(ctx, req.RequirementsPath, req.DesignPath, req.TaskID)
		if err != nil {
			return models.EARSContext{}, newAPIError(http.StatusBadRequest, "extraction_failed", err.Error(), nil)
		}
		return c, nil
	default:
		return models.EARSContext{}, newAPIError(http.StatusBadRequest, "", "one of context, contracts or requirements_path is required", nil)
	}
}

func registerMetrics(api huma.API, c *delegation.Collector) {
	huma.Register(api, huma.Operation{
		OperationID: "delegation-metrics",
		Method:      http.MethodGet,
		Path:        "/metrics/delegation",
		Summary:     "Delegation metrics snapshot",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body delegation.Metrics `json:"body"`
	}, error) {
		return &struct {
			Body delegation.Metrics `json:"body"`
		}{Body: c.Snapshot()}, nil
	})
}
