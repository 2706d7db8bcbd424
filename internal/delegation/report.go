package delegation

import (
	"time"

	"github.com/ShayCichocki/delegator/internal/validation"
	"github.com/ShayCichocki/delegator/pkg/models"
)

// SessionSummary is the headline of a session report.
type SessionSummary struct {
	ID               string               `json:"id" yaml:"id"`
	AgentName        string               `json:"agent_name" yaml:"agent_name"`
	Task             string               `json:"task" yaml:"task"`
	Status           models.SessionStatus `json:"status" yaml:"status"`
	Attempts         int                  `json:"attempts" yaml:"attempts"`
	Scores           []int                `json:"scores" yaml:"scores"`
	RetryStrategy    string               `json:"retry_strategy,omitempty" yaml:"retry_strategy,omitempty"`
	FallbackStrategy string               `json:"fallback_strategy,omitempty" yaml:"fallback_strategy,omitempty"`
	Duration         time.Duration        `json:"duration" yaml:"duration"`
	Error            string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// SessionReport is the human-facing account of a finished session.
type SessionReport struct {
	Summary SessionSummary `json:"summary" yaml:"summary"`
	// Validation reports the last validated attempt, nil when no attempt
	// produced output.
	Validation *validation.ValidationReport `json:"validation,omitempty" yaml:"validation,omitempty"`
	Fallback   *models.FallbackResult       `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	NextSteps  []string                     `json:"next_steps" yaml:"next_steps"`
}

// Report builds the report for a session.
func Report(s *models.DelegationSession) SessionReport {
	r := SessionReport{
		Summary: SessionSummary{
			ID:               s.ID,
			AgentName:        s.AgentName,
			Task:             s.Task,
			Status:           s.Status,
			Attempts:         len(s.Attempts),
			Scores:           attemptScores(s.Attempts),
			RetryStrategy:    s.RetryStrategy,
			FallbackStrategy: s.FallbackStrategy,
			Duration:         s.Duration,
			Error:            s.Error,
		},
		Fallback: s.FallbackResult,
	}

	var last *models.DelegationAttempt
	for i := len(s.Attempts) - 1; i >= 0; i-- {
		if s.Attempts[i].Validation.Result != "" {
			last = &s.Attempts[i]
			break
		}
	}
	if last != nil {
		vr := validation.Report(last.Validation)
		r.Validation = &vr
	}

	switch s.Status {
	case models.SessionSuccess, models.SessionSuccessAfterRetry:
		result := models.ResultPassed
		if last != nil {
			result = last.Validation.Result
		}
		r.NextSteps = validation.NextSteps(result)
	case models.SessionFallbackSuccess:
		r.NextSteps = validation.NextSteps(models.ResultFailed)
		if s.FallbackResult != nil {
			r.NextSteps = append(r.NextSteps, s.FallbackResult.NextSteps...)
		}
	case models.SessionFailed:
		r.NextSteps = []string{
			"FAILED: " + s.Error,
			"Inspect the attempt history for the failing step",
			"Re-run the delegation once the underlying error is resolved",
		}
	default:
		r.NextSteps = []string{"IN PROGRESS: session has not finished"}
	}
	return r
}
