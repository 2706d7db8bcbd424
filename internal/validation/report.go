package validation

import (
	"regexp"

	"github.com/ShayCichocki/delegator/pkg/models"
)

// enhancementScore is the score below which an ENHANCEMENT recommendation is added.
const enhancementScore = 80

// Recommend derives the follow-up recommendations for an aggregate.
func Recommend(agg models.AggregateValidation) []models.Recommendation {
	var recs []models.Recommendation

	if len(agg.CriticalViolations) > 0 {
		actions := make([]string, 0, len(agg.CriticalViolations))
		for _, v := range agg.CriticalViolations {
			actions = append(actions, "Fix: "+v.Explanation)
		}
		recs = append(recs, models.Recommendation{
			Type:    models.RecommendationCritical,
			Message: "Address critical contract violations before integration",
			Actions: actions,
		})
	}

	if len(agg.Warnings) > 0 {
		actions := make([]string, 0, len(agg.Warnings))
		for _, w := range agg.Warnings {
			actions = append(actions, "Improve: "+w.Explanation)
		}
		recs = append(recs, models.Recommendation{
			Type:    models.RecommendationImprovement,
			Message: "Consider addressing contract warnings for better compliance",
			Actions: actions,
		})
	}

	if agg.Score < enhancementScore {
		recs = append(recs, models.Recommendation{
			Type:    models.RecommendationEnhancement,
			Message: "Validation score could be improved",
			Actions: []string{
				"Review implementation against EARS acceptance criteria",
				"Ensure all behavioral contracts are explicitly addressed",
				"Add missing functionality identified in validation failures",
			},
		})
	}

	return recs
}

// ExecutiveSummary is the headline of a validation report.
type ExecutiveSummary struct {
	Result             models.OverallResult `json:"result" yaml:"result"`
	Score              int                  `json:"score" yaml:"score"`
	ContractsValidated int                  `json:"contracts_validated" yaml:"contracts_validated"`
	CriticalIssues     int                  `json:"critical_issues" yaml:"critical_issues"`
	Warnings           int                  `json:"warnings" yaml:"warnings"`
}

// ContractAnalysis is the per-contract line of a report.
type ContractAnalysis struct {
	Contract   string                 `json:"contract" yaml:"contract"`
	Status     models.VerdictStatus   `json:"status" yaml:"status"`
	Confidence float64                `json:"confidence" yaml:"confidence"`
	Kind       models.RequirementKind `json:"kind" yaml:"kind"`
	Class      models.ViolationClass  `json:"class,omitempty" yaml:"class,omitempty"`
}

// ViolationSummary describes one critical violation in a report.
type ViolationSummary struct {
	Violation  string  `json:"violation" yaml:"violation"`
	Contract   string  `json:"contract" yaml:"contract"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ValidationReport is the serializable, human-oriented view of an aggregate.
type ValidationReport struct {
	ExecutiveSummary   ExecutiveSummary        `json:"executive_summary" yaml:"executive_summary"`
	ContractAnalysis   []ContractAnalysis      `json:"contract_analysis" yaml:"contract_analysis"`
	CriticalViolations []ViolationSummary      `json:"critical_violations" yaml:"critical_violations"`
	Recommendations    []models.Recommendation `json:"recommendations" yaml:"recommendations"`
	NextSteps          []string                `json:"next_steps" yaml:"next_steps"`
}

// Report builds the validation report for an aggregate.
func Report(agg models.AggregateValidation) ValidationReport {
	r := ValidationReport{
		ExecutiveSummary: ExecutiveSummary{
			Result:             agg.Result,
			Score:              agg.Score,
			ContractsValidated: agg.Total(),
			CriticalIssues:     len(agg.CriticalViolations),
			Warnings:           len(agg.Warnings),
		},
		ContractAnalysis:   make([]ContractAnalysis, 0, len(agg.Verdicts)),
		CriticalViolations: make([]ViolationSummary, 0, len(agg.CriticalViolations)),
		Recommendations:    agg.Recommendations,
		NextSteps:          NextSteps(agg.Result),
	}

	for _, v := range agg.Verdicts {
		r.ContractAnalysis = append(r.ContractAnalysis, ContractAnalysis{
			Contract:   truncate(v.Requirement.Raw, 100),
			Status:     v.Status,
			Confidence: v.Confidence,
			Kind:       v.Requirement.Kind,
			Class:      v.Class,
		})
	}
	for _, v := range agg.CriticalViolations {
		r.CriticalViolations = append(r.CriticalViolations, ViolationSummary{
			Violation:  v.Explanation,
			Contract:   truncate(v.Requirement.Raw, 80),
			Confidence: v.Confidence,
		})
	}
	return r
}

// NextSteps returns the actionable steps for an overall result.
func NextSteps(result models.OverallResult) []string {
	switch result {
	case models.ResultFailed:
		return []string{
			"RETRY REQUIRED: Fix critical violations before proceeding",
			"Enhanced Context: Provide additional requirements context to the delegate",
			"Fallback Option: Consider direct implementation if retry fails",
		}
	case models.ResultConditionalPass:
		return []string{
			"CONDITIONAL: Minor issues detected but proceeding allowed",
			"Document: Record validation warnings for future reference",
			"Monitor: Watch for related issues during integration",
		}
	default:
		return []string{
			"APPROVED: Output meets all behavioral contract requirements",
			"Integration: Ready for integration into main implementation",
			"Metrics: Update success metrics for delegation",
		}
	}
}

// sanitizeLimit is the longest sanitized output kept for logging.
const sanitizeLimit = 500

var sensitivePattern = regexp.MustCompile(`(?i)password|token|key|secret`)

// Sanitize redacts credential-like words and truncates output for logging.
func Sanitize(output string) string {
	s := sensitivePattern.ReplaceAllString(output, "[REDACTED]")
	if r := []rune(s); len(r) > sanitizeLimit {
		s = string(r[:sanitizeLimit]) + "...[truncated]"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
