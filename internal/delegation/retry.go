// Package delegation drives a delegated task through validation, a single
// enriched retry, and a fallback when the retry does not help.
package delegation

import (
	"fmt"
	"sort"

	"github.com/ShayCichocki/delegator/pkg/models"
)

// Retry strategy names.
const (
	StrategyBroadenContext      = "broaden_context"
	StrategyBehavioralGuidance  = "behavioral_guidance"
	StrategyCompleteness        = "completeness"
	StrategyComplexityReduction = "complexity_reduction"
)

// Selection thresholds.
const (
	// lowScoreThreshold selects broaden_context outright.
	lowScoreThreshold = 30
	// complexViolationCount is the critical violation count above which the
	// requirement set is narrowed.
	complexViolationCount = 2
	// reducedCriteria is how many criteria complexity reduction keeps.
	reducedCriteria = 3
)

// RetryStrategy enriches a context before the retry attempt.
// Enrich must not modify original and must return the same result for the
// same inputs.
type RetryStrategy interface {
	// Name identifies the strategy in sessions and metrics.
	Name() string
	// Description is a one-line summary for reports.
	Description() string
	// MaxRetries is the strategy's retry budget. A budget of zero disables
	// the retry.
	MaxRetries() int
	// Enrich returns a copy of original adjusted for the failures in agg.
	Enrich(original models.EARSContext, agg models.AggregateValidation) models.EARSContext
}

// RetrySelector picks a retry strategy from a failed validation.
type RetrySelector struct {
	strategies map[string]RetryStrategy
}

// NewRetrySelector builds a selector over the given strategies. With none
// given, the four built-in strategies are registered.
func NewRetrySelector(strategies ...RetryStrategy) *RetrySelector {
	if len(strategies) == 0 {
		strategies = DefaultRetryStrategies()
	}
	s := &RetrySelector{strategies: make(map[string]RetryStrategy, len(strategies))}
	for _, st := range strategies {
		s.strategies[st.Name()] = st
	}
	return s
}

// DefaultRetryStrategies returns the built-in strategies.
func DefaultRetryStrategies() []RetryStrategy {
	return []RetryStrategy{
		BroadenContext{},
		BehavioralGuidance{},
		Completeness{},
		ComplexityReduction{},
	}
}

// Choose returns the name of the strategy matching agg. The first matching
// rule wins.
func Choose(agg models.AggregateValidation) string {
	switch {
	case agg.Score < lowScoreThreshold:
		return StrategyBroadenContext
	case agg.HasViolationClass(models.ViolationBehaviorMissing):
		return StrategyBehavioralGuidance
	case agg.HasViolationClass(models.ViolationMarkerMissing):
		return StrategyCompleteness
	case len(agg.CriticalViolations) > complexViolationCount:
		return StrategyComplexityReduction
	default:
		return StrategyBroadenContext
	}
}

// Select returns the registered strategy for agg. It reports false when the
// chosen strategy is not registered or has no retry budget.
func (s *RetrySelector) Select(agg models.AggregateValidation) (RetryStrategy, bool) {
	st, ok := s.strategies[Choose(agg)]
	if !ok || st.MaxRetries() < 1 {
		return nil, false
	}
	return st, true
}

// BroadenContext adds explicit compliance constraints and restates each
// violated contract.
type BroadenContext struct{}

func (BroadenContext) Name() string { return StrategyBroadenContext }

func (BroadenContext) Description() string {
	return "Provide more detailed EARS context and examples"
}

func (BroadenContext) MaxRetries() int { return 2 }

var broadenConstraints = []string{
	"Implementation must explicitly address all EARS acceptance criteria",
	"Output should include validation steps for behavioral contracts",
}

func (b BroadenContext) Enrich(original models.EARSContext, agg models.AggregateValidation) models.EARSContext {
	out := original.Clone()
	out.Minimal.Constraints = appendUnique(out.Minimal.Constraints, broadenConstraints...)

	failures := explanations(agg.CriticalViolations)
	examples := make(map[string]string, len(failures))
	for _, v := range agg.CriticalViolations {
		out.BehavioralContracts = appendUnique(out.BehavioralContracts, enhanced(v.Requirement))
		examples[v.Explanation] = fmt.Sprintf("Example solution: Implement specific logic to address %q", v.Explanation)
	}

	return withGuidance(out, models.Guidance{
		Strategy: b.Name(),
		Failures: failures,
		Items: []string{
			"Include explicit validation logic for each EARS criterion",
			"Address all behavioral contract requirements directly",
			"Provide clear evidence of requirement fulfillment",
		},
		Examples: examples,
	})
}

// enhanced restates a violated requirement under the "Enhanced" ID so it is
// validated again on the retry.
func enhanced(req models.RequirementStatement) string {
	if !req.Parsable() {
		return "Enhanced: " + req.Raw
	}
	return fmt.Sprintf("Enhanced: %s %s SHALL %s", req.Kind.Keyword(), req.Trigger, req.Behavior)
}

// BehavioralGuidance adds per-kind implementation patterns and a checklist.
type BehavioralGuidance struct{}

func (BehavioralGuidance) Name() string { return StrategyBehavioralGuidance }

func (BehavioralGuidance) Description() string {
	return "Provide specific behavioral implementation guidance"
}

func (BehavioralGuidance) MaxRetries() int { return 1 }

var kindPatterns = map[models.RequirementKind]string{
	models.KindEventTriggered: "Event-triggered behavior: Implement event handler that performs action when trigger occurs",
	models.KindContinuous:     "Continuous behavior: Implement ongoing monitoring/maintenance logic",
	models.KindConditional:    "Conditional behavior: Implement conditional logic with clear branching",
	models.KindBoundary:       "Boundary behavior: Implement boundary condition validation and response",
}

func (g BehavioralGuidance) Enrich(original models.EARSContext, agg models.AggregateValidation) models.EARSContext {
	out := original.Clone()

	var items []string
	for _, kind := range []models.RequirementKind{
		models.KindEventTriggered, models.KindContinuous, models.KindConditional, models.KindBoundary,
	} {
		items = append(items, kindPatterns[kind])
	}

	examples := make(map[string]string, len(out.AcceptanceCriteria))
	for _, ac := range out.AcceptanceCriteria {
		examples[ac.ID] = fmt.Sprintf("Implementation approach for %s %s: handle the condition, then %s",
			ac.Kind.Keyword(), ac.Condition, ac.Behavior)
	}

	return withGuidance(out, models.Guidance{
		Strategy: g.Name(),
		Failures: explanations(agg.CriticalViolations),
		Items:    items,
		Examples: examples,
		Checkpoints: []string{
			"Does implementation handle the trigger condition?",
			"Does implementation perform the required behavior?",
			"Are edge cases and error conditions addressed?",
			"Is the implementation testable against the EARS criteria?",
		},
	})
}

// Completeness lists mandatory elements and a checkpoint per criterion.
type Completeness struct{}

func (Completeness) Name() string { return StrategyCompleteness }

func (Completeness) Description() string {
	return "Emphasize complete implementation requirements"
}

func (Completeness) MaxRetries() int { return 1 }

func (c Completeness) Enrich(original models.EARSContext, agg models.AggregateValidation) models.EARSContext {
	out := original.Clone()

	checkpoints := make([]string, 0, len(out.AcceptanceCriteria))
	for _, ac := range out.AcceptanceCriteria {
		checkpoints = append(checkpoints, fmt.Sprintf("%s: Verify: %s (Test: %s %s)",
			ac.ID, ac.Behavior, ac.Kind.Keyword(), ac.Condition))
	}

	return withGuidance(out, models.Guidance{
		Strategy: c.Name(),
		Failures: explanations(agg.CriticalViolations),
		Items: []string{
			"Address every acceptance criterion explicitly",
			"Include error handling for all failure scenarios",
			"Provide validation logic for all behavioral contracts",
			"Include appropriate logging and monitoring",
			"Success indicator: All EARS criteria have corresponding implementation",
			"Success indicator: Behavioral contracts are explicitly satisfied",
			"Success indicator: Implementation includes comprehensive error handling",
		},
		Checkpoints: checkpoints,
	})
}

// ComplexityReduction narrows the requirement set to its first criteria and
// lays out a phased plan. It is the only strategy that removes requirements.
type ComplexityReduction struct{}

func (ComplexityReduction) Name() string { return StrategyComplexityReduction }

func (ComplexityReduction) Description() string {
	return "Break down complex requirements into simpler components"
}

func (ComplexityReduction) MaxRetries() int { return 2 }

func (r ComplexityReduction) Enrich(original models.EARSContext, agg models.AggregateValidation) models.EARSContext {
	out := original.Clone()

	if len(out.AcceptanceCriteria) > 0 {
		kept := head(out.AcceptanceCriteria, reducedCriteria)
		dropped := out.AcceptanceCriteria[len(kept):]
		out.BehavioralContracts = withoutContracts(out.BehavioralContracts, dropped)
		out.AcceptanceCriteria = kept
	} else {
		out.BehavioralContracts = head(out.BehavioralContracts, reducedCriteria)
	}

	plan := make([]string, 0, len(out.AcceptanceCriteria))
	for i, ac := range out.AcceptanceCriteria {
		plan = append(plan, fmt.Sprintf("Phase %d: %s Simplified: %s (core functionality only)", i+1, ac.ID, ac.Behavior))
	}

	return withGuidance(out, models.Guidance{
		Strategy: r.Name(),
		Failures: explanations(agg.CriticalViolations),
		Items: []string{
			"Start with the simplest requirement first",
			"Build incrementally toward full compliance",
			"Validate each phase before proceeding to next",
		},
		Checkpoints: plan,
	})
}

// withGuidance replaces any guidance from the same strategy with g.
func withGuidance(ctx models.EARSContext, g models.Guidance) models.EARSContext {
	kept := ctx.Guidance[:0:0]
	for _, existing := range ctx.Guidance {
		if existing.Strategy != g.Strategy {
			kept = append(kept, existing)
		}
	}
	ctx.Guidance = append(kept, g)
	return ctx
}

// withoutContracts drops contracts belonging to the given criteria.
func withoutContracts(contracts []string, dropped []models.AcceptanceCriterion) []string {
	skip := make(map[string]bool, len(dropped)*2)
	for _, ac := range dropped {
		skip[ac.Contract()] = true
		skip[ac.FullText] = true
	}
	out := make([]string, 0, len(contracts))
	for _, c := range contracts {
		if !skip[c] {
			out = append(out, c)
		}
	}
	return out
}

func explanations(verdicts []models.ValidationVerdict) []string {
	out := make([]string, 0, len(verdicts))
	for _, v := range verdicts {
		out = append(out, v.Explanation)
	}
	return out
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}

func head[T any](list []T, n int) []T {
	if len(list) > n {
		return append([]T(nil), list[:n]...)
	}
	return list
}

// rankFailures counts violation explanations across attempts, most frequent
// first, ties broken alphabetically.
func rankFailures(attempts []models.DelegationAttempt) []models.FailureReason {
	counts := make(map[string]int)
	for _, a := range attempts {
		for _, v := range a.Validation.CriticalViolations {
			counts[v.Explanation]++
		}
	}
	out := make([]models.FailureReason, 0, len(counts))
	for reason, n := range counts {
		out = append(out, models.FailureReason{Reason: reason, Frequency: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
