package delegation

import (
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/delegator/pkg/models"
)

// Fallback strategy names.
const (
	FallbackDirectImplementation = "direct_implementation"
	FallbackHumanEscalation      = "human_escalation"
	FallbackSimplifiedDelegation = "simplified_delegation"
)

// Fallback modes recorded on a FallbackResult.
const (
	ModeDirect     = "DIRECT"
	ModeEscalation = "ESCALATION"
	ModeSimplified = "SIMPLIFIED"
)

// Escalation urgency levels.
const (
	UrgencyMedium = "MEDIUM"
	UrgencyHigh   = "HIGH"
)

const (
	// EscalationType tags escalation packages.
	EscalationType = "DELEGATION_FAILURE"
	// GeneralPurposeAgent receives simplified delegations.
	GeneralPurposeAgent = "general-purpose"

	topFailures        = 3
	simplifiedCriteria = 2
	highUrgencyScore   = 30
)

// ErrNoSession is returned by fallback handlers given a nil session.
var ErrNoSession = errors.New("no delegation session")

// Options controls which fallbacks are allowed.
type Options struct {
	// AllowDirectImplementation hands the task back to the caller.
	AllowDirectImplementation bool `json:"allow_direct_implementation" yaml:"allow_direct_implementation"`
	// AllowHumanEscalation escalates to a person when direct
	// implementation is disallowed.
	AllowHumanEscalation bool `json:"allow_human_escalation" yaml:"allow_human_escalation"`
}

// DefaultOptions allows direct implementation and disallows escalation.
func DefaultOptions() Options {
	return Options{AllowDirectImplementation: true}
}

// FallbackStrategy produces the hand-off package once retrying is over.
type FallbackStrategy interface {
	Name() string
	Handle(session *models.DelegationSession, opts Options) (*models.FallbackResult, error)
}

// FallbackSelector chooses between the three fallback strategies.
type FallbackSelector struct {
	Direct     FallbackStrategy
	Escalation FallbackStrategy
	Simplified FallbackStrategy
}

// DefaultFallbackSelector returns a selector over the built-in strategies.
func DefaultFallbackSelector() *FallbackSelector {
	now := time.Now
	return &FallbackSelector{
		Direct:     DirectImplementation{Now: now},
		Escalation: HumanEscalation{Now: now},
		Simplified: SimplifiedDelegation{Now: now},
	}
}

// Select picks direct implementation when allowed, then human escalation
// when allowed, then simplified delegation.
func (s *FallbackSelector) Select(_ *models.DelegationSession, opts Options) FallbackStrategy {
	switch {
	case opts.AllowDirectImplementation:
		return s.Direct
	case opts.AllowHumanEscalation:
		return s.Escalation
	default:
		return s.Simplified
	}
}

// DirectImplementation returns the task to the caller with the original
// context and an analysis of what went wrong.
type DirectImplementation struct {
	Now func() time.Time
}

func (DirectImplementation) Name() string { return FallbackDirectImplementation }

func (d DirectImplementation) Handle(session *models.DelegationSession, _ Options) (*models.FallbackResult, error) {
	if session == nil {
		return nil, ErrNoSession
	}
	return &models.FallbackResult{
		Strategy: d.Name(),
		Mode:     ModeDirect,
		Message:  fmt.Sprintf("Delegation to @%s failed validation. Proceeding with direct implementation.", session.AgentName),
		Context:  session.OriginalContext.Clone(),
		Guidance: []string{
			"Implement requirements directly following EARS acceptance criteria",
			"Ensure all behavioral contracts are satisfied",
			"Include comprehensive validation and error handling",
			"Test against original EARS requirements",
		},
		NextSteps: []string{
			"Review original EARS context and acceptance criteria",
			"Implement functionality directly without delegation",
			"Validate implementation against behavioral contracts",
			"Document any limitations or technical debt",
		},
		CommonFailures:     head(rankFailures(session.Attempts), topFailures),
		AttemptScores:      attemptScores(session.Attempts),
		RetryEffectiveness: retryEffectiveness(session.Attempts),
		CreatedAt:          stamp(d.Now),
	}, nil
}

// HumanEscalation packages the failure history for a person to act on.
type HumanEscalation struct {
	Now func() time.Time
}

func (HumanEscalation) Name() string { return FallbackHumanEscalation }

func (h HumanEscalation) Handle(session *models.DelegationSession, _ Options) (*models.FallbackResult, error) {
	if session == nil {
		return nil, ErrNoSession
	}
	scores := attemptScores(session.Attempts)
	return &models.FallbackResult{
		Strategy: h.Name(),
		Mode:     ModeEscalation,
		Message: fmt.Sprintf("%s: delegation of %q to @%s failed after %d attempts",
			EscalationType, session.Task, session.AgentName, len(session.Attempts)),
		Urgency:        urgency(scores),
		Context:        session.OriginalContext.Clone(),
		CommonFailures: rankFailures(session.Attempts),
		NextSteps: []string{
			"Review subagent capabilities and limitations",
			"Consider task decomposition or different approach",
			"Evaluate EARS context injection effectiveness",
			"Implement task manually with full EARS compliance",
		},
		AttemptScores:      scores,
		RetryEffectiveness: retryEffectiveness(session.Attempts),
		CreatedAt:          stamp(h.Now),
	}, nil
}

// SimplifiedDelegation re-targets a reduced task at the general-purpose
// agent. Its output is terminal and not validated again.
type SimplifiedDelegation struct {
	Now func() time.Time
}

func (SimplifiedDelegation) Name() string { return FallbackSimplifiedDelegation }

func (s SimplifiedDelegation) Handle(session *models.DelegationSession, _ Options) (*models.FallbackResult, error) {
	if session == nil {
		return nil, ErrNoSession
	}
	orig := session.OriginalContext
	ctx := models.EARSContext{
		RequirementID:       orig.RequirementID,
		AcceptanceCriteria:  append([]models.AcceptanceCriterion(nil), head(orig.AcceptanceCriteria, simplifiedCriteria)...),
		BehavioralContracts: append([]string(nil), head(orig.BehavioralContracts, simplifiedCriteria)...),
		Minimal: models.MinimalContext{
			FeatureSummary: orig.Minimal.FeatureSummary,
			Constraints:    []string{"EARS compliance required"},
			Dependencies:   []string{"None"},
			TaskFocus:      "simplified",
		},
		SourceFiles: append([]string(nil), orig.SourceFiles...),
	}
	return &models.FallbackResult{
		Strategy:    s.Name(),
		Mode:        ModeSimplified,
		Message:     fmt.Sprintf("Delegation to @%s failed validation. Retrying a simplified task with @%s.", session.AgentName, GeneralPurposeAgent),
		TargetAgent: GeneralPurposeAgent,
		Context:     ctx,
		Guidance: []string{
			"Basic functionality implementation",
			"Core acceptance criteria satisfaction",
			"Minimal EARS compliance",
		},
		Limitations: []string{
			"Reduced feature completeness",
			"May require additional refinement",
			"Limited specialized knowledge application",
		},
		AttemptScores:      attemptScores(session.Attempts),
		RetryEffectiveness: retryEffectiveness(session.Attempts),
		CreatedAt:          stamp(s.Now),
	}, nil
}

func attemptScores(attempts []models.DelegationAttempt) []int {
	out := make([]int, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, a.Validation.Score)
	}
	return out
}

// retryEffectiveness is the score change from the first to the second attempt.
func retryEffectiveness(attempts []models.DelegationAttempt) int {
	if len(attempts) < 2 {
		return 0
	}
	return attempts[1].Validation.Score - attempts[0].Validation.Score
}

// urgency is HIGH when every attempt scored below the threshold.
func urgency(scores []int) string {
	if len(scores) == 0 {
		return UrgencyMedium
	}
	for _, s := range scores {
		if s >= highUrgencyScore {
			return UrgencyMedium
		}
	}
	return UrgencyHigh
}

func stamp(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
