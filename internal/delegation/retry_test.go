package delegation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/delegator/internal/ears"
	"github.com/ShayCichocki/delegator/pkg/models"
)

func violation(class models.ViolationClass, explanation string) models.ValidationVerdict {
	return models.ValidationVerdict{
		Requirement: ears.Parse("AC-1: WHEN user submits login SHALL validate credentials"),
		Status:      models.VerdictFailed,
		Explanation: explanation,
		Class:       class,
	}
}

func TestChoose(t *testing.T) {
	tests := []struct {
		name       string
		score      int
		violations []models.ValidationVerdict
		want       string
	}{
		{
			name:       "low score",
			score:      10,
			violations: []models.ValidationVerdict{violation(models.ViolationBehaviorMissing, "b")},
			want:       StrategyBroadenContext,
		},
		{
			name:       "behavior missing",
			score:      50,
			violations: []models.ValidationVerdict{violation(models.ViolationBehaviorMissing, "b")},
			want:       StrategyBehavioralGuidance,
		},
		{
			name:       "marker missing",
			score:      50,
			violations: []models.ValidationVerdict{violation(models.ViolationMarkerMissing, "m")},
			want:       StrategyCompleteness,
		},
		{
			name:  "many violations",
			score: 40,
			violations: []models.ValidationVerdict{
				violation(models.ViolationTriggerMissing, "a"),
				violation(models.ViolationTriggerMissing, "b"),
				violation(models.ViolationTriggerMissing, "c"),
			},
			want: StrategyComplexityReduction,
		},
		{
			name:  "class decides over explanation wording",
			score: 60,
			violations: []models.ValidationVerdict{
				violation(models.ViolationTriggerMissing, "Continuous behavior not implemented for: session is active"),
			},
			want: StrategyBroadenContext,
		},
		{
			name:       "trigger missing",
			score:      60,
			violations: []models.ValidationVerdict{violation(models.ViolationTriggerMissing, "a")},
			want:       StrategyBroadenContext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := models.AggregateValidation{Score: tt.score, CriticalViolations: tt.violations}
			assert.Equal(t, tt.want, Choose(agg))

			st, ok := NewRetrySelector().Select(agg)
			require.True(t, ok)
			assert.Equal(t, tt.want, st.Name())
		})
	}
}

type noBudget struct{ BroadenContext }

func (noBudget) MaxRetries() int { return 0 }

func TestRetrySelector_NoStrategy(t *testing.T) {
	agg := models.AggregateValidation{Score: 0}

	_, ok := NewRetrySelector(Completeness{}).Select(agg)
	assert.False(t, ok, "unregistered strategy")

	_, ok = NewRetrySelector(noBudget{}).Select(agg)
	assert.False(t, ok, "zero budget")
}

func loginContext() models.EARSContext {
	return ears.ContextFromContracts("REQ-1", []string{
		"AC-1: WHEN user submits login SHALL validate credentials within 200ms",
		"AC-2: IF credentials are invalid SHALL display error message",
	})
}

func TestBroadenContext(t *testing.T) {
	orig := loginContext()
	before := orig.Clone()
	agg := models.AggregateValidation{
		CriticalViolations: []models.ValidationVerdict{
			{
				Requirement: ears.Parse(orig.BehavioralContracts[0]),
				Explanation: "Trigger condition not addressed: user submits login",
			},
		},
	}

	got := BroadenContext{}.Enrich(orig, agg)

	assert.Equal(t, before, orig, "original must not change")
	assert.Equal(t, []string{
		"AC-1: WHEN user submits login SHALL validate credentials within 200ms",
		"AC-2: IF credentials are invalid SHALL display error message",
		"Enhanced: WHEN user submits login SHALL validate credentials within 200ms",
	}, got.BehavioralContracts)
	assert.Equal(t, models.KindEventTriggered, ears.Parse(got.BehavioralContracts[2]).Kind)
	assert.Subset(t, got.Minimal.Constraints, broadenConstraints)
	require.True(t, got.HasGuidance(StrategyBroadenContext))
	assert.Equal(t,
		`Example solution: Implement specific logic to address "Trigger condition not addressed: user submits login"`,
		got.Guidance[0].Examples["Trigger condition not addressed: user submits login"])

	assert.Equal(t, got, BroadenContext{}.Enrich(orig, agg), "same inputs, same result")
	assert.Equal(t, got, BroadenContext{}.Enrich(got, agg), "reapplying adds nothing")
}

func TestBehavioralGuidance(t *testing.T) {
	orig := loginContext()
	got := BehavioralGuidance{}.Enrich(orig, models.AggregateValidation{})

	assert.Equal(t, orig.BehavioralContracts, got.BehavioralContracts)
	require.Len(t, got.Guidance, 1)
	g := got.Guidance[0]
	assert.Len(t, g.Items, 4)
	assert.Len(t, g.Checkpoints, 4)
	assert.Equal(t,
		"Implementation approach for IF credentials are invalid: handle the condition, then display error message",
		g.Examples["AC-2"])
	assert.Equal(t, got, BehavioralGuidance{}.Enrich(got, models.AggregateValidation{}))
}

func TestCompleteness(t *testing.T) {
	got := Completeness{}.Enrich(loginContext(), models.AggregateValidation{})

	require.Len(t, got.Guidance, 1)
	assert.Equal(t, []string{
		"AC-1: Verify: validate credentials within 200ms (Test: WHEN user submits login)",
		"AC-2: Verify: display error message (Test: IF credentials are invalid)",
	}, got.Guidance[0].Checkpoints)
	assert.Contains(t, got.Guidance[0].Items, "Address every acceptance criterion explicitly")
}

func TestComplexityReduction(t *testing.T) {
	var contracts []string
	for _, id := range []string{"AC-1", "AC-2", "AC-3", "AC-4", "AC-5"} {
		contracts = append(contracts, id+": WHEN event "+id+" occurs SHALL handle "+id)
	}
	orig := ears.ContextFromContracts("REQ-9", contracts)
	orig.BehavioralContracts = append(orig.BehavioralContracts, "WHEN design event SHALL log it")

	got := ComplexityReduction{}.Enrich(orig, models.AggregateValidation{})

	require.Len(t, got.AcceptanceCriteria, 3)
	assert.Equal(t, "AC-3", got.AcceptanceCriteria[2].ID)
	assert.Equal(t, append(contracts[:3:3], "WHEN design event SHALL log it"), got.BehavioralContracts)
	assert.Len(t, orig.AcceptanceCriteria, 5)

	require.Len(t, got.Guidance, 1)
	assert.Equal(t, "Phase 1: AC-1 Simplified: handle AC-1 (core functionality only)", got.Guidance[0].Checkpoints[0])
	assert.Equal(t, got, ComplexityReduction{}.Enrich(got, models.AggregateValidation{}))
}

func TestComplexityReduction_NoCriteria(t *testing.T) {
	orig := models.EARSContext{BehavioralContracts: []string{"a", "b", "c", "d"}}
	got := ComplexityReduction{}.Enrich(orig, models.AggregateValidation{})
	assert.Equal(t, []string{"a", "b", "c"}, got.BehavioralContracts)
}

func TestWithGuidance_ReplacesSameStrategy(t *testing.T) {
	ctx := models.EARSContext{Guidance: []models.Guidance{{Strategy: "a"}, {Strategy: "b", Items: []string{"old"}}}}
	got := withGuidance(ctx, models.Guidance{Strategy: "b", Items: []string{"new"}})

	require.Len(t, got.Guidance, 2)
	assert.Equal(t, "a", got.Guidance[0].Strategy)
	assert.Equal(t, []string{"new"}, got.Guidance[1].Items)
}
