package ears

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ShayCichocki/delegator/pkg/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		id       string
		kind     models.RequirementKind
		trigger  string
		behavior string
	}{
		{
			name:     "event with id",
			raw:      "AC-1: WHEN user submits login SHALL validate credentials within 200ms",
			id:       "AC-1",
			kind:     models.KindEventTriggered,
			trigger:  "user submits login",
			behavior: "validate credentials within 200ms",
		},
		{
			name:     "continuous lower case",
			raw:      "while user session is active, system shall maintain authentication state",
			kind:     models.KindContinuous,
			trigger:  "user session is active, system",
			behavior: "maintain authentication state",
		},
		{
			name:     "conditional",
			raw:      "IF authentication fails, system SHALL display specific error message.",
			kind:     models.KindConditional,
			trigger:  "authentication fails, system",
			behavior: "display specific error message",
		},
		{
			name:     "boundary with annotation block",
			raw:      "WHERE invalid tokens are provided SHALL return 401 unauthorized {priority: high}",
			kind:     models.KindBoundary,
			trigger:  "invalid tokens are provided",
			behavior: "return 401 unauthorized",
		},
		{
			name:     "dotted id",
			raw:      "REQ.2-a: WHEN cache misses SHALL read from disk",
			id:       "REQ.2-a",
			kind:     models.KindEventTriggered,
			trigger:  "cache misses",
			behavior: "read from disk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			assert.Equal(t, tt.id, got.ID)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.trigger, got.Trigger)
			assert.Equal(t, tt.behavior, got.Behavior)
			assert.Equal(t, tt.raw, got.Raw)
			assert.True(t, got.Parsable())
		})
	}
}

func TestParse_Unparsable(t *testing.T) {
	tests := []string{
		"",
		"The system must be fast",
		"WHEN something happens",
		"SHALL do a thing",
		"UNLESS offline SHALL queue requests",
		"WHEN SHALL respond",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			got := Parse(raw)
			assert.Equal(t, models.KindUnknown, got.Kind)
			assert.False(t, got.Parsable())
			assert.Equal(t, raw, got.Raw)
		})
	}
}

func TestParseAll(t *testing.T) {
	contracts := []string{
		"WHEN a SHALL b",
		"nonsense",
	}
	set := ParseAll(contracts)

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, contracts, set.Contracts)
	assert.Equal(t, models.KindEventTriggered, set.Statements[0].Kind)
	assert.Equal(t, models.KindUnknown, set.Statements[1].Kind)

	contracts[0] = "changed"
	assert.Equal(t, "WHEN a SHALL b", set.Contracts[0])
}
