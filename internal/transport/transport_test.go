package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/delegator/pkg/models"
)

func TestScripted(t *testing.T) {
	s := NewScripted("first", "second")
	ctx := context.Background()

	for _, want := range []string{"first", "second", "second"} {
		resp, err := s.Delegate(ctx, Request{AgentName: "dev"})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Output)
	}
	assert.Len(t, s.Requests(), 3)
}

func TestScripted_Errors(t *testing.T) {
	_, err := NewScripted().Delegate(context.Background(), Request{})
	assert.True(t, errors.Is(err, ErrTransport))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewScripted("x").Delegate(ctx, Request{})
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestDemo(t *testing.T) {
	ctx := models.EARSContext{
		AcceptanceCriteria: []models.AcceptanceCriterion{
			{ID: "AC-1", Kind: models.KindEventTriggered, Condition: "user submits login", Behavior: "validate credentials"},
		},
	}
	s := Demo(ctx)

	first, err := s.Delegate(context.Background(), Request{})
	require.NoError(t, err)
	second, err := s.Delegate(context.Background(), Request{})
	require.NoError(t, err)

	assert.NotContains(t, first.Output, "AC-1")
	assert.Contains(t, second.Output, "AC-1: WHEN user submits login, the system will validate credentials")
}

func TestDemoFunc(t *testing.T) {
	ctx := models.EARSContext{
		AcceptanceCriteria: []models.AcceptanceCriterion{
			{ID: "AC-1", Kind: models.KindEventTriggered, Condition: "user submits login", Behavior: "validate credentials"},
		},
	}
	d := DemoFunc()

	// Attempts are answered independently, so interleaved sessions agree.
	for i := 0; i < 2; i++ {
		first, err := d.Delegate(context.Background(), Request{Attempt: 1, Context: ctx})
		require.NoError(t, err)
		assert.Equal(t, DemoReply(ctx, 1), first.Output)
	}
	second, err := d.Delegate(context.Background(), Request{Attempt: 2, Context: ctx})
	require.NoError(t, err)
	assert.Contains(t, second.Output, "AC-1")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Delegate(cancelled, Request{Attempt: 1})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestFunc(t *testing.T) {
	var d Delegator = Func(func(_ context.Context, req Request) (Response, error) {
		return Response{Output: req.Prompt}, nil
	})
	resp, err := d.Delegate(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Output)
}

func TestNewAnthropic_NoAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewAnthropic(Config{}, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestNewAnthropic_Defaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-test-key")

	d, err := NewAnthropic(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, anthropic.ModelClaudeSonnet4_5_20250929, d.Model())
	assert.Equal(t, int64(defaultMaxTokens), d.maxTokens)
	assert.NotNil(t, d.Usage())
}

func TestBedrockModel(t *testing.T) {
	tests := []struct {
		in   anthropic.Model
		want anthropic.Model
	}{
		{anthropic.ModelClaudeSonnet4_5_20250929, "us.anthropic.claude-sonnet-4-5-20250929-v1:0"},
		{"us.anthropic.custom-v1:0", "us.anthropic.custom-v1:0"},
		{"custom-model", "custom-model"},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, BedrockModel(tt.in))
		})
	}
}

func TestUsageLedger(t *testing.T) {
	l := NewUsageLedger()
	l.Record(Request{AgentName: "backend-dev", Attempt: 1}, 1_000_000, 250_000)
	l.Record(Request{AgentName: "backend-dev", Attempt: 2}, 0, 750_000)

	in, out := l.Totals()
	assert.Equal(t, int64(1_000_000), in)
	assert.Equal(t, int64(1_000_000), out)
	assert.InDelta(t, 18.0, SonnetPricing.Cost(in, out), 0.0001)
	assert.InDelta(t, 0.75, l.RetryShare(), 0.0001)

	attempts := l.Attempts()
	require.Len(t, attempts, 2)
	assert.Equal(t, AttemptUsage{Agent: "backend-dev", Attempt: 2, OutputTokens: 750_000}, attempts[1])

	attempts[0].InputTokens = 0
	in, _ = l.Totals()
	assert.Equal(t, int64(1_000_000), in)
}

func TestUsageLedger_Empty(t *testing.T) {
	l := NewUsageLedger()
	assert.Empty(t, l.Attempts())
	assert.Zero(t, l.RetryShare())
}

func TestSystemPrompt(t *testing.T) {
	assert.Contains(t, SystemPrompt("backend-dev"), "You are @backend-dev")
}
