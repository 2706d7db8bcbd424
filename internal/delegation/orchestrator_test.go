package delegation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/delegator/internal/transport"
	"github.com/ShayCichocki/delegator/pkg/models"
)

const (
	passingOutput = "When user submits login, system validates credentials within 200ms. " +
		"If credentials are invalid we display an error message."
	failingOutput = "The system shows a welcome banner."
)

func newTestOrchestrator(t transport.Delegator, opts ...OrchestratorOption) *Orchestrator {
	opts = append([]OrchestratorOption{WithIDGenerator(func() string { return "DEL-test" })}, opts...)
	return NewOrchestrator(t, opts...)
}

func TestDelegate_FirstAttemptPasses(t *testing.T) {
	tr := transport.NewScripted(passingOutput)
	o := newTestOrchestrator(tr)

	s, err := o.Delegate(context.Background(), "backend-dev", "implement login", loginContext(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, models.SessionSuccess, s.Status)
	require.Len(t, s.Attempts, 1)
	assert.Equal(t, 100, s.Attempts[0].Validation.Score)
	assert.Empty(t, s.RetryStrategy)
	assert.Empty(t, s.FallbackStrategy)
	assert.Equal(t, "DEL-test", s.ID)
	assert.Contains(t, tr.Requests()[0].Prompt, "@backend-dev")
}

func TestDelegate_SuccessAfterRetry(t *testing.T) {
	tr := transport.NewScripted(failingOutput, passingOutput)
	o := newTestOrchestrator(tr)

	s, err := o.Delegate(context.Background(), "backend-dev", "implement login", loginContext(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, models.SessionSuccessAfterRetry, s.Status)
	require.Len(t, s.Attempts, 2)
	assert.Equal(t, models.ResultFailed, s.Attempts[0].Validation.Result)
	assert.True(t, s.Attempts[1].Validation.Result.Acceptable())
	assert.Equal(t, StrategyBroadenContext, s.RetryStrategy)
	assert.True(t, s.Attempts[1].Context.HasGuidance(StrategyBroadenContext))
	assert.False(t, s.OriginalContext.HasGuidance(StrategyBroadenContext))
	assert.Contains(t, tr.Requests()[1].Prompt, "Retry Guidance")
}

func TestDelegate_Fallbacks(t *testing.T) {
	tests := []struct {
		opts     Options
		strategy string
		mode     string
	}{
		{DefaultOptions(), FallbackDirectImplementation, ModeDirect},
		{Options{AllowHumanEscalation: true}, FallbackHumanEscalation, ModeEscalation},
		{Options{}, FallbackSimplifiedDelegation, ModeSimplified},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			o := newTestOrchestrator(transport.NewScripted(failingOutput))

			s, err := o.Delegate(context.Background(), "backend-dev", "implement login", loginContext(), tt.opts)
			require.NoError(t, err)

			assert.Equal(t, models.SessionFallbackSuccess, s.Status)
			assert.Len(t, s.Attempts, 2)
			assert.Equal(t, tt.strategy, s.FallbackStrategy)
			require.NotNil(t, s.FallbackResult)
			assert.Equal(t, tt.mode, s.FallbackResult.Mode)
		})
	}
}

func TestDelegate_NoRetryStrategy(t *testing.T) {
	o := newTestOrchestrator(transport.NewScripted(failingOutput), WithRetrySelector(NewRetrySelector(Completeness{})))

	s, err := o.Delegate(context.Background(), "backend-dev", "implement login", loginContext(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, models.SessionFallbackSuccess, s.Status)
	assert.Len(t, s.Attempts, 1)
	assert.Empty(t, s.RetryStrategy)
}

func TestDelegate_TransportError(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("first attempt", func(t *testing.T) {
		calls := 0
		tr := transport.Func(func(context.Context, transport.Request) (transport.Response, error) {
			calls++
			return transport.Response{}, fmt.Errorf("%w: %v", transport.ErrTransport, boom)
		})
		s, err := newTestOrchestrator(tr).Delegate(context.Background(), "dev", "task", loginContext(), DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, models.SessionFailed, s.Status)
		assert.Equal(t, 1, calls, "transport errors are never retried")
		assert.Len(t, s.Attempts, 1)
		assert.Contains(t, s.Error, "connection reset")
		assert.Empty(t, s.FallbackStrategy)
	})

	t.Run("retry attempt", func(t *testing.T) {
		calls := 0
		tr := transport.Func(func(context.Context, transport.Request) (transport.Response, error) {
			calls++
			if calls == 2 {
				return transport.Response{}, boom
			}
			return transport.Response{Output: failingOutput}, nil
		})
		s, err := newTestOrchestrator(tr).Delegate(context.Background(), "dev", "task", loginContext(), DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, models.SessionFailed, s.Status)
		assert.Len(t, s.Attempts, 2)
		assert.Equal(t, StrategyBroadenContext, s.RetryStrategy)
		assert.Contains(t, s.Error, "attempt 2")
	})
}

func TestDelegate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := newTestOrchestrator(transport.NewScripted(passingOutput)).Delegate(ctx, "dev", "task", loginContext(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, s.Status)
}

type failingFallback struct{}

func (failingFallback) Name() string { return "broken" }

func (failingFallback) Handle(*models.DelegationSession, Options) (*models.FallbackResult, error) {
	return nil, errors.New("handler exploded")
}

func TestDelegate_FallbackError(t *testing.T) {
	sel := DefaultFallbackSelector()
	sel.Direct = failingFallback{}
	o := newTestOrchestrator(transport.NewScripted(failingOutput), WithFallbackSelector(sel))

	s, err := o.Delegate(context.Background(), "dev", "task", loginContext(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, models.SessionFailed, s.Status)
	assert.Equal(t, "broken", s.FallbackStrategy)
	assert.Nil(t, s.FallbackResult)
	assert.Contains(t, s.Error, "handler exploded")
}

func TestDelegate_NoAgent(t *testing.T) {
	_, err := newTestOrchestrator(transport.NewScripted(passingOutput)).Delegate(context.Background(), "", "task", loginContext(), DefaultOptions())
	assert.ErrorIs(t, err, ErrNoAgent)
}

func TestDelegate_Events(t *testing.T) {
	var (
		mu     sync.Mutex
		events []EventType
	)
	obs := ObserverFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e.Type)
		assert.Equal(t, "DEL-test", e.SessionID)
	})
	o := newTestOrchestrator(transport.NewScripted(failingOutput), WithObserver(obs))

	_, err := o.Delegate(context.Background(), "dev", "task", loginContext(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []EventType{
		EventSessionStarted,
		EventAttemptStarted,
		EventAttemptValidated,
		EventRetryChosen,
		EventAttemptStarted,
		EventAttemptValidated,
		EventFallbackChosen,
		EventSessionFinished,
	}, events)
}

func TestDelegate_ConcurrentSessionsShareCollector(t *testing.T) {
	c := NewCollector(5)
	o := NewOrchestrator(transport.NewScripted(passingOutput), WithCollector(c))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Delegate(context.Background(), "dev", "task", loginContext(), DefaultOptions())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	m := o.Collector().Snapshot()
	assert.Equal(t, 20, m.TotalDelegations)
	assert.Equal(t, 20, m.SuccessOnFirstTry)
	assert.Len(t, m.RecentHistory, 5)
}

func TestDelegate_EmptyContractsPass(t *testing.T) {
	s, err := newTestOrchestrator(transport.NewScripted("anything")).Delegate(context.Background(), "dev", "task", models.EARSContext{}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, models.SessionSuccess, s.Status)
}
