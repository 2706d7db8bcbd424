package delegation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ShayCichocki/delegator/internal/ears"
	"github.com/ShayCichocki/delegator/internal/transport"
	"github.com/ShayCichocki/delegator/internal/validation"
	"github.com/ShayCichocki/delegator/pkg/models"
)

// ErrNoAgent is returned when Delegate is called without an agent name.
var ErrNoAgent = errors.New("agent name is required")

// Orchestrator runs delegation sessions: one attempt, at most one enriched
// retry, then a fallback. Independent sessions may run concurrently; the
// Collector is the only state they share.
type Orchestrator struct {
	transport transport.Delegator
	validator *validation.Validator
	retry     *RetrySelector
	fallback  *FallbackSelector
	collector *Collector
	observer  Observer
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithValidator sets the validator used to score attempts.
func WithValidator(v *validation.Validator) OrchestratorOption {
	return func(o *Orchestrator) { o.validator = v }
}

// WithRetrySelector sets the retry strategy selector.
func WithRetrySelector(s *RetrySelector) OrchestratorOption {
	return func(o *Orchestrator) { o.retry = s }
}

// WithFallbackSelector sets the fallback strategy selector.
func WithFallbackSelector(s *FallbackSelector) OrchestratorOption {
	return func(o *Orchestrator) { o.fallback = s }
}

// WithCollector sets the metrics collector finished sessions are recorded to.
func WithCollector(c *Collector) OrchestratorOption {
	return func(o *Orchestrator) { o.collector = c }
}

// WithObserver sets the session event observer.
func WithObserver(obs Observer) OrchestratorOption {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator sets the session ID generator.
func WithIDGenerator(newID func() string) OrchestratorOption {
	return func(o *Orchestrator) { o.newID = newID }
}

// NewOrchestrator creates an orchestrator sending attempts through t.
func NewOrchestrator(t transport.Delegator, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		transport: t,
		retry:     NewRetrySelector(),
		fallback:  DefaultFallbackSelector(),
		collector: NewCollector(DefaultHistorySize),
		observer:  nopObserver{},
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     func() string { return "DEL-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.validator == nil {
		o.validator = validation.NewValidator(validation.WithLogger(o.logger))
	}
	return o
}

// Collector returns the metrics collector.
func (o *Orchestrator) Collector() *Collector {
	return o.collector
}

// Delegate runs a session to a terminal status. The returned error is
// reserved for invalid input; transport and fallback failures are reported
// through the session's Failed status and Error text.
func (o *Orchestrator) Delegate(ctx context.Context, agentName, task string, earsCtx models.EARSContext, opts Options) (*models.DelegationSession, error) {
	if agentName == "" {
		return nil, ErrNoAgent
	}

	session := &models.DelegationSession{
		ID:              o.newID(),
		AgentName:       agentName,
		Task:            task,
		OriginalContext: earsCtx.Clone(),
		Attempts:        []models.DelegationAttempt{},
		Status:          models.SessionInProgress,
		StartedAt:       o.now(),
	}
	log := o.logger.With(zap.String("session_id", session.ID), zap.String("agent", agentName))
	log.Info("delegation started", zap.Int("contracts", len(earsCtx.BehavioralContracts)))
	o.emit(session, Event{Type: EventSessionStarted, Message: task})

	first, err := o.attempt(ctx, session, earsCtx)
	if err != nil {
		return o.fail(session, log, err), nil
	}
	if first.Result == models.ResultPassed {
		return o.finish(session, log, models.SessionSuccess), nil
	}

	strategy, ok := o.retry.Select(first)
	if ok {
		session.RetryStrategy = strategy.Name()
		log.Info("retrying with enriched context",
			zap.String("strategy", strategy.Name()),
			zap.Int("score", first.Score),
		)
		o.emit(session, Event{Type: EventRetryChosen, Strategy: strategy.Name(), Message: strategy.Description()})

		second, err := o.attempt(ctx, session, strategy.Enrich(earsCtx, first))
		if err != nil {
			return o.fail(session, log, err), nil
		}
		if second.Result.Acceptable() {
			return o.finish(session, log, models.SessionSuccessAfterRetry), nil
		}
	}

	fb := o.fallback.Select(session, opts)
	session.FallbackStrategy = fb.Name()
	log.Info("falling back", zap.String("strategy", fb.Name()))
	o.emit(session, Event{Type: EventFallbackChosen, Strategy: fb.Name()})

	result, err := fb.Handle(session, opts)
	if err != nil {
		return o.fail(session, log, fmt.Errorf("fallback %s: %w", fb.Name(), err)), nil
	}
	session.FallbackResult = result
	return o.finish(session, log, models.SessionFallbackSuccess), nil
}

// attempt sends one prompt, validates the reply and appends the attempt to
// the session. A transport failure is still recorded as an attempt.
func (o *Orchestrator) attempt(ctx context.Context, session *models.DelegationSession, earsCtx models.EARSContext) (models.AggregateValidation, error) {
	index := len(session.Attempts) + 1
	prompt := ears.BuildPrompt(session.AgentName, session.Task, earsCtx)
	a := models.DelegationAttempt{
		Index:     index,
		Context:   earsCtx,
		Prompt:    prompt,
		StartedAt: o.now(),
	}
	o.emit(session, Event{Type: EventAttemptStarted, Attempt: index})

	resp, err := o.transport.Delegate(ctx, transport.Request{
		AgentName: session.AgentName,
		Task:      session.Task,
		Prompt:    prompt,
		Attempt:   index,
		Context:   earsCtx,
	})
	if err != nil {
		a.Duration = o.now().Sub(a.StartedAt)
		session.Attempts = append(session.Attempts, a)
		return models.AggregateValidation{}, fmt.Errorf("attempt %d: %w", index, err)
	}

	a.Output = resp.Output
	a.Validation = o.validator.ValidateContracts(resp.Output, earsCtx.BehavioralContracts)
	a.Duration = o.now().Sub(a.StartedAt)
	session.Attempts = append(session.Attempts, a)

	o.emit(session, Event{
		Type:    EventAttemptValidated,
		Attempt: index,
		Score:   a.Validation.Score,
		Result:  a.Validation.Result,
	})
	return a.Validation, nil
}

func (o *Orchestrator) fail(session *models.DelegationSession, log *zap.Logger, err error) *models.DelegationSession {
	session.Error = err.Error()
	log.Warn("delegation failed", zap.Error(err))
	return o.finish(session, log, models.SessionFailed)
}

func (o *Orchestrator) finish(session *models.DelegationSession, log *zap.Logger, status models.SessionStatus) *models.DelegationSession {
	session.Status = status
	session.Duration = o.now().Sub(session.StartedAt)
	o.collector.Record(session)

	var score int
	if last := session.LastAttempt(); last != nil {
		score = last.Validation.Score
	}
	log.Info("delegation finished",
		zap.String("status", string(status)),
		zap.Int("attempts", len(session.Attempts)),
		zap.Int("score", score),
		zap.Duration("duration", session.Duration),
	)

	ev := Event{Type: EventSessionFinished, Score: score, Message: session.Error}
	if session.Error != "" {
		ev.Error = errors.New(session.Error)
	}
	o.emit(session, ev)
	return session
}

func (o *Orchestrator) emit(session *models.DelegationSession, e Event) {
	e.SessionID = session.ID
	e.AgentName = session.AgentName
	e.Status = session.Status
	e.Timestamp = o.now()
	o.observer.Observe(e)
}
