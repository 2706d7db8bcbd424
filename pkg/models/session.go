package models

import "time"

// SessionStatus is the lifecycle state of a delegation session.
type SessionStatus string

const (
	// SessionInProgress is the only non-terminal status.
	SessionInProgress SessionStatus = "IN_PROGRESS"
	// SessionSuccess means the first attempt passed validation.
	SessionSuccess SessionStatus = "SUCCESS"
	// SessionSuccessAfterRetry means the retry attempt was acceptable.
	SessionSuccessAfterRetry SessionStatus = "SUCCESS_AFTER_RETRY"
	// SessionFallbackSuccess means a fallback handler produced a hand-off.
	SessionFallbackSuccess SessionStatus = "FALLBACK_SUCCESS"
	// SessionFailed means a transport or fallback error ended the session.
	SessionFailed SessionStatus = "FAILED"
)

// Valid returns true if the status is a known value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionInProgress, SessionSuccess, SessionSuccessAfterRetry, SessionFallbackSuccess, SessionFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status ends the session.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionSuccess, SessionSuccessAfterRetry, SessionFallbackSuccess, SessionFailed:
		return true
	default:
		return false
	}
}

// DelegationAttempt is one transport call plus its validation.
type DelegationAttempt struct {
	// Index is 1-based.
	Index      int                 `json:"index" yaml:"index"`
	Context    EARSContext         `json:"context" yaml:"context"`
	Prompt     string              `json:"prompt" yaml:"prompt"`
	Output     string              `json:"output" yaml:"output"`
	Validation AggregateValidation `json:"validation" yaml:"validation"`
	StartedAt  time.Time           `json:"started_at" yaml:"started_at"`
	Duration   time.Duration       `json:"duration" yaml:"duration"`
}

// FailureReason is a violation explanation with its occurrence count.
type FailureReason struct {
	Reason    string `json:"reason" yaml:"reason"`
	Frequency int    `json:"frequency" yaml:"frequency"`
}

// FallbackResult is the package produced by a fallback handler.
type FallbackResult struct {
	// Strategy is the fallback strategy name.
	Strategy string `json:"strategy" yaml:"strategy"`
	// Mode is DIRECT, ESCALATION or SIMPLIFIED.
	Mode    string `json:"mode" yaml:"mode"`
	Message string `json:"message" yaml:"message"`
	// TargetAgent is set for simplified delegation.
	TargetAgent string `json:"target_agent,omitempty" yaml:"target_agent,omitempty"`
	// Urgency is set for human escalation.
	Urgency string `json:"urgency,omitempty" yaml:"urgency,omitempty"`
	// Context is the context the hand-off carries forward.
	Context        EARSContext     `json:"context" yaml:"context"`
	Guidance       []string        `json:"guidance,omitempty" yaml:"guidance,omitempty"`
	NextSteps      []string        `json:"next_steps,omitempty" yaml:"next_steps,omitempty"`
	CommonFailures []FailureReason `json:"common_failures,omitempty" yaml:"common_failures,omitempty"`
	// AttemptScores lists each attempt's score in order.
	AttemptScores []int `json:"attempt_scores,omitempty" yaml:"attempt_scores,omitempty"`
	// RetryEffectiveness is attempt 2 score minus attempt 1 score, 0 without a retry.
	RetryEffectiveness int       `json:"retry_effectiveness" yaml:"retry_effectiveness"`
	Limitations        []string  `json:"limitations,omitempty" yaml:"limitations,omitempty"`
	CreatedAt          time.Time `json:"created_at" yaml:"created_at"`
}

// DelegationSession is the unit of work for one delegation request.
// It is owned by the orchestrator until its status is terminal.
type DelegationSession struct {
	ID               string              `json:"id" yaml:"id"`
	AgentName        string              `json:"agent_name" yaml:"agent_name"`
	Task             string              `json:"task" yaml:"task"`
	OriginalContext  EARSContext         `json:"original_context" yaml:"original_context"`
	Attempts         []DelegationAttempt `json:"attempts" yaml:"attempts"`
	Status           SessionStatus       `json:"status" yaml:"status"`
	RetryStrategy    string              `json:"retry_strategy,omitempty" yaml:"retry_strategy,omitempty"`
	FallbackStrategy string              `json:"fallback_strategy,omitempty" yaml:"fallback_strategy,omitempty"`
	FallbackResult   *FallbackResult     `json:"fallback_result,omitempty" yaml:"fallback_result,omitempty"`
	Error            string              `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt        time.Time           `json:"started_at" yaml:"started_at"`
	Duration         time.Duration       `json:"duration" yaml:"duration"`
}

// LastAttempt returns the most recent attempt, or nil if none was made.
func (s *DelegationSession) LastAttempt() *DelegationAttempt {
	if len(s.Attempts) == 0 {
		return nil
	}
	return &s.Attempts[len(s.Attempts)-1]
}
