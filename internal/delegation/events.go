package delegation

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/delegator/pkg/models"
)

// EventType represents the type of session event.
type EventType string

const (
	// EventSessionStarted indicates a session has been created.
	EventSessionStarted EventType = "session_started"
	// EventAttemptStarted indicates a transport call is about to be made.
	EventAttemptStarted EventType = "attempt_started"
	// EventAttemptValidated indicates an attempt's output has been scored.
	EventAttemptValidated EventType = "attempt_validated"
	// EventRetryChosen indicates a retry strategy was selected.
	EventRetryChosen EventType = "retry_chosen"
	// EventFallbackChosen indicates a fallback strategy was selected.
	EventFallbackChosen EventType = "fallback_chosen"
	// EventSessionFinished indicates the session reached a terminal status.
	EventSessionFinished EventType = "session_finished"
)

// Event is emitted by the orchestrator as a session progresses.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// SessionID is the ID of the related session.
	SessionID string
	// AgentName is the delegate the session targets.
	AgentName string
	// Attempt is the 1-based attempt index, 0 when not attempt-scoped.
	Attempt int
	// Strategy names the retry or fallback strategy for strategy events.
	Strategy string
	// Score is the validation score for attempt_validated events.
	Score int
	// Result is the validation result for attempt_validated events.
	Result models.OverallResult
	// Status is the session status at emission time.
	Status models.SessionStatus
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Observer receives session events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// EventEmitter is an Observer that buffers events on a channel for a
// single subscriber such as the TUI.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	logger       *zap.Logger
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int, logger *zap.Logger) *EventEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventEmitter{
		events: make(chan Event, bufferSize),
		logger: logger,
	}
}

// Observe sends an event to the channel.
// If the channel is full, it waits briefly before dropping the event.
func (e *EventEmitter) Observe(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			e.logger.Warn("event channel full, dropped event",
				zap.Uint64("dropped", count),
				zap.String("type", string(event.Type)),
			)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. No Observe calls may follow.
func (e *EventEmitter) Close() {
	close(e.events)
}
