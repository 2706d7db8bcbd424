package delegation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEmitter(t *testing.T) {
	e := NewEventEmitter(1, nil)

	e.Observe(Event{Type: EventSessionStarted})
	e.Observe(Event{Type: EventSessionFinished})
	assert.Equal(t, uint64(1), e.DroppedCount())

	got := <-e.Events()
	assert.Equal(t, EventSessionStarted, got.Type)

	e.Close()
	_, ok := <-e.Events()
	assert.False(t, ok)
}

func TestEventEmitter_AsObserver(t *testing.T) {
	e := NewEventEmitter(16, nil)
	var obs Observer = e
	obs.Observe(Event{Type: EventRetryChosen, Strategy: StrategyCompleteness})

	select {
	case got := <-e.Events():
		require.Equal(t, EventRetryChosen, got.Type)
		assert.Equal(t, StrategyCompleteness, got.Strategy)
	default:
		t.Fatal("expected buffered event")
	}
}
