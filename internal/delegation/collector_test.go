package delegation

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/delegator/pkg/models"
)

func finished(id string, status models.SessionStatus, attempts ...models.DelegationAttempt) *models.DelegationSession {
	return &models.DelegationSession{
		ID:        id,
		AgentName: "dev",
		Status:    status,
		Attempts:  attempts,
		Duration:  time.Second,
	}
}

func TestCollector_Rates(t *testing.T) {
	c := NewCollector(0)

	c.Record(finished("1", models.SessionSuccess, attemptWith(100)))
	s := finished("2", models.SessionSuccessAfterRetry, attemptWith(0, "x"), attemptWith(100))
	s.RetryStrategy = StrategyBroadenContext
	c.Record(s)
	s = finished("3", models.SessionFallbackSuccess, attemptWith(0, "x"), attemptWith(0, "x", "y"))
	s.RetryStrategy = StrategyBroadenContext
	s.FallbackStrategy = FallbackDirectImplementation
	c.Record(s)
	c.Record(finished("4", models.SessionFailed, attemptWith(0)))
	c.Record(finished("5", models.SessionInProgress))

	m := c.Snapshot()
	assert.Equal(t, 4, m.TotalDelegations)
	assert.Equal(t, 1, m.SuccessOnFirstTry)
	assert.Equal(t, 1, m.SuccessAfterRetry)
	assert.Equal(t, 1, m.FallbacksTriggered)
	assert.Equal(t, 1, m.Failed)
	assert.InDelta(t, 50.0, m.SuccessRate, 0.001)
	assert.InDelta(t, 25.0, m.FirstTrySuccessRate, 0.001)
	assert.InDelta(t, 100.0/3, m.RetrySuccessRate, 0.001)
	assert.InDelta(t, 25.0, m.FallbackRate, 0.001)
	assert.InDelta(t, 1.5, m.AvgAttempts, 0.001)
	assert.Equal(t, time.Second, m.AvgDuration)
	assert.Equal(t, map[string]int{StrategyBroadenContext: 2}, m.RetryStrategies)
	assert.Equal(t, map[string]int{FallbackDirectImplementation: 1}, m.FallbackStrategies)
	assert.Equal(t, []models.FailureReason{{Reason: "x", Frequency: 3}, {Reason: "y", Frequency: 1}}, m.FailureReasons)
	assert.Equal(t, DefaultHistorySize, c.historySize)
}

func TestCollector_HistoryRing(t *testing.T) {
	c := NewCollector(3)
	for i := 1; i <= 5; i++ {
		c.Record(finished(fmt.Sprint(i), models.SessionSuccess, attemptWith(100)))
	}

	var ids []string
	for _, h := range c.Snapshot().RecentHistory {
		ids = append(ids, h.SessionID)
	}
	assert.Equal(t, []string{"3", "4", "5"}, ids)
}

func TestCollector_FailureReasonsBounded(t *testing.T) {
	c := NewCollector(1)

	var reasons []string
	for i := 0; i < maxFailureReasons; i++ {
		reasons = append(reasons, fmt.Sprintf("reason-%02d", i))
	}
	// Every reason but reason-00 is seen twice.
	c.Record(finished("a", models.SessionFailed, attemptWith(0, reasons...)))
	c.Record(finished("b", models.SessionFailed, attemptWith(0, reasons[1:]...)))
	c.Record(finished("c", models.SessionFailed, attemptWith(0, "new")))

	m := c.Snapshot()
	require.Len(t, m.FailureReasons, maxFailureReasons)
	for _, r := range m.FailureReasons {
		assert.NotEqual(t, "reason-00", r.Reason)
	}
	assert.Equal(t, models.FailureReason{Reason: "new", Frequency: 1}, m.FailureReasons[len(m.FailureReasons)-1])
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector(2)
	c.Record(finished("1", models.SessionFailed, attemptWith(0, "x")))
	c.Reset()

	m := c.Snapshot()
	assert.Zero(t, m.TotalDelegations)
	assert.Empty(t, m.FailureReasons)
	assert.Empty(t, m.RecentHistory)
	assert.Zero(t, m.SuccessRate)
}

func TestCollector_SnapshotIsCopy(t *testing.T) {
	c := NewCollector(2)
	c.Record(finished("1", models.SessionSuccess, attemptWith(100)))

	m := c.Snapshot()
	m.RecentHistory[0].Scores[0] = -1
	m.RetryStrategies["x"] = 9

	again := c.Snapshot()
	assert.Equal(t, []int{100}, again.RecentHistory[0].Scores)
	assert.Empty(t, again.RetryStrategies)
}

func TestExporter(t *testing.T) {
	c := NewCollector(2)
	s := finished("1", models.SessionFallbackSuccess, attemptWith(0, "x"), attemptWith(0, "x"))
	s.RetryStrategy = StrategyBroadenContext
	s.FallbackStrategy = FallbackHumanEscalation
	c.Record(s)

	reg := prometheus.NewRegistry()
	_, err := Register(reg, c)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			key := f.GetName()
			for _, l := range m.GetLabel() {
				key += "/" + l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				byName[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				byName[key] = m.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, 1.0, byName["delegator_delegations_total/fallback_success"])
	assert.Equal(t, 0.0, byName["delegator_delegations_total/success"])
	assert.Equal(t, 2.0, byName["delegator_attempts_avg"])
	assert.Equal(t, 1.0, byName["delegator_retry_strategy_total/broaden_context"])
	assert.Equal(t, 1.0, byName["delegator_fallback_strategy_total/human_escalation"])
	assert.Equal(t, 1.0, byName["delegator_failure_reasons"])

	_, err = Register(reg, c)
	assert.Error(t, err, "duplicate registration")
}
