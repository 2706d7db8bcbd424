package delegation

import (
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/delegator/pkg/models"
)

const (
	// DefaultHistorySize is the recent-history ring capacity.
	DefaultHistorySize = 20
	// maxFailureReasons bounds the failure-reason map.
	maxFailureReasons = 64
)

// HistoryEntry summarizes one finished session.
type HistoryEntry struct {
	SessionID string               `json:"session_id" yaml:"session_id"`
	AgentName string               `json:"agent_name" yaml:"agent_name"`
	Status    models.SessionStatus `json:"status" yaml:"status"`
	Attempts  int                  `json:"attempts" yaml:"attempts"`
	Scores    []int                `json:"scores" yaml:"scores"`
	Duration  time.Duration        `json:"duration" yaml:"duration"`
	Finished  time.Time            `json:"finished" yaml:"finished"`
}

// Metrics is a point-in-time copy of the collector.
type Metrics struct {
	TotalDelegations   int `json:"total_delegations" yaml:"total_delegations"`
	SuccessOnFirstTry  int `json:"success_on_first_try" yaml:"success_on_first_try"`
	SuccessAfterRetry  int `json:"success_after_retry" yaml:"success_after_retry"`
	FallbacksTriggered int `json:"fallbacks_triggered" yaml:"fallbacks_triggered"`
	Failed             int `json:"failed" yaml:"failed"`

	// Rates are percentages in [0,100].
	SuccessRate         float64 `json:"success_rate" yaml:"success_rate"`
	FirstTrySuccessRate float64 `json:"first_try_success_rate" yaml:"first_try_success_rate"`
	RetrySuccessRate    float64 `json:"retry_success_rate" yaml:"retry_success_rate"`
	FallbackRate        float64 `json:"fallback_rate" yaml:"fallback_rate"`

	AvgAttempts float64       `json:"avg_attempts" yaml:"avg_attempts"`
	AvgDuration time.Duration `json:"avg_duration" yaml:"avg_duration"`

	// FailureReasons is ranked most frequent first.
	FailureReasons     []models.FailureReason `json:"failure_reasons" yaml:"failure_reasons"`
	RetryStrategies    map[string]int         `json:"retry_strategies" yaml:"retry_strategies"`
	FallbackStrategies map[string]int         `json:"fallback_strategies" yaml:"fallback_strategies"`
	// RecentHistory is oldest first.
	RecentHistory []HistoryEntry `json:"recent_history" yaml:"recent_history"`
}

// Collector aggregates delegation outcomes across sessions. It is the only
// state shared between concurrent sessions. Safe for concurrent use.
type Collector struct {
	mu sync.Mutex

	total         int
	firstTry      int
	afterRetry    int
	fallbacks     int
	failed        int
	totalAttempts int
	totalDuration time.Duration

	failureReasons map[string]int
	retries        map[string]int
	fallbackUse    map[string]int

	history     []HistoryEntry
	historySize int
	next        int
}

// NewCollector creates a collector keeping the last historySize sessions.
// A non-positive size uses DefaultHistorySize.
func NewCollector(historySize int) *Collector {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	c := &Collector{historySize: historySize}
	c.resetLocked()
	return c
}

// Record adds a terminal session. Non-terminal sessions are ignored.
func (c *Collector) Record(s *models.DelegationSession) {
	if s == nil || !s.Status.Terminal() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.totalAttempts += len(s.Attempts)
	c.totalDuration += s.Duration

	switch s.Status {
	case models.SessionSuccess:
		c.firstTry++
	case models.SessionSuccessAfterRetry:
		c.afterRetry++
	case models.SessionFallbackSuccess:
		c.fallbacks++
	case models.SessionFailed:
		c.failed++
	}

	if s.RetryStrategy != "" {
		c.retries[s.RetryStrategy]++
	}
	if s.FallbackStrategy != "" {
		c.fallbackUse[s.FallbackStrategy]++
	}
	for _, a := range s.Attempts {
		for _, v := range a.Validation.CriticalViolations {
			c.addReasonLocked(v.Explanation)
		}
	}

	entry := HistoryEntry{
		SessionID: s.ID,
		AgentName: s.AgentName,
		Status:    s.Status,
		Attempts:  len(s.Attempts),
		Scores:    attemptScores(s.Attempts),
		Duration:  s.Duration,
		Finished:  s.StartedAt.Add(s.Duration),
	}
	if len(c.history) < c.historySize {
		c.history = append(c.history, entry)
	} else {
		c.history[c.next] = entry
	}
	c.next = (c.next + 1) % c.historySize
}

// addReasonLocked counts reason, evicting the least frequent reason when the
// map is full.
func (c *Collector) addReasonLocked(reason string) {
	if _, ok := c.failureReasons[reason]; !ok && len(c.failureReasons) >= maxFailureReasons {
		var victim string
		lowest := -1
		for r, n := range c.failureReasons {
			if lowest < 0 || n < lowest || (n == lowest && r < victim) {
				victim, lowest = r, n
			}
		}
		delete(c.failureReasons, victim)
	}
	c.failureReasons[reason]++
}

// Snapshot returns a copy of the current metrics.
func (c *Collector) Snapshot() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := Metrics{
		TotalDelegations:   c.total,
		SuccessOnFirstTry:  c.firstTry,
		SuccessAfterRetry:  c.afterRetry,
		FallbacksTriggered: c.fallbacks,
		Failed:             c.failed,
		RetryStrategies:    copyCounts(c.retries),
		FallbackStrategies: copyCounts(c.fallbackUse),
		FailureReasons:     make([]models.FailureReason, 0, len(c.failureReasons)),
		RecentHistory:      make([]HistoryEntry, 0, len(c.history)),
	}

	if c.total > 0 {
		m.SuccessRate = percent(c.firstTry+c.afterRetry, c.total)
		m.FirstTrySuccessRate = percent(c.firstTry, c.total)
		m.FallbackRate = percent(c.fallbacks, c.total)
		m.AvgAttempts = float64(c.totalAttempts) / float64(c.total)
		m.AvgDuration = c.totalDuration / time.Duration(c.total)
	}
	if retried := c.total - c.firstTry; retried > 0 {
		m.RetrySuccessRate = percent(c.afterRetry, retried)
	}

	for reason, n := range c.failureReasons {
		m.FailureReasons = append(m.FailureReasons, models.FailureReason{Reason: reason, Frequency: n})
	}
	sort.Slice(m.FailureReasons, func(i, j int) bool {
		a, b := m.FailureReasons[i], m.FailureReasons[j]
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.Reason < b.Reason
	})

	if len(c.history) < c.historySize {
		m.RecentHistory = append(m.RecentHistory, c.history...)
	} else {
		m.RecentHistory = append(m.RecentHistory, c.history[c.next:]...)
		m.RecentHistory = append(m.RecentHistory, c.history[:c.next]...)
	}
	for i := range m.RecentHistory {
		m.RecentHistory[i].Scores = append([]int(nil), m.RecentHistory[i].Scores...)
	}
	return m
}

// Reset clears all collected metrics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Collector) resetLocked() {
	c.total, c.firstTry, c.afterRetry, c.fallbacks, c.failed = 0, 0, 0, 0, 0
	c.totalAttempts = 0
	c.totalDuration = 0
	c.failureReasons = make(map[string]int)
	c.retries = make(map[string]int)
	c.fallbackUse = make(map[string]int)
	c.history = make([]HistoryEntry, 0, c.historySize)
	c.next = 0
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func percent(n, d int) float64 {
	return float64(n) / float64(d) * 100
}
