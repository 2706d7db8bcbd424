package validation

import (
	"sync"
	"time"

	"github.com/ShayCichocki/delegator/pkg/models"
)

// historySize is how many recent validations Stats keeps.
const historySize = 10

// HistoryEntry summarises one past validation.
type HistoryEntry struct {
	Timestamp     time.Time            `json:"timestamp"`
	Result        models.OverallResult `json:"result"`
	Score         int                  `json:"score"`
	ContractCount int                  `json:"contract_count"`
	Duration      time.Duration        `json:"duration"`
}

// StatsSnapshot is a point-in-time copy of validator metrics.
type StatsSnapshot struct {
	Validations      int            `json:"validations"`
	AvgDuration      time.Duration  `json:"avg_duration"`
	PassRate         float64        `json:"pass_rate"`
	ViolationsByKind map[string]int `json:"violations_by_kind"`
	History          []HistoryEntry `json:"history"`
}

// Stats accumulates validation metrics across calls.
type Stats struct {
	mu          sync.Mutex
	validations int
	passed      int
	total       time.Duration
	byKind      map[string]int
	history     []HistoryEntry
}

// NewStats creates empty stats.
func NewStats() *Stats {
	return &Stats{byKind: make(map[string]int)}
}

func (s *Stats) record(agg models.AggregateValidation, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.validations++
	s.total += d
	if agg.Result == models.ResultPassed {
		s.passed++
	}
	for _, v := range agg.CriticalViolations {
		s.byKind[string(v.Requirement.Kind)]++
	}

	s.history = append(s.history, HistoryEntry{
		Timestamp:     agg.Timestamp,
		Result:        agg.Result,
		Score:         agg.Score,
		ContractCount: agg.Total(),
		Duration:      d,
	})
	if len(s.history) > historySize {
		s.history = append([]HistoryEntry(nil), s.history[len(s.history)-historySize:]...)
	}
}

// Snapshot returns a copy of the current metrics.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := StatsSnapshot{
		Validations:      s.validations,
		ViolationsByKind: make(map[string]int, len(s.byKind)),
		History:          append([]HistoryEntry(nil), s.history...),
	}
	if s.validations > 0 {
		out.AvgDuration = s.total / time.Duration(s.validations)
		out.PassRate = float64(s.passed) / float64(s.validations)
	}
	for k, n := range s.byKind {
		out.ViolationsByKind[k] = n
	}
	return out
}

// Reset clears all metrics.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validations = 0
	s.passed = 0
	s.total = 0
	s.byKind = make(map[string]int)
	s.history = nil
}
