package delegation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Exporter publishes a Collector's snapshot as Prometheus metrics. Values
// are read at scrape time, so Reset is reflected immediately.
//
// Metrics:
//   - delegator_delegations_total{status} - sessions by terminal status
//   - delegator_attempts_avg - mean attempts per session
//   - delegator_session_duration_avg_seconds - mean session duration
//   - delegator_success_rate_percent - first try plus after retry
//   - delegator_retry_strategy_total{strategy} - retry strategy selections
//   - delegator_fallback_strategy_total{strategy} - fallback selections
//   - delegator_failure_reasons - distinct failure reasons tracked
type Exporter struct {
	collector *Collector

	delegations  *prometheus.Desc
	avgAttempts  *prometheus.Desc
	avgDuration  *prometheus.Desc
	successRate  *prometheus.Desc
	retryUse     *prometheus.Desc
	fallbackUse  *prometheus.Desc
	reasonsCount *prometheus.Desc
}

// NewExporter creates an exporter over c.
func NewExporter(c *Collector) *Exporter {
	return &Exporter{
		collector: c,
		delegations: prometheus.NewDesc("delegator_delegations_total",
			"Total delegation sessions by terminal status", []string{"status"}, nil),
		avgAttempts: prometheus.NewDesc("delegator_attempts_avg",
			"Mean attempts per delegation session", nil, nil),
		avgDuration: prometheus.NewDesc("delegator_session_duration_avg_seconds",
			"Mean delegation session duration in seconds", nil, nil),
		successRate: prometheus.NewDesc("delegator_success_rate_percent",
			"Percentage of sessions that succeeded with or without retry", nil, nil),
		retryUse: prometheus.NewDesc("delegator_retry_strategy_total",
			"Retry strategy selections", []string{"strategy"}, nil),
		fallbackUse: prometheus.NewDesc("delegator_fallback_strategy_total",
			"Fallback strategy selections", []string{"strategy"}, nil),
		reasonsCount: prometheus.NewDesc("delegator_failure_reasons",
			"Distinct failure reasons currently tracked", nil, nil),
	}
}

// Register registers a new exporter for c with reg.
func Register(reg prometheus.Registerer, c *Collector) (*Exporter, error) {
	e := NewExporter(c)
	if err := reg.Register(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.delegations
	ch <- e.avgAttempts
	ch <- e.avgDuration
	ch <- e.successRate
	ch <- e.retryUse
	ch <- e.fallbackUse
	ch <- e.reasonsCount
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	m := e.collector.Snapshot()

	for status, n := range map[string]int{
		"success":             m.SuccessOnFirstTry,
		"success_after_retry": m.SuccessAfterRetry,
		"fallback_success":    m.FallbacksTriggered,
		"failed":              m.Failed,
	} {
		ch <- prometheus.MustNewConstMetric(e.delegations, prometheus.CounterValue, float64(n), status)
	}
	ch <- prometheus.MustNewConstMetric(e.avgAttempts, prometheus.GaugeValue, m.AvgAttempts)
	ch <- prometheus.MustNewConstMetric(e.avgDuration, prometheus.GaugeValue, m.AvgDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(e.successRate, prometheus.GaugeValue, m.SuccessRate)
	for name, n := range m.RetryStrategies {
		ch <- prometheus.MustNewConstMetric(e.retryUse, prometheus.CounterValue, float64(n), name)
	}
	for name, n := range m.FallbackStrategies {
		ch <- prometheus.MustNewConstMetric(e.fallbackUse, prometheus.CounterValue, float64(n), name)
	}
	ch <- prometheus.MustNewConstMetric(e.reasonsCount, prometheus.GaugeValue, float64(len(m.FailureReasons)))
}
