package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	PayoutRunOutcomeSuccess = "success"
	PayoutRunOutcomeSkipped = "skipped"
	PayoutRunOutcomeError   = "error"
)

// PayoutJobMetrics captures payout scheduler health signals.
type PayoutJobMetrics struct {
	runs           *prometheus.CounterVec
	runDuration    prometheus.Observer
	payoutsCreated prometheus.Counter
}

var (
	payoutMetricsOnce sync.Once
	payoutMetrics     *PayoutJobMetrics
)

// PayoutJob returns the singleton payout job metrics registry.
func PayoutJob() *PayoutJobMetrics {
	payoutMetricsOnce.Do(func() {
		payoutMetrics = newPayoutJobMetrics(prometheus.DefaultRegisterer)
	})
	return payoutMetrics
}

// ResetPayoutJobMetricsForTest resets the payout metrics singleton for tests.
func ResetPayoutJobMetricsForTest() {
	payoutMetricsOnce = sync.Once{}
	payoutMetrics = nil
}

func newPayoutJobMetrics(registerer prometheus.Registerer) *PayoutJobMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	return &PayoutJobMetrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "referra_payout_job_runs_total",
			Help: "Monthly payout job runs by outcome.",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "referra_payout_job_duration_seconds",
			Help:    "Monthly payout job run duration.",
			Buckets: prometheus.DefBuckets,
		}),
		payoutsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "referra_payout_job_payouts_created_total",
			Help: "Payouts created by the monthly payout job.",
		}),
	}
}

func (m *PayoutJobMetrics) RecordRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
}

func (m *PayoutJobMetrics) RecordPayoutsCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.payoutsCreated.Add(float64(n))
}
