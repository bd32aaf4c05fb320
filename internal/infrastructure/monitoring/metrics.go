package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	PaymentsTotal             *prometheus.CounterVec
	EligibilityDecisionsTotal *prometheus.CounterVec
	LoanTransitionsTotal      *prometheus.CounterVec
	LedgerDriftRepairedTotal  prometheus.Counter
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sacco_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sacco_payments_total",
				Help: "Total number of payment recording attempts by outcome.",
			},
			[]string{"status"},
		),
		EligibilityDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sacco_eligibility_decisions_total",
				Help: "Total number of eligibility evaluations by outcome reason.",
			},
			[]string{"reason"},
		),
		LoanTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sacco_loan_transitions_total",
				Help: "Total number of loan status transitions.",
			},
			[]string{"from", "to"},
		),
		LedgerDriftRepairedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sacco_ledger_drift_repaired_total",
				Help: "Number of loans whose cached paid amount was repaired by the reconciliation job.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordEligibilityDecision(reason string) {
	if reason == "" {
		reason = "eligible"
	}
	Business.EligibilityDecisionsTotal.WithLabelValues(reason).Inc()
}

func RecordLoanTransition(from, to string) {
	Business.LoanTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordLedgerDriftRepaired() {
	Business.LedgerDriftRepairedTotal.Inc()
}
