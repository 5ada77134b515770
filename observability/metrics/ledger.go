package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"shiftchain/core/events"
)

type LedgerMetrics struct {
	transactions         *prometheus.CounterVec
	latency              prometheus.Histogram
	accrualPairs         *prometheus.CounterVec
	rewardsMinted        prometheus.Counter
	slotsAccrued         prometheus.Counter
	employees            prometheus.Counter
	capacityReached      prometheus.Counter
	employersInitialized prometheus.Counter
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the lazily-initialised ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "shift",
				Subsystem: "runtime",
				Name:      "transactions_total",
				Help:      "Executed transactions segmented by outcome code.",
			}, []string{"status"}),
			latency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "shift",
				Subsystem: "runtime",
				Name:      "transaction_seconds",
				Help:      "Wall time spent executing a transaction.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			}),
			accrualPairs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "shift",
				Subsystem: "accrual",
				Name:      "pairs_total",
				Help:      "Employee pairs seen by settled shifts, by outcome.",
			}, []string{"outcome"}),
			rewardsMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "shift",
				Subsystem: "accrual",
				Name:      "rewards_minted_total",
				Help:      "Reward token base units minted by settled shifts.",
			}),
			slotsAccrued: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "shift",
				Subsystem: "accrual",
				Name:      "slots_total",
				Help:      "Slots credited to employees.",
			}),
			employees: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "shift",
				Subsystem: "lifecycle",
				Name:      "employees_registered_total",
				Help:      "Employee records allocated.",
			}),
			capacityReached: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "shift",
				Subsystem: "lifecycle",
				Name:      "employer_capacity_reached_total",
				Help:      "Employee creations skipped because the employer was full.",
			}),
			employersInitialized: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "shift",
				Subsystem: "lifecycle",
				Name:      "employers_initialized_total",
				Help:      "Employer records initialized.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.transactions,
			ledgerRegistry.latency,
			ledgerRegistry.accrualPairs,
			ledgerRegistry.rewardsMinted,
			ledgerRegistry.slotsAccrued,
			ledgerRegistry.employees,
			ledgerRegistry.capacityReached,
			ledgerRegistry.employersInitialized,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObserveTransaction(status string, seconds float64) {
	if m == nil {
		return
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = "unknown"
	}
	m.transactions.WithLabelValues(status).Inc()
	if seconds >= 0 {
		m.latency.Observe(seconds)
	}
}

// Emit implements events.Emitter so the registry can subscribe to committed
// ledger events.
func (m *LedgerMetrics) Emit(e events.Event) {
	if m == nil || e == nil {
		return
	}
	switch evt := e.(type) {
	case events.ShiftSettled:
		m.accrualPairs.WithLabelValues("processed").Add(float64(evt.Processed))
		m.accrualPairs.WithLabelValues("skipped").Add(float64(evt.Skipped))
		m.accrualPairs.WithLabelValues("idle").Add(float64(evt.Idle))
		m.rewardsMinted.Add(float64(evt.Amount))
		m.slotsAccrued.Add(float64(evt.Slots))
	case events.EmployeeRegistered:
		m.employees.Inc()
	case events.EmployerCapacityReached:
		m.capacityReached.Inc()
	case events.EmployerInitialized:
		m.employersInitialized.Inc()
	}
}
