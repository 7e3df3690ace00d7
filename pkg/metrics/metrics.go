package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	LinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "correlator_lines_total",
			Help: "Total number of input lines handled, by outcome (count)",
		},
		[]string{"outcome"},
	)

	LinesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "correlator_lines_written_total",
			Help: "Total number of lines written to the output stream (count)",
		},
	)

	ActiveTransactions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "correlator_active_transactions",
			Help: "Number of transactions currently held in the store (count)",
		},
	)

	TransactionsTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "correlator_transactions_triggered_total",
			Help: "Total number of transactions switched to passthrough by a flush rule (count)",
		},
	)

	TransactionsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "correlator_transactions_completed_total",
			Help: "Total number of transactions removed by a completion rule (count)",
		},
	)

	TransactionsEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "correlator_transactions_evicted_total",
			Help: "Total number of idle transactions dropped by a sweep (count)",
		},
	)

	RecordsDiscardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "correlator_records_discarded_total",
			Help: "Total number of buffered records dropped without being written (count)",
		},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "correlator_sweep_duration_ms",
			Help:    "Duration of idle transaction sweeps in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	EventQueueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "correlator_event_queue_size",
			Help: "Number of events waiting for the engine (count)",
		},
	)
)

var registerOnce sync.Once

// RegisterCorrelatorMetrics registers every collector with the default
// registry. Calling it more than once is harmless.
func RegisterCorrelatorMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(LinesTotal)
		prometheus.MustRegister(LinesWrittenTotal)
		prometheus.MustRegister(ActiveTransactions)
		prometheus.MustRegister(TransactionsTriggeredTotal)
		prometheus.MustRegister(TransactionsCompletedTotal)
		prometheus.MustRegister(TransactionsEvictedTotal)
		prometheus.MustRegister(RecordsDiscardedTotal)
		prometheus.MustRegister(SweepDuration)
		prometheus.MustRegister(EventQueueSize)
	})
}

func IncLines(outcome string) {
	LinesTotal.WithLabelValues(outcome).Inc()
}

func AddLinesWritten(n int) {
	LinesWrittenTotal.Add(float64(n))
}

func SetActiveTransactions(count int) {
	ActiveTransactions.Set(float64(count))
}

func IncTransactionsTriggered() {
	TransactionsTriggeredTotal.Inc()
}

func IncTransactionsCompleted() {
	TransactionsCompletedTotal.Inc()
}

// ObserveEviction records one swept transaction and the records it held.
func ObserveEviction(discarded int) {
	TransactionsEvictedTotal.Inc()
	RecordsDiscardedTotal.Add(float64(discarded))
}

func AddRecordsDiscarded(n int) {
	RecordsDiscardedTotal.Add(float64(n))
}

func ObserveSweepDuration(duration time.Duration) {
	SweepDuration.Observe(float64(duration.Microseconds()) / 1000)
}

func SetEventQueueSize(size int) {
	EventQueueSize.Set(float64(size))
}
