package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quietlog/internal/constants"
)

func read(t *testing.T, m prometheus.Metric) *dto.Metric {
	t.Helper()
	out := &dto.Metric{}
	require.NoError(t, m.Write(out))
	return out
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	return read(t, c).GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	return read(t, g).GetGauge().GetValue()
}

func TestIncLines(t *testing.T) {
	before := counterValue(t, LinesTotal.WithLabelValues(constants.OutcomeBuffered))

	IncLines(constants.OutcomeBuffered)
	IncLines(constants.OutcomeBuffered)

	assert.Equal(t, before+2, counterValue(t, LinesTotal.WithLabelValues(constants.OutcomeBuffered)))
}

func TestObserveEviction(t *testing.T) {
	evicted := counterValue(t, TransactionsEvictedTotal)
	discarded := counterValue(t, RecordsDiscardedTotal)

	ObserveEviction(3)

	assert.Equal(t, evicted+1, counterValue(t, TransactionsEvictedTotal))
	assert.Equal(t, discarded+3, counterValue(t, RecordsDiscardedTotal))
}

func TestGauges(t *testing.T) {
	SetActiveTransactions(7)
	SetEventQueueSize(42)

	assert.Equal(t, float64(7), gaugeValue(t, ActiveTransactions))
	assert.Equal(t, float64(42), gaugeValue(t, EventQueueSize))
}

func TestObserveSweepDuration(t *testing.T) {
	before := read(t, SweepDuration).GetHistogram().GetSampleCount()

	ObserveSweepDuration(2 * time.Millisecond)

	assert.Equal(t, before+1, read(t, SweepDuration).GetHistogram().GetSampleCount())
}

func TestRegisterCorrelatorMetricsIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterCorrelatorMetrics()
		RegisterCorrelatorMetrics()
	})
}
