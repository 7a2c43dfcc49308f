package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()

	m.ObserveCorrelation("megasena", true, time.Millisecond)
	m.ObserveCorrelation("megasena", false, time.Millisecond)
	m.ObserveCorrelation("megasena", false, time.Millisecond)
	m.ObserveGenetic("megasena", 50, 7, nil)
	m.ObserveBacktest("random", 30, nil)
	m.ObserveBacktest("random", 0, errors.New("bad config"))
	m.ObserveJob("cache_cleanup", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorrelationBuilds.WithLabelValues("megasena", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CorrelationBuilds.WithLabelValues("megasena", "miss")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.GeneticGenerations))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.GeneticRepairs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Backtests.WithLabelValues("random", "error")))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.BacktestTrials))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("cache_cleanup", "ok")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveCorrelation("x", true, time.Second)
		m.ObserveGenetic("x", 1, 1, nil)
		m.ObserveBacktest("x", 1, nil)
		m.ObserveJob("x", nil)
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/lotteries", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `lottolab_http_requests_total{code="200",method="GET",route="/api/lotteries"} 1`)
}
