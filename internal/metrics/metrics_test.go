package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Simplici0/o.quote/internal/pricing"
)

func TestObserveCompute(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveCompute(pricing.Result{}, time.Millisecond)
	r.ObserveCompute(pricing.Result{Issues: []pricing.Issue{
		{Field: "lot_size", Code: "invalid_lot_size"},
		{Field: "profit_rate", Code: "invalid_profit_rate"},
	}}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.computations.WithLabelValues(StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.computations.WithLabelValues(StatusIssues)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.issues.WithLabelValues("invalid_lot_size")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
}

func TestObserveSaved(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())
	r.ObserveSaved()
	r.ObserveSaved()
	assert.Equal(t, 2.0, testutil.ToFloat64(r.saved))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveCompute(pricing.Result{}, time.Second)
	r.ObserveSaved()
}
