package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	// Two instances must not collide: each carries its own registry.
	a := NewMetrics()
	b := NewMetrics()

	a.Classifications.Inc()
	if got := testutil.ToFloat64(a.Classifications); got != 1 {
		t.Errorf("classifications = %f, want 1", got)
	}
	if got := testutil.ToFloat64(b.Classifications); got != 0 {
		t.Errorf("second instance classifications = %f, want 0", got)
	}
}

func TestObserveRequest(t *testing.T) {
	m := NewMetrics()

	m.ObserveRequest("classify", "ok", 5*time.Millisecond)
	m.ObserveRequest("classify", "ok", 7*time.Millisecond)
	m.ObserveRequest("train", "error", time.Second)

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("classify", "ok")); got != 2 {
		t.Errorf("classify/ok counter = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("train", "error")); got != 1 {
		t.Errorf("train/error counter = %f, want 1", got)
	}
}

func TestObserveTraining(t *testing.T) {
	m := NewMetrics()

	m.ObserveTraining("supervised", 18, 20*time.Millisecond)

	if got := testutil.ToFloat64(m.TrainingRuns.WithLabelValues("supervised")); got != 1 {
		t.Errorf("training runs = %f, want 1", got)
	}

	count := testutil.CollectAndCount(m.TrainingDuration)
	if count != 1 {
		t.Errorf("training duration collector count = %d, want 1", count)
	}
}

func TestGauges(t *testing.T) {
	m := NewMetrics()

	m.CodebooksActive.Inc()
	m.CodebooksActive.Inc()
	m.CodebooksActive.Dec()

	if got := testutil.ToFloat64(m.CodebooksActive); got != 1 {
		t.Errorf("codebooks gauge = %f, want 1", got)
	}
}
