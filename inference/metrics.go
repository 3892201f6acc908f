package inference

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Outcome classifies a finished prediction.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeValidationError
	OutcomeModelError
	OutcomeUnavailable // no model loaded
)

type Metrics struct {
	requestsTotal      atomic.Int64
	completed          atomic.Int64
	succeeded          atomic.Int64
	validationFailures atomic.Int64
	modelFailures      atomic.Int64
	unavailable        atomic.Int64
	inflight           atomic.Int64
	latencyNanos       atomic.Int64
	latencyNanosMax    atomic.Int64
	reloadsTotal       atomic.Int64
	reloadFailures     atomic.Int64
}

type MetricsSnapshot struct {
	RequestsTotal      int64
	Succeeded          int64
	ValidationFailures int64
	ModelFailures      int64
	Unavailable        int64
	InFlight           int64
	AvgLatencyMillis   float64
	MaxLatencyMillis   float64
	ReloadsTotal       int64
	ReloadFailures     int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordRequestStart() {
	m.requestsTotal.Add(1)
	m.inflight.Add(1)
}

func (m *Metrics) RecordRequestDone(latency time.Duration, outcome Outcome) {
	m.inflight.Add(-1)
	m.completed.Add(1)
	nanos := latency.Nanoseconds()
	if nanos < 0 {
		nanos = 0
	}
	m.latencyNanos.Add(nanos)
	updateAtomicMax(&m.latencyNanosMax, nanos)

	switch outcome {
	case OutcomeSuccess:
		m.succeeded.Add(1)
	case OutcomeValidationError:
		m.validationFailures.Add(1)
	case OutcomeModelError:
		m.modelFailures.Add(1)
	case OutcomeUnavailable:
		m.unavailable.Add(1)
	}
}

// RecordReload counts a model load attempt.
func (m *Metrics) RecordReload(err error) {
	m.reloadsTotal.Add(1)
	if err != nil {
		m.reloadFailures.Add(1)
	}
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	// Average over finished requests only; in-flight ones have no latency yet.
	completed := m.completed.Load()
	avgMillis := 0.0
	if completed > 0 {
		avgMillis = float64(m.latencyNanos.Load()) / float64(completed) / float64(time.Millisecond)
	}
	return MetricsSnapshot{
		RequestsTotal:      m.requestsTotal.Load(),
		Succeeded:          m.succeeded.Load(),
		ValidationFailures: m.validationFailures.Load(),
		ModelFailures:      m.modelFailures.Load(),
		Unavailable:        m.unavailable.Load(),
		InFlight:           m.inflight.Load(),
		AvgLatencyMillis:   avgMillis,
		MaxLatencyMillis:   float64(m.latencyNanosMax.Load()) / float64(time.Millisecond),
		ReloadsTotal:       m.reloadsTotal.Load(),
		ReloadFailures:     m.reloadFailures.Load(),
	}
}

func (s MetricsSnapshot) PrometheusText() string {
	return fmt.Sprintf(
		"costpredictor_predictions_total %d\n"+
			"costpredictor_predictions_succeeded_total %d\n"+
			"costpredictor_prediction_validation_errors_total %d\n"+
			"costpredictor_prediction_model_errors_total %d\n"+
			"costpredictor_prediction_unavailable_total %d\n"+
			"costpredictor_predictions_inflight %d\n"+
			"costpredictor_prediction_latency_ms_avg %.6f\n"+
			"costpredictor_prediction_latency_ms_max %.6f\n"+
			"costpredictor_model_loads_total %d\n"+
			"costpredictor_model_load_failures_total %d\n",
		s.RequestsTotal,
		s.Succeeded,
		s.ValidationFailures,
		s.ModelFailures,
		s.Unavailable,
		s.InFlight,
		s.AvgLatencyMillis,
		s.MaxLatencyMillis,
		s.ReloadsTotal,
		s.ReloadFailures,
	)
}

func updateAtomicMax(target *atomic.Int64, value int64) {
	for {
		current := target.Load()
		if value <= current {
			return
		}
		if target.CompareAndSwap(current, value) {
			return
		}
	}
}
