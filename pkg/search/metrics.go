package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ChrisMcGann/RamanKey/pkg/score"
)

// Metrics holds the search engine's Prometheus collectors.
type Metrics struct {
	Searches          *prometheus.CounterVec
	CandidatesScored  *prometheus.CounterVec
	CandidateErrors   *prometheus.CounterVec
	EarlyTerminations *prometheus.CounterVec
	Duration          *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ramankey",
				Name:      "searches_total",
				Help:      "Total number of library searches",
			},
			[]string{"algorithm", "outcome"},
		),
		CandidatesScored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ramankey",
				Name:      "candidates_scored_total",
				Help:      "Total number of candidate spectra scored",
			},
			[]string{"algorithm"},
		),
		CandidateErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ramankey",
				Name:      "candidate_errors_total",
				Help:      "Candidates skipped because scoring failed",
			},
			[]string{"algorithm"},
		),
		EarlyTerminations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ramankey",
				Name:      "early_terminations_total",
				Help:      "Searches stopped before scanning every candidate",
			},
			[]string{"algorithm"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ramankey",
				Name:      "search_duration_seconds",
				Help:      "Search duration in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"algorithm"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Searches, m.CandidatesScored, m.CandidateErrors, m.EarlyTerminations, m.Duration)
	}
	return m
}

// The helpers below are no-ops on a nil *Metrics.

func (m *Metrics) candidateScored(algo score.Algorithm) {
	if m != nil {
		m.CandidatesScored.WithLabelValues(string(algo)).Inc()
	}
}

func (m *Metrics) candidateFailed(algo score.Algorithm) {
	if m != nil {
		m.CandidateErrors.WithLabelValues(string(algo)).Inc()
	}
}

func (m *Metrics) earlyTermination(algo score.Algorithm) {
	if m != nil {
		m.EarlyTerminations.WithLabelValues(string(algo)).Inc()
	}
}

func (m *Metrics) searchDone(algo score.Algorithm, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(string(algo), outcome).Inc()
	m.Duration.WithLabelValues(string(algo)).Observe(time.Since(start).Seconds())
}
