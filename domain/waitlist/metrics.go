package waitlist

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type submissionMetrics struct {
	outcomes *prometheus.CounterVec
}

// newSubmissionMetrics returns nil when reg is nil; observe is nil-safe.
func newSubmissionMetrics(reg prometheus.Registerer) *submissionMetrics {
	if reg == nil {
		return nil
	}

	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_submissions_total",
			Help: "Waitlist submissions by outcome.",
		},
		[]string{"outcome"},
	)

	if err := reg.Register(outcomes); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			panic(err)
		}
		outcomes = already.ExistingCollector.(*prometheus.CounterVec)
	}

	return &submissionMetrics{outcomes: outcomes}
}

func (m *submissionMetrics) observe(outcome Outcome) {
	if m == nil {
		return
	}

	m.outcomes.WithLabelValues(string(outcome)).Inc()
}
