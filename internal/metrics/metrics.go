package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed analyses.
	OutcomeSuccess = "success"
	// OutcomeError labels failed analyses (collaborator or pipeline issues).
	OutcomeError = "error"
	// OutcomeRejected labels analyses rejected because one was already running.
	OutcomeRejected = "rejected"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "noc_analyst",
			Name:      "analyses_total",
			Help:      "Total number of event analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "noc_analyst",
			Name:      "analysis_seconds",
			Help:      "Event analysis latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10},
		},
	)

	ticketsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "noc_analyst",
			Name:      "tickets_created_total",
			Help:      "Total number of tickets created, partitioned by priority.",
		},
		[]string{"priority"},
	)

	escalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "noc_analyst",
			Name:      "escalations_total",
			Help:      "Total number of ticket escalations performed by the sweep.",
		},
	)
)

// Register attaches noc-analyst collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		ticketsCreatedTotal,
		escalationsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	switch label {
	case OutcomeError, OutcomeRejected:
	default:
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// TicketCreated counts a created ticket by priority.
func TicketCreated(priority string) {
	ticketsCreatedTotal.WithLabelValues(priority).Inc()
}

// EscalationPerformed counts one escalation applied by the sweep.
func EscalationPerformed() {
	escalationsTotal.Inc()
}
