package page

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtsched",
		Name:      "page_fetch_attempts_total",
		Help:      "In-page fetch attempts, retries included, by request kind.",
	}, []string{"kind"})
	metricFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtsched",
		Name:      "page_fetch_failures_total",
		Help:      "Fetches that exhausted their retry budget, by request kind.",
	}, []string{"kind"})
	metricAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courtsched",
		Name:      "page_alerts_total",
		Help:      "JavaScript dialogs raised by account pages.",
	})
)

func recordFetch(kind Kind, attempts int, err error) {
	metricFetchAttempts.WithLabelValues(kind.String()).Add(float64(attempts))
	if err != nil {
		metricFetchFailures.WithLabelValues(kind.String()).Inc()
	}
}

func recordAlert() {
	metricAlerts.Inc()
}
