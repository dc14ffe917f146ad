package booking

import (
	"github.com/example/court-scheduler/internal/slots"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricProbesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courtsched",
		Name:      "probes_issued_total",
		Help:      "Single-court probes sent before a commit.",
	})
	metricProbeFailOpen = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courtsched",
		Name:      "probe_fail_open_total",
		Help:      "Probes that failed after retries and were committed without fresh data.",
	})
	metricCommitsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courtsched",
		Name:      "commits_issued_total",
		Help:      "Reservation submit scripts executed.",
	})
	metricBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtsched",
		Name:      "blocks_total",
		Help:      "Attempts stopped because the slot was booked, by stage.",
	}, []string{"stage"})
	metricValidationRejects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courtsched",
		Name:      "validation_rejects_total",
		Help:      "Targets rejected before any page call.",
	})
	metricMergedCells = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtsched",
		Name:      "merged_cells_total",
		Help:      "Probe cells folded into the slot cache, by effect.",
	}, []string{"effect"})
	metricOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtsched",
		Name:      "outcomes_total",
		Help:      "Reservation outcomes by result.",
	}, []string{"result"})
	metricSchedulesCached = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courtsched",
		Name:      "schedules_cached_total",
		Help:      "Whole-date schedules stored in the slot cache.",
	})
)

func recordMerge(r slots.MergeResult) {
	if r.Opened > 0 {
		metricMergedCells.WithLabelValues("opened").Add(float64(r.Opened))
	}
	if r.Closed > 0 {
		metricMergedCells.WithLabelValues("closed").Add(float64(r.Closed))
	}
	if r.Kept > 0 {
		metricMergedCells.WithLabelValues("kept").Add(float64(r.Kept))
	}
}

func recordOutcome(o Outcome) {
	metricOutcomes.WithLabelValues(o.Result.String()).Inc()
}
