// Package metrics registers the Prometheus counters for board activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	hirepipe = "hirepipe"

	// Bulk metrics
	bulkItemsTotal = "bulk_items_total"
	bulkRunsTotal  = "bulk_runs_total"

	// Board metrics
	rollbacksTotal    = "optimistic_rollbacks_total"
	dragOutcomesTotal = "drag_outcomes_total"
	interviewsTotal   = "interviews_scheduled_total"

	// Labels
	kindLabel    = "kind"
	outcomeLabel = "outcome"
	resultLabel  = "result"
)

var bulkItemsTotalLabels = []string{
	kindLabel,
	outcomeLabel,
}

var bulkRunsTotalLabels = []string{
	kindLabel,
	resultLabel,
}

var dragOutcomesTotalLabels = []string{
	outcomeLabel,
}

/**
* Metrics definition
**/
var bulkItemsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: hirepipe,
		Name:      bulkItemsTotal,
		Help:      "number of settled bulk items by command kind and outcome",
	},
	bulkItemsTotalLabels,
)

var bulkRunsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: hirepipe,
		Name:      bulkRunsTotal,
		Help:      "number of finished bulk runs by command kind and result",
	},
	bulkRunsTotalLabels,
)

var rollbacksTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: hirepipe,
		Name:      rollbacksTotal,
		Help:      "number of optimistic changes reverted after a failed call",
	},
)

var dragOutcomesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: hirepipe,
		Name:      dragOutcomesTotal,
		Help:      "number of finished drag gestures by outcome",
	},
	dragOutcomesTotalLabels,
)

var interviewsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: hirepipe,
		Name:      interviewsTotal,
		Help:      "number of interviews requested in batches by result",
	},
	[]string{resultLabel},
)

// IncreaseBulkItemsMetric counts one settled item. outcome is "ok",
// "skipped" or a failure kind.
func IncreaseBulkItemsMetric(kind, outcome string) {
	labels := prometheus.Labels{
		kindLabel:    kind,
		outcomeLabel: outcome,
	}
	bulkItemsTotalMetric.With(labels).Inc()
}

// IncreaseBulkRunsMetric counts one finished run. result is "ok" or "partial".
func IncreaseBulkRunsMetric(kind, result string) {
	labels := prometheus.Labels{
		kindLabel:   kind,
		resultLabel: result,
	}
	bulkRunsTotalMetric.With(labels).Inc()
}

func IncreaseRollbacksMetric() {
	rollbacksTotalMetric.Inc()
}

func IncreaseDragOutcomesMetric(outcome string) {
	dragOutcomesTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

// AddInterviewsMetric records a batch schedule's tally.
func AddInterviewsMetric(scheduled, failed int) {
	interviewsTotalMetric.With(prometheus.Labels{resultLabel: "scheduled"}).Add(float64(scheduled))
	interviewsTotalMetric.With(prometheus.Labels{resultLabel: "failed"}).Add(float64(failed))
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(bulkItemsTotalMetric)
	prometheus.MustRegister(bulkRunsTotalMetric)
	prometheus.MustRegister(rollbacksTotalMetric)
	prometheus.MustRegister(dragOutcomesTotalMetric)
	prometheus.MustRegister(interviewsTotalMetric)
}
