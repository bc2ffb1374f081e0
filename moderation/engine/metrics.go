package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "vigil_evaluate_duration_sec",
	Help: "Total duration of message evaluation",
})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_evaluate_processed",
	Help: "Number of messages evaluated, by outcome",
}, []string{"outcome"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_evaluate_errors",
	Help: "Number of internal failures during evaluation, by stage",
}, []string{"stage"})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_escalation_actions",
	Help: "Number of escalation actions applied",
}, []string{"action"})

var workItemsAdded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_scheduler_items_added",
	Help: "Number of evaluations enqueued on the async scheduler",
})

var workItemsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_scheduler_items_processed",
	Help: "Number of evaluations completed by the async scheduler",
})

var workersActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "vigil_scheduler_workers_active",
	Help: "Number of scheduler workers",
})
