package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FlowsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paydesk",
		Name:      "flows_started_total",
		Help:      "Dialogue flows started, by kind.",
	}, []string{"kind"})

	FlowsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paydesk",
		Name:      "flows_cancelled_total",
		Help:      "Dialogue flows cancelled before completion, by kind.",
	}, []string{"kind"})

	RequestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paydesk",
		Name:      "requests_created_total",
		Help:      "Requests persisted as pending, by kind.",
	}, []string{"kind"})

	DecisionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paydesk",
		Name:      "decisions_applied_total",
		Help:      "Admin decisions that transitioned a request, by kind and action.",
	}, []string{"kind", "action"})

	DecisionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paydesk",
		Name:      "decision_conflicts_total",
		Help:      "Admin decisions that lost the status race, by kind.",
	}, []string{"kind"})

	NotifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paydesk",
		Name:      "notify_failures_total",
		Help:      "Outbound notifications that could not be published.",
	})
)
