package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaycrm_executions_started_total",
			Help: "Executions started, by trigger type",
		},
		[]string{"tenant_id", "trigger_type"},
	)

	ExecutionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaycrm_executions_finished_total",
			Help: "Executions reaching a terminal status",
		},
		[]string{"tenant_id", "status"},
	)

	ActionsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaycrm_actions_dispatched_total",
			Help: "Successfully dispatched action steps",
		},
		[]string{"tenant_id", "action_type"},
	)

	ActionRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaycrm_action_retries_total",
			Help: "Transient action failures scheduled for retry",
		},
		[]string{"tenant_id", "action_type"},
	)

	SuspendedExecutions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relaycrm_suspended_executions",
			Help: "Executions currently waiting on a delay timer",
		},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relaycrm_step_duration_seconds",
			Help:    "Wall time spent executing one step",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"node_kind"},
	)
)
