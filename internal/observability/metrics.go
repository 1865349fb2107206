// Package observability holds the process-wide Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Assistant metrics
	VoiceCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mise_voice_commands_total",
		Help: "Utterances classified by the command classifier",
	}, []string{"intent", "route"})

	ActiveVoiceSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mise_active_voice_sessions",
		Help: "Open voice websocket connections",
	})

	DispatchedActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mise_dispatched_actions_total",
		Help: "Tool actions handled by the dispatcher",
	}, []string{"action", "status"})

	TimersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mise_timers_created_total",
		Help: "Timers created through the registry",
	})

	// Collaborator metrics
	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mise_llm_requests_total",
		Help: "Language model requests by outcome",
	}, []string{"status"})

	LLMLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mise_llm_latency_seconds",
		Help:    "Language model request latency",
		Buckets: prometheus.DefBuckets,
	})
)
