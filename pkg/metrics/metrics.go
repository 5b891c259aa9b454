// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SessionsStarted tracks widget sessions started.
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_sessions_started_total",
			Help: "Total widget sessions started",
		},
		[]string{"business_id"},
	)

	// SessionsEnded tracks widget sessions ended.
	SessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_sessions_ended_total",
			Help: "Total widget sessions ended",
		},
		[]string{"business_id"},
	)

	// TurnsRecorded tracks chat turns recorded (one user+assistant pair).
	TurnsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_recorded_total",
			Help: "Total chat turns recorded",
		},
		[]string{"business_id", "topic"},
	)

	// LeadsCreated tracks leads created.
	LeadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_created_total",
			Help: "Total leads created",
		},
		[]string{"business_id"},
	)

	// AnswerDuration tracks answer-generation latency per provider.
	AnswerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "answer_duration_seconds",
			Help:    "Answer generation duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// AnswerTokensTotal tracks LLM tokens consumed by answer generation.
	AnswerTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answer_tokens_total",
			Help: "Total LLM tokens processed for answers",
		},
		[]string{"provider", "direction"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordAnswer records metrics for one answer generation.
func RecordAnswer(provider, status string, duration float64, tokensIn, tokensOut int) {
	AnswerDuration.WithLabelValues(provider, status).Observe(duration)
	AnswerTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	AnswerTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}

// BusinessLabel renders a business ID as a metric label.
func BusinessLabel(id int64) string {
	return strconv.FormatInt(id, 10)
}
