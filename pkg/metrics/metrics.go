// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
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

	// UpstreamRequestsTotal counts helpdesk API calls by endpoint kind and outcome.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatwoot_requests_total",
			Help: "Total requests sent to the helpdesk API",
		},
		[]string{"endpoint", "outcome"},
	)

	// UpstreamRetriesTotal counts retries by reason (rate_limit, timeout, transport).
	UpstreamRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatwoot_retries_total",
			Help: "Total helpdesk API retries",
		},
		[]string{"endpoint", "reason"},
	)

	// AggregationDuration tracks full analytics aggregation runs.
	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_aggregation_duration_seconds",
			Help:    "Duration of a conversation/message aggregation",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
	)

	// AggregatedConversations counts conversations processed by outcome.
	AggregatedConversations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_conversations_total",
			Help: "Conversations processed during aggregation",
		},
		[]string{"outcome"},
	)

	// WebhookEventsTotal counts webhook deliveries by outcome.
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook events received by outcome",
		},
		[]string{"event", "outcome"},
	)

	// ReplyJobsTotal counts reply jobs by outcome.
	ReplyJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_reply_jobs_total",
			Help: "Reply generation jobs by outcome",
		},
		[]string{"outcome"},
	)

	// LLMCallDuration tracks LLM call duration.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM call duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordUpstream records one helpdesk API call.
func RecordUpstream(endpoint, outcome string) {
	UpstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordRetry records one helpdesk API retry.
func RecordRetry(endpoint, reason string) {
	UpstreamRetriesTotal.WithLabelValues(endpoint, reason).Inc()
}

// RecordLLMCall records metrics for a completed LLM call.
func RecordLLMCall(model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordWebhook records the outcome of a webhook delivery.
func RecordWebhook(event, outcome string) {
	WebhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordReplyJob records the outcome of a reply job.
func RecordReplyJob(outcome string) {
	ReplyJobsTotal.WithLabelValues(outcome).Inc()
}
