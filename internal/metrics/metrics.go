package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TransactionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_recorded_total",
			Help: "Transactions applied to the ledger",
		},
		[]string{"type"},
	)
	StorageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_storage_failures_total",
			Help: "Persistent store reads or writes that failed",
		},
		[]string{"op"},
	)
	EventPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_event_publish_failures_total",
			Help: "Transaction events that could not be published",
		},
	)
	AssistantRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Assistant questions by outcome",
		},
		[]string{"outcome"},
	)
	AssistantLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_request_duration_seconds",
			Help:    "Time spent waiting on the completion backend",
			Buckets: prometheus.DefBuckets,
		},
	)
	FlowRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_validation_rejections_total",
			Help: "Transfer and loan requests rejected by validation",
		},
		[]string{"flow", "reason"},
	)
)

func init() {
	prometheus.MustRegister(
		TransactionsRecorded,
		StorageFailures,
		EventPublishFailures,
		AssistantRequests,
		AssistantLatency,
		FlowRejections,
	)
}
