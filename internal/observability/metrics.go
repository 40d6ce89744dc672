package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "billdesk_api_requests_total", Help: "API requests"},
		[]string{"route", "status"},
	)
	BillsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "billdesk_bills_created_total", Help: "Bills created"},
	)
	Sends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "billdesk_sends_total", Help: "Notification send outcomes"},
		[]string{"channel", "result"},
	)
	SendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "billdesk_send_latency_seconds", Help: "Dispatch latency"},
	)
	Retries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "billdesk_retries_total", Help: "Retry queue outcomes"},
		[]string{"result"},
	)
	SnapshotWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "billdesk_snapshot_writes_total", Help: "Snapshot persistence results"},
		[]string{"result"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(APIRequests, BillsCreated, Sends, SendLatency, Retries, SnapshotWrites)
}
