package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the wallet.
type Metrics struct {
	PersonasSaved        prometheus.Counter
	AnchorsSkipped       prometheus.Counter
	AnchorsSubmitted     prometheus.Counter
	DisclosuresDelivered prometheus.Counter
	DisclosuresRejected  prometheus.Counter
	MalformedScans       prometheus.Counter
	RequestLatency       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		PersonasSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "persona_saves_total",
			Help: "Total number of persona envelopes published to the store",
		}),
		AnchorsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "persona_anchors_skipped_total",
			Help: "Registry writes skipped because the content address was unchanged",
		}),
		AnchorsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "persona_anchors_submitted_total",
			Help: "Registry pointer writes submitted to the ledger",
		}),
		DisclosuresDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "persona_disclosures_delivered_total",
			Help: "Encrypted disclosure replies delivered over the relay",
		}),
		DisclosuresRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "persona_disclosures_rejected_total",
			Help: "Disclosure requests rejected by the user",
		}),
		MalformedScans: promauto.NewCounter(prometheus.CounterOpts{
			Name: "persona_malformed_scans_total",
			Help: "Scanned payloads dropped because they failed validation",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "persona_http_request_duration_seconds",
			Help:    "Latency of wallet HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
	}
}
