package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the ledger's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	records       *prometheus.CounterVec
	proofs        *prometheus.CounterVec
	proofDuration prometheus.Histogram
	verifications *prometheus.CounterVec
}

// NewMetrics registers the ledger collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provledger",
			Name:      "records_total",
			Help:      "Record attempts by outcome code (ok or error code).",
		}, []string{"outcome"}),
		proofs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provledger",
			Name:      "proofs_total",
			Help:      "Proof generations by kind and reason.",
		}, []string{"kind", "reason"}),
		proofDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "provledger",
			Name:      "proof_duration_seconds",
			Help:      "Wall time spent generating proofs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		verifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provledger",
			Name:      "verifications_total",
			Help:      "Proof verifications by result.",
		}, []string{"valid"}),
	}
}

func (m *Metrics) observeRecord(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(CodeOf(err))
	}
	m.records.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeProof(kind, reason string, seconds float64) {
	if m == nil {
		return
	}
	m.proofs.WithLabelValues(kind, reason).Inc()
	m.proofDuration.Observe(seconds)
}

func (m *Metrics) observeVerify(valid bool) {
	if m == nil {
		return
	}
	label := "false"
	if valid {
		label = "true"
	}
	m.verifications.WithLabelValues(label).Inc()
}
