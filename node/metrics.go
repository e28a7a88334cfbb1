package node

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryjones/iroha/log"
)

// Metrics exposes the node health counters on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	BlockHeight   prometheus.Gauge
	TxsCommitted  prometheus.Counter
	RoundsTotal   prometheus.Counter
	RoundsRejects prometheus.Counter
	PendingTxs    prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BlockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iroha_block_height",
			Help: "Height of the top committed block.",
		}),
		TxsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iroha_txs_committed_total",
			Help: "Transactions committed since start.",
		}),
		RoundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iroha_consensus_rounds_total",
			Help: "Consensus rounds finished since start.",
		}),
		RoundsRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iroha_consensus_rejects_total",
			Help: "Consensus rounds finished without a block.",
		}),
		PendingTxs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iroha_pending_txs",
			Help: "Transactions waiting in the batch cache.",
		}),
	}
	m.registry.MustRegister(m.BlockHeight, m.TxsCommitted, m.RoundsTotal, m.RoundsRejects, m.PendingTxs)
	return m
}

// Serve exposes the registry over HTTP until the process exits.
func (m *Metrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("metrics endpoint failed: %v", err)
		}
	}()
}
