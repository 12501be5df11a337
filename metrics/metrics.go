// Package metrics exports the process counters/gauges the teacher's
// cmd/kcn wires prometheus/client_golang for, generalized from
// node/database metrics to this system's pool/chain/mining concerns
// (SPEC_FULL.md §5, "Per-module metrics").
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "driftchain",
		Subsystem: "pool",
		Name:      "size",
		Help:      "Number of pending transactions in the pool.",
	})

	ChainHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "driftchain",
		Subsystem: "chain",
		Name:      "height",
		Help:      "Number of committed blocks, including genesis.",
	})

	DifficultyBump = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "driftchain",
		Subsystem: "work",
		Name:      "difficulty_bump",
		Help:      "Current acceptance-window width of the block being mined.",
	})

	BlocksMined = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "driftchain",
		Subsystem: "work",
		Name:      "blocks_mined_total",
		Help:      "Total number of blocks successfully mined by this node.",
	})

	MiningInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "driftchain",
		Subsystem: "work",
		Name:      "mining_in_flight",
		Help:      "1 while a mining task is running, 0 otherwise.",
	})

	PeersKnown = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "driftchain",
		Subsystem: "gossip",
		Name:      "peers_known",
		Help:      "Number of configured peers.",
	})
)

func init() {
	prometheus.MustRegister(PoolSize, ChainHeight, DifficultyBump, BlocksMined, MiningInFlight, PeersKnown)
}
