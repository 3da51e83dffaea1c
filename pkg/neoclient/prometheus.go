package neoclient

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	// txSent prometheus metric.
	txSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of contract transactions sent by result",
			Name:      "transactions_total",
			Namespace: "harness",
		},
		[]string{"result"},
	)
	// txGas prometheus metric.
	txGas = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Help:      "GAS consumed by contract transactions",
			Name:      "transaction_gas",
			Namespace: "harness",
			Buckets:   prometheus.ExponentialBuckets(100000, 4, 10),
		},
	)
	// queries prometheus metric.
	queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of contract queries by result",
			Name:      "queries_total",
			Namespace: "harness",
		},
		[]string{"result"},
	)
	// deployments prometheus metric.
	deployments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of contract instances resolved by kind",
			Name:      "deployments_total",
			Namespace: "harness",
		},
		[]string{"kind"},
	)
	// fundings prometheus metric.
	fundings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of faucet transfers made",
			Name:      "faucet_transfers_total",
			Namespace: "harness",
		},
	)
)

func init() {
	prometheus.MustRegister(
		txSent,
		txGas,
		queries,
		deployments,
		fundings,
	)
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
