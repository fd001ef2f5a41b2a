// Package observability provides Prometheus metrics for chain access.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the chain level Prometheus metrics
type Metrics struct {
	// RPC metrics
	ChainReads       *prometheus.CounterVec
	ChainReadLatency *prometheus.HistogramVec

	// DegradedResults counts per-chain values replaced by zero
	DegradedResults *prometheus.CounterVec

	// Write path metrics
	Transactions      *prometheus.CounterVec
	ConfirmationWait  *prometheus.HistogramVec
	Collects          *prometheus.CounterVec
	LastQuoteWei      *prometheus.GaugeVec
	ReceiptStoreError prometheus.Counter

	// Leaderboard metrics
	CandidatesDiscovered *prometheus.GaugeVec

	// CircuitState mirrors the per-chain breaker state (0=closed, 1=open, 2=half-open)
	CircuitState *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance registered with the default registry
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "logohunt"
	}

	return &Metrics{
		ChainReads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "reads_total",
			Help:      "Contract view calls by chain, method and status",
		}, []string{"chain", "method", "status"}),
		ChainReadLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "read_duration_seconds",
			Help:      "Latency of contract view calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"chain", "method"}),
		DegradedResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "degraded_results_total",
			Help:      "Per-chain results replaced by zero after a failed read",
		}, []string{"chain", "operation", "reason"}),
		Transactions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "transactions_total",
			Help:      "Write transactions by chain and outcome",
		}, []string{"chain", "status"}),
		ConfirmationWait: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "confirmation_wait_seconds",
			Help:      "Time from broadcast to first confirmation",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"chain"}),
		Collects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collect",
			Name:      "requests_total",
			Help:      "Collect operations by origin chain and result kind",
		}, []string{"origin", "result"}),
		LastQuoteWei: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collect",
			Name:      "last_quote_wei",
			Help:      "Most recent dispatch quote per origin and destination",
		}, []string{"origin", "destination"}),
		ReceiptStoreError: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collect",
			Name:      "receipt_store_errors_total",
			Help:      "Confirmed collects whose receipt could not be stored",
		}),
		CandidatesDiscovered: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "candidates",
			Help:      "Candidate addresses returned by each discovery source",
		}, []string{"source"}),
		CircuitState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "circuit_state",
			Help:      "Circuit breaker state per chain (0=closed, 1=open, 2=half-open)",
		}, []string{"chain"}),
	}
}

// Handler returns the Prometheus HTTP handler for the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRead records one contract view call
func RecordRead(chain, method string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.ChainReads.WithLabelValues(chain, method, status).Inc()
	DefaultMetrics.ChainReadLatency.WithLabelValues(chain, method).Observe(seconds)
}

// RecordDegraded records a per-chain value that was replaced by zero
func RecordDegraded(chain, operation, reason string) {
	DefaultMetrics.DegradedResults.WithLabelValues(chain, operation, reason).Inc()
}

// RecordTransaction records the outcome of a write
func RecordTransaction(chain, status string) {
	DefaultMetrics.Transactions.WithLabelValues(chain, status).Inc()
}

// RecordConfirmationWait records how long a write took to confirm
func RecordConfirmationWait(chain string, seconds float64) {
	DefaultMetrics.ConfirmationWait.WithLabelValues(chain).Observe(seconds)
}

// RecordCollect records a finished collect operation
func RecordCollect(origin, result string) {
	DefaultMetrics.Collects.WithLabelValues(origin, result).Inc()
}

// RecordQuote stores the latest quote for a route
func RecordQuote(origin, destination string, wei float64) {
	DefaultMetrics.LastQuoteWei.WithLabelValues(origin, destination).Set(wei)
}

// RecordReceiptStoreError counts a receipt that could not be persisted
func RecordReceiptStoreError() {
	DefaultMetrics.ReceiptStoreError.Inc()
}

// UpdateCandidates sets the number of candidates a source returned
func UpdateCandidates(source string, n int) {
	DefaultMetrics.CandidatesDiscovered.WithLabelValues(source).Set(float64(n))
}

// UpdateCircuitState records the breaker state of a chain
func UpdateCircuitState(chain string, state int) {
	DefaultMetrics.CircuitState.WithLabelValues(chain).Set(float64(state))
}
