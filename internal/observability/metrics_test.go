package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRead(t *testing.T) {
	okBefore := testutil.ToFloat64(DefaultMetrics.ChainReads.WithLabelValues("testchain", "logosFound", "ok"))
	errBefore := testutil.ToFloat64(DefaultMetrics.ChainReads.WithLabelValues("testchain", "logosFound", "error"))

	RecordRead("testchain", "logosFound", 0.01, nil)
	RecordRead("testchain", "logosFound", 0.02, errors.New("timeout"))
	RecordRead("testchain", "logosFound", 0.03, nil)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(DefaultMetrics.ChainReads.WithLabelValues("testchain", "logosFound", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(DefaultMetrics.ChainReads.WithLabelValues("testchain", "logosFound", "error")))
}

func TestRecordDegradedAndGauges(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.DegradedResults.WithLabelValues("testchain", "global_stats", "rpc_error"))
	RecordDegraded("testchain", "global_stats", "rpc_error")
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.DegradedResults.WithLabelValues("testchain", "global_stats", "rpc_error")))

	UpdateCircuitState("testchain", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(DefaultMetrics.CircuitState.WithLabelValues("testchain")))

	UpdateCandidates("static", 5)
	assert.Equal(t, 5.0, testutil.ToFloat64(DefaultMetrics.CandidatesDiscovered.WithLabelValues("static")))

	RecordQuote("a", "b", 1e14)
	assert.Equal(t, 1e14, testutil.ToFloat64(DefaultMetrics.LastQuoteWei.WithLabelValues("a", "b")))
}
