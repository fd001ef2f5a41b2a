package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gotel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yourorg/logohunt-service/internal/aggregate"
	"github.com/yourorg/logohunt-service/internal/candidates"
	"github.com/yourorg/logohunt-service/internal/chain"
	"github.com/yourorg/logohunt-service/internal/chain/chaintest"
	"github.com/yourorg/logohunt-service/internal/circuitbreaker"
	"github.com/yourorg/logohunt-service/internal/collection"
	"github.com/yourorg/logohunt-service/internal/leaderboard"
)

var (
	player = common.HexToAddress("0x70997970C51812dc3A5B7dc7F8c87a6e5e6e0d20")
	rival  = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

type testEnv struct {
	server   *Server
	handler  http.Handler
	sepolia  *chaintest.Contract
	arbitrum *chaintest.Contract
	breakers *circuitbreaker.Set
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	sepolia := chaintest.NewContract("sepolia", 11155111)
	arbitrum := chaintest.NewContract("arbitrumSepolia", 421614)
	readers := []chain.Reader{sepolia, arbitrum}
	breakers := circuitbreaker.NewSet([]string{"sepolia", "arbitrumSepolia"}, 3, time.Minute, nil)

	opts := Options{
		Port:             "0",
		LeaderboardSize:  10,
		Registerer:       prometheus.NewRegistry(),
		MetricsHandler:   http.NotFoundHandler(),
		Breakers:         breakers,
		CandidateSources: candidates.NewMulti(candidates.NewStatic([]common.Address{player, rival})),
	}
	if mutate != nil {
		mutate(&opts)
	}

	srv := NewServer(opts,
		collection.NewService([]chain.Endpoint{sepolia, arbitrum}, "sepolia", nil),
		aggregate.New(readers, aggregate.WithBreakers(breakers)),
		leaderboard.NewBuilder(readers, leaderboard.WithBreakers(breakers)),
	)
	return &testEnv{server: srv, handler: srv.Handler(), sepolia: sepolia, arbitrum: arbitrum, breakers: breakers}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestCollectLogo(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sepolia.SetCounters(10, 4).SetPersonal(player, 2)

	rec, body := env.do(t, http.MethodPost, "/collect-logo", map[string]string{
		"userWallet": player.Hex(),
		"chain":      "sepolia",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, player.Hex(), body["userWallet"])
	assert.Equal(t, "sepolia", body["chain"])
	assert.Equal(t, "arbitrumSepolia", body["destination"])
	assert.Equal(t, float64(11), body["totalLogos"])
	assert.Equal(t, float64(3), body["personalCollection"])
	assert.Equal(t, "0.0001", body["quote"])
	assert.Equal(t, "100000000000000", body["quoteWei"])
	assert.NotEmpty(t, body["transactionHash"])
}

func TestCollectLogo_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		setup  func(env *testEnv)
		status int
		kind   string
	}{
		{
			name:   "invalid wallet",
			body:   map[string]string{"userWallet": "not-an-address"},
			status: http.StatusBadRequest,
			kind:   "InvalidInput",
		},
		{
			name:   "unknown chain",
			body:   map[string]string{"userWallet": player.Hex(), "chain": "mainnet"},
			status: http.StatusBadRequest,
			kind:   "InvalidInput",
		},
		{
			name:   "malformed body",
			body:   "[",
			status: http.StatusBadRequest,
			kind:   "InvalidInput",
		},
		{
			name: "quote revert",
			body: map[string]string{"userWallet": player.Hex(), "chain": "sepolia"},
			setup: func(env *testEnv) {
				env.sepolia.Fail(chain.MethodQuoteDispatch, errors.New("execution reverted"))
			},
			status: http.StatusInternalServerError,
			kind:   "BlockchainFailure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			if tt.setup != nil {
				tt.setup(env)
			}

			rec, body := env.do(t, http.MethodPost, "/collect-logo", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.kind, body["error"])
			assert.NotEmpty(t, body["details"])
			assert.Empty(t, env.sepolia.Writes())
		})
	}
}

func TestCollectLogo_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.RateLimitRPS = 0.001
		o.RateLimitBurst = 1
	})

	req := map[string]string{"userWallet": player.Hex()}
	rec, _ := env.do(t, http.MethodPost, "/collect-logo", req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/collect-logo", req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RateLimited", body["error"])
	assert.Len(t, env.sepolia.Writes(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.server.metrics.rateLimited))
}

func TestMethodNotAllowed(t *testing.T) {
	tests := []struct {
		method string
		path   string
		allow  string
	}{
		{http.MethodGet, "/collect-logo", http.MethodPost},
		{http.MethodGet, "/check-collection", http.MethodPost},
		{http.MethodPost, "/global-stats", http.MethodGet},
		{http.MethodDelete, "/leaderboard", http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec, body := env.do(t, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, tt.allow, rec.Header().Get("Allow"))
			require.NotNil(t, body, "error responses are JSON")
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "MethodNotAllowed", body["error"])
			assert.NotEmpty(t, body["details"])
			assert.Zero(t, env.sepolia.CallCount())
		})
	}
}

func TestCheckCollection(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sepolia.SetCounters(5, 4).SetPersonal(player, 2)
	env.arbitrum.SetCounters(3, 4).SetPersonal(player, 1)

	rec, body := env.do(t, http.MethodPost, "/check-collection", map[string]string{"userWallet": player.Hex()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]interface{}{
		"sepolia":         float64(2),
		"arbitrumSepolia": float64(1),
		"total":           float64(3),
	}, body["collection"])
	assert.Equal(t, map[string]interface{}{
		"sepolia":         map[string]interface{}{"total": float64(5), "participants": float64(4)},
		"arbitrumSepolia": map[string]interface{}{"total": float64(3), "participants": float64(4)},
	}, body["globalStats"])
	assert.NotContains(t, body, "degradedChains")

	_, again := env.do(t, http.MethodPost, "/check-collection", map[string]string{"userWallet": player.Hex()})
	assert.Equal(t, body, again, "check-collection is a pure read")
	assert.Empty(t, env.sepolia.Writes())
}

func TestCheckCollection_InvalidWalletMakesNoCalls(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodPost, "/check-collection", map[string]string{"userWallet": "0xzz"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidInput", body["error"])
	assert.Zero(t, env.sepolia.CallCount())
	assert.Zero(t, env.arbitrum.CallCount())
}

func TestCheckCollection_UnreachableChain(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sepolia.SetCounters(5, 4).SetPersonal(player, 2)
	env.arbitrum.Fail("", errors.New("dial tcp: connection refused"))

	rec, body := env.do(t, http.MethodPost, "/check-collection", map[string]string{"userWallet": player.Hex()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	collected := body["collection"].(map[string]interface{})
	assert.Equal(t, float64(0), collected["arbitrumSepolia"])
	assert.Equal(t, float64(2), collected["total"])
	assert.Equal(t, []interface{}{"arbitrumSepolia"}, body["degradedChains"])
}

func TestGlobalStats(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sepolia.SetCounters(5, 4)
	env.arbitrum.SetCounters(3, 4)

	rec, body := env.do(t, http.MethodGet, "/global-stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(8), body["totalLogos"])
	assert.Equal(t, float64(4), body["totalParticipants"])
}

func TestLeaderboard(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sepolia.SetPersonal(player, 1).SetPersonal(rival, 2)
	env.arbitrum.SetPersonal(player, 3)

	rec, body := env.do(t, http.MethodGet, "/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["totalPlayers"])

	players := body["topPlayers"].([]interface{})
	require.Len(t, players, 2)
	first := players[0].(map[string]interface{})
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, player.Hex(), first["wallet"])
	assert.Equal(t, "0x7099...0d20", first["displayWallet"])
	assert.Equal(t, float64(4), first["total"])
	assert.Equal(t, map[string]interface{}{"sepolia": float64(1), "arbitrumSepolia": float64(3)}, first["perChain"])

	rec, body = env.do(t, http.MethodGet, "/leaderboard?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["topPlayers"], 1)
	assert.Equal(t, float64(2), body["totalPlayers"])
}

func TestLeaderboard_BadLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, limit := range []string{"0", "-3", "ten"} {
		rec, body := env.do(t, http.MethodGet, "/leaderboard?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
		assert.Equal(t, "InvalidInput", body["error"])
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, body := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
	assert.Contains(t, body["endpoints"], "POST /collect-logo")
}

func TestCircuit(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 3; i++ {
		env.breakers.Record("arbitrumSepolia", errors.New("connection refused"))
	}

	rec, body := env.do(t, http.MethodGet, "/circuit?chain=arbitrumSepolia", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "open", body["state"])
	assert.Equal(t, "connection refused", body["last_error"])

	rec, body = env.do(t, http.MethodPost, "/circuit?chain=arbitrumSepolia&action=reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "closed", body["state"])

	rec, body = env.do(t, http.MethodGet, "/circuit?chain=mainnet", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NotFound", body["error"])

	_, body = env.do(t, http.MethodGet, "/status", nil)
	assert.Equal(t, map[string]interface{}{"sepolia": "closed", "arbitrumSepolia": "closed"}, body["circuit_states"])
}

func TestRequestMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/global-stats", nil)
	env.do(t, http.MethodGet, "/leaderboard?limit=x", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.server.metrics.requestCounter.WithLabelValues("global_stats", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.server.metrics.requestCounter.WithLabelValues("leaderboard", "400")))
}

func TestRequestSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := gotel.GetTracerProvider()
	gotel.SetTracerProvider(provider)
	t.Cleanup(func() { gotel.SetTracerProvider(previous) })

	env := newTestEnv(t, nil)
	rec, _ := env.do(t, http.MethodPost, "/check-collection", map[string]string{"userWallet": "0xnope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "http.check_collection", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)
	require.NotEmpty(t, span.Events())
	assert.Equal(t, "exception", span.Events()[0].Name)
}
