package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/logohunt-service/internal/config"
	"github.com/yourorg/logohunt-service/internal/types"
)

// chainIDServer answers eth_chainId like a JSON-RPC node
func chainIDServer(t *testing.T, chainID uint64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x%x"}`, req.ID, chainID)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenReceiptStore_NoDatabase(t *testing.T) {
	store, closeStore, err := openReceiptStore(context.Background(), &config.Config{})
	require.NoError(t, err)
	defer closeStore()
	assert.Nil(t, store, "no receipts are held in process without a database")
}

func TestCandidateSources_WithoutStore(t *testing.T) {
	alice := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	cfg := &config.Config{
		LeaderboardCandidates:   []common.Address{alice},
		IncludeCollectedPlayers: true,
	}

	got, err := candidateSources(cfg, nil, nil).Candidates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice}, got)
}

func TestDialChains_LogsEachEndpointOnce(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	sepolia := chainIDServer(t, 11155111)
	arbitrum := chainIDServer(t, 421614)
	cfg := &config.Config{
		ReadTimeout: time.Second,
		Chains: []types.ChainDescriptor{
			{Name: "sepolia", ChainID: 11155111, RPCEndpoint: sepolia.URL, ContractAddress: common.HexToAddress("0x01")},
			{Name: "arbitrumSepolia", ChainID: 421614, RPCEndpoint: arbitrum.URL, ContractAddress: common.HexToAddress("0x02")},
		},
	}

	endpoints, err := dialChains(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() {
		for _, ep := range endpoints {
			ep.Close()
		}
	}()
	require.Len(t, endpoints, 2)

	ready := 0
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Chain endpoint ready" {
			ready++
		}
	}
	assert.Equal(t, 2, ready)
}
