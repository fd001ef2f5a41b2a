package candidates

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/logohunt-service/internal/chain"
	"github.com/yourorg/logohunt-service/internal/storage"
	"github.com/yourorg/logohunt-service/internal/storage/memory"
)

var (
	contract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type fakeLogClient struct {
	latest uint64
	logs   []gethtypes.Log
	err    error
	query  ethereum.FilterQuery
}

func (f *fakeLogClient) BlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeLogClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error) {
	f.query = q
	return f.logs, f.err
}

func logoFound(finder common.Address) gethtypes.Log {
	return gethtypes.Log{
		Address: contract,
		Topics:  []common.Hash{chain.LogoFoundTopic, common.BytesToHash(finder.Bytes())},
	}
}

func TestLogScanner(t *testing.T) {
	tests := []struct {
		name     string
		latest   uint64
		lookback uint64
		from     int64
	}{
		{"latest block only", 500, 0, 500},
		{"with lookback", 500, 100, 400},
		{"lookback beyond genesis", 50, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeLogClient{
				latest: tt.latest,
				logs:   []gethtypes.Log{logoFound(alice), logoFound(bob), logoFound(alice)},
			}
			s := NewLogScanner("sepolia", client, contract, tt.lookback)

			addrs, err := s.Candidates(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []common.Address{alice, bob}, addrs)

			assert.Equal(t, tt.from, client.query.FromBlock.Int64())
			assert.Equal(t, int64(tt.latest), client.query.ToBlock.Int64())
			assert.Equal(t, []common.Address{contract}, client.query.Addresses)
			assert.Equal(t, [][]common.Hash{{chain.LogoFoundTopic}}, client.query.Topics)
		})
	}
}

func TestLogScanner_SkipsMalformedAndRemoved(t *testing.T) {
	removed := logoFound(bob)
	removed.Removed = true
	client := &fakeLogClient{
		latest: 10,
		logs:   []gethtypes.Log{{Topics: []common.Hash{chain.LogoFoundTopic}}, removed, logoFound(alice)},
	}

	addrs, err := NewLogScanner("sepolia", client, contract, 0).Candidates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice}, addrs)
}

func TestReceipts(t *testing.T) {
	store := memory.NewReceiptStore()
	require.NoError(t, store.Insert(context.Background(), &storage.CollectReceipt{
		TxHash: "0x01", Wallet: alice.Hex(), OriginChain: "sepolia", DestinationChain: "arbitrumSepolia",
	}))

	addrs, err := NewReceipts(store).Candidates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice}, addrs)
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }

func (failingSource) Candidates(context.Context) ([]common.Address, error) {
	return nil, errors.New("rpc unavailable")
}

func TestMulti(t *testing.T) {
	m := NewMulti(
		NewStatic([]common.Address{bob, alice}),
		failingSource{},
		NewLogScanner("sepolia", &fakeLogClient{latest: 1, logs: []gethtypes.Log{logoFound(alice)}}, contract, 0),
	)

	addrs, err := m.Candidates(context.Background())
	require.NoError(t, err, "a failing source never fails discovery")
	assert.Equal(t, []common.Address{bob, alice}, addrs)
}

func TestMulti_Empty(t *testing.T) {
	addrs, err := NewMulti().Candidates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, addrs)
}
