package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/logohunt-service/internal/chain"
	"github.com/yourorg/logohunt-service/internal/chain/chaintest"
	"github.com/yourorg/logohunt-service/internal/circuitbreaker"
	"github.com/yourorg/logohunt-service/internal/model"
	"github.com/yourorg/logohunt-service/internal/types"
)

var player = common.HexToAddress("0x70997970C51812dc3A5B7dc7F8c87a6e5e6e0d20")

func newChains() (*chaintest.Contract, *chaintest.Contract) {
	return chaintest.NewContract("sepolia", 11155111), chaintest.NewContract("arbitrumSepolia", 421614)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		chains   []model.ChainStats
		expected model.StatsView
	}{
		{
			name: "sums totals and takes max participants",
			chains: []model.ChainStats{
				{Chain: "sepolia", Snapshot: model.CollectionSnapshot{Total: 5, Participants: 4, Personal: 2}},
				{Chain: "arbitrumSepolia", Snapshot: model.CollectionSnapshot{Total: 3, Participants: 4, Personal: 1}},
			},
			expected: model.StatsView{TotalLogos: 8, TotalParticipants: 4, PersonalTotal: 3},
		},
		{
			name: "uneven participants",
			chains: []model.ChainStats{
				{Chain: "sepolia", Snapshot: model.CollectionSnapshot{Total: 7, Participants: 2}},
				{Chain: "arbitrumSepolia", Snapshot: model.CollectionSnapshot{Total: 1, Participants: 6}},
			},
			expected: model.StatsView{TotalLogos: 8, TotalParticipants: 6},
		},
		{
			name: "degraded chain contributes zeros",
			chains: []model.ChainStats{
				{Chain: "sepolia", Snapshot: model.CollectionSnapshot{Total: 5, Participants: 4}},
				{Chain: "arbitrumSepolia", Degraded: true},
			},
			expected: model.StatsView{TotalLogos: 5, TotalParticipants: 4},
		},
		{
			name:     "empty input",
			chains:   nil,
			expected: model.StatsView{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.chains)
			assert.Equal(t, tt.expected.TotalLogos, got.TotalLogos)
			assert.Equal(t, tt.expected.TotalParticipants, got.TotalParticipants)
			assert.Equal(t, tt.expected.PersonalTotal, got.PersonalTotal)
			assert.Equal(t, tt.chains, got.Chains)
		})
	}
}

func TestGlobalStats(t *testing.T) {
	sepolia, arbitrum := newChains()
	sepolia.SetCounters(5, 4)
	arbitrum.SetCounters(3, 4)
	agg := New([]chain.Reader{sepolia, arbitrum})

	view, err := agg.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(8), view.TotalLogos)
	assert.Equal(t, uint64(4), view.TotalParticipants)
	assert.Empty(t, view.DegradedChains())
	require.Len(t, view.Chains, 2)
	assert.Equal(t, "sepolia", view.Chains[0].Chain)
	assert.Equal(t, model.CollectionSnapshot{Total: 5, Participants: 4}, view.Chains[0].Snapshot)
	assert.Equal(t, "arbitrumSepolia", view.Chains[1].Chain)

	for _, c := range sepolia.Reads() {
		assert.NotEqual(t, chain.MethodPersonalCollection, c.Method, "global stats never read personal counters")
	}
}

func TestUserStats(t *testing.T) {
	sepolia, arbitrum := newChains()
	sepolia.SetCounters(5, 4).SetPersonal(player, 2)
	arbitrum.SetCounters(3, 4).SetPersonal(player, 1)
	agg := New([]chain.Reader{sepolia, arbitrum})

	view, err := agg.UserStats(context.Background(), player)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), view.PersonalTotal)
	assert.Equal(t, uint64(2), view.Chains[0].Snapshot.Personal)
	assert.Equal(t, uint64(1), view.Chains[1].Snapshot.Personal)
	assert.Equal(t, uint64(8), view.TotalLogos)
}

func TestUserStats_Idempotent(t *testing.T) {
	sepolia, arbitrum := newChains()
	sepolia.SetCounters(5, 4).SetPersonal(player, 2)
	arbitrum.SetCounters(3, 4)
	agg := New([]chain.Reader{sepolia, arbitrum})

	first, err := agg.UserStats(context.Background(), player)
	require.NoError(t, err)
	second, err := agg.UserStats(context.Background(), player)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Empty(t, sepolia.Writes())
	assert.Empty(t, arbitrum.Writes())
}

func TestUserStats_OneChainDown(t *testing.T) {
	sepolia, arbitrum := newChains()
	sepolia.SetCounters(5, 4).SetPersonal(player, 2)
	arbitrum.Fail("", errors.New("dial tcp: connection refused"))
	agg := New([]chain.Reader{sepolia, arbitrum})

	view, err := agg.UserStats(context.Background(), player)
	require.NoError(t, err, "a single unreachable chain must not fail the view")
	assert.Equal(t, []string{"arbitrumSepolia"}, view.DegradedChains())
	assert.Equal(t, model.CollectionSnapshot{}, view.Chains[1].Snapshot)
	assert.Equal(t, uint64(5), view.TotalLogos)
	assert.Equal(t, uint64(2), view.PersonalTotal)
}

func TestGlobalStats_PartialReadFailureZeroesChain(t *testing.T) {
	sepolia, arbitrum := newChains()
	sepolia.SetCounters(5, 4)
	arbitrum.SetCounters(3, 2).Fail(chain.MethodUniqueParticipants, errors.New("execution reverted"))
	agg := New([]chain.Reader{sepolia, arbitrum})

	view, err := agg.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Chains[1].Degraded)
	assert.Zero(t, view.Chains[1].Snapshot.Total, "no partial values from a failed chain")
	assert.Equal(t, uint64(5), view.TotalLogos)
}

func TestGlobalStats_SlowChainTimesOut(t *testing.T) {
	sepolia, arbitrum := newChains()
	sepolia.SetCounters(5, 4)
	arbitrum.SetCounters(3, 4).Delay(chain.MethodLogosFound, time.Second)
	agg := New([]chain.Reader{sepolia, arbitrum}, WithReadTimeout(30*time.Millisecond))

	start := time.Now()
	view, err := agg.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []string{"arbitrumSepolia"}, view.DegradedChains())
}

func TestGlobalStats_CircuitOpenSkipsChain(t *testing.T) {
	sepolia, arbitrum := newChains()
	sepolia.SetCounters(5, 4)
	arbitrum.Fail("", errors.New("connection refused"))
	breakers := circuitbreaker.NewSet([]string{"sepolia", "arbitrumSepolia"}, 1, time.Minute, nil)
	agg := New([]chain.Reader{sepolia, arbitrum}, WithBreakers(breakers))

	_, err := agg.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, circuitbreaker.StateOpen, breakers.States()["arbitrumSepolia"])

	before := arbitrum.CallCount()
	view, err := agg.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, arbitrum.CallCount(), "an open circuit makes no calls")
	assert.Equal(t, []string{"arbitrumSepolia"}, view.DegradedChains())
	assert.Equal(t, circuitbreaker.StateClosed, breakers.States()["sepolia"])
}

func TestGlobalStats_CallerCancelled(t *testing.T) {
	sepolia, arbitrum := newChains()
	sepolia.Delay(chain.MethodLogosFound, time.Second)
	agg := New([]chain.Reader{sepolia, arbitrum})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := agg.GlobalStats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGlobalStats_NoChains(t *testing.T) {
	_, err := New(nil).GlobalStats(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.KindConfiguration, types.KindOf(err))
}
