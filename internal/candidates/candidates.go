// Package candidates discovers the wallets the leaderboard reads.
//
// The contract keeps no enumerable player list, so the leaderboard only sees
// wallets one of these sources can name. The default scan covers the latest
// block only; operators widen it with a lookback or add configured and
// collected wallets.
package candidates

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/logohunt-service/internal/chain"
	"github.com/yourorg/logohunt-service/internal/observability"
	"github.com/yourorg/logohunt-service/internal/storage"
	"github.com/yourorg/logohunt-service/internal/validation"
)

// Source lists candidate wallets
type Source interface {
	Name() string
	Candidates(ctx context.Context) ([]common.Address, error)
}

// Static returns a fixed address list
type Static struct {
	addrs []common.Address
}

// NewStatic creates a Static source
func NewStatic(addrs []common.Address) *Static {
	return &Static{addrs: validation.FilterAddresses(addrs)}
}

func (s *Static) Name() string { return "static" }

func (s *Static) Candidates(context.Context) ([]common.Address, error) {
	return append([]common.Address(nil), s.addrs...), nil
}

// LogClient is the part of ethclient.Client the scanner needs
type LogClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error)
}

// LogScanner collects the finders of recent LogoFound events on one chain
type LogScanner struct {
	chain    string
	client   LogClient
	contract common.Address
	lookback uint64
}

// NewLogScanner creates a scanner covering [latest-lookback, latest]
func NewLogScanner(chainName string, client LogClient, contract common.Address, lookback uint64) *LogScanner {
	return &LogScanner{chain: chainName, client: client, contract: contract, lookback: lookback}
}

func (s *LogScanner) Name() string { return "logs:" + s.chain }

func (s *LogScanner) Candidates(ctx context.Context) ([]common.Address, error) {
	latest, err := s.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block on %s: %w", s.chain, err)
	}
	from := uint64(0)
	if latest > s.lookback {
		from = latest - s.lookback
	}

	logs, err := s.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(latest),
		Addresses: []common.Address{s.contract},
		Topics:    [][]common.Hash{{chain.LogoFoundTopic}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter LogoFound logs on %s: %w", s.chain, err)
	}

	out := make([]common.Address, 0, len(logs))
	for _, l := range logs {
		// finder is the only indexed argument
		if len(l.Topics) < 2 || l.Removed {
			continue
		}
		out = append(out, common.BytesToAddress(l.Topics[1].Bytes()))
	}
	return validation.FilterAddresses(out), nil
}

// Receipts lists wallets that collected through this service
type Receipts struct {
	store storage.ReceiptStore
}

// NewReceipts creates a Receipts source
func NewReceipts(store storage.ReceiptStore) *Receipts {
	return &Receipts{store: store}
}

func (r *Receipts) Name() string { return "receipts" }

func (r *Receipts) Candidates(ctx context.Context) ([]common.Address, error) {
	wallets, err := r.store.ListWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collected wallets: %w", err)
	}
	out := make([]common.Address, 0, len(wallets))
	for _, w := range wallets {
		if common.IsHexAddress(w) {
			out = append(out, common.HexToAddress(w))
		}
	}
	return out, nil
}

// Multi merges several sources. A failing source is logged and skipped.
type Multi struct {
	sources []Source
}

// NewMulti creates a Multi source
func NewMulti(sources ...Source) *Multi {
	return &Multi{sources: sources}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Candidates(ctx context.Context) ([]common.Address, error) {
	var all []common.Address
	for _, s := range m.sources {
		addrs, err := s.Candidates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.WithField("source", s.Name()).WithError(err).Warn("Candidate source failed, skipping")
			continue
		}
		observability.UpdateCandidates(s.Name(), len(addrs))
		all = append(all, addrs...)
	}
	return validation.FilterAddresses(all), nil
}
