// Package leaderboard ranks candidate wallets by their combined personal
// collection across all chains.
package leaderboard

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/logohunt-service/internal/chain"
	"github.com/yourorg/logohunt-service/internal/circuitbreaker"
	"github.com/yourorg/logohunt-service/internal/model"
	"github.com/yourorg/logohunt-service/internal/observability"
	"github.com/yourorg/logohunt-service/internal/types"
	"github.com/yourorg/logohunt-service/internal/validation"
)

// Builder reads personal collections for a candidate list
type Builder struct {
	readers     []chain.Reader
	concurrency int
	readTimeout time.Duration
	breakers    *circuitbreaker.Set
}

// Option configures a Builder
type Option func(*Builder)

// WithConcurrency caps the number of reads in flight
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithReadTimeout bounds each read
func WithReadTimeout(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.readTimeout = d
		}
	}
}

// WithBreakers skips chains whose circuit is open
func WithBreakers(set *circuitbreaker.Set) Option {
	return func(b *Builder) { b.breakers = set }
}

// NewBuilder creates a Builder over readers
func NewBuilder(readers []chain.Reader, opts ...Option) *Builder {
	b := &Builder{
		readers:     readers,
		concurrency: 8,
		readTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build reads every candidate on every chain and returns the topN ranked
// entries together with the number of players with a non-zero total.
// A failed read counts as zero for that chain.
func (b *Builder) Build(ctx context.Context, candidates []common.Address, topN int) ([]model.PlayerEntry, int, error) {
	if topN <= 0 {
		return nil, 0, types.Errorf(types.KindInvalidInput, "leaderboard", "limit must be positive, got %d", topN)
	}

	candidates = validation.FilterAddresses(candidates)
	entries := make([]model.PlayerEntry, len(candidates))
	for i, addr := range candidates {
		entries[i] = model.PlayerEntry{Address: addr, PerChain: make(map[string]uint64, len(b.readers))}
	}

	var (
		mu     sync.Mutex
		failed int
	)
	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)
	for i := range entries {
		for _, r := range b.readers {
			i, r := i, r
			g.Go(func() error {
				name := r.Descriptor().Name
				n, err := b.read(ctx, r, entries[i].Address)
				if err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
					logrus.WithFields(logrus.Fields{
						"chain":  name,
						"wallet": entries[i].Address.Hex(),
					}).WithError(err).Debug("Leaderboard read failed, counting zero")
					n = 0
				}
				mu.Lock()
				entries[i].PerChain[name] = n
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if failed > 0 {
		logrus.WithFields(logrus.Fields{
			"failed_reads": failed,
			"candidates":   len(candidates),
		}).Warn("Leaderboard built with failed reads")
	}

	for i := range entries {
		for _, n := range entries[i].PerChain {
			entries[i].Total += n
		}
	}

	ranked, totalPlayers := Rank(entries, topN)
	return ranked, totalPlayers, nil
}

func (b *Builder) read(ctx context.Context, r chain.Reader, wallet common.Address) (uint64, error) {
	name := r.Descriptor().Name
	if err := b.breakers.Allow(name); err != nil {
		observability.RecordDegraded(name, "leaderboard", "circuit_open")
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.readTimeout)
	defer cancel()

	n, err := chain.ReadUint64(ctx, r, chain.MethodPersonalCollection, wallet)
	if !errors.Is(err, context.Canceled) {
		b.breakers.Record(name, err)
	}
	if err != nil {
		reason := "read_failed"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		observability.RecordDegraded(name, "leaderboard", reason)
	}
	return n, err
}

// Rank drops zero totals, orders by total descending then address ascending
// and truncates to topN. It returns the number of non-zero entries before truncation.
func Rank(entries []model.PlayerEntry, topN int) ([]model.PlayerEntry, int) {
	out := make([]model.PlayerEntry, 0, len(entries))
	for _, e := range entries {
		if e.Total > 0 {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return bytes.Compare(out[i].Address.Bytes(), out[j].Address.Bytes()) < 0
	})

	total := len(out)
	if topN >= 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, total
}
