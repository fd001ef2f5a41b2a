// Package aggregate reads the game counters from every configured chain in
// parallel and merges them into one view. A chain that cannot be read is
// reported as zeros and flagged as degraded; it never fails the whole view.
package aggregate

import (
	"context"
	"errors"
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
)

// Degradation reasons recorded in metrics and logs
const (
	ReasonCircuitOpen = "circuit_open"
	ReasonTimeout     = "timeout"
	ReasonReadFailed  = "read_failed"
)

// Aggregator fans reads out over a fixed set of chains
type Aggregator struct {
	readers     []chain.Reader
	readTimeout time.Duration
	breakers    *circuitbreaker.Set
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithReadTimeout bounds the reads of one chain
func WithReadTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.readTimeout = d
		}
	}
}

// WithBreakers skips chains whose circuit is open
func WithBreakers(set *circuitbreaker.Set) Option {
	return func(a *Aggregator) { a.breakers = set }
}

// New creates an Aggregator over readers, kept in the given order
func New(readers []chain.Reader, opts ...Option) *Aggregator {
	a := &Aggregator{
		readers:     readers,
		readTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Chains returns the chain names in configuration order
func (a *Aggregator) Chains() []string {
	names := make([]string, 0, len(a.readers))
	for _, r := range a.readers {
		names = append(names, r.Descriptor().Name)
	}
	return names
}

// GlobalStats reads the total and participant counters of every chain
func (a *Aggregator) GlobalStats(ctx context.Context) (model.StatsView, error) {
	return a.collect(ctx, "global_stats", nil)
}

// UserStats reads the global counters and the wallet's personal collection of every chain
func (a *Aggregator) UserStats(ctx context.Context, wallet common.Address) (model.StatsView, error) {
	return a.collect(ctx, "user_stats", &wallet)
}

func (a *Aggregator) collect(ctx context.Context, operation string, wallet *common.Address) (model.StatsView, error) {
	if len(a.readers) == 0 {
		return model.StatsView{}, types.Errorf(types.KindConfiguration, operation, "no chains configured")
	}

	chains := make([]model.ChainStats, len(a.readers))
	var wg sync.WaitGroup
	for i, r := range a.readers {
		wg.Add(1)
		go func(i int, r chain.Reader) {
			defer wg.Done()
			chains[i] = a.readChain(ctx, operation, r, wallet)
		}(i, r)
	}
	wg.Wait()

	// The caller is gone; the partial result is abandoned.
	if err := ctx.Err(); err != nil {
		return model.StatsView{}, err
	}
	return Merge(chains), nil
}

func (a *Aggregator) readChain(ctx context.Context, operation string, r chain.Reader, wallet *common.Address) model.ChainStats {
	name := r.Descriptor().Name
	var snap model.CollectionSnapshot

	err := a.guard(ctx, name, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			v, err := chain.ReadUint64(gctx, r, chain.MethodLogosFound)
			snap.Total = v
			return err
		})
		g.Go(func() error {
			v, err := chain.ReadUint64(gctx, r, chain.MethodUniqueParticipants)
			snap.Participants = v
			return err
		})
		if wallet != nil {
			g.Go(func() error {
				v, err := chain.ReadUint64(gctx, r, chain.MethodPersonalCollection, *wallet)
				snap.Personal = v
				return err
			})
		}
		return g.Wait()
	})
	if err != nil {
		return a.degrade(name, operation, err)
	}
	return model.ChainStats{Chain: name, Snapshot: snap}
}

// guard runs fn under the chain's breaker and read timeout
func (a *Aggregator) guard(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := a.breakers.Allow(name); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.readTimeout)
	defer cancel()

	err := fn(ctx)
	// Caller cancellation says nothing about the chain's health.
	if !errors.Is(err, context.Canceled) {
		a.breakers.Record(name, err)
	}
	return err
}

func (a *Aggregator) degrade(name, operation string, err error) model.ChainStats {
	reason := ReasonReadFailed
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		reason = ReasonCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		reason = ReasonTimeout
	}

	observability.RecordDegraded(name, operation, reason)
	logrus.WithFields(logrus.Fields{
		"chain":     name,
		"operation": operation,
		"reason":    reason,
	}).WithError(err).Warn("Chain read failed, reporting zeros")

	return model.ChainStats{Chain: name, Degraded: true}
}

// Merge combines per-chain snapshots. Totals and personal counts are summed.
// Participants are the maximum over chains since the same player is usually
// counted on both sides of the bridge.
func Merge(chains []model.ChainStats) model.StatsView {
	view := model.StatsView{Chains: chains}
	for _, c := range chains {
		view.TotalLogos += c.Snapshot.Total
		view.PersonalTotal += c.Snapshot.Personal
		if c.Snapshot.Participants > view.TotalParticipants {
			view.TotalParticipants = c.Snapshot.Participants
		}
	}
	return view
}
