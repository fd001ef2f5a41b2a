// Package collection implements the collect-and-dispatch write path: read the
// origin counters, encode and quote the cross-chain discovery message, submit
// findLogo and report the freshly read counters.
package collection

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/logohunt-service/internal/chain"
	"github.com/yourorg/logohunt-service/internal/dispatch"
	"github.com/yourorg/logohunt-service/internal/model"
	"github.com/yourorg/logohunt-service/internal/observability"
	"github.com/yourorg/logohunt-service/internal/storage"
	"github.com/yourorg/logohunt-service/internal/types"
	"github.com/yourorg/logohunt-service/internal/validation"
)

// Request names the finder and the chains of one collect.
// Empty chain names resolve to the defaults.
type Request struct {
	Wallet      string
	Origin      string
	Destination string
}

// Service runs collects against a fixed set of endpoints
type Service struct {
	endpoints    map[string]chain.Endpoint
	order        []string
	defaultChain string
	quoter       *dispatch.Quoter
	receipts     storage.ReceiptStore
	readTimeout  time.Duration
	now          func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithReceiptStore records every confirmed collect in store
func WithReceiptStore(store storage.ReceiptStore) Option {
	return func(s *Service) { s.receipts = store }
}

// WithReadTimeout bounds each counter read
func WithReadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// NewService creates a Service. endpoints are in configuration order; an empty
// defaultChain selects the first one.
func NewService(endpoints []chain.Endpoint, defaultChain string, quoter *dispatch.Quoter, opts ...Option) *Service {
	s := &Service{
		endpoints:    make(map[string]chain.Endpoint, len(endpoints)),
		defaultChain: defaultChain,
		quoter:       quoter,
		readTimeout:  5 * time.Second,
		now:          time.Now,
	}
	for _, ep := range endpoints {
		name := ep.Descriptor().Name
		s.endpoints[name] = ep
		s.order = append(s.order, name)
	}
	if s.defaultChain == "" && len(s.order) > 0 {
		s.defaultChain = s.order[0]
	}
	if s.quoter == nil {
		s.quoter = dispatch.NewQuoter()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collect finds one logo for the wallet on the origin chain and dispatches the
// discovery to the destination chain. It is not idempotent: every successful
// call pays one fee and increments the counters once.
func (s *Service) Collect(ctx context.Context, req Request) (model.CollectResult, error) {
	wallet, origin, dest, err := s.resolve(req)
	if err != nil {
		return model.CollectResult{}, err
	}
	originName := origin.Descriptor().Name
	destDesc := dest.Descriptor()

	log := logrus.WithFields(logrus.Fields{
		"wallet":      wallet.Hex(),
		"origin":      originName,
		"destination": destDesc.Name,
	})

	result, err := s.collect(ctx, wallet, origin, destDesc, log)
	if err != nil {
		observability.RecordCollect(originName, "failure")
		log.WithError(err).Error("Collect failed")
		return model.CollectResult{}, types.NewError(types.KindBlockchain, "collect", err)
	}

	observability.RecordCollect(originName, "success")
	s.recordReceipt(ctx, result, log)
	return result, nil
}

func (s *Service) collect(ctx context.Context, wallet common.Address, origin chain.Endpoint, dest types.ChainDescriptor, log *logrus.Entry) (model.CollectResult, error) {
	total, personal, err := s.readCounters(ctx, origin, wallet)
	if err != nil {
		return model.CollectResult{}, err
	}
	log.WithFields(logrus.Fields{
		"total":    total,
		"personal": personal,
	}).Info("Current counters read")

	msg := model.NewDiscoveryMessage(wallet, total, personal)
	payload, err := dispatch.EncodeDiscovery(msg)
	if err != nil {
		return model.CollectResult{}, types.NewError(types.KindInternal, "encode discovery", err)
	}

	quoteCtx, cancel := context.WithTimeout(ctx, s.readTimeout)
	quote, err := s.quoter.Quote(quoteCtx, origin, dest.Domain(), payload)
	cancel()
	if err != nil {
		return model.CollectResult{}, err
	}
	wei, _ := new(big.Float).SetInt(quote.AmountWei).Float64()
	observability.RecordQuote(origin.Descriptor().Name, dest.Name, wei)
	log.WithField("quote", quote.Ether()).Info("Dispatch fee quoted")

	tx, err := origin.Write(ctx, chain.MethodFindLogo, quote.AmountWei, dest.Domain(), wallet)
	if err != nil {
		if tx.Hash != "" {
			log = log.WithField("tx_hash", tx.Hash)
		}
		log.Warn("findLogo was not confirmed; check the chain before retrying")
		return model.CollectResult{}, err
	}
	log.WithField("tx_hash", tx.Hash).Info("findLogo confirmed")

	// The write is on chain; the caller may be gone but the fresh counters are still owed.
	readCtx := context.WithoutCancel(ctx)
	newTotal, newPersonal, err := s.readCounters(readCtx, origin, wallet)
	if err != nil {
		return model.CollectResult{}, err
	}
	if !newTotal.IsUint64() || !newPersonal.IsUint64() {
		return model.CollectResult{}, types.Errorf(types.KindRPC, "read counters", "counter out of range")
	}

	return model.CollectResult{
		Wallet:             wallet,
		Origin:             origin.Descriptor().Name,
		Destination:        dest.Name,
		TotalLogos:         newTotal.Uint64(),
		PersonalCollection: newPersonal.Uint64(),
		Quote:              quote,
		Transaction:        tx,
	}, nil
}

// resolve validates the request without touching the network
func (s *Service) resolve(req Request) (common.Address, chain.Endpoint, chain.Endpoint, error) {
	wallet, err := validation.ParseWallet(req.Wallet)
	if err != nil {
		return common.Address{}, nil, nil, err
	}

	originName := req.Origin
	if originName == "" {
		originName = s.defaultChain
	}
	origin, ok := s.endpoints[originName]
	if !ok {
		return common.Address{}, nil, nil, types.Errorf(types.KindInvalidInput, "collect", "unknown chain %q, available: %v", req.Origin, s.order)
	}

	destName := req.Destination
	if destName == "" {
		for _, name := range s.order {
			if name != originName {
				destName = name
				break
			}
		}
	}
	if destName == originName {
		return common.Address{}, nil, nil, types.Errorf(types.KindInvalidInput, "collect", "origin and destination must differ, both are %q", originName)
	}
	dest, ok := s.endpoints[destName]
	if !ok {
		return common.Address{}, nil, nil, types.Errorf(types.KindInvalidInput, "collect", "unknown destination chain %q, available: %v", destName, s.order)
	}

	return wallet, origin, dest, nil
}

func (s *Service) readCounters(ctx context.Context, ep chain.Reader, wallet common.Address) (*big.Int, *big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()

	var total, personal *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := chain.ReadBig(gctx, ep, chain.MethodLogosFound)
		total = v
		return err
	})
	g.Go(func() error {
		v, err := chain.ReadBig(gctx, ep, chain.MethodPersonalCollection, wallet)
		personal = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return total, personal, nil
}

func (s *Service) recordReceipt(ctx context.Context, res model.CollectResult, log *logrus.Entry) {
	if s.receipts == nil {
		return
	}
	receipt := &storage.CollectReceipt{
		TxHash:             res.Transaction.Hash,
		Wallet:             res.Wallet.Hex(),
		OriginChain:        res.Origin,
		DestinationChain:   res.Destination,
		QuoteWei:           res.Quote.Wei(),
		TotalLogos:         res.TotalLogos,
		PersonalCollection: res.PersonalCollection,
		ConfirmedAt:        s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.readTimeout)
	defer cancel()
	if err := s.receipts.Insert(ctx, receipt); err != nil {
		observability.RecordReceiptStoreError()
		log.WithError(err).WithField("tx_hash", receipt.TxHash).Warn("Failed to record collect receipt")
	}
}

// Chains returns the configured chain names in order
func (s *Service) Chains() []string {
	return append([]string(nil), s.order...)
}
