package dispatch

import (
	"context"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/logohunt-service/internal/chain"
	"github.com/yourorg/logohunt-service/internal/model"
	"github.com/yourorg/logohunt-service/internal/types"
)

// Quoter prices cross-chain message delivery through the origin contract
type Quoter struct{}

// NewQuoter creates a Quoter
func NewQuoter() *Quoter {
	return &Quoter{}
}

// Quote asks the origin contract for the fee to deliver payload to destinationDomain.
// Every failure is a QuoteFailure; the caller must not submit without a quote.
func (q *Quoter) Quote(ctx context.Context, origin chain.Reader, destinationDomain uint32, payload []byte) (model.Quote, error) {
	op := origin.Descriptor().Name + "." + chain.MethodQuoteDispatch

	fee, err := chain.ReadBig(ctx, origin, chain.MethodQuoteDispatch, destinationDomain, payload)
	if err != nil {
		return model.Quote{}, types.NewError(types.KindQuote, op, err)
	}
	if fee.Sign() < 0 {
		return model.Quote{}, types.Errorf(types.KindQuote, op, "negative fee %s", fee)
	}

	logrus.WithFields(logrus.Fields{
		"origin":      origin.Descriptor().Name,
		"destination": destinationDomain,
		"fee_wei":     fee.String(),
	}).Debug("Dispatch quoted")

	return model.Quote{AmountWei: new(big.Int).Set(fee)}, nil
}
