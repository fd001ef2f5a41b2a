// Package storage defines the append-only receipt log of confirmed collects.
// Counters are never read back from it; the chain stays authoritative.
package storage

import (
	"context"
	"time"
)

// CollectReceipt records one confirmed findLogo transaction
type CollectReceipt struct {
	TxHash             string
	Wallet             string
	OriginChain        string
	DestinationChain   string
	QuoteWei           string
	TotalLogos         uint64
	PersonalCollection uint64
	ConfirmedAt        time.Time
}

// Validate checks required fields
func (r *CollectReceipt) Validate() error {
	if r == nil || r.TxHash == "" || r.Wallet == "" || r.OriginChain == "" || r.DestinationChain == "" {
		return ErrInvalidInput
	}
	return nil
}

// ReceiptStore provides access to collect_receipts storage.
type ReceiptStore interface {
	// Insert appends a receipt. Returns ErrDuplicateKey if tx_hash exists.
	Insert(ctx context.Context, r *CollectReceipt) error

	// GetByTxHash retrieves a receipt. Returns ErrNotFound if not exists.
	GetByTxHash(ctx context.Context, txHash string) (*CollectReceipt, error)

	// ListWallets returns every wallet with at least one receipt, sorted ascending.
	ListWallets(ctx context.Context) ([]string, error)
}
