package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/yourorg/logohunt-service/internal/storage"
)

// ReceiptStore implements storage.ReceiptStore using PostgreSQL.
type ReceiptStore struct {
	pool *Pool
}

// NewReceiptStore creates a new ReceiptStore.
func NewReceiptStore(pool *Pool) *ReceiptStore {
	return &ReceiptStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReceiptStore = (*ReceiptStore)(nil)

// Insert appends a receipt. Returns ErrDuplicateKey if tx_hash exists.
func (s *ReceiptStore) Insert(ctx context.Context, r *storage.CollectReceipt) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.TotalLogos > math.MaxInt64 || r.PersonalCollection > math.MaxInt64 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO collect_receipts (
			tx_hash, wallet, origin_chain, destination_chain, quote_wei,
			total_logos, personal_collection, confirmed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		r.TxHash,
		r.Wallet,
		r.OriginChain,
		r.DestinationChain,
		r.QuoteWei,
		int64(r.TotalLogos),
		int64(r.PersonalCollection),
		r.ConfirmedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// GetByTxHash retrieves a receipt by transaction hash. Returns ErrNotFound if not exists.
func (s *ReceiptStore) GetByTxHash(ctx context.Context, txHash string) (*storage.CollectReceipt, error) {
	query := `
		SELECT tx_hash, wallet, origin_chain, destination_chain, quote_wei,
			total_logos, personal_collection, confirmed_at
		FROM collect_receipts
		WHERE lower(tx_hash) = lower($1)
	`

	var (
		r               storage.CollectReceipt
		total, personal int64
	)
	err := s.pool.QueryRow(ctx, query, txHash).Scan(
		&r.TxHash,
		&r.Wallet,
		&r.OriginChain,
		&r.DestinationChain,
		&r.QuoteWei,
		&total,
		&personal,
		&r.ConfirmedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get receipt by tx hash: %w", err)
	}
	r.TotalLogos = uint64(total)
	r.PersonalCollection = uint64(personal)
	return &r, nil
}

// ListWallets returns distinct lowercase wallets sorted ascending.
func (s *ReceiptStore) ListWallets(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT lower(wallet) FROM collect_receipts ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}
	return wallets, nil
}
