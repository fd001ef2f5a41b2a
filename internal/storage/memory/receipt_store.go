// Package memory provides in-memory storage implementations.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/yourorg/logohunt-service/internal/storage"
)

// ReceiptStore implements storage.ReceiptStore in memory.
type ReceiptStore struct {
	mu       sync.RWMutex
	receipts map[string]*storage.CollectReceipt
}

// NewReceiptStore creates an empty ReceiptStore.
func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{receipts: make(map[string]*storage.CollectReceipt)}
}

// Compile-time interface check.
var _ storage.ReceiptStore = (*ReceiptStore)(nil)

// Insert appends a receipt. Returns ErrDuplicateKey if the tx hash exists.
func (s *ReceiptStore) Insert(_ context.Context, r *storage.CollectReceipt) error {
	if err := r.Validate(); err != nil {
		return err
	}
	key := strings.ToLower(r.TxHash)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.receipts[key]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *r
	s.receipts[key] = &cp
	return nil
}

// GetByTxHash retrieves a receipt. Returns ErrNotFound if not exists.
func (s *ReceiptStore) GetByTxHash(_ context.Context, txHash string) (*storage.CollectReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[strings.ToLower(txHash)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ListWallets returns distinct wallets sorted ascending.
func (s *ReceiptStore) ListWallets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, r := range s.receipts {
		seen[strings.ToLower(r.Wallet)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	return out, nil
}
