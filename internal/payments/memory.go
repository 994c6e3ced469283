package payments

import (
	"context"
	"fmt"
	"sync"

	"github.com/hamikdash/storefront/internal/models"
)

// MemoryStore keeps transactions in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	txs map[string]*models.Transaction
}

// NewMemoryStore creates an empty in-memory transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{txs: make(map[string]*models.Transaction)}
}

func (s *MemoryStore) Create(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[tx.ID]; ok {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	s.txs[tx.ID] = cloneTx(tx)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTx(tx), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*models.Transaction) error) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cloneTx(tx)
	if err := fn(next); err != nil {
		return nil, err
	}
	s.txs[id] = next
	return cloneTx(next), nil
}

func cloneTx(tx *models.Transaction) *models.Transaction {
	c := *tx
	c.Items = append([]models.OrderItem(nil), tx.Items...)
	return &c
}
