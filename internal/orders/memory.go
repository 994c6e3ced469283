package orders

import (
	"context"
	"sync"

	"github.com/hamikdash/storefront/internal/models"
)

// MemoryStore keeps orders in process memory, in arrival order.
type MemoryStore struct {
	mu     sync.RWMutex
	orders []models.Order
}

// NewMemoryStore creates an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, o models.Order) (int, bool, error) {
	o = clone(o)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id := o.FormID(); id != "" {
		for i := range s.orders {
			if s.orders[i].FormID() == id {
				s.orders[i] = o
				return len(s.orders), false, nil
			}
		}
	}
	s.orders = append(s.orders, o)
	return len(s.orders), true, nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = clone(o)
	}
	return out, nil
}

func (s *MemoryStore) GetByFormID(_ context.Context, formID string) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.FormID() == formID {
			return clone(o), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = nil
	return nil
}

// clone copies the top level; nested values are treated as immutable once stored.
func clone(o models.Order) models.Order {
	out := make(models.Order, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
