package coupons

import (
	"context"
	"strings"
	"sync"

	"github.com/hamikdash/storefront/internal/models"
)

// MemoryStore keeps coupons in process memory, in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	coupons []models.Coupon
}

// NewMemoryStore creates an empty in-memory coupon store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) List(_ context.Context) ([]models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Coupon, len(s.coupons))
	copy(out, s.coupons)
	return out, nil
}

func (s *MemoryStore) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexByCode(code)
	if i < 0 {
		return nil, ErrNotFound
	}
	c := s.coupons[i]
	return &c, nil
}

func (s *MemoryStore) Insert(_ context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexByCode(c.Code) >= 0 {
		return ErrConflict
	}
	s.coupons = append(s.coupons, *c)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*models.Coupon) error) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexByID(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	c := s.coupons[i]
	if err := fn(&c); err != nil {
		return nil, err
	}
	if j := s.indexByCode(c.Code); j >= 0 && j != i {
		return nil, ErrConflict
	}
	c.ID = id
	s.coupons[i] = c
	return &c, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexByID(id)
	if i < 0 {
		return ErrNotFound
	}
	s.coupons = append(s.coupons[:i], s.coupons[i+1:]...)
	return nil
}

func (s *MemoryStore) IncrementUsage(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexByCode(code)
	if i < 0 {
		return nil, ErrNotFound
	}
	if s.coupons[i].UsageCount >= s.coupons[i].MaxUsage {
		return nil, ErrLimitReached
	}
	s.coupons[i].UsageCount++
	c := s.coupons[i]
	return &c, nil
}

// caller holds mu
func (s *MemoryStore) indexByCode(code string) int {
	for i := range s.coupons {
		if strings.EqualFold(s.coupons[i].Code, code) {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) indexByID(id string) int {
	for i := range s.coupons {
		if s.coupons[i].ID == id {
			return i
		}
	}
	return -1
}
