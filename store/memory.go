package store

import (
	"context"
	"sync"

	"github.com/bellodavid/external-payment/models"
)

// MemoryStore keeps receipts in process memory. Suitable for a single-instance
// host and for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	receipts map[string]*models.Receipt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{receipts: make(map[string]*models.Receipt)}
}

func (s *MemoryStore) Save(ctx context.Context, receipt *models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *receipt
	s.receipts[receipt.SessionID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	receipt, ok := s.receipts[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *receipt
	return &cp, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.receipts, sessionID)
	return nil
}
