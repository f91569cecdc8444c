package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bellodavid/external-payment/models"
)

// RedisStore persists receipts in Redis so multiple hosted-checkout instances
// can share them. A zero TTL keeps receipts indefinitely.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func receiptKey(sessionID string) string {
	return "checkout:receipt:" + sessionID
}

func (s *RedisStore) Save(ctx context.Context, receipt *models.Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}
	if err = s.client.Set(ctx, receiptKey(receipt.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store receipt: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*models.Receipt, error) {
	data, err := s.client.Get(ctx, receiptKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}

	var receipt models.Receipt
	if err = json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipt: %w", err)
	}
	return &receipt, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, receiptKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}
