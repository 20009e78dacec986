package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Vaibhavugile/doenew/models"
	"github.com/redis/go-redis/v9"
)

var ErrQuoteNotFound = errors.New("quote session not found or expired")

// QuoteStore keeps serviceability results between the booking steps.
type QuoteStore interface {
	Save(ctx context.Context, q *models.QuoteSession) error
	Get(ctx context.Context, quoteID string) (*models.QuoteSession, error)
}

// RedisQuoteStore stores quote sessions as JSON with a TTL.
type RedisQuoteStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisQuoteStore(client *redis.Client, ttl time.Duration) *RedisQuoteStore {
	return &RedisQuoteStore{client: client, ttl: ttl}
}

func (s *RedisQuoteStore) key(quoteID string) string {
	return fmt.Sprintf("rental:quote:%s", quoteID)
}

func (s *RedisQuoteStore) Save(ctx context.Context, q *models.QuoteSession) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote session: %w", err)
	}
	return s.client.Set(ctx, s.key(q.ID), data, s.ttl).Err()
}

func (s *RedisQuoteStore) Get(ctx context.Context, quoteID string) (*models.QuoteSession, error) {
	data, err := s.client.Get(ctx, s.key(quoteID)).Bytes()
	if err == redis.Nil {
		return nil, ErrQuoteNotFound
	}
	if err != nil {
		return nil, err
	}

	var q models.QuoteSession
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("unmarshal quote session: %w", err)
	}
	return &q, nil
}
