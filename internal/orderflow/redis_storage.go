package orderflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultSessionTTL = 12 * time.Hour

// RedisStorage scopes keys under "session:{id}:" and expires them after ttl.
type RedisStorage struct {
	redis     *redis.Client
	namespace string
	ttl       time.Duration
	tracer    trace.Tracer
}

func NewRedisStorage(client *redis.Client, sessionID string, ttl time.Duration, tracer trace.Tracer) *RedisStorage {
	if client == nil {
		panic("orderflow: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("clinic.internal.orderflow.storage")
	}
	return &RedisStorage{
		redis:     client,
		namespace: fmt.Sprintf("session:%s:", sessionID),
		ttl:       ttl,
		tracer:    tracer,
	}
}

func (s *RedisStorage) key(k string) string {
	return s.namespace + k
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := s.tracer.Start(ctx, "orderflow.storage.get")
	defer span.End()

	value, err := s.redis.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("orderflow: failed to load %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	ctx, span := s.tracer.Start(ctx, "orderflow.storage.set")
	defer span.End()

	if err := s.redis.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("orderflow: failed to persist %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Remove(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "orderflow.storage.remove")
	defer span.End()

	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("orderflow: failed to remove %s: %w", key, err)
	}
	return nil
}
