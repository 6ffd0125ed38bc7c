package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tgexam/backend/internal/model"
)

// sessionKey builds the Redis key for a session record.
func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

const sessionKeyPattern = "session:*"

// RedisSessionStore is the external SessionStore for multi-instance
// deployments. Records are stored as JSON with the TTL applied via EXPIRE.
type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessionStore wraps an already-connected Redis client.
func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*model.SessionRecord, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var rec model.SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	return &rec, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, rec *model.SessionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(rec.SessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) List(ctx context.Context) ([]model.SessionRecord, error) {
	var out []model.SessionRecord

	iter := s.rdb.Scan(ctx, 0, sessionKeyPattern, 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue // Expired between SCAN and GET
		}
		if err != nil {
			return nil, fmt.Errorf("redis get %s: %w", iter.Val(), err)
		}
		var rec model.SessionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue // Skip unreadable records rather than failing the listing
		}
		out = append(out, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan sessions: %w", err)
	}
	return out, nil
}
