package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "deck:session:"

// DefaultSessionTTL applies when RedisStore is given no TTL.
const DefaultSessionTTL = 2 * time.Hour

// RedisStore keeps session state in Redis/Dragonfly. Every save refreshes
// the TTL, so idle sessions expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store on an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, st State) (string, error) {
	st.ID = generateID()
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	data, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, redisKey(st.ID), data, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("creating session: id collision on %s", st.ID)
	}
	return st.ID, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (State, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return State{}, fmt.Errorf("loading session: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return st, nil
}

func (s *RedisStore) Save(ctx context.Context, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	// XX: only overwrite a session that has not expired.
	ok, err := s.client.SetXX(ctx, redisKey(st.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, st.ID)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
