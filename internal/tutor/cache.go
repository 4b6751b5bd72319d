package tutor

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-deck/internal/platform/cache"
)

const cacheKeyPrefix = "deck:tutor:"

// AnswerCache remembers answers to questions already asked.
type AnswerCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, answer string) error
}

// CacheKey identifies a question about a level. Questions that differ only
// in case, Unicode form or spacing share a key.
func CacheKey(question, levelID string) string {
	q := norm.NFKC.String(question)
	q = cases.Fold().String(q)
	q = strings.Join(strings.Fields(q), " ")

	sum := blake2b.Sum256([]byte(q + "\x00" + levelID))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// RedisCache stores answers in Redis/Dragonfly.
type RedisCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewRedisCache creates an answer cache with the given TTL.
func NewRedisCache(c *cache.Cache, ttl time.Duration) *RedisCache {
	return &RedisCache{cache: c, ttl: ttl}
}

type cachedAnswer struct {
	Text     string    `json:"text"`
	CachedAt time.Time `json:"cached_at"`
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	var a cachedAnswer
	err := r.cache.GetJSON(ctx, key, &a)
	if errors.Is(err, cache.ErrMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return a.Text, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key, answer string) error {
	return r.cache.SetJSON(ctx, key, cachedAnswer{Text: answer, CachedAt: time.Now().UTC()}, r.ttl)
}

// MemoryCache is an in-process AnswerCache without expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	answers map[string]string
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{answers: make(map[string]string)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.answers[key]
	return a, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[key] = answer
	return nil
}
