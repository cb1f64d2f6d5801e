// Package cache stores completion responses keyed by a digest of the
// request, so repeated identical prompts skip the network and the spend.
// An in-memory backend serves the normal single-process case; a Redis
// backend is available when sessions should share results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentlab/agentlab/internal/domain"
)

type Cache interface {
	Get(ctx context.Context, key string) (*domain.CompletionResponse, bool)
	Set(ctx context.Context, key string, resp *domain.CompletionResponse, ttl time.Duration) error
}

// Key derives the cache key from everything that shapes a provider
// response: provider, model, both prompt parts, and sampling settings.
func Key(provider string, req domain.CompletionRequest) string {
	data, _ := json.Marshal(struct {
		Provider    string  `json:"provider"`
		Model       string  `json:"model"`
		System      string  `json:"system"`
		Prompt      string  `json:"prompt"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
	}{provider, req.Model, req.System, req.Prompt, req.Temperature, req.MaxTokens})

	hash := sha256.Sum256(data)
	return "completion:" + hex.EncodeToString(hash[:])
}

type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]*cacheItem
}

type cacheItem struct {
	response  *domain.CompletionResponse
	expiresAt time.Time
}

func NewInMemoryCache() *InMemoryCache {
	c := &InMemoryCache{
		items: make(map[string]*cacheItem),
	}
	go c.cleanup()
	return c
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (*domain.CompletionResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(item.expiresAt) {
		return nil, false
	}

	resp := *item.response
	return &resp, true
}

func (c *InMemoryCache) Set(ctx context.Context, key string, resp *domain.CompletionResponse, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := *resp
	c.items[key] = &cacheItem{
		response:  &stored,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (c *InMemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, item := range c.items {
			if now.After(item.expiresAt) {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*domain.CompletionResponse, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var resp domain.CompletionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (c *RedisCache) Set(ctx context.Context, key string, resp *domain.CompletionResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
