package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/paygate/backend/services/common/clients"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultTTL = 60 * time.Second

// Key hashes the API key so raw keys never land in Redis.
func Key(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "merchant_cache:" + hex.EncodeToString(sum[:])[:16]
}

// MerchantCache stores merchant lookups by API key. Implementations treat
// backend errors as misses.
type MerchantCache interface {
	Get(ctx context.Context, apiKey string) (*clients.Merchant, bool)
	Set(ctx context.Context, apiKey string, m *clients.Merchant)
}

type RedisMerchantCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisMerchantCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisMerchantCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisMerchantCache{client: client, ttl: ttl, logger: logger}
}

func (r *RedisMerchantCache) Get(ctx context.Context, apiKey string) (*clients.Merchant, bool) {
	data, err := r.client.Get(ctx, Key(apiKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Debug("merchant cache read failed", zap.Error(err))
		return nil, false
	}

	var m clients.Merchant
	if err := json.Unmarshal(data, &m); err != nil {
		r.logger.Warn("dropping corrupt merchant cache entry", zap.Error(err))
		return nil, false
	}
	return &m, true
}

func (r *RedisMerchantCache) Set(ctx context.Context, apiKey string, m *clients.Merchant) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, Key(apiKey), data, r.ttl).Err(); err != nil {
		r.logger.Debug("merchant cache write failed", zap.Error(err))
	}
}

// NewRedisClient parses url and pings the server. A failed ping is returned
// alongside the client so callers can decide to run without a cache.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client, client.Ping(pingCtx).Err()
}
