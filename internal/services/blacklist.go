package services

import (
	"context"
	"fmt"
	"time"

	"github.com/collabspace/server/internal/config"
	"github.com/redis/go-redis/v9"
)

// TokenBlacklist is the revocation store for issued tokens. A token present
// in the store must be treated as invalid even when its signature verifies
// (e.g. after logout). Entries expire together with the token itself.
type TokenBlacklist struct {
	client *redis.Client
	prefix string
}

// NewTokenBlacklist connects to Redis and verifies the connection.
func NewTokenBlacklist(cfg *config.RedisConfig) (*TokenBlacklist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewTokenBlacklistWithClient(client), nil
}

// NewTokenBlacklistWithClient creates a blacklist from an existing Redis client.
func NewTokenBlacklistWithClient(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{
		client: client,
		prefix: "blacklist:",
	}
}

func (b *TokenBlacklist) key(token string) string {
	return b.prefix + token
}

// Revoke marks a token as invalid until it would have expired anyway.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired; nothing to store.
		return nil
	}
	if err := b.client.Set(ctx, b.key(token), "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token is present in the revocation store.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := b.client.Get(ctx, b.key(token)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup token: %w", err)
	}
	return true, nil
}

// Close closes the Redis connection.
func (b *TokenBlacklist) Close() error {
	return b.client.Close()
}

// Ping checks if Redis is reachable.
func (b *TokenBlacklist) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
