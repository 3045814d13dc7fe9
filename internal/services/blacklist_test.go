package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBlacklist(t *testing.T) (*TokenBlacklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewTokenBlacklistWithClient(client)
	t.Cleanup(func() { b.Close() })
	return b, mr
}

func TestTokenBlacklist_RevokeAndCheck(t *testing.T) {
	b, _ := newTestBlacklist(t)
	ctx := context.Background()

	revoked, err := b.IsRevoked(ctx, "some-token")
	if err != nil {
		t.Fatalf("IsRevoked() error = %v", err)
	}
	if revoked {
		t.Error("fresh token should not be revoked")
	}

	if err := b.Revoke(ctx, "some-token", time.Hour); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	revoked, err = b.IsRevoked(ctx, "some-token")
	if err != nil {
		t.Fatalf("IsRevoked() error = %v", err)
	}
	if !revoked {
		t.Error("revoked token should be reported as revoked")
	}
}

func TestTokenBlacklist_EntryExpires(t *testing.T) {
	b, mr := newTestBlacklist(t)
	ctx := context.Background()

	if err := b.Revoke(ctx, "short-lived", time.Minute); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	revoked, err := b.IsRevoked(ctx, "short-lived")
	if err != nil {
		t.Fatalf("IsRevoked() error = %v", err)
	}
	if revoked {
		t.Error("entry should expire with the token's remaining lifetime")
	}
}

func TestTokenBlacklist_ZeroTTLIsNoop(t *testing.T) {
	b, _ := newTestBlacklist(t)
	ctx := context.Background()

	if err := b.Revoke(ctx, "already-expired", 0); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	revoked, _ := b.IsRevoked(ctx, "already-expired")
	if revoked {
		t.Error("expired tokens need no revocation entry")
	}
}

func TestTokenBlacklist_StoreDown(t *testing.T) {
	b, mr := newTestBlacklist(t)
	ctx := context.Background()
	mr.Close()

	if _, err := b.IsRevoked(ctx, "any"); err == nil {
		t.Error("IsRevoked should surface a store error, not swallow it")
	}
}

func TestTokenBlacklist_TokensAreIndependent(t *testing.T) {
	b, _ := newTestBlacklist(t)
	ctx := context.Background()

	b.Revoke(ctx, "token-a", time.Hour)

	revoked, _ := b.IsRevoked(ctx, "token-b")
	if revoked {
		t.Error("revoking one token must not affect another")
	}
}
