package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	cache := NewCache(client, time.Minute)

	ctx := context.Background()
	type payload struct {
		Name string `json:"name"`
	}

	ok, err := cache.GetJSON(ctx, "k", &payload{})
	if err != nil || ok {
		t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
	}

	if err := cache.SetJSON(ctx, "k", payload{Name: "espresso"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	ok, err = cache.GetJSON(ctx, "k", &got)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Name != "espresso" {
		t.Fatalf("got %q", got.Name)
	}

	mr.FastForward(2 * time.Minute)
	ok, err = cache.GetJSON(ctx, "k", &got)
	if err != nil || ok {
		t.Fatalf("expected expiry after TTL, got ok=%v err=%v", ok, err)
	}
}

func TestNilCacheIsNoOp(t *testing.T) {
	var cache *Cache
	ctx := context.Background()
	if err := cache.SetJSON(ctx, "k", 1); err != nil {
		t.Fatalf("nil cache set: %v", err)
	}
	ok, err := cache.GetJSON(ctx, "k", new(int))
	if err != nil || ok {
		t.Fatalf("nil cache get: ok=%v err=%v", ok, err)
	}
}
