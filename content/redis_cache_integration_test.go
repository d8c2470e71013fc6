//go:build integration

package content

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}
	return client, cleanup
}

func TestRedisCache_Integration(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	c := NewRedisCache(client, "leaknews:test:")

	if _, ok, err := c.Get(ctx, "posts:1"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "posts:1", []byte(`[{"id":1}]`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	body, ok, err := c.Get(ctx, "posts:1")
	if err != nil || !ok || string(body) != `[{"id":1}]` {
		t.Fatalf("Get = %q, %v, %v", body, ok, err)
	}

	ttl, err := client.TTL(ctx, "leaknews:test:posts:1").Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v, want (0, 1m]", ttl)
	}
}

func TestRedisCache_Integration_WithClient(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	cfg := DefaultConfig("http://127.0.0.1:1/apis")
	cfg.Cache = NewRedisCache(client, "leaknews:test:")
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Seed the cache directly; the unreachable base URL proves the read is served from Redis.
	if err := cfg.Cache.Set(context.Background(), "posts:2", []byte(`[{"id":5,"slug":"cached"}]`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	listing, err := c.ListPosts(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if listing.Kind != ListingPage || listing.Posts[0].Slug != "cached" {
		t.Errorf("listing = %+v", listing)
	}
}
