package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestProgressSnapshotLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	snapshot := []byte(`{"stage":"uploading","percent":45}`)
	if err := client.PublishProgress(ctx, "upload-1", snapshot, 10*time.Minute); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	stored, err := client.Get(ctx, client.ProgressKey("upload-1"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored != string(snapshot) {
		t.Fatalf("expected stored snapshot, got %q", stored)
	}

	if err := client.Del(ctx, client.ProgressKey("upload-1")); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, client.ProgressKey("upload-1")); err == nil || err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestProgressKeyNamespace(t *testing.T) {
	client := &Client{}
	if got := client.ProgressKey("abc"); got != "ch:progress:abc" {
		t.Fatalf("unexpected progress key %s", got)
	}
}

func TestOptionsFromConfigRequiresEndpoint(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.PoolSize != 5 {
		t.Fatalf("pool size fallback not applied, got %d", opts.PoolSize)
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
