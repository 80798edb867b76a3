package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("server.addr = %q", c.Server.Addr)
	}
	if c.Cache.Kind != "redis" {
		t.Fatalf("cache.kind = %q", c.Cache.Kind)
	}
	if c.Queue.Concurrency != 5 {
		t.Fatalf("queue.concurrency = %d", c.Queue.Concurrency)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := "server:\n  addr: \":9000\"\nredis:\n  addr: \"redis:6379\"\n  db: 2\ncache:\n  kind: memory\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FEEDCORE_REDIS_ADDR", "other:6380")
	t.Setenv("FEEDCORE_QUEUE_CONCURRENCY", "3")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":9000" {
		t.Fatalf("server.addr = %q", c.Server.Addr)
	}
	if c.Cache.Kind != "memory" {
		t.Fatalf("cache.kind = %q", c.Cache.Kind)
	}
	// env pisa yaml
	if c.Redis.Addr != "other:6380" {
		t.Fatalf("redis.addr = %q", c.Redis.Addr)
	}
	if c.Redis.DB != 2 {
		t.Fatalf("redis.db = %d", c.Redis.DB)
	}
	if c.Queue.Concurrency != 3 {
		t.Fatalf("queue.concurrency = %d", c.Queue.Concurrency)
	}
}

func TestLoadRejectsBadCacheKind(t *testing.T) {
	t.Setenv("FEEDCORE_CACHE_KIND", "memcached")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for cache.kind=memcached")
	}
}
