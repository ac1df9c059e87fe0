package redis

import (
	"context"
	"testing"
	"time"
)

func TestNew_empty_url_disabled(t *testing.T) {
	c, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c != nil {
		t.Error("expected nil client when URL is empty")
	}
}

func TestNew_bad_url(t *testing.T) {
	_, err := New(context.Background(), Config{URL: "not-a-redis-url"})
	if err == nil {
		t.Error("expected parse error")
	}
}

func TestOptions_overrides(t *testing.T) {
	opts, err := options(Config{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: 3 * time.Second})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.PoolSize != 7 {
		t.Errorf("expected pool size 7, got %d", opts.PoolSize)
	}
	if opts.DialTimeout != 3*time.Second {
		t.Errorf("expected dial timeout 3s, got %s", opts.DialTimeout)
	}
	if opts.DB != 2 {
		t.Errorf("expected db 2 from url, got %d", opts.DB)
	}
}

func TestOptions_zero_keeps_defaults(t *testing.T) {
	opts, err := options(Config{URL: "redis://localhost:6379"})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.PoolSize != 0 {
		t.Errorf("pool size should be left to go-redis, got %d", opts.PoolSize)
	}
}
