package db

import (
	"context"
	"testing"
	"time"
)

func TestNewPostgresDBRejectsEmptyDSN(t *testing.T) {
	if _, err := NewPostgresDB(context.Background(), "  ", Options{}); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{MaxOpenConns: 3}.withDefaults()
	if opts.MaxOpenConns != 3 {
		t.Fatalf("expected explicit max open conns to survive, got %d", opts.MaxOpenConns)
	}
	if opts.MaxIdleConns != defaultMaxIdleConns {
		t.Fatalf("expected default idle conns, got %d", opts.MaxIdleConns)
	}
	if opts.PingTimeout != 5*time.Second {
		t.Fatalf("expected default ping timeout, got %s", opts.PingTimeout)
	}
}
