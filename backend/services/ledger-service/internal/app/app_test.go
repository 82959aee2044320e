package app

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"evledger/backend/services/ledger-service/internal/config"
)

func TestNewInMemory(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Secret = "secret"
	cfg.HTTP.Port = "0"

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("run with cancelled context: %v", err)
	}
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Secret = "secret"
	cfg.Redis.Addr = "127.0.0.1:1"

	if _, err := New(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected redis connection error")
	}
}
