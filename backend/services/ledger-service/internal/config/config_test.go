package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LEDGER_JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.yaml")
	body := []byte("http:\n  port: \"9000\"\nredis:\n  addr: redis:6379\nwebsocket:\n  pingInterval: 5s\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LEDGER_JWT_SECRET", "s3cret")
	t.Setenv("LEDGER_WS_ALLOWED_ORIGINS", "https://ops.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddress() != ":9000" {
		t.Fatalf("expected :9000, got %s", cfg.HTTPAddress())
	}
	if !cfg.StreamEnabled() || cfg.PersistenceEnabled() {
		t.Fatalf("expected stream on and persistence off, got %+v", cfg)
	}
	if cfg.Redis.Stream != "ledger:events" {
		t.Fatalf("expected default stream key, got %s", cfg.Redis.Stream)
	}
	if cfg.WebSocket.PingInterval != 5*time.Second || cfg.WebSocket.WriteTimeout != 10*time.Second {
		t.Fatalf("unexpected websocket config %+v", cfg.WebSocket)
	}
	if len(cfg.WebSocket.AllowedOrigins) != 1 {
		t.Fatalf("unexpected origins %v", cfg.WebSocket.AllowedOrigins)
	}
}

func TestHTTPAddress(t *testing.T) {
	tests := []struct {
		port string
		want string
	}{
		{"", ":8084"},
		{"8080", ":8080"},
		{":9090", ":9090"},
	}
	for _, tt := range tests {
		cfg := Config{HTTP: HTTPConfig{Port: tt.port}}
		if got := cfg.HTTPAddress(); got != tt.want {
			t.Fatalf("HTTPAddress(%q): expected %s, got %s", tt.port, tt.want, got)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.JWT.Secret = "x"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid defaults, got %v", err)
	}
	cfg.Redis.DB = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative redis db to fail")
	}
}
