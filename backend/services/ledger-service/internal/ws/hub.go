package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"evledger/backend/services/ledger-service/internal/ledger"
)

// HubConfig tunes the live event feed.
type HubConfig struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	BufferSize     int
	AllowedOrigins []string
}

// Hub fans committed ledger events out to websocket subscribers. Every subscriber receives
// events in commit order; a subscriber that cannot keep up is disconnected.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]*Subscriber
	nextID      uint64
	cfg         HubConfig
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewHub builds hub.
func NewHub(cfg HubConfig, logger *zap.Logger) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	h := &Hub{
		subscribers: make(map[uint64]*Subscriber),
		cfg:         cfg,
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// HandleWS is HTTP handler for /ledger/events/ws endpoint.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.nextID++
	sub := newSubscriber(h.nextID, conn, h.cfg, h.logger, h.remove)
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	h.logger.Info("event subscriber connected", zap.Uint64("subscriber_id", sub.id), zap.String("remote", r.RemoteAddr))
	sub.start()
}

// Broadcast sends events to every subscriber.
func (h *Hub) Broadcast(events []ledger.Event) {
	if len(events) == 0 {
		return
	}
	messages := make([][]byte, 0, len(events))
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("encode ledger event failed", zap.String("type", string(event.Type)), zap.Error(err))
			return
		}
		messages = append(messages, data)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		for _, msg := range messages {
			if !sub.enqueue(msg) {
				break
			}
		}
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.close()
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.subscribers, id)
	h.mu.Unlock()
	h.logger.Info("event subscriber disconnected", zap.Uint64("subscriber_id", id))
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}
