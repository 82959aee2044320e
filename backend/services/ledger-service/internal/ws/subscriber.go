package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit = 4 * 1024
)

// Subscriber is one websocket client of the event feed. Only writePump writes to the socket.
type Subscriber struct {
	id        uint64
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	cfg       HubConfig
	logger    *zap.Logger
	onClose   func(id uint64)
}

func newSubscriber(id uint64, conn *websocket.Conn, cfg HubConfig, logger *zap.Logger, onClose func(uint64)) *Subscriber {
	return &Subscriber{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, cfg.BufferSize),
		done:    make(chan struct{}),
		cfg:     cfg,
		logger:  logger,
		onClose: onClose,
	}
}

func (s *Subscriber) start() {
	go s.writePump()
	go s.readPump()
}

// enqueue hands msg to the write pump. A full buffer disconnects the subscriber so one slow
// client never holds up the ledger; it returns false once the subscriber is gone.
func (s *Subscriber) enqueue(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		s.logger.Warn("event subscriber too slow, disconnecting", zap.Uint64("subscriber_id", s.id))
		go s.close()
		return false
	}
}

// readPump drains control frames so pongs and close frames are processed.
func (s *Subscriber) readPump() {
	defer s.close()
	pongWait := 2 * s.cfg.PingInterval
	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Subscriber) writePump() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			_ = s.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = s.conn.Close()
			return
		case msg := <-s.send:
			if err := s.write(websocket.TextMessage, msg); err != nil {
				s.close()
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.close()
				_ = s.conn.Close()
				return
			}
		}
	}
}

func (s *Subscriber) write(messageType int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return s.conn.WriteMessage(messageType, data)
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose(s.id)
		}
	})
}
