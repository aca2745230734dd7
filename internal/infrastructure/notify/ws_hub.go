package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait     = 5 * time.Second
	clientBacklog = 32
)

// ErrNoClients means a broadcast reached nobody.
var ErrNoClients = errors.New("no websocket clients connected")

type wsMessage struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Hub pushes every notification to all connected websocket clients. Slow
// clients are dropped instead of blocking Send.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan wsMessage
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
		clients:  make(map[*websocket.Conn]chan wsMessage),
	}
}

func (h *Hub) Send(_ context.Context, text string) error {
	msg := wsMessage{Text: text, At: time.Now().UTC()}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return ErrNoClients
	}
	for conn, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.logger.Warn("Dropping slow websocket client", zap.String("remote", conn.RemoteAddr().String()))
			h.removeLocked(conn)
		}
	}
	return nil
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams messages until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}
	ch := make(chan wsMessage, clientBacklog)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	// Reader detects close frames.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.mu.Lock()
				h.removeLocked(conn)
				h.mu.Unlock()
				return
			}
		}
	}()

	for msg := range ch {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("Websocket write failed", zap.Error(err))
			h.mu.Lock()
			h.removeLocked(conn)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) removeLocked(conn *websocket.Conn) {
	ch, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(ch)
	_ = conn.Close()
}
