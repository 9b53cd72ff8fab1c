package delivery

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/util"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebsocketHub keeps one connection set per user and routes every object to
// the connections of its addressed user.
type WebsocketHub struct {
	mu          sync.RWMutex
	connections map[string]map[*websocket.Conn]bool
	encDec      util.EncoderDecoder[model.AssistanceObject]
}

func NewWebsocketHub() *WebsocketHub {
	return &WebsocketHub{
		connections: make(map[string]map[*websocket.Conn]bool),
		encDec:      util.NewJsonEncoderDecoder[model.AssistanceObject](),
	}
}

var _ Sink = new(WebsocketHub)

// ServeHTTP upgrades the request and registers the connection for the user
// given in the user_id query parameter.
func (h *WebsocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id query parameter required", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	h.register(userID, conn)
	logger.Info("websocket subscriber connected", zap.String("userId", userID))

	go func() {
		defer func() {
			h.unregister(userID, conn)
			conn.Close()
			logger.Info("websocket subscriber disconnected", zap.String("userId", userID))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebsocketHub) Deliver(ctx context.Context, objects []model.AssistanceObject) error {
	for _, object := range objects {
		data, err := h.encDec.Encode(object)
		if err != nil {
			return err
		}
		h.mu.RLock()
		conns := make([]*websocket.Conn, 0, len(h.connections[object.UserID]))
		for conn := range h.connections[object.UserID] {
			conns = append(conns, conn)
		}
		h.mu.RUnlock()
		for _, conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Warn("websocket write failed, dropping connection",
					zap.String("userId", object.UserID), zap.Error(err))
				h.unregister(object.UserID, conn)
				conn.Close()
			}
		}
	}
	return nil
}

// SubscriberCount reports the number of open connections for a user.
func (h *WebsocketHub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

func (h *WebsocketHub) register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connections[userID] == nil {
		h.connections[userID] = make(map[*websocket.Conn]bool)
	}
	h.connections[userID][conn] = true
}

func (h *WebsocketHub) unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections[userID], conn)
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
	}
}
