package notify

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// WebsocketHandler upgrades HTTP requests to websocket connections and streams
// change events for a single entity. The {id} route parameter selects the
// entity; each event tag is delivered as one text message.
type WebsocketHandler struct {
	registry   *Registry
	entityType string
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewWebsocketHandler builds a handler streaming events for entityType
// (domain.EntityTopic or domain.EntityApplication).
func NewWebsocketHandler(registry *Registry, entityType string, logger *slog.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		registry:   registry,
		entityType: entityType,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the web UI origin; access control
			// happens at subscription level, the stream carries no data
			// beyond coarse event tags.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an error response.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close() //nolint:errcheck

	sub := h.registry.Register(h.entityType, id)
	defer sub.Cancel()

	// The read pump exists only to detect the peer closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case tag, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tag)); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
