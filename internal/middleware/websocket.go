package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"natsdash/internal/models"
	"natsdash/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans broadcast messages out to every connected websocket client.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	log        *utils.Logger
}

func NewHub(log *utils.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		log:        log,
	}
}

// Run processes registration and broadcast events. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					// Removal happens on the next read failure via unregister.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues a message for all clients, dropping it if the hub is
// saturated.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.log.Write("websocket broadcast dropped, hub saturated")
	}
}

// AlertEventCreated pushes an alert transition to connected dashboards.
func (h *Hub) AlertEventCreated(event models.AlertEvent, ruleName, clusterName string) {
	payload, err := json.Marshal(gin.H{
		"type":         "alert_event",
		"event_id":     event.ID,
		"alert_id":     event.AlertID,
		"rule_name":    ruleName,
		"cluster_name": clusterName,
		"status":       event.Status,
		"value":        event.Value,
		"created_at":   event.CreatedAt,
	})
	if err != nil {
		h.log.Writef("websocket: marshal alert event: %v", err)
		return
	}
	h.Broadcast(payload)
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// client disconnects.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Writef("websocket: upgrade: %v", err)
		return
	}

	h.register <- conn

	defer func() {
		h.unregister <- conn
	}()

	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
