package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"spacebooking/internal/pkg/jwt"
	"spacebooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type clientMessage struct {
	Type string `json:"type"`
}

type WSHandler struct {
	hub        *Hub
	jwtService *jwt.Service
}

func NewWSHandler(hub *Hub, jwtService *jwt.Service) *WSHandler {
	return &WSHandler{hub: hub, jwtService: jwtService}
}

func (h *WSHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/ws/schedules", h.HandleWebSocket)
}

// HandleWebSocket upgrades GET /ws/schedules?token=JWT. Browsers cannot set
// headers on websocket requests, so the token travels in the query string.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "TOKEN_REQUIRED", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws_upgrade_failed user_id=%d error=%q", userID, err.Error())
		return
	}

	cl := h.hub.register(userID, conn)
	log.Printf("ws_connected user_id=%d tenant_id=%d", userID, claims.TenantID)

	defer func() {
		h.hub.unregister(userID, cl)
		log.Printf("ws_disconnected user_id=%d", userID)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go pingLoop(cl, done)

	readLoop(cl, userID)
}

func pingLoop(cl *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := cl.writePing(); err != nil {
				return
			}
		}
	}
}

// readLoop only answers client pings; schedule events flow server to client.
func readLoop(cl *client, userID int64) {
	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws_read_error user_id=%d error=%q", userID, err.Error())
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = cl.writeJSON(NewEvent("error", gin.H{"code": "INVALID_JSON", "message": "Failed to parse message"}))
			continue
		}

		switch msg.Type {
		case "ping":
			_ = cl.writeJSON(NewEvent("pong", nil))
		default:
			_ = cl.writeJSON(NewEvent("error", gin.H{"code": "UNKNOWN_TYPE", "message": "Unknown message type: " + msg.Type}))
		}
	}
}
