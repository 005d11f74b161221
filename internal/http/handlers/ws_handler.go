package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/studgig-backend/internal/http/middleware"
	"github.com/ignatzorin/studgig-backend/internal/http/response"
	"github.com/ignatzorin/studgig-backend/internal/logger"
	"github.com/ignatzorin/studgig-backend/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений.
type WSHandler struct {
	hub      *ws.Hub
	tokens   middleware.TokenParser
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. Пустой список origins разрешает любой источник.
func NewWSHandler(hub *ws.Hub, tokens middleware.TokenParser, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		response.Unauthorized(c, "access токен обязателен")
		return
	}

	userID, _, err := h.tokens.ParseAccess(rawToken)
	if err != nil || userID == uuid.Nil {
		response.Unauthorized(c, "невалидный access токен")
		return
	}

	// Upgrade сам пишет ответ при ошибке.
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("ws: upgrade не удался")
		return
	}

	client := ws.NewClient(conn, h.hub, userID)
	h.hub.Register(client)

	client.Run(c.Request.Context())
}
