package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/studgig-backend/internal/goroutine"
	"github.com/ignatzorin/studgig-backend/internal/logger"
)

// Hub управляет всеми WebSocket клиентами и рассылает им события по userID.
// Уведомления сохраняет диспетчер до вызова BroadcastToUser, хаб только доставляет.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	ctx        context.Context
	recovery   *goroutine.RecoveryHandler
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

// NewHub создаёт новый хаб. Хаб работает, пока не отменён ctx.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		ctx:        ctx,
		recovery:   goroutine.NewRecoveryHandler(logger.Log, "ws_hub"),
	}
}

// Run запускает главный цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.userID, msg.payload)
		case <-h.ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Connected возвращает число открытых соединений пользователя.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// BroadcastToUser отправляет событие всем соединениям пользователя.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	// Поле "type" содержит имя события, "data" полезную нагрузку.
	raw, err := json.Marshal(map[string]any{
		"type": event,
		"data": data,
	})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case h.broadcast <- message{userID: userID, payload: raw}:
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			// Медленный клиент: закрываем вне цикла хаба.
			c := client
			h.recovery.SafeGo(c.Close)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, clients := range h.clients {
		for client := range clients {
			_ = client.conn.Close()
		}
		delete(h.clients, userID)
	}
}
