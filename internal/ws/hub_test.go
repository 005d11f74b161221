package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(ctx)
	go hub.Run()
	t.Cleanup(cancel)
	return hub, cancel
}

func dial(t *testing.T, hub *Hub, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conn, hub, userID)
		hub.Register(client)
		client.Run(r.Context())
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Connected(userID) > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHub_BroadcastToUser(t *testing.T) {
	hub, _ := startHub(t)
	userID := uuid.New()
	conn := dial(t, hub, userID)

	require.NoError(t, hub.BroadcastToUser(userID, "notification", map[string]string{"title": "Оплата получена"}))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, "Оплата получена", msg.Data["title"])
}

func TestHub_OtherUsersDoNotReceive(t *testing.T) {
	hub, _ := startHub(t)
	receiver := uuid.New()
	bystander := uuid.New()
	conn := dial(t, hub, bystander)
	_ = dial(t, hub, receiver)

	require.NoError(t, hub.BroadcastToUser(receiver, "notification", "hi"))

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub, _ := startHub(t)
	userID := uuid.New()
	conn := dial(t, hub, userID)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connected(userID) == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastAfterStop(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()

	// Буфер может принять несколько сообщений, затем вызов возвращает ошибку контекста.
	var err error
	for i := 0; i < 1000 && err == nil; i++ {
		err = hub.BroadcastToUser(uuid.New(), "notification", i)
	}
	assert.ErrorIs(t, err, context.Canceled)
}
