package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, sessionID string, buffer int) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, buffer),
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	require.NotNil(t, hub)
	assert.NotNil(t, hub.sessions)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub, "ab12", 4)
	b := newTestClient(hub, "ab12", 4)

	hub.registerClient(a)
	hub.registerClient(b)
	assert.Len(t, hub.sessions["ab12"], 2)

	hub.unregisterClient(a)
	assert.Len(t, hub.sessions["ab12"], 1)
	_, open := <-a.send
	assert.False(t, open, "send channel should be closed")

	hub.unregisterClient(b)
	_, exists := hub.sessions["ab12"]
	assert.False(t, exists, "empty session should be removed")

	// Unregistering twice is a no-op
	hub.unregisterClient(b)
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub()
	target := newTestClient(hub, "ab12", 4)
	other := newTestClient(hub, "cd34", 4)
	hub.registerClient(target)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{SessionID: "ab12", Event: EventSolveComplete, Data: map[string]int{"cost": 102}})

	select {
	case data := <-target.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "ab12", msg.SessionID)
		assert.Equal(t, EventSolveComplete, msg.Event)
	default:
		t.Fatal("target client received nothing")
	}

	assert.Len(t, other.send, 0)
}

func TestHubBroadcast_DropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := newTestClient(hub, "ab12", 1)
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "ab12", Event: "one"})
	hub.broadcastMessage(&Message{SessionID: "ab12", Event: "two"})

	_, exists := hub.sessions["ab12"]
	assert.False(t, exists)
}

func TestBroadcastToSession_NeverBlocks(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.BroadcastToSession("ab12", EventSolveComplete, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BroadcastToSession blocked without a running hub")
	}
	assert.Len(t, hub.broadcast, broadcastBuffer)
}

func TestServeWS_EndToEnd(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=ab12"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration is asynchronous; keep broadcasting until one arrives
	received := make(chan Message, 1)
	go func() {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if json.Unmarshal(data, &msg) == nil {
			received <- msg
		}
	}()

	deadline := time.After(3 * time.Second)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case msg := <-received:
			assert.Equal(t, "ab12", msg.SessionID)
			assert.Equal(t, EventSolveComplete, msg.Event)
			return
		case <-ticker.C:
			hub.BroadcastToSession("ab12", EventSolveComplete, map[string]int{"cost": 102})
		case <-deadline:
			t.Fatal("no message received")
		}
	}
}
