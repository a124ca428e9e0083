package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"strategy-lab/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// holdOpen reads until the peer goes away.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		holdOpen(conn)
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), wsURL(server), []string{"AAPL"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestClient_SubscribeAndTicks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req subscribeRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal subscribe: %v", err)
			return
		}
		if req.Op != "subscribe" {
			t.Errorf("expected op subscribe, got %s", req.Op)
		}
		if len(req.Symbols) != 2 || req.Symbols[0] != "AAPL" || req.Symbols[1] != "MSFT" {
			t.Errorf("unexpected symbols: %v", req.Symbols)
		}

		// Malformed frame, then an empty-symbol tick, then a real tick:
		// only the last one should be delivered.
		if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
			return
		}
		if err := conn.WriteJSON(domain.Tick{Price: 10, TimestampMs: 1}); err != nil {
			return
		}
		if err := conn.WriteJSON(domain.Tick{Symbol: "AAPL", Price: 187.5, TimestampMs: 1700000000000}); err != nil {
			return
		}

		holdOpen(conn)
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), wsURL(server), []string{"AAPL", "MSFT"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	select {
	case tick := <-client.Ticks():
		if tick.Symbol != "AAPL" {
			t.Errorf("expected AAPL, got %s", tick.Symbol)
		}
		if tick.Price != 187.5 {
			t.Errorf("expected price 187.5, got %v", tick.Price)
		}
		if tick.TimestampMs != 1700000000000 {
			t.Errorf("expected timestamp 1700000000000, got %d", tick.TimestampMs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for tick")
	}
}

func TestClient_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		holdOpen(conn)
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), wsURL(server), []string{"AAPL"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}

	select {
	case _, ok := <-client.Ticks():
		if ok {
			t.Error("expected tick channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for tick channel close")
	}
}

func TestClient_CustomConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		holdOpen(conn)
	}))
	defer server.Close()

	config := &ClientConfig{
		ReconnectDelay:    100 * time.Millisecond,
		MaxReconnectDelay: 1 * time.Second,
		PingInterval:      5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Second,
		Buffer:            8,
	}

	client, err := NewClient(context.Background(), wsURL(server), []string{"AAPL"}, config)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if client.config.PingInterval != 5*time.Second {
		t.Errorf("expected PingInterval 5s, got %v", client.config.PingInterval)
	}
	if cap(client.ticks) != 8 {
		t.Errorf("expected tick buffer 8, got %d", cap(client.ticks))
	}
}

func TestClient_DialError(t *testing.T) {
	_, err := NewClient(context.Background(), "ws://127.0.0.1:1/ws", []string{"AAPL"}, nil)
	if err == nil {
		t.Fatal("expected dial error")
	}
}
