package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/spoq/spoq-tui/internal/engine/dispatch"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestSessionChannelEmitsConnectedThenForwardsInboundMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		err = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"thread_status_update","thread_id":"t1","status":"running","timestamp":1}`))
		require.NoError(t, err)

		// Keep the connection open briefly so the client finishes reading.
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := make(chan dispatch.AppEvent, 16)
	out := make(chan dispatch.Outbound, 1)

	channel := NewSessionChannel(url, events, out, log)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go channel.Run(ctx)

	var kinds []dispatch.Kind
	deadline := time.After(time.Second)
loop:
	for {
		select {
		case event := <-events:
			kinds = append(kinds, event.Kind)
			if event.Kind == dispatch.KindThreadStatusUpdate {
				break loop
			}
		case <-deadline:
			t.Fatal("timed out waiting for events")
		}
	}

	require.Contains(t, kinds, dispatch.KindWsConnected)
	require.Contains(t, kinds, dispatch.KindThreadStatusUpdate)
}

func TestSessionChannelForwardsOutboundToServer(t *testing.T) {
	received := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err == nil {
			received <- msg
		}
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := make(chan dispatch.AppEvent, 16)
	out := make(chan dispatch.Outbound, 1)

	channel := NewSessionChannel(url, events, out, log)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go channel.Run(ctx)

	// Wait until connected before writing, else the dial may not have
	// completed yet.
	for {
		event := <-events
		if event.Kind == dispatch.KindWsConnected {
			break
		}
	}

	out <- dispatch.Outbound{Payload: map[string]string{"type": "ping"}}

	select {
	case msg := <-received:
		require.Contains(t, string(msg), "ping")
	case <-time.After(time.Second):
		t.Fatal("server did not receive outbound message")
	}
}
