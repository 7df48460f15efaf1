// Package transport implements the two collaborators spec.md's streaming
// client contract describes: a persistent bidirectional session channel
// (SessionChannel) and a per-request token stream (TokenStream). Both
// translate wire payloads into dispatch.AppEvent and feed the same queue;
// neither mutates engine state directly.
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spoq/spoq-tui/internal/engine/dispatch"
)

// SessionChannel wraps a client websocket connection to the backend's
// control/permission channel. It reconnects with exponential backoff and
// emits WsConnected/WsDisconnected/WsReconnecting into the dispatcher's
// event queue.
type SessionChannel struct {
	url    string
	events chan<- dispatch.AppEvent
	out    <-chan dispatch.Outbound
	log    *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewSessionChannel constructs a SessionChannel that reads/writes through
// events and out, neither of which it owns.
func NewSessionChannel(url string, events chan<- dispatch.AppEvent, out <-chan dispatch.Outbound, log *slog.Logger) *SessionChannel {
	return &SessionChannel{url: url, events: events, out: out, log: log}
}

// Run dials, reconnecting with exponential backoff until ctx is canceled.
func (s *SessionChannel) Run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second
	attempt := 0

	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			attempt++
			s.emit(dispatch.KindWsReconnecting, dispatch.WsReconnecting{Attempt: attempt})
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		attempt = 0
		backoff = time.Second
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.emit(dispatch.KindWsConnected, dispatch.WsConnected{})

		s.runConnection(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		s.emit(dispatch.KindWsDisconnected, dispatch.WsDisconnected{})

		if ctx.Err() != nil {
			return
		}
	}
}

// runConnection pumps reads and writes until the connection drops or ctx is
// canceled.
func (s *SessionChannel) runConnection(ctx context.Context, conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writePump(connCtx, conn)
	s.readPump(connCtx, conn)
}

func (s *SessionChannel) readPump(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		event, payload, ok := DecodeInbound(raw)
		if !ok {
			s.emit(dispatch.KindWsParseError, dispatch.WsParseError{Error: "unrecognized message type"})
			continue
		}
		if payload == nil {
			// Recognized but not folded into dispatch state (see
			// DecodeInbound); nothing to enqueue.
			continue
		}
		select {
		case s.events <- dispatch.AppEvent{Kind: event, Payload: payload}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *SessionChannel) writePump(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-s.out:
			encoded, err := json.Marshal(out.Payload)
			if err != nil {
				s.log.Warn("failed to encode outbound message", "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
				return
			}
		}
	}
}

func (s *SessionChannel) emit(kind dispatch.Kind, payload any) {
	select {
	case s.events <- dispatch.AppEvent{Kind: kind, Payload: payload}:
	default:
		s.log.Warn("event queue full, dropping connection-state event")
	}
}
