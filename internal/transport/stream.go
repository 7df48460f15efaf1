package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spoq/spoq-tui/internal/engine/dispatch"
	"github.com/spoq/spoq-tui/internal/wire"
)

// TokenStream opens the per-request unidirectional stream for a single
// submission and translates its newline-delimited JSON events into
// dispatch.AppEvent, terminating on StreamComplete or StreamError.
type TokenStream struct {
	client *http.Client
	log    *slog.Logger
}

// NewTokenStream constructs a TokenStream using client, or http.DefaultClient
// if nil.
func NewTokenStream(client *http.Client, log *slog.Logger) *TokenStream {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenStream{client: client, log: log}
}

// streamEvent mirrors the teacher's stream-json line shape: a "type" tag
// plus whatever fields that type needs, one JSON object per line.
type streamEvent struct {
	Type       string `json:"type"`
	ThreadID   string `json:"thread_id"`
	SessionID  string `json:"session_id"`
	Token      string `json:"token"`
	MessageID  int64  `json:"message_id"`
	Error      string `json:"error"`
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Display    string `json:"display_name"`
	Chunk      string `json:"chunk"`
	Success    bool   `json:"success"`
	Summary    string `json:"summary"`
	Result     string `json:"result"`
	TaskID     string `json:"task_id"`
	SubType    string `json:"subagent_type"`
	Desc       string `json:"description"`
	Message    string `json:"message"`
	ToolCount  int    `json:"tool_call_count"`
}

// Open issues the per-stream request and pumps decoded events into events
// until the body is exhausted, a terminal event arrives, or ctx is
// canceled.
func (ts *TokenStream) Open(ctx context.Context, endpoint string, request wire.StreamRequest, events chan<- dispatch.AppEvent) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("encode stream request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	response, err := ts.client.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("open token stream: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("token stream returned status %d", response.StatusCode)
	}

	scanner := bufio.NewScanner(response.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var event streamEvent
		if err := json.Unmarshal(line, &event); err != nil {
			ts.log.Warn("failed to parse token stream line", "error", err)
			continue
		}
		if event.Type == "stream_started" && request.ThreadID != "" && event.ThreadID != "" && event.ThreadID != request.ThreadID {
			reconciled := dispatch.AppEvent{Kind: dispatch.KindThreadCreated, Payload: dispatch.ThreadCreated{
				PendingID: request.ThreadID,
				RealID:    event.ThreadID,
			}}
			select {
			case events <- reconciled:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		kind, payload, done := translateStreamEvent(event)
		if payload != nil {
			select {
			case events <- dispatch.AppEvent{Kind: kind, Payload: payload}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("read token stream: %w", err)
	}
	return nil
}

// translateStreamEvent maps one decoded line to a dispatch event. done is
// true for the stream's terminal events.
func translateStreamEvent(e streamEvent) (dispatch.Kind, any, bool) {
	switch e.Type {
	case "stream_started":
		return dispatch.KindStreamStarted, dispatch.StreamStarted{ThreadID: e.ThreadID, SessionID: e.SessionID}, false
	case "token":
		return dispatch.KindStreamToken, dispatch.StreamToken{ThreadID: e.ThreadID, Token: e.Token}, false
	case "reasoning_token":
		return dispatch.KindReasoningToken, dispatch.ReasoningToken{ThreadID: e.ThreadID, Token: e.Token}, false
	case "tool_started":
		return dispatch.KindToolStarted, dispatch.ToolStarted{ThreadID: e.ThreadID, ToolCallID: e.ToolCallID, FunctionName: e.Name}, false
	case "tool_executing":
		return dispatch.KindToolExecuting, dispatch.ToolExecuting{ThreadID: e.ThreadID, ToolCallID: e.ToolCallID, DisplayName: e.Display}, false
	case "tool_argument_chunk":
		return dispatch.KindToolArgumentChunk, dispatch.ToolArgumentChunk{ThreadID: e.ThreadID, ToolCallID: e.ToolCallID, Chunk: e.Chunk}, false
	case "tool_completed":
		return dispatch.KindToolCompleted, dispatch.ToolCompleted{ThreadID: e.ThreadID, ToolCallID: e.ToolCallID, Success: e.Success, Summary: e.Summary, Result: e.Result}, false
	case "subagent_started":
		return dispatch.KindSubagentStarted, dispatch.SubagentStarted{ThreadID: e.ThreadID, TaskID: e.TaskID, SubagentType: e.SubType, Description: e.Desc}, false
	case "subagent_progress":
		return dispatch.KindSubagentProgress, dispatch.SubagentProgress{ThreadID: e.ThreadID, TaskID: e.TaskID, Message: e.Message}, false
	case "subagent_completed":
		return dispatch.KindSubagentCompleted, dispatch.SubagentCompleted{ThreadID: e.ThreadID, TaskID: e.TaskID, Summary: e.Summary, ToolCallCount: e.ToolCount}, false
	case "stream_complete":
		return dispatch.KindStreamComplete, dispatch.StreamComplete{ThreadID: e.ThreadID, MessageID: e.MessageID}, true
	case "stream_error":
		return dispatch.KindStreamError, dispatch.StreamError{ThreadID: e.ThreadID, Error: e.Error}, true
	default:
		return 0, nil, false
	}
}
