package dispatch

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spoq/spoq-tui/internal/engine/model"
	"github.com/spoq/spoq-tui/internal/wire"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log)
}

func TestStreamTokenAppendsAndRecordsStats(t *testing.T) {
	d := newTestDispatcher(t)
	id := d.Cache.CreatePendingThread("hi", model.ThreadConversation, "", nil)

	d.apply(AppEvent{Kind: KindStreamStarted, Payload: StreamStarted{ThreadID: id}})
	d.apply(AppEvent{Kind: KindStreamToken, Payload: StreamToken{ThreadID: id, Token: "hello"}})

	messages := d.Cache.Messages(id)
	last := messages[len(messages)-1]
	require.Equal(t, "hello", last.PartialContent)

	stats := d.StatsFor(id)
	require.Equal(t, 2, stats.CumulativeTokens) // ceil(5/4) = 2
}

func TestStreamCompleteFinalizesAndClearsTracker(t *testing.T) {
	d := newTestDispatcher(t)
	id := d.Cache.CreatePendingThread("hi", model.ThreadConversation, "", nil)
	d.apply(AppEvent{Kind: KindToolStarted, Payload: ToolStarted{ThreadID: id, ToolCallID: "c1", FunctionName: "Bash"}})

	d.apply(AppEvent{Kind: KindStreamComplete, Payload: StreamComplete{ThreadID: id, MessageID: 7}})

	messages := d.Cache.Messages(id)
	last := messages[len(messages)-1]
	require.False(t, last.IsStreaming)
	require.Equal(t, int64(7), last.ID)
	require.Empty(t, d.TrackerFor(id).ToolsToRender(0))
}

func TestStreamErrorRecordsBannerAndClearsTracker(t *testing.T) {
	d := newTestDispatcher(t)
	id := d.Cache.CreatePendingThread("hi", model.ThreadConversation, "", nil)
	d.apply(AppEvent{Kind: KindToolStarted, Payload: ToolStarted{ThreadID: id, ToolCallID: "c1", FunctionName: "Bash"}})

	d.apply(AppEvent{Kind: KindStreamError, Payload: StreamError{ThreadID: id, Error: "boom"}})

	require.Equal(t, "boom", d.StreamError)
	require.Len(t, d.Cache.Errors(id), 1)
	require.Empty(t, d.TrackerFor(id).ToolsToRender(0))
}

func TestToolEventsUpdateBothCacheAndTracker(t *testing.T) {
	d := newTestDispatcher(t)
	id := d.Cache.CreatePendingThread("hi", model.ThreadConversation, "", nil)

	d.apply(AppEvent{Kind: KindToolStarted, Payload: ToolStarted{ThreadID: id, ToolCallID: "c1", FunctionName: "Bash"}})
	d.apply(AppEvent{Kind: KindToolExecuting, Payload: ToolExecuting{ThreadID: id, ToolCallID: "c1", DisplayName: "Bash: ls"}})
	d.apply(AppEvent{Kind: KindToolCompleted, Payload: ToolCompleted{ThreadID: id, ToolCallID: "c1", Success: true, Summary: "done", Result: "ok"}})

	rendered := d.TrackerFor(id).ToolsToRender(d.CurrentTick)
	require.Len(t, rendered, 1)
	require.Equal(t, "Bash: ls", rendered[0].DisplayName)

	messages := d.Cache.Messages(id)
	tool, ok := messages[len(messages)-1].Segments[0].(*model.ToolEvent)
	require.True(t, ok)
	require.Equal(t, model.ToolComplete, tool.Status)
}

func TestThreadCreatedReconcilesPendingIDAndActiveThread(t *testing.T) {
	d := newTestDispatcher(t)
	pending := d.Cache.CreatePendingThread("hi", model.ThreadConversation, "", nil)
	d.ActiveThreadID = pending

	d.apply(AppEvent{Kind: KindThreadCreated, Payload: ThreadCreated{PendingID: pending, RealID: "real-1", Title: "Real Title"}})

	require.Equal(t, "real-1", d.ActiveThreadID)
	thread, ok := d.Cache.GetThread("real-1")
	require.True(t, ok)
	require.Equal(t, "Real Title", thread.Title)
}

func TestWsThreadCreatedUpsertsFullThreadRecord(t *testing.T) {
	d := newTestDispatcher(t)

	d.apply(AppEvent{Kind: KindWsThreadCreated, Payload: WsThreadCreated{
		Thread: model.Thread{ID: "t1", Title: "Announced", ThreadType: model.ThreadProgramming},
	}})

	thread, ok := d.Cache.GetThread("t1")
	require.True(t, ok)
	require.Equal(t, "Announced", thread.Title)
	require.Equal(t, model.ThreadProgramming, thread.ThreadType)
}

func TestPermissionRequestedAutoApprovesAllowedTool(t *testing.T) {
	d := newTestDispatcher(t)
	d.Session.Connection = model.ConnectionConnected
	d.Session.AllowTool("Bash")

	request := &model.PermissionRequest{PermissionID: "p1", ToolName: "Bash"}
	d.apply(AppEvent{Kind: KindPermissionRequested, Payload: PermissionRequested{Request: request}})

	require.Nil(t, d.Session.PendingPermission)
	select {
	case out := <-d.Outbound:
		resp, ok := out.Payload.(wire.CommandResponse)
		require.True(t, ok)
		require.True(t, resp.Result.Data.Allowed)
	default:
		t.Fatal("expected an outbound approval")
	}
}

func TestPermissionRequestedUnallowedToolSetsPending(t *testing.T) {
	d := newTestDispatcher(t)
	request := &model.PermissionRequest{PermissionID: "p1", ToolName: "Edit"}

	d.apply(AppEvent{Kind: KindPermissionRequested, Payload: PermissionRequested{Request: request}})

	require.Same(t, request, d.Session.PendingPermission)
	require.Nil(t, d.Session.PendingQuestion)
}

func TestPermissionRequestedAskUserQuestionBuildsQuestionData(t *testing.T) {
	d := newTestDispatcher(t)
	request := &model.PermissionRequest{
		PermissionID: "p1",
		ToolName:     "AskUserQuestion",
		ToolInput: map[string]any{
			"questions": []map[string]any{
				{
					"prompt": "Continue?",
					"options": []map[string]any{
						{"label": "Yes", "description": "Proceed"},
						{"label": "No", "description": "Stop here"},
					},
					"multiSelect": false,
				},
			},
		},
	}

	d.apply(AppEvent{Kind: KindPermissionRequested, Payload: PermissionRequested{Request: request}})

	require.NotNil(t, d.Session.PendingQuestion)
	require.Len(t, d.Session.PendingQuestion.Questions, 1)
	question := d.Session.PendingQuestion.Questions[0]
	require.Equal(t, "Continue?", question.Prompt)
	require.Equal(t, []model.QuestionOption{
		{Label: "Yes", Description: "Proceed"},
		{Label: "No", Description: "Stop here"},
	}, question.Options)
}

func TestWsConnectedFlushesDeferredOutbound(t *testing.T) {
	d := newTestDispatcher(t)
	request := &model.PermissionRequest{PermissionID: "p1", ToolName: "Edit"}
	d.apply(AppEvent{Kind: KindPermissionRequested, Payload: PermissionRequested{Request: request}})
	d.DenyPermission() // queued, since Connection is still disconnected

	select {
	case <-d.Outbound:
		t.Fatal("should not have sent while disconnected")
	default:
	}

	d.apply(AppEvent{Kind: KindWsConnected, Payload: WsConnected{SessionID: "s1"}})

	require.Equal(t, model.ConnectionConnected, d.Session.Connection)
	select {
	case out := <-d.Outbound:
		resp, ok := out.Payload.(wire.CommandResponse)
		require.True(t, ok)
		require.False(t, resp.Result.Data.Allowed)
	default:
		t.Fatal("expected deferred deny to flush on connect")
	}
}

func TestWsDisconnectedAndReconnectingUpdateConnectionStatus(t *testing.T) {
	d := newTestDispatcher(t)
	d.apply(AppEvent{Kind: KindWsReconnecting, Payload: WsReconnecting{Attempt: 1}})
	require.Equal(t, model.ConnectionConnecting, d.Session.Connection)

	d.apply(AppEvent{Kind: KindWsDisconnected, Payload: WsDisconnected{}})
	require.Equal(t, model.ConnectionDisconnected, d.Session.Connection)
}

func TestMessagesLoadedMergesIntoCache(t *testing.T) {
	d := newTestDispatcher(t)
	id := "thread-1"

	d.apply(AppEvent{Kind: KindMessagesLoaded, Payload: MessagesLoaded{
		ThreadID: id,
		Messages: []*model.Message{{ID: 1, Content: "hi"}},
	}})

	require.Len(t, d.Cache.Messages(id), 1)
}

func TestMessagesLoadErrorRecordsBothBannerAndStreamError(t *testing.T) {
	d := newTestDispatcher(t)
	d.apply(AppEvent{Kind: KindMessagesLoadError, Payload: MessagesLoadError{ThreadID: "t1", Error: "load failed"}})

	require.Equal(t, "load failed", d.StreamError)
	require.Len(t, d.Cache.Errors("t1"), 1)
}

func TestTickAdvancesCurrentTick(t *testing.T) {
	d := newTestDispatcher(t)
	d.apply(AppEvent{Kind: KindTick, Payload: Tick{Count: 42}})
	require.Equal(t, int64(42), d.CurrentTick)
}

func TestContextCompactedAndUsageReceivedUpdateSessionTokens(t *testing.T) {
	d := newTestDispatcher(t)
	d.apply(AppEvent{Kind: KindContextCompacted, Payload: ContextCompacted{TokensUsed: 10, TokenLimit: 100}})
	require.Equal(t, 10, d.Session.ContextTokensUsed)

	d.apply(AppEvent{Kind: KindUsageReceived, Payload: UsageReceived{TokensUsed: 20, TokenLimit: 200}})
	require.Equal(t, 20, d.Session.ContextTokensUsed)
	require.Equal(t, 200, d.Session.ContextTokenLimit)
}

func TestRunDrainsEventsUntilContextCanceled(t *testing.T) {
	d := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Events <- AppEvent{Kind: KindTick, Payload: Tick{Count: 1}}
	require.Eventually(t, func() bool { return d.CurrentTick == 1 }, time.Second, time.Millisecond)
	require.True(t, d.Dirty)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after cancel")
	}
}
