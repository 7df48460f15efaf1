package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spoq/spoq-tui/internal/engine/model"
)

func TestAppendTextTokenTargetsStreamingMessage(t *testing.T) {
	c, _ := newTestCache(t)
	id := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)

	c.AppendTextToken(id, "hello ")
	c.AppendTextToken(id, "world")

	messages := c.Messages(id)
	last := messages[len(messages)-1]
	require.Equal(t, "hello world", last.PartialContent)
}

func TestAppendTextTokenUnknownThreadIsNoop(t *testing.T) {
	c, _ := newTestCache(t)
	require.NotPanics(t, func() { c.AppendTextToken("missing", "x") })
}

func TestFinalizeMessageAssignsRealID(t *testing.T) {
	c, _ := newTestCache(t)
	id := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)

	c.FinalizeMessage(id, 99)

	messages := c.Messages(id)
	last := messages[len(messages)-1]
	require.False(t, last.IsStreaming)
	require.Equal(t, int64(99), last.ID)
}

func TestToolEventLifecycleWithinSearchWindow(t *testing.T) {
	c, _ := newTestCache(t)
	id := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)

	c.StartToolEvent(id, "call-1", "Bash")
	c.SetToolDisplayName(id, "call-1", "Bash: ls")
	c.AppendToolArgument(id, "call-1", `{"cmd":"ls"}`)
	c.CompleteToolEvent(id, "call-1")
	c.SetToolResult(id, "call-1", "file1\nfile2", false)

	messages := c.Messages(id)
	last := messages[len(messages)-1]
	require.Len(t, last.Segments, 1)
	tool, ok := last.Segments[0].(*model.ToolEvent)
	require.True(t, ok)
	require.Equal(t, "Bash: ls", tool.DisplayName)
	require.Equal(t, `{"cmd":"ls"}`, tool.ArgsJSON)
	require.Equal(t, model.ToolComplete, tool.Status)
	require.Equal(t, "file1\nfile2", tool.ResultPreview)
	require.False(t, tool.ResultIsError)
}

func TestFailToolEventMarksFailedStatus(t *testing.T) {
	c, _ := newTestCache(t)
	id := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)
	c.StartToolEvent(id, "call-1", "Bash")

	c.FailToolEvent(id, "call-1")

	tool, ok := c.Messages(id)[1].Segments[0].(*model.ToolEvent)
	require.True(t, ok)
	require.Equal(t, model.ToolFailed, tool.Status)
	require.NotNil(t, tool.CompletedAt)
}

func TestToolEventFoundAcrossLaterMessageInSearchWindow(t *testing.T) {
	c, _ := newTestCache(t)
	id := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)
	c.StartToolEvent(id, "call-1", "Bash")
	c.FinalizeMessage(id, 2)
	c.AddStreamingMessage(id, "more")

	// The completion event lands after the assistant message finalized and
	// a new streaming message opened; the search window still finds it.
	c.CompleteToolEvent(id, "call-1")

	tool, ok := c.Messages(id)[1].Segments[0].(*model.ToolEvent)
	require.True(t, ok)
	require.Equal(t, model.ToolComplete, tool.Status)
}

func TestSubagentEventLifecycle(t *testing.T) {
	c, _ := newTestCache(t)
	id := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)

	c.StartSubagentEvent(id, "task-1", "researcher", "look into X")
	c.UpdateSubagentProgress(id, "task-1", "halfway done")
	c.CompleteSubagentEvent(id, "task-1", "found it", 3)

	sub, ok := c.Messages(id)[1].Segments[0].(*model.SubagentEvent)
	require.True(t, ok)
	require.Equal(t, "halfway done", sub.ProgressMessage)
	require.Equal(t, model.SubagentComplete, sub.Status)
	require.Equal(t, "found it", sub.Summary)
	require.Equal(t, 3, sub.ToolCallCount)
}

func TestSetMessagesReplacesWhenNoLocalMessageNeedsPreserving(t *testing.T) {
	c, _ := newTestCache(t)
	id := "thread-1"
	c.messages[id] = []*model.Message{
		{ID: 1, Content: "old"},
	}

	incoming := []*model.Message{
		{ID: 1, Content: "synced 1"},
		{ID: 2, Content: "synced 2"},
	}
	c.SetMessages(id, incoming)

	require.Equal(t, incoming, c.Messages(id))
}

func TestSetMessagesPreservesStreamingLocalMessage(t *testing.T) {
	c, _ := newTestCache(t)
	id := "thread-1"
	streaming := &model.Message{ID: 0, IsStreaming: true, PartialContent: "in flight"}
	c.messages[id] = []*model.Message{
		{ID: 1, Content: "old"},
		streaming,
	}

	incoming := []*model.Message{
		{ID: 1, Content: "synced"},
	}
	c.SetMessages(id, incoming)

	merged := c.Messages(id)
	require.Len(t, merged, 2)
	require.Equal(t, "synced", merged[0].Content)
	require.Same(t, streaming, merged[1])
}

func TestSetMessagesPreservesLocalMessageNewerThanIncomingMax(t *testing.T) {
	c, _ := newTestCache(t)
	id := "thread-1"
	newer := &model.Message{ID: 5, Content: "sent after snapshot"}
	c.messages[id] = []*model.Message{
		{ID: 1, Content: "old"},
		newer,
	}

	incoming := []*model.Message{
		{ID: 1, Content: "synced"},
		{ID: 2, Content: "synced 2"},
	}
	c.SetMessages(id, incoming)

	merged := c.Messages(id)
	require.Len(t, merged, 3)
	require.Same(t, newer, merged[2])
}

func TestSetMessagesUpdatesThreadMessageCount(t *testing.T) {
	c, _ := newTestCache(t)
	id := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)
	c.FinalizeMessage(id, 2)

	c.SetMessages(id, []*model.Message{{ID: 1}, {ID: 2}, {ID: 3}})

	thread, _ := c.GetThread(id)
	require.Equal(t, 3, thread.MessageCount)
}
