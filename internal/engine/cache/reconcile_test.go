package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spoq/spoq-tui/internal/engine/model"
)

func TestReconcileThreadIDRewritesAllTables(t *testing.T) {
	c, _ := newTestCache(t)
	pending := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)
	c.AddErrorSimple(pending, "boom")

	c.ReconcileThreadID(pending, "real-id", "")

	_, ok := c.GetThread(pending)
	require.True(t, ok, "pending id should still resolve via alias")
	thread, ok := c.GetThread("real-id")
	require.True(t, ok)
	require.Equal(t, "real-id", thread.ID)

	messages := c.Messages(pending)
	require.Len(t, messages, 2)
	for _, m := range messages {
		require.Equal(t, "real-id", m.ThreadID)
	}
	require.Len(t, c.Errors("real-id"), 1)
	require.Contains(t, c.Threads(), "real-id")
	require.NotContains(t, c.Threads(), pending)
}

func TestReconcileThreadIDAppliesTitleOverride(t *testing.T) {
	c, _ := newTestCache(t)
	pending := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)

	c.ReconcileThreadID(pending, "real-id", "Server-assigned title")

	thread, _ := c.GetThread("real-id")
	require.Equal(t, "Server-assigned title", thread.Title)
}

func TestReconcileThreadIDSameIDOnlyUpdatesMetadata(t *testing.T) {
	c, _ := newTestCache(t)
	id := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)

	c.ReconcileThreadID(id, id, "New Title")

	thread, _ := c.GetThread(id)
	require.Equal(t, "New Title", thread.Title)
}

func TestReconcileThreadIDUnknownPendingIsNoop(t *testing.T) {
	c, _ := newTestCache(t)
	require.NotPanics(t, func() { c.ReconcileThreadID("missing", "real", "") })
	_, ok := c.GetThread("real")
	require.False(t, ok)
}

func TestReconcileThreadIDAlwaysFlushesQueuedTitleUpdate(t *testing.T) {
	c, _ := newTestCache(t)
	pending := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)

	// A title update arrives for the real id before reconciliation happens,
	// so it is queued.
	c.UpdateThreadMetadata("real-id", "queued title", "queued desc", true)

	c.ReconcileThreadID(pending, "real-id", "direct title")

	thread, _ := c.GetThread("real-id")
	require.Equal(t, "queued title", thread.Title)
	require.Equal(t, "queued desc", thread.Description)
}

func TestUpdateThreadMetadataQueuesWhenThreadUnknown(t *testing.T) {
	c, _ := newTestCache(t)
	c.UpdateThreadMetadata("not-yet-known", "title", "", false)

	id := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)
	c.ReconcileThreadID(id, "not-yet-known", "")

	thread, _ := c.GetThread("not-yet-known")
	require.Equal(t, "title", thread.Title)
}

func TestUpdateThreadMetadataWithoutTitleIsNotQueued(t *testing.T) {
	c, _ := newTestCache(t)
	c.UpdateThreadMetadata("not-yet-known", "", "orphan description", true)

	id := c.CreatePendingThread("hi", model.ThreadConversation, "", nil)
	c.ReconcileThreadID(id, "not-yet-known", "")

	thread, _ := c.GetThread("not-yet-known")
	require.Empty(t, thread.Description)
}
