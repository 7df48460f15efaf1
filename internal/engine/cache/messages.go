package cache

import (
	"github.com/spoq/spoq-tui/internal/engine/model"
)

// lastStreaming returns the last message in the thread if it is still
// streaming, else nil. Token appends only ever target this message.
func (c *Cache) lastStreaming(threadID string) *model.Message {
	messages := c.messages[threadID]
	if len(messages) == 0 {
		return nil
	}
	last := messages[len(messages)-1]
	if !last.IsStreaming {
		return nil
	}
	return last
}

// AppendTextToken appends token to the last streaming message's partial
// content. Unknown threads are a silent no-op.
func (c *Cache) AppendTextToken(threadID string, token string) {
	threadID = c.Resolve(threadID)
	if m := c.lastStreaming(threadID); m != nil {
		m.AppendTextToken(token)
		c.touch(threadID)
	}
}

// AppendReasoningToken appends token to the last streaming message's
// reasoning content. Unknown threads are a silent no-op.
func (c *Cache) AppendReasoningToken(threadID string, token string) {
	threadID = c.Resolve(threadID)
	if m := c.lastStreaming(threadID); m != nil {
		m.AppendReasoningToken(token)
		c.touch(threadID)
	}
}

// FinalizeMessage locates the streaming message in the thread and finalizes
// it under realMessageID. Unknown threads are a silent no-op.
func (c *Cache) FinalizeMessage(threadID string, realMessageID int64) {
	threadID = c.Resolve(threadID)
	if m := c.lastStreaming(threadID); m != nil {
		m.Finalize(realMessageID)
		c.touch(threadID)
	}
}

// searchWindow returns the last messageSearchWindow messages of a thread,
// most-recent last, the window tool/sub-agent finalization events search
// because their completion can arrive after the assistant message that
// started them has already finalized.
func (c *Cache) searchWindow(threadID string) []*model.Message {
	messages := c.messages[threadID]
	if len(messages) <= messageSearchWindow {
		return messages
	}
	return messages[len(messages)-messageSearchWindow:]
}

// findToolSegment searches the last-5-messages window for a ToolEvent
// segment with the given call id, most recent message first.
func (c *Cache) findToolSegment(threadID, toolCallID string) *model.ToolEvent {
	window := c.searchWindow(threadID)
	for i := len(window) - 1; i >= 0; i-- {
		for j := len(window[i].Segments) - 1; j >= 0; j-- {
			if tool, ok := window[i].Segments[j].(*model.ToolEvent); ok && tool.ToolCallID == toolCallID {
				return tool
			}
		}
	}
	return nil
}

// findSubagentSegment searches the last-5-messages window for a
// SubagentEvent segment with the given task id, most recent message first.
func (c *Cache) findSubagentSegment(threadID, taskID string) *model.SubagentEvent {
	window := c.searchWindow(threadID)
	for i := len(window) - 1; i >= 0; i-- {
		for j := len(window[i].Segments) - 1; j >= 0; j-- {
			if sub, ok := window[i].Segments[j].(*model.SubagentEvent); ok && sub.TaskID == taskID {
				return sub
			}
		}
	}
	return nil
}

// StartToolEvent opens a new ToolEvent segment on the last streaming
// message. Unknown threads or threads with no streaming message are a
// silent no-op.
func (c *Cache) StartToolEvent(threadID, toolCallID, functionName string) {
	threadID = c.Resolve(threadID)
	m := c.lastStreaming(threadID)
	if m == nil {
		return
	}
	m.Segments = append(m.Segments, &model.ToolEvent{
		ToolCallID:   toolCallID,
		FunctionName: functionName,
		Status:       model.ToolRunning,
		StartedAt:    c.Now(),
	})
	m.BumpRenderVersion()
	c.touch(threadID)
}

// SetToolDisplayName sets the human-facing display name on a tool segment
// located within the last-5-message search window.
func (c *Cache) SetToolDisplayName(threadID, toolCallID, displayName string) {
	threadID = c.Resolve(threadID)
	if tool := c.findToolSegment(threadID, toolCallID); tool != nil {
		tool.DisplayName = displayName
		c.touch(threadID)
	}
}

// AppendToolArgument appends a chunk of incrementally streamed JSON
// arguments to a tool segment located within the search window.
func (c *Cache) AppendToolArgument(threadID, toolCallID, chunk string) {
	threadID = c.Resolve(threadID)
	if tool := c.findToolSegment(threadID, toolCallID); tool != nil {
		tool.ArgsJSON += chunk
		c.touch(threadID)
	}
}

// CompleteToolEvent marks a tool segment complete (success) within the
// search window.
func (c *Cache) CompleteToolEvent(threadID, toolCallID string) {
	threadID = c.Resolve(threadID)
	if tool := c.findToolSegment(threadID, toolCallID); tool != nil {
		now := c.Now()
		tool.Status = model.ToolComplete
		tool.CompletedAt = &now
		tool.DurationSecs = now.Sub(tool.StartedAt).Seconds()
		c.touch(threadID)
	}
}

// FailToolEvent marks a tool segment failed within the search window.
func (c *Cache) FailToolEvent(threadID, toolCallID string) {
	threadID = c.Resolve(threadID)
	if tool := c.findToolSegment(threadID, toolCallID); tool != nil {
		now := c.Now()
		tool.Status = model.ToolFailed
		tool.CompletedAt = &now
		tool.DurationSecs = now.Sub(tool.StartedAt).Seconds()
		c.touch(threadID)
	}
}

// SetToolResult stores the (possibly truncated) result preview on a tool
// segment within the search window.
func (c *Cache) SetToolResult(threadID, toolCallID, content string, isError bool) {
	threadID = c.Resolve(threadID)
	if tool := c.findToolSegment(threadID, toolCallID); tool != nil {
		tool.ResultPreview = model.TruncateResult(content)
		tool.ResultIsError = isError
		c.touch(threadID)
	}
}

// StartSubagentEvent opens a new SubagentEvent segment on the last
// streaming message.
func (c *Cache) StartSubagentEvent(threadID, taskID, subagentType, description string) {
	threadID = c.Resolve(threadID)
	m := c.lastStreaming(threadID)
	if m == nil {
		return
	}
	m.Segments = append(m.Segments, &model.SubagentEvent{
		TaskID:       taskID,
		SubagentType: subagentType,
		Description:  description,
		Status:       model.SubagentRunning,
		StartedAt:    c.Now(),
	})
	m.BumpRenderVersion()
	c.touch(threadID)
}

// UpdateSubagentProgress updates the progress message on a sub-agent
// segment within the search window.
func (c *Cache) UpdateSubagentProgress(threadID, taskID, progressMessage string) {
	threadID = c.Resolve(threadID)
	if sub := c.findSubagentSegment(threadID, taskID); sub != nil {
		sub.ProgressMessage = progressMessage
		c.touch(threadID)
	}
}

// CompleteSubagentEvent marks a sub-agent segment complete within the
// search window.
func (c *Cache) CompleteSubagentEvent(threadID, taskID, summary string, toolCallCount int) {
	threadID = c.Resolve(threadID)
	if sub := c.findSubagentSegment(threadID, taskID); sub != nil {
		now := c.Now()
		sub.Status = model.SubagentComplete
		sub.Summary = summary
		sub.ToolCallCount = toolCallCount
		sub.CompletedAt = &now
		c.touch(threadID)
	}
}

// shouldPreserve reports whether a local message must survive a
// set_messages merge: it is still streaming, has not yet been assigned an
// id, or carries an id beyond the incoming set's maximum (meaning it was
// created locally after the snapshot the incoming set represents).
func shouldPreserve(m *model.Message, maxIncomingID int64) bool {
	return m.IsStreaming || m.ID == 0 || m.ID > maxIncomingID
}

// SetMessages implements merge-not-replace semantics: if the local list
// contains any message that must be preserved (see shouldPreserve), those
// are kept and appended after the incoming set; otherwise incoming fully
// replaces the list. This closes the race where the user sends a message
// before history finishes loading.
func (c *Cache) SetMessages(threadID string, incoming []*model.Message) {
	threadID = c.Resolve(threadID)
	local := c.messages[threadID]

	var maxIncomingID int64
	for _, m := range incoming {
		if m.ID > maxIncomingID {
			maxIncomingID = m.ID
		}
	}

	var preserved []*model.Message
	for _, m := range local {
		if shouldPreserve(m, maxIncomingID) {
			preserved = append(preserved, m)
		}
	}

	merged := make([]*model.Message, 0, len(incoming)+len(preserved))
	merged = append(merged, incoming...)
	merged = append(merged, preserved...)
	c.messages[threadID] = merged

	if thread, ok := c.threads[threadID]; ok {
		thread.MessageCount = len(merged)
	}
	c.touch(threadID)
}
