package cache

// FindLastReasoningMessageIndex returns the index, within the thread's
// message list, of the most recent message carrying reasoning content.
func (c *Cache) FindLastReasoningMessageIndex(threadID string) (int, bool) {
	messages := c.messages[c.Resolve(threadID)]
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].ReasoningContent != "" {
			return i, true
		}
	}
	return 0, false
}

// ToggleMessageReasoning flips the collapsed state of the reasoning block
// on the message at index within the thread, returning false if the index
// is out of range.
func (c *Cache) ToggleMessageReasoning(threadID string, index int) bool {
	threadID = c.Resolve(threadID)
	messages := c.messages[threadID]
	if index < 0 || index >= len(messages) {
		return false
	}
	messages[index].ReasoningCollapsed = !messages[index].ReasoningCollapsed
	messages[index].BumpRenderVersion()
	return true
}
