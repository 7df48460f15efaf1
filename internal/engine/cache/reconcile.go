package cache

// ReconcileThreadID rewrites every table from the pending id to the real
// id, atomically: the Thread entry, its message slice (and each message's
// ThreadID), its errors, its position in the MRU order, and the alias
// entry recording pending -> real for any in-flight reference to the old
// id. It then always flushes any queued title update under the real id,
// even when title is also supplied directly here, resolving the spec's
// open question that some reconciliation paths observed elsewhere elide
// that flush: this implementation never does.
//
// If pending == real, only the optional title/description update applies.
// If pending is unknown, the call is a no-op.
func (c *Cache) ReconcileThreadID(pending, real string, title string) {
	if pending == real {
		if title != "" {
			c.UpdateThreadMetadata(real, title, "", false)
		}
		c.ApplyPendingTitleUpdates(real)
		return
	}

	thread, ok := c.threads[pending]
	if !ok {
		return
	}

	thread.ID = real
	delete(c.threads, pending)
	c.threads[real] = thread

	if messages, ok := c.messages[pending]; ok {
		for _, m := range messages {
			m.ThreadID = real
		}
		delete(c.messages, pending)
		c.messages[real] = messages
	}

	if errs, ok := c.errors[pending]; ok {
		delete(c.errors, pending)
		c.errors[real] = errs
	}
	if idx, ok := c.focusedError[pending]; ok {
		delete(c.focusedError, pending)
		c.focusedError[real] = idx
	}
	if at, ok := c.lastAccessed[pending]; ok {
		delete(c.lastAccessed, pending)
		c.lastAccessed[real] = at
	}

	for i, id := range c.order {
		if id == pending {
			c.order[i] = real
			break
		}
	}

	c.alias[pending] = real

	if title != "" {
		thread.Title = title
	}

	c.ApplyPendingTitleUpdates(real)
	c.touch(real)
}

// UpdateThreadMetadata applies title/description directly if the thread
// exists (directly or via alias); otherwise it queues the update under the
// given id for later application by ApplyPendingTitleUpdates. A queue entry
// is only recorded when a title is present, per the engine's rule that a
// bare description with no title is not worth remembering across a
// reconciliation gap.
func (c *Cache) UpdateThreadMetadata(id string, title string, description string, hasDescription bool) {
	resolved := c.Resolve(id)
	if thread, ok := c.threads[resolved]; ok {
		if title != "" {
			thread.Title = title
		}
		if hasDescription {
			thread.Description = description
		}
		c.touch(resolved)
		return
	}
	if title == "" {
		return
	}
	c.pendingTitleUpdates[id] = pendingTitleUpdate{title: title, description: description, hasDesc: hasDescription}
}

// ApplyPendingTitleUpdates flushes any title/description queued under
// realID, applying it to the now-known thread.
func (c *Cache) ApplyPendingTitleUpdates(realID string) {
	update, ok := c.pendingTitleUpdates[realID]
	if !ok {
		return
	}
	delete(c.pendingTitleUpdates, realID)
	thread, ok := c.threads[c.Resolve(realID)]
	if !ok {
		return
	}
	thread.Title = update.title
	if update.hasDesc {
		thread.Description = update.description
	}
}
