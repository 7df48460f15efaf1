package cache

import (
	"github.com/google/uuid"
	"github.com/spoq/spoq-tui/internal/engine/model"
)

// AddError appends an error banner to a thread's error list.
func (c *Cache) AddError(threadID string, err *model.ErrorInfo) {
	threadID = c.Resolve(threadID)
	c.errors[threadID] = append(c.errors[threadID], err)
}

// AddErrorSimple records an error under a generated id with no error code,
// for banners that don't originate from a backend-assigned code (the
// dispatcher uses it for stream errors and history load errors).
func (c *Cache) AddErrorSimple(threadID, message string) {
	c.AddError(threadID, &model.ErrorInfo{
		ID:        uuid.NewString(),
		Message:   message,
		Timestamp: c.Now(),
	})
}

// Errors returns the error list for a thread.
func (c *Cache) Errors(threadID string) []*model.ErrorInfo {
	return c.errors[c.Resolve(threadID)]
}

// ErrorCount returns the number of errors recorded for a thread.
func (c *Cache) ErrorCount(threadID string) int {
	return len(c.errors[c.Resolve(threadID)])
}

// FocusedErrorIndex returns the currently focused error index for a thread.
func (c *Cache) FocusedErrorIndex(threadID string) int {
	return c.focusedError[c.Resolve(threadID)]
}

// DismissFocusedError removes the currently focused error, clamping the
// focus index to stay within bounds.
func (c *Cache) DismissFocusedError(threadID string) {
	threadID = c.Resolve(threadID)
	errs := c.errors[threadID]
	idx := c.focusedError[threadID]
	if idx < 0 || idx >= len(errs) {
		return
	}
	errs = append(errs[:idx], errs[idx+1:]...)
	c.errors[threadID] = errs
	c.clampFocus(threadID)
}

// DismissError removes a specific error by id, regardless of focus.
func (c *Cache) DismissError(threadID, errorID string) {
	threadID = c.Resolve(threadID)
	errs := c.errors[threadID]
	for i, e := range errs {
		if e.ID == errorID {
			c.errors[threadID] = append(errs[:i], errs[i+1:]...)
			c.clampFocus(threadID)
			return
		}
	}
}

// ClearErrors removes all errors for a thread.
func (c *Cache) ClearErrors(threadID string) {
	threadID = c.Resolve(threadID)
	delete(c.errors, threadID)
	delete(c.focusedError, threadID)
}

// FocusNextError advances the focused error index, wrapping around.
func (c *Cache) FocusNextError(threadID string) {
	threadID = c.Resolve(threadID)
	n := len(c.errors[threadID])
	if n == 0 {
		return
	}
	c.focusedError[threadID] = (c.focusedError[threadID] + 1) % n
}

// FocusPrevError retreats the focused error index, wrapping around.
func (c *Cache) FocusPrevError(threadID string) {
	threadID = c.Resolve(threadID)
	n := len(c.errors[threadID])
	if n == 0 {
		return
	}
	c.focusedError[threadID] = (c.focusedError[threadID] - 1 + n) % n
}

func (c *Cache) clampFocus(threadID string) {
	n := len(c.errors[threadID])
	if n == 0 {
		c.focusedError[threadID] = 0
		return
	}
	if c.focusedError[threadID] >= n {
		c.focusedError[threadID] = n - 1
	}
}
