// Package cache implements the conversation cache: the single source of
// truth for threads, messages, and errors, and the only place their
// invariants are enforced. Nothing outside this package other than the
// dispatcher is expected to mutate it; per the engine's single-owner
// concurrency model the cache itself performs no locking.
package cache

import (
	"time"

	"github.com/google/uuid"
	"github.com/spoq/spoq-tui/internal/engine/model"
)

// evictionWindow is how long a thread may go untouched before it drops out
// of the visible MRU list returned by Threads, without being destroyed.
const evictionWindow = 30 * time.Minute

// messageSearchWindow bounds how many trailing messages late-arriving tool
// and sub-agent events are allowed to search, so a tool completion that
// lands after the assistant message has already finalized still finds its
// segment.
const messageSearchWindow = 5

type pendingTitleUpdate struct {
	title       string
	description string
	hasDesc     bool
}

// Cache is the conversation cache described by the engine's data model. It
// is not safe for concurrent use; the dispatcher is its sole mutator.
type Cache struct {
	threads      map[string]*model.Thread
	messages     map[string][]*model.Message
	errors       map[string][]*model.ErrorInfo
	focusedError map[string]int
	lastAccessed map[string]time.Time
	order        []string // MRU order, front = most recently touched

	alias               map[string]string // pending -> real
	pendingTitleUpdates map[string]pendingTitleUpdate

	// Now lets tests control the clock; defaults to time.Now.
	Now func() time.Time
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{
		threads:             make(map[string]*model.Thread),
		messages:            make(map[string][]*model.Message),
		errors:              make(map[string][]*model.ErrorInfo),
		focusedError:        make(map[string]int),
		lastAccessed:        make(map[string]time.Time),
		alias:               make(map[string]string),
		pendingTitleUpdates: make(map[string]pendingTitleUpdate),
		Now:                 time.Now,
	}
}

// Resolve follows the pending->real alias map. Lookup is idempotent: if id
// is not an alias key it is returned unchanged.
func (c *Cache) Resolve(id string) string {
	if real, ok := c.alias[id]; ok {
		return real
	}
	return id
}

// touch refreshes last-access time and moves id to the front of the MRU
// order, inserting it if it isn't already tracked.
func (c *Cache) touch(id string) {
	c.lastAccessed[id] = c.Now()
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append([]string{id}, c.order...)
}

// TouchThread performs MRU promotion and eviction refresh for id.
func (c *Cache) TouchThread(id string) {
	id = c.Resolve(id)
	if _, ok := c.threads[id]; !ok {
		return
	}
	c.touch(id)
}

// UpsertThread inserts or updates a thread, moving it to the MRU front.
func (c *Cache) UpsertThread(t *model.Thread) {
	c.threads[t.ID] = t
	c.touch(t.ID)
}

// GetThread returns the thread stored under id (resolved through the alias
// map), regardless of eviction state.
func (c *Cache) GetThread(id string) (*model.Thread, bool) {
	id = c.Resolve(id)
	t, ok := c.threads[id]
	return t, ok
}

// Threads returns thread ids in MRU order, filtering out entries that have
// not been touched within evictionWindow. This is a read-time filter, not a
// destructive pass: evicted threads remain retrievable via GetThread.
func (c *Cache) Threads() []string {
	now := c.Now()
	visible := make([]string, 0, len(c.order))
	for _, id := range c.order {
		if now.Sub(c.lastAccessed[id]) > evictionWindow {
			continue
		}
		visible = append(visible, id)
	}
	return visible
}

// RemoveThread purges the thread, its messages, its errors, its last-access
// entry, any queued title update, and any alias entry that references id
// either as pending or as real.
func (c *Cache) RemoveThread(id string) {
	delete(c.threads, id)
	delete(c.messages, id)
	delete(c.errors, id)
	delete(c.focusedError, id)
	delete(c.lastAccessed, id)
	delete(c.pendingTitleUpdates, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	for pending, real := range c.alias {
		if pending == id || real == id {
			delete(c.alias, pending)
		}
	}
}

// Messages returns the message slice for a thread, resolved through the
// alias map. The returned slice is owned by the cache and must not be
// mutated by callers.
func (c *Cache) Messages(threadID string) []*model.Message {
	return c.messages[c.Resolve(threadID)]
}

// CreatePendingThread creates a new Thread with a client-minted pending id,
// a user Message (id=1) holding firstUserText, and a streaming assistant
// placeholder Message (id=0). The title is firstUserText truncated per
// model.TruncateTitle.
func (c *Cache) CreatePendingThread(firstUserText string, threadType model.ThreadType, workingDirectory string, imageHashes []string) string {
	id := uuid.NewString()
	now := c.Now()
	thread := &model.Thread{
		ID:               id,
		Title:            model.TruncateTitle(firstUserText),
		Preview:          firstUserText,
		CreatedAt:        now,
		UpdatedAt:        now,
		ThreadType:       threadType,
		Mode:             model.ModeNormal,
		MessageCount:     2,
		WorkingDirectory: workingDirectory,
	}
	userMessage := &model.Message{
		ID:          1,
		ThreadID:    id,
		Role:        model.RoleUser,
		CreatedAt:   now,
		Content:     firstUserText,
		ImageHashes: imageHashes,
	}
	streaming := &model.Message{
		ID:          0,
		ThreadID:    id,
		Role:        model.RoleAssistant,
		CreatedAt:   now,
		IsStreaming: true,
	}
	c.threads[id] = thread
	c.messages[id] = []*model.Message{userMessage, streaming}
	c.touch(id)
	return id
}

// AddStreamingMessage appends a new user/assistant pair to an existing
// thread, returning false if the thread is unknown. It updates the preview
// and updated_at, and promotes the thread to the MRU front.
func (c *Cache) AddStreamingMessage(threadID string, userText string) bool {
	threadID = c.Resolve(threadID)
	thread, ok := c.threads[threadID]
	if !ok {
		return false
	}
	now := c.Now()
	messages := c.messages[threadID]
	nextID := int64(1)
	for _, m := range messages {
		if m.ID >= nextID {
			nextID = m.ID + 1
		}
	}
	messages = append(messages,
		&model.Message{ID: nextID, ThreadID: threadID, Role: model.RoleUser, CreatedAt: now, Content: userText},
		&model.Message{ID: 0, ThreadID: threadID, Role: model.RoleAssistant, CreatedAt: now, IsStreaming: true},
	)
	c.messages[threadID] = messages
	thread.Preview = userText
	thread.UpdatedAt = now
	thread.MessageCount = len(messages)
	c.touch(threadID)
	return true
}

// IsThreadStreaming reports whether the thread's last message is still
// streaming, used to guard against submitting a second message onto a
// thread that is already generating a response.
func (c *Cache) IsThreadStreaming(threadID string) bool {
	messages := c.messages[c.Resolve(threadID)]
	if len(messages) == 0 {
		return false
	}
	return messages[len(messages)-1].IsStreaming
}

// Clear wipes every table. Only tests call it; neither the engine nor the
// reference shell has a "restart the whole cache" operation.
func (c *Cache) Clear() {
	c.threads = make(map[string]*model.Thread)
	c.messages = make(map[string][]*model.Message)
	c.errors = make(map[string][]*model.ErrorInfo)
	c.focusedError = make(map[string]int)
	c.lastAccessed = make(map[string]time.Time)
	c.order = nil
	c.alias = make(map[string]string)
	c.pendingTitleUpdates = make(map[string]pendingTitleUpdate)
}
