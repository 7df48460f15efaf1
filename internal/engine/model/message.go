package model

import "time"

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn in a thread. An ID of 0 marks a streaming placeholder
// that has not yet been assigned a real id by the server.
type Message struct {
	ID                 int64
	ThreadID           string
	Role               Role
	CreatedAt          time.Time
	IsStreaming        bool
	Content            string
	PartialContent     string
	ReasoningContent   string
	ReasoningCollapsed bool
	Segments           []Segment
	ImageHashes        []string
	RenderVersion      uint64
}

// bump increments RenderVersion; called by every mutator that changes
// anything a renderer might cache.
func (m *Message) bump() {
	m.RenderVersion++
}

// BumpRenderVersion lets callers outside this package (segment mutators
// living in the cache) signal a render-affecting change without
// duplicating the counter logic.
func (m *Message) BumpRenderVersion() {
	m.bump()
}

// AppendTextToken appends a token to PartialContent and fuses it into the
// trailing Text segment, opening a new one if the last segment isn't Text.
func (m *Message) AppendTextToken(token string) {
	m.PartialContent += token
	if n := len(m.Segments); n > 0 {
		if text, ok := m.Segments[n-1].(*TextSegment); ok {
			text.Content += token
			m.bump()
			return
		}
	}
	m.Segments = append(m.Segments, &TextSegment{Content: token})
	m.bump()
}

// AppendReasoningToken appends to ReasoningContent only; reasoning never
// produces its own segment.
func (m *Message) AppendReasoningToken(token string) {
	m.ReasoningContent += token
	m.bump()
}

// Finalize moves PartialContent into Content, clears the streaming flag,
// assigns the real id, and collapses the reasoning block if present.
func (m *Message) Finalize(realID int64) {
	m.Content = m.PartialContent
	m.PartialContent = ""
	m.IsStreaming = false
	m.ID = realID
	if m.ReasoningContent != "" {
		m.ReasoningCollapsed = true
	}
	m.bump()
}

// LastTextSegment returns the trailing Text segment, if the message ends
// with one.
func (m *Message) LastTextSegment() (*TextSegment, bool) {
	if n := len(m.Segments); n > 0 {
		if text, ok := m.Segments[n-1].(*TextSegment); ok {
			return text, true
		}
	}
	return nil, false
}
