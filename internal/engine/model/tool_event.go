package model

import "time"

// ToolStatus is the lifecycle state of a tool invocation.
type ToolStatus string

const (
	ToolRunning  ToolStatus = "running"
	ToolComplete ToolStatus = "complete"
	ToolFailed   ToolStatus = "failed"
)

// ToolEvent is a single tool invocation embedded in a message as a segment.
type ToolEvent struct {
	ToolCallID    string
	FunctionName  string
	DisplayName   string
	Status        ToolStatus
	StartedAt     time.Time
	CompletedAt   *time.Time
	DurationSecs  float64
	ArgsJSON      string
	ArgsDisplay   string
	ResultPreview string
	ResultIsError bool
}

// fadeTicks is how many ticks a completed-success event stays renderable
// after completion; failures never fade.
const fadeTicks = 30

// ShouldRender reports whether this event should still be shown at the
// given tick, per the fade rule: in-progress always renders, failures
// always render, and a completed success renders for fadeTicks after
// CompletedAt (measured in ticks via the caller-supplied completedTick).
func (t *ToolEvent) ShouldRender(currentTick, completedTick int64) bool {
	switch t.Status {
	case ToolRunning:
		return true
	case ToolFailed:
		return true
	case ToolComplete:
		return currentTick <= completedTick+fadeTicks
	default:
		return true
	}
}

// resultPreviewLimit is the byte length threshold beyond which tool results
// are truncated.
const resultPreviewLimit = 500

// whitespaceSearchWindow bounds how far back from the limit we'll look for
// a whitespace boundary before giving up and hard-cutting at the limit.
const whitespaceSearchWindow = 50

// TruncateResult implements the tool-result truncation algorithm: content
// at or under the limit is stored verbatim; longer content is cut at the
// last whitespace boundary at or before the limit (falling back to a hard
// cut at the limit if no boundary is found within the search window), with
// an ellipsis appended.
func TruncateResult(content string) string {
	if len(content) <= resultPreviewLimit {
		return content
	}
	cut := resultPreviewLimit
	for cut > resultPreviewLimit-whitespaceSearchWindow && cut > 0 {
		if isWhitespaceByte(content[cut-1]) {
			break
		}
		cut--
	}
	if cut <= resultPreviewLimit-whitespaceSearchWindow {
		cut = resultPreviewLimit
	}
	// Never split a UTF-8 continuation byte.
	for cut > 0 && isUTF8Continuation(content[cut]) {
		cut--
	}
	return content[:cut] + "…"
}

func isWhitespaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

func isUTF8Continuation(b byte) bool {
	return b&0xC0 == 0x80
}
