// Package dispatch implements the event dispatcher: the single owner of
// mutable engine state. It drains one AppEvent channel and applies every
// event to the cache, the per-thread trackers, and session-wide dialog
// state. Nothing else in the process is allowed to mutate that state.
package dispatch

import "github.com/spoq/spoq-tui/internal/engine/model"

// Kind discriminates an AppEvent's payload, the Go equivalent of a single
// tagged-union enum rather than a hierarchy of event types.
type Kind int

const (
	KindStreamStarted Kind = iota
	KindStreamToken
	KindReasoningToken
	KindStreamComplete
	KindStreamError

	KindToolStarted
	KindToolExecuting
	KindToolArgumentChunk
	KindToolCompleted

	KindSubagentStarted
	KindSubagentProgress
	KindSubagentCompleted

	KindThreadCreated
	KindWsThreadCreated
	KindThreadMetadataUpdated
	KindThreadStatusUpdate
	KindThreadModeUpdate
	KindThreadVerified

	KindPhaseProgressUpdate
	KindPlanApprovalRequest

	KindPermissionRequested
	KindPendingQuestionAnswered
	KindOAuthConsentRequired
	KindContextCompacted
	KindUsageReceived
	KindSkillsInjected
	KindTodosUpdated

	KindWsConnected
	KindWsDisconnected
	KindWsReconnecting
	KindWsRawMessage
	KindWsParseError

	KindMessagesLoaded
	KindMessagesLoadError

	KindTick
)

// AppEvent is the single tagged-union type dispatched through the engine's
// event queue. Payload holds the struct value (not a pointer) matching Kind;
// the dispatcher type-asserts it after switching on Kind.
type AppEvent struct {
	Kind    Kind
	Payload any
}

type StreamStarted struct {
	ThreadID  string
	SessionID string
}

type StreamToken struct {
	ThreadID string
	Token    string
}

type ReasoningToken struct {
	ThreadID string
	Token    string
}

type StreamComplete struct {
	ThreadID  string
	MessageID int64
}

type StreamError struct {
	ThreadID string
	Error    string
}

type ToolStarted struct {
	ThreadID     string
	ToolCallID   string
	FunctionName string
}

type ToolExecuting struct {
	ThreadID    string
	ToolCallID  string
	DisplayName string
}

type ToolArgumentChunk struct {
	ThreadID   string
	ToolCallID string
	Chunk      string
}

type ToolCompleted struct {
	ThreadID   string
	ToolCallID string
	Success    bool
	Summary    string
	Result     string
}

type SubagentStarted struct {
	ThreadID     string
	TaskID       string
	SubagentType string
	Description  string
}

type SubagentProgress struct {
	ThreadID string
	TaskID   string
	Message  string
}

type SubagentCompleted struct {
	ThreadID      string
	TaskID        string
	Summary       string
	ToolCallCount int
}

// ThreadCreated correlates a client-minted pending thread id with the real
// id the backend assigned, as observed on the per-request token stream that
// made the submission. Title is the backend-assigned title, if any.
type ThreadCreated struct {
	PendingID string
	RealID    string
	Title     string
}

// WsThreadCreated carries the full thread record broadcast on the shared
// session channel the first time any client touches a given thread id. It
// is distinct from ThreadCreated: it has no pending-id correlation (it can
// announce threads this client never submitted to) and carries the whole
// record rather than just an id pair.
type WsThreadCreated struct {
	Thread model.Thread
}

type ThreadMetadataUpdated struct {
	ThreadID       string
	Title          string
	Description    string
	HasDescription bool
}

type ThreadStatusUpdate struct {
	ThreadID string
	Status   string
}

type ThreadModeUpdate struct {
	ThreadID string
	Mode     model.ThreadMode
}

type ThreadVerified struct {
	ThreadID string
	Verified bool
}

type PhaseProgressUpdate struct {
	PlanID     string
	ThreadID   string
	PhaseIndex int
	Total      int
	Name       string
	Status     string
	ToolCount  int
	LastTool   string
	LastFile   string
}

type PlanApprovalRequest struct {
	ThreadID    string
	RequestID   string
	PlanSummary model.PlanSummaryView
}

type PermissionRequested struct {
	Request *model.PermissionRequest
}

type PendingQuestionAnswered struct {
	Answers map[string]string
}

type OAuthConsentRequired struct {
	Requirement model.OAuthRequirement
	URL         string
}

type ContextCompacted struct {
	TokensUsed int
	TokenLimit int
}

type UsageReceived struct {
	TokensUsed int
	TokenLimit int
}

type SkillsInjected struct {
	Skills []string
}

type TodosUpdated struct {
	ThreadID string
	Todos    []string
}

type WsConnected struct {
	SessionID string
}

type WsDisconnected struct{}

type WsReconnecting struct {
	Attempt int
}

type WsRawMessage struct {
	Raw []byte
}

type WsParseError struct {
	Error string
}

type MessagesLoaded struct {
	ThreadID string
	Messages []*model.Message
}

type MessagesLoadError struct {
	ThreadID string
	Error    string
}

// Tick drives the ~16ms render timer used to animate and flush batched
// redraws; it carries the monotonic tick counter the fade rules compare
// against.
type Tick struct {
	Count int64
}
