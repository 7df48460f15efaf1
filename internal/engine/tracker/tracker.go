// Package tracker implements the ephemeral per-thread index of active tool
// invocations and sub-agents used to drive a live summary (spinners, the
// latest display name) independent of where the conversation is scrolled.
// It is cleared on every StreamComplete; the message segments it
// summarizes live on in the message regardless.
package tracker

import "sort"

const fadeTicks = 30

// ToolStatus mirrors the tool lifecycle, duplicated here (rather than
// imported from model) because the tracker's notion of status governs only
// rendering eligibility, not the message segment itself.
type ToolStatus int

const (
	ToolStarted ToolStatus = iota
	ToolExecuting
	ToolCompleted
)

// ToolCallState is one tracked tool invocation.
type ToolCallState struct {
	ToolCallID    string
	FunctionName  string
	DisplayName   string
	Status        ToolStatus
	Success       bool
	Summary       string
	StartedTick   int64
	CompletedTick int64
}

// ShouldRender reports whether this entry is still worth showing at
// currentTick: in-progress always renders; a failed completion renders
// forever; a successful completion renders for fadeTicks after completion.
func (t *ToolCallState) ShouldRender(currentTick int64) bool {
	if t.Status != ToolCompleted {
		return true
	}
	if !t.Success {
		return true
	}
	return currentTick <= t.CompletedTick+fadeTicks
}

// SubagentState is one tracked sub-agent task.
type SubagentState struct {
	TaskID          string
	SubagentType    string
	Description     string
	ProgressMessage string
	Completed       bool
	Summary         string
	ToolCallCount   int
	StartedTick     int64
	CompletedTick   int64
}

// ShouldRender follows the same fade rule as ToolCallState; sub-agents have
// no failure state, so only completion triggers the fade window.
func (s *SubagentState) ShouldRender(currentTick int64) bool {
	if !s.Completed {
		return true
	}
	return currentTick <= s.CompletedTick+fadeTicks
}

// Tracker is a single thread's live tool/sub-agent index.
type Tracker struct {
	tools     map[string]*ToolCallState
	toolOrder []string
	subagents map[string]*SubagentState
	subOrder  []string
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		tools:     make(map[string]*ToolCallState),
		subagents: make(map[string]*SubagentState),
	}
}

// RegisterToolStarted begins tracking a tool invocation.
func (t *Tracker) RegisterToolStarted(toolCallID, functionName string, tick int64) {
	t.tools[toolCallID] = &ToolCallState{
		ToolCallID:   toolCallID,
		FunctionName: functionName,
		Status:       ToolStarted,
		StartedTick:  tick,
	}
	t.toolOrder = append(t.toolOrder, toolCallID)
}

// SetToolExecuting records that a tool has begun executing with a
// human-facing display name.
func (t *Tracker) SetToolExecuting(toolCallID, displayName string) {
	if state, ok := t.tools[toolCallID]; ok {
		state.Status = ToolExecuting
		state.DisplayName = displayName
	}
}

// CompleteToolWithSummary marks a tracked tool finished.
func (t *Tracker) CompleteToolWithSummary(toolCallID string, success bool, summary string, tick int64) {
	if state, ok := t.tools[toolCallID]; ok {
		state.Status = ToolCompleted
		state.Success = success
		state.Summary = summary
		state.CompletedTick = tick
	}
}

// RegisterSubagentStarted begins tracking a sub-agent task.
func (t *Tracker) RegisterSubagentStarted(taskID, subagentType, description string, tick int64) {
	t.subagents[taskID] = &SubagentState{
		TaskID:       taskID,
		SubagentType: subagentType,
		Description:  description,
		StartedTick:  tick,
	}
	t.subOrder = append(t.subOrder, taskID)
}

// UpdateSubagentProgress updates the progress message for a tracked task.
func (t *Tracker) UpdateSubagentProgress(taskID, message string) {
	if state, ok := t.subagents[taskID]; ok {
		state.ProgressMessage = message
	}
}

// CompleteSubagent marks a tracked sub-agent task finished.
func (t *Tracker) CompleteSubagent(taskID, summary string, toolCallCount int, tick int64) {
	if state, ok := t.subagents[taskID]; ok {
		state.Completed = true
		state.Summary = summary
		state.ToolCallCount = toolCallCount
		state.CompletedTick = tick
	}
}

// ToolsToRender returns tracked tools eligible to render at currentTick,
// sorted in-progress first, then by recency (most recently started first
// within each group).
func (t *Tracker) ToolsToRender(currentTick int64) []*ToolCallState {
	var result []*ToolCallState
	for _, id := range t.toolOrder {
		state := t.tools[id]
		if state.ShouldRender(currentTick) {
			result = append(result, state)
		}
	}
	sortByProgressThenRecency(result)
	return result
}

// SubagentsToRender returns tracked sub-agents eligible to render at
// currentTick, with the same ordering as ToolsToRender.
func (t *Tracker) SubagentsToRender(currentTick int64) []*SubagentState {
	var result []*SubagentState
	for _, id := range t.subOrder {
		state := t.subagents[id]
		if state.ShouldRender(currentTick) {
			result = append(result, state)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		iInProgress := !result[i].Completed
		jInProgress := !result[j].Completed
		if iInProgress != jInProgress {
			return iInProgress
		}
		return result[i].StartedTick > result[j].StartedTick
	})
	return result
}

func sortByProgressThenRecency(result []*ToolCallState) {
	sort.SliceStable(result, func(i, j int) bool {
		iInProgress := result[i].Status != ToolCompleted
		jInProgress := result[j].Status != ToolCompleted
		if iInProgress != jInProgress {
			return iInProgress
		}
		return result[i].StartedTick > result[j].StartedTick
	})
}

// Clear resets the tracker, called on StreamComplete. Completed tool
// segments already written into the message are untouched by this.
func (t *Tracker) Clear() {
	t.tools = make(map[string]*ToolCallState)
	t.toolOrder = nil
	t.subagents = make(map[string]*SubagentState)
	t.subOrder = nil
}
