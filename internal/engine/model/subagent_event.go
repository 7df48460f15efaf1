package model

import "time"

// SubagentStatus is the lifecycle state of a sub-agent task.
type SubagentStatus string

const (
	SubagentRunning  SubagentStatus = "running"
	SubagentComplete SubagentStatus = "complete"
)

// SubagentEvent tracks a delegated sub-task spawned by the assistant.
type SubagentEvent struct {
	TaskID          string
	SubagentType    string
	Description     string
	Status          SubagentStatus
	ProgressMessage string
	Summary         string
	ToolCallCount   int
	StartedAt       time.Time
	CompletedAt     *time.Time
}

// ShouldRender follows the same fade rule as ToolEvent: in-progress and
// failed states always render (sub-agents have no failed status, so only
// running is unconditional), completed renders for fadeTicks after
// completion.
func (s *SubagentEvent) ShouldRender(currentTick, completedTick int64) bool {
	if s.Status == SubagentRunning {
		return true
	}
	return currentTick <= completedTick+fadeTicks
}
