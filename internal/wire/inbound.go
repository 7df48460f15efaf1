// Package wire defines the JSON envelopes carried over the session channel
// and the per-request token stream: the exact "type"-tagged shapes the
// remote backend sends and expects, with the robust-deserialization rules
// the backend's clients have always had to tolerate (nullable strings
// default to empty, ids may arrive as either a number or a string).
package wire

import (
	"encoding/json"
	"fmt"
)

// Inbound type tags, exactly as they appear on the wire.
const (
	TypePermissionRequest   = "permission_request"
	TypeAgentStatus         = "agent_status"
	TypeConnected           = "connected"
	TypeThreadStatusUpdate  = "thread_status_update"
	TypeThreadCreated       = "thread_created"
	TypePlanApprovalRequest = "plan_approval_request"
	TypeThreadModeUpdate    = "thread_mode_update"
	TypePhaseProgressUpdate = "phase_progress_update"
	TypeThreadVerified      = "thread_verified"
	TypeThreadUpdated       = "thread_updated"
	TypeSystemMetricsUpdate = "system_metrics_update"
	TypeStreamStarted       = "stream_started"
)

// Envelope is the minimal shape needed to dispatch on "type" before
// unmarshaling the full payload.
type Envelope struct {
	Type string `json:"type"`
}

// FlexibleID tolerates a thread/message id arriving as either a JSON number
// or a JSON string, per the robust-deserialization rule in §6.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*f = FlexibleID(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*f = FlexibleID(asNumber.String())
		return nil
	}
	return fmt.Errorf("id is neither string nor number: %s", data)
}

// NullableString defaults to "" when the field is null or absent, instead
// of erroring or leaving a nil pointer for callers to check.
type NullableString string

func (n *NullableString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*n = NullableString(s)
	return nil
}

// PermissionRequestPayload is the permission_request inbound payload.
type PermissionRequestPayload struct {
	RequestID   string         `json:"request_id"`
	ThreadID    NullableString `json:"thread_id"`
	ToolName    string         `json:"tool_name"`
	ToolInput   map[string]any `json:"tool_input"`
	Description string         `json:"description"`
	TimestampMS int64          `json:"timestamp"`
}

// AgentStatusPayload is the agent_status inbound payload.
type AgentStatusPayload struct {
	ThreadID         string         `json:"thread_id"`
	State            string         `json:"state"`
	Model            string         `json:"model"`
	Tool             NullableString `json:"tool"`
	CurrentOperation NullableString `json:"current_operation"`
	TimestampMS      int64          `json:"timestamp"`
}

// ConnectedPayload is the connected inbound payload.
type ConnectedPayload struct {
	SessionID string `json:"session_id"`
}

// WaitingFor describes why a thread is blocked, embedded in
// ThreadStatusUpdatePayload.
type WaitingFor struct {
	Type string `json:"type"`
}

// ThreadStatusUpdatePayload is the thread_status_update inbound payload.
type ThreadStatusUpdatePayload struct {
	ThreadID    string      `json:"thread_id"`
	Status      string      `json:"status"`
	WaitingFor  *WaitingFor `json:"waiting_for"`
	TimestampMS int64       `json:"timestamp"`
}

// ThreadPayload is the embedded thread record inside thread_created.
type ThreadPayload struct {
	ID               FlexibleID     `json:"id"`
	Name             NullableString `json:"name"`
	Description      NullableString `json:"description"`
	Preview          NullableString `json:"preview"`
	Type             NullableString `json:"type"`
	Mode             NullableString `json:"mode"`
	Model            NullableString `json:"model"`
	PermissionMode   NullableString `json:"permission_mode"`
	MessageCount     int            `json:"message_count"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        NullableString `json:"updated_at"`
	WorkingDirectory NullableString `json:"working_directory"`
	Status           NullableString `json:"status"`
	Verified         bool           `json:"verified"`
	VerifiedAt       NullableString `json:"verified_at"`
}

// ResolvedType returns Type, defaulting to "conversation" per the robust
// deserialization rule.
func (t *ThreadPayload) ResolvedType() string {
	if t.Type == "" {
		return "conversation"
	}
	return string(t.Type)
}

// ThreadCreatedPayload is the thread_created inbound payload.
type ThreadCreatedPayload struct {
	Thread      ThreadPayload `json:"thread"`
	TimestampMS int64         `json:"timestamp"`
}

// PlanSummary is embedded in PlanApprovalRequestPayload.
type PlanSummary struct {
	Title           string   `json:"title"`
	Phases          []string `json:"phases"`
	FileCount       int      `json:"file_count"`
	EstimatedTokens *int64   `json:"estimated_tokens"`
}

// PlanApprovalRequestPayload is the plan_approval_request inbound payload.
type PlanApprovalRequestPayload struct {
	ThreadID    string      `json:"thread_id"`
	RequestID   string      `json:"request_id"`
	PlanSummary PlanSummary `json:"plan_summary"`
	TimestampMS int64       `json:"timestamp"`
}

// ThreadModeUpdatePayload is the thread_mode_update inbound payload.
// Unlike most payloads its timestamp is an ISO-8601 string, not ms.
type ThreadModeUpdatePayload struct {
	ThreadID  string `json:"thread_id"`
	Mode      string `json:"mode"`
	Timestamp string `json:"timestamp"`
}

// PhaseProgressUpdatePayload is the phase_progress_update inbound payload.
type PhaseProgressUpdatePayload struct {
	ThreadID    NullableString `json:"thread_id"`
	PlanID      string         `json:"plan_id"`
	PhaseIndex  int            `json:"phase_index"`
	TotalPhases int            `json:"total_phases"`
	PhaseName   string         `json:"phase_name"`
	Status      string         `json:"status"`
	ToolCount   int            `json:"tool_count"`
	LastTool    NullableString `json:"last_tool"`
	LastFile    NullableString `json:"last_file"`
	StartedAt   int64          `json:"started_at"`
	UpdatedAt   int64          `json:"updated_at"`
	TimestampMS int64          `json:"timestamp"`
}

// ThreadVerifiedPayload is the thread_verified inbound payload. Timestamp
// is an ISO-8601 string, not ms.
type ThreadVerifiedPayload struct {
	ThreadID  string `json:"thread_id"`
	Verified  bool   `json:"verified"`
	Timestamp string `json:"timestamp"`
}

// ThreadUpdatedPayload is the thread_updated inbound payload. Timestamp is
// an ISO-8601 string, not ms.
type ThreadUpdatedPayload struct {
	ThreadID    string         `json:"thread_id"`
	Title       NullableString `json:"title"`
	Description NullableString `json:"description"`
	Timestamp   string         `json:"timestamp"`
}

// SystemMetricsUpdatePayload is the system_metrics_update inbound payload.
type SystemMetricsUpdatePayload struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsedMB  int64   `json:"memory_used_mb"`
	MemoryTotalMB int64   `json:"memory_total_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	TimestampMS   int64   `json:"timestamp"`
}

// StreamStartedPayload is the stream_started inbound payload.
type StreamStartedPayload struct {
	ThreadID  string `json:"thread_id"`
	SessionID string `json:"session_id"`
}
