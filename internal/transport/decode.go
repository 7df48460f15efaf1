package transport

import (
	"encoding/json"
	"time"

	"github.com/spoq/spoq-tui/internal/engine/dispatch"
	"github.com/spoq/spoq-tui/internal/engine/model"
	"github.com/spoq/spoq-tui/internal/wire"
)

// DecodeInbound inspects a raw session-channel message's "type" tag and
// decodes it into the matching dispatch.Kind/payload pair. ok is false for
// an unrecognized type or malformed JSON.
func DecodeInbound(raw []byte) (dispatch.Kind, any, bool) {
	var envelope wire.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return 0, nil, false
	}

	switch envelope.Type {
	case wire.TypePermissionRequest:
		var payload wire.PermissionRequestPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return 0, nil, false
		}
		return dispatch.KindPermissionRequested, dispatch.PermissionRequested{
			Request: &model.PermissionRequest{
				PermissionID: payload.RequestID,
				ToolName:     payload.ToolName,
				Description:  payload.Description,
				ToolInput:    payload.ToolInput,
				Context:      string(payload.ThreadID),
				ReceivedAt:   time.UnixMilli(payload.TimestampMS),
			},
		}, true

	case wire.TypeThreadStatusUpdate:
		var payload wire.ThreadStatusUpdatePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return 0, nil, false
		}
		return dispatch.KindThreadStatusUpdate, dispatch.ThreadStatusUpdate{
			ThreadID: payload.ThreadID,
			Status:   payload.Status,
		}, true

	case wire.TypeThreadCreated:
		var payload wire.ThreadCreatedPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return 0, nil, false
		}
		return dispatch.KindWsThreadCreated, dispatch.WsThreadCreated{
			Thread: threadFromPayload(payload.Thread),
		}, true

	case wire.TypePlanApprovalRequest:
		var payload wire.PlanApprovalRequestPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return 0, nil, false
		}
		return dispatch.KindPlanApprovalRequest, dispatch.PlanApprovalRequest{
			ThreadID:  payload.ThreadID,
			RequestID: payload.RequestID,
			PlanSummary: model.PlanSummaryView{
				Title:           payload.PlanSummary.Title,
				Phases:          payload.PlanSummary.Phases,
				FileCount:       payload.PlanSummary.FileCount,
				EstimatedTokens: payload.PlanSummary.EstimatedTokens,
			},
		}, true

	case wire.TypeThreadModeUpdate:
		var payload wire.ThreadModeUpdatePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return 0, nil, false
		}
		return dispatch.KindThreadModeUpdate, dispatch.ThreadModeUpdate{
			ThreadID: payload.ThreadID,
			Mode:     model.ThreadMode(payload.Mode),
		}, true

	case wire.TypePhaseProgressUpdate:
		var payload wire.PhaseProgressUpdatePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return 0, nil, false
		}
		return dispatch.KindPhaseProgressUpdate, dispatch.PhaseProgressUpdate{
			PlanID:     payload.PlanID,
			ThreadID:   string(payload.ThreadID),
			PhaseIndex: payload.PhaseIndex,
			Total:      payload.TotalPhases,
			Name:       payload.PhaseName,
			Status:     payload.Status,
			ToolCount:  payload.ToolCount,
			LastTool:   string(payload.LastTool),
			LastFile:   string(payload.LastFile),
		}, true

	case wire.TypeThreadVerified:
		var payload wire.ThreadVerifiedPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return 0, nil, false
		}
		return dispatch.KindThreadVerified, dispatch.ThreadVerified{
			ThreadID: payload.ThreadID,
			Verified: payload.Verified,
		}, true

	case wire.TypeThreadUpdated:
		var payload wire.ThreadUpdatedPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return 0, nil, false
		}
		return dispatch.KindThreadMetadataUpdated, dispatch.ThreadMetadataUpdated{
			ThreadID:       payload.ThreadID,
			Title:          string(payload.Title),
			Description:    string(payload.Description),
			HasDescription: payload.Description != "",
		}, true

	case wire.TypeStreamStarted:
		var payload wire.StreamStartedPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return 0, nil, false
		}
		return dispatch.KindStreamStarted, dispatch.StreamStarted{
			ThreadID:  payload.ThreadID,
			SessionID: payload.SessionID,
		}, true

	case wire.TypeConnected, wire.TypeAgentStatus, wire.TypeSystemMetricsUpdate:
		// These carry informational/telemetry data the dispatcher does not
		// fold into engine state, so no dispatch.Kind is produced and
		// SessionChannel drops them. Treated as recognized-but-ignored so
		// they don't count as parse errors.
		return 0, nil, true

	default:
		return 0, nil, false
	}
}

// threadFromPayload builds the engine's full Thread record out of the
// wire's thread_created thread object, preserving every field the websocket
// broadcast carries (as opposed to ThreadCreated's id-only correlation).
func threadFromPayload(payload wire.ThreadPayload) model.Thread {
	thread := model.Thread{
		ID:               string(payload.ID),
		Title:            string(payload.Name),
		Description:      string(payload.Description),
		Preview:          string(payload.Preview),
		ThreadType:       model.ThreadType(payload.ResolvedType()),
		Mode:             model.ModeNormal,
		Model:            string(payload.Model),
		PermissionMode:   string(payload.PermissionMode),
		MessageCount:     payload.MessageCount,
		WorkingDirectory: string(payload.WorkingDirectory),
		Status:           string(payload.Status),
		Verified:         payload.Verified,
	}
	if payload.Mode != "" {
		thread.Mode = model.ThreadMode(payload.Mode)
	}
	if t, ok := parseTimestamp(payload.CreatedAt); ok {
		thread.CreatedAt = t
	}
	if t, ok := parseTimestamp(string(payload.UpdatedAt)); ok {
		thread.UpdatedAt = t
	}
	if t, ok := parseTimestamp(string(payload.VerifiedAt)); ok {
		thread.VerifiedAt = &t
	}
	return thread
}

// parseTimestamp parses an ISO-8601 timestamp as sent by the backend,
// tolerating the absent/empty case rather than erroring.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
