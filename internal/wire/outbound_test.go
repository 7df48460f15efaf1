package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewApprovalEncodesAllowedTrue(t *testing.T) {
	resp := NewApproval("req-1", true)
	require.Equal(t, TypeCommandResponse, resp.Type)
	require.True(t, resp.Result.Data.Allowed)
	require.Empty(t, resp.Result.Data.Message)
}

func TestNewQuestionAnswerCarriesJSONStringInMessage(t *testing.T) {
	answers := map[string]string{"Continue?": "Yes"}
	answerJSON, err := json.Marshal(answers)
	require.NoError(t, err)

	resp := NewQuestionAnswer("req-2", string(answerJSON))
	require.True(t, resp.Result.Data.Allowed)
	require.JSONEq(t, `{"Continue?":"Yes"}`, resp.Result.Data.Message)
}

func TestNewCancelPermissionEnvelope(t *testing.T) {
	cancel := NewCancelPermission("req-3")
	require.Equal(t, TypeCancelPermission, cancel.Type)
	require.Equal(t, "req-3", cancel.RequestID)
}

func TestNewPlanApprovalResponseEnvelope(t *testing.T) {
	resp := NewPlanApprovalResponse("req-4", false)
	require.Equal(t, TypePlanApprovalResponse, resp.Type)
	require.False(t, resp.Approved)
}

func TestStreamRequestOmitsEmptyOptionalFields(t *testing.T) {
	req := StreamRequest{Prompt: "hello", Images: []string{}}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotContains(t, decoded, "thread_id")
	require.NotContains(t, decoded, "model")
	require.NotContains(t, decoded, "permission_mode")
	require.Contains(t, decoded, "prompt")
	require.Contains(t, decoded, "images")
}
