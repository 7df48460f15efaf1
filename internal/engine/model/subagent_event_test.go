package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubagentEventShouldRenderRunningAlwaysTrue(t *testing.T) {
	event := &SubagentEvent{Status: SubagentRunning}
	require.True(t, event.ShouldRender(10000, 0))
}

func TestSubagentEventShouldRenderCompleteFadesAfterWindow(t *testing.T) {
	event := &SubagentEvent{Status: SubagentComplete}
	require.True(t, event.ShouldRender(fadeTicks, 0))
	require.False(t, event.ShouldRender(fadeTicks+1, 0))
}
