package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSessionStateStartsDisconnectedWithEmptyAllowList(t *testing.T) {
	s := NewSessionState()
	require.Equal(t, ConnectionDisconnected, s.Connection)
	require.Empty(t, s.AllowedTools)
}

func TestAllowToolPersistsAcrossIsAllowedChecks(t *testing.T) {
	s := NewSessionState()
	require.False(t, s.IsAllowed("Bash"))

	s.AllowTool("Bash")
	require.True(t, s.IsAllowed("Bash"))
	require.False(t, s.IsAllowed("Edit"))
}
