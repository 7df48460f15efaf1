package model

// ConnectionStatus reflects the session channel's transport state.
type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
)

// OAuthRequirement names the provider and skill that need consent before a
// skill can run.
type OAuthRequirement struct {
	Provider  string
	SkillName string
}

// SessionState is process-wide state shared across all threads.
type SessionState struct {
	AllowedTools      map[string]bool
	ContextTokensUsed int
	ContextTokenLimit int
	PendingPermission *PermissionRequest
	PendingQuestion   *QuestionData
	OAuthRequired     *OAuthRequirement
	OAuthURL          string
	Skills            []string
	Connection        ConnectionStatus
}

// NewSessionState returns an empty, ready-to-use SessionState.
func NewSessionState() *SessionState {
	return &SessionState{
		AllowedTools: make(map[string]bool),
		Connection:   ConnectionDisconnected,
	}
}

// AllowTool adds name to the process-wide allow-list.
func (s *SessionState) AllowTool(name string) {
	s.AllowedTools[name] = true
}

// IsAllowed reports whether name has been permanently approved.
func (s *SessionState) IsAllowed(name string) bool {
	return s.AllowedTools[name]
}
