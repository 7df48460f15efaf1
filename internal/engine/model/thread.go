// Package model holds the data types the conversation engine operates on:
// threads, messages, segments, tool and sub-agent events, errors, and the
// dialog state shared across a session.
package model

import "time"

// ThreadType distinguishes a plain conversation from a programming session
// with a working directory and file-aware tools.
type ThreadType string

const (
	ThreadConversation ThreadType = "conversation"
	ThreadProgramming  ThreadType = "programming"
)

// ThreadMode tracks which interaction mode a thread is currently in.
type ThreadMode string

const (
	ModeNormal ThreadMode = "normal"
	ModePlan   ThreadMode = "plan"
	ModeExec   ThreadMode = "exec"
)

// Thread represents one conversation tracked by the engine.
type Thread struct {
	ID               string
	Title            string
	Description      string
	Preview          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ThreadType       ThreadType
	Mode             ThreadMode
	Model            string
	PermissionMode   string
	MessageCount     int
	WorkingDirectory string
	Status           string
	Verified         bool
	VerifiedAt       *time.Time
}

// titleMaxRunes is the maximum number of runes kept before truncation.
const titleMaxRunes = 40

// TruncateTitle truncates s to titleMaxRunes runes on a valid boundary,
// appending an ellipsis when truncation actually occurred.
func TruncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= titleMaxRunes {
		return s
	}
	return string(runes[:titleMaxRunes]) + "…"
}
