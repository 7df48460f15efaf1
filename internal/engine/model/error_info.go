package model

import "time"

// ErrorInfo is a navigable, dismissible error banner.
type ErrorInfo struct {
	ID        string
	ErrorCode string
	Message   string
	Timestamp time.Time
}
