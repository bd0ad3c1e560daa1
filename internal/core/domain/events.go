package domain

import "time"

// AccessDeniedEvent is emitted when a request is refused at the authorization boundary.
type AccessDeniedEvent struct {
	EventID  string
	UserID   string
	Check    string
	Code     string
	Resource string
	TraceID  string
	DeniedAt time.Time
	Metadata map[string]any
}

// SyncConflictRecordedEvent is emitted when a push records a new conflict.
type SyncConflictRecordedEvent struct {
	EventID      string
	ConflictID   string
	SessionID    string
	UserID       string
	TableName    string
	RecordID     string
	ConflictType ConflictType
	RecordedAt   time.Time
}

// SyncConflictResolvedEvent is emitted after a conflict transitions to resolved.
type SyncConflictResolvedEvent struct {
	EventID    string
	ConflictID string
	SessionID  string
	UserID     string
	TableName  string
	RecordID   string
	Strategy   ResolutionStrategy
	ResolvedAt time.Time
}
