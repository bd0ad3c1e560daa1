package domain

import "time"

// ConflictType classifies why a pushed delta could not be applied.
type ConflictType string

const (
	ConflictConcurrentUpdate ConflictType = "concurrent_update"
	ConflictDeletedOnServer  ConflictType = "deleted_on_server"
	ConflictValidationError  ConflictType = "validation_error"
)

// ResolutionStrategy selects which side wins when a conflict is resolved.
type ResolutionStrategy string

const (
	ResolveUseLocal  ResolutionStrategy = "use_local"
	ResolveUseRemote ResolutionStrategy = "use_remote"
	ResolveMerge     ResolutionStrategy = "merge"
)

// Valid reports whether s is a known strategy.
func (s ResolutionStrategy) Valid() bool {
	return s == ResolveUseLocal || s == ResolveUseRemote || s == ResolveMerge
}

// AllowedFor reports whether s may resolve a conflict of type t.
// Only concurrent updates can be merged.
func (s ResolutionStrategy) AllowedFor(t ConflictType) bool {
	switch s {
	case ResolveUseLocal, ResolveUseRemote:
		return true
	case ResolveMerge:
		return t == ConflictConcurrentUpdate
	default:
		return false
	}
}

// DeltaOperation is the kind of local edit a client pushes.
type DeltaOperation string

const (
	DeltaUpsert DeltaOperation = "upsert"
	DeltaDelete DeltaOperation = "delete"
)

// SyncRecord is the server-side state of one synchronized record.
// Deleted marks a tombstone, which is distinct from the record being absent.
// Version counts writes to this record; Revision is a global change sequence
// used as the pull cursor. SessionID is the survey session the record was
// created under and never changes afterwards.
type SyncRecord struct {
	TableName string
	RecordID  string
	SessionID string
	Version   int64
	Revision  int64
	Data      map[string]any
	Deleted   bool
	UpdatedAt time.Time
	UpdatedBy string
}

// SyncDelta is one local edit pushed by a mobile client. BaseVersion is the
// client's last-known cursor for the record; BaseData, when present, holds the
// values the client last observed so both sides' changes can be told apart.
type SyncDelta struct {
	TableName   string         `json:"tableName"`
	RecordID    string         `json:"recordId"`
	Operation   DeltaOperation `json:"operation"`
	Data        map[string]any `json:"data,omitempty"`
	BaseVersion int64          `json:"baseVersion"`
	BaseData    map[string]any `json:"baseData,omitempty"`
}

// SyncConflict records divergence between a client delta and server state.
// It is only ever marked resolved by an explicit resolution.
type SyncConflict struct {
	ID            string
	SessionID     string
	UserID        string
	TableName     string
	RecordID      string
	FieldName     *string
	ServerValue   map[string]any
	ClientValue   map[string]any
	ClientDeleted bool
	ServerVersion int64
	ConflictType  ConflictType
	CreatedAt     time.Time
	Resolved      bool
	ResolvedAt    *time.Time
	Resolution    *ResolutionStrategy
}

// DeltaStatus is the per-delta outcome of a push.
type DeltaStatus string

const (
	DeltaApplied  DeltaStatus = "applied"
	DeltaConflict DeltaStatus = "conflict"
	DeltaBlocked  DeltaStatus = "blocked"
	// DeltaDenied marks a delta addressing a record of a survey session the
	// caller may not access. Nothing is written and no conflict is recorded.
	DeltaDenied   DeltaStatus = "denied"
)

// DeltaOutcome reports what happened to one pushed delta. Cursor only moves
// past the client's BaseVersion when Status is DeltaApplied.
type DeltaOutcome struct {
	TableName  string      `json:"tableName"`
	RecordID   string      `json:"recordId"`
	Status     DeltaStatus `json:"status"`
	Cursor     int64       `json:"cursor"`
	ConflictID string      `json:"conflictId,omitempty"`
}

// ConflictResolution is a caller's request to resolve one conflict.
type ConflictResolution struct {
	ConflictID   string             `json:"conflictId"`
	Strategy     ResolutionStrategy `json:"strategy"`
	ResolvedData map[string]any     `json:"resolvedData,omitempty"`
}

// RecordWrite is the record mutation applied together with a resolution.
// ExpectedVersion guards against the record having moved since the conflict
// was recorded. SessionID binds a newly created record and is ignored for
// updates.
type RecordWrite struct {
	TableName       string
	RecordID        string
	SessionID       string
	ExpectedVersion int64
	Data            map[string]any
	Deleted         bool
	UpdatedBy       string
}
