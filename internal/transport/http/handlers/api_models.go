package handlers

import (
	"net/http"
	"time"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/transport/http/middleware"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/usecase"
)

// ErrorResponse is the error body shared with the middleware.
type ErrorResponse = middleware.ErrorResponse

// MobileLoginRequest defines the payload for the mobile login endpoint.
type MobileLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"deviceId" binding:"required"`
}

// MobileLoginResponse describes the issued mobile token.
type MobileLoginResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
	UserID      string    `json:"userId"`
	SessionID   string    `json:"sessionId"`
}

// GeographicAssignmentPayload is the client view of one assignment.
type GeographicAssignmentPayload struct {
	ID         string                 `json:"id"`
	Level      domain.AssignmentLevel `json:"level,omitempty"`
	Scope      domain.GeographicScope `json:"scope"`
	CanRead    bool                   `json:"canRead"`
	CanWrite   bool                   `json:"canWrite"`
	CanApprove bool                   `json:"canApprove"`
}

// MeResponse echoes the enriched identity of the caller.
type MeResponse struct {
	UserID       string                        `json:"userId"`
	RoleCode     string                        `json:"roleCode"`
	Roles        []string                      `json:"roles"`
	DepartmentID *string                       `json:"departmentId,omitempty"`
	DeviceID     string                        `json:"deviceId,omitempty"`
	SessionID    string                        `json:"sessionId,omitempty"`
	Assignments  []GeographicAssignmentPayload `json:"geographicAssignments"`
}

// PushRequest carries local edits of one sync session.
type PushRequest struct {
	SessionID string             `json:"sessionId" binding:"required"`
	Deltas    []domain.SyncDelta `json:"deltas"`
}

// ConflictPayload is the client view of a sync conflict.
type ConflictPayload struct {
	ID            string                     `json:"id"`
	SessionID     string                     `json:"sessionId"`
	TableName     string                     `json:"tableName"`
	RecordID      string                     `json:"recordId"`
	FieldName     *string                    `json:"fieldName,omitempty"`
	ConflictType  domain.ConflictType        `json:"conflictType"`
	ServerValue   map[string]any             `json:"serverValue"`
	ClientValue   map[string]any             `json:"clientValue"`
	ClientDeleted bool                       `json:"clientDeleted,omitempty"`
	ServerVersion int64                      `json:"serverVersion"`
	CreatedAt     time.Time                  `json:"createdAt"`
	Resolved      bool                       `json:"resolved"`
	ResolvedAt    *time.Time                 `json:"resolvedAt,omitempty"`
	Resolution    *domain.ResolutionStrategy `json:"resolution,omitempty"`
}

// PushResponse reports per-delta outcomes in request order.
type PushResponse struct {
	Outcomes  []domain.DeltaOutcome `json:"outcomes"`
	Conflicts []ConflictPayload     `json:"conflicts"`
}

// RecordPayload is one record returned by pull.
type RecordPayload struct {
	TableName string         `json:"tableName"`
	RecordID  string         `json:"recordId"`
	Version   int64          `json:"version"`
	Revision  int64          `json:"revision"`
	Data      map[string]any `json:"data,omitempty"`
	Deleted   bool           `json:"deleted"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// PullResponse is one page of changed records.
type PullResponse struct {
	Records []RecordPayload `json:"records"`
	Cursor  int64           `json:"cursor"`
	HasMore bool            `json:"hasMore"`
}

// ConflictListResponse lists unresolved conflicts of a session.
type ConflictListResponse struct {
	Conflicts []ConflictPayload `json:"conflicts"`
}

// ResolveConflictsRequest carries explicit resolutions.
type ResolveConflictsRequest struct {
	SessionID   string                      `json:"sessionId" binding:"required"`
	Resolutions []domain.ConflictResolution `json:"resolutions" binding:"required"`
}

// ResolutionFailurePayload explains why one resolution was rejected.
type ResolutionFailurePayload struct {
	ConflictID string `json:"conflictId"`
	Code       string `json:"code"`
	Error      string `json:"error"`
}

// ResolveConflictsResponse summarises a resolution batch.
type ResolveConflictsResponse struct {
	Resolved int                        `json:"resolved"`
	Failures []ResolutionFailurePayload `json:"failures"`
}

// ResolveConflictsErrorResponse is returned when a batch aborts on a server
// error. Resolved counts the resolutions committed before the abort; they are
// not rolled back, and the remaining ones were not attempted.
type ResolveConflictsErrorResponse struct {
	ErrorResponse
	Resolved int                        `json:"resolved"`
	Failures []ResolutionFailurePayload `json:"failures"`
}

// UploadURLRequest describes an attachment to be uploaded.
type UploadURLRequest struct {
	Filename        string                  `json:"filename" binding:"required"`
	ContentType     string                  `json:"contentType"`
	Visibility      domain.Visibility       `json:"visibility"`
	ACLRules        []domain.ACLRule        `json:"aclRules"`
	ApplicationID   *string                 `json:"applicationId,omitempty"`
	SessionID       *string                 `json:"sessionId,omitempty"`
	GeographicScope *domain.GeographicScope `json:"geographicScope,omitempty"`
	Classification  *string                 `json:"classification,omitempty"`
	RetentionPolicy *string                 `json:"retentionPolicy,omitempty"`
}

// PresignedRequestPayload is a presigned storage request.
type PresignedRequestPayload struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// UploadURLResponse is returned by the upload-url endpoint.
type UploadURLResponse struct {
	ObjectID string                  `json:"objectId"`
	Key      string                  `json:"key"`
	Upload   PresignedRequestPayload `json:"upload"`
	Policy   domain.ObjectACLPolicy  `json:"policy"`
}

// DownloadResponse is returned when READ access to an attachment is granted.
type DownloadResponse struct {
	Key      string                  `json:"key"`
	Download PresignedRequestPayload `json:"download"`
}

// AccessResponse answers a yes/no access question.
type AccessResponse struct {
	Allowed bool                    `json:"allowed"`
	Scope   *domain.GeographicScope `json:"scope,omitempty"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness check results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func newMeResponse(auth domain.AuthContext) MeResponse {
	roles := auth.Roles
	if roles == nil {
		roles = []string{}
	}
	assignments := make([]GeographicAssignmentPayload, 0, len(auth.GeographicAssignments))
	for _, a := range auth.GeographicAssignments {
		assignments = append(assignments, GeographicAssignmentPayload{
			ID:         a.ID,
			Level:      a.AssignmentLevel,
			Scope:      a.Scope,
			CanRead:    a.CanRead,
			CanWrite:   a.CanWrite,
			CanApprove: a.CanApprove,
		})
	}
	return MeResponse{
		UserID:       auth.UserID,
		RoleCode:     auth.RoleCode,
		Roles:        roles,
		DepartmentID: auth.DepartmentID,
		DeviceID:     auth.DeviceID,
		SessionID:    auth.SessionID,
		Assignments:  assignments,
	}
}

func newConflictPayload(conflict domain.SyncConflict) ConflictPayload {
	return ConflictPayload{
		ID:            conflict.ID,
		SessionID:     conflict.SessionID,
		TableName:     conflict.TableName,
		RecordID:      conflict.RecordID,
		FieldName:     conflict.FieldName,
		ConflictType:  conflict.ConflictType,
		ServerValue:   conflict.ServerValue,
		ClientValue:   conflict.ClientValue,
		ClientDeleted: conflict.ClientDeleted,
		ServerVersion: conflict.ServerVersion,
		CreatedAt:     conflict.CreatedAt,
		Resolved:      conflict.Resolved,
		ResolvedAt:    conflict.ResolvedAt,
		Resolution:    conflict.Resolution,
	}
}

func newConflictPayloads(conflicts []domain.SyncConflict) []ConflictPayload {
	out := make([]ConflictPayload, 0, len(conflicts))
	for _, conflict := range conflicts {
		out = append(out, newConflictPayload(conflict))
	}
	return out
}

func newRecordPayload(record domain.SyncRecord) RecordPayload {
	payload := RecordPayload{
		TableName: record.TableName,
		RecordID:  record.RecordID,
		Version:   record.Version,
		Revision:  record.Revision,
		Deleted:   record.Deleted,
		UpdatedAt: record.UpdatedAt,
	}
	if !record.Deleted {
		payload.Data = record.Data
	}
	return payload
}

func newPresignedPayload(req port.PresignedRequest) PresignedRequestPayload {
	payload := PresignedRequestPayload{
		URL:       req.URL,
		Method:    req.Method,
		ExpiresAt: req.ExpiresAt,
	}
	if len(req.Headers) > 0 {
		payload.Headers = make(map[string]string, len(req.Headers))
		for name, values := range req.Headers {
			if len(values) > 0 {
				payload.Headers[http.CanonicalHeaderKey(name)] = values[0]
			}
		}
	}
	return payload
}

func (r UploadURLRequest) toUsecase() usecase.UploadRequest {
	return usecase.UploadRequest{
		Filename:        r.Filename,
		ContentType:     r.ContentType,
		Visibility:      r.Visibility,
		ACLRules:        r.ACLRules,
		ApplicationID:   r.ApplicationID,
		SessionID:       r.SessionID,
		GeographicScope: r.GeographicScope,
		Classification:  r.Classification,
		RetentionPolicy: r.RetentionPolicy,
	}
}
