package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/repository"
)

const (
	defaultMaxDeltasPerPush = 500
	defaultPullPageSize     = 200
)

// SyncConfig bounds push and pull batches.
type SyncConfig struct {
	MaxDeltasPerPush int
	PullPageSize     int
}

// PushInput is one batch of local edits from a mobile session.
type PushInput struct {
	SessionID string
	UserID    string
	Deltas    []domain.SyncDelta
}

// PushResult reports the outcome of every delta in input order.
type PushResult struct {
	Outcomes  []domain.DeltaOutcome
	Conflicts []domain.SyncConflict
}

// PullInput requests records of one table and survey session changed after a cursor.
type PullInput struct {
	UserID    string
	SessionID string
	TableName string
	Since     int64
	Limit     int
}

// PullResult is one page of changed records. Cursor is the revision to pass
// as Since for the next page.
type PullResult struct {
	Records []domain.SyncRecord
	Cursor  int64
	HasMore bool
}

// ResolveInput carries explicit resolutions for conflicts of one session.
type ResolveInput struct {
	SessionID   string
	UserID      string
	Resolutions []domain.ConflictResolution
}

// ResolutionFailure reports why one resolution in a batch was rejected.
type ResolutionFailure struct {
	ConflictID string
	Err        error
}

// ResolveResult counts applied resolutions and lists rejected ones.
type ResolveResult struct {
	Resolved int
	Failures []ResolutionFailure
}

// SessionAuthorizer decides whether a user may read and write the records of
// a survey session.
type SessionAuthorizer interface {
	CanAccessSurveySession(ctx context.Context, userID, sessionID string) bool
}

// SyncService detects conflicts between pushed deltas and server state and
// applies explicit resolutions. Every read and write is scoped to survey
// sessions the caller can access.
type SyncService struct {
	repo      port.SyncRepository
	validator port.RecordValidator
	sessions  SessionAuthorizer
	events    port.EventPublisher
	cfg       SyncConfig
	now       func() time.Time
	decisionRecorder
}

// NewSyncService constructs a SyncService. events may be nil; a nil sessions
// authorizer denies every request.
func NewSyncService(
	repo port.SyncRepository,
	validator port.RecordValidator,
	sessions SessionAuthorizer,
	events port.EventPublisher,
	cfg SyncConfig,
	opts ...Option,
) *SyncService {
	if cfg.MaxDeltasPerPush <= 0 {
		cfg.MaxDeltasPerPush = defaultMaxDeltasPerPush
	}
	if cfg.PullPageSize <= 0 {
		cfg.PullPageSize = defaultPullPageSize
	}
	return &SyncService{
		repo:             repo,
		validator:        validator,
		sessions:         sessions,
		events:           events,
		cfg:              cfg,
		now:              time.Now,
		decisionRecorder: newDecisionRecorder(opts),
	}
}

// MergeRecords returns a shallow merge of server and client where client
// values win on key collisions. Neither input is modified.
func MergeRecords(server, client map[string]any) map[string]any {
	merged := make(map[string]any, len(server)+len(client))
	for k, v := range server {
		merged[k] = v
	}
	for k, v := range client {
		merged[k] = v
	}
	return merged
}

// Push applies each delta or records a conflict for it. The caller must be
// able to access in.SessionID; deltas addressing an existing record of another
// session the caller cannot access are reported denied. Records with an
// unresolved conflict are reported blocked and their cursor does not move.
func (s *SyncService) Push(ctx context.Context, in PushInput) (*PushResult, error) {
	if strings.TrimSpace(in.SessionID) == "" || strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("%w: session and user are required", ErrInvalidSyncRequest)
	}
	if len(in.Deltas) > s.cfg.MaxDeltasPerPush {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyDeltas, len(in.Deltas), s.cfg.MaxDeltasPerPush)
	}
	for i, delta := range in.Deltas {
		if err := validateDelta(delta); err != nil {
			return nil, fmt.Errorf("%w: delta %d: %v", ErrInvalidSyncRequest, i, err)
		}
	}

	access := s.sessionGuard(in.UserID)
	if !access(ctx, in.SessionID) {
		return nil, ErrSessionAccessDenied
	}

	result := &PushResult{
		Outcomes:  make([]domain.DeltaOutcome, 0, len(in.Deltas)),
		Conflicts: []domain.SyncConflict{},
	}
	for _, delta := range in.Deltas {
		outcome, conflict, err := s.pushDelta(ctx, in, delta, access)
		if err != nil {
			return nil, fmt.Errorf("push %s/%s: %w", delta.TableName, delta.RecordID, err)
		}
		result.Outcomes = append(result.Outcomes, outcome)
		if conflict != nil {
			result.Conflicts = append(result.Conflicts, *conflict)
		}
	}
	return result, nil
}

func (s *SyncService) pushDelta(ctx context.Context, in PushInput, delta domain.SyncDelta, access sessionCheck) (domain.DeltaOutcome, *domain.SyncConflict, error) {
	outcome := domain.DeltaOutcome{
		TableName: delta.TableName,
		RecordID:  delta.RecordID,
		Cursor:    delta.BaseVersion,
	}

	server, err := s.loadRecord(ctx, delta.TableName, delta.RecordID)
	if err != nil {
		return outcome, nil, err
	}
	if server != nil && server.SessionID != in.SessionID && !access(ctx, server.SessionID) {
		s.log.Info("sync delta denied",
			zap.String("user_id", in.UserID),
			zap.String("table", delta.TableName),
			zap.String("record_id", delta.RecordID),
			zap.String("record_session_id", server.SessionID),
		)
		outcome.Status = domain.DeltaDenied
		return outcome, nil, nil
	}

	blocked, err := s.repo.HasUnresolved(ctx, delta.TableName, delta.RecordID)
	if err != nil {
		return outcome, nil, fmt.Errorf("check unresolved conflicts: %w", err)
	}
	if blocked {
		outcome.Status = domain.DeltaBlocked
		return outcome, nil, nil
	}

	if delta.Operation == domain.DeltaUpsert {
		if err := s.validator.Validate(delta.TableName, delta.Data); err != nil {
			s.log.Info("sync delta failed validation",
				zap.String("table", delta.TableName),
				zap.String("record_id", delta.RecordID),
				zap.Error(err),
			)
			return s.recordConflict(ctx, in, delta, server, domain.ConflictValidationError, nil)
		}
	}

	write := domain.RecordWrite{
		TableName: delta.TableName,
		RecordID:  delta.RecordID,
		SessionID: in.SessionID,
		UpdatedBy: in.UserID,
	}

	switch {
	case server == nil:
		if delta.Operation == domain.DeltaDelete {
			outcome.Status = domain.DeltaApplied
			outcome.Cursor = 0
			return outcome, nil, nil
		}
		write.Data = delta.Data
		return s.applyDelta(ctx, in, delta, write)

	case server.Deleted:
		if delta.Operation == domain.DeltaDelete {
			outcome.Status = domain.DeltaApplied
			outcome.Cursor = server.Version
			return outcome, nil, nil
		}
		return s.recordConflict(ctx, in, delta, server, domain.ConflictDeletedOnServer, nil)
	}

	if server.Version > delta.BaseVersion {
		if delta.Operation == domain.DeltaDelete {
			return s.recordConflict(ctx, in, delta, server, domain.ConflictConcurrentUpdate, nil)
		}
		if fields := overlappingChanges(server.Data, delta); len(fields) > 0 {
			var field *string
			if len(fields) == 1 {
				field = &fields[0]
			}
			return s.recordConflict(ctx, in, delta, server, domain.ConflictConcurrentUpdate, field)
		}
	}

	write.ExpectedVersion = server.Version
	if delta.Operation == domain.DeltaDelete {
		write.Deleted = true
		write.Data = server.Data
	} else {
		write.Data = MergeRecords(server.Data, clientChanges(delta))
	}
	return s.applyDelta(ctx, in, delta, write)
}

func (s *SyncService) applyDelta(ctx context.Context, in PushInput, delta domain.SyncDelta, write domain.RecordWrite) (domain.DeltaOutcome, *domain.SyncConflict, error) {
	version, err := s.repo.ApplyWrite(ctx, write)
	if err != nil {
		if !errors.Is(err, repository.ErrVersionMismatch) {
			return domain.DeltaOutcome{}, nil, fmt.Errorf("apply delta: %w", err)
		}

		// Lost a race with another writer since the record was read.
		current, err := s.loadRecord(ctx, delta.TableName, delta.RecordID)
		if err != nil {
			return domain.DeltaOutcome{}, nil, err
		}
		conflictType := domain.ConflictConcurrentUpdate
		if current != nil && current.Deleted {
			conflictType = domain.ConflictDeletedOnServer
		}
		return s.recordConflict(ctx, in, delta, current, conflictType, nil)
	}

	return domain.DeltaOutcome{
		TableName: delta.TableName,
		RecordID:  delta.RecordID,
		Status:    domain.DeltaApplied,
		Cursor:    version,
	}, nil, nil
}

func (s *SyncService) recordConflict(
	ctx context.Context,
	in PushInput,
	delta domain.SyncDelta,
	server *domain.SyncRecord,
	conflictType domain.ConflictType,
	field *string,
) (domain.DeltaOutcome, *domain.SyncConflict, error) {
	conflict := domain.SyncConflict{
		ID:            uuid.NewString(),
		SessionID:     in.SessionID,
		UserID:        in.UserID,
		TableName:     delta.TableName,
		RecordID:      delta.RecordID,
		FieldName:     field,
		ClientValue:   delta.Data,
		ClientDeleted: delta.Operation == domain.DeltaDelete,
		ConflictType:  conflictType,
		CreatedAt:     s.now().UTC(),
	}
	if server != nil {
		conflict.ServerValue = server.Data
		conflict.ServerVersion = server.Version
	}

	if err := s.repo.CreateConflict(ctx, conflict); err != nil {
		return domain.DeltaOutcome{}, nil, fmt.Errorf("record conflict: %w", err)
	}

	if s.observer != nil {
		s.observer.ObserveConflict(string(conflictType))
	}
	if s.events != nil {
		event := domain.SyncConflictRecordedEvent{
			EventID:      uuid.NewString(),
			ConflictID:   conflict.ID,
			SessionID:    conflict.SessionID,
			UserID:       conflict.UserID,
			TableName:    conflict.TableName,
			RecordID:     conflict.RecordID,
			ConflictType: conflictType,
			RecordedAt:   conflict.CreatedAt,
		}
		if err := s.events.PublishSyncConflictRecorded(ctx, event); err != nil {
			s.log.Warn("failed to publish conflict recorded event", zap.String("conflict_id", conflict.ID), zap.Error(err))
		}
	}

	return domain.DeltaOutcome{
		TableName:  delta.TableName,
		RecordID:   delta.RecordID,
		Status:     domain.DeltaConflict,
		Cursor:     delta.BaseVersion,
		ConflictID: conflict.ID,
	}, &conflict, nil
}

// Pull returns one page of records of a table bound to in.SessionID changed
// after in.Since. The caller must be able to access the session.
func (s *SyncService) Pull(ctx context.Context, in PullInput) (*PullResult, error) {
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.SessionID) == "" || strings.TrimSpace(in.TableName) == "" {
		return nil, fmt.Errorf("%w: user, session and table are required", ErrInvalidSyncRequest)
	}
	if in.Since < 0 {
		return nil, fmt.Errorf("%w: negative cursor", ErrInvalidSyncRequest)
	}
	if !s.sessionGuard(in.UserID)(ctx, in.SessionID) {
		return nil, ErrSessionAccessDenied
	}

	limit := in.Limit
	if limit <= 0 || limit > s.cfg.PullPageSize {
		limit = s.cfg.PullPageSize
	}

	records, err := s.repo.ListChangedSince(ctx, in.TableName, in.SessionID, in.Since, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list changed records: %w", err)
	}

	result := &PullResult{Cursor: in.Since}
	if len(records) > limit {
		records = records[:limit]
		result.HasMore = true
	}
	if len(records) > 0 {
		result.Cursor = records[len(records)-1].Revision
	}
	result.Records = records
	return result, nil
}

// ListConflicts returns unresolved conflicts of userID, optionally limited to one session.
func (s *SyncService) ListConflicts(ctx context.Context, userID, sessionID string) ([]domain.SyncConflict, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidSyncRequest)
	}
	conflicts, err := s.repo.ListUnresolved(ctx, strings.TrimSpace(sessionID), userID)
	if err != nil {
		return nil, fmt.Errorf("list unresolved conflicts: %w", err)
	}
	return conflicts, nil
}

// ResolveConflicts applies each resolution at most once. Rejected
// resolutions are reported in Failures. An infrastructure error aborts the
// batch; the returned result then still counts the resolutions applied before
// it, which stay applied.
func (s *SyncService) ResolveConflicts(ctx context.Context, in ResolveInput) (*ResolveResult, error) {
	if strings.TrimSpace(in.SessionID) == "" || strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("%w: session and user are required", ErrInvalidSyncRequest)
	}
	if len(in.Resolutions) == 0 {
		return nil, fmt.Errorf("%w: no resolutions", ErrInvalidSyncRequest)
	}
	for _, res := range in.Resolutions {
		if strings.TrimSpace(res.ConflictID) == "" {
			return nil, fmt.Errorf("%w: conflict id is required", ErrInvalidSyncRequest)
		}
		if !res.Strategy.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, res.Strategy)
		}
	}
	if !s.sessionGuard(in.UserID)(ctx, in.SessionID) {
		return nil, ErrSessionAccessDenied
	}

	result := &ResolveResult{Failures: []ResolutionFailure{}}
	for _, res := range in.Resolutions {
		err := s.resolveOne(ctx, in, res)
		if err == nil {
			result.Resolved++
			continue
		}
		if !isResolutionRejection(err) {
			return result, fmt.Errorf("resolve conflict %s: %w", res.ConflictID, err)
		}
		s.log.Info("sync conflict resolution rejected",
			zap.String("conflict_id", res.ConflictID),
			zap.String("strategy", string(res.Strategy)),
			zap.Error(err),
		)
		result.Failures = append(result.Failures, ResolutionFailure{ConflictID: res.ConflictID, Err: err})
	}
	return result, nil
}

func (s *SyncService) resolveOne(ctx context.Context, in ResolveInput, res domain.ConflictResolution) error {
	conflict, err := s.repo.GetConflict(ctx, res.ConflictID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrConflictNotFound
		}
		return fmt.Errorf("get conflict: %w", err)
	}

	if conflict.UserID != in.UserID || conflict.SessionID != in.SessionID {
		return ErrConflictForbidden
	}
	if conflict.Resolved {
		return ErrConflictAlreadyResolved
	}
	if !res.Strategy.AllowedFor(conflict.ConflictType) {
		return fmt.Errorf("%w: %s for %s", ErrStrategyNotAllowed, res.Strategy, conflict.ConflictType)
	}

	write, err := s.resolutionWrite(*conflict, res, in.UserID)
	if err != nil {
		return err
	}

	if err := s.repo.ResolveConflict(ctx, conflict.ID, res.Strategy, write); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyResolved):
			return ErrConflictAlreadyResolved
		case errors.Is(err, repository.ErrVersionMismatch):
			return ErrConflictStale
		default:
			return fmt.Errorf("persist resolution: %w", err)
		}
	}

	if s.events != nil {
		event := domain.SyncConflictResolvedEvent{
			EventID:    uuid.NewString(),
			ConflictID: conflict.ID,
			SessionID:  conflict.SessionID,
			UserID:     in.UserID,
			TableName:  conflict.TableName,
			RecordID:   conflict.RecordID,
			Strategy:   res.Strategy,
			ResolvedAt: s.now().UTC(),
		}
		if err := s.events.PublishSyncConflictResolved(ctx, event); err != nil {
			s.log.Warn("failed to publish conflict resolved event", zap.String("conflict_id", conflict.ID), zap.Error(err))
		}
	}
	return nil
}

// resolutionWrite builds the record write for a resolution. use_remote keeps
// the server record and writes nothing.
func (s *SyncService) resolutionWrite(conflict domain.SyncConflict, res domain.ConflictResolution, userID string) (*domain.RecordWrite, error) {
	write := &domain.RecordWrite{
		TableName:       conflict.TableName,
		RecordID:        conflict.RecordID,
		ExpectedVersion: conflict.ServerVersion,
		SessionID:       conflict.SessionID,
		UpdatedBy:       userID,
	}

	client := conflict.ClientValue
	if res.ResolvedData != nil {
		client = res.ResolvedData
	}

	switch res.Strategy {
	case domain.ResolveUseRemote:
		return nil, nil
	case domain.ResolveUseLocal:
		if conflict.ClientDeleted && res.ResolvedData == nil {
			write.Deleted = true
			write.Data = conflict.ServerValue
			return write, nil
		}
		write.Data = client
	case domain.ResolveMerge:
		write.Data = MergeRecords(conflict.ServerValue, client)
	default:
		return nil, ErrInvalidStrategy
	}

	if err := s.validator.Validate(conflict.TableName, write.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionInvalid, err)
	}
	return write, nil
}

type sessionCheck func(ctx context.Context, sessionID string) bool

// sessionGuard returns a per-request session access check that remembers
// answers so a batch asks once per session. An empty session id never passes.
func (s *SyncService) sessionGuard(userID string) sessionCheck {
	seen := make(map[string]bool)
	return func(ctx context.Context, sessionID string) bool {
		if strings.TrimSpace(sessionID) == "" || s.sessions == nil {
			return false
		}
		if allowed, ok := seen[sessionID]; ok {
			return allowed
		}
		allowed := s.sessions.CanAccessSurveySession(ctx, userID, sessionID)
		seen[sessionID] = allowed
		if !allowed {
			s.observe(CheckSyncSession, false, false)
		}
		return allowed
	}
}

func (s *SyncService) loadRecord(ctx context.Context, tableName, recordID string) (*domain.SyncRecord, error) {
	record, err := s.repo.GetRecord(ctx, tableName, recordID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync record: %w", err)
	}
	return record, nil
}

func isResolutionRejection(err error) bool {
	return errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrAuthorization) ||
		errors.Is(err, ErrStrategyNotAllowed) ||
		errors.Is(err, ErrResolutionInvalid)
}

func validateDelta(delta domain.SyncDelta) error {
	if strings.TrimSpace(delta.TableName) == "" || strings.TrimSpace(delta.RecordID) == "" {
		return errors.New("table and record id are required")
	}
	if delta.BaseVersion < 0 {
		return errors.New("negative base version")
	}
	switch delta.Operation {
	case domain.DeltaUpsert:
		if delta.Data == nil {
			return errors.New("upsert requires data")
		}
	case domain.DeltaDelete:
	default:
		return fmt.Errorf("unknown operation %q", delta.Operation)
	}
	return nil
}

// clientChanges returns the fields the client edited. Without BaseData every
// pushed field counts as edited.
func clientChanges(delta domain.SyncDelta) map[string]any {
	if delta.BaseData == nil {
		return delta.Data
	}
	changed := make(map[string]any)
	for k, v := range delta.Data {
		base, ok := delta.BaseData[k]
		if !ok || !reflect.DeepEqual(base, v) {
			changed[k] = v
		}
	}
	return changed
}

// overlappingChanges returns, sorted, the fields both sides changed to
// different values since the client's base.
func overlappingChanges(server map[string]any, delta domain.SyncDelta) []string {
	var fields []string
	for k, clientValue := range clientChanges(delta) {
		serverValue, onServer := server[k]
		if onServer && reflect.DeepEqual(serverValue, clientValue) {
			continue
		}
		if delta.BaseData != nil {
			base, inBase := delta.BaseData[k]
			serverChanged := onServer != inBase || !reflect.DeepEqual(serverValue, base)
			if !serverChanged {
				continue
			}
		}
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}
