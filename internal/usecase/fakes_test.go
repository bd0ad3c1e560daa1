package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/repository"
)

func strPtr(v string) *string { return &v }

type geoRepoMock struct {
	assignments map[string][]domain.GeographicAssignment
	err         error
	panicWith   any
	calls       int
}

func (m *geoRepoMock) ListActiveByUser(_ context.Context, userID string) ([]domain.GeographicAssignment, error) {
	m.calls++
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.assignments[userID], nil
}

type roleRepoMock struct {
	roles map[string][]domain.RoleAssignment
	err   error
}

func (m *roleRepoMock) ListByUser(_ context.Context, userID string) ([]domain.RoleAssignment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.roles[userID], nil
}

type applicationRepoMock struct {
	applications map[string]domain.Application
	err          error
}

func (m *applicationRepoMock) GetByID(_ context.Context, id string) (*domain.Application, error) {
	if m.err != nil {
		return nil, m.err
	}
	app, ok := m.applications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &app, nil
}

type sessionRepoMock struct {
	sessions map[string]domain.SurveySession
	err      error
}

func (m *sessionRepoMock) GetByID(_ context.Context, id string) (*domain.SurveySession, error) {
	if m.err != nil {
		return nil, m.err
	}
	session, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

type userRepoMock struct {
	byID map[string]domain.User
	err  error
}

func (m *userRepoMock) GetByID(_ context.Context, id string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (m *userRepoMock) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, user := range m.byID {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type observerMock struct {
	mu        sync.Mutex
	decisions []string
	conflicts []string
}

func (m *observerMock) ObserveDecision(check string, allowed bool, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcome := "deny"
	switch {
	case failed:
		outcome = "error"
	case allowed:
		outcome = "allow"
	}
	m.decisions = append(m.decisions, check+":"+outcome)
}

func (m *observerMock) ObserveConflict(conflictType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts = append(m.conflicts, conflictType)
}

type fakeObject struct {
	metadata map[string]string
}

type objectStoreMock struct {
	objects     map[string]*fakeObject
	metadataErr error
	puts        []presignCall
	gets        []presignCall
}

type presignCall struct {
	key         string
	contentType string
	metadata    map[string]string
	ttl         time.Duration
}

func newObjectStoreMock() *objectStoreMock {
	return &objectStoreMock{objects: make(map[string]*fakeObject)}
}

func (m *objectStoreMock) put(key string, metadata map[string]string) {
	m.objects[key] = &fakeObject{metadata: metadata}
}

func (m *objectStoreMock) Metadata(_ context.Context, key string) (map[string]string, bool, error) {
	if m.metadataErr != nil {
		return nil, false, m.metadataErr
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, false, nil
	}
	out := make(map[string]string, len(obj.metadata))
	for k, v := range obj.metadata {
		out[k] = v
	}
	return out, true, nil
}

func (m *objectStoreMock) ReplaceMetadata(_ context.Context, key string, metadata map[string]string) error {
	obj, ok := m.objects[key]
	if !ok {
		return errors.New("no such key")
	}
	obj.metadata = metadata
	return nil
}

func (m *objectStoreMock) PresignPut(_ context.Context, key, contentType string, metadata map[string]string, ttl time.Duration) (port.PresignedRequest, error) {
	m.puts = append(m.puts, presignCall{key: key, contentType: contentType, metadata: metadata, ttl: ttl})
	return port.PresignedRequest{
		URL:       "https://storage.test/" + key + "?X-Amz-Signature=put",
		Method:    http.MethodPut,
		Headers:   http.Header{"Content-Type": []string{contentType}},
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (m *objectStoreMock) PresignGet(_ context.Context, key string, ttl time.Duration) (port.PresignedRequest, error) {
	m.gets = append(m.gets, presignCall{key: key, ttl: ttl})
	return port.PresignedRequest{
		URL:       "https://storage.test/" + key + "?X-Amz-Signature=get",
		Method:    http.MethodGet,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

type fixedIDs struct {
	ids []string
}

func (f *fixedIDs) New() string {
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id
}

// syncRepoMock mirrors the transactional guarantees of the Postgres repository.
type syncRepoMock struct {
	mu          sync.Mutex
	records     map[string]domain.SyncRecord
	conflicts   map[string]domain.SyncConflict
	revision    int64
	writes      int
	getErr      error
	resolveHook func()
}

func newSyncRepoMock() *syncRepoMock {
	return &syncRepoMock{
		records:   make(map[string]domain.SyncRecord),
		conflicts: make(map[string]domain.SyncConflict),
	}
}

func recordKey(table, id string) string { return table + "/" + id }

func (m *syncRepoMock) seed(record domain.SyncRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revision++
	record.Revision = m.revision
	if record.SessionID == "" {
		record.SessionID = "sess-1"
	}
	m.records[recordKey(record.TableName, record.RecordID)] = record
}

func (m *syncRepoMock) GetRecord(_ context.Context, table, id string) (*domain.SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	record, ok := m.records[recordKey(table, id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &record, nil
}

func (m *syncRepoMock) ApplyWrite(_ context.Context, write domain.RecordWrite) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(write)
}

func (m *syncRepoMock) applyLocked(write domain.RecordWrite) (int64, error) {
	key := recordKey(write.TableName, write.RecordID)
	current, exists := m.records[key]
	if write.ExpectedVersion == 0 {
		if exists {
			return 0, repository.ErrVersionMismatch
		}
	} else if !exists || current.Version != write.ExpectedVersion {
		return 0, repository.ErrVersionMismatch
	}

	sessionID := current.SessionID
	if !exists {
		sessionID = write.SessionID
	}

	m.revision++
	m.writes++
	next := domain.SyncRecord{
		TableName: write.TableName,
		RecordID:  write.RecordID,
		SessionID: sessionID,
		Version:   current.Version + 1,
		Revision:  m.revision,
		Data:      write.Data,
		Deleted:   write.Deleted,
		UpdatedBy: write.UpdatedBy,
	}
	m.records[key] = next
	return next.Version, nil
}

func (m *syncRepoMock) ListChangedSince(_ context.Context, table, sessionID string, since int64, limit int) ([]domain.SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SyncRecord
	for _, record := range m.records {
		if record.TableName == table && record.SessionID == sessionID && record.Revision > since {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Revision < out[j].Revision })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *syncRepoMock) CreateConflict(_ context.Context, conflict domain.SyncConflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts[conflict.ID] = conflict
	return nil
}

func (m *syncRepoMock) GetConflict(_ context.Context, id string) (*domain.SyncConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conflict, ok := m.conflicts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &conflict, nil
}

func (m *syncRepoMock) ListUnresolved(_ context.Context, sessionID, userID string) ([]domain.SyncConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SyncConflict
	for _, conflict := range m.conflicts {
		if conflict.Resolved || conflict.UserID != userID {
			continue
		}
		if sessionID != "" && conflict.SessionID != sessionID {
			continue
		}
		out = append(out, conflict)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *syncRepoMock) HasUnresolved(_ context.Context, table, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conflict := range m.conflicts {
		if !conflict.Resolved && conflict.TableName == table && conflict.RecordID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *syncRepoMock) ResolveConflict(_ context.Context, id string, strategy domain.ResolutionStrategy, write *domain.RecordWrite) error {
	if m.resolveHook != nil {
		m.resolveHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	conflict, ok := m.conflicts[id]
	if !ok {
		return repository.ErrNotFound
	}
	if conflict.Resolved {
		return repository.ErrAlreadyResolved
	}
	if write != nil {
		if _, err := m.applyLocked(*write); err != nil {
			return err
		}
	}
	now := time.Now()
	conflict.Resolved = true
	conflict.ResolvedAt = &now
	conflict.Resolution = &strategy
	m.conflicts[id] = conflict
	return nil
}

// sessionAuthorizerMock grants each user the listed survey sessions.
type sessionAuthorizerMock struct {
	mu      sync.Mutex
	allowed map[string][]string
	calls   int
}

func (m *sessionAuthorizerMock) CanAccessSurveySession(_ context.Context, userID, sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, id := range m.allowed[userID] {
		if id == sessionID {
			return true
		}
	}
	return false
}

type validatorMock struct {
	tables map[string]func(map[string]any) error
}

func (m validatorMock) Validate(table string, data map[string]any) error {
	check, ok := m.tables[table]
	if !ok {
		return errors.New("unknown table")
	}
	if check == nil {
		return nil
	}
	return check(data)
}

type eventsMock struct {
	mu       sync.Mutex
	denied   []domain.AccessDeniedEvent
	recorded []domain.SyncConflictRecordedEvent
	resolved []domain.SyncConflictResolvedEvent
	err      error
}

func (m *eventsMock) PublishAccessDenied(_ context.Context, event domain.AccessDeniedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = append(m.denied, event)
	return m.err
}

func (m *eventsMock) PublishSyncConflictRecorded(_ context.Context, event domain.SyncConflictRecordedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, event)
	return m.err
}

func (m *eventsMock) PublishSyncConflictResolved(_ context.Context, event domain.SyncConflictResolvedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, event)
	return m.err
}
