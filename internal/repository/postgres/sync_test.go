package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/repository"
)

func newTestSyncRepository(t *testing.T) (*SyncRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := newMockPool(t)
	repo := NewSyncRepository(mock)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	return repo, mock
}

func TestSyncRepository_GetRecordDecodesTombstone(t *testing.T) {
	repo, mock := newTestSyncRepository(t)

	rows := pgxmock.NewRows(syncRecordColumns).
		AddRow("parcels", "p-1", "sess-1", int64(4), int64(90), []byte(`{"area":120}`), true, time.Now().UTC(), "user-1")
	mock.ExpectQuery(`FROM portal\.sync_records WHERE record_id = \$1 AND table_name = \$2`).
		WithArgs("p-1", "parcels").
		WillReturnRows(rows)

	record, err := repo.GetRecord(context.Background(), "parcels", "p-1")
	if err != nil {
		t.Fatalf("GetRecord returned error: %v", err)
	}
	if !record.Deleted || record.Version != 4 || record.Revision != 90 || record.SessionID != "sess-1" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Data["area"] != float64(120) {
		t.Fatalf("unexpected data: %v", record.Data)
	}
}

func TestSyncRepository_ApplyWriteInsertConflictIsVersionMismatch(t *testing.T) {
	repo, mock := newTestSyncRepository(t)

	mock.ExpectQuery(`INSERT INTO portal\.sync_records .* ON CONFLICT \(table_name, record_id\) DO NOTHING RETURNING version`).
		WithArgs("parcels", "p-1", "sess-1", 1, []byte(`{"area":1}`), false, pgxmock.AnyArg(), "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"version"}))

	_, err := repo.ApplyWrite(context.Background(), domain.RecordWrite{
		TableName: "parcels",
		RecordID:  "p-1",
		SessionID: "sess-1",
		Data:      map[string]any{"area": 1},
		UpdatedBy: "user-1",
	})
	if !errors.Is(err, repository.ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestSyncRepository_ApplyWriteUpdateBumpsVersion(t *testing.T) {
	repo, mock := newTestSyncRepository(t)

	mock.ExpectQuery(`UPDATE portal\.sync_records SET version = version \+ 1, revision = nextval\('portal\.sync_revision_seq'\)`).
		WithArgs([]byte(`{"area":2}`), false, pgxmock.AnyArg(), "user-1", "p-1", "parcels", int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(4)))

	version, err := repo.ApplyWrite(context.Background(), domain.RecordWrite{
		TableName:       "parcels",
		RecordID:        "p-1",
		ExpectedVersion: 3,
		Data:            map[string]any{"area": 2},
		UpdatedBy:       "user-1",
	})
	if err != nil {
		t.Fatalf("ApplyWrite returned error: %v", err)
	}
	if version != 4 {
		t.Fatalf("expected version 4, got %d", version)
	}
}

func TestSyncRepository_ListChangedSinceScopesBySession(t *testing.T) {
	repo, mock := newTestSyncRepository(t)

	rows := pgxmock.NewRows(syncRecordColumns).
		AddRow("parcels", "p-1", "sess-1", int64(2), int64(41), []byte(`{"area":1}`), false, time.Now().UTC(), "user-1")
	mock.ExpectQuery(`FROM portal\.sync_records WHERE session_id = \$1 AND table_name = \$2 AND revision > \$3 ORDER BY revision ASC LIMIT 11`).
		WithArgs("sess-1", "parcels", int64(40)).
		WillReturnRows(rows)

	records, err := repo.ListChangedSince(context.Background(), "parcels", "sess-1", 40, 11)
	if err != nil {
		t.Fatalf("ListChangedSince returned error: %v", err)
	}
	if len(records) != 1 || records[0].SessionID != "sess-1" || records[0].Revision != 41 {
		t.Fatalf("unexpected records: %+v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSyncRepository_ResolveConflictTwiceWritesOnce(t *testing.T) {
	repo, mock := newTestSyncRepository(t)

	write := &domain.RecordWrite{
		TableName:       "parcels",
		RecordID:        "p-1",
		ExpectedVersion: 2,
		Data:            map[string]any{"a": 1},
		UpdatedBy:       "user-1",
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE portal\.sync_conflicts SET resolved = \$1, resolved_at = \$2, resolution = \$3 WHERE id = \$4 AND resolved = \$5`).
		WithArgs(true, pgxmock.AnyArg(), "use_local", "c-1", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`UPDATE portal\.sync_records`).
		WithArgs(pgxmock.AnyArg(), false, pgxmock.AnyArg(), "user-1", "p-1", "parcels", int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(3)))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE portal\.sync_conflicts`).
		WithArgs(true, pgxmock.AnyArg(), "use_local", "c-1", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	if err := repo.ResolveConflict(context.Background(), "c-1", domain.ResolveUseLocal, write); err != nil {
		t.Fatalf("first ResolveConflict returned error: %v", err)
	}
	err := repo.ResolveConflict(context.Background(), "c-1", domain.ResolveUseLocal, write)
	if !errors.Is(err, repository.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected error to wrap domain.ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSyncRepository_ResolveConflictStaleRecordRollsBack(t *testing.T) {
	repo, mock := newTestSyncRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE portal\.sync_conflicts`).
		WithArgs(true, pgxmock.AnyArg(), "merge", "c-2", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`UPDATE portal\.sync_records`).
		WithArgs(pgxmock.AnyArg(), false, pgxmock.AnyArg(), "user-1", "p-1", "parcels", int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"version"}))
	mock.ExpectRollback()

	err := repo.ResolveConflict(context.Background(), "c-2", domain.ResolveMerge, &domain.RecordWrite{
		TableName:       "parcels",
		RecordID:        "p-1",
		ExpectedVersion: 5,
		Data:            map[string]any{"a": 1},
		UpdatedBy:       "user-1",
	})
	if !errors.Is(err, repository.ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSyncRepository_ListUnresolvedScopesBySession(t *testing.T) {
	repo, mock := newTestSyncRepository(t)

	created := time.Now().UTC()
	rows := pgxmock.NewRows(syncConflictColumns).AddRow(
		"c-1", "sess-1", "user-1", "parcels", "p-1", "area",
		[]byte(`{"area":1}`), []byte(`{"area":2}`), false, int64(2),
		"concurrent_update", created, false, nil, nil,
	)
	mock.ExpectQuery(`FROM portal\.sync_conflicts WHERE resolved = \$1 AND session_id = \$2 AND user_id = \$3 ORDER BY created_at ASC`).
		WithArgs(false, "sess-1", "user-1").
		WillReturnRows(rows)

	conflicts, err := repo.ListUnresolved(context.Background(), "sess-1", "user-1")
	if err != nil {
		t.Fatalf("ListUnresolved returned error: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	c := conflicts[0]
	if c.ConflictType != domain.ConflictConcurrentUpdate || c.Resolved || c.Resolution != nil {
		t.Fatalf("unexpected conflict: %+v", c)
	}
	if c.FieldName == nil || *c.FieldName != "area" {
		t.Fatalf("unexpected field name: %v", c.FieldName)
	}
	if c.ClientValue["area"] != float64(2) {
		t.Fatalf("unexpected client value: %v", c.ClientValue)
	}
}

func TestSyncRepository_HasUnresolved(t *testing.T) {
	repo, mock := newTestSyncRepository(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM portal\.sync_conflicts WHERE record_id = \$1 AND resolved = \$2 AND table_name = \$3\)`).
		WithArgs("p-1", false, "parcels").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	open, err := repo.HasUnresolved(context.Background(), "parcels", "p-1")
	if err != nil {
		t.Fatalf("HasUnresolved returned error: %v", err)
	}
	if !open {
		t.Fatal("expected an unresolved conflict")
	}
}
