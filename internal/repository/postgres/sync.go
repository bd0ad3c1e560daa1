package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/domain"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/repository"
)

const revisionSequence = schema + ".sync_revision_seq"

var syncRecordColumns = []string{
	"table_name",
	"record_id",
	"session_id",
	"version",
	"revision",
	"data",
	"deleted",
	"updated_at",
	"updated_by",
}

var syncConflictColumns = []string{
	"id",
	"session_id",
	"user_id",
	"table_name",
	"record_id",
	"field_name",
	"server_value",
	"client_value",
	"client_deleted",
	"server_version",
	"conflict_type",
	"created_at",
	"resolved",
	"resolved_at",
	"resolution",
}

// SyncRepository persists synchronized records and the conflicts raised against them.
type SyncRepository struct {
	db      pgTxStarter
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewSyncRepository constructs a PostgreSQL-backed sync repository.
func NewSyncRepository(db pgTxStarter) *SyncRepository {
	return &SyncRepository{
		db:      db,
		builder: newBuilder(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetRecord returns the current server state of a record, tombstones included.
func (r *SyncRepository) GetRecord(ctx context.Context, tableName, recordID string) (*domain.SyncRecord, error) {
	stmt, args, err := r.builder.
		Select(syncRecordColumns...).
		From(table("sync_records")).
		Where(squirrel.Eq{"table_name": tableName, "record_id": recordID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select sync record sql: %w", err)
	}

	record, err := scanSyncRecord(r.db.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ApplyWrite stores write if the record is still at write.ExpectedVersion.
func (r *SyncRepository) ApplyWrite(ctx context.Context, write domain.RecordWrite) (int64, error) {
	return r.applyWrite(ctx, r.db, write)
}

func (r *SyncRepository) applyWrite(ctx context.Context, exec pgExecutor, write domain.RecordWrite) (int64, error) {
	payload, err := marshalJSONB(write.Data)
	if err != nil {
		return 0, fmt.Errorf("encode record data: %w", err)
	}
	now := r.now()

	var query squirrel.Sqlizer
	if write.ExpectedVersion == 0 {
		query = r.builder.
			Insert(table("sync_records")).
			Columns("table_name", "record_id", "session_id", "version", "revision", "data", "deleted", "updated_at", "updated_by").
			Values(
				write.TableName,
				write.RecordID,
				write.SessionID,
				1,
				squirrel.Expr("nextval('"+revisionSequence+"')"),
				payload,
				write.Deleted,
				now,
				write.UpdatedBy,
			).
			Suffix("ON CONFLICT (table_name, record_id) DO NOTHING RETURNING version")
	} else {
		query = r.builder.
			Update(table("sync_records")).
			Set("version", squirrel.Expr("version + 1")).
			Set("revision", squirrel.Expr("nextval('"+revisionSequence+"')")).
			Set("data", payload).
			Set("deleted", write.Deleted).
			Set("updated_at", now).
			Set("updated_by", write.UpdatedBy).
			Where(squirrel.Eq{
				"table_name": write.TableName,
				"record_id":  write.RecordID,
				"version":    write.ExpectedVersion,
			}).
			Suffix("RETURNING version")
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build write sync record sql: %w", err)
	}

	var version int64
	if err := exec.QueryRow(ctx, stmt, args...).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrVersionMismatch
		}
		return 0, fmt.Errorf("write sync record: %w", err)
	}
	return version, nil
}

// ListChangedSince returns records of tableName bound to sessionID whose
// revision is greater than since.
func (r *SyncRepository) ListChangedSince(ctx context.Context, tableName, sessionID string, since int64, limit int) ([]domain.SyncRecord, error) {
	builder := r.builder.
		Select(syncRecordColumns...).
		From(table("sync_records")).
		Where(squirrel.Eq{"table_name": tableName, "session_id": sessionID}).
		Where(squirrel.Gt{"revision": since}).
		OrderBy("revision ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sync records sql: %w", err)
	}

	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync records: %w", err)
	}
	defer rows.Close()

	var records []domain.SyncRecord
	for rows.Next() {
		record, err := scanSyncRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync records: %w", err)
	}

	return records, nil
}

// CreateConflict persists a new unresolved conflict.
func (r *SyncRepository) CreateConflict(ctx context.Context, conflict domain.SyncConflict) error {
	serverValue, err := marshalJSONB(conflict.ServerValue)
	if err != nil {
		return fmt.Errorf("encode server value: %w", err)
	}
	clientValue, err := marshalJSONB(conflict.ClientValue)
	if err != nil {
		return fmt.Errorf("encode client value: %w", err)
	}

	stmt, args, err := r.builder.
		Insert(table("sync_conflicts")).
		Columns(
			"id",
			"session_id",
			"user_id",
			"table_name",
			"record_id",
			"field_name",
			"server_value",
			"client_value",
			"client_deleted",
			"server_version",
			"conflict_type",
			"created_at",
			"resolved",
		).
		Values(
			conflict.ID,
			conflict.SessionID,
			conflict.UserID,
			conflict.TableName,
			conflict.RecordID,
			conflict.FieldName,
			serverValue,
			clientValue,
			conflict.ClientDeleted,
			conflict.ServerVersion,
			string(conflict.ConflictType),
			conflict.CreatedAt,
			false,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert sync conflict sql: %w", err)
	}

	if _, err := r.db.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert sync conflict: %w", err)
	}
	return nil
}

// GetConflict retrieves a conflict by identifier.
func (r *SyncRepository) GetConflict(ctx context.Context, id string) (*domain.SyncConflict, error) {
	stmt, args, err := r.builder.
		Select(syncConflictColumns...).
		From(table("sync_conflicts")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select sync conflict sql: %w", err)
	}

	conflict, err := scanSyncConflict(r.db.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &conflict, nil
}

// ListUnresolved returns the user's open conflicts, optionally narrowed to one sync session.
func (r *SyncRepository) ListUnresolved(ctx context.Context, sessionID, userID string) ([]domain.SyncConflict, error) {
	pred := squirrel.Eq{"user_id": userID, "resolved": false}
	if sessionID != "" {
		pred["session_id"] = sessionID
	}

	stmt, args, err := r.builder.
		Select(syncConflictColumns...).
		From(table("sync_conflicts")).
		Where(pred).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sync conflicts sql: %w", err)
	}

	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []domain.SyncConflict
	for rows.Next() {
		conflict, err := scanSyncConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, conflict)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync conflicts: %w", err)
	}

	return conflicts, nil
}

// HasUnresolved reports whether the record has any open conflict.
func (r *SyncRepository) HasUnresolved(ctx context.Context, tableName, recordID string) (bool, error) {
	sub, args, err := r.builder.
		Select("1").
		From(table("sync_conflicts")).
		Where(squirrel.Eq{"table_name": tableName, "record_id": recordID, "resolved": false}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build unresolved conflict sql: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("query unresolved conflict: %w", err)
	}
	return exists, nil
}

// ResolveConflict marks the conflict resolved and applies write in one transaction.
func (r *SyncRepository) ResolveConflict(ctx context.Context, conflictID string, strategy domain.ResolutionStrategy, write *domain.RecordWrite) error {
	stmt, args, err := r.builder.
		Update(table("sync_conflicts")).
		Set("resolved", true).
		Set("resolved_at", r.now()).
		Set("resolution", string(strategy)).
		Where(squirrel.Eq{"id": conflictID, "resolved": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build resolve sync conflict sql: %w", err)
	}

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("resolve sync conflict: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrAlreadyResolved
		}

		if write == nil {
			return nil
		}
		_, err = r.applyWrite(ctx, tx, *write)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRecord(row rowScanner) (domain.SyncRecord, error) {
	var (
		record  domain.SyncRecord
		payload []byte
	)
	if err := row.Scan(
		&record.TableName,
		&record.RecordID,
		&record.SessionID,
		&record.Version,
		&record.Revision,
		&payload,
		&record.Deleted,
		&record.UpdatedAt,
		&record.UpdatedBy,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SyncRecord{}, err
		}
		return domain.SyncRecord{}, fmt.Errorf("scan sync record: %w", err)
	}

	data, err := unmarshalJSONB(payload)
	if err != nil {
		return domain.SyncRecord{}, fmt.Errorf("decode sync record data: %w", err)
	}
	record.Data = data
	return record, nil
}

func scanSyncConflict(row rowScanner) (domain.SyncConflict, error) {
	var (
		conflict     domain.SyncConflict
		fieldName    sql.NullString
		serverValue  []byte
		clientValue  []byte
		conflictType string
		resolvedAt   sql.NullTime
		resolution   sql.NullString
	)
	if err := row.Scan(
		&conflict.ID,
		&conflict.SessionID,
		&conflict.UserID,
		&conflict.TableName,
		&conflict.RecordID,
		&fieldName,
		&serverValue,
		&clientValue,
		&conflict.ClientDeleted,
		&conflict.ServerVersion,
		&conflictType,
		&conflict.CreatedAt,
		&conflict.Resolved,
		&resolvedAt,
		&resolution,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SyncConflict{}, err
		}
		return domain.SyncConflict{}, fmt.Errorf("scan sync conflict: %w", err)
	}

	var err error
	if conflict.ServerValue, err = unmarshalJSONB(serverValue); err != nil {
		return domain.SyncConflict{}, fmt.Errorf("decode server value: %w", err)
	}
	if conflict.ClientValue, err = unmarshalJSONB(clientValue); err != nil {
		return domain.SyncConflict{}, fmt.Errorf("decode client value: %w", err)
	}

	conflict.ConflictType = domain.ConflictType(conflictType)
	conflict.FieldName = nullableString(fieldName)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		conflict.ResolvedAt = &t
	}
	if resolution.Valid {
		strategy := domain.ResolutionStrategy(resolution.String)
		conflict.Resolution = &strategy
	}
	return conflict, nil
}

func marshalJSONB(v map[string]any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func unmarshalJSONB(raw []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ port.SyncRepository = (*SyncRepository)(nil)
