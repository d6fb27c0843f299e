// Package changelog implements the change log (C3): the append-only record of row mutations
// that every other replication component reads from or writes into.
package changelog

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"time"

	"github.com/mywaytech/dentstage-sync/common"
	cn "github.com/mywaytech/dentstage-sync/common/constant"
	"github.com/mywaytech/dentstage-sync/common/mopentelemetry"
	"github.com/mywaytech/dentstage-sync/common/mpostgres"
	"github.com/mywaytech/dentstage-sync/internal/platform/dbtx"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Action identifies the kind of mutation a change log entry records.
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionUpsert Action = "UPSERT"
	ActionDelete Action = "DELETE"
)

// Entry is a single row mutation record.
type Entry struct {
	LogId        uuid.UUID
	TableName    string
	RecordId     string
	Action       Action
	UpdatedAt    time.Time
	SyncedAt     time.Time
	SourceServer string
	StoreType    string
	Synced       bool
	Payload      *string
}

// Repository is the change log's storage contract.
type Repository interface {
	// Append inserts entry with a freshly allocated LogId, leaving entry.LogId set to the
	// allocated value.
	Append(ctx context.Context, entry *Entry) error

	// Upsert persists entry preserving its supplied LogId: if a row with that LogId already
	// exists, its mutable fields are replaced in place; otherwise a new row is inserted with
	// the given LogId kept verbatim. Returns whether a prior row was found.
	Upsert(ctx context.Context, entry *Entry) (existed bool, err error)

	// After returns entries with SyncedAt > since, ordered ascending by (SyncedAt, UpdatedAt,
	// LogId), capped at limit rows (0 means no cap).
	After(ctx context.Context, since time.Time, limit int) ([]Entry, error)

	// ExistingLogIdsFromSource returns the subset of candidateLogIds that already have a row
	// in the log whose SourceServer equals sourceServer.
	ExistingLogIdsFromSource(ctx context.Context, sourceServer string, candidateLogIds []uuid.UUID) (map[uuid.UUID]bool, error)

	// MarkSyncedFromSource flags every entry whose SourceServer equals sourceServer as Synced.
	MarkSyncedFromSource(ctx context.Context, sourceServer string) error
}

const tableName = "change_log"

var columns = []string{
	"log_id", "table_name", "record_id", "action", "updated_at", "synced_at",
	"source_server", "store_type", "synced", "payload",
}

// PostgresRepository is the Postgres-backed Repository implementation.
type PostgresRepository struct {
	connection *mpostgres.PostgresConnection
}

// NewPostgresRepository builds a PostgresRepository bound to connection.
func NewPostgresRepository(connection *mpostgres.PostgresConnection) *PostgresRepository {
	return &PostgresRepository{connection: connection}
}

func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {
	tracer := common.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "changelog.append")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to get database connection", err)
		return err
	}

	entry.LogId = uuid.New()

	query, args, err := sqrl.Insert(tableName).
		Columns(columns...).
		Values(entry.LogId, entry.TableName, entry.RecordId, string(entry.Action), entry.UpdatedAt, entry.SyncedAt,
			entry.SourceServer, entry.StoreType, entry.Synced, entry.Payload).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to build insert query", err)
		return err
	}

	if _, err := dbtx.GetExecutor(ctx, db).ExecContext(ctx, query, args...); err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to append change log entry", err)
		return err
	}

	return nil
}

// Upsert preserves the caller-supplied LogId: on collision, the row's mutable fields are
// replaced (the deduplication anchor described for this table); otherwise a fresh row is
// inserted with the caller's LogId kept verbatim.
func (r *PostgresRepository) Upsert(ctx context.Context, entry *Entry) (bool, error) {
	tracer := common.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "changelog.upsert")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to get database connection", err)
		return false, err
	}

	exec := dbtx.GetExecutor(ctx, db)

	var existingLogId uuid.UUID

	row := exec.QueryRowContext(ctx, "SELECT log_id FROM "+tableName+" WHERE log_id = $1", entry.LogId)

	err = row.Scan(&existingLogId)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		insertQuery, args, buildErr := sqrl.Insert(tableName).
			Columns(columns...).
			Values(entry.LogId, entry.TableName, entry.RecordId, string(entry.Action), entry.UpdatedAt, entry.SyncedAt,
				entry.SourceServer, entry.StoreType, entry.Synced, entry.Payload).
			PlaceholderFormat(sqrl.Dollar).
			ToSql()
		if buildErr != nil {
			mopentelemetry.HandleSpanError(&span, "failed to build insert query", buildErr)
			return false, buildErr
		}

		if _, err := exec.ExecContext(ctx, insertQuery, args...); err != nil {
			mopentelemetry.HandleSpanError(&span, "failed to insert change log entry", err)
			return false, err
		}

		return false, nil
	case err != nil:
		mopentelemetry.HandleSpanError(&span, "failed to look up change log entry by log id", err)
		return false, err
	default:
		updateQuery, args, buildErr := sqrl.Update(tableName).
			Set("table_name", entry.TableName).
			Set("record_id", entry.RecordId).
			Set("action", string(entry.Action)).
			Set("updated_at", entry.UpdatedAt).
			Set("synced_at", entry.SyncedAt).
			Set("source_server", entry.SourceServer).
			Set("store_type", entry.StoreType).
			Set("synced", entry.Synced).
			Set("payload", entry.Payload).
			Where(sqrl.Eq{"log_id": entry.LogId}).
			PlaceholderFormat(sqrl.Dollar).
			ToSql()
		if buildErr != nil {
			mopentelemetry.HandleSpanError(&span, "failed to build update query", buildErr)
			return false, buildErr
		}

		if _, err := exec.ExecContext(ctx, updateQuery, args...); err != nil {
			mopentelemetry.HandleSpanError(&span, "failed to update change log entry", err)
			return false, err
		}

		return true, nil
	}
}

func (r *PostgresRepository) After(ctx context.Context, since time.Time, limit int) ([]Entry, error) {
	tracer := common.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "changelog.after")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to get database connection", err)
		return nil, err
	}

	builder := sqrl.Select(columns...).
		From(tableName).
		Where(sqrl.Gt{"synced_at": since}).
		OrderBy("synced_at ASC", "updated_at ASC", "log_id ASC").
		PlaceholderFormat(sqrl.Dollar)

	if limit > 0 {
		builder = builder.Limit(common.SafeIntToUint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to build query", err)
		return nil, err
	}

	rows, err := dbtx.GetExecutor(ctx, db).QueryContext(ctx, query, args...)
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to query change log", err)
		return nil, err
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var e Entry

		var action string

		if err := rows.Scan(&e.LogId, &e.TableName, &e.RecordId, &action, &e.UpdatedAt, &e.SyncedAt,
			&e.SourceServer, &e.StoreType, &e.Synced, &e.Payload); err != nil {
			mopentelemetry.HandleSpanError(&span, "failed to scan change log row", err)
			return nil, err
		}

		e.Action = Action(action)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to iterate change log rows", err)
		return nil, err
	}

	return entries, nil
}

func (r *PostgresRepository) ExistingLogIdsFromSource(ctx context.Context, sourceServer string, candidateLogIds []uuid.UUID) (map[uuid.UUID]bool, error) {
	tracer := common.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "changelog.existing_log_ids_from_source")
	defer span.End()

	result := make(map[uuid.UUID]bool, len(candidateLogIds))

	if len(candidateLogIds) == 0 {
		return result, nil
	}

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to get database connection", err)
		return nil, err
	}

	rows, err := dbtx.GetExecutor(ctx, db).QueryContext(ctx,
		"SELECT log_id FROM "+tableName+" WHERE source_server = $1 AND log_id = ANY($2)",
		sourceServer, pq.Array(candidateLogIds))
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to query existing log ids", err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			mopentelemetry.HandleSpanError(&span, "failed to scan log id", err)
			return nil, err
		}

		result[id] = true
	}

	return result, rows.Err()
}

func (r *PostgresRepository) MarkSyncedFromSource(ctx context.Context, sourceServer string) error {
	tracer := common.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "changelog.mark_synced_from_source")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to get database connection", err)
		return err
	}

	query, args, err := sqrl.Update(tableName).
		Set("synced", true).
		Where(sqrl.Eq{"source_server": sourceServer}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to build update query", err)
		return err
	}

	if _, err := dbtx.GetExecutor(ctx, db).ExecContext(ctx, query, args...); err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to mark entries synced", err)
		return err
	}

	return nil
}

// ValidatePayloadAgainstAction enforces that a non-DELETE entry with a payload deserializes
// against its declared table; TableName presence is checked by callers before this runs.
func ValidatePayloadAgainstAction(entry Entry, deserialize func(tableName, payload string) error) error {
	if entry.Action == ActionDelete || entry.Payload == nil {
		return nil
	}

	if err := deserialize(entry.TableName, *entry.Payload); err != nil {
		return common.ValidateBusinessError(cn.ErrInvalidPayload, reflect.TypeOf(Entry{}).Name())
	}

	return nil
}
