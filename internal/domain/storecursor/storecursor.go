// Package storecursor implements the store-cursor registry (C5): per-store replication
// watermarks. The registry exclusively owns LastUploadTime/LastDownloadTime — every cursor
// mutation happens inside the same transaction as the change it accounts for, so the cursor
// never leads the actual data application.
package storecursor

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/common/mopentelemetry"
	"github.com/mywaytech/dentstage-sync/common/mpostgres"
	"github.com/mywaytech/dentstage-sync/internal/platform/dbtx"
)

// Cursor is one store's replication watermark.
type Cursor struct {
	StoreId          string
	Role             string
	ServerRole       string
	ServerIp         string
	LastUploadTime   time.Time
	LastDownloadTime time.Time
	LastSyncCount    int
}

// Repository is the store-cursor registry's storage contract.
type Repository interface {
	// GetOrCreate returns the cursor for storeId, creating a zero-valued row (epoch watermarks)
	// if none exists yet.
	GetOrCreate(ctx context.Context, storeId, role string) (Cursor, error)

	// Update persists cursor's mutable fields. Callers are expected to run this inside the same
	// transaction as the change it accounts for, by wrapping the call with
	// dbtx.RunInTransaction so this query joins the *sql.Tx carried on ctx (see internal/platform/dbtx).
	Update(ctx context.Context, cursor Cursor) error
}

const tableName = "store_cursor"

var columns = []string{
	"store_id", "role", "server_role", "server_ip",
	"last_upload_time", "last_download_time", "last_sync_count",
}

// PostgresRepository is the Postgres-backed Repository implementation, fronted by an optional
// Redis cache-aside read path (A3) so the poller's cursor read stays off the DB hot path.
type PostgresRepository struct {
	connection *mpostgres.PostgresConnection
	cache      Cache
}

// Cache is the Redis cache-aside contract for A3. A nil Cache (see NewPostgresRepository)
// disables caching entirely and every read goes straight to Postgres.
type Cache interface {
	Get(ctx context.Context, storeId string) (Cursor, bool)
	Set(ctx context.Context, cursor Cursor, ttl time.Duration)
	Invalidate(ctx context.Context, storeId string)
}

// cacheTTL bounds how long a cached cursor may be served before a miss forces a Postgres read.
// Kept short deliberately: the cache is a read-through convenience, never the watermark's
// source of truth.
const cacheTTL = 30 * time.Second

// NewPostgresRepository builds a PostgresRepository bound to connection. cache may be nil to
// disable the Redis read-through layer.
func NewPostgresRepository(connection *mpostgres.PostgresConnection, cache Cache) *PostgresRepository {
	return &PostgresRepository{connection: connection, cache: cache}
}

func (r *PostgresRepository) GetOrCreate(ctx context.Context, storeId, role string) (Cursor, error) {
	tracer := common.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "storecursor.get_or_create")
	defer span.End()

	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, storeId); ok {
			return cached, nil
		}
	}

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to get database connection", err)
		return Cursor{}, err
	}

	exec := dbtx.GetExecutor(ctx, db)

	cursor, err := queryRow(ctx, exec, storeId)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		cursor = Cursor{StoreId: storeId, Role: role}

		query, args, buildErr := sqrl.Insert(tableName).
			Columns(columns...).
			Values(cursor.StoreId, cursor.Role, cursor.ServerRole, cursor.ServerIp,
				cursor.LastUploadTime, cursor.LastDownloadTime, cursor.LastSyncCount).
			PlaceholderFormat(sqrl.Dollar).
			ToSql()
		if buildErr != nil {
			mopentelemetry.HandleSpanError(&span, "failed to build insert query", buildErr)
			return Cursor{}, buildErr
		}

		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			mopentelemetry.HandleSpanError(&span, "failed to create store cursor", err)
			return Cursor{}, err
		}
	case err != nil:
		mopentelemetry.HandleSpanError(&span, "failed to query store cursor", err)
		return Cursor{}, err
	}

	if r.cache != nil {
		r.cache.Set(ctx, cursor, cacheTTL)
	}

	return cursor, nil
}

func (r *PostgresRepository) Update(ctx context.Context, cursor Cursor) error {
	tracer := common.NewTracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "storecursor.update")
	defer span.End()

	db, err := r.connection.GetDB(ctx)
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to get database connection", err)
		return err
	}

	query, args, err := sqrl.Update(tableName).
		Set("role", cursor.Role).
		Set("server_role", cursor.ServerRole).
		Set("server_ip", cursor.ServerIp).
		Set("last_upload_time", cursor.LastUploadTime).
		Set("last_download_time", cursor.LastDownloadTime).
		Set("last_sync_count", cursor.LastSyncCount).
		Where(sqrl.Eq{"store_id": cursor.StoreId}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to build update query", err)
		return err
	}

	if _, err := dbtx.GetExecutor(ctx, db).ExecContext(ctx, query, args...); err != nil {
		mopentelemetry.HandleSpanError(&span, "failed to update store cursor", err)
		return err
	}

	// Invalidate, never update: the cache must never become the source of truth for the
	// watermark. The next read repopulates it from Postgres.
	if r.cache != nil {
		r.cache.Invalidate(ctx, cursor.StoreId)
	}

	return nil
}

func queryRow(ctx context.Context, db interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, storeId string) (Cursor, error) {
	row := db.QueryRowContext(ctx, "SELECT "+columnsList()+" FROM "+tableName+" WHERE store_id = $1", storeId)

	var c Cursor

	err := row.Scan(&c.StoreId, &c.Role, &c.ServerRole, &c.ServerIp,
		&c.LastUploadTime, &c.LastDownloadTime, &c.LastSyncCount)

	return c, err
}

func columnsList() string {
	out := ""

	for i, c := range columns {
		if i > 0 {
			out += ", "
		}

		out += c
	}

	return out
}
