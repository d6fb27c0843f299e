package photostore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bxcodec/dbresolver/v2"

	"github.com/mywaytech/dentstage-sync/internal/platform/dbtx"
)

// photoDataTable is the hardcoded photo_data table name, never driven through the generic
// entity catalog.
const photoDataTable = "photo_data"

// photoDataColumns are the metadata columns the row repository reads/writes. PhotoUID is the
// primary key; created_at and updated_at are never taken from the payload, and every other
// field present in the payload is copied field-wise on upsert.
var photoDataColumns = []string{
	"photo_uid", "order_uid", "position", "comments", "shape",
	"cost", "finish_cost", "progress", "flags", "created_at", "updated_at",
}

// RowRepository persists photo_data metadata rows. It deliberately does not reuse the generic
// catalog.Catalog: photo_data is the one table the entity catalog refuses to handle, so its row
// storage is hand-written the same low-level way catalog's generic path is, rather than routed
// through it.
type RowRepository struct {
	db dbresolver.DB
}

// NewRowRepository builds a RowRepository bound to db.
func NewRowRepository(db dbresolver.DB) *RowRepository {
	return &RowRepository{db: db}
}

// Upsert copies every photoDataColumns field present in row (field-wise replacement, mirroring
// the generic applier's INSERT/UPDATE/UPSERT rule) into the row identified by row["photoUid"],
// inserting a fresh row when none exists.
func (r *RowRepository) Upsert(ctx context.Context, photoUID string, row map[string]any) error {
	exists, err := r.exists(ctx, photoUID)
	if err != nil {
		return err
	}

	columnRow := toColumnMap(photoUID, row)

	if exists {
		return r.update(ctx, photoUID, columnRow)
	}

	return r.insert(ctx, columnRow)
}

// Delete removes the photo_data row for photoUID. Deleting an absent row is not an error — the
// applier treats it as idempotent success, matching the generic catalog's DELETE semantics.
func (r *RowRepository) Delete(ctx context.Context, photoUID string) error {
	_, err := dbtx.GetExecutor(ctx, r.db).ExecContext(ctx, "DELETE FROM "+photoDataTable+" WHERE photo_uid = $1", photoUID)
	return err
}

func (r *RowRepository) exists(ctx context.Context, photoUID string) (bool, error) {
	var found string

	err := dbtx.GetExecutor(ctx, r.db).QueryRowContext(ctx, "SELECT photo_uid FROM "+photoDataTable+" WHERE photo_uid = $1", photoUID).Scan(&found)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (r *RowRepository) insert(ctx context.Context, row map[string]any) error {
	cols := make([]string, 0, len(row))
	placeholders := make([]string, 0, len(row))
	values := make([]any, 0, len(row))

	i := 1

	for _, col := range photoDataColumns {
		v, ok := row[col]
		if !ok {
			continue
		}

		cols = append(cols, col)
		placeholders = append(placeholders, "$"+strconv.Itoa(i))
		values = append(values, v)
		i++
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", photoDataTable, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	_, err := dbtx.GetExecutor(ctx, r.db).ExecContext(ctx, query, values...)

	return err
}

func (r *RowRepository) update(ctx context.Context, photoUID string, row map[string]any) error {
	setClauses := make([]string, 0, len(row))
	values := make([]any, 0, len(row)+1)

	i := 1

	for _, col := range photoDataColumns {
		if col == "photo_uid" {
			continue
		}

		v, ok := row[col]
		if !ok {
			continue
		}

		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, i))
		values = append(values, v)
		i++
	}

	if len(setClauses) == 0 {
		return nil
	}

	values = append(values, photoUID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE photo_uid = $%d", photoDataTable, strings.Join(setClauses, ", "), i)
	_, err := dbtx.GetExecutor(ctx, r.db).ExecContext(ctx, query, values...)

	return err
}

// toColumnMap maps the camelCase payload keys the wire protocol uses onto photo_data's snake_case
// columns, keeping only fields the table declares.
func toColumnMap(photoUID string, row map[string]any) map[string]any {
	out := map[string]any{"photo_uid": photoUID}

	fieldMap := map[string]string{
		"orderUid":   "order_uid",
		"position":   "position",
		"comments":   "comments",
		"shape":      "shape",
		"cost":       "cost",
		"finishCost": "finish_cost",
		"progress":   "progress",
		"flags":      "flags",
	}

	for jsonKey, column := range fieldMap {
		if v, ok := row[jsonKey]; ok {
			out[column] = v
		}
	}

	return out
}
