// Package catalog implements the entity catalog (C1): a declarative registry mapping table
// names to primary-key schemas and row codecs, so the replication engine never hardcodes
// per-table SQL except for the photo_data special case.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/google/uuid"

	"github.com/mywaytech/dentstage-sync/internal/platform/dbtx"
)

// ScalarType is a primary-key column's scalar kind.
type ScalarType int

const (
	ScalarString ScalarType = iota
	ScalarInt
	ScalarUUID
	ScalarTimestamp
	ScalarEnum
)

// KeyColumn describes one segment of a table's primary key.
type KeyColumn struct {
	Name string
	Type ScalarType
}

// Schema is the entity catalog entry for one replicated table: its primary-key column order
// and the full set of columns the generic row store reads/writes.
type Schema struct {
	TableName  string
	PrimaryKey []KeyColumn
	Columns    []string
}

// ParseError indicates RecordId could not be parsed against a schema's primary key.
type ParseError struct {
	TableName string
	RecordId  string
	Reason    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("catalog: cannot parse key %q for table %q: %s", e.RecordId, e.TableName, e.Reason)
}

// KeyTuple is the ordered, typed values parsed out of a RecordId.
type KeyTuple []any

// Catalog is the registry of replicated tables, keyed case-insensitively by table name.
type Catalog struct {
	schemas map[string]Schema
	db      dbresolver.DB
}

// New builds a Catalog bound to db, seeded with schemas.
func New(db dbresolver.DB, schemas ...Schema) *Catalog {
	c := &Catalog{schemas: make(map[string]Schema, len(schemas)), db: db}
	for _, s := range schemas {
		c.schemas[strings.ToLower(s.TableName)] = s
	}

	return c
}

// Resolve looks up a table's schema, case-insensitively.
func (c *Catalog) Resolve(tableName string) (Schema, bool) {
	s, ok := c.schemas[strings.ToLower(strings.TrimSpace(tableName))]
	return s, ok
}

// ParseKey splits recordId by comma and converts each segment to the schema's declared type.
func (c *Catalog) ParseKey(schema Schema, recordId string) (KeyTuple, error) {
	segments := strings.Split(recordId, ",")
	if len(segments) != len(schema.PrimaryKey) {
		return nil, &ParseError{
			TableName: schema.TableName,
			RecordId:  recordId,
			Reason:    fmt.Sprintf("expected %d key segment(s), got %d", len(schema.PrimaryKey), len(segments)),
		}
	}

	tuple := make(KeyTuple, len(segments))

	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		col := schema.PrimaryKey[i]

		v, err := convertScalar(col.Type, seg)
		if err != nil {
			return nil, &ParseError{TableName: schema.TableName, RecordId: recordId, Reason: err.Error()}
		}

		tuple[i] = v
	}

	return tuple, nil
}

func convertScalar(t ScalarType, raw string) (any, error) {
	switch t {
	case ScalarString, ScalarEnum:
		return raw, nil
	case ScalarInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("segment %q is not an integer", raw)
		}

		return n, nil
	case ScalarUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("segment %q is not a UUID", raw)
		}

		return id, nil
	case ScalarTimestamp:
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("segment %q is not an RFC3339 timestamp", raw)
		}

		return ts, nil
	default:
		return nil, fmt.Errorf("unsupported scalar type %d", t)
	}
}

// Serialize converts a row (as a generic column map) to its JSON payload representation.
func Serialize(row map[string]any) (string, error) {
	b, err := json.Marshal(row)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// Deserialize parses a JSON payload against a schema, dropping fields the schema does not
// declare as a column (the catalog is the single source of truth for a table's shape).
func Deserialize(schema Schema, payload string) (map[string]any, error) {
	var row map[string]any

	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return nil, fmt.Errorf("catalog: payload does not deserialize for table %q: %w", schema.TableName, err)
	}

	allowed := make(map[string]struct{}, len(schema.Columns))
	for _, col := range schema.Columns {
		allowed[col] = struct{}{}
	}

	for field := range row {
		if _, ok := allowed[field]; !ok {
			delete(row, field)
		}
	}

	return row, nil
}

// FindByKey reads the current row for tuple's primary key, keyed by schema.PrimaryKey, and
// returns it as a generic column map, or (nil, false) if no row exists. The generic
// mpostgres.Table helper's Scan-based readers assume a single-column destination, which does
// not fit an arbitrary-width row map; this walks sql.Rows.Columns() directly instead, the same
// technique database/sql itself recommends for dynamic result shapes.
func (c *Catalog) FindByKey(ctx context.Context, schema Schema, tuple KeyTuple) (map[string]any, bool, error) {
	where, args := keyPredicate(schema, tuple)

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT 1", schema.TableName, where)

	rows, err := dbtx.GetExecutor(ctx, c.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}

	row, err := scanRow(rows)
	if err != nil {
		return nil, false, err
	}

	return row, true, nil
}

// Exists reports whether a row for tuple's primary key is already present.
func (c *Catalog) Exists(ctx context.Context, schema Schema, tuple KeyTuple) (bool, error) {
	_, ok, err := c.FindByKey(ctx, schema, tuple)
	return ok, err
}

// Insert writes a brand-new row for schema using the supplied column values.
func (c *Catalog) Insert(ctx context.Context, schema Schema, row map[string]any) error {
	cols := make([]string, 0, len(row))
	placeholders := make([]string, 0, len(row))
	values := make([]any, 0, len(row))

	i := 1

	for _, col := range schema.Columns {
		v, ok := row[col]
		if !ok {
			continue
		}

		cols = append(cols, col)
		placeholders = append(placeholders, "$"+strconv.Itoa(i))
		values = append(values, v)
		i++
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", schema.TableName, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	_, err := dbtx.GetExecutor(ctx, c.db).ExecContext(ctx, query, values...)

	return err
}

// Replace copies every field present in row (field-wise replacement) into the existing record
// identified by tuple.
func (c *Catalog) Replace(ctx context.Context, schema Schema, tuple KeyTuple, row map[string]any) error {
	setClauses := make([]string, 0, len(row))
	values := make([]any, 0, len(row)+len(tuple))

	i := 1

	for _, col := range schema.Columns {
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

	where, whereArgs := keyPredicateFrom(schema, tuple, i)
	values = append(values, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", schema.TableName, strings.Join(setClauses, ", "), where)

	_, err := dbtx.GetExecutor(ctx, c.db).ExecContext(ctx, query, values...)

	return err
}

// Delete removes the row identified by tuple. Deleting a row that does not exist is not an
// error — the applier treats it as idempotent success.
func (c *Catalog) Delete(ctx context.Context, schema Schema, tuple KeyTuple) error {
	where, args := keyPredicate(schema, tuple)
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", schema.TableName, where)

	_, err := dbtx.GetExecutor(ctx, c.db).ExecContext(ctx, query, args...)

	return err
}

func keyPredicate(schema Schema, tuple KeyTuple) (string, []any) {
	return keyPredicateFrom(schema, tuple, 1)
}

func keyPredicateFrom(schema Schema, tuple KeyTuple, startAt int) (string, []any) {
	clauses := make([]string, len(schema.PrimaryKey))
	args := make([]any, len(schema.PrimaryKey))

	for i, col := range schema.PrimaryKey {
		clauses[i] = fmt.Sprintf("%s = $%d", col.Name, startAt+i)
		args[i] = tuple[i]
	}

	return strings.Join(clauses, " AND "), args
}

func scanRow(rows *sql.Rows) (map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))

	for i := range values {
		ptrs[i] = &values[i]
	}

	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(map[string]any, len(columns))
	for i, col := range columns {
		row[col] = values[i]
	}

	return row, nil
}
