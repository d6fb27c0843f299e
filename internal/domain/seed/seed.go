// Package seed implements the manual-seed utility (C10): rebuilds a change-log entry from a
// row's current state and inserts it with a fresh LogId, so any downstream store that has
// already seen the table/record pair under its previous LogId still receives it on its next
// poll (LogId, not the table/record pair, is what the existing-from-source lookup keys on).
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mywaytech/dentstage-sync/internal/domain/applier"
	"github.com/mywaytech/dentstage-sync/internal/domain/catalog"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
)

// PhotoPayloadReader materializes a photo row's payload for seeding, implemented by
// photostore.PhotoApplier.
type PhotoPayloadReader interface {
	ReadPayload(ctx context.Context, photoUID string) (map[string]any, error)
}

// Request describes the row to reseed.
type Request struct {
	TableName string
	RecordId  string
	Action    string
	StoreId   string
	StoreType string
}

// Result carries the freshly allocated log entry's identity.
type Result struct {
	LogId    uuid.UUID
	SyncedAt time.Time
}

// Seeder builds and appends a fresh change-log entry for a row's current state.
type Seeder struct {
	Catalog     *catalog.Catalog
	PhotoReader PhotoPayloadReader
	ChangeLog   changelog.Repository
	Now         func() time.Time
}

// New builds a Seeder.
func New(cat *catalog.Catalog, photoReader PhotoPayloadReader, log changelog.Repository) *Seeder {
	return &Seeder{Catalog: cat, PhotoReader: photoReader, ChangeLog: log, Now: time.Now}
}

func (s *Seeder) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

// Seed rebuilds req's row state into a payload and appends a new log entry for it.
func (s *Seeder) Seed(ctx context.Context, req Request) (Result, error) {
	if req.TableName == "" || req.RecordId == "" {
		return Result{}, fmt.Errorf("seed: tableName and recordId are required")
	}

	action := strings.ToUpper(strings.TrimSpace(req.Action))
	if action == "" {
		action = string(changelog.ActionUpdate)
	}

	payload, err := s.currentPayload(ctx, req.TableName, req.RecordId)
	if err != nil {
		return Result{}, err
	}

	now := s.now()

	entry := &changelog.Entry{
		TableName:    req.TableName,
		RecordId:     req.RecordId,
		Action:       changelog.Action(action),
		UpdatedAt:    now,
		SyncedAt:     now,
		SourceServer: req.StoreId,
		StoreType:    req.StoreType,
		Synced:       true,
		Payload:      payload,
	}

	if err := s.ChangeLog.Append(ctx, entry); err != nil {
		return Result{}, err
	}

	return Result{LogId: entry.LogId, SyncedAt: entry.SyncedAt}, nil
}

func (s *Seeder) currentPayload(ctx context.Context, tableName, recordId string) (*string, error) {
	if strings.EqualFold(tableName, applier.PhotoTable) {
		if s.PhotoReader == nil {
			return nil, fmt.Errorf("seed: no photo reader configured")
		}

		row, err := s.PhotoReader.ReadPayload(ctx, recordId)
		if err != nil {
			return nil, err
		}

		payload, err := catalog.Serialize(row)
		if err != nil {
			return nil, err
		}

		return &payload, nil
	}

	schema, ok := s.Catalog.Resolve(tableName)
	if !ok {
		return nil, fmt.Errorf("seed: unknown table %q", tableName)
	}

	tuple, err := s.Catalog.ParseKey(schema, recordId)
	if err != nil {
		return nil, err
	}

	row, found, err := s.Catalog.FindByKey(ctx, schema, tuple)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("seed: no row found for %s/%s", tableName, recordId)
	}

	payload, err := catalog.Serialize(row)
	if err != nil {
		return nil, err
	}

	return &payload, nil
}
