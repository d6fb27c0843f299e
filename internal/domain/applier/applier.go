// Package applier implements the replication applier (C6): applying a received change (table,
// key, action, payload) to the local entity catalog, with photo_data special-cased into the
// photo blob store. Every exported entry point assumes the caller has already suppressed the
// change-capture hook on ctx — the applier never re-enables or inspects suppression itself, it
// only trusts its contract.
package applier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cn "github.com/mywaytech/dentstage-sync/common/constant"
	"github.com/mywaytech/dentstage-sync/internal/domain/catalog"
	"github.com/mywaytech/dentstage-sync/internal/domain/changelog"
)

// PhotoTable is the one table the applier special-cases instead of routing through the generic
// entity catalog.
const PhotoTable = "photo_data"

// Outcome is a result variant avoiding exceptions for control flow: every row-level failure is
// modeled as Ignored with a Reason, and only envelope-level failures are allowed to escalate to
// the transport layer.
type Outcome struct {
	Processed bool
	Ignored   bool
	Reason    string
}

func processed() Outcome { return Outcome{Processed: true} }

func ignored(reason string) Outcome { return Outcome{Ignored: true, Reason: reason} }

// Change is the applier's input: a single change-log entry's replicated fields.
type Change struct {
	TableName string
	RecordId  string
	Action    changelog.Action
	Payload   *string
}

// PhotoApplier is the photo_data special case's contract (C2 integrated into the applier).
type PhotoApplier interface {
	Upsert(ctx context.Context, payload map[string]any) error
	Delete(ctx context.Context, photoUID string) error
}

// Applier applies received changes to the local entity catalog.
type Applier struct {
	Catalog *catalog.Catalog
	Photo   PhotoApplier
}

// New builds an Applier bound to cat and photo.
func New(cat *catalog.Catalog, photo PhotoApplier) *Applier {
	return &Applier{Catalog: cat, Photo: photo}
}

// Apply normalizes the action, rejects a missing TableName/RecordId, dispatches photo_data
// specially, otherwise resolves the schema, parses the key, and performs field-wise
// INSERT/UPDATE/UPSERT replacement or idempotent DELETE.
func (a *Applier) Apply(ctx context.Context, change Change) (Outcome, error) {
	change.Action = changelog.Action(strings.ToUpper(strings.TrimSpace(string(change.Action))))

	if change.TableName == "" || change.RecordId == "" {
		return ignored("missing table name or record id"), nil
	}

	if strings.EqualFold(change.TableName, PhotoTable) {
		return a.applyPhoto(ctx, change)
	}

	schema, ok := a.Catalog.Resolve(change.TableName)
	if !ok {
		return ignored(fmt.Sprintf("unknown table %q", change.TableName)), nil
	}

	tuple, err := a.Catalog.ParseKey(schema, change.RecordId)
	if err != nil {
		var parseErr *catalog.ParseError
		if errors.As(err, &parseErr) {
			return ignored(parseErr.Error()), nil
		}

		return Outcome{}, err
	}

	switch change.Action {
	case changelog.ActionInsert, changelog.ActionUpdate, changelog.ActionUpsert:
		return a.applyUpsert(ctx, schema, tuple, change)
	case changelog.ActionDelete:
		return a.applyDelete(ctx, schema, tuple)
	default:
		return ignored(fmt.Sprintf("unsupported action %q", change.Action)), nil
	}
}

func (a *Applier) applyUpsert(ctx context.Context, schema catalog.Schema, tuple catalog.KeyTuple, change Change) (Outcome, error) {
	if change.Payload == nil {
		return ignored("payload required for non-delete action"), nil
	}

	row, err := catalog.Deserialize(schema, *change.Payload)
	if err != nil {
		return ignored(fmt.Sprintf("payload does not deserialize against table %q: %v", schema.TableName, err)), nil
	}

	exists, err := a.Catalog.Exists(ctx, schema, tuple)
	if err != nil {
		return Outcome{}, err
	}

	if exists {
		if err := a.Catalog.Replace(ctx, schema, tuple, row); err != nil {
			return Outcome{}, err
		}
	} else if err := a.Catalog.Insert(ctx, schema, row); err != nil {
		return Outcome{}, err
	}

	return processed(), nil
}

func (a *Applier) applyDelete(ctx context.Context, schema catalog.Schema, tuple catalog.KeyTuple) (Outcome, error) {
	// Deleting a row that does not exist is idempotent success, not an error.
	if err := a.Catalog.Delete(ctx, schema, tuple); err != nil {
		return Outcome{}, err
	}

	return processed(), nil
}

func (a *Applier) applyPhoto(ctx context.Context, change Change) (Outcome, error) {
	if change.Action == changelog.ActionDelete {
		if err := a.Photo.Delete(ctx, change.RecordId); err != nil {
			return Outcome{}, err
		}

		return processed(), nil
	}

	if change.Payload == nil {
		return ignored("photo payload required for non-delete action"), nil
	}

	row, err := decodePhotoPayload(*change.Payload)
	if err != nil {
		return ignored(err.Error()), nil
	}

	photoUID, _ := row["photoUid"].(string)
	if photoUID == "" {
		return ignored(cn.ErrInvalidPhotoUID.Error()), nil
	}

	if err := a.Photo.Upsert(ctx, row); err != nil {
		return Outcome{}, err
	}

	return processed(), nil
}

