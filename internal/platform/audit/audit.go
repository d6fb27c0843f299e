// Package audit implements the audit trail (A4): a write-behind Mongo record of every applier
// invocation for operational forensics. It is not part of the replication contract — a failure
// to write an audit entry never blocks or fails the replication apply it describes.
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/common/mmongo"
)

const collectionName = "sync_audit"

// Outcome mirrors applier.Outcome's two terminal states for the audit record.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
)

// Entry is one audit document: one per applier invocation, not per change-log row — a row
// materialization failure still gets an entry with Outcome=ignored.
type Entry struct {
	TableName    string    `bson:"tableName"`
	RecordId     string    `bson:"recordId"`
	Action       string    `bson:"action"`
	SourceServer string    `bson:"sourceServer"`
	AppliedAt    time.Time `bson:"appliedAt"`
	Outcome      Outcome   `bson:"outcome"`
	Reason       string    `bson:"reason,omitempty"`
}

// Trail records audit entries. Best-effort by design: Record logs and swallows failures rather
// than propagating them, since the audit trail is a supplementary observability feature, not
// part of the replication contract.
type Trail struct {
	connection *mmongo.MongoConnection
}

// New builds a Trail bound to connection.
func New(connection *mmongo.MongoConnection) *Trail {
	return &Trail{connection: connection}
}

// Record inserts entry into the sync_audit collection. Failures are logged and swallowed.
func (t *Trail) Record(ctx context.Context, entry Entry) {
	logger := common.NewLoggerFromContext(ctx)

	client, err := t.connection.GetDB(ctx)
	if err != nil {
		logger.Warnf("audit: failed to reach mongo: %v", err)
		return
	}

	collection := client.Database(t.connection.Database).Collection(collectionName)

	if _, err := collection.InsertOne(ctx, entry); err != nil {
		logger.Warnf("audit: failed to record entry for %s/%s: %v", entry.TableName, entry.RecordId, err)
	}
}

// DocumentFilter is exposed for operational queries against the trail (e.g. an admin tool
// listing recent ignored applies for a given table).
func DocumentFilter(tableName string) bson.M {
	return bson.M{"tableName": tableName}
}
