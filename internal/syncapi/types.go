// Package syncapi implements the upload endpoint (C7) and download endpoint (C8), plus the
// HTTP surface (A6) that exposes them. The request/response DTOs here are the wire shapes of
// the endpoints; the Service in service.go implements the endpoint algorithms independent of
// any HTTP framework, so they can be unit-tested without a Fiber app or a live database.
package syncapi

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChangeDTO is the wire shape of a single change-log entry, used both as the upload request's
// optional Change field and as the download response's optional Change field.
type ChangeDTO struct {
	LogId     *uuid.UUID      `json:"logId,omitempty"`
	TableName string          `json:"tableName"`
	RecordId  string          `json:"recordId"`
	Action    string          `json:"action"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
	SyncedAt  *time.Time      `json:"syncedAt,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// payloadString returns Payload as the *string shape the change log / applier use internally,
// or nil when Payload is absent or a JSON null.
func (c ChangeDTO) payloadString() *string {
	if len(c.Payload) == 0 || string(c.Payload) == "null" {
		return nil
	}

	s := string(c.Payload)

	return &s
}

// UploadRequest is the upload endpoint's input envelope.
type UploadRequest struct {
	StoreId    string     `json:"storeId"`
	StoreType  string     `json:"storeType"`
	ServerRole string     `json:"serverRole,omitempty"`
	ServerIp   string     `json:"serverIp,omitempty"`
	Change     *ChangeDTO `json:"change,omitempty"`
}

// UploadResponse is the upload endpoint's response.
type UploadResponse struct {
	Processed int `json:"processed"`
	Ignored   int `json:"ignored"`
}

// DownloadRequest is the download endpoint's input, as parsed from the GET query string.
type DownloadRequest struct {
	StoreId      string     `json:"storeId"`
	StoreType    string     `json:"storeType"`
	ServerRole   string     `json:"serverRole,omitempty"`
	PageSize     int        `json:"pageSize,omitempty"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
}

// OrderProjection is a legacy compatibility shim: populated only when the selected change
// targets the orders table, never the primary contract. New code should consume Change.Payload
// directly.
type OrderProjection map[string]any

// DownloadResponse is the download endpoint's response.
type DownloadResponse struct {
	StoreId    string            `json:"storeId"`
	StoreType  string            `json:"storeType"`
	ServerTime time.Time         `json:"serverTime"`
	Change     *ChangeDTO        `json:"change,omitempty"`
	Orders     []OrderProjection `json:"orders"`
}

// SeedRequest is the manual-seed utility's (C10) administrative input.
type SeedRequest struct {
	TableName string `json:"tableName"`
	RecordId  string `json:"recordId"`
	Action    string `json:"action,omitempty"`
	StoreId   string `json:"storeId"`
	StoreType string `json:"storeType"`
}

// SeedResponse is the manual-seed utility's output.
type SeedResponse struct {
	LogId    uuid.UUID `json:"logId"`
	SyncedAt time.Time `json:"syncedAt"`
}
