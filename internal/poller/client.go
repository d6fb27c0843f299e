// Package poller implements the central-dispatch poller (C9): a background task, owned by
// branch sites, that pulls from the central download endpoint and applies changes locally.
// Grounded on the reference CLI's plain net/http.Client REST style rather than a generated SDK
// client, since the poller only ever needs one verb (GET) against one endpoint.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DownloadRequest mirrors syncapi.DownloadRequest's wire shape without importing the syncapi
// package, so the poller depends only on the protocol, not the HTTP handler layer.
type DownloadRequest struct {
	StoreId      string
	StoreType    string
	ServerRole   string
	PageSize     int
	LastSyncTime *time.Time
}

// ChangeDTO mirrors syncapi.ChangeDTO's wire shape.
type ChangeDTO struct {
	LogId     *string         `json:"logId,omitempty"`
	TableName string          `json:"tableName"`
	RecordId  string          `json:"recordId"`
	Action    string          `json:"action"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
	SyncedAt  *time.Time      `json:"syncedAt,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// DownloadResponse mirrors syncapi.DownloadResponse's wire shape.
type DownloadResponse struct {
	StoreId    string            `json:"storeId"`
	StoreType  string            `json:"storeType"`
	ServerTime time.Time         `json:"serverTime"`
	Change     *ChangeDTO        `json:"change,omitempty"`
	Orders     []map[string]any `json:"orders"`
}

// CentralClient is the poller's contract against central's download endpoint.
type CentralClient interface {
	Download(ctx context.Context, req DownloadRequest) (DownloadResponse, error)
}

// HTTPClient is the plain net/http.Client-backed CentralClient implementation.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPClient builds an HTTPClient bound to baseURL (central's API root, no trailing slash).
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, Client: &http.Client{Timeout: 30 * time.Second}}
}

// Download calls GET {BaseURL}/api/sync/changes with req's fields as query parameters.
func (c *HTTPClient) Download(ctx context.Context, req DownloadRequest) (DownloadResponse, error) {
	query := url.Values{}
	query.Set("storeId", req.StoreId)
	query.Set("storeType", req.StoreType)

	if req.ServerRole != "" {
		query.Set("serverRole", req.ServerRole)
	}

	if req.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(req.PageSize))
	}

	if req.LastSyncTime != nil {
		query.Set("lastSyncTime", req.LastSyncTime.Format(time.RFC3339))
	}

	uri := c.BaseURL + "/api/sync/changes?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return DownloadResponse{}, fmt.Errorf("poller: building download request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return DownloadResponse{}, fmt.Errorf("poller: calling central download endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DownloadResponse{}, fmt.Errorf("poller: central download endpoint returned status %d", resp.StatusCode)
	}

	var out DownloadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return DownloadResponse{}, fmt.Errorf("poller: decoding download response: %w", err)
	}

	return out, nil
}
