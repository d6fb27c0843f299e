package syncapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mywaytech/dentstage-sync/common"
	sthttp "github.com/mywaytech/dentstage-sync/common/net/http"
	"github.com/mywaytech/dentstage-sync/internal/domain/seed"
)

// Handler wires the upload/download/seed endpoints onto Fiber.
type Handler struct {
	Service *Service
	Seeder  *seed.Seeder
}

// NewHandler builds a Handler.
func NewHandler(service *Service, seeder *seed.Seeder) *Handler {
	return &Handler{Service: service, Seeder: seeder}
}

// Upload handles POST /api/sync/upload.
//
//	@Summary		Upload a store's local change
//	@Description	Applies a single change from a store and records it in the change log.
//	@Tags			Sync
//	@Accept			json
//	@Produce		json
//	@Param			request	body		UploadRequest	true	"Upload envelope"
//	@Success		200		{object}	UploadResponse
//	@Failure		400		{object}	sthttp.ResponseError
//	@Router			/api/sync/upload [post]
func (h *Handler) Upload(p any, c *fiber.Ctx) error {
	req := p.(*UploadRequest)

	resp, err := h.Service.Upload(c.UserContext(), *req)
	if err != nil {
		return sthttp.WithError(c, err)
	}

	return sthttp.OK(c, resp)
}

// Changes handles GET /api/sync/changes.
//
//	@Summary		Download the next un-seen change for a store
//	@Description	Selects and returns at most one change-log entry the requesting store has not already applied.
//	@Tags			Sync
//	@Produce		json
//	@Param			storeId			query		string	true	"Requesting store id"
//	@Param			storeType		query		string	true	"Requesting store type"
//	@Param			serverRole		query		string	false	"Reported server role"
//	@Param			pageSize		query		int		false	"Candidate window size"
//	@Param			lastSyncTime	query		string	false	"RFC3339 override for the store's download cursor"
//	@Success		200				{object}	DownloadResponse
//	@Failure		400				{object}	sthttp.ResponseError
//	@Router			/api/sync/changes [get]
func (h *Handler) Changes(c *fiber.Ctx) error {
	ctx := c.UserContext()

	req := DownloadRequest{
		StoreId:    c.Query("storeId"),
		StoreType:  c.Query("storeType"),
		ServerRole: c.Query("serverRole"),
		PageSize:   c.QueryInt("pageSize", 0),
	}

	if raw := c.Query("lastSyncTime"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return sthttp.BadRequest(c, sthttp.ResponseError{Code: fiber.StatusBadRequest, Title: "invalid lastSyncTime", Message: err.Error()})
		}

		req.LastSyncTime = &t
	}

	resp, err := h.Service.Download(ctx, req)
	if err != nil {
		return sthttp.WithError(c, err)
	}

	return sthttp.OK(c, resp)
}

// Seed handles POST /api/sync/seed, an administrative endpoint (not store-facing) that forces
// redistribution of a row's current state under a fresh LogId.
//
//	@Summary		Force redistribution of a row
//	@Description	Rebuilds a change-log entry from a row's current state with a fresh LogId.
//	@Tags			Sync
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SeedRequest	true	"Seed request"
//	@Success		200		{object}	SeedResponse
//	@Failure		400		{object}	sthttp.ResponseError
//	@Router			/api/sync/seed [post]
func (h *Handler) Seed(p any, c *fiber.Ctx) error {
	req := p.(*SeedRequest)

	result, err := h.Seeder.Seed(c.UserContext(), seed.Request{
		TableName: req.TableName,
		RecordId:  req.RecordId,
		Action:    req.Action,
		StoreId:   req.StoreId,
		StoreType: req.StoreType,
	})
	if err != nil {
		logger := common.NewLoggerFromContext(c.UserContext())
		logger.Warnf("seed: %v", err)

		return sthttp.BadRequest(c, sthttp.ResponseError{Code: fiber.StatusBadRequest, Title: "seed failed", Message: err.Error()})
	}

	return sthttp.OK(c, SeedResponse{LogId: result.LogId, SyncedAt: result.SyncedAt})
}
