package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/prbn021/seo-app/app/dto"
	businessflow "github.com/prbn021/seo-app/business_flow"
	"github.com/prbn021/seo-app/models"
	"github.com/sirupsen/logrus"
)

// ArchiveHandlerInterface defines the contract for the archived history handlers
type ArchiveHandlerInterface interface {
	ListDeliveries(c fiber.Ctx) error
	GetDelivery(c fiber.Ctx) error
	ListAuditLog(c fiber.Ctx) error
}

// ArchiveHandler serves the Postgres archive. It is only mounted when archiving is enabled.
type ArchiveHandler struct {
	baseHandler
	flow businessflow.ArchiveFlow
}

// NewArchiveHandler creates a new archive handler
func NewArchiveHandler(flow businessflow.ArchiveFlow, logger logrus.FieldLogger) *ArchiveHandler {
	return &ArchiveHandler{
		baseHandler: newBaseHandler(logger),
		flow:        flow,
	}
}

// parsePage reads limit and offset. It writes the error response itself and reports whether the handler may continue.
func (h *ArchiveHandler) parsePage(c fiber.Ctx) (businessflow.ArchivePage, bool, error) {
	var page businessflow.ArchivePage
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &page.Limit}, {"offset", &page.Offset}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, false, h.ErrorResponse(c, fiber.StatusBadRequest, p.name+" must be a non-negative integer", "INVALID_PAGINATION", raw)
		}
		*p.dst = n
	}
	return page, true, nil
}

// ListDeliveries returns archived deliveries newest first, optionally narrowed by project_id, lead_id and status
func (h *ArchiveHandler) ListDeliveries(c fiber.Ctx) error {
	page, ok, err := h.parsePage(c)
	if !ok {
		return err
	}

	q := businessflow.ArchivedDeliveryQuery{
		ProjectID: c.Query("project_id"),
		LeadID:    c.Query("lead_id"),
		Page:      page,
	}
	if v := c.Query("status"); v != "" {
		status := models.DeliveryStatus(v)
		if !status.Valid() {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid delivery status", "INVALID_STATUS", v)
		}
		q.Status = &status
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	res, err := h.flow.ListDeliveries(ctx, q)
	if err != nil {
		return h.flowError(c, err, "Failed to list archived deliveries")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Archived deliveries retrieved successfully",
		dto.NewArchivedDeliveriesResponse(res.Items, res.Total, res.Page.Limit, res.Page.Offset))
}

func (h *ArchiveHandler) GetDelivery(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	entry, err := h.flow.GetDelivery(ctx, c.Params("id"))
	if err != nil {
		return h.flowError(c, err, "Failed to get archived delivery")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Archived delivery retrieved successfully", dto.NewDeliveryResponse(entry))
}

// ListAuditLog returns archived audit entries newest first, optionally narrowed by action or failures=true
func (h *ArchiveHandler) ListAuditLog(c fiber.Ctx) error {
	page, ok, err := h.parsePage(c)
	if !ok {
		return err
	}

	q := businessflow.ArchivedAuditQuery{Action: c.Query("action"), Page: page}
	if v := c.Query("failures"); v != "" {
		failures, err := strconv.ParseBool(v)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "failures must be a boolean", "INVALID_REQUEST", v)
		}
		q.FailuresOnly = failures
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	res, err := h.flow.ListAuditEntries(ctx, q)
	if err != nil {
		return h.flowError(c, err, "Failed to list archived audit log")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Archived audit log retrieved successfully",
		dto.NewArchivedAuditLogResponse(res.Items, res.Total, res.Page.Limit, res.Page.Offset))
}
