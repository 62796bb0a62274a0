package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/prbn021/seo-app/app/dto"
	businessflow "github.com/prbn021/seo-app/business_flow"
	"github.com/prbn021/seo-app/models"
	"github.com/sirupsen/logrus"
)

// DeliveryHandlerInterface defines the contract for delivery queue handlers
type DeliveryHandlerInterface interface {
	Enqueue(c fiber.Ctx) error
	EnqueueProject(c fiber.Ctx) error
	Resend(c fiber.Ctx) error
	List(c fiber.Ctx) error
}

// DeliveryHandler handles delivery queue HTTP requests
type DeliveryHandler struct {
	baseHandler
	flow businessflow.DeliveryFlow
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(flow businessflow.DeliveryFlow, logger logrus.FieldLogger) *DeliveryHandler {
	return &DeliveryHandler{
		baseHandler: newBaseHandler(logger),
		flow:        flow,
	}
}

func (h *DeliveryHandler) Enqueue(c fiber.Ctx) error {
	var req dto.EnqueueDeliveryRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	entry, err := h.flow.Enqueue(ctx, businessflow.EnqueueRequest{
		ProjectID: req.ProjectID,
		LeadID:    req.LeadID,
		Subject:   req.Subject,
		Body:      req.Body,
	})
	if err != nil {
		return h.flowError(c, err, "Failed to queue email")
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Email queued for sending", dto.NewDeliveryResponse(entry))
}

// EnqueueProject queues the same subject for every lead of the project in the path
func (h *DeliveryHandler) EnqueueProject(c fiber.Ctx) error {
	var req dto.EnqueueProjectRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	entries, err := h.flow.EnqueueProject(ctx, c.Params("id"), req.Subject)
	if err != nil {
		return h.flowError(c, err, "Failed to queue emails")
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Emails queued for sending", dto.NewListDeliveriesResponse(entries))
}

func (h *DeliveryHandler) Resend(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	entry, err := h.flow.Resend(ctx, c.Params("id"))
	if err != nil {
		return h.flowError(c, err, "Failed to resend email")
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Email re-queued for sending", dto.NewDeliveryResponse(entry))
}

// List returns the delivery log newest first, optionally narrowed by project_id, lead_id and status
func (h *DeliveryHandler) List(c fiber.Ctx) error {
	var filter models.DeliveryLogFilter
	if v := c.Query("project_id"); v != "" {
		filter.ProjectID = &v
	}
	if v := c.Query("lead_id"); v != "" {
		filter.LeadID = &v
	}
	if v := c.Query("status"); v != "" {
		status := models.DeliveryStatus(v)
		if !status.Valid() {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid delivery status", "INVALID_STATUS", v)
		}
		filter.Status = &status
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	entries, err := h.flow.List(ctx, filter)
	if err != nil {
		return h.flowError(c, err, "Failed to list deliveries")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deliveries retrieved successfully", dto.NewListDeliveriesResponse(entries))
}
