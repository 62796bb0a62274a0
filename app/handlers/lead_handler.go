package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/prbn021/seo-app/app/dto"
	businessflow "github.com/prbn021/seo-app/business_flow"
	"github.com/prbn021/seo-app/models"
	"github.com/sirupsen/logrus"
)

// LeadHandlerInterface defines the contract for lead handlers
type LeadHandlerInterface interface {
	UpdateDetails(c fiber.Ctx) error
	UpdateStatus(c fiber.Ctx) error
	Move(c fiber.Ctx) error
	AdvanceEngagement(c fiber.Ctx) error
}

// LeadHandler handles direct edits of leads inside a project
type LeadHandler struct {
	baseHandler
	flow businessflow.EngagementFlow
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(flow businessflow.EngagementFlow, logger logrus.FieldLogger) *LeadHandler {
	return &LeadHandler{
		baseHandler: newBaseHandler(logger),
		flow:        flow,
	}
}

func (h *LeadHandler) UpdateDetails(c fiber.Ctx) error {
	var req dto.UpdateLeadDetailsRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	lead, err := h.flow.UpdateLeadDetails(ctx, c.Params("id"), c.Params("leadId"), req.ToPatch())
	if err != nil {
		return h.flowError(c, err, "Failed to update lead")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead updated successfully", dto.NewLeadResponse(lead))
}

func (h *LeadHandler) UpdateStatus(c fiber.Ctx) error {
	var req dto.UpdateLeadStatusRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	lead, err := h.flow.UpdateLeadStatus(ctx, c.Params("id"), c.Params("leadId"), models.CrmStatus(req.Status))
	if err != nil {
		return h.flowError(c, err, "Failed to update lead status")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead status updated successfully", dto.NewLeadResponse(lead))
}

// Move shifts a lead one step along the CRM pipeline. At either end of the pipeline the lead
// stays put and the response reports moved=false.
func (h *LeadHandler) Move(c fiber.Ctx) error {
	var req dto.MoveLeadRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	lead, moved, err := h.flow.MoveLead(ctx, c.Params("id"), c.Params("leadId"), businessflow.MoveDirection(req.Direction))
	if err != nil {
		return h.flowError(c, err, "Failed to move lead")
	}

	message := "Lead moved successfully"
	if !moved {
		message = "Lead is already at the end of the pipeline"
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, dto.MoveLeadResponse{
		Moved: moved,
		Lead:  dto.NewLeadResponse(lead),
	})
}

// AdvanceEngagement changes a lead's engagement status. Marking email as Sent queues a delivery
// instead and answers 202.
func (h *LeadHandler) AdvanceEngagement(c fiber.Ctx) error {
	var req dto.AdvanceEngagementRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	result, err := h.flow.AdvanceEngagement(ctx, businessflow.EngagementRequest{
		ProjectID: c.Params("id"),
		LeadID:    c.Params("leadId"),
		Channel:   models.Channel(req.Channel),
		Status:    req.Status,
		Subject:   req.Subject,
	})
	if err != nil {
		return h.flowError(c, err, "Failed to update engagement")
	}

	resp := dto.AdvanceEngagementResponse{Lead: dto.NewLeadResponse(result.Lead)}
	if result.Delivery != nil {
		d := dto.NewDeliveryResponse(result.Delivery)
		resp.Delivery = &d
		return h.SuccessResponse(c, fiber.StatusAccepted, "Email queued for sending", resp)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Engagement updated successfully", resp)
}
