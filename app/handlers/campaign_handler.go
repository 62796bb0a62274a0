package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/prbn021/seo-app/app/dto"
	businessflow "github.com/prbn021/seo-app/business_flow"
	"github.com/sirupsen/logrus"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	Save(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Activate(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	baseHandler
	flow businessflow.CampaignFlow
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(flow businessflow.CampaignFlow, logger logrus.FieldLogger) *CampaignHandler {
	return &CampaignHandler{
		baseHandler: newBaseHandler(logger),
		flow:        flow,
	}
}

// Save creates a campaign when no id is given, otherwise replaces the stored campaign
func (h *CampaignHandler) Save(c fiber.Ctx) error {
	var req dto.SaveCampaignRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	campaign, err := h.flow.SaveCampaign(ctx, req.ToModel())
	if err != nil {
		return h.flowError(c, err, "Failed to save campaign")
	}

	status := fiber.StatusOK
	if req.ID == "" {
		status = fiber.StatusCreated
	}
	return h.SuccessResponse(c, status, "Campaign saved successfully", dto.NewCampaignResponse(campaign))
}

func (h *CampaignHandler) List(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	campaigns, err := h.flow.ListCampaigns(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to list campaigns")
	}

	items := make([]dto.CampaignResponse, 0, len(campaigns))
	for _, cp := range campaigns {
		items = append(items, dto.NewCampaignResponse(cp))
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", items)
}

func (h *CampaignHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	campaign, err := h.flow.GetCampaign(ctx, c.Params("id"))
	if err != nil {
		return h.flowError(c, err, "Failed to get campaign")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", dto.NewCampaignResponse(campaign))
}

// Delete removes a campaign and un-enrolls its leads. Deleting an unknown id succeeds.
func (h *CampaignHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	if err := h.flow.DeleteCampaign(ctx, c.Params("id")); err != nil {
		return h.flowError(c, err, "Failed to delete campaign")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign deleted successfully", nil)
}

func (h *CampaignHandler) Activate(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	result, err := h.flow.ActivateCampaign(ctx, c.Params("id"))
	if err != nil {
		return h.flowError(c, err, "Failed to activate campaign")
	}

	message := "Campaign activated successfully"
	if !result.Activated {
		message = "Campaign was not activated"
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, dto.ActivateCampaignResponse{
		Activated: result.Activated,
		Enrolled:  result.Enrolled,
		Queued:    len(result.Queued),
	})
}
