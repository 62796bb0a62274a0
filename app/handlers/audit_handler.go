package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/prbn021/seo-app/app/dto"
	businessflow "github.com/prbn021/seo-app/business_flow"
	"github.com/sirupsen/logrus"
)

// AuditHandlerInterface defines the contract for audit log handlers
type AuditHandlerInterface interface {
	List(c fiber.Ctx) error
	Clear(c fiber.Ctx) error
}

// AuditHandler exposes the in-memory audit log
type AuditHandler struct {
	baseHandler
	flow businessflow.AuditFlow
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(flow businessflow.AuditFlow, logger logrus.FieldLogger) *AuditHandler {
	return &AuditHandler{
		baseHandler: newBaseHandler(logger),
		flow:        flow,
	}
}

func (h *AuditHandler) List(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	entries, err := h.flow.GetAuditLog(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to get audit log")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Audit log retrieved successfully", dto.NewAuditLogResponse(entries))
}

func (h *AuditHandler) Clear(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	if err := h.flow.ClearAuditLog(ctx); err != nil {
		return h.flowError(c, err, "Failed to clear audit log")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Audit log cleared", nil)
}
