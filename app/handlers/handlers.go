// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prbn021/seo-app/app/dto"
	businessflow "github.com/prbn021/seo-app/business_flow"
	"github.com/sirupsen/logrus"
)

const defaultRequestTimeout = 30 * time.Second

// baseHandler carries the response helpers shared by every handler
type baseHandler struct {
	validator *validator.Validate
	logger    logrus.FieldLogger
}

func newBaseHandler(logger logrus.FieldLogger) baseHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return baseHandler{
		validator: validator.New(),
		logger:    logger,
	}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// bindAndValidate decodes the JSON body into req and runs struct validation.
// It writes the error response itself and reports whether the handler may continue.
func (h *baseHandler) bindAndValidate(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		var validationErrors []string
		for _, fe := range fieldErrors {
			validationErrors = append(validationErrors, getValidationErrorMessage(fe))
		}
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	return true, nil
}

// flowError maps business flow errors to API responses
func (h *baseHandler) flowError(c fiber.Ctx, err error, fallbackMessage string) error {
	switch {
	case businessflow.IsNotFound(err):
		return h.notFoundError(c, err)
	case businessflow.IsCampaignHasNoProjects(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign has no associated projects", "CAMPAIGN_HAS_NO_PROJECTS", err.Error())
	case businessflow.IsLeadProviderFailed(err):
		return h.ErrorResponse(c, fiber.StatusBadGateway, "Lead generation failed", "LEAD_PROVIDER_FAILED", err.Error())
	case businessflow.IsValidationError(err):
		code := "INVALID_REQUEST"
		var be *businessflow.BusinessError
		if errors.As(err, &be) {
			code = be.Code
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), code, nil)
	}

	h.logger.WithError(err).WithField("path", c.Path()).Error(fallbackMessage)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, "INTERNAL_ERROR", nil)
}

// notFoundError names the missing entity in the 404 response
func (h *baseHandler) notFoundError(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsProjectNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Project not found", "PROJECT_NOT_FOUND", nil)
	case businessflow.IsLeadNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
	case businessflow.IsCampaignNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	default:
		return h.ErrorResponse(c, fiber.StatusNotFound, "Delivery log entry not found", "DELIVERY_NOT_FOUND", nil)
	}
}

// createRequestContext builds the flow context of a request: a timeout plus the caller metadata
func (h *baseHandler) createRequestContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestid.FromContext(c))
	return businessflow.WithClientMetadata(ctx, metadata), cancel
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "datetime":
		return err.Field() + " must match the format " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
