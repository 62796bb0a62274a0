package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/prbn021/seo-app/app/dto"
	businessflow "github.com/prbn021/seo-app/business_flow"
	"github.com/sirupsen/logrus"
)

// ProjectHandlerInterface defines the contract for project handlers
type ProjectHandlerInterface interface {
	Create(c fiber.Ctx) error
	Prospect(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

// ProjectHandler handles project-related HTTP requests
type ProjectHandler struct {
	baseHandler
	flow businessflow.ProjectFlow
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(flow businessflow.ProjectFlow, logger logrus.FieldLogger) *ProjectHandler {
	return &ProjectHandler{
		baseHandler: newBaseHandler(logger),
		flow:        flow,
	}
}

// Create builds a project from the supplied leads
func (h *ProjectHandler) Create(c fiber.Ctx) error {
	var req dto.CreateProjectRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	project, err := h.flow.CreateProject(ctx, req.Keyword, req.ToLeadInputs())
	if err != nil {
		return h.flowError(c, err, "Failed to create project")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Project created successfully", dto.NewProjectResponse(project, true))
}

// Prospect asks the lead provider for leads matching a keyword and stores them as a new project
func (h *ProjectHandler) Prospect(c fiber.Ctx) error {
	var req dto.ProspectProjectRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	project, err := h.flow.ProspectProject(ctx, req.Keyword)
	if err != nil {
		return h.flowError(c, err, "Failed to prospect leads")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Project created successfully", dto.NewProjectResponse(project, true))
}

func (h *ProjectHandler) List(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	projects, err := h.flow.ListProjects(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to list projects")
	}

	items := make([]dto.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, dto.NewProjectResponse(p, false))
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Projects retrieved successfully", items)
}

func (h *ProjectHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	project, err := h.flow.GetProject(ctx, c.Params("id"))
	if err != nil {
		return h.flowError(c, err, "Failed to get project")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Project retrieved successfully", dto.NewProjectResponse(project, true))
}

// Export streams the project's leads and deliveries as an XLSX workbook
func (h *ProjectHandler) Export(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	filename, data, err := h.flow.ExportProject(ctx, c.Params("id"))
	if err != nil {
		return h.flowError(c, err, "Failed to export project")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(data)
}
