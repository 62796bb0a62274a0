package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prbn021/seo-app/app/dto"
	"github.com/prbn021/seo-app/app/services"
	businessflow "github.com/prbn021/seo-app/business_flow"
	"github.com/prbn021/seo-app/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	app    *fiber.App
	finder *services.MockLeadFinder
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   dto.ErrorDetail `json:"error"`
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	var (
		mu sync.Mutex
		n  int
	)
	st := store.New(store.Options{
		Clock: func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) },
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	finder := services.NewMockLeadFinder()

	projects := NewProjectHandler(businessflow.NewProjectFlow(st, finder, logger), logger)
	leads := NewLeadHandler(businessflow.NewEngagementFlow(st, logger), logger)
	deliveries := NewDeliveryHandler(businessflow.NewDeliveryFlow(st, logger), logger)
	campaigns := NewCampaignHandler(businessflow.NewCampaignFlow(st, logger), logger)
	audit := NewAuditHandler(businessflow.NewAuditFlow(st, logger), logger)

	app := fiber.New()
	app.Use(requestid.New())
	api := app.Group("/api/v1")
	api.Post("/projects", projects.Create)
	api.Post("/projects/prospect", projects.Prospect)
	api.Get("/projects", projects.List)
	api.Get("/projects/:id", projects.Get)
	api.Get("/projects/:id/export", projects.Export)
	api.Post("/projects/:id/deliveries", deliveries.EnqueueProject)
	api.Patch("/projects/:id/leads/:leadId", leads.UpdateDetails)
	api.Put("/projects/:id/leads/:leadId/status", leads.UpdateStatus)
	api.Post("/projects/:id/leads/:leadId/move", leads.Move)
	api.Post("/projects/:id/leads/:leadId/engagement", leads.AdvanceEngagement)
	api.Post("/deliveries", deliveries.Enqueue)
	api.Get("/deliveries", deliveries.List)
	api.Post("/deliveries/:id/resend", deliveries.Resend)
	api.Get("/campaigns", campaigns.List)
	api.Post("/campaigns", campaigns.Save)
	api.Get("/campaigns/:id", campaigns.Get)
	api.Delete("/campaigns/:id", campaigns.Delete)
	api.Post("/campaigns/:id/activate", campaigns.Activate)
	api.Get("/audit-log", audit.List)
	api.Delete("/audit-log", audit.Clear)

	return &testAPI{app: app, finder: finder}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (*http.Response, apiResponse) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.app.Test(req)
	require.NoError(t, err)

	var out apiResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func decodeData[T any](t *testing.T, r apiResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Data, &v))
	return v
}

func (a *testAPI) createProject(t *testing.T, companies ...string) dto.ProjectResponse {
	t.Helper()
	leads := make([]map[string]string, 0, len(companies))
	for _, name := range companies {
		leads = append(leads, map[string]string{"company_name": name, "email": "hello@" + name + ".test"})
	}
	resp, body := a.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"keyword": "plumbers", "leads": leads})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return decodeData[dto.ProjectResponse](t, body)
}

func TestCreateProjectEndpoint(t *testing.T) {
	api := newTestAPI(t)

	project := api.createProject(t, "acme", "globex")
	assert.Equal(t, "plumbers", project.Name)
	assert.Equal(t, 2, project.LeadCount)
	require.Len(t, project.Leads, 2)
	assert.Equal(t, "New Lead", project.Leads[0].Status)
	assert.Equal(t, "Not Sent", project.Leads[0].Engagement.Email)

	resp, body := api.do(t, http.MethodGet, "/api/v1/projects", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decodeData[[]dto.ProjectResponse](t, body)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Leads)
	assert.Equal(t, 2, list[0].LeadCount)
}

func TestCreateProjectValidation(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"leads": []any{}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, body.Success)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)

	resp, body = api.do(t, http.MethodPost, "/api/v1/projects", `{"keyword":`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", body.Error.Code)

	resp, body = api.do(t, http.MethodPost, "/api/v1/projects", map[string]any{
		"keyword": "plumbers",
		"leads":   []map[string]string{{"company_name": "acme", "email": "not-an-email"}},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
}

func TestGetUnknownProject(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, http.MethodGet, "/api/v1/projects/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "PROJECT_NOT_FOUND", body.Error.Code)
}

func TestProspectEndpoint(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, http.MethodPost, "/api/v1/projects/prospect", map[string]string{"keyword": "dentists"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	project := decodeData[dto.ProjectResponse](t, body)
	assert.Equal(t, 10, project.LeadCount)

	api.finder.SetError(errors.New("provider timeout"))
	resp, body = api.do(t, http.MethodPost, "/api/v1/projects/prospect", map[string]string{"keyword": "dentists"})
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "LEAD_PROVIDER_FAILED", body.Error.Code)
}

func TestExportEndpoint(t *testing.T) {
	api := newTestAPI(t)
	project := api.createProject(t, "acme")

	resp, _ := api.do(t, http.MethodGet, "/api/v1/projects/"+project.ID+"/export", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="project_plumbers.xlsx"`, resp.Header.Get("Content-Disposition"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestAdvanceEngagementEndpoint(t *testing.T) {
	api := newTestAPI(t)
	project := api.createProject(t, "acme")
	path := "/api/v1/projects/" + project.ID + "/leads/" + project.Leads[0].ID + "/engagement"

	resp, body := api.do(t, http.MethodPost, path, map[string]string{"channel": "email", "status": "Sent"})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	queued := decodeData[dto.AdvanceEngagementResponse](t, body)
	require.NotNil(t, queued.Delivery)
	assert.Equal(t, "Queued", queued.Delivery.Status)
	assert.Equal(t, "Not Sent", queued.Lead.Engagement.Email)

	resp, body = api.do(t, http.MethodPost, path, map[string]string{"channel": "whatsapp", "status": "Sent"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	applied := decodeData[dto.AdvanceEngagementResponse](t, body)
	assert.Nil(t, applied.Delivery)
	assert.Equal(t, "Sent", applied.Lead.Engagement.WhatsApp)

	resp, body = api.do(t, http.MethodPost, path, map[string]string{"channel": "email", "status": "Bounced"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_ENGAGEMENT_STATUS", body.Error.Code)

	resp, body = api.do(t, http.MethodPost, path, map[string]string{"channel": "sms", "status": "Sent"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
}

func TestLeadPipelineEndpoints(t *testing.T) {
	api := newTestAPI(t)
	project := api.createProject(t, "acme")
	base := "/api/v1/projects/" + project.ID + "/leads/" + project.Leads[0].ID

	resp, body := api.do(t, http.MethodPost, base+"/move", map[string]string{"direction": "prev"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	move := decodeData[dto.MoveLeadResponse](t, body)
	assert.False(t, move.Moved)
	assert.Equal(t, "New Lead", move.Lead.Status)

	resp, body = api.do(t, http.MethodPost, base+"/move", map[string]string{"direction": "next"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	move = decodeData[dto.MoveLeadResponse](t, body)
	assert.True(t, move.Moved)
	assert.Equal(t, "Contacted", move.Lead.Status)

	resp, _ = api.do(t, http.MethodPost, base+"/move", map[string]string{"direction": "up"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = api.do(t, http.MethodPut, base+"/status", map[string]string{"status": "Closed/Won"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Closed/Won", decodeData[dto.LeadResponse](t, body).Status)

	resp, body = api.do(t, http.MethodPut, base+"/status", map[string]string{"status": "Lost"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_CRM_STATUS", body.Error.Code)

	resp, body = api.do(t, http.MethodPatch, base, map[string]string{"phone": "+1-555-0100"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	lead := decodeData[dto.LeadResponse](t, body)
	assert.Equal(t, "+1-555-0100", lead.Phone)
	assert.Equal(t, "Closed/Won", lead.Status)

	resp, _ = api.do(t, http.MethodPatch, base, map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = api.do(t, http.MethodPatch, "/api/v1/projects/"+project.ID+"/leads/missing", map[string]string{"phone": "1"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "LEAD_NOT_FOUND", body.Error.Code)
}

func TestDeliveryEndpoints(t *testing.T) {
	api := newTestAPI(t)
	project := api.createProject(t, "acme", "globex")

	resp, body := api.do(t, http.MethodPost, "/api/v1/deliveries", map[string]string{
		"project_id": project.ID,
		"lead_id":    project.Leads[0].ID,
		"subject":    "Hello",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	entry := decodeData[dto.DeliveryResponse](t, body)
	assert.Equal(t, "Queued", entry.Status)
	assert.Equal(t, "acme", entry.LeadName)

	resp, body = api.do(t, http.MethodPost, "/api/v1/projects/"+project.ID+"/deliveries", map[string]string{"subject": "Intro"})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 2, decodeData[dto.ListDeliveriesResponse](t, body).Total)

	resp, body = api.do(t, http.MethodPost, "/api/v1/deliveries/"+entry.ID+"/resend", nil)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.NotEqual(t, entry.ID, decodeData[dto.DeliveryResponse](t, body).ID)

	resp, body = api.do(t, http.MethodGet, "/api/v1/deliveries?lead_id="+project.Leads[0].ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, decodeData[dto.ListDeliveriesResponse](t, body).Total)

	resp, body = api.do(t, http.MethodGet, "/api/v1/deliveries?status=Bounced", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_STATUS", body.Error.Code)

	resp, body = api.do(t, http.MethodPost, "/api/v1/deliveries/missing/resend", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "DELIVERY_NOT_FOUND", body.Error.Code)

	resp, body = api.do(t, http.MethodPost, "/api/v1/deliveries", map[string]string{
		"project_id": project.ID,
		"lead_id":    "missing",
		"subject":    "Hello",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "LEAD_NOT_FOUND", body.Error.Code)
}

func TestCampaignEndpoints(t *testing.T) {
	api := newTestAPI(t)
	project := api.createProject(t, "acme", "globex")

	resp, body := api.do(t, http.MethodPost, "/api/v1/campaigns", map[string]any{
		"name": "Empty",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	empty := decodeData[dto.CampaignResponse](t, body)
	assert.Equal(t, "Draft", empty.Status)

	resp, body = api.do(t, http.MethodPost, "/api/v1/campaigns/"+empty.ID+"/activate", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CAMPAIGN_HAS_NO_PROJECTS", body.Error.Code)

	resp, body = api.do(t, http.MethodPost, "/api/v1/campaigns", map[string]any{
		"name":        "Spring outreach",
		"channel":     "email",
		"project_ids": []string{project.ID},
		"steps": []map[string]any{
			{"delay_days": 0, "send_time": "09:00", "subject": "Intro", "body": "Hi {companyName}"},
		},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	campaign := decodeData[dto.CampaignResponse](t, body)

	resp, body = api.do(t, http.MethodPost, "/api/v1/campaigns/"+campaign.ID+"/activate", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, dto.ActivateCampaignResponse{Activated: true, Enrolled: 2, Queued: 2}, decodeData[dto.ActivateCampaignResponse](t, body))

	resp, body = api.do(t, http.MethodPost, "/api/v1/campaigns/"+campaign.ID+"/activate", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, decodeData[dto.ActivateCampaignResponse](t, body).Activated)

	resp, body = api.do(t, http.MethodPost, "/api/v1/campaigns", map[string]any{
		"id":   campaign.ID,
		"name": "Spring outreach v2",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Spring outreach v2", decodeData[dto.CampaignResponse](t, body).Name)

	resp, body = api.do(t, http.MethodGet, "/api/v1/campaigns", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decodeData[[]dto.CampaignResponse](t, body), 2)

	resp, _ = api.do(t, http.MethodDelete, "/api/v1/campaigns/"+campaign.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = api.do(t, http.MethodGet, "/api/v1/campaigns/"+campaign.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "CAMPAIGN_NOT_FOUND", body.Error.Code)

	resp, body = api.do(t, http.MethodPost, "/api/v1/campaigns", map[string]any{"name": "Bad", "channel": "fax"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
}

func TestAuditLogEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.createProject(t, "acme")

	resp, body := api.do(t, http.MethodGet, "/api/v1/audit-log", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	log := decodeData[dto.AuditLogResponse](t, body)
	require.Equal(t, 1, log.Total)
	assert.Equal(t, "Success", log.Items[0].Severity)
	assert.Equal(t, "Project Created", log.Items[0].Action)

	resp, _ = api.do(t, http.MethodDelete, "/api/v1/audit-log", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, body = api.do(t, http.MethodGet, "/api/v1/audit-log", nil)
	assert.Zero(t, decodeData[dto.AuditLogResponse](t, body).Total)
}

func TestCampaignStepSendTimeValidation(t *testing.T) {
	api := newTestAPI(t)

	for _, sendTime := range []string{"99:99", "ab:cd", "9:5"} {
		t.Run(sendTime, func(t *testing.T) {
			resp, body := api.do(t, http.MethodPost, "/api/v1/campaigns", map[string]any{
				"name":  "Spring outreach",
				"steps": []map[string]any{{"send_time": sendTime, "subject": "Intro"}},
			})
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
			assert.Contains(t, fmt.Sprint(body.Error.Details), "must match the format 15:04")
		})
	}

	resp, body := api.do(t, http.MethodPost, "/api/v1/campaigns", map[string]any{
		"name":  "Spring outreach",
		"steps": []map[string]any{{"subject": "Intro"}},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	campaign := decodeData[dto.CampaignResponse](t, body)
	require.Len(t, campaign.Steps, 1)
	assert.Equal(t, "09:00", campaign.Steps[0].SendTime)
}
