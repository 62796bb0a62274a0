package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prbn021/seo-app/app/dto"
	"github.com/prbn021/seo-app/app/handlers"
	"github.com/prbn021/seo-app/app/services"
	businessflow "github.com/prbn021/seo-app/business_flow"
	"github.com/prbn021/seo-app/config"
	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/store"
	testingutil "github.com/prbn021/seo-app/testing"
	"github.com/prbn021/seo-app/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandlers(logger logrus.FieldLogger) Handlers {
	st := store.New(store.Options{})
	return Handlers{
		Project:  handlers.NewProjectHandler(businessflow.NewProjectFlow(st, services.NewMockLeadFinder(), logger), logger),
		Lead:     handlers.NewLeadHandler(businessflow.NewEngagementFlow(st, logger), logger),
		Delivery: handlers.NewDeliveryHandler(businessflow.NewDeliveryFlow(st, logger), logger),
		Campaign: handlers.NewCampaignHandler(businessflow.NewCampaignFlow(st, logger), logger),
		Audit:    handlers.NewAuditHandler(businessflow.NewAuditFlow(st, logger), logger),
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestRouter(t *testing.T, metrics config.MetricsConfig) *FiberRouter {
	t.Helper()

	logger := quietLogger()
	r := NewFiberRouter(config.ServerConfig{EnableCompression: true}, metrics, testHandlers(logger), logger)
	r.SetupRoutes()
	return r
}

func decode(t *testing.T, resp *http.Response) dto.APIResponse {
	t.Helper()
	var out dto.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t, config.MetricsConfig{})

	for _, path := range []string{"/health", "/api/v1/health"} {
		t.Run(path, func(t *testing.T) {
			resp, err := r.GetApp().Test(httptest.NewRequest(http.MethodGet, path, nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(utils.RequestIDHeader))

			body := decode(t, resp)
			assert.True(t, body.Success)
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newTestRouter(t, config.MetricsConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(utils.RequestIDHeader, "req-123")
	resp, err := r.GetApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(utils.RequestIDHeader))
}

func TestNotFound(t *testing.T) {
	r := newTestRouter(t, config.MetricsConfig{})

	resp, err := r.GetApp().Test(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	body := decode(t, resp)
	assert.False(t, body.Success)
	detail, ok := body.Error.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", detail["code"])
}

func TestSecurityHeaders(t *testing.T) {
	r := newTestRouter(t, config.MetricsConfig{})

	resp, err := r.GetApp().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestAPIRoutesAreMounted(t *testing.T) {
	r := newTestRouter(t, config.MetricsConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"keyword":"plumbers","leads":[{"company_name":"Acme"}]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.GetApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = r.GetApp().Test(httptest.NewRequest(http.MethodGet, "/api/v1/audit-log", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, config.MetricsConfig{Enabled: true, Path: "/metrics"})

	_, err := r.GetApp().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	resp, err := r.GetApp().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "http_requests_total")
}

func TestMetricsDisabled(t *testing.T) {
	r := newTestRouter(t, config.MetricsConfig{})

	resp, err := r.GetApp().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestArchiveRoutesFollowArchiveHandler(t *testing.T) {
	r := newTestRouter(t, config.MetricsConfig{})
	resp, err := r.GetApp().Test(httptest.NewRequest(http.MethodGet, "/api/v1/archive/deliveries", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	logger := quietLogger()
	h := testHandlers(logger)
	entry := &models.DeliveryLogEntry{ID: "d1", ProjectID: "p1", Status: models.DeliveryStatusSent}
	h.Archive = handlers.NewArchiveHandler(businessflow.NewArchiveFlow(
		testingutil.NewMemoryAppLogArchive(),
		testingutil.NewMemoryDeliveryLogArchive(entry),
		logger,
	), logger)
	r = NewFiberRouter(config.ServerConfig{}, config.MetricsConfig{}, h, logger)
	r.SetupRoutes()

	for _, path := range []string{
		"/api/v1/archive/deliveries?project_id=p1",
		"/api/v1/archive/deliveries/d1",
		"/api/v1/archive/audit-log?failures=true",
	} {
		resp, err := r.GetApp().Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}
}

func TestProxyHeaderTrust(t *testing.T) {
	tests := []struct {
		name    string
		proxies []string
		trusted bool
	}{
		{"trusted proxy", []string{"0.0.0.0/0", "::/0"}, true},
		{"untrusted proxy", []string{"10.1.2.3"}, false},
		{"no proxies configured", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := quietLogger()
			r := NewFiberRouter(config.ServerConfig{TrustedProxies: tt.proxies, ProxyHeader: "X-Real-IP"}, config.MetricsConfig{}, testHandlers(logger), logger)
			r.GetApp().Get("/ip", func(c fiber.Ctx) error { return c.SendString(c.IP()) })
			r.SetupRoutes()

			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			req.Header.Set("X-Real-IP", "203.0.113.7")
			resp, err := r.GetApp().Test(req)
			require.NoError(t, err)

			data, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			if tt.trusted {
				assert.Equal(t, "203.0.113.7", string(data))
			} else {
				assert.NotEqual(t, "203.0.113.7", string(data))
			}
		})
	}
}
