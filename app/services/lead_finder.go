// Package services provides external service integrations and technical concerns like lead sourcing and logging
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prbn021/seo-app/config"
	"github.com/prbn021/seo-app/models"
	"github.com/sirupsen/logrus"
)

const defaultLeadsPerSearch = 10

// LeadFinder sources prospective leads for a keyword from an external provider.
// It never retries; callers re-invoke on error.
type LeadFinder interface {
	FindLeads(ctx context.Context, keyword string) ([]models.LeadInput, error)
}

// NewLeadFinder builds the finder selected by configuration
func NewLeadFinder(cfg config.LeadProviderConfig, logger logrus.FieldLogger) LeadFinder {
	if cfg.Provider == "http" {
		return NewHTTPLeadFinder(cfg, logger)
	}
	return NewMockLeadFinder()
}

type findLeadsRequest struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

type findLeadsResponse struct {
	Leads []models.LeadInput `json:"leads"`
}

// HTTPLeadFinder calls a prospecting provider over HTTP
type HTTPLeadFinder struct {
	cfg    config.LeadProviderConfig
	client *http.Client
	logger logrus.FieldLogger
}

// NewHTTPLeadFinder creates a new HTTP lead finder
func NewHTTPLeadFinder(cfg config.LeadProviderConfig, logger logrus.FieldLogger) *HTTPLeadFinder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.LeadsPerSearch <= 0 {
		cfg.LeadsPerSearch = defaultLeadsPerSearch
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HTTPLeadFinder{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.WithField("service", "lead_finder"),
	}
}

// FindLeads asks the provider for leads matching the keyword
func (f *HTTPLeadFinder) FindLeads(ctx context.Context, keyword string) ([]models.LeadInput, error) {
	payload, err := json.Marshal(findLeadsRequest{Keyword: keyword, Count: f.cfg.LeadsPerSearch})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lead request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.cfg.APIKey)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lead provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lead provider http status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed struct {
		Leads *[]models.LeadInput `json:"leads"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode lead provider response: %w", err)
	}
	if parsed.Leads == nil {
		return nil, fmt.Errorf("provider response did not contain a valid 'leads' array")
	}

	f.logger.WithFields(logrus.Fields{
		"keyword":  keyword,
		"count":    len(*parsed.Leads),
		"duration": time.Since(start).String(),
	}).Debug("leads received from provider")

	return *parsed.Leads, nil
}

// MockLeadFinder implements LeadFinder for development and testing
type MockLeadFinder struct {
	mu       sync.Mutex
	leads    []models.LeadInput
	err      error
	keywords []string
}

// NewMockLeadFinder creates a mock finder that fabricates leads from the keyword
func NewMockLeadFinder() *MockLeadFinder {
	return &MockLeadFinder{}
}

// FindLeads returns the configured leads or error, or fabricated leads when none are configured
func (m *MockLeadFinder) FindLeads(ctx context.Context, keyword string) ([]models.LeadInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.keywords = append(m.keywords, keyword)
	if m.err != nil {
		return nil, m.err
	}
	if m.leads != nil {
		return append([]models.LeadInput(nil), m.leads...), nil
	}
	return fabricateLeads(keyword, defaultLeadsPerSearch), nil
}

// SetLeads fixes the leads returned by subsequent calls
func (m *MockLeadFinder) SetLeads(leads []models.LeadInput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads = leads
}

// SetError makes subsequent calls fail with err
func (m *MockLeadFinder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetKeywords returns the keywords searched so far
func (m *MockLeadFinder) GetKeywords() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keywords...)
}

func fabricateLeads(keyword string, n int) []models.LeadInput {
	slug := strings.Join(strings.Fields(strings.ToLower(keyword)), "-")
	if slug == "" {
		slug = "prospect"
	}

	leads := make([]models.LeadInput, 0, n)
	for i := 1; i <= n; i++ {
		domain := fmt.Sprintf("%s-%02d.example.com", slug, i)
		leads = append(leads, models.LeadInput{
			CompanyName: fmt.Sprintf("%s Prospect %02d", strings.TrimSpace(keyword), i),
			URL:         "https://" + domain,
			Email:       "contact@" + domain,
			Phone:       fmt.Sprintf("+1-555-01%02d", i),
		})
	}
	return leads
}
