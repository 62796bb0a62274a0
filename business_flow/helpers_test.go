package businessflow

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prbn021/seo-app/app/services"
	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// testClock is a settable clock shared by the store under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store      *store.Store
	clock      *testClock
	finder     *services.MockLeadFinder
	projects   ProjectFlow
	deliveries DeliveryFlow
	engagement EngagementFlow
	campaigns  CampaignFlow
	audit      AuditFlow
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	var (
		mu sync.Mutex
		n  int
	)
	st := store.New(store.Options{
		Clock: clock.Now,
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})

	finder := services.NewMockLeadFinder()
	logger := quietLogger()
	return &testEnv{
		store:      st,
		clock:      clock,
		finder:     finder,
		projects:   NewProjectFlow(st, finder, logger),
		deliveries: NewDeliveryFlow(st, logger),
		engagement: NewEngagementFlow(st, logger),
		campaigns:  NewCampaignFlow(st, logger),
		audit:      NewAuditFlow(st, logger),
	}
}

// createProject stores a project with one lead per company name
func (e *testEnv) createProject(t *testing.T, keyword string, companies ...string) *models.Project {
	t.Helper()
	inputs := make([]models.LeadInput, 0, len(companies))
	for _, name := range companies {
		inputs = append(inputs, models.LeadInput{
			CompanyName: name,
			URL:         "https://" + name + ".test",
			Email:       "hello@" + name + ".test",
		})
	}
	project, err := e.projects.CreateProject(context.Background(), keyword, inputs)
	require.NoError(t, err)
	return project
}

func (e *testEnv) lead(t *testing.T, projectID, leadID string) *models.Lead {
	t.Helper()
	project, err := e.projects.GetProject(context.Background(), projectID)
	require.NoError(t, err)
	lead := project.FindLead(leadID)
	require.NotNil(t, lead)
	return lead
}

func (e *testEnv) auditLog(t *testing.T) []models.AppLogEntry {
	t.Helper()
	entries, err := e.audit.GetAuditLog(context.Background())
	require.NoError(t, err)
	return entries
}

// resolve marks a delivery the way the processor would, without side effects on the lead
func (e *testEnv) resolve(t *testing.T, id string, status models.DeliveryStatus, errMsg *string) {
	t.Helper()
	require.NoError(t, e.store.WithTx(context.Background(), func(tx *store.Tx) error {
		return tx.ResolveDelivery(id, status, errMsg)
	}))
}
