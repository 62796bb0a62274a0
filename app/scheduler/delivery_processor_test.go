package scheduler

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	businessflow "github.com/prbn021/seo-app/business_flow"
	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore() *store.Store {
	var (
		mu sync.Mutex
		n  int
	)
	return store.New(store.Options{
		Clock: func() time.Time { return testNow },
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
}

type fixture struct {
	store      *store.Store
	projects   businessflow.ProjectFlow
	deliveries businessflow.DeliveryFlow
	engagement businessflow.EngagementFlow
	campaigns  businessflow.CampaignFlow
	audit      businessflow.AuditFlow
	project    *models.Project
}

func newFixture(t *testing.T, companies ...string) *fixture {
	t.Helper()
	st := newTestStore()
	logger := quietLogger()
	f := &fixture{
		store:      st,
		projects:   businessflow.NewProjectFlow(st, nil, logger),
		deliveries: businessflow.NewDeliveryFlow(st, logger),
		engagement: businessflow.NewEngagementFlow(st, logger),
		campaigns:  businessflow.NewCampaignFlow(st, logger),
		audit:      businessflow.NewAuditFlow(st, logger),
	}

	inputs := make([]models.LeadInput, 0, len(companies))
	for _, name := range companies {
		inputs = append(inputs, models.LeadInput{CompanyName: name, Email: "hello@" + name + ".test"})
	}
	project, err := f.projects.CreateProject(context.Background(), "plumbers", inputs)
	require.NoError(t, err)
	f.project = project
	return f
}

func (f *fixture) enqueue(t *testing.T, leadIndex int, subject string) *models.DeliveryLogEntry {
	t.Helper()
	entry, err := f.deliveries.Enqueue(context.Background(), businessflow.EnqueueRequest{
		ProjectID: f.project.ID,
		LeadID:    f.project.Leads[leadIndex].ID,
		Subject:   subject,
	})
	require.NoError(t, err)
	return entry
}

func (f *fixture) delivery(t *testing.T, id string) *models.DeliveryLogEntry {
	t.Helper()
	entries, err := f.deliveries.List(context.Background(), models.DeliveryLogFilter{ID: &id})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0]
}

func (f *fixture) lead(t *testing.T, leadIndex int) *models.Lead {
	t.Helper()
	project, err := f.projects.GetProject(context.Background(), f.project.ID)
	require.NoError(t, err)
	return project.Leads[leadIndex]
}

func (f *fixture) latestAudit(t *testing.T) models.AppLogEntry {
	t.Helper()
	logs, err := f.audit.GetAuditLog(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	return logs[0]
}

func TestTickEmptyQueue(t *testing.T) {
	f := newFixture(t, "Acme")
	p := NewDeliveryProcessor(f.store, AlwaysSucceed, time.Second, quietLogger())

	result, err := p.Tick(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestTickSendsOldestFirst(t *testing.T) {
	f := newFixture(t, "Acme", "Globex")
	first := f.enqueue(t, 0, "first")
	second := f.enqueue(t, 1, "second")

	p := NewDeliveryProcessor(f.store, AlwaysSucceed, time.Second, quietLogger())
	result, err := p.Tick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, first.ID, result.Entry.ID)
	assert.Equal(t, models.DeliveryStatusSent, result.Entry.Status)
	assert.True(t, result.EngagementApplied)
	assert.Equal(t, models.DeliveryStatusSent, f.delivery(t, first.ID).Status)
	assert.Equal(t, models.DeliveryStatusQueued, f.delivery(t, second.ID).Status)

	lead := f.lead(t, 0)
	assert.Equal(t, models.EmailStatusSent, lead.Engagement.Email)
	require.NotNil(t, lead.Engagement.LastContacted)
	assert.Equal(t, testNow, *lead.Engagement.LastContacted)
	assert.Equal(t, models.EmailStatusNotSent, f.lead(t, 1).Engagement.Email)

	audit := f.latestAudit(t)
	assert.Equal(t, models.SeveritySuccess, audit.Severity)
	assert.Equal(t, models.AuditActionEmailSent, audit.Action)
	assert.Equal(t, `Successfully sent email "first" to Acme.`, audit.Details)
}

func TestTickFailure(t *testing.T) {
	f := newFixture(t, "Acme")
	entry := f.enqueue(t, 0, "hello")

	p := NewDeliveryProcessor(f.store, AlwaysFail(DefaultTransportError), time.Second, quietLogger())
	result, err := p.Tick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.EngagementApplied)

	stored := f.delivery(t, entry.ID)
	assert.Equal(t, models.DeliveryStatusError, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, DefaultTransportError, *stored.ErrorMessage)

	lead := f.lead(t, 0)
	assert.Equal(t, models.EmailStatusNotSent, lead.Engagement.Email)
	assert.Nil(t, lead.Engagement.LastContacted)

	audit := f.latestAudit(t)
	assert.Equal(t, models.SeverityError, audit.Severity)
	assert.Equal(t, models.AuditActionEmailSendFailed, audit.Action)
	assert.Equal(t, "Failed to send email to Acme. Reason: "+DefaultTransportError, audit.Details)

	// terminal entries are never picked again
	result, err = p.Tick(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestTickSkipsEngagementForMissingLead(t *testing.T) {
	f := newFixture(t, "Acme")
	require.NoError(t, f.store.WithTx(context.Background(), func(tx *store.Tx) error {
		tx.AppendDelivery(&models.DeliveryLogEntry{
			ID:          "orphan",
			LeadID:      "gone",
			LeadName:    "Gone Inc",
			ProjectID:   f.project.ID,
			ProjectName: f.project.Name,
			Subject:     "hello",
			Status:      models.DeliveryStatusQueued,
			CreatedAt:   testNow,
			UpdatedAt:   testNow,
		})
		return nil
	}))

	p := NewDeliveryProcessor(f.store, AlwaysSucceed, time.Second, quietLogger())
	result, err := p.Tick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.DeliveryStatusSent, result.Entry.Status)
	assert.False(t, result.EngagementApplied)
	assert.Equal(t, models.DeliveryStatusSent, f.delivery(t, "orphan").Status)
}

func TestTickPassesEntryToTransport(t *testing.T) {
	f := newFixture(t, "Acme")
	entry := f.enqueue(t, 0, "hello")

	var seen models.DeliveryLogEntry
	transport := TransportFunc(func(_ context.Context, e models.DeliveryLogEntry) Outcome {
		seen = e
		return Outcome{Success: true}
	})

	p := NewDeliveryProcessor(f.store, transport, time.Second, quietLogger())
	_, err := p.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entry.ID, seen.ID)
	assert.Equal(t, models.DeliveryStatusQueued, seen.Status)
}

func TestEngagementSentIsAppliedByProcessor(t *testing.T) {
	f := newFixture(t, "Acme")
	ctx := context.Background()

	result, err := f.engagement.AdvanceEngagement(ctx, businessflow.EngagementRequest{
		ProjectID: f.project.ID,
		LeadID:    f.project.Leads[0].ID,
		Channel:   models.ChannelEmail,
		Status:    string(models.EmailStatusSent),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Delivery)
	assert.Equal(t, models.EmailStatusNotSent, f.lead(t, 0).Engagement.Email)

	p := NewDeliveryProcessor(f.store, AlwaysSucceed, time.Second, quietLogger())
	_, err = p.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.EmailStatusSent, f.lead(t, 0).Engagement.Email)
}

func TestResendAfterFailure(t *testing.T) {
	f := newFixture(t, "Acme")
	ctx := context.Background()
	entry := f.enqueue(t, 0, "hello")

	failing := NewDeliveryProcessor(f.store, AlwaysFail("Mailbox unavailable"), time.Second, quietLogger())
	_, err := failing.Tick(ctx)
	require.NoError(t, err)

	resent, err := f.deliveries.Resend(ctx, entry.ID)
	require.NoError(t, err)

	succeeding := NewDeliveryProcessor(f.store, AlwaysSucceed, time.Second, quietLogger())
	result, err := succeeding.Tick(ctx)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, resent.ID, result.Entry.ID)

	assert.Equal(t, models.DeliveryStatusError, f.delivery(t, entry.ID).Status)
	assert.Equal(t, models.DeliveryStatusSent, f.delivery(t, resent.ID).Status)
	assert.Equal(t, models.EmailStatusSent, f.lead(t, 0).Engagement.Email)
}

func TestFIFOAcrossResend(t *testing.T) {
	f := newFixture(t, "Alpha", "Bravo", "Charlie")
	ctx := context.Background()

	a := f.enqueue(t, 0, "A")
	failing := NewDeliveryProcessor(f.store, AlwaysFail("Mailbox unavailable"), time.Second, quietLogger())
	_, err := failing.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DeliveryStatusError, f.delivery(t, a.ID).Status)

	b := f.enqueue(t, 1, "B")
	resentA, err := f.deliveries.Resend(ctx, a.ID)
	require.NoError(t, err)
	c := f.enqueue(t, 2, "C")

	var sent []string
	transport := TransportFunc(func(_ context.Context, e models.DeliveryLogEntry) Outcome {
		sent = append(sent, e.Subject)
		return Outcome{Success: true}
	})
	p := NewDeliveryProcessor(f.store, transport, time.Second, quietLogger())

	results, err := p.Drain(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{b.ID, resentA.ID, c.ID}, []string{results[0].Entry.ID, results[1].Entry.ID, results[2].Entry.ID})
	assert.Equal(t, []string{"B", "A", "C"}, sent)
	assert.Equal(t, models.DeliveryStatusError, f.delivery(t, a.ID).Status)
}

func TestThreeQueuedEmailsAllSucceed(t *testing.T) {
	f := newFixture(t, "Alpha", "Bravo", "Charlie")
	ctx := context.Background()

	queued := []*models.DeliveryLogEntry{
		f.enqueue(t, 0, "A"),
		f.enqueue(t, 1, "B"),
		f.enqueue(t, 2, "C"),
	}

	var sent []string
	transport := TransportFunc(func(_ context.Context, e models.DeliveryLogEntry) Outcome {
		sent = append(sent, e.LeadName)
		return Outcome{Success: true}
	})
	p := NewDeliveryProcessor(f.store, transport, time.Second, quietLogger())

	for i, entry := range queued {
		result, err := p.Tick(ctx)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, entry.ID, result.Entry.ID)
		assert.Equal(t, models.DeliveryStatusSent, result.Entry.Status)
		assert.True(t, result.EngagementApplied)

		lead := f.lead(t, i)
		assert.Equal(t, models.EmailStatusSent, lead.Engagement.Email)
		require.NotNil(t, lead.Engagement.LastContacted, lead.CompanyName)
		assert.Equal(t, testNow, *lead.Engagement.LastContacted)
	}
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, sent)

	result, err := p.Tick(ctx)
	require.NoError(t, err)
	assert.Nil(t, result)

	for _, entry := range queued {
		assert.Equal(t, models.DeliveryStatusSent, f.delivery(t, entry.ID).Status)
	}
}

func TestDrainMixedOutcomes(t *testing.T) {
	f := newFixture(t, "Alpha", "Bravo", "Charlie")
	ctx := context.Background()

	entries, err := f.deliveries.EnqueueProject(ctx, f.project.ID, "Intro")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	transport := TransportFunc(func(_ context.Context, e models.DeliveryLogEntry) Outcome {
		if e.LeadName == "Bravo" {
			return Outcome{ErrorMessage: "Recipient rejected"}
		}
		return Outcome{Success: true}
	})
	p := NewDeliveryProcessor(f.store, transport, time.Second, quietLogger())

	results, err := p.Drain(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, entries[0].ID, results[0].Entry.ID)
	assert.Equal(t, entries[1].ID, results[1].Entry.ID)
	assert.Equal(t, entries[2].ID, results[2].Entry.ID)

	assert.Equal(t, models.DeliveryStatusSent, f.delivery(t, entries[0].ID).Status)
	assert.Equal(t, models.DeliveryStatusError, f.delivery(t, entries[1].ID).Status)
	assert.Equal(t, models.DeliveryStatusSent, f.delivery(t, entries[2].ID).Status)

	assert.Equal(t, models.EmailStatusSent, f.lead(t, 0).Engagement.Email)
	assert.Equal(t, models.EmailStatusNotSent, f.lead(t, 1).Engagement.Email)
	assert.Equal(t, models.EmailStatusSent, f.lead(t, 2).Engagement.Email)
}

func TestDrainStopsAtMax(t *testing.T) {
	f := newFixture(t, "Alpha", "Bravo", "Charlie")
	_, err := f.deliveries.EnqueueProject(context.Background(), f.project.ID, "Intro")
	require.NoError(t, err)

	p := NewDeliveryProcessor(f.store, AlwaysSucceed, time.Second, quietLogger())
	results, err := p.Drain(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	queued := models.DeliveryStatusQueued
	remaining, err := f.deliveries.List(context.Background(), models.DeliveryLogFilter{Status: &queued})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestStartProcessesInBackground(t *testing.T) {
	f := newFixture(t, "Acme")
	entry := f.enqueue(t, 0, "hello")

	p := NewDeliveryProcessor(f.store, AlwaysSucceed, 10*time.Millisecond, quietLogger())
	stop := p.Start(context.Background())
	defer stop()

	assert.Eventually(t, func() bool {
		entries, err := f.deliveries.List(context.Background(), models.DeliveryLogFilter{ID: &entry.ID})
		return err == nil && len(entries) == 1 && entries[0].Status == models.DeliveryStatusSent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopLeavesEntriesQueued(t *testing.T) {
	f := newFixture(t, "Acme")
	entry := f.enqueue(t, 0, "hello")

	p := NewDeliveryProcessor(f.store, AlwaysSucceed, time.Hour, quietLogger())
	stop := p.Start(context.Background())
	stop()
	stop()

	assert.Equal(t, models.DeliveryStatusQueued, f.delivery(t, entry.ID).Status)
}

func TestTickHonorsCancelledContext(t *testing.T) {
	f := newFixture(t, "Acme")
	entry := f.enqueue(t, 0, "hello")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewDeliveryProcessor(f.store, AlwaysSucceed, time.Second, quietLogger())
	_, err := p.Tick(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.DeliveryStatusQueued, f.delivery(t, entry.ID).Status)
}

func TestActivatedCampaignIsDelivered(t *testing.T) {
	f := newFixture(t, "Acme", "Globex")
	ctx := context.Background()

	campaign, err := f.campaigns.SaveCampaign(ctx, &models.Campaign{
		Name:       "Spring outreach",
		ProjectIDs: []string{f.project.ID},
		Steps:      []models.CampaignStep{models.DefaultCampaignStep("")},
	})
	require.NoError(t, err)
	activation, err := f.campaigns.ActivateCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, activation.Queued, 2)

	p := NewDeliveryProcessor(f.store, AlwaysSucceed, time.Second, quietLogger())
	results, err := p.Drain(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Hi Acme, just following up.", results[0].Entry.Body)

	for i := range f.project.Leads {
		lead := f.lead(t, i)
		assert.Equal(t, models.EmailStatusSent, lead.Engagement.Email)
		require.NotNil(t, lead.Enrollment)
		assert.Equal(t, 1, lead.Enrollment.CurrentStep)
	}
}
