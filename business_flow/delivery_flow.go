package businessflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/store"
	"github.com/sirupsen/logrus"
)

// EnqueueRequest asks for one message to be queued for a lead
type EnqueueRequest struct {
	ProjectID string
	LeadID    string
	Subject   string
	Body      string
}

// DeliveryFlow manages the delivery log: queueing, resending and listing attempts
type DeliveryFlow interface {
	Enqueue(ctx context.Context, req EnqueueRequest) (*models.DeliveryLogEntry, error)
	EnqueueProject(ctx context.Context, projectID, subject string) ([]*models.DeliveryLogEntry, error)
	Resend(ctx context.Context, entryID string) (*models.DeliveryLogEntry, error)
	List(ctx context.Context, filter models.DeliveryLogFilter) ([]*models.DeliveryLogEntry, error)
}

// DeliveryFlowImpl implements the delivery business flow
type DeliveryFlowImpl struct {
	store  *store.Store
	logger logrus.FieldLogger
}

// NewDeliveryFlow creates a new delivery flow instance
func NewDeliveryFlow(st *store.Store, logger logrus.FieldLogger) DeliveryFlow {
	return &DeliveryFlowImpl{
		store:  st,
		logger: defaultLogger(logger).WithField("flow", "delivery"),
	}
}

// Enqueue appends a Queued entry for the lead
func (f *DeliveryFlowImpl) Enqueue(ctx context.Context, req EnqueueRequest) (*models.DeliveryLogEntry, error) {
	var out *models.DeliveryLogEntry
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		project, lead, err := tx.Lead(req.ProjectID, req.LeadID)
		if err != nil {
			return err
		}
		entry := enqueueLocked(tx, project, lead, delivery{subject: req.Subject, body: req.Body})
		out = entry.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	withRequestFields(ctx, f.logger).WithFields(logrus.Fields{
		"delivery_id": out.ID,
		"lead_id":     out.LeadID,
	}).Info("email queued")
	return out, nil
}

// EnqueueProject queues the same subject for every lead of a project
func (f *DeliveryFlowImpl) EnqueueProject(ctx context.Context, projectID, subject string) ([]*models.DeliveryLogEntry, error) {
	var out []*models.DeliveryLogEntry
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		project, err := tx.Project(projectID)
		if err != nil {
			return err
		}
		for _, lead := range project.Leads {
			entry := enqueueLocked(tx, project, lead, delivery{subject: subject})
			out = append(out, entry.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	withRequestFields(ctx, f.logger).WithFields(logrus.Fields{
		"project_id": projectID,
		"count":      len(out),
	}).Info("project emails queued")
	return out, nil
}

// Resend queues a fresh copy of an existing entry. The original entry is left untouched.
func (f *DeliveryFlowImpl) Resend(ctx context.Context, entryID string) (*models.DeliveryLogEntry, error) {
	var out *models.DeliveryLogEntry
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		original, err := tx.Delivery(entryID)
		if err != nil {
			return err
		}

		now := tx.Now()
		entry := original.Clone()
		entry.ID = tx.NewID()
		entry.Status = models.DeliveryStatusQueued
		entry.ErrorMessage = nil
		entry.CreatedAt = now
		entry.UpdatedAt = now
		tx.AppendDelivery(entry)

		tx.Record(models.SeverityInfo, models.AuditActionEmailResend,
			fmt.Sprintf("Re-queued email %q for %s.", entry.Subject, entry.LeadName))

		out = entry.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	withRequestFields(ctx, f.logger).WithFields(logrus.Fields{
		"delivery_id": out.ID,
		"resend_of":   entryID,
	}).Info("email re-queued")
	return out, nil
}

// List returns delivery entries newest first, optionally filtered
func (f *DeliveryFlowImpl) List(ctx context.Context, filter models.DeliveryLogFilter) ([]*models.DeliveryLogEntry, error) {
	var out []*models.DeliveryLogEntry
	err := f.store.View(ctx, func(tx *store.Tx) error {
		entries := tx.Deliveries()
		// walk backwards so later insertions come first among equal timestamps
		for i := len(entries) - 1; i >= 0; i-- {
			if matchesDeliveryFilter(entries[i], filter) {
				out = append(out, entries[i].Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func matchesDeliveryFilter(e *models.DeliveryLogEntry, filter models.DeliveryLogFilter) bool {
	if filter.ID != nil && e.ID != *filter.ID {
		return false
	}
	if filter.ProjectID != nil && e.ProjectID != *filter.ProjectID {
		return false
	}
	if filter.LeadID != nil && e.LeadID != *filter.LeadID {
		return false
	}
	if filter.Status != nil && e.Status != *filter.Status {
		return false
	}
	return true
}

type delivery struct {
	subject    string
	body       string
	campaignID *string
	step       int
}

// enqueueLocked appends a Queued entry and its audit record. It must run inside a transaction
// and never fails.
func enqueueLocked(tx *store.Tx, project *models.Project, lead *models.Lead, d delivery) *models.DeliveryLogEntry {
	now := tx.Now()
	entry := &models.DeliveryLogEntry{
		ID:          tx.NewID(),
		LeadID:      lead.ID,
		LeadName:    lead.CompanyName,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		CampaignID:  d.campaignID,
		Step:        d.step,
		Subject:     d.subject,
		Body:        d.body,
		Status:      models.DeliveryStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx.AppendDelivery(entry)

	tx.Record(models.SeverityInfo, models.AuditActionEmailQueued,
		fmt.Sprintf("Email %q to %s has been queued for sending.", d.subject, lead.CompanyName))
	return entry
}
