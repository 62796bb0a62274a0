package businessflow

import (
	"context"
	"fmt"

	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/store"
	"github.com/prbn021/seo-app/utils"
	"github.com/sirupsen/logrus"
)

// MoveDirection is the direction a lead moves along the CRM pipeline
type MoveDirection string

const (
	MovePrev MoveDirection = "prev"
	MoveNext MoveDirection = "next"
)

// EngagementRequest changes a lead's engagement on one channel
type EngagementRequest struct {
	ProjectID string
	LeadID    string
	Channel   models.Channel
	Status    string
	Subject   string
}

// EngagementResult reports how an engagement request was applied
type EngagementResult struct {
	Lead     *models.Lead
	Delivery *models.DeliveryLogEntry
}

// EngagementFlow applies direct, user-driven changes to leads
type EngagementFlow interface {
	AdvanceEngagement(ctx context.Context, req EngagementRequest) (*EngagementResult, error)
	UpdateLeadStatus(ctx context.Context, projectID, leadID string, status models.CrmStatus) (*models.Lead, error)
	MoveLead(ctx context.Context, projectID, leadID string, direction MoveDirection) (*models.Lead, bool, error)
	UpdateLeadDetails(ctx context.Context, projectID, leadID string, patch models.LeadPatch) (*models.Lead, error)
}

// EngagementFlowImpl implements the engagement business flow
type EngagementFlowImpl struct {
	store  *store.Store
	logger logrus.FieldLogger
}

// NewEngagementFlow creates a new engagement flow instance
func NewEngagementFlow(st *store.Store, logger logrus.FieldLogger) EngagementFlow {
	return &EngagementFlowImpl{
		store:  st,
		logger: defaultLogger(logger).WithField("flow", "engagement"),
	}
}

// AdvanceEngagement sets a lead's engagement status. Marking email as Sent never applies
// directly: the message is queued and the delivery processor sets the status once it goes out.
func (f *EngagementFlowImpl) AdvanceEngagement(ctx context.Context, req EngagementRequest) (*EngagementResult, error) {
	if err := validateEngagement(req); err != nil {
		return nil, err
	}

	result := &EngagementResult{}
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		project, lead, err := tx.Lead(req.ProjectID, req.LeadID)
		if err != nil {
			return err
		}

		if req.Channel == models.ChannelEmail && models.EmailStatus(req.Status) == models.EmailStatusSent {
			subject := req.Subject
			if subject == "" {
				subject = "Message to " + lead.CompanyName
			}
			result.Delivery = enqueueLocked(tx, project, lead, delivery{subject: subject}).Clone()
			result.Lead = lead.Clone()
			return nil
		}

		now := tx.Now()
		err = tx.UpdateLead(req.ProjectID, req.LeadID, func(l *models.Lead) {
			switch req.Channel {
			case models.ChannelEmail:
				l.Engagement.Email = models.EmailStatus(req.Status)
			case models.ChannelWhatsApp:
				l.Engagement.WhatsApp = models.WhatsAppStatus(req.Status)
			}
			l.Engagement.LastContacted = utils.ToPtr(now)
		})
		if err != nil {
			return err
		}

		tx.Record(models.SeverityInfo, models.AuditActionEngagementUpdated,
			fmt.Sprintf("%s engagement for %s set to %s.", req.Channel, lead.CompanyName, req.Status))
		result.Lead = lead.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	withRequestFields(ctx, f.logger).WithFields(logrus.Fields{
		"lead_id": req.LeadID,
		"channel": req.Channel,
		"status":  req.Status,
		"queued":  result.Delivery != nil,
	}).Info("engagement updated")
	return result, nil
}

func validateEngagement(req EngagementRequest) error {
	switch req.Channel {
	case models.ChannelEmail:
		if !models.EmailStatus(req.Status).Valid() {
			return NewBusinessErrorf("INVALID_ENGAGEMENT_STATUS", "unknown email status %q", ErrInvalidEngagementStatus, req.Status)
		}
	case models.ChannelWhatsApp:
		if !models.WhatsAppStatus(req.Status).Valid() {
			return NewBusinessErrorf("INVALID_ENGAGEMENT_STATUS", "unknown whatsapp status %q", ErrInvalidEngagementStatus, req.Status)
		}
	default:
		return NewBusinessErrorf("INVALID_CHANNEL", "unknown channel %q", ErrInvalidChannel, req.Channel)
	}
	return nil
}

// UpdateLeadStatus assigns a pipeline status to a lead without ordering checks
func (f *EngagementFlowImpl) UpdateLeadStatus(ctx context.Context, projectID, leadID string, status models.CrmStatus) (*models.Lead, error) {
	if !status.Valid() {
		return nil, NewBusinessErrorf("INVALID_CRM_STATUS", "unknown CRM status %q", ErrInvalidCrmStatus, status)
	}

	var out *models.Lead
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		out, err = setLeadStatus(tx, projectID, leadID, status)
		return err
	})
	if err != nil {
		return nil, err
	}

	withRequestFields(ctx, f.logger).WithFields(logrus.Fields{
		"lead_id": leadID,
		"status":  status,
	}).Info("lead status updated")
	return out, nil
}

// MoveLead moves a lead one step along the pipeline. At either end the call is a no-op and
// moved is false.
func (f *EngagementFlowImpl) MoveLead(ctx context.Context, projectID, leadID string, direction MoveDirection) (*models.Lead, bool, error) {
	if direction != MovePrev && direction != MoveNext {
		return nil, false, ErrInvalidMoveDirection
	}

	var (
		out   *models.Lead
		moved bool
	)
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		_, lead, err := tx.Lead(projectID, leadID)
		if err != nil {
			return err
		}

		var target models.CrmStatus
		if direction == MoveNext {
			target, moved = lead.Status.Next()
		} else {
			target, moved = lead.Status.Prev()
		}
		if !moved {
			out = lead.Clone()
			return nil
		}

		out, err = setLeadStatus(tx, projectID, leadID, target)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if moved {
		withRequestFields(ctx, f.logger).WithFields(logrus.Fields{
			"lead_id":   leadID,
			"direction": direction,
			"status":    out.Status,
		}).Info("lead moved")
	}
	return out, moved, nil
}

func setLeadStatus(tx *store.Tx, projectID, leadID string, status models.CrmStatus) (*models.Lead, error) {
	var out *models.Lead
	err := tx.UpdateLead(projectID, leadID, func(l *models.Lead) {
		l.Status = status
		out = l.Clone()
	})
	if err != nil {
		return nil, err
	}
	tx.Record(models.SeverityInfo, models.AuditActionLeadStatusUpdated,
		fmt.Sprintf("Lead %s moved to %s.", out.CompanyName, status))
	return out, nil
}

// UpdateLeadDetails merges contact field changes into a lead. Status, engagement and
// enrollment are never touched.
func (f *EngagementFlowImpl) UpdateLeadDetails(ctx context.Context, projectID, leadID string, patch models.LeadPatch) (*models.Lead, error) {
	if patch.IsEmpty() {
		return nil, ErrLeadUpdateRequired
	}

	var out *models.Lead
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		err := tx.UpdateLead(projectID, leadID, func(l *models.Lead) {
			patch.Apply(l)
			out = l.Clone()
		})
		if err != nil {
			return err
		}
		tx.Record(models.SeverityInfo, models.AuditActionLeadUpdated,
			fmt.Sprintf("Lead %s details were updated.", out.CompanyName))
		return nil
	})
	if err != nil {
		return nil, err
	}

	withRequestFields(ctx, f.logger).WithField("lead_id", leadID).Info("lead details updated")
	return out, nil
}
