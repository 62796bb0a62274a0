package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/store"
	"github.com/prbn021/seo-app/utils"
	"github.com/sirupsen/logrus"
)

// ActivationResult reports what an activation changed
type ActivationResult struct {
	Activated bool                       `json:"activated"`
	Enrolled  int                        `json:"enrolled"`
	Queued    []*models.DeliveryLogEntry `json:"queued"`
}

// CampaignFlow handles campaign definitions, activation and sequence progression
type CampaignFlow interface {
	SaveCampaign(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error)
	DeleteCampaign(ctx context.Context, campaignID string) error
	ActivateCampaign(ctx context.Context, campaignID string) (*ActivationResult, error)
	ListCampaigns(ctx context.Context) ([]*models.Campaign, error)
	GetCampaign(ctx context.Context, campaignID string) (*models.Campaign, error)
	AdvanceDueEnrollments(ctx context.Context, now time.Time) (int, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	store  *store.Store
	logger logrus.FieldLogger
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(st *store.Store, logger logrus.FieldLogger) CampaignFlow {
	return &CampaignFlowImpl{
		store:  st,
		logger: defaultLogger(logger).WithField("flow", "campaign"),
	}
}

// SaveCampaign inserts a campaign without an id or replaces the stored one with the same id
func (f *CampaignFlowImpl) SaveCampaign(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_REQUIRED", "campaign is required", nil)
	}

	var (
		out   *models.Campaign
		isNew bool
	)
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		c := campaign.Clone()
		now := tx.Now()

		isNew = c.ID == ""
		if isNew {
			c.ID = tx.NewID()
			c.CreatedAt = now
		} else if existing, err := tx.Campaign(c.ID); err == nil {
			c.CreatedAt = existing.CreatedAt
		} else if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.Status == "" {
			c.Status = models.CampaignStatusDraft
		}
		if c.Channel == "" {
			c.Channel = models.ChannelEmail
		}
		defaults := models.DefaultCampaignStep("")
		for i := range c.Steps {
			if c.Steps[i].SendTime == "" {
				c.Steps[i].SendTime = defaults.SendTime
			}
			if _, _, err := c.Steps[i].ParseSendTime(); err != nil {
				return NewBusinessErrorf("INVALID_SEND_TIME", "step %d send time %q must be HH:MM", ErrInvalidSendTime, i+1, c.Steps[i].SendTime)
			}
		}
		for i := range c.Steps {
			if c.Steps[i].ID == "" {
				c.Steps[i].ID = tx.NewID()
			}
		}
		c.UpdatedAt = now

		tx.PutCampaign(c)
		if isNew {
			tx.Record(models.SeveritySuccess, models.AuditActionCampaignCreated,
				fmt.Sprintf("New campaign %q was created.", c.Name))
		} else {
			tx.Record(models.SeverityInfo, models.AuditActionCampaignUpdated,
				fmt.Sprintf("Campaign %q was updated.", c.Name))
		}

		out = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	withRequestFields(ctx, f.logger).WithFields(logrus.Fields{
		"campaign_id": out.ID,
		"created":     isNew,
	}).Info("campaign saved")
	return out, nil
}

// DeleteCampaign removes a campaign and un-enrolls every lead that references it
func (f *CampaignFlowImpl) DeleteCampaign(ctx context.Context, campaignID string) error {
	unenrolled := 0
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		name := "Unknown"
		if removed := tx.RemoveCampaign(campaignID); removed != nil {
			name = removed.Name
		}

		for _, project := range tx.Projects() {
			for _, lead := range project.Leads {
				if lead.Enrollment == nil || lead.Enrollment.CampaignID != campaignID {
					continue
				}
				if err := tx.UpdateLead(project.ID, lead.ID, func(l *models.Lead) {
					l.Enrollment = nil
				}); err != nil {
					return err
				}
				unenrolled++
			}
		}

		tx.Record(models.SeverityInfo, models.AuditActionCampaignDeleted,
			fmt.Sprintf("Campaign %q was deleted.", name))
		return nil
	})
	if err != nil {
		return err
	}

	withRequestFields(ctx, f.logger).WithFields(logrus.Fields{
		"campaign_id": campaignID,
		"unenrolled":  unenrolled,
	}).Info("campaign deleted")
	return nil
}

// ActivateCampaign moves a Draft campaign to Active and enrolls every eligible lead of its
// projects at step 1. Unknown or already active campaigns are left alone without error.
func (f *CampaignFlowImpl) ActivateCampaign(ctx context.Context, campaignID string) (*ActivationResult, error) {
	logger := withRequestFields(ctx, f.logger).WithField("campaign_id", campaignID)

	result := &ActivationResult{}
	var skipReason string
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		campaign, err := tx.Campaign(campaignID)
		if err != nil {
			skipReason = "campaign not found"
			return nil
		}
		if campaign.IsActive() {
			skipReason = "campaign already active"
			return nil
		}
		if len(campaign.ProjectIDs) == 0 {
			return NewBusinessErrorf("CAMPAIGN_HAS_NO_PROJECTS", "campaign %q cannot be activated", ErrCampaignHasNoProjects, campaign.Name)
		}

		now := tx.Now()
		if err := tx.UpdateCampaign(campaignID, func(c *models.Campaign) {
			c.Status = models.CampaignStatusActive
			c.UpdatedAt = now
		}); err != nil {
			return err
		}
		tx.Record(models.SeveritySuccess, models.AuditActionCampaignActivated,
			fmt.Sprintf("Campaign %q was activated.", campaign.Name))
		result.Activated = true

		first, ok := campaign.FirstStep()
		if !ok {
			return nil
		}

		for _, projectID := range campaign.ProjectIDs {
			project, err := tx.Project(projectID)
			if err != nil {
				continue
			}
			for _, lead := range project.Leads {
				if lead.IsEnrolled() {
					continue
				}
				if campaign.Channel == models.ChannelEmail {
					entry := enqueueLocked(tx, project, lead, delivery{
						subject:    first.Subject,
						body:       first.RenderBody(lead),
						campaignID: utils.ToPtr(campaignID),
						step:       1,
					})
					result.Queued = append(result.Queued, entry.Clone())
				}
				if err := tx.UpdateLead(project.ID, lead.ID, func(l *models.Lead) {
					l.Enrollment = &models.Enrollment{
						CampaignID:  campaignID,
						CurrentStep: 1,
						EnrolledAt:  now,
					}
				}); err != nil {
					return err
				}
				result.Enrolled++
			}
		}

		if result.Enrolled > 0 {
			tx.Record(models.SeverityInfo, models.AuditActionLeadsEnrolled,
				fmt.Sprintf("%d leads enrolled in campaign %q.", result.Enrolled, campaign.Name))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if skipReason != "" {
		logger.WithField("reason", skipReason).Warn("campaign activation skipped")
		return result, nil
	}

	logger.WithFields(logrus.Fields{
		"enrolled": result.Enrolled,
		"queued":   len(result.Queued),
	}).Info("campaign activated")
	return result, nil
}

// ListCampaigns returns all campaigns in creation order
func (f *CampaignFlowImpl) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	var out []*models.Campaign
	err := f.store.View(ctx, func(tx *store.Tx) error {
		for _, c := range tx.Campaigns() {
			out = append(out, c.Clone())
		}
		return nil
	})
	return out, err
}

// GetCampaign returns one campaign
func (f *CampaignFlowImpl) GetCampaign(ctx context.Context, campaignID string) (*models.Campaign, error) {
	var out *models.Campaign
	err := f.store.View(ctx, func(tx *store.Tx) error {
		c, err := tx.Campaign(campaignID)
		if err != nil {
			return err
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

// AdvanceDueEnrollments moves every enrolled lead of an active campaign to its next step once
// that step is due, queueing the step's message for email campaigns. A step is due delayDays
// after the enrollment date at the step's send time. Each call advances a lead by at most one step;
// a lead on the last step is finished.
func (f *CampaignFlowImpl) AdvanceDueEnrollments(ctx context.Context, now time.Time) (int, error) {
	advanced := 0
	var invalid []string
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, project := range tx.Projects() {
			for _, lead := range project.Leads {
				if lead.Enrollment == nil {
					continue
				}
				campaign, err := tx.Campaign(lead.Enrollment.CampaignID)
				if err != nil || !campaign.IsActive() {
					continue
				}
				nextStep := lead.Enrollment.CurrentStep + 1
				step, ok := campaign.Step(nextStep)
				if !ok {
					continue
				}
				due, err := step.DueAt(lead.Enrollment.EnrolledAt)
				if err != nil {
					invalid = append(invalid, step.ID)
					continue
				}
				if now.Before(due) {
					continue
				}

				if campaign.Channel == models.ChannelEmail {
					enqueueLocked(tx, project, lead, delivery{
						subject:    step.Subject,
						body:       step.RenderBody(lead),
						campaignID: utils.ToPtr(campaign.ID),
						step:       nextStep,
					})
				}
				if err := tx.UpdateLead(project.ID, lead.ID, func(l *models.Lead) {
					l.Enrollment.CurrentStep = nextStep
				}); err != nil {
					return err
				}
				tx.Record(models.SeverityInfo, models.AuditActionSequenceStepAdvanced,
					fmt.Sprintf("%s advanced to step %d of campaign %q.", lead.CompanyName, nextStep, campaign.Name))
				advanced++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(invalid) > 0 {
		f.logger.WithField("step_ids", invalid).Warn("skipped steps with invalid send time")
	}
	if advanced > 0 {
		f.logger.WithField("advanced", advanced).Info("sequence steps advanced")
	}
	return advanced, nil
}
