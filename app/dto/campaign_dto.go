package dto

import (
	"time"

	"github.com/prbn021/seo-app/models"
)

type CampaignStepRequest struct {
	ID        string `json:"id,omitempty"`
	DelayDays int    `json:"delay_days" validate:"gte=0"`
	SendTime  string `json:"send_time" validate:"omitempty,datetime=15:04"`
	Subject   string `json:"subject" validate:"max=512"`
	Body      string `json:"body"`
}

// SaveCampaignRequest creates a campaign (empty id) or replaces the campaign with the given id
type SaveCampaignRequest struct {
	ID         string                `json:"id,omitempty"`
	Name       string                `json:"name" validate:"required,max=255"`
	Channel    string                `json:"channel,omitempty" validate:"omitempty,oneof=email whatsapp"`
	Status     string                `json:"status,omitempty" validate:"omitempty,oneof=Draft Active Archived"`
	ProjectIDs []string              `json:"project_ids"`
	Steps      []CampaignStepRequest `json:"steps" validate:"dive"`
}

// ToModel converts the request to a campaign
func (r *SaveCampaignRequest) ToModel() *models.Campaign {
	c := &models.Campaign{
		ID:         r.ID,
		Name:       r.Name,
		Channel:    models.Channel(r.Channel),
		Status:     models.CampaignStatus(r.Status),
		ProjectIDs: append([]string(nil), r.ProjectIDs...),
		Steps:      make([]models.CampaignStep, 0, len(r.Steps)),
	}
	for _, s := range r.Steps {
		c.Steps = append(c.Steps, models.CampaignStep{
			ID:        s.ID,
			DelayDays: s.DelayDays,
			SendTime:  s.SendTime,
			Subject:   s.Subject,
			Body:      s.Body,
		})
	}
	return c
}

type CampaignStepResponse struct {
	ID        string `json:"id"`
	DelayDays int    `json:"delay_days"`
	SendTime  string `json:"send_time"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

type CampaignResponse struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Channel    string                 `json:"channel"`
	Status     string                 `json:"status"`
	ProjectIDs []string               `json:"project_ids"`
	Steps      []CampaignStepResponse `json:"steps"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

type ActivateCampaignResponse struct {
	Activated bool `json:"activated"`
	Enrolled  int  `json:"enrolled"`
	Queued    int  `json:"queued"`
}

// NewCampaignResponse converts a campaign to its API representation
func NewCampaignResponse(c *models.Campaign) CampaignResponse {
	resp := CampaignResponse{
		ID:         c.ID,
		Name:       c.Name,
		Channel:    string(c.Channel),
		Status:     string(c.Status),
		ProjectIDs: append([]string{}, c.ProjectIDs...),
		Steps:      make([]CampaignStepResponse, 0, len(c.Steps)),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	for _, s := range c.Steps {
		resp.Steps = append(resp.Steps, CampaignStepResponse{
			ID:        s.ID,
			DelayDays: s.DelayDays,
			SendTime:  s.SendTime,
			Subject:   s.Subject,
			Body:      s.Body,
		})
	}
	return resp
}
