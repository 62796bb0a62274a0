package dto

import (
	"time"

	"github.com/prbn021/seo-app/models"
)

// EnqueueDeliveryRequest queues one email for a lead
type EnqueueDeliveryRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	LeadID    string `json:"lead_id" validate:"required"`
	Subject   string `json:"subject" validate:"required,max=512"`
	Body      string `json:"body,omitempty"`
}

// EnqueueProjectRequest queues one email for every lead of a project
type EnqueueProjectRequest struct {
	Subject string `json:"subject" validate:"required,max=512"`
}

type DeliveryResponse struct {
	ID           string    `json:"id"`
	LeadID       string    `json:"lead_id"`
	LeadName     string    `json:"lead_name"`
	ProjectID    string    `json:"project_id"`
	ProjectName  string    `json:"project_name"`
	CampaignID   *string   `json:"campaign_id,omitempty"`
	Step         int       `json:"step"`
	Subject      string    `json:"subject"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type ListDeliveriesResponse struct {
	Items []DeliveryResponse `json:"items"`
	Total int                `json:"total"`
}

// NewDeliveryResponse converts a delivery log entry to its API representation
func NewDeliveryResponse(e *models.DeliveryLogEntry) DeliveryResponse {
	return DeliveryResponse{
		ID:           e.ID,
		LeadID:       e.LeadID,
		LeadName:     e.LeadName,
		ProjectID:    e.ProjectID,
		ProjectName:  e.ProjectName,
		CampaignID:   e.CampaignID,
		Step:         e.Step,
		Subject:      e.Subject,
		Status:       string(e.Status),
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt,
	}
}

func NewListDeliveriesResponse(entries []*models.DeliveryLogEntry) ListDeliveriesResponse {
	items := make([]DeliveryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, NewDeliveryResponse(e))
	}
	return ListDeliveriesResponse{Items: items, Total: len(items)}
}
