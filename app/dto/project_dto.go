package dto

import (
	"time"

	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/utils"
)

// LeadInputRequest describes one lead supplied when creating a project
type LeadInputRequest struct {
	CompanyName string `json:"company_name" validate:"required,max=255"`
	URL         string `json:"url" validate:"omitempty,max=2048"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,max=64"`
}

// CreateProjectRequest creates a project from caller-supplied leads
type CreateProjectRequest struct {
	Keyword string             `json:"keyword" validate:"required,max=255"`
	Leads   []LeadInputRequest `json:"leads" validate:"dive"`
}

// ToLeadInputs converts the request leads to engine inputs
func (r *CreateProjectRequest) ToLeadInputs() []models.LeadInput {
	out := make([]models.LeadInput, 0, len(r.Leads))
	for _, l := range r.Leads {
		out = append(out, models.LeadInput{
			CompanyName: l.CompanyName,
			URL:         l.URL,
			Email:       l.Email,
			Phone:       l.Phone,
		})
	}
	return out
}

// ProspectProjectRequest creates a project from leads found by the lead provider
type ProspectProjectRequest struct {
	Keyword string `json:"keyword" validate:"required,max=255"`
}

// UpdateLeadDetailsRequest is a merge-patch of lead contact details
type UpdateLeadDetailsRequest struct {
	CompanyName *string `json:"company_name,omitempty" validate:"omitempty,min=1,max=255"`
	URL         *string `json:"url,omitempty" validate:"omitempty,max=2048"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=64"`
}

// ToPatch converts the request to a lead patch
func (r *UpdateLeadDetailsRequest) ToPatch() models.LeadPatch {
	return models.LeadPatch{
		CompanyName: r.CompanyName,
		URL:         r.URL,
		Email:       r.Email,
		Phone:       r.Phone,
	}
}

// UpdateLeadStatusRequest assigns a CRM pipeline status
type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// MoveLeadRequest moves a lead one pipeline step
type MoveLeadRequest struct {
	Direction string `json:"direction" validate:"required,oneof=prev next"`
}

// AdvanceEngagementRequest changes a lead's engagement on one channel
type AdvanceEngagementRequest struct {
	Channel string `json:"channel" validate:"required,oneof=email whatsapp"`
	Status  string `json:"status" validate:"required"`
	Subject string `json:"subject,omitempty" validate:"omitempty,max=512"`
}

type EngagementResponse struct {
	Email         string     `json:"email"`
	WhatsApp      string     `json:"whatsapp"`
	LastContacted *time.Time `json:"last_contacted,omitempty"`
}

type EnrollmentResponse struct {
	CampaignID  string    `json:"campaign_id"`
	CurrentStep int       `json:"current_step"`
	EnrolledAt  time.Time `json:"enrolled_at"`
}

type LeadResponse struct {
	ID          string              `json:"id"`
	CompanyName string              `json:"company_name"`
	URL         string              `json:"url"`
	Email       string              `json:"email"`
	Phone       string              `json:"phone"`
	Status      string              `json:"status"`
	Engagement  EngagementResponse  `json:"engagement"`
	Enrollment  *EnrollmentResponse `json:"enrollment,omitempty"`
}

type ProjectResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Keyword   string         `json:"keyword"`
	LeadCount int            `json:"lead_count"`
	Leads     []LeadResponse `json:"leads,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// MoveLeadResponse reports whether the lead changed pipeline status
type MoveLeadResponse struct {
	Moved bool         `json:"moved"`
	Lead  LeadResponse `json:"lead"`
}

// AdvanceEngagementResponse carries the queued delivery when the request was routed to the queue
type AdvanceEngagementResponse struct {
	Lead     LeadResponse      `json:"lead"`
	Delivery *DeliveryResponse `json:"delivery,omitempty"`
}

// NewLeadResponse converts a lead to its API representation
func NewLeadResponse(l *models.Lead) LeadResponse {
	resp := LeadResponse{
		ID:          l.ID,
		CompanyName: l.CompanyName,
		URL:         l.URL,
		Email:       l.Email,
		Phone:       l.Phone,
		Status:      string(l.Status),
		Engagement: EngagementResponse{
			Email:         string(l.Engagement.Email),
			WhatsApp:      string(l.Engagement.WhatsApp),
			LastContacted: utils.TimeToUTCPtr(l.Engagement.LastContacted),
		},
	}
	if l.Enrollment != nil {
		resp.Enrollment = &EnrollmentResponse{
			CampaignID:  l.Enrollment.CampaignID,
			CurrentStep: l.Enrollment.CurrentStep,
			EnrolledAt:  l.Enrollment.EnrolledAt,
		}
	}
	return resp
}

// NewProjectResponse converts a project; leads are included only when withLeads is set
func NewProjectResponse(p *models.Project, withLeads bool) ProjectResponse {
	resp := ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		Keyword:   p.Keyword,
		LeadCount: len(p.Leads),
		CreatedAt: p.CreatedAt,
	}
	if withLeads {
		resp.Leads = make([]LeadResponse, 0, len(p.Leads))
		for _, l := range p.Leads {
			resp.Leads = append(resp.Leads, NewLeadResponse(l))
		}
	}
	return resp
}
