// Package models contains domain entities of the outreach engine: projects, leads, campaigns and logs
package models

import (
	"fmt"
	"time"
)

// CrmStatus is the position of a lead in the sales pipeline
type CrmStatus string

const (
	CrmStatusNewLead     CrmStatus = "New Lead"
	CrmStatusContacted   CrmStatus = "Contacted"
	CrmStatusFollowUp    CrmStatus = "Follow-up"
	CrmStatusNegotiation CrmStatus = "Negotiation"
	CrmStatusClosedWon   CrmStatus = "Closed/Won"
)

// CrmPipeline lists the pipeline statuses in order
var CrmPipeline = []CrmStatus{
	CrmStatusNewLead,
	CrmStatusContacted,
	CrmStatusFollowUp,
	CrmStatusNegotiation,
	CrmStatusClosedWon,
}

// String returns the string representation of the status
func (s CrmStatus) String() string {
	return string(s)
}

// Valid checks if the status is part of the pipeline
func (s CrmStatus) Valid() bool {
	return s.index() >= 0
}

func (s CrmStatus) index() int {
	for i, v := range CrmPipeline {
		if v == s {
			return i
		}
	}
	return -1
}

// Next returns the following pipeline status. ok is false at the last status.
func (s CrmStatus) Next() (CrmStatus, bool) {
	i := s.index()
	if i < 0 || i+1 >= len(CrmPipeline) {
		return s, false
	}
	return CrmPipeline[i+1], true
}

// Prev returns the preceding pipeline status. ok is false at the first status.
func (s CrmStatus) Prev() (CrmStatus, bool) {
	i := s.index()
	if i <= 0 {
		return s, false
	}
	return CrmPipeline[i-1], true
}

// EmailStatus represents the email engagement of a lead
type EmailStatus string

const (
	EmailStatusNotSent EmailStatus = "Not Sent"
	EmailStatusSent    EmailStatus = "Sent"
	EmailStatusOpened  EmailStatus = "Opened"
	EmailStatusReplied EmailStatus = "Replied"
)

// Valid checks if the status is valid
func (s EmailStatus) Valid() bool {
	return s.Rank() >= 0
}

// Rank orders email statuses from Not Sent (0) to Replied (3); -1 for unknown values
func (s EmailStatus) Rank() int {
	switch s {
	case EmailStatusNotSent:
		return 0
	case EmailStatusSent:
		return 1
	case EmailStatusOpened:
		return 2
	case EmailStatusReplied:
		return 3
	default:
		return -1
	}
}

// WhatsAppStatus represents the WhatsApp engagement of a lead
type WhatsAppStatus string

const (
	WhatsAppStatusNotSent WhatsAppStatus = "Not Sent"
	WhatsAppStatusSent    WhatsAppStatus = "Sent"
)

// Valid checks if the status is valid
func (s WhatsAppStatus) Valid() bool {
	return s == WhatsAppStatusNotSent || s == WhatsAppStatusSent
}

// Engagement is the per-channel contact state of a lead
type Engagement struct {
	Email         EmailStatus    `json:"email"`
	WhatsApp      WhatsAppStatus `json:"whatsapp"`
	LastContacted *time.Time     `json:"last_contacted"`
}

// Enrollment records the campaign a lead is progressing through
type Enrollment struct {
	CampaignID  string    `json:"campaign_id"`
	CurrentStep int       `json:"current_step"`
	EnrolledAt  time.Time `json:"enrolled_at"`
}

type Lead struct {
	ID          string      `json:"id"`
	CompanyName string      `json:"company_name"`
	URL         string      `json:"url"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Status      CrmStatus   `json:"status"`
	Engagement  Engagement  `json:"engagement"`
	Enrollment  *Enrollment `json:"enrollment,omitempty"`
}

// NewLead creates a lead at the start of the pipeline with no engagement
func NewLead(id, companyName, url, email, phone string) *Lead {
	return &Lead{
		ID:          id,
		CompanyName: companyName,
		URL:         url,
		Email:       email,
		Phone:       phone,
		Status:      CrmStatusNewLead,
		Engagement: Engagement{
			Email:    EmailStatusNotSent,
			WhatsApp: WhatsAppStatusNotSent,
		},
	}
}

// Clone returns a deep copy of the lead
func (l *Lead) Clone() *Lead {
	if l == nil {
		return nil
	}
	c := *l
	if l.Engagement.LastContacted != nil {
		t := *l.Engagement.LastContacted
		c.Engagement.LastContacted = &t
	}
	if l.Enrollment != nil {
		e := *l.Enrollment
		c.Enrollment = &e
	}
	return &c
}

// IsEnrolled reports whether the lead is enrolled in any campaign
func (l *Lead) IsEnrolled() bool {
	return l.Enrollment != nil
}

// LeadInput carries the contact fields of a lead before it is assigned an identity
type LeadInput struct {
	CompanyName string `json:"companyName"`
	URL         string `json:"url"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// LeadPatch is a partial update of a lead's contact fields
type LeadPatch struct {
	CompanyName *string
	URL         *string
	Email       *string
	Phone       *string
}

// Apply merges the non-nil fields of the patch into the lead
func (p LeadPatch) Apply(l *Lead) {
	if p.CompanyName != nil {
		l.CompanyName = *p.CompanyName
	}
	if p.URL != nil {
		l.URL = *p.URL
	}
	if p.Email != nil {
		l.Email = *p.Email
	}
	if p.Phone != nil {
		l.Phone = *p.Phone
	}
}

// IsEmpty reports whether the patch changes nothing
func (p LeadPatch) IsEmpty() bool {
	return p.CompanyName == nil && p.URL == nil && p.Email == nil && p.Phone == nil
}

func (l *Lead) String() string {
	return fmt.Sprintf("%s (%s)", l.CompanyName, l.ID)
}
