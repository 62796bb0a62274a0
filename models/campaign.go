package models

import (
	"fmt"
	"strings"
	"time"
)

// CampaignStatus represents the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft    CampaignStatus = "Draft"
	CampaignStatusActive   CampaignStatus = "Active"
	CampaignStatusArchived CampaignStatus = "Archived"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusArchived:
		return true
	default:
		return false
	}
}

// Channel is the transport a campaign delivers through
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// Valid checks if the channel is valid
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelWhatsApp
}

// CompanyNamePlaceholder is replaced with the lead's company name when a step body is rendered
const CompanyNamePlaceholder = "{companyName}"

type CampaignStep struct {
	ID        string `json:"id"`
	DelayDays int    `json:"delay_days"`
	SendTime  string `json:"send_time"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// RenderBody substitutes the lead's company name into the step body
func (s CampaignStep) RenderBody(lead *Lead) string {
	if lead == nil {
		return s.Body
	}
	return strings.ReplaceAll(s.Body, CompanyNamePlaceholder, lead.CompanyName)
}

// ParseSendTime parses the "HH:MM" send time into hour and minute
func (s CampaignStep) ParseSendTime() (int, int, error) {
	t, err := time.Parse("15:04", s.SendTime)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid send time %q: %w", s.SendTime, err)
	}
	return t.Hour(), t.Minute(), nil
}

// DueAt returns when the step becomes due for a lead enrolled at enrolledAt.
// The delay counts whole days from the enrollment date; the step fires at its send time (UTC) on that day.
func (s CampaignStep) DueAt(enrolledAt time.Time) (time.Time, error) {
	hour, minute, err := s.ParseSendTime()
	if err != nil {
		return time.Time{}, err
	}
	day := enrolledAt.UTC().AddDate(0, 0, s.DelayDays)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC), nil
}

// DefaultCampaignStep is the step template a new campaign starts with
func DefaultCampaignStep(id string) CampaignStep {
	return CampaignStep{
		ID:        id,
		DelayDays: 0,
		SendTime:  "09:00",
		Subject:   "Follow Up 1",
		Body:      "Hi {companyName}, just following up.",
	}
}

type Campaign struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Channel    Channel        `json:"channel"`
	Status     CampaignStatus `json:"status"`
	ProjectIDs []string       `json:"project_ids"`
	Steps      []CampaignStep `json:"steps"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// IsActive reports whether the campaign is running
func (c *Campaign) IsActive() bool {
	return c.Status == CampaignStatusActive
}

// FirstStep returns the first step of the sequence, if any
func (c *Campaign) FirstStep() (CampaignStep, bool) {
	return c.Step(1)
}

// Step returns the 1-based step n of the sequence
func (c *Campaign) Step(n int) (CampaignStep, bool) {
	if n < 1 || n > len(c.Steps) {
		return CampaignStep{}, false
	}
	return c.Steps[n-1], true
}

// Clone returns a deep copy of the campaign
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	cp := *c
	cp.ProjectIDs = append([]string(nil), c.ProjectIDs...)
	cp.Steps = append([]CampaignStep(nil), c.Steps...)
	return &cp
}
