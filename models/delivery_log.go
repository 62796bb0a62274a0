package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DeliveryStatus represents the state of an outbound delivery attempt
type DeliveryStatus string

const (
	DeliveryStatusQueued DeliveryStatus = "Queued"
	DeliveryStatusSent   DeliveryStatus = "Sent"
	DeliveryStatusError  DeliveryStatus = "Error"
)

// String returns the string representation of the status
func (s DeliveryStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusQueued, DeliveryStatusSent, DeliveryStatusError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status can no longer change
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusSent || s == DeliveryStatusError
}

// Scan implements the sql.Scanner interface for DeliveryStatus
func (s *DeliveryStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DeliveryStatus(v)
	case []byte:
		*s = DeliveryStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DeliveryStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DeliveryStatus
func (s DeliveryStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DeliveryStatus: %s", s)
	}
	return string(s), nil
}

// DeliveryLogEntry is one outbound send attempt. Lead and project names are copied at enqueue time.
type DeliveryLogEntry struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	LeadID       string         `gorm:"type:varchar(36);not null;index:idx_delivery_lead_id" json:"lead_id"`
	LeadName     string         `gorm:"size:255;not null" json:"lead_name"`
	ProjectID    string         `gorm:"type:varchar(36);not null;index:idx_delivery_project_id" json:"project_id"`
	ProjectName  string         `gorm:"size:255;not null" json:"project_name"`
	CampaignID   *string        `gorm:"type:varchar(36);index:idx_delivery_campaign_id" json:"campaign_id,omitempty"`
	Step         int            `gorm:"default:0" json:"step"`
	Subject      string         `gorm:"size:512;not null" json:"subject"`
	Body         string         `gorm:"type:text" json:"body,omitempty"`
	Status       DeliveryStatus `gorm:"type:varchar(16);not null;index:idx_delivery_status" json:"status"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;index:idx_delivery_created_at" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (DeliveryLogEntry) TableName() string {
	return "delivery_log"
}

// Clone returns a copy of the entry
func (e *DeliveryLogEntry) Clone() *DeliveryLogEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.ErrorMessage != nil {
		msg := *e.ErrorMessage
		c.ErrorMessage = &msg
	}
	if e.CampaignID != nil {
		id := *e.CampaignID
		c.CampaignID = &id
	}
	return &c
}

// DeliveryLogFilter represents filter criteria for delivery log queries
type DeliveryLogFilter struct {
	ID        *string
	ProjectID *string
	LeadID    *string
	Status    *DeliveryStatus
}
