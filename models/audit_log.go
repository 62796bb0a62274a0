package models

import (
	"time"
)

// Severity classifies an audit entry
type Severity string

const (
	SeverityInfo    Severity = "Info"
	SeveritySuccess Severity = "Success"
	SeverityError   Severity = "Error"
)

// AppLogEntry is one record of the in-memory audit log
type AppLogEntry struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index:idx_app_log_timestamp" json:"timestamp"`
	Severity  Severity  `gorm:"type:varchar(16);not null;index:idx_app_log_severity" json:"severity"`
	Action    string    `gorm:"size:128;not null;index:idx_app_log_action" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
}

func (AppLogEntry) TableName() string {
	return "app_log"
}

// Audit action constants
const (
	AuditActionEmailQueued          = "Email Queued"
	AuditActionEmailResend          = "Email Resend"
	AuditActionEmailSent            = "Email Sent"
	AuditActionEmailSendFailed      = "Email Send Failed"
	AuditActionCampaignCreated      = "Campaign Created"
	AuditActionCampaignUpdated      = "Campaign Updated"
	AuditActionCampaignDeleted      = "Campaign Deleted"
	AuditActionCampaignActivated    = "Campaign Activated"
	AuditActionLeadsEnrolled        = "Leads Enrolled"
	AuditActionSequenceStepAdvanced = "Sequence Step Advanced"
	AuditActionProjectCreated       = "Project Created"
	AuditActionLeadGenerationFailed = "Lead Generation Failed"
	AuditActionLeadStatusUpdated    = "Lead Status Updated"
	AuditActionLeadUpdated          = "Lead Updated"
	AuditActionEngagementUpdated    = "Engagement Updated"
)

// AppLogFilter represents filter criteria for archived audit queries
type AppLogFilter struct {
	Severity      *Severity
	Action        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
