package dto

import (
	"time"

	"github.com/prbn021/seo-app/models"
)

type AuditEntryResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

type AuditLogResponse struct {
	Items []AuditEntryResponse `json:"items"`
	Total int                  `json:"total"`
}

func NewAuditLogResponse(entries []models.AppLogEntry) AuditLogResponse {
	items := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, AuditEntryResponse{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Severity:  string(e.Severity),
			Action:    e.Action,
			Details:   e.Details,
		})
	}
	return AuditLogResponse{Items: items, Total: len(items)}
}
