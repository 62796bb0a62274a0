package dto

import (
	"github.com/prbn021/seo-app/models"
)

// ArchivedDeliveriesResponse is one page of the archived delivery history
type ArchivedDeliveriesResponse struct {
	Items  []DeliveryResponse `json:"items"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// ArchivedAuditLogResponse is one page of the archived audit history
type ArchivedAuditLogResponse struct {
	Items  []AuditEntryResponse `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func NewArchivedDeliveriesResponse(entries []*models.DeliveryLogEntry, total int64, limit, offset int) ArchivedDeliveriesResponse {
	items := make([]DeliveryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, NewDeliveryResponse(e))
	}
	return ArchivedDeliveriesResponse{Items: items, Total: total, Limit: limit, Offset: offset}
}

func NewArchivedAuditLogResponse(entries []*models.AppLogEntry, total int64, limit, offset int) ArchivedAuditLogResponse {
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
	return ArchivedAuditLogResponse{Items: items, Total: total, Limit: limit, Offset: offset}
}
