package businessflow

import (
	"context"

	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/repository"
	"github.com/sirupsen/logrus"
)

const (
	defaultArchivePageSize = 50
	maxArchivePageSize     = 500
)

// ArchivePage selects a window of archived rows
type ArchivePage struct {
	Limit  int
	Offset int
}

func (p ArchivePage) normalize() ArchivePage {
	if p.Limit <= 0 {
		p.Limit = defaultArchivePageSize
	}
	if p.Limit > maxArchivePageSize {
		p.Limit = maxArchivePageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ArchivedDeliveryQuery narrows the archived delivery history
type ArchivedDeliveryQuery struct {
	ProjectID string
	LeadID    string
	Status    *models.DeliveryStatus
	Page      ArchivePage
}

// ArchivedAuditQuery narrows the archived audit history. FailuresOnly keeps Error entries.
type ArchivedAuditQuery struct {
	Action       string
	FailuresOnly bool
	Page         ArchivePage
}

type ArchivedDeliveries struct {
	Items []*models.DeliveryLogEntry
	Total int64
	Page  ArchivePage
}

type ArchivedAuditEntries struct {
	Items []*models.AppLogEntry
	Total int64
	Page  ArchivePage
}

// ArchiveFlow reads the Postgres history kept beyond the in-memory audit ring and delivery log
type ArchiveFlow interface {
	ListDeliveries(ctx context.Context, q ArchivedDeliveryQuery) (*ArchivedDeliveries, error)
	GetDelivery(ctx context.Context, id string) (*models.DeliveryLogEntry, error)
	ListAuditEntries(ctx context.Context, q ArchivedAuditQuery) (*ArchivedAuditEntries, error)
}

// ArchiveFlowImpl implements the archive business flow
type ArchiveFlowImpl struct {
	appLogs    repository.AppLogRepository
	deliveries repository.DeliveryLogRepository
	logger     logrus.FieldLogger
}

// NewArchiveFlow creates a new archive flow instance
func NewArchiveFlow(appLogs repository.AppLogRepository, deliveries repository.DeliveryLogRepository, logger logrus.FieldLogger) ArchiveFlow {
	return &ArchiveFlowImpl{
		appLogs:    appLogs,
		deliveries: deliveries,
		logger:     defaultLogger(logger).WithField("flow", "archive"),
	}
}

// ListDeliveries returns archived deliveries newest first
func (f *ArchiveFlowImpl) ListDeliveries(ctx context.Context, q ArchivedDeliveryQuery) (*ArchivedDeliveries, error) {
	page := q.Page.normalize()

	var filter models.DeliveryLogFilter
	if q.ProjectID != "" {
		filter.ProjectID = &q.ProjectID
	}
	if q.LeadID != "" {
		filter.LeadID = &q.LeadID
	}
	filter.Status = q.Status

	var (
		rows []*models.DeliveryLogEntry
		err  error
	)
	if q.ProjectID != "" && q.LeadID == "" && q.Status == nil {
		rows, err = f.deliveries.ListByProject(ctx, q.ProjectID, page.Limit, page.Offset)
	} else {
		rows, err = f.deliveries.ByFilter(ctx, filter, "created_at DESC", page.Limit, page.Offset)
	}
	if err != nil {
		return nil, f.queryFailed(ctx, err)
	}

	total, err := f.deliveries.Count(ctx, filter)
	if err != nil {
		return nil, f.queryFailed(ctx, err)
	}

	return &ArchivedDeliveries{Items: rows, Total: total, Page: page}, nil
}

// GetDelivery returns the latest archived state of one delivery
func (f *ArchiveFlowImpl) GetDelivery(ctx context.Context, id string) (*models.DeliveryLogEntry, error) {
	entry, err := f.deliveries.ByID(ctx, id)
	if err != nil {
		return nil, f.queryFailed(ctx, err)
	}
	if entry == nil {
		return nil, ErrDeliveryNotFound
	}
	return entry, nil
}

// ListAuditEntries returns archived audit entries newest first
func (f *ArchiveFlowImpl) ListAuditEntries(ctx context.Context, q ArchivedAuditQuery) (*ArchivedAuditEntries, error) {
	page := q.Page.normalize()

	var filter models.AppLogFilter
	if q.Action != "" {
		filter.Action = &q.Action
	}
	if q.FailuresOnly {
		severity := models.SeverityError
		filter.Severity = &severity
	}

	var (
		rows []*models.AppLogEntry
		err  error
	)
	switch {
	case q.Action != "" && q.FailuresOnly:
		rows, err = f.appLogs.ByFilter(ctx, filter, "timestamp DESC", page.Limit, page.Offset)
	case q.FailuresOnly:
		rows, err = f.appLogs.ListFailures(ctx, page.Limit, page.Offset)
	case q.Action != "":
		rows, err = f.appLogs.ListByAction(ctx, q.Action, page.Limit, page.Offset)
	default:
		rows, err = f.appLogs.ByFilter(ctx, filter, "timestamp DESC", page.Limit, page.Offset)
	}
	if err != nil {
		return nil, f.queryFailed(ctx, err)
	}

	total, err := f.appLogs.Count(ctx, filter)
	if err != nil {
		return nil, f.queryFailed(ctx, err)
	}

	return &ArchivedAuditEntries{Items: rows, Total: total, Page: page}, nil
}

func (f *ArchiveFlowImpl) queryFailed(ctx context.Context, err error) error {
	withRequestFields(ctx, f.logger).WithError(err).Error("archive query failed")
	return NewBusinessError("ARCHIVE_QUERY_FAILED", "Failed to query the archive", err)
}
