package businessflow

import (
	"context"

	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/store"
	"github.com/sirupsen/logrus"
)

// AuditFlow exposes the bounded audit log
type AuditFlow interface {
	GetAuditLog(ctx context.Context) ([]models.AppLogEntry, error)
	ClearAuditLog(ctx context.Context) error
}

// AuditFlowImpl implements the audit business flow
type AuditFlowImpl struct {
	store  *store.Store
	logger logrus.FieldLogger
}

// NewAuditFlow creates a new audit flow instance
func NewAuditFlow(st *store.Store, logger logrus.FieldLogger) AuditFlow {
	return &AuditFlowImpl{
		store:  st,
		logger: defaultLogger(logger).WithField("flow", "audit"),
	}
}

// GetAuditLog returns the retained entries, newest first
func (f *AuditFlowImpl) GetAuditLog(ctx context.Context) ([]models.AppLogEntry, error) {
	var out []models.AppLogEntry
	err := f.store.View(ctx, func(tx *store.Tx) error {
		out = tx.AuditEntries()
		return nil
	})
	return out, err
}

// ClearAuditLog drops every retained entry
func (f *AuditFlowImpl) ClearAuditLog(ctx context.Context) error {
	err := f.store.WithTx(ctx, func(tx *store.Tx) error {
		tx.ClearAudit()
		return nil
	})
	if err != nil {
		return err
	}
	withRequestFields(ctx, f.logger).Info("audit log cleared")
	return nil
}
