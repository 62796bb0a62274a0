package repository

import (
	"context"

	"github.com/prbn021/seo-app/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id string) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// AppLogRepository defines operations for archived audit entries
type AppLogRepository interface {
	Repository[models.AppLogEntry, models.AppLogFilter]
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AppLogEntry, error)
	ListFailures(ctx context.Context, limit, offset int) ([]*models.AppLogEntry, error)
}

// DeliveryLogRepository defines operations for archived delivery attempts
type DeliveryLogRepository interface {
	Repository[models.DeliveryLogEntry, models.DeliveryLogFilter]
	UpsertBatch(ctx context.Context, entities []*models.DeliveryLogEntry) error
	ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*models.DeliveryLogEntry, error)
}
