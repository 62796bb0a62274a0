package repository

import (
	"context"
	"fmt"

	"github.com/prbn021/seo-app/models"
	"gorm.io/gorm"
)

// AppLogRepositoryImpl implements AppLogRepository
type AppLogRepositoryImpl struct {
	*BaseRepository[models.AppLogEntry, models.AppLogFilter]
}

// NewAppLogRepository creates a new audit archive repository
func NewAppLogRepository(db *gorm.DB) AppLogRepository {
	return &AppLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AppLogEntry, models.AppLogFilter](db),
	}
}

func (r *AppLogRepositoryImpl) applyFilter(db *gorm.DB, f models.AppLogFilter) *gorm.DB {
	if f.Severity != nil {
		db = db.Where("severity = ?", *f.Severity)
	}
	if f.Action != nil {
		db = db.Where("action = ?", *f.Action)
	}
	if f.CreatedAfter != nil {
		db = db.Where("timestamp >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("timestamp < ?", *f.CreatedBefore)
	}
	return db
}

func (r *AppLogRepositoryImpl) ByFilter(ctx context.Context, filter models.AppLogFilter, orderBy string, limit, offset int) ([]*models.AppLogEntry, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.AppLogEntry{}), filter)

	var rows []*models.AppLogEntry
	if err := paginate(query, orderBy, limit, offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return rows, nil
}

func (r *AppLogRepositoryImpl) Count(ctx context.Context, filter models.AppLogFilter) (int64, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.AppLogEntry{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// ListByAction retrieves archived entries for one action, newest first
func (r *AppLogRepositoryImpl) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AppLogEntry, error) {
	return r.ByFilter(ctx, models.AppLogFilter{Action: &action}, "timestamp DESC", limit, offset)
}

// ListFailures retrieves archived Error entries, newest first
func (r *AppLogRepositoryImpl) ListFailures(ctx context.Context, limit, offset int) ([]*models.AppLogEntry, error) {
	severity := models.SeverityError
	return r.ByFilter(ctx, models.AppLogFilter{Severity: &severity}, "timestamp DESC", limit, offset)
}
