package repository

import (
	"context"
	"fmt"

	"github.com/prbn021/seo-app/models"
	"gorm.io/gorm"
)

// DeliveryLogRepositoryImpl implements DeliveryLogRepository
type DeliveryLogRepositoryImpl struct {
	*BaseRepository[models.DeliveryLogEntry, models.DeliveryLogFilter]
}

func NewDeliveryLogRepository(db *gorm.DB) DeliveryLogRepository {
	return &DeliveryLogRepositoryImpl{BaseRepository: NewBaseRepository[models.DeliveryLogEntry, models.DeliveryLogFilter](db)}
}

func (r *DeliveryLogRepositoryImpl) applyFilter(db *gorm.DB, f models.DeliveryLogFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.ProjectID != nil {
		db = db.Where("project_id = ?", *f.ProjectID)
	}
	if f.LeadID != nil {
		db = db.Where("lead_id = ?", *f.LeadID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	return db
}

func (r *DeliveryLogRepositoryImpl) ByFilter(ctx context.Context, filter models.DeliveryLogFilter, orderBy string, limit, offset int) ([]*models.DeliveryLogEntry, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.DeliveryLogEntry{}), filter)

	var rows []*models.DeliveryLogEntry
	if err := paginate(query, orderBy, limit, offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list delivery entries: %w", err)
	}
	return rows, nil
}

func (r *DeliveryLogRepositoryImpl) Count(ctx context.Context, filter models.DeliveryLogFilter) (int64, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.DeliveryLogEntry{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count delivery entries: %w", err)
	}
	return count, nil
}

// ListByProject retrieves archived deliveries of a project, newest first
func (r *DeliveryLogRepositoryImpl) ListByProject(ctx context.Context, projectID string, limit, offset int) ([]*models.DeliveryLogEntry, error) {
	return r.ByFilter(ctx, models.DeliveryLogFilter{ProjectID: &projectID}, "created_at DESC", limit, offset)
}
